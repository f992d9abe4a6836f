package room

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitexchange/internal/cards"
	"pitexchange/internal/payoff"
	"pitexchange/internal/protocol"
)

type recordingSink struct {
	messages []protocol.Message
}

func (s *recordingSink) Send(msg protocol.Message) error {
	s.messages = append(s.messages, msg)
	return nil
}

func TestRoom_JoinLeave(t *testing.T) {
	r := New("table-1", 3)
	sink := &recordingSink{}

	_, err := r.Join("alice", sink)
	require.NoError(t, err)
	assert.Contains(t, r.PlayerNames(), "alice")

	_, err = r.Join("alice", sink)
	assert.ErrorIs(t, err, ErrAlreadySeated)

	require.NoError(t, r.Leave("alice"))
	assert.NotContains(t, r.PlayerNames(), "alice")
}

func TestRoom_LeaveWhileStartedIsNoOp(t *testing.T) {
	r := New("table-1", 3)
	_, err := r.Join("alice", &recordingSink{})
	require.NoError(t, err)
	_, err = r.Join("bob", &recordingSink{})
	require.NoError(t, err)
	require.NoError(t, r.StartGame())

	require.NoError(t, r.Leave("alice"))
	assert.Contains(t, r.PlayerNames(), "alice")
}

func TestRoom_StartGameCreatesUnderlyingsAndSpread(t *testing.T) {
	r := New("table-1", 3)
	_, err := r.Join("alice", &recordingSink{})
	require.NoError(t, err)
	_, err = r.Join("bob", &recordingSink{})
	require.NoError(t, err)
	require.NoError(t, r.StartGame())

	_, okA := r.books["A"]
	_, okB := r.books["B"]
	assert.True(t, okA)
	assert.True(t, okB)
	assert.Len(t, r.instruments, 3)

	spreadOK := false
	for _, name := range r.instruments {
		if name == "A - B" || name == "B - A" {
			spreadOK = true
		}
	}
	assert.True(t, spreadOK)

	alice, _ := r.Player("alice")
	assert.True(t, alice.Positions[CashSymbol].AveragePrice.Equal(decimal.NewFromInt(1)))
	for _, instrument := range r.instruments {
		assert.True(t, alice.Positions[instrument].Size.IsZero())
	}
}

func TestRoom_StartGameTwiceIsRejected(t *testing.T) {
	r := New("table-1", 3)
	_, err := r.Join("alice", &recordingSink{})
	require.NoError(t, err)
	require.NoError(t, r.StartGame())
	assert.ErrorIs(t, r.StartGame(), ErrAlreadyStarted)
}

func TestRoom_NewOrderAndTrade(t *testing.T) {
	r := New("table-1", 3)
	aliceSink, bobSink := &recordingSink{}, &recordingSink{}
	_, err := r.Join("alice", aliceSink)
	require.NoError(t, err)
	_, err = r.Join("bob", bobSink)
	require.NoError(t, err)

	require.NoError(t, r.StartGame())

	_, err = r.NewOrder("alice", "A", "bid", 10, 5)
	require.NoError(t, err)
	_, err = r.NewOrder("bob", "A", "ask", 10, 5)
	require.NoError(t, err)

	alice, _ := r.Player("alice")
	bob, _ := r.Player("bob")
	assert.Equal(t, "5", alice.Positions["A"].Size.String())
	assert.Equal(t, "-5", bob.Positions["A"].Size.String())
	assert.Equal(t, "-50", alice.Positions[CashSymbol].Size.String())
	assert.Equal(t, "50", bob.Positions[CashSymbol].Size.String())
}

func TestRoom_NewOptionValidatesStrike(t *testing.T) {
	r := New("table-1", 3)
	_, err := r.Join("alice", &recordingSink{})
	require.NoError(t, err)
	require.NoError(t, r.StartGame())

	assert.ErrorIs(t, r.NewOption("A", "CALL", 0), ErrMissingStrike)
	require.NoError(t, r.NewOption("A", "CALL", 20))
	assert.ErrorIs(t, r.NewOption("A", "CALL", 20), ErrInstrumentExists)

	_, ok := r.books["A-20-CALL"]
	assert.True(t, ok)
}

func TestRoom_SettleGamePaysIntrinsicValue(t *testing.T) {
	r := New("table-1", 3)
	aliceSink, bobSink := &recordingSink{}, &recordingSink{}
	_, err := r.Join("alice", aliceSink)
	require.NoError(t, err)
	_, err = r.Join("bob", bobSink)
	require.NoError(t, err)
	require.NoError(t, r.StartGame())

	require.NoError(t, r.NewOption("A", "CALL", 20))

	_, err = r.NewOrder("alice", "A-20-CALL", "bid", 10, 1)
	require.NoError(t, err)
	_, err = r.NewOrder("bob", "A-20-CALL", "ask", 10, 1)
	require.NoError(t, err)

	require.NoError(t, r.SettleGame())
	assert.True(t, r.Settled())

	alice, _ := r.Player("alice")
	bob, _ := r.Player("bob")

	settlementA := r.settlementValue[payoff.PileA]
	wantPayoff := settlementA - 20
	if wantPayoff < 0 {
		wantPayoff = 0
	}

	wantAlice := -10 + wantPayoff
	wantBob := 10 - wantPayoff
	assert.Equal(t, wantAlice, alice.Positions[CashSymbol].Size.IntPart())
	assert.Equal(t, wantBob, bob.Positions[CashSymbol].Size.IntPart())
	assert.True(t, alice.Positions["A-20-CALL"].Size.IsZero())
	assert.True(t, bob.Positions["A-20-CALL"].Size.IsZero())
}

func TestRoom_CancelOrderByPriceAndDirection(t *testing.T) {
	r := New("table-1", 3)
	sink := &recordingSink{}
	_, err := r.Join("alice", sink)
	require.NoError(t, err)
	require.NoError(t, r.StartGame())

	_, err = r.NewOrder("alice", "A", "bid", 10, 5)
	require.NoError(t, err)

	require.NoError(t, r.CancelOrder("alice", "A", "bid", 10))

	update, err := r.BookUpdate("A", 5)
	require.NoError(t, err)
	assert.Empty(t, update.Bids)
}

func TestRoom_RevealCardIgnoresUnheldCard(t *testing.T) {
	r := New("table-1", 3)
	_, err := r.Join("alice", &recordingSink{})
	require.NoError(t, err)
	require.NoError(t, r.StartGame())

	require.NoError(t, r.RevealCard("alice", cards.Card{Rank: 1, Suit: cards.Spades}))
	require.NoError(t, r.RevealCard("alice", cards.Card{Rank: 1, Suit: cards.Spades}))
}

func TestRoom_RejoinReplaysState(t *testing.T) {
	r := New("table-1", 3)
	sink := &recordingSink{}
	_, err := r.Join("alice", sink)
	require.NoError(t, err)
	require.NoError(t, r.StartGame())

	_, err = r.NewOrder("alice", "A", "bid", 10, 5)
	require.NoError(t, err)

	newSink := &recordingSink{}
	p, err := r.Join("alice", newSink)
	require.NoError(t, err)
	assert.Same(t, newSink, p.Sink.(*recordingSink))
	assert.NotEmpty(t, newSink.messages)

	var sawGameStart bool
	for _, msg := range newSink.messages {
		if _, ok := msg.(protocol.GameStart); ok {
			sawGameStart = true
		}
	}
	assert.True(t, sawGameStart)
}

func TestRoom_JoinRefusedForUnknownPlayerAfterStart(t *testing.T) {
	r := New("table-1", 3)
	_, err := r.Join("alice", &recordingSink{})
	require.NoError(t, err)
	require.NoError(t, r.StartGame())

	_, err = r.Join("carol", &recordingSink{})
	assert.ErrorIs(t, err, ErrRefused)
}
