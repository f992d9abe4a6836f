package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBook() *OrderBook {
	return NewOrderBook("XYZ", 1)
}

func TestPlaceOrder_RestsWhenNoCross(t *testing.T) {
	b := newTestBook()

	ev, id, err := b.PlaceOrder("alice", Bid, 10, 5)
	require.NoError(t, err)
	assert.NotZero(t, id)
	require.Len(t, ev.OrderUpdates, 1)
	assert.Equal(t, Active, ev.OrderUpdates[0].Status)
	assert.Empty(t, ev.Fills)
	assert.Empty(t, ev.Tape)

	require.Len(t, b.Bids, 1)
	require.NotNil(t, b.Bids[0])
	assert.Equal(t, int64(10), b.Bids[0].Price)
	assert.Equal(t, int64(5), b.Bids[0].Size)
	assert.Equal(t, Bid, b.Bids[0].Direction)
	assert.Empty(t, b.Asks)
}

func TestPlaceOrder_FullCross_SinglePrint(t *testing.T) {
	b := newTestBook()
	_, _, err := b.PlaceOrder("alice", Bid, 10, 5)
	require.NoError(t, err)

	ev, _, err := b.PlaceOrder("bob", Ask, 10, 5)
	require.NoError(t, err)

	require.Len(t, ev.Tape, 1)
	assert.Equal(t, int64(10), ev.Tape[0].Price)
	assert.Equal(t, int64(5), ev.Tape[0].Size)
	assert.Equal(t, Ask, ev.Tape[0].Direction)

	require.Len(t, ev.Fills, 2)
	assert.Equal(t, "alice", ev.Fills[0].Player)
	assert.Equal(t, Bid, ev.Fills[0].Direction)
	assert.Equal(t, "bob", ev.Fills[1].Player)
	assert.Equal(t, Ask, ev.Fills[1].Direction)

	assert.Empty(t, b.Bids)
	assert.Empty(t, b.Asks)
}

func TestPlaceOrder_TakerGetsMakerPriceImprovement(t *testing.T) {
	b := newTestBook()
	_, _, err := b.PlaceOrder("alice", Ask, 10, 5) // resting ask at 10
	require.NoError(t, err)

	ev, _, err := b.PlaceOrder("bob", Bid, 12, 5) // willing to pay 12, fills at 10
	require.NoError(t, err)

	require.Len(t, ev.TradeUpdates, 2)
	for _, tu := range ev.TradeUpdates {
		assert.Equal(t, int64(10), tu.Price)
	}
}

func TestPlaceOrder_PartialFillLeavesResidualAtTop(t *testing.T) {
	b := newTestBook()
	_, _, err := b.PlaceOrder("alice", Bid, 10, 3)
	require.NoError(t, err)

	ev, _, err := b.PlaceOrder("bob", Ask, 10, 8)
	require.NoError(t, err)

	require.Len(t, ev.Tape, 1)
	assert.Equal(t, int64(3), ev.Tape[0].Size)

	require.Len(t, b.Asks, 1)
	require.NotNil(t, b.Asks[0])
	assert.Equal(t, int64(10), b.Asks[0].Price)
	assert.Equal(t, int64(5), b.Asks[0].Size)
	assert.Empty(t, b.Bids)
}

// TestPlaceOrder_PriceLevelFlip exercises a crossing order whose residual
// lands exactly on its own limit price: the drained level is trimmed from
// the side it was resting on and a fresh level for the residual appears
// on the taker's own side at the same price.
func TestPlaceOrder_PriceLevelFlip(t *testing.T) {
	b := newTestBook()
	_, _, err := b.PlaceOrder("alice", Bid, 5, 5)
	require.NoError(t, err)

	ev, _, err := b.PlaceOrder("bob", Ask, 5, 8)
	require.NoError(t, err)

	require.Len(t, ev.Tape, 1)
	assert.Equal(t, int64(5), ev.Tape[0].Size)

	assert.Empty(t, b.Bids)
	require.Len(t, b.Asks, 1)
	require.NotNil(t, b.Asks[0])
	assert.Equal(t, int64(5), b.Asks[0].Price)
	assert.Equal(t, int64(3), b.Asks[0].Size)
	assert.Equal(t, Ask, b.Asks[0].Direction)
}

func TestPlaceOrder_RejectsNonPositivePriceOrSize(t *testing.T) {
	b := newTestBook()
	_, _, err := b.PlaceOrder("alice", Bid, 0, 5)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, _, err = b.PlaceOrder("alice", Bid, 5, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestCancel_RemovesRestingOrderAndTrimsLevel(t *testing.T) {
	b := newTestBook()
	_, _, err := b.PlaceOrder("alice", Bid, 10, 5)
	require.NoError(t, err)

	ev, err := b.Cancel("alice", Bid, 10)
	require.NoError(t, err)
	require.Len(t, ev.OrderUpdates, 1)
	assert.Equal(t, Cancelled, ev.OrderUpdates[0].Status)
	assert.Empty(t, b.Bids)

	// Cancelling an already-empty slot is a no-op, not an error.
	ev, err = b.Cancel("alice", Bid, 10)
	require.NoError(t, err)
	assert.Empty(t, ev.OrderUpdates)
}

func TestCancel_LeavesOtherOrdersAtLevelIntact(t *testing.T) {
	b := newTestBook()
	_, _, err := b.PlaceOrder("alice", Bid, 10, 3)
	require.NoError(t, err)
	_, _, err = b.PlaceOrder("carol", Bid, 10, 4)
	require.NoError(t, err)

	_, err = b.Cancel("alice", Bid, 10)
	require.NoError(t, err)

	require.Len(t, b.Bids, 1)
	require.NotNil(t, b.Bids[0])
	assert.Equal(t, int64(4), b.Bids[0].Size)
}

func TestCancel_RestOrderThenCancelLeavesBookIdentical(t *testing.T) {
	b := newTestBook()
	ev, err := b.Cancel("alice", Bid, 10)
	require.NoError(t, err)
	assert.Empty(t, ev.OrderUpdates)

	_, _, err = b.PlaceOrder("alice", Bid, 10, 5)
	require.NoError(t, err)
	_, err = b.Cancel("alice", Bid, 10)
	require.NoError(t, err)

	assert.Empty(t, b.Bids)
	assert.Empty(t, b.Asks)
}

func TestCancelPlayer_RemovesAllOfThatPlayersOrders(t *testing.T) {
	b := newTestBook()
	_, _, err := b.PlaceOrder("alice", Bid, 10, 3)
	require.NoError(t, err)
	_, _, err = b.PlaceOrder("alice", Bid, 9, 2)
	require.NoError(t, err)
	_, _, err = b.PlaceOrder("carol", Bid, 9, 6)
	require.NoError(t, err)

	ev := b.CancelPlayer("alice")
	require.Len(t, ev.OrderUpdates, 2)

	// The price-10 level held only alice's order and is trimmed away
	// entirely; price-9 survives with carol's 6 still resting.
	require.Len(t, b.Bids, 1)
	require.NotNil(t, b.Bids[0])
	assert.Equal(t, int64(9), b.Bids[0].Price)
	assert.Equal(t, int64(6), b.Bids[0].Size)
}

func TestPlaceOrder_NewBestBidGrowsArrayWithGap(t *testing.T) {
	b := newTestBook()
	_, _, err := b.PlaceOrder("alice", Bid, 10, 1)
	require.NoError(t, err)

	_, _, err = b.PlaceOrder("bob", Bid, 12, 1) // two ticks better
	require.NoError(t, err)

	require.Len(t, b.Bids, 3)
	require.NotNil(t, b.Bids[0])
	assert.Equal(t, int64(12), b.Bids[0].Price)
	assert.Nil(t, b.Bids[1])
	require.NotNil(t, b.Bids[2])
	assert.Equal(t, int64(10), b.Bids[2].Price)
}

func TestTopN_ReturnsBestLevelsFirstSkippingGaps(t *testing.T) {
	b := newTestBook()
	_, _, err := b.PlaceOrder("alice", Ask, 10, 1)
	require.NoError(t, err)
	_, _, err = b.PlaceOrder("bob", Ask, 12, 1)
	require.NoError(t, err)

	_, asks := b.TopN(2)
	require.Len(t, asks, 2)
	assert.Equal(t, int64(10), asks[0].Price)
	assert.Equal(t, int64(12), asks[1].Price)
}
