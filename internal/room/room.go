// Package room implements a single game room: its seated players, its
// private per-player card piles, its tradable instruments and their order
// books, and the settlement that closes a round (spec.md §4.1, grounded
// on original_source/backend/server.py's Room class).
package room

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pitexchange/internal/book"
	"pitexchange/internal/cards"
	"pitexchange/internal/metrics"
	"pitexchange/internal/payoff"
	"pitexchange/internal/protocol"
)

const defaultTickSize = 1

var (
	ErrRoomFull          = fmt.Errorf("room: full")
	ErrAlreadySeated     = fmt.Errorf("room: player already seated")
	ErrNotSeated         = fmt.Errorf("room: player not seated")
	ErrAlreadyStarted    = fmt.Errorf("room: already started")
	ErrNotStarted        = fmt.Errorf("room: not started")
	ErrAlreadySettled    = fmt.Errorf("room: already settled")
	ErrUnknownInstrument = fmt.Errorf("room: unknown instrument")
	ErrInstrumentExists  = fmt.Errorf("room: instrument already exists")
	ErrMissingStrike     = fmt.Errorf("room: strike must be a positive integer")
	ErrUnknownOptionType = fmt.Errorf("room: option type must be CALL or PUT")
	ErrBadDirection      = fmt.Errorf("room: direction must be \"bid\" or \"ask\"")
	ErrMaxPlayers        = fmt.Errorf("room: player cap reached")
	ErrRefused           = fmt.Errorf("room: join refused, game already started")
)

// MaxPlayers bounds a room's roster; the shared 52-card deck is split
// into two piles of CardsPerPile cards per player, so
// 2*CardsPerPile*MaxPlayers must stay within the deck (spec.md §4.5).
const MaxPlayers = 8

// pile is a player's private hand of cards for one of the two piles.
type pile struct {
	A, B []cards.Card
}

// Room is the unit of isolation for one game: its own deck, per-player
// piles, instrument set, order books, and seated players. Every exported
// method is meant to be called from a single goroutine per room (spec.md
// §5); Room itself holds no lock beyond the trade-tape append, which a
// transport's read-only quote endpoint may call concurrently.
type Room struct {
	Name         string
	CardsPerPile int

	deck *cards.Deck

	players map[string]*Player

	playerCards   map[string]*pile // private: every card dealt to each player
	revealedCards map[string]*pile // public: the subset each player has revealed

	instruments []string // insertion order (spec.md §3 Room.instruments)
	symbols     map[string]payoff.Symbol
	books       map[string]*book.OrderBook

	settlementValue map[payoff.Pile]int64

	started bool
	settled bool

	tapeMu sync.Mutex
	trades []protocol.TradeRecord
}

// New creates an empty, unstarted room with cardsPerPile cards dealt into
// each player's two piles once StartGame runs.
func New(name string, cardsPerPile int) *Room {
	if cardsPerPile <= 0 {
		cardsPerPile = 3
	}
	return &Room{
		Name:          name,
		CardsPerPile:  cardsPerPile,
		deck:          cards.NewDeck(),
		players:       map[string]*Player{},
		playerCards:   map[string]*pile{},
		revealedCards: map[string]*pile{},
		symbols:       map[string]payoff.Symbol{},
		books:         map[string]*book.OrderBook{},
	}
}

// Join seats a new player, or — if the game has already started and name
// was previously seated — swaps in a fresh Sink and replays the room's
// current state to them (spec.md §4.1 join: "rejoin"). Joining a started
// room under a name that was never seated is refused.
func (r *Room) Join(name string, sink protocol.Sink) (*Player, error) {
	if sink == nil {
		sink = protocol.Discard
	}
	if p, ok := r.players[name]; ok {
		if !r.started {
			return nil, ErrAlreadySeated
		}
		p.Sink = sink
		r.replay(p)
		return p, nil
	}
	if r.started {
		return nil, ErrRefused
	}
	if len(r.players) >= MaxPlayers {
		return nil, ErrMaxPlayers
	}
	p := newPlayer(name, sink)
	r.players[name] = p
	r.broadcastRoomState()
	return p, nil
}

// Leave removes a player while the room is still waiting; once started it
// is a no-op acknowledgement — the player is retained for settlement
// (spec.md §4.1 leave, §9 Open Question: resting orders are untouched,
// matching the source's behavior of simply not evicting the seat).
func (r *Room) Leave(name string) error {
	if _, ok := r.players[name]; !ok {
		return ErrNotSeated
	}
	if r.started {
		return nil
	}
	delete(r.players, name)
	r.broadcastRoomState()
	return nil
}

// replay pushes a rejoining player everything spec.md §4.1 lists: the
// roster/instrument set, their own private cards, the room's revealed
// cards, every book, their own positions, and their own open orders.
func (r *Room) replay(p *Player) {
	p.Sink.Send(r.roomStateMessage())
	if pc, ok := r.playerCards[p.Name]; ok {
		p.Sink.Send(r.gameStartMessage(pc))
	}
	p.Sink.Send(r.revealedCardsMessage())
	for _, instrument := range r.instruments {
		p.Sink.Send(r.bookUpdateMessage(instrument, 0))
	}
	p.Sink.Send(p.positionsUpdate(r.Name))
	for _, instrument := range r.instruments {
		for _, u := range r.books[instrument].OrdersForPlayer(p.Name) {
			msg := protocol.NewOrderUpdate()
			msg.Room = r.Name
			msg.Instrument = instrument
			msg.OrderID = u.OrderID
			msg.Direction = u.Direction.String()
			msg.Price = u.Price
			msg.Size = u.Size
			msg.RemainingSize = u.RemainingSize
			msg.Status = u.Status.String()
			p.Sink.Send(msg)
		}
	}
	r.tapeMu.Lock()
	tape := append([]protocol.TradeRecord(nil), r.trades...)
	r.tapeMu.Unlock()
	msg := protocol.NewTrade()
	msg.Room = r.Name
	msg.Data = tape
	p.Sink.Send(msg)
}

// StartGame deals CardsPerPile cards into each seated player's A and B
// piles, fixes the room-wide settlement value as the sum of ranks in each
// pile across every player, opens the room for trading, and automatically
// creates the underlying instruments (spec.md §4.1 start_game).
func (r *Room) StartGame() error {
	if r.started {
		return ErrAlreadyStarted
	}
	need := int64(2 * r.CardsPerPile * len(r.players))
	if need > 52 {
		return fmt.Errorf("room: %d players at %d cards per pile exceeds the deck", len(r.players), r.CardsPerPile)
	}

	names := r.playerNamesSorted()
	var sumA, sumB int64
	for _, name := range names {
		pc := &pile{}
		for i := 0; i < r.CardsPerPile; i++ {
			pc.A = append(pc.A, r.deck.Deal())
			pc.B = append(pc.B, r.deck.Deal())
		}
		r.playerCards[name] = pc
		r.revealedCards[name] = &pile{}
		sumA += int64(cards.SumRanks(pc.A))
		sumB += int64(cards.SumRanks(pc.B))
	}
	r.settlementValue = map[payoff.Pile]int64{payoff.PileA: sumA, payoff.PileB: sumB}

	for _, p := range r.players {
		p.initCash()
	}

	r.started = true

	if err := r.initUnderlying(); err != nil {
		return err
	}

	for _, name := range names {
		r.players[name].Sink.Send(r.gameStartMessage(r.playerCards[name]))
	}
	r.broadcastRoomState()
	return nil
}

// initUnderlying creates the three instruments every started game trades:
// the two named piles and whichever spread (A - B or B - A) is
// non-negative (spec.md §4.1 init_underlying, §3 symbol grammar).
func (r *Room) initUnderlying() error {
	if err := r.registerSymbol(payoff.Symbol{Kind: payoff.Underlying, Underlying: payoff.PileA}); err != nil {
		return err
	}
	if err := r.registerSymbol(payoff.Symbol{Kind: payoff.Underlying, Underlying: payoff.PileB}); err != nil {
		return err
	}
	spread := payoff.Symbol{Kind: payoff.Spread, Minuend: payoff.PileA, Subtrahend: payoff.PileB}
	if r.settlementValue[payoff.PileA]-r.settlementValue[payoff.PileB] < 0 {
		spread = payoff.Symbol{Kind: payoff.Spread, Minuend: payoff.PileB, Subtrahend: payoff.PileA}
	}
	return r.registerSymbol(spread)
}

// NewOption registers a new CALL or PUT instrument struck on an existing
// underlying pile (spec.md §4.1 new_option). It rejects a missing or
// non-positive strike and a name that already names an instrument.
func (r *Room) NewOption(underlying string, optionType string, strike int64) error {
	if strike <= 0 {
		return ErrMissingStrike
	}
	if !payoff.IsPile(underlying) {
		return ErrUnknownInstrument
	}
	var kind payoff.OptionType
	switch optionType {
	case "CALL":
		kind = payoff.Call
	case "PUT":
		kind = payoff.Put
	default:
		return ErrUnknownOptionType
	}
	sym := payoff.Symbol{Kind: payoff.Option, Underlying: payoff.Pile(underlying), Strike: strike, OptionType: kind}
	if _, ok := r.symbols[sym.String()]; ok {
		return ErrInstrumentExists
	}
	return r.registerSymbol(sym)
}

// registerSymbol adds a parsed symbol as a new tradable instrument with a
// fresh empty book and a zero position row for every seated player
// (spec.md §4.1 init_underlying/new_option).
func (r *Room) registerSymbol(sym payoff.Symbol) error {
	name := sym.String()
	if _, ok := r.symbols[name]; ok {
		return nil // idempotent: init_underlying re-running must not duplicate
	}
	r.symbols[name] = sym
	r.instruments = append(r.instruments, name)
	r.books[name] = book.NewOrderBook(name, defaultTickSize)
	for _, p := range r.players {
		p.initPosition(name)
	}
	r.broadcastRoomState()
	return nil
}

// RevealCard flips a specific card the player holds face up, adding it to
// their public revealed pile. A card outside the player's dealt hand, or
// already revealed, is silently ignored (spec.md §4.1 reveal_card, §9
// Open Question #2).
func (r *Room) RevealCard(player string, c cards.Card) error {
	if !r.started {
		return ErrNotStarted
	}
	pc, ok := r.playerCards[player]
	if !ok {
		return ErrNotSeated
	}
	rc := r.revealedCards[player]
	if containsCard(rc.A, c) || containsCard(rc.B, c) {
		return nil
	}
	switch {
	case containsCard(pc.A, c):
		rc.A = append(rc.A, c)
	case containsCard(pc.B, c):
		rc.B = append(rc.B, c)
	default:
		return nil
	}
	r.broadcastRevealedCards()
	return nil
}

func containsCard(cs []cards.Card, c cards.Card) bool {
	for _, h := range cs {
		if h.Equal(c) {
			return true
		}
	}
	return false
}

func (r *Room) direction(s string) (book.Direction, error) {
	switch s {
	case "bid":
		return book.Bid, nil
	case "ask":
		return book.Ask, nil
	default:
		return book.NoDirection, ErrBadDirection
	}
}

// NewOrder places a limit order for player in instrument, applying every
// resulting fill to both sides' positions and fanning out the book's
// events to the affected players, then rebroadcasts every instrument's
// book (spec.md §4.1 new_order: "broadcast full book snapshots for all
// instruments in the room").
func (r *Room) NewOrder(player, instrument, direction string, price, size int64) (int64, error) {
	if _, ok := r.players[player]; !ok {
		return 0, ErrNotSeated
	}
	if !r.started {
		return 0, ErrNotStarted
	}
	b, ok := r.books[instrument]
	if !ok {
		return 0, ErrUnknownInstrument
	}
	dir, err := r.direction(direction)
	if err != nil {
		return 0, err
	}

	ev, orderID, err := b.PlaceOrder(player, dir, price, size)
	if err != nil {
		return 0, err
	}
	metrics.OrdersPlaced.WithLabelValues(r.Name, instrument).Inc()
	r.applyEvents(instrument, ev)
	r.broadcastBooks()
	return orderID, nil
}

// CancelOrder cancels every resting order player has at (price,
// direction) in instrument (spec.md §4.1 cancel_order); a player may only
// cancel their own orders, which the book enforces by player name.
func (r *Room) CancelOrder(player, instrument, direction string, price int64) error {
	b, ok := r.books[instrument]
	if !ok {
		return ErrUnknownInstrument
	}
	dir, err := r.direction(direction)
	if err != nil {
		return err
	}
	ev, err := b.Cancel(player, dir, price)
	if err != nil {
		return err
	}
	r.applyEvents(instrument, ev)
	r.broadcastBooks()
	return nil
}

// applyEvents fans a book.Events out to player sinks and folds every Fill
// into position/cash accounting, matching original_source's
// update_positions/new_trade split.
func (r *Room) applyEvents(instrument string, ev book.Events) {
	r.fanOrderUpdates(instrument, ev.OrderUpdates)

	for _, tu := range ev.TradeUpdates {
		p, ok := r.players[tu.Player]
		if !ok {
			continue
		}
		msg := protocol.NewTradeUpdate()
		msg.Room = r.Name
		msg.Instrument = tu.Instrument
		msg.Price = tu.Price
		msg.Size = tu.Size
		msg.Side = tu.Side.String()
		p.Sink.Send(msg)
	}

	touched := map[string]bool{}
	for _, f := range ev.Fills {
		p, ok := r.players[f.Player]
		if !ok {
			continue
		}
		p.applyFill(f)
		touched[f.Player] = true
	}
	for name := range touched {
		p := r.players[name]
		p.Sink.Send(p.positionsUpdate(r.Name))
	}

	if len(ev.Tape) > 0 {
		now := time.Now().Unix()
		r.tapeMu.Lock()
		for _, t := range ev.Tape {
			r.trades = append(r.trades, protocol.TradeRecord{
				Instrument: t.Instrument,
				Price:      t.Price,
				Size:       t.Size,
				Direction:  t.Direction.String(),
				Timestamp:  now,
			})
			metrics.TradesExecuted.WithLabelValues(r.Name, t.Instrument).Inc()
		}
		r.tapeMu.Unlock()
		r.broadcastTrades()
	}
}

func (r *Room) fanOrderUpdates(instrument string, updates []book.OrderUpdate) {
	for _, u := range updates {
		p, ok := r.players[u.Player]
		if !ok {
			continue
		}
		msg := protocol.NewOrderUpdate()
		msg.Room = r.Name
		msg.Instrument = instrument
		msg.OrderID = u.OrderID
		msg.Direction = u.Direction.String()
		msg.Price = u.Price
		msg.Size = u.Size
		msg.RemainingSize = u.RemainingSize
		msg.Status = u.Status.String()
		p.Sink.Send(msg)
	}
}

// broadcastTrades sends the full trade tape to the room (spec.md §4.1
// new_trade: "broadcast the entire trades list to the room").
func (r *Room) broadcastTrades() {
	r.tapeMu.Lock()
	tape := append([]protocol.TradeRecord(nil), r.trades...)
	r.tapeMu.Unlock()

	msg := protocol.NewTrade()
	msg.Room = r.Name
	msg.Data = tape
	for _, p := range r.players {
		p.Sink.Send(msg)
	}
}

// broadcastBooks sends a full book snapshot for every instrument to every
// seated player (spec.md §4.1 new_order/cancel_order).
func (r *Room) broadcastBooks() {
	for _, instrument := range r.instruments {
		msg := r.bookUpdateMessage(instrument, 0)
		for _, p := range r.players {
			p.Sink.Send(msg)
		}
	}
}

func (r *Room) broadcastRevealedCards() {
	msg := r.revealedCardsMessage()
	for _, p := range r.players {
		p.Sink.Send(msg)
	}
}

// pileValues returns the room-wide settlement value fixed at start_game
// for each pile, the basis every payoff computation settles against
// (spec.md §4.1 settle_game).
func (r *Room) pileValues() map[payoff.Pile]int64 {
	return r.settlementValue
}

// SettleGame pays every instrument's final intrinsic value against each
// player's remaining position, folding it into cash, and closes the round
// (spec.md §4.1 settle_game: "pnl = Σ over symbols (position.size ·
// payoff(symbol))"; since cash already nets every trade's notional, a
// player's final CASH size after this loop equals their total pnl).
func (r *Room) SettleGame() error {
	if !r.started {
		return ErrNotStarted
	}
	if r.settled {
		return ErrAlreadySettled
	}
	values := r.pileValues()
	for symbol, sym := range r.symbols {
		settlement := decimal.NewFromInt(payoff.Settle(sym, values))
		for _, p := range r.players {
			pos := p.Positions[symbol]
			if pos.Size.IsZero() {
				continue
			}
			cash := p.Positions[CashSymbol]
			cash.Size = cash.Size.Add(pos.Size.Mul(settlement))
			p.Positions[CashSymbol] = cash
			p.Positions[symbol] = Position{Size: decimal.Zero, AveragePrice: decimal.Zero}
		}
	}
	r.settled = true

	pnl := map[string]string{}
	for name, p := range r.players {
		pnl[name] = p.cash().String()
		p.Sink.Send(p.positionsUpdate(r.Name))
	}
	msg := protocol.NewSettlement()
	msg.Room = r.Name
	msg.Data = pnl
	for _, p := range r.players {
		p.Sink.Send(msg)
	}
	r.broadcastRoomState()
	return nil
}

func (r *Room) broadcastRoomState() {
	msg := r.roomStateMessage()
	for _, p := range r.players {
		p.Sink.Send(msg)
	}
}

func (r *Room) roomStateMessage() protocol.RoomState {
	msg := protocol.NewRoomState()
	msg.Room = r.Name
	msg.Started = r.started
	msg.Settled = r.settled
	msg.Players = r.playerNamesSorted()
	msg.Instruments = append([]string(nil), r.instruments...)
	return msg
}

func (r *Room) gameStartMessage(pc *pile) protocol.GameStart {
	msg := protocol.NewGameStart()
	msg.Room = r.Name
	msg.A = toCardViews(pc.A)
	msg.B = toCardViews(pc.B)
	return msg
}

func (r *Room) revealedCardsMessage() protocol.RevealedCards {
	msg := protocol.NewRevealedCards()
	msg.Room = r.Name
	for name, rc := range r.revealedCards {
		msg.Data[name] = protocol.PlayerPile{A: toCardViews(rc.A), B: toCardViews(rc.B)}
	}
	return msg
}

func toCardViews(cs []cards.Card) []protocol.CardView {
	out := make([]protocol.CardView, 0, len(cs))
	for _, c := range cs {
		out = append(out, protocol.CardView{Rank: c.Rank, Suit: c.Suit.String()})
	}
	return out
}

func (r *Room) bookUpdateMessage(instrument string, depth int) protocol.BookUpdate {
	msg := protocol.NewBookUpdate()
	msg.Room = r.Name
	msg.Instrument = instrument
	b, ok := r.books[instrument]
	if !ok {
		return msg
	}
	if depth <= 0 {
		depth = len(b.Bids) + len(b.Asks) + 1
	}
	bids, asks := b.TopN(depth)
	for _, lvl := range bids {
		msg.Bids = append(msg.Bids, protocol.BookLevel{Price: lvl.Price, Size: lvl.Size})
	}
	for _, lvl := range asks {
		msg.Asks = append(msg.Asks, protocol.BookLevel{Price: lvl.Price, Size: lvl.Size})
	}
	return msg
}

// BookUpdate is the exported read path a transport uses to answer a
// quote-depth request for one instrument.
func (r *Room) BookUpdate(instrument string, depth int) (protocol.BookUpdate, error) {
	if _, ok := r.books[instrument]; !ok {
		return protocol.BookUpdate{}, ErrUnknownInstrument
	}
	return r.bookUpdateMessage(instrument, depth), nil
}

// Player looks up a seated player by name.
func (r *Room) Player(name string) (*Player, bool) {
	p, ok := r.players[name]
	return p, ok
}

// PlayerNames returns the current roster, unordered.
func (r *Room) PlayerNames() []string {
	names := make([]string, 0, len(r.players))
	for name := range r.players {
		names = append(names, name)
	}
	return names
}

func (r *Room) playerNamesSorted() []string {
	names := r.PlayerNames()
	sort.Strings(names)
	return names
}

// Started reports whether StartGame has run.
func (r *Room) Started() bool { return r.started }

// Settled reports whether SettleGame has run.
func (r *Room) Settled() bool { return r.settled }
