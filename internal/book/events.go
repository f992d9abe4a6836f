package book

// OrderUpdate is the owner-private snapshot emitted whenever one of a
// player's own orders changes state: placed, partially filled, filled, or
// cancelled (spec.md §6 outbound OrderUpdate).
type OrderUpdate struct {
	Player        string
	Instrument    string
	OrderID       int64
	Direction     Direction
	Price         int64
	Size          int64
	RemainingSize int64
	Status        Status
}

// TradeUpdate is the owner-private notice that one of a player's orders
// just traded size shares at price, sent alongside the OrderUpdate for the
// same fill (spec.md §6 outbound TradeUpdate).
type TradeUpdate struct {
	Player     string
	Instrument string
	Price      int64
	Size       int64
	Side       TradeSide
}

// Fill is a position-affecting event for one player's account: size shares
// of instrument changed hands at price, in the direction of that player's
// own order. The caller (internal/room) folds this into the VWAP position
// recurrence (spec.md §4.1 update_positions).
type Fill struct {
	Player     string
	Instrument string
	Price      int64
	Size       int64
	Direction  Direction
}

// TapeEntry is one print on the room-wide trade tape, carrying the taker's
// direction (spec.md §4.1 new_trade, §4.3 "taker-side fills additionally
// append to the room trade tape").
type TapeEntry struct {
	Instrument string
	Price      int64
	Size       int64
	Direction  Direction
}

// Events accumulates everything a single book operation (PlaceOrder,
// CancelOrder) produced, in emission order, so the caller can fan them out
// to player sinks and the room's position/trade-tape state without the
// book holding a reference back into the room (spec.md §9 Design Notes:
// avoid ownership cycles between book and room).
type Events struct {
	OrderUpdates []OrderUpdate
	TradeUpdates []TradeUpdate
	Fills        []Fill
	Tape         []TapeEntry
}

func (e *Events) appendOrderUpdate(o *Order) {
	e.OrderUpdates = append(e.OrderUpdates, o.snapshot())
}

func (e *Events) appendTrade(o *Order, price, size int64) {
	e.TradeUpdates = append(e.TradeUpdates, TradeUpdate{
		Player:     o.Player,
		Instrument: o.Instrument,
		Price:      price,
		Size:       size,
		Side:       o.tradeSide(),
	})
}

func (e *Events) appendFill(o *Order, price, size int64) {
	e.Fills = append(e.Fills, Fill{
		Player:     o.Player,
		Instrument: o.Instrument,
		Price:      price,
		Size:       size,
		Direction:  o.Direction,
	})
}

func (e *Events) appendTape(instrument string, price, size int64, taker Direction) {
	e.Tape = append(e.Tape, TapeEntry{Instrument: instrument, Price: price, Size: size, Direction: taker})
}

func (e *Events) merge(other Events) {
	e.OrderUpdates = append(e.OrderUpdates, other.OrderUpdates...)
	e.TradeUpdates = append(e.TradeUpdates, other.TradeUpdates...)
	e.Fills = append(e.Fills, other.Fills...)
	e.Tape = append(e.Tape, other.Tape...)
}
