package book

// PriceLevel is the FIFO queue of all resting orders at a single price on
// one side of the book (spec.md §3, §4.3). A level's Direction always
// matches the side array it lives in; NoDirection only appears
// momentarily, between its queue draining to empty and the OrderBook
// trimming the now-dead slot out of the array.
type PriceLevel struct {
	Price     int64
	Direction Direction
	Size      int64
	queue     []*Order
}

func newPriceLevel(price int64) *PriceLevel {
	return &PriceLevel{Price: price, Direction: NoDirection}
}

// rest appends an order to the back of the queue without matching. Used
// both for fresh same-side placement and for the residual of a
// price-level flip (§4.3).
func (lvl *PriceLevel) rest(o *Order, ev *Events) {
	lvl.queue = append(lvl.queue, o)
	lvl.Size += o.RemainingSize
	lvl.Direction = o.Direction
}

// match drains the level's queue against the incoming order o, oldest
// maker order first, generating maker and taker fill events for every
// segment consumed (spec.md §4.3 "Fill semantics"). It stops when either
// the queue empties or o is fully filled; it never flips the level's
// side — that is the OrderBook's job once it observes an emptied level
// whose price equals the incoming order's own price.
func (lvl *PriceLevel) match(o *Order, ev *Events) {
	for len(lvl.queue) > 0 && o.RemainingSize > 0 {
		maker := lvl.queue[0]
		segment := maker.RemainingSize
		if o.RemainingSize < segment {
			segment = o.RemainingSize
		}

		_ = maker.fill(segment)
		ev.appendOrderUpdate(maker)
		ev.appendTrade(maker, lvl.Price, segment)
		ev.appendFill(maker, lvl.Price, segment)

		_ = o.fill(segment)
		ev.appendOrderUpdate(o)
		ev.appendTrade(o, lvl.Price, segment)
		ev.appendFill(o, lvl.Price, segment)
		ev.appendTape(o.Instrument, lvl.Price, segment, o.Direction)

		lvl.Size -= segment
		if maker.RemainingSize == 0 {
			lvl.queue = lvl.queue[1:]
		}
	}
	if len(lvl.queue) == 0 {
		lvl.Direction = NoDirection
	}
}

// removePlayer cancels every resting order belonging to player at this
// level, in queue order, emitting a cancellation OrderUpdate for each.
func (lvl *PriceLevel) removePlayer(player string, ev *Events) {
	lvl.removeOrder(func(o *Order) bool { return o.Player == player }, ev)
}

func (lvl *PriceLevel) removeOrder(match func(*Order) bool, ev *Events) {
	kept := lvl.queue[:0]
	for _, o := range lvl.queue {
		if match(o) {
			lvl.Size -= o.RemainingSize
			o.cancel()
			ev.appendOrderUpdate(o)
			continue
		}
		kept = append(kept, o)
	}
	lvl.queue = kept
	if len(lvl.queue) == 0 {
		lvl.Direction = NoDirection
	}
}
