package book

// OrderBook is a single instrument's price-time priority limit order book:
// a pair of sparse, index-at-top arrays (one per side) of *PriceLevel,
// where a nil slot means "no resting level at that price" (spec.md §3,
// §4.2). Index 0 of Bids is always the best (highest) bid; index 0 of
// Asks is always the best (lowest) ask. Moving one tick away from the
// best costs one array slot, so placing or matching at or near the top of
// book is O(1) regardless of how deep the book is.
type OrderBook struct {
	Symbol   string
	TickSize int64

	Bids []*PriceLevel
	Asks []*PriceLevel

	bestBid    int64
	hasBestBid bool
	bestAsk    int64
	hasBestAsk bool

	nextOrderID int64
}

// LevelSnapshot is a read-only (price, size) pair used for quote-depth
// reads (top_n), never a live reference into the book.
type LevelSnapshot struct {
	Price int64
	Size  int64
}

// NewOrderBook constructs an empty book for symbol with the given tick
// size (the minimum price increment between adjacent levels).
func NewOrderBook(symbol string, tickSize int64) *OrderBook {
	return &OrderBook{
		Symbol:   symbol,
		TickSize: tickSize,
	}
}

func opposite(dir Direction) Direction {
	if dir == Bid {
		return Ask
	}
	return Bid
}

func (b *OrderBook) levelsFor(dir Direction) *[]*PriceLevel {
	if dir == Ask {
		return &b.Asks
	}
	return &b.Bids
}

func (b *OrderBook) hasBest(dir Direction) bool {
	if dir == Ask {
		return b.hasBestAsk
	}
	return b.hasBestBid
}

func (b *OrderBook) best(dir Direction) int64 {
	if dir == Ask {
		return b.bestAsk
	}
	return b.bestBid
}

func (b *OrderBook) setBest(dir Direction, price int64) {
	if dir == Ask {
		b.bestAsk, b.hasBestAsk = price, true
	} else {
		b.bestBid, b.hasBestBid = price, true
	}
}

func (b *OrderBook) clearBest(dir Direction) {
	if dir == Ask {
		b.hasBestAsk = false
	} else {
		b.hasBestBid = false
	}
}

// indexFor is the sparse-array slot a price maps to relative to the
// current best of that side: asks are indexed by distance above the best
// ask, bids by distance below the best bid, both in whole ticks
// (original_source/structures/book.py's i = int((price - ba) / tick) and
// i = int((bb - price) / tick)).
func (b *OrderBook) indexFor(dir Direction, price int64) int64 {
	if dir == Ask {
		return (price - b.bestAsk) / b.TickSize
	}
	return (b.bestBid - price) / b.TickSize
}

// crosses reports whether an incoming order of dir at price would match
// resting liquidity on the opposite side (spec.md §4.2: ask crosses when
// price <= best bid, bid crosses when price >= best ask).
func (b *OrderBook) crosses(dir Direction, price int64) bool {
	opp := opposite(dir)
	if !b.hasBest(opp) {
		return false
	}
	if dir == Ask {
		return price <= b.bestBid
	}
	return price >= b.bestAsk
}

// stopWalk reports whether the crossing walk has gone past every level
// that could still match: an ask stops once a bid level's price falls
// below the ask's limit, a bid stops once an ask level's price rises
// above the bid's limit.
func stopWalk(dir Direction, levelPrice, orderPrice int64) bool {
	if dir == Ask {
		return levelPrice < orderPrice
	}
	return levelPrice > orderPrice
}

// PlaceOrder creates a new limit order and, if it crosses, matches it
// against resting liquidity before resting any residual (spec.md §4.2
// Place order). Matches always execute at the resting (maker) order's
// price, giving the taker price improvement whenever its limit was more
// aggressive than the level it hit.
func (b *OrderBook) PlaceOrder(player string, dir Direction, price, size int64) (Events, int64, error) {
	var ev Events
	if price <= 0 {
		return ev, 0, ErrInvalidPrice
	}
	if size <= 0 {
		return ev, 0, ErrInvalidSize
	}
	if dir != Bid && dir != Ask {
		return ev, 0, ErrInvalidDirection
	}

	b.nextOrderID++
	o := newOrder(b.nextOrderID, player, b.Symbol, dir, price, size)
	ev.appendOrderUpdate(o)

	placed := false
	if b.crosses(dir, price) {
		placed = b.walk(opposite(dir), o, &ev)
	}
	if !placed && o.RemainingSize > 0 {
		b.placeResting(dir, o, &ev)
	}
	return ev, o.ID, nil
}

// walk sweeps the opposite side from the top of book outward, matching o
// against each crossing level in turn. It returns true if o's residual
// was already rested by a price-level flip, so the caller must not rest
// it again.
func (b *OrderBook) walk(oppSide Direction, o *Order, ev *Events) bool {
	levelsPtr := b.levelsFor(oppSide)
	var emptied []int64
	placed := false

	for i := 0; i < len(*levelsPtr); i++ {
		lvl := (*levelsPtr)[i]
		if lvl == nil {
			continue
		}
		if stopWalk(o.Direction, lvl.Price, o.Price) {
			break
		}

		lvl.match(o, ev)
		levelEmpty := lvl.Size == 0
		if levelEmpty {
			emptied = append(emptied, lvl.Price)
		}
		if o.RemainingSize == 0 {
			break
		}
		if levelEmpty && o.Price == lvl.Price {
			// Price-level flip (spec.md §4.3): o exactly exhausted a
			// level at its own limit price. The drained level belongs
			// to the opposite side's array and gets trimmed below like
			// any other emptied level; o's residual rests as a fresh
			// level on its own side at the same price.
			b.placeResting(o.Direction, o, ev)
			placed = true
			break
		}
	}

	for _, price := range emptied {
		b.deleteLevel(oppSide, price)
	}
	return placed
}

// placeResting inserts o into the side-dir array at its own price,
// creating a new level, growing the array, or appending to an existing
// level's queue as needed (spec.md §4.2 non-crossing placement / §4.4).
func (b *OrderBook) placeResting(dir Direction, o *Order, ev *Events) {
	levelsPtr := b.levelsFor(dir)

	if !b.hasBest(dir) {
		lvl := newPriceLevel(o.Price)
		lvl.rest(o, ev)
		*levelsPtr = []*PriceLevel{lvl}
		b.setBest(dir, o.Price)
		return
	}

	i := b.indexFor(dir, o.Price)
	switch {
	case i < 0:
		gap := int(-i)
		grown := make([]*PriceLevel, gap+len(*levelsPtr))
		copy(grown[gap:], *levelsPtr)
		lvl := newPriceLevel(o.Price)
		lvl.rest(o, ev)
		grown[0] = lvl
		*levelsPtr = grown
		b.setBest(dir, o.Price)
	case i < int64(len(*levelsPtr)):
		if (*levelsPtr)[i] == nil {
			lvl := newPriceLevel(o.Price)
			lvl.rest(o, ev)
			(*levelsPtr)[i] = lvl
		} else {
			(*levelsPtr)[i].rest(o, ev)
		}
	default:
		grown := append(*levelsPtr, make([]*PriceLevel, i-int64(len(*levelsPtr))+1)...)
		lvl := newPriceLevel(o.Price)
		lvl.rest(o, ev)
		grown[i] = lvl
		*levelsPtr = grown
	}
}

// deleteLevel trims a fully-drained level out of the side-dir array
// (spec.md §4.4): removing index 0 also drops any leading run of nil
// gaps and advances best to the new front; removing the last index also
// drops any trailing run of nil gaps; anything interior just becomes nil.
func (b *OrderBook) deleteLevel(dir Direction, price int64) {
	levelsPtr := b.levelsFor(dir)
	if !b.hasBest(dir) || len(*levelsPtr) == 0 {
		return
	}
	i := b.indexFor(dir, price)
	if i < 0 || i >= int64(len(*levelsPtr)) {
		return
	}

	switch {
	case i == 0:
		*levelsPtr = (*levelsPtr)[1:]
		for len(*levelsPtr) > 0 && (*levelsPtr)[0] == nil {
			*levelsPtr = (*levelsPtr)[1:]
		}
		if len(*levelsPtr) == 0 {
			b.clearBest(dir)
		} else {
			b.setBest(dir, (*levelsPtr)[0].Price)
		}
	case i == int64(len(*levelsPtr))-1:
		*levelsPtr = (*levelsPtr)[:len(*levelsPtr)-1]
		for len(*levelsPtr) > 0 && (*levelsPtr)[len(*levelsPtr)-1] == nil {
			*levelsPtr = (*levelsPtr)[:len(*levelsPtr)-1]
		}
	default:
		(*levelsPtr)[i] = nil
	}
}

// Cancel removes every order player has resting at (direction, price),
// trimming the level if that drains it (spec.md §4.2 Cancel order: "compute
// index i as above; if the slot is empty, the cancel is a no-op").  An
// unknown price/direction slot and a slot with none of the player's orders
// in it are both treated as the no-op case, matching the spec's silence on
// distinguishing them.
func (b *OrderBook) Cancel(player string, dir Direction, price int64) (Events, error) {
	var ev Events
	if dir != Bid && dir != Ask {
		return ev, ErrInvalidDirection
	}
	if !b.hasBest(dir) {
		return ev, nil
	}
	levelsPtr := b.levelsFor(dir)
	i := b.indexFor(dir, price)
	if i < 0 || i >= int64(len(*levelsPtr)) || (*levelsPtr)[i] == nil {
		return ev, nil
	}

	lvl := (*levelsPtr)[i]
	lvl.removePlayer(player, &ev)
	if lvl.Size == 0 {
		b.deleteLevel(dir, price)
	}
	return ev, nil
}

// CancelPlayer cancels every order a player has resting in this book.
// Room.Leave does not call it: a player who leaves a started room keeps
// their resting orders.
func (b *OrderBook) CancelPlayer(player string) Events {
	var ev Events
	for _, dir := range []Direction{Bid, Ask} {
		levelsPtr := b.levelsFor(dir)
		var emptied []int64
		for _, lvl := range *levelsPtr {
			if lvl == nil {
				continue
			}
			before := len(lvl.queue)
			lvl.removePlayer(player, &ev)
			if before > 0 && lvl.Size == 0 {
				emptied = append(emptied, lvl.Price)
			}
		}
		for _, price := range emptied {
			b.deleteLevel(dir, price)
		}
	}
	return ev
}

// OrdersForPlayer returns a snapshot of every order player still has
// resting in this book, best-price-first on each side, for replaying a
// rejoining player's own open orders (spec.md §4.1 join "rejoin").
func (b *OrderBook) OrdersForPlayer(player string) []OrderUpdate {
	var out []OrderUpdate
	for _, side := range [][]*PriceLevel{b.Bids, b.Asks} {
		for _, lvl := range side {
			if lvl == nil {
				continue
			}
			for _, o := range lvl.queue {
				if o.Player == player {
					out = append(out, o.snapshot())
				}
			}
		}
	}
	return out
}

// TopN returns up to n price levels from each side, best first, as a
// read-only quote-depth snapshot (supplemented from
// original_source/structures/book.py's top_n).
func (b *OrderBook) TopN(n int) (bids, asks []LevelSnapshot) {
	bids = snapshotSide(b.Bids, n)
	asks = snapshotSide(b.Asks, n)
	return bids, asks
}

func snapshotSide(levels []*PriceLevel, n int) []LevelSnapshot {
	out := make([]LevelSnapshot, 0, n)
	for _, lvl := range levels {
		if len(out) == n {
			break
		}
		if lvl == nil {
			continue
		}
		out = append(out, LevelSnapshot{Price: lvl.Price, Size: lvl.Size})
	}
	return out
}
