package room

import (
	"github.com/shopspring/decimal"

	"pitexchange/internal/book"
	"pitexchange/internal/protocol"
)

// CashSymbol is the synthetic instrument that carries a player's cash
// balance inside the same position map as every tradable instrument
// (spec.md §3 Room.positions: "special symbol CASH tracks cash with size
// in price-units and average_price fixed at 1").
const CashSymbol = "CASH"

// Position is one player's size and cost-basis in a single symbol
// (spec.md §3 Room.positions entry shape).
type Position struct {
	Size        decimal.Decimal
	AveragePrice decimal.Decimal
}

// Player is one seat at a Room's table: a connection (Sink) and a
// position row per instrument the room lists, including the synthetic
// CASH row. average_price is strengthened to decimal.Decimal rather than
// float64 so the VWAP recurrence of spec.md §4.1 is exact under repeated
// fills (SPEC_FULL.md §3 Open Question).
type Player struct {
	Name      string
	Sink      protocol.Sink
	Positions map[string]Position
}

func newPlayer(name string, sink protocol.Sink) *Player {
	if sink == nil {
		sink = protocol.Discard
	}
	return &Player{
		Name:      name,
		Sink:      sink,
		Positions: map[string]Position{},
	}
}

// initPosition zero-initializes a new instrument's row without disturbing
// an existing one (spec.md §4.1 init_underlying/new_option: "zero
// position row for every player").
func (p *Player) initPosition(symbol string) {
	if _, ok := p.Positions[symbol]; ok {
		return
	}
	p.Positions[symbol] = Position{Size: decimal.Zero, AveragePrice: decimal.Zero}
}

// initCash seeds the CASH row at game start (spec.md §4.1 start_game:
// "Initialize every player's positions with CASH: {size:0,
// average_price:1}").
func (p *Player) initCash() {
	p.Positions[CashSymbol] = Position{Size: decimal.Zero, AveragePrice: decimal.NewFromInt(1)}
}

func (p *Player) cash() decimal.Decimal {
	return p.Positions[CashSymbol].Size
}

// applyFill folds one book.Fill into the player's CASH and instrument
// position rows using the literal recurrence of spec.md §4.1
// update_positions: cash moves by price*size in the fill's direction, and
// the instrument's new size/average_price is the weighted-average formula
// evaluated at the post-fill size, falling back to zero average when that
// size is exactly zero.
func (p *Player) applyFill(f book.Fill) {
	size := decimal.NewFromInt(f.Size)
	price := decimal.NewFromInt(f.Price)
	notional := price.Mul(size)

	cash := p.Positions[CashSymbol]
	if f.Direction == book.Bid {
		cash.Size = cash.Size.Sub(notional)
	} else {
		cash.Size = cash.Size.Add(notional)
	}
	cash.AveragePrice = decimal.NewFromInt(1)
	p.Positions[CashSymbol] = cash

	pos := p.Positions[f.Instrument]
	var newSize decimal.Decimal
	if f.Direction == book.Bid {
		newSize = pos.Size.Add(size)
	} else {
		newSize = pos.Size.Sub(size)
	}

	newAvg := decimal.Zero
	if !newSize.IsZero() {
		weighted := pos.Size.Mul(pos.AveragePrice)
		if f.Direction == book.Bid {
			weighted = weighted.Add(notional)
		} else {
			weighted = weighted.Sub(notional)
		}
		newAvg = weighted.Div(newSize)
	}

	p.Positions[f.Instrument] = Position{Size: newSize, AveragePrice: newAvg}
}

// positionsUpdate builds the owner-private snapshot sent after any fill
// that touched this player's account (spec.md §6 outbound PositionUpdate).
func (p *Player) positionsUpdate(room string) protocol.PositionsUpdate {
	msg := protocol.NewPositionsUpdate()
	msg.Room = room
	for symbol, pos := range p.Positions {
		msg.Positions[symbol] = protocol.Position{
			Size:         pos.Size.String(),
			AveragePrice: pos.AveragePrice.String(),
		}
	}
	return msg
}
