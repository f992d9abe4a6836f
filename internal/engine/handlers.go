package engine

import (
	"pitexchange/internal/cards"
	"pitexchange/internal/protocol"
)

// cardFromView maps the wire (rank, suit-letter) pair onto an
// internal/cards.Card, mapping an unrecognized suit letter to a suit no
// dealt card has so a malformed RevealCard simply fails to match any of
// the player's cards rather than panicking (spec.md §9 Open Question #2).
func cardFromView(v protocol.CardView) cards.Card {
	var suit cards.Suit
	switch v.Suit {
	case "S":
		suit = cards.Spades
	case "H":
		suit = cards.Hearts
	case "C":
		suit = cards.Clubs
	case "D":
		suit = cards.Diamonds
	default:
		suit = cards.Diamonds + 1
	}
	return cards.Card{Rank: v.Rank, Suit: suit}
}

func (e *Engine) handleCreateRoom(c protocol.CreateRoom) Result {
	if _, err := e.Lobby.CreateRoom(c.Room); err != nil {
		return info(c.CorrelationID, err.Error())
	}
	return info(c.CorrelationID, "created "+c.Room)
}

func (e *Engine) handleDeleteRoom(c protocol.DeleteRoom) Result {
	if err := e.Lobby.DeleteRoom(c.Room); err != nil {
		return info(c.CorrelationID, err.Error())
	}
	return info(c.CorrelationID, "deleted "+c.Room)
}

func (e *Engine) handleNewPlayer(c protocol.NewPlayer) Result {
	if err := e.Lobby.NewPlayer(c.Player, c.Password); err != nil {
		return info(c.CorrelationID, err.Error())
	}
	return info(c.CorrelationID, "registered "+c.Player)
}

func (e *Engine) handleDeletePlayer(c protocol.DeletePlayer) Result {
	if err := e.Lobby.DeletePlayer(c.Player); err != nil {
		return info(c.CorrelationID, err.Error())
	}
	return info(c.CorrelationID, "removed "+c.Player)
}

func (e *Engine) handleJoinRoom(c protocol.JoinRoom) Result {
	sink := c.Sink
	if sink == nil {
		sink = protocol.Discard
	}
	if _, err := e.Lobby.JoinRoom(c.Player, c.Room, sink); err != nil {
		return info(c.CorrelationID, err.Error())
	}
	return info(c.CorrelationID, "joined "+c.Room)
}

func (e *Engine) handleLeaveRoom(c protocol.LeaveRoom) Result {
	if err := e.Lobby.LeaveRoom(c.Player); err != nil {
		return info(c.CorrelationID, err.Error())
	}
	return info(c.CorrelationID, "left room")
}

func (e *Engine) handleStartGame(c protocol.StartGame) Result {
	r, err := e.Lobby.Room(c.Room)
	if err != nil {
		return info(c.CorrelationID, err.Error())
	}
	if err := r.StartGame(); err != nil {
		return info(c.CorrelationID, err.Error())
	}
	return info(c.CorrelationID, "started")
}

// handleNewInstrument dispatches new_option for Type in {CALL, PUT}; the
// spec's inbound table also allows Type=="underlying", but Room exposes
// no public operation to hand-create one (init_underlying runs
// automatically at start_game), so that request is rejected with an Info
// instead.
func (e *Engine) handleNewInstrument(c protocol.NewInstrument) Result {
	r, err := e.Lobby.Room(c.Room)
	if err != nil {
		return info(c.CorrelationID, err.Error())
	}
	if c.OptionType != "CALL" && c.OptionType != "PUT" {
		return info(c.CorrelationID, "underlying instruments are created automatically at start_game")
	}
	var strike int64
	if c.Strike != nil {
		strike = *c.Strike
	}
	if err := r.NewOption(c.Name, c.OptionType, strike); err != nil {
		return info(c.CorrelationID, err.Error())
	}
	return info(c.CorrelationID, "registered instrument")
}

func (e *Engine) handleRevealCard(c protocol.RevealCard) Result {
	r, err := e.Lobby.Room(c.Room)
	if err != nil {
		return info(c.CorrelationID, err.Error())
	}
	card := cardFromView(c.Card)
	if err := r.RevealCard(c.Player, card); err != nil {
		return info(c.CorrelationID, err.Error())
	}
	return info(c.CorrelationID, "revealed "+card.String())
}

func (e *Engine) handleSettleGame(c protocol.SettleGame) Result {
	r, err := e.Lobby.Room(c.Room)
	if err != nil {
		return info(c.CorrelationID, err.Error())
	}
	if err := r.SettleGame(); err != nil {
		return info(c.CorrelationID, err.Error())
	}
	return info(c.CorrelationID, "settled")
}

func (e *Engine) handleNewOrder(c protocol.NewOrder) Result {
	r, err := e.Lobby.Room(c.Room)
	if err != nil {
		return info(c.CorrelationID, err.Error())
	}
	if _, err := r.NewOrder(c.Player, c.Instrument, c.Direction, c.Price, c.Size); err != nil {
		return info(c.CorrelationID, err.Error())
	}
	return info(c.CorrelationID, "order accepted")
}

func (e *Engine) handleCancelOrder(c protocol.CancelOrder) Result {
	r, err := e.Lobby.Room(c.Room)
	if err != nil {
		return info(c.CorrelationID, err.Error())
	}
	if err := r.CancelOrder(c.Player, c.Instrument, c.Direction, c.Price); err != nil {
		return info(c.CorrelationID, err.Error())
	}
	return info(c.CorrelationID, "order cancelled")
}
