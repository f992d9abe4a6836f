// Package protocol defines the inbound command and outbound message
// shapes that cross the boundary between a player's connection and the
// engine (spec.md §6). The wire codec and transport are out of scope;
// these types are plain Go values meant to be marshaled to and from JSON
// by whatever transport is in front of the engine.
package protocol

// Command is the tagged union of everything a player connection can ask
// the engine to do. Each concrete type below implements it as a marker;
// the engine dispatches on a type switch (spec.md §4.7).
type Command interface {
	commandFrom() string
}

// base carries the wire type discriminator every concrete Command sets in
// its zero-argument-free literal, the player identity, and the
// correlation id the caller can use to match a command to the
// OrderUpdate/Info it provoked. Type mirrors Message's kind field so a
// transport can dispatch on the same top-level "type" key in both
// directions.
type base struct {
	Type          string `json:"type"`
	Player        string `json:"player"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func (b base) commandFrom() string { return b.Player }

// CreateRoom asks the lobby to create a new, empty room named Room
// (spec.md §6 inbound NewRoom).
type CreateRoom struct {
	base
	Room string `json:"room"`
}

// DeleteRoom asks the lobby to remove a room that has not started
// (spec.md §6 inbound DeleteRoom).
type DeleteRoom struct {
	base
	Room string `json:"room"`
}

// NewPlayer registers a player identity with the lobby, storing Password
// for later re-login comparison (spec.md §6 inbound NewPlayer;
// SPEC_FULL.md §4.6).
type NewPlayer struct {
	base
	Password string `json:"password"`
}

// DeletePlayer removes a registered player identity (spec.md §6 inbound
// DeletePlayer).
type DeletePlayer struct {
	base
}

// JoinRoom seats the caller in an existing room, or — if the room has
// already started and the caller was previously seated — reconnects them
// and replays their current state (spec.md §4.1 join, §6 inbound
// JoinRoom). Sink is attached by the transport after unmarshaling the
// wire payload — it is never itself wire-serialized.
type JoinRoom struct {
	base
	Room string `json:"room"`
	Sink Sink   `json:"-"`
}

// LeaveRoom removes the caller from a room that has not started, or is a
// no-op acknowledgement (the player is retained for settlement) if the
// room has already started (spec.md §4.1 leave).
type LeaveRoom struct {
	base
	Room string `json:"room"`
}

// StartGame deals each seated player's two piles and opens the room's
// books for trading.
type StartGame struct {
	base
	Room string `json:"room"`
}

// NewInstrument registers an option instrument on an existing underlying
// pile (spec.md §4.1 new_option, §6 inbound NewInstrument). OptionType is
// "CALL" or "PUT"; Name is the underlying pile ("A" or "B") the option is
// struck on. The spec's inbound table also allows OptionType=="underlying",
// but Room exposes no public operation to hand-create an underlying —
// those three instruments (A, B, and the spread) are created automatically
// by init_underlying when start_game runs, so that value is rejected here
// with an Info, not dispatched to a Room method.
type NewInstrument struct {
	base
	Room       string `json:"room"`
	OptionType string `json:"option_type"` // "CALL", "PUT", or "underlying"
	Name       string `json:"name"`
	Strike     *int64 `json:"strike,omitempty"`
}

// RevealCard flips a specific card the caller holds face up, adding it to
// their public revealed pile if it is one of their dealt cards (spec.md
// §4.1 reveal_card). A card the player does not hold is silently ignored,
// per spec.md §9 Open Question #2.
type RevealCard struct {
	base
	Room string   `json:"room"`
	Card CardView `json:"card"`
}

// SettleGame ends the round: every instrument pays out against the final
// pile values and positions are closed.
type SettleGame struct {
	base
	Room string `json:"room"`
}

// NewOrder places a limit order in one of the room's instruments.
type NewOrder struct {
	base
	Room       string `json:"room"`
	Instrument string `json:"instrument"`
	Direction  string `json:"direction"` // "bid" or "ask"
	Price      int64  `json:"price"`
	Size       int64  `json:"size"`
}

// CancelOrder cancels every resting order the caller has at (price,
// direction) in one instrument (spec.md §4.1 cancel_order, §4.2 Cancel
// algorithm — cancellation is keyed by price level, not by order id).
type CancelOrder struct {
	base
	Room       string `json:"room"`
	Instrument string `json:"instrument"`
	Price      int64  `json:"price"`
	Direction  string `json:"direction"` // "bid" or "ask"
}
