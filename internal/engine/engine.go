// Package engine is the single-writer command dispatcher for the whole
// exchange (spec.md §4.7, §5 Concurrency & Resource Model). Every mutating
// command — join, start, order, cancel, reveal, settle — funnels through
// one buffered channel and is processed by one goroutine in submission
// order, so no room, book, or player needs its own lock: the total order
// over the channel is the total order over mutations. This generalizes
// the teacher's tomb.v2-supervised worker loop (formerly
// internal/net/server.go and internal/worker.go) from a raw TCP session
// pump into a typed command dispatcher.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"

	"pitexchange/internal/lobby"
	"pitexchange/internal/metrics"
	"pitexchange/internal/protocol"
)

// job pairs an inbound Command with the channel its result is delivered
// on, so Dispatch can block the caller until the command has actually
// been applied without giving the caller a reference to engine state.
type job struct {
	cmd    protocol.Command
	result chan Result
}

// Result is what a dispatched command resolves to: either a user-facing
// Info string (validation/conflict outcomes, not Go errors) or a true Go
// error for invariant violations the caller cannot usefully recover from
// (spec.md §7 Error Handling Design).
type Result struct {
	Info protocol.Info
	Err  error
}

// Engine owns the Lobby and pumps every Command through a single
// goroutine (Run). Construct with New and start exactly one Run per
// process.
type Engine struct {
	Lobby *lobby.Lobby

	jobs chan job
	log  zerolog.Logger
}

// New wires an Engine around a fresh Lobby that deals cardsPerPile cards
// per pile to every room it creates.
func New(cardsPerPile int, log zerolog.Logger) *Engine {
	return &Engine{
		Lobby: lobby.New(cardsPerPile),
		jobs:  make(chan job, 256),
		log:   log.With().Str("component", "engine").Logger(),
	}
}

// Dispatch enqueues cmd and blocks until Run has processed it, returning
// its Result. Safe to call from any number of goroutines (typically one
// per connected player).
func (e *Engine) Dispatch(ctx context.Context, cmd protocol.Command) Result {
	j := job{cmd: cmd, result: make(chan Result, 1)}
	select {
	case e.jobs <- j:
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
	select {
	case r := <-j.result:
		return r
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

// Run drains the job queue until ctx is cancelled, handling exactly one
// command at a time. An error from a Lobby or Room method is turned into
// an Info result; an unrecognized command is logged and returned as an Err
// result. Either way the loop goes on to the next command.
func (e *Engine) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)
	t.Go(func() error {
		for {
			select {
			case j := <-e.jobs:
				j.result <- e.handle(j.cmd)
			case <-ctx.Done():
				return nil
			}
		}
	})
	<-t.Dying()
	return t.Err()
}

func (e *Engine) handle(cmd protocol.Command) Result {
	metrics.CommandsDispatched.WithLabelValues(commandLabel(cmd)).Inc()
	switch c := cmd.(type) {
	case protocol.CreateRoom:
		return e.handleCreateRoom(c)
	case protocol.DeleteRoom:
		return e.handleDeleteRoom(c)
	case protocol.NewPlayer:
		return e.handleNewPlayer(c)
	case protocol.DeletePlayer:
		return e.handleDeletePlayer(c)
	case protocol.JoinRoom:
		return e.handleJoinRoom(c)
	case protocol.LeaveRoom:
		return e.handleLeaveRoom(c)
	case protocol.StartGame:
		return e.handleStartGame(c)
	case protocol.NewInstrument:
		return e.handleNewInstrument(c)
	case protocol.RevealCard:
		return e.handleRevealCard(c)
	case protocol.SettleGame:
		return e.handleSettleGame(c)
	case protocol.NewOrder:
		return e.handleNewOrder(c)
	case protocol.CancelOrder:
		return e.handleCancelOrder(c)
	default:
		err := fmt.Errorf("engine: unrecognized command %T", cmd)
		e.log.Error().Err(err).Msg("dropping unrecognized command")
		return Result{Err: err}
	}
}

func info(correlationID, status string) Result {
	return Result{Info: protocol.NewInfo(status, correlationID)}
}

// commandLabel names cmd's concrete type for the commands_dispatched_total
// metric without forcing every Command to carry its own label string.
func commandLabel(cmd protocol.Command) string {
	switch cmd.(type) {
	case protocol.CreateRoom:
		return "create_room"
	case protocol.DeleteRoom:
		return "delete_room"
	case protocol.NewPlayer:
		return "new_player"
	case protocol.DeletePlayer:
		return "delete_player"
	case protocol.JoinRoom:
		return "join_room"
	case protocol.LeaveRoom:
		return "leave_room"
	case protocol.StartGame:
		return "start_game"
	case protocol.NewInstrument:
		return "new_instrument"
	case protocol.RevealCard:
		return "reveal_card"
	case protocol.SettleGame:
		return "settle_game"
	case protocol.NewOrder:
		return "new_order"
	case protocol.CancelOrder:
		return "cancel_order"
	default:
		return "unknown"
	}
}
