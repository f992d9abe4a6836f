// Package metrics exposes Prometheus counters and gauges for the
// exchange, grounded on the MustRegister-at-init and promhttp.Handler
// pattern in other_examples' autovant execution service.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	CommandsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pit_commands_dispatched_total",
			Help: "Commands processed by the engine, by command type.",
		},
		[]string{"command"},
	)

	OrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pit_orders_placed_total",
			Help: "Orders accepted into an instrument's book.",
		},
		[]string{"room", "instrument"},
	)

	TradesExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pit_trades_executed_total",
			Help: "Fills produced by the matching engine.",
		},
		[]string{"room", "instrument"},
	)

	ActiveRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pit_active_rooms",
			Help: "Rooms currently open in the lobby.",
		},
	)

	ConnectedPlayers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pit_connected_players",
			Help: "Player connections currently attached to the transport.",
		},
	)
)

func init() {
	prometheus.MustRegister(CommandsDispatched, OrdersPlaced, TradesExecuted, ActiveRooms, ConnectedPlayers)
}

// Serve runs the /metrics exposition endpoint until ctx is cancelled.
func Serve(ctx context.Context, address string, port int, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf("%s:%d", address, port), Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	log.Info().Str("address", srv.Addr).Msg("metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics: serve: %w", err)
	}
	return nil
}
