// Package tcpjson is the reference transport for the exchange: a
// newline-delimited JSON Command/Message protocol over plain TCP (spec.md
// §1 "transport ... is an external collaborator", SPEC_FULL.md §6).
// Grounded on saiputravu-Exchange/internal/net/server.go's tomb.v2-supervised
// accept loop and its write-and-evict-on-send-failure idiom for client
// sessions, adapted from that file's short-lived read-one-message worker
// pool to one long-lived reader goroutine per connection — this protocol is
// a persistent duplex command/event stream rather than a single
// request/response exchange, so a connection's goroutine owns that
// connection for its whole lifetime instead of re-queuing itself as a task.
package tcpjson

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"

	"pitexchange/internal/engine"
	"pitexchange/internal/metrics"
	"pitexchange/internal/protocol"
)

const writeTimeout = 5 * time.Second

// Server accepts TCP connections and pumps each one's command stream into
// an Engine, one goroutine per connection (spec.md §5: a command reaches
// the engine exactly as one Dispatch call; the engine itself serializes
// everything from there).
type Server struct {
	address string
	port    int
	engine  *engine.Engine
	log     zerolog.Logger

	addrCh chan string
}

// New wires a Server around an already-constructed Engine; call Run to
// start accepting connections.
func New(address string, port int, eng *engine.Engine, log zerolog.Logger) *Server {
	return &Server{
		address: address,
		port:    port,
		engine:  eng,
		log:     log.With().Str("component", "tcpjson").Logger(),
		addrCh:  make(chan string, 1),
	}
}

// Addr blocks until Run has bound its listener and returns its address,
// useful when port 0 was requested and the caller needs to know which
// ephemeral port was actually chosen (tests; operators who let the OS
// pick a port).
func (s *Server) Addr(ctx context.Context) (string, error) {
	select {
	case addr := <-s.addrCh:
		s.addrCh <- addr // put it back so a second caller also gets it
		return addr, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Run listens until ctx is cancelled, spawning one supervised goroutine per
// accepted connection (mirrors the teacher's tomb.WithContext-wrapped
// accept loop).
func (s *Server) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("tcpjson: listen: %w", err)
	}
	t.Go(func() error {
		<-t.Dying()
		return listener.Close()
	})

	s.addrCh <- listener.Addr().String()
	s.log.Info().Str("address", listener.Addr().String()).Msg("listening for player connections")

	t.Go(func() error {
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-t.Dying():
					return nil
				default:
					s.log.Error().Err(err).Msg("error accepting connection")
					continue
				}
			}
			s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("player connected")
			t.Go(func() error {
				s.handleConnection(ctx, conn)
				return nil
			})
		}
	})

	<-t.Dying()
	return t.Err()
}

// connSink implements protocol.Sink by writing one JSON line per message.
// A write failure logs and goes quiet rather than evicting the player from
// any room — per spec.md §5, a room never evicts on send failure, only an
// explicit leave_room command does (tcpjson just stops being able to
// deliver to a dead socket; the lobby's bookkeeping is untouched).
type connSink struct {
	mu   sync.Mutex
	conn net.Conn
	log  zerolog.Logger
	dead bool
}

func (c *connSink) Send(msg protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead {
		return nil
	}
	data, err := protocol.EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("tcpjson: encode: %w", err)
	}
	data = append(data, '\n')
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := c.conn.Write(data); err != nil {
		c.dead = true
		c.log.Warn().Err(err).Msg("write failed, marking sink dead")
		return fmt.Errorf("tcpjson: write: %w", err)
	}
	return nil
}

// handleConnection owns conn for its entire lifetime: it decodes one JSON
// command per line, dispatches it to the engine, and writes back the
// resulting Info. The connection's player name is the one named by the
// most recent join_room command decoded on it. tcpjson performs no
// authentication of its own, matching spec.md §1's choice to leave
// authentication to an external collaborator.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sink := &connSink{conn: conn, log: s.log}
	var player string

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		cmd, err := protocol.DecodeCommand(line, sink)
		if err != nil {
			s.log.Error().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("malformed command")
			sink.Send(protocol.NewInfo(err.Error(), ""))
			continue
		}
		if j, ok := cmd.(protocol.JoinRoom); ok {
			player = j.Player
		}

		result := s.engine.Dispatch(ctx, cmd)
		if result.Err != nil {
			s.log.Error().Err(result.Err).Msg("engine error")
			continue
		}
		sink.Send(result.Info)
	}

	if err := scanner.Err(); err != nil {
		s.log.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("connection read error")
	}
	if player != "" {
		s.engine.Lobby.Disconnect(player)
		metrics.ConnectedPlayers.Set(float64(len(s.engine.Lobby.OnlinePlayers())))
	}
	s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("player disconnected")
}
