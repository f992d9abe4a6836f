// Package lobby implements the directory of open rooms and connected
// players that sits in front of the per-room engines (spec.md §4.6,
// expanded from the component table; grounded on
// original_source/backend/server.py's Lobby/Player classes). Room names
// and player names are kept in sorted order via github.com/tidwall/btree
// so a lobby listing is always produced in a stable, cheap-to-paginate
// order rather than an arbitrary map iteration.
package lobby

import (
	"fmt"
	"sync"

	"github.com/tidwall/btree"

	"pitexchange/internal/metrics"
	"pitexchange/internal/protocol"
	"pitexchange/internal/room"
)

var (
	ErrRoomExists       = fmt.Errorf("lobby: room already exists")
	ErrRoomStarted      = fmt.Errorf("lobby: room already started")
	ErrNoSuchRoom       = fmt.Errorf("lobby: no such room")
	ErrPlayerExists     = fmt.Errorf("lobby: player already registered")
	ErrNoSuchPlayer     = fmt.Errorf("lobby: no such player")
	ErrWrongPassword    = fmt.Errorf("lobby: wrong password")
	ErrAlreadyOnline    = fmt.Errorf("lobby: player already connected")
)

// registeredPlayer is a lobby-level identity, distinct from a Room's
// per-game Player: just a name and a password for re-login comparison
// (spec.md §3 Player, SPEC_FULL.md §4.6). The player's sink lives on the
// Room's Player, not here. No hashing scheme is specified — out of scope
// per spec.md §1.
type registeredPlayer struct {
	name     string
	password string
}

// Lobby owns every room and the set of currently-connected player names.
// It is the engine's single point of contact for "which room is this
// command for" lookups; it holds no book or position state itself.
type Lobby struct {
	mu sync.Mutex

	rooms       map[string]*room.Room
	roomNames   *btree.BTreeG[string]
	playerRooms map[string]string // player -> room they're currently seated in
	online      *btree.BTreeG[string]

	players     map[string]*registeredPlayer
	playerNames *btree.BTreeG[string]

	cardsPerPile int
}

func less(a, b string) bool { return a < b }

// New creates an empty lobby. cardsPerPile is forwarded to every room
// created through it.
func New(cardsPerPile int) *Lobby {
	return &Lobby{
		rooms:        map[string]*room.Room{},
		roomNames:    btree.NewBTreeG(less),
		playerRooms:  map[string]string{},
		online:       btree.NewBTreeG(less),
		players:      map[string]*registeredPlayer{},
		playerNames:  btree.NewBTreeG(less),
		cardsPerPile: cardsPerPile,
	}
}

// NewPlayer registers a new player identity with the lobby (spec.md §6
// inbound NewPlayer; SPEC_FULL.md §4.6): rejects a duplicate name.
func (l *Lobby) NewPlayer(name, password string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.players[name]; ok {
		return ErrPlayerExists
	}
	l.players[name] = &registeredPlayer{name: name, password: password}
	l.playerNames.Set(name)
	return nil
}

// DeletePlayer removes a registered player identity (spec.md §6 inbound
// DeletePlayer).
func (l *Lobby) DeletePlayer(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.players[name]; !ok {
		return ErrNoSuchPlayer
	}
	delete(l.players, name)
	l.playerNames.Delete(name)
	return nil
}

// Authenticate checks name/password against the lobby's registry,
// matching original_source's password re-login check (SPEC_FULL.md §4.6).
func (l *Lobby) Authenticate(name, password string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.players[name]
	if !ok {
		return ErrNoSuchPlayer
	}
	if p.password != password {
		return ErrWrongPassword
	}
	return nil
}

// PlayerNames returns every registered player's name in sorted order
// (feeds PlayerUpdate).
func (l *Lobby) PlayerNames() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, l.playerNames.Len())
	l.playerNames.Scan(func(name string) bool {
		names = append(names, name)
		return true
	})
	return names
}

// CreateRoom adds a new, empty room to the lobby.
func (l *Lobby) CreateRoom(name string) (*room.Room, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rooms[name]; ok {
		return nil, ErrRoomExists
	}
	r := room.New(name, l.cardsPerPile)
	l.rooms[name] = r
	l.roomNames.Set(name)
	metrics.ActiveRooms.Set(float64(len(l.rooms)))
	return r, nil
}

// Room looks up a room by name.
func (l *Lobby) Room(name string) (*room.Room, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.rooms[name]
	if !ok {
		return nil, ErrNoSuchRoom
	}
	return r, nil
}

// DeleteRoom removes a room from the lobby listing; a room that has
// already started cannot be deleted out from under its players (spec.md
// §7 Conflict: "deleting while started").
func (l *Lobby) DeleteRoom(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.rooms[name]
	if !ok {
		return ErrNoSuchRoom
	}
	if r.Started() {
		return ErrRoomStarted
	}
	delete(l.rooms, name)
	l.roomNames.Delete(name)
	metrics.ActiveRooms.Set(float64(len(l.rooms)))
	return nil
}

// RoomNames returns every open room's name in sorted order.
func (l *Lobby) RoomNames() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, l.roomNames.Len())
	l.roomNames.Scan(func(name string) bool {
		names = append(names, name)
		return true
	})
	return names
}

// Connect marks a player name as online, e.g. once their transport
// session authenticates, before they have joined any particular room.
func (l *Lobby) Connect(player string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, found := l.online.Get(player); found {
		return ErrAlreadyOnline
	}
	l.online.Set(player)
	metrics.ConnectedPlayers.Set(float64(l.online.Len()))
	return nil
}

// Disconnect marks a player offline. Unlike an explicit LeaveRoom command,
// a transport drop does not evict the player from any room they are
// seated in — their cards, positions, and resting orders are left
// untouched so a later JoinRoom under the same name replays state
// (spec.md §5 "Backpressure and failure isolation": "Rooms do not evict
// members on send failure; reconnection with the same name replays
// state").
func (l *Lobby) Disconnect(player string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.online.Delete(player)
	metrics.ConnectedPlayers.Set(float64(l.online.Len()))
}

// JoinRoom seats player in the named room and remembers the assignment so
// PlayerRoom and LeaveRoom can find it again.
func (l *Lobby) JoinRoom(player, roomName string, sink protocol.Sink) (*room.Room, error) {
	l.mu.Lock()
	r, ok := l.rooms[roomName]
	if !ok {
		l.mu.Unlock()
		return nil, ErrNoSuchRoom
	}
	l.mu.Unlock()

	if _, err := r.Join(player, sink); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.playerRooms[player] = roomName
	l.mu.Unlock()
	return r, nil
}

// LeaveRoom removes player from whatever room they are seated in, unless
// the room has already started — then it is a no-op acknowledgement and
// the player stays tracked there for settlement (spec.md §4.1 leave).
func (l *Lobby) LeaveRoom(player string) error {
	l.mu.Lock()
	roomName, ok := l.playerRooms[player]
	if !ok {
		l.mu.Unlock()
		return room.ErrNotSeated
	}
	r := l.rooms[roomName]
	l.mu.Unlock()

	if err := r.Leave(player); err != nil {
		return err
	}
	if !r.Started() {
		l.mu.Lock()
		delete(l.playerRooms, player)
		l.mu.Unlock()
	}
	return nil
}

// PlayerRoom reports which room, if any, a player currently occupies.
func (l *Lobby) PlayerRoom(player string) (*room.Room, bool) {
	l.mu.Lock()
	roomName, ok := l.playerRooms[player]
	l.mu.Unlock()
	if !ok {
		return nil, false
	}
	r, ok := l.rooms[roomName]
	return r, ok
}

// OnlinePlayers returns every connected player's name in sorted order.
func (l *Lobby) OnlinePlayers() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, l.online.Len())
	l.online.Scan(func(name string) bool {
		names = append(names, name)
		return true
	})
	return names
}
