package lobby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitexchange/internal/protocol"
)

type nopSink struct{}

func (nopSink) Send(protocol.Message) error { return nil }

func TestLobby_CreateAndListRoomsSorted(t *testing.T) {
	l := New(5)
	_, err := l.CreateRoom("zeta")
	require.NoError(t, err)
	_, err = l.CreateRoom("alpha")
	require.NoError(t, err)

	_, err = l.CreateRoom("alpha")
	assert.ErrorIs(t, err, ErrRoomExists)

	assert.Equal(t, []string{"alpha", "zeta"}, l.RoomNames())
}

func TestLobby_JoinAndLeaveTracksAssignment(t *testing.T) {
	l := New(5)
	_, err := l.CreateRoom("table-1")
	require.NoError(t, err)

	r, err := l.JoinRoom("alice", "table-1", nopSink{})
	require.NoError(t, err)
	assert.Contains(t, r.PlayerNames(), "alice")

	got, ok := l.PlayerRoom("alice")
	require.True(t, ok)
	assert.Equal(t, r, got)

	require.NoError(t, l.LeaveRoom("alice"))
	_, ok = l.PlayerRoom("alice")
	assert.False(t, ok)
}

func TestLobby_JoinUnknownRoom(t *testing.T) {
	l := New(5)
	_, err := l.JoinRoom("alice", "nowhere", nopSink{})
	assert.ErrorIs(t, err, ErrNoSuchRoom)
}

func TestLobby_DisconnectRetainsSeatButMarksOffline(t *testing.T) {
	l := New(5)
	_, err := l.CreateRoom("table-1")
	require.NoError(t, err)
	r, err := l.JoinRoom("alice", "table-1", nopSink{})
	require.NoError(t, err)

	require.NoError(t, l.Connect("alice"))
	l.Disconnect("alice")

	assert.Contains(t, r.PlayerNames(), "alice")
	assert.NotContains(t, l.OnlinePlayers(), "alice")

	got, ok := l.PlayerRoom("alice")
	require.True(t, ok)
	assert.Equal(t, r, got)
}

func TestLobby_NewPlayerAuthenticate(t *testing.T) {
	l := New(5)
	require.NoError(t, l.NewPlayer("alice", "hunter2"))
	assert.ErrorIs(t, l.NewPlayer("alice", "other"), ErrPlayerExists)

	require.NoError(t, l.Authenticate("alice", "hunter2"))
	assert.ErrorIs(t, l.Authenticate("alice", "wrong"), ErrWrongPassword)
	assert.ErrorIs(t, l.Authenticate("bob", "x"), ErrNoSuchPlayer)
}

func TestLobby_DeleteRoomRejectsStarted(t *testing.T) {
	l := New(1)
	_, err := l.CreateRoom("table-1")
	require.NoError(t, err)
	_, err = l.JoinRoom("alice", "table-1", nopSink{})
	require.NoError(t, err)

	r, err := l.Room("table-1")
	require.NoError(t, err)
	require.NoError(t, r.StartGame())

	assert.ErrorIs(t, l.DeleteRoom("table-1"), ErrRoomStarted)
}
