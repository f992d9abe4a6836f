package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand_NewOrder(t *testing.T) {
	line := []byte(`{"type":"new_order","player":"alice","room":"table-1","instrument":"A","direction":"bid","price":10,"size":5}`)
	cmd, err := DecodeCommand(line, Discard)
	require.NoError(t, err)

	order, ok := cmd.(NewOrder)
	require.True(t, ok)
	assert.Equal(t, "alice", order.Player)
	assert.Equal(t, "table-1", order.Room)
	assert.Equal(t, int64(10), order.Price)
	assert.Equal(t, int64(5), order.Size)
}

func TestDecodeCommand_NewInstrumentOptionTypeDoesNotCollideWithEnvelopeType(t *testing.T) {
	line := []byte(`{"type":"new_instrument","player":"alice","room":"table-1","name":"A","option_type":"CALL","strike":20}`)
	cmd, err := DecodeCommand(line, Discard)
	require.NoError(t, err)

	instr, ok := cmd.(NewInstrument)
	require.True(t, ok)
	assert.Equal(t, "CALL", instr.OptionType)
	require.NotNil(t, instr.Strike)
	assert.Equal(t, int64(20), *instr.Strike)
}

func TestDecodeCommand_JoinRoomAttachesSink(t *testing.T) {
	line := []byte(`{"type":"join_room","player":"alice","room":"table-1"}`)
	sink := SinkFunc(func(Message) error { return nil })
	cmd, err := DecodeCommand(line, sink)
	require.NoError(t, err)

	join, ok := cmd.(JoinRoom)
	require.True(t, ok)
	assert.NotNil(t, join.Sink)
}

func TestDecodeCommand_UnknownType(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"type":"nonsense"}`), Discard)
	assert.Error(t, err)
}

func TestDecodeCommand_Malformed(t *testing.T) {
	_, err := DecodeCommand([]byte(`not json`), Discard)
	assert.Error(t, err)
}

func TestEncodeMessage_EncodesInfo(t *testing.T) {
	data, err := EncodeMessage(NewInfo("ok", "corr-1"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"info"`)
	assert.Contains(t, string(data), `"status":"ok"`)
}
