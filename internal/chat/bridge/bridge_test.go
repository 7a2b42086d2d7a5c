package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/chat/event"
)

func TestBridge_Push(t *testing.T) {
	b := New("u1", 4)
	require.NoError(t, b.Push([]byte("hello")))

	data := <-b.Frames()
	assert.Equal(t, []byte("hello"), data)
}

func TestBridge_Deliver(t *testing.T) {
	b := New("u1", 4)
	require.NoError(t, b.Deliver(event.MessageReceived{UserID: "u2", Message: "hi", RoomID: "r1"}))

	var m map[string]any
	require.NoError(t, json.Unmarshal(<-b.Frames(), &m))
	assert.Equal(t, "message", m["type"])
	assert.Equal(t, "u2", m["userId"])
	assert.Equal(t, "hi", m["message"])
	assert.Equal(t, "r1", m["roomId"])
}

func TestBridge_PushClosed(t *testing.T) {
	b := New("u1", 4)
	require.NoError(t, b.Close())
	assert.True(t, b.IsClosed())
	assert.Error(t, b.Push([]byte("fail")))
	assert.Error(t, b.Deliver(event.UserJoined{UserID: "u1", RoomID: "r1"}))
}

func TestBridge_PushFull(t *testing.T) {
	b := New("u1", 1)
	require.NoError(t, b.Push([]byte("first")))
	err := b.Push([]byte("overflow"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "buffer full")
}

func TestBridge_CloseIdempotent(t *testing.T) {
	b := New("u1", 4)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.True(t, b.IsClosed())
}

func TestBridge_DefaultBuffer(t *testing.T) {
	b := New("u1", 0)
	for i := 0; i < 64; i++ {
		require.NoError(t, b.Push([]byte("x")))
	}
	assert.Error(t, b.Push([]byte("over")))
}
