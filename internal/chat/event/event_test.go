package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestEncodeUserJoined(t *testing.T) {
	data, err := Encode(UserJoined{UserID: "u1", RoomID: "r1"})
	require.NoError(t, err)

	m := decode(t, data)
	assert.Equal(t, "user_joined", m["type"])
	assert.Equal(t, "u1", m["userId"])
	assert.Equal(t, "r1", m["roomId"])
	assert.NotContains(t, m, "message")
}

func TestEncodeUserLeft(t *testing.T) {
	data, err := Encode(UserLeft{UserID: "u2", RoomID: "r9"})
	require.NoError(t, err)

	m := decode(t, data)
	assert.Equal(t, "user_left", m["type"])
	assert.Equal(t, "u2", m["userId"])
	assert.Equal(t, "r9", m["roomId"])
}

func TestEncodeMessageReceived(t *testing.T) {
	data, err := Encode(MessageReceived{UserID: "u1", Message: "hi there", RoomID: "r1"})
	require.NoError(t, err)

	m := decode(t, data)
	assert.Equal(t, "message", m["type"])
	assert.Equal(t, "u1", m["userId"])
	assert.Equal(t, "hi there", m["message"])
	assert.Equal(t, "r1", m["roomId"])
}
