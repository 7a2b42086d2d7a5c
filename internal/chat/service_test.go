package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/parley-chat/parley/internal/chat/bridge"
	"github.com/parley-chat/parley/internal/chat/room"
	"github.com/parley-chat/parley/internal/chat/session"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/observability"
)

type fixture struct {
	svc       *Service
	directory *room.Directory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	directory := room.NewDirectory(config.RoomsConfig{
		Shards:       3,
		InboxBuffer:  64,
		BridgeBuffer: 64,
	}, logger, observability.NopMetrics())
	t.Cleanup(directory.Close)

	return &fixture{
		svc:       NewService(session.NewRegistry(), directory, logger),
		directory: directory,
	}
}

// settle waits until the named rooms have processed all enqueued commands.
func (f *fixture) settle(rooms ...string) {
	for _, r := range rooms {
		f.directory.Resolve(r).Members()
	}
}

// drain decodes every frame currently buffered on the bridge.
func drain(t *testing.T, br *bridge.Bridge) []map[string]any {
	t.Helper()
	var frames []map[string]any
	for {
		select {
		case data := <-br.Frames():
			var m map[string]any
			require.NoError(t, json.Unmarshal(data, &m))
			frames = append(frames, m)
		default:
			return frames
		}
	}
}

func frameTypes(frames []map[string]any) []string {
	types := make([]string, 0, len(frames))
	for _, f := range frames {
		types = append(types, f["type"].(string))
	}
	return types
}

func TestConnectAndJoin(t *testing.T) {
	f := newFixture(t)
	br := bridge.New("u1", 16)

	require.NoError(t, f.svc.Connect("u1", br))
	require.NoError(t, f.svc.JoinRoom("u1", "r1"))
	f.settle("r1")

	roomID, ok := f.svc.CurrentRoom("u1")
	assert.True(t, ok)
	assert.Equal(t, "r1", roomID)

	frames := drain(t, br)
	require.Len(t, frames, 1)
	assert.Equal(t, "user_joined", frames[0]["type"])
	assert.Equal(t, "u1", frames[0]["userId"])
	assert.Equal(t, "r1", frames[0]["roomId"])
}

func TestConnectDuplicate(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Connect("u1", bridge.New("u1", 16)))
	assert.Error(t, f.svc.Connect("u1", bridge.New("u1", 16)))
}

func TestJoinUnknownUser(t *testing.T) {
	f := newFixture(t)
	assert.Error(t, f.svc.JoinRoom("ghost", "r1"))
}

func TestJoinSwitchesRooms(t *testing.T) {
	f := newFixture(t)
	u1 := bridge.New("u1", 16)
	watcher := bridge.New("u2", 16)

	require.NoError(t, f.svc.Connect("u1", u1))
	require.NoError(t, f.svc.Connect("u2", watcher))
	require.NoError(t, f.svc.JoinRoom("u2", "r1"))
	require.NoError(t, f.svc.JoinRoom("u1", "r1"))
	require.NoError(t, f.svc.JoinRoom("u1", "r2"))
	f.settle("r1", "r2")

	// u1 ends up only in r2.
	assert.Equal(t, []string{"u2"}, f.directory.Resolve("r1").Members())
	assert.Equal(t, []string{"u1"}, f.directory.Resolve("r2").Members())

	room, ok := f.svc.CurrentRoom("u1")
	assert.True(t, ok)
	assert.Equal(t, "r2", room)

	// The watcher saw u1 join and then leave r1.
	types := frameTypes(drain(t, watcher))
	assert.Equal(t, []string{"user_joined", "user_joined", "user_left"}, types)
}

func TestRejoinSameRoomKeepsSingleMembership(t *testing.T) {
	f := newFixture(t)
	u1 := bridge.New("u1", 16)

	require.NoError(t, f.svc.Connect("u1", u1))
	require.NoError(t, f.svc.JoinRoom("u1", "r1"))
	require.NoError(t, f.svc.JoinRoom("u1", "r1"))
	f.settle("r1")

	assert.Equal(t, []string{"u1"}, f.directory.Resolve("r1").Members())
}

func TestSendMessageRequiresRoom(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Connect("u1", bridge.New("u1", 16)))

	err := f.svc.SendMessage("u1", "hello")
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestSendMessageBroadcasts(t *testing.T) {
	f := newFixture(t)
	u1 := bridge.New("u1", 16)
	u2 := bridge.New("u2", 16)

	require.NoError(t, f.svc.Connect("u1", u1))
	require.NoError(t, f.svc.Connect("u2", u2))
	require.NoError(t, f.svc.JoinRoom("u1", "r1"))
	require.NoError(t, f.svc.JoinRoom("u2", "r1"))
	require.NoError(t, f.svc.SendMessage("u1", "hi"))
	f.settle("r1")

	for _, br := range []*bridge.Bridge{u1, u2} {
		frames := drain(t, br)
		var messages []map[string]any
		for _, fr := range frames {
			if fr["type"] == "message" {
				messages = append(messages, fr)
			}
		}
		require.Len(t, messages, 1, "bridge %s", br.UserID())
		assert.Equal(t, "u1", messages[0]["userId"])
		assert.Equal(t, "hi", messages[0]["message"])
		assert.Equal(t, "r1", messages[0]["roomId"])
	}
}

func TestLeaveRoom(t *testing.T) {
	f := newFixture(t)
	u1 := bridge.New("u1", 16)

	require.NoError(t, f.svc.Connect("u1", u1))
	require.NoError(t, f.svc.JoinRoom("u1", "r1"))

	roomID, err := f.svc.LeaveRoom("u1")
	require.NoError(t, err)
	assert.Equal(t, "r1", roomID)
	f.settle("r1")

	assert.Empty(t, f.directory.Resolve("r1").Members())
	_, ok := f.svc.CurrentRoom("u1")
	assert.False(t, ok)
}

func TestLeaveRoomNotInRoom(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Connect("u1", bridge.New("u1", 16)))

	_, err := f.svc.LeaveRoom("u1")
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestDisconnectIssuesLeave(t *testing.T) {
	f := newFixture(t)
	u1 := bridge.New("u1", 16)
	u2 := bridge.New("u2", 16)

	require.NoError(t, f.svc.Connect("u1", u1))
	require.NoError(t, f.svc.Connect("u2", u2))
	require.NoError(t, f.svc.JoinRoom("u1", "r1"))
	require.NoError(t, f.svc.JoinRoom("u2", "r1"))

	f.svc.Disconnect("u2")
	f.settle("r1")

	assert.Equal(t, []string{"u1"}, f.directory.Resolve("r1").Members())

	types := frameTypes(drain(t, u1))
	assert.Contains(t, types, "user_left")
}

func TestDisconnectUnknownUser(t *testing.T) {
	f := newFixture(t)
	f.svc.Disconnect("ghost")
}
