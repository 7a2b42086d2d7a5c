// Package bridge provides the per-connection adapter that carries room
// events from the coordinator domain to the transport write pump.
package bridge

import (
	"fmt"
	"sync"

	"github.com/parley-chat/parley/internal/chat/event"
)

// Bridge routes events for a single connection onto a buffered channel
// drained by the transport's write pump. It binds to exactly one
// connection for its lifetime and owns no shared state.
type Bridge struct {
	userID string
	frames chan []byte
	mu     sync.Mutex
	closed bool
}

// New creates a Bridge for the given user ID.
//
// Precondition: userID must be non-empty.
// Postcondition: Returns a Bridge with an open frames channel.
func New(userID string, bufferSize int) *Bridge {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bridge{
		userID: userID,
		frames: make(chan []byte, bufferSize),
	}
}

// UserID returns the connection's user identifier.
func (b *Bridge) UserID() string {
	return b.userID
}

// Deliver serializes an event into its wire frame and enqueues it for the
// write pump. Delivery is fire-and-forget: a closed or full bridge drops
// the event and reports the reason to the caller.
//
// Postcondition: The frame is enqueued, or an error names why it was dropped.
func (b *Bridge) Deliver(ev event.Event) error {
	data, err := event.Encode(ev)
	if err != nil {
		return fmt.Errorf("encoding event for %s: %w", b.userID, err)
	}
	return b.Push(data)
}

// Push enqueues a pre-encoded frame for the write pump.
//
// Precondition: data must be a non-nil byte slice.
// Postcondition: Data is enqueued, or an error if the bridge is closed or full.
func (b *Bridge) Push(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("bridge %s is closed", b.userID)
	}
	select {
	case b.frames <- data:
		return nil
	default:
		return fmt.Errorf("bridge %s frame buffer full", b.userID)
	}
}

// Frames returns the read-only outbound frame channel.
// The transport write pump reads from this channel until it is closed.
func (b *Bridge) Frames() <-chan []byte {
	return b.frames
}

// Close marks the bridge as closed and closes the frames channel.
// A closed bridge drops all further deliveries.
//
// Postcondition: The frames channel is closed. Close is idempotent.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.frames)
	}
	return nil
}

// IsClosed reports whether the bridge has been closed.
func (b *Bridge) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
