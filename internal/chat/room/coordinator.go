// Package room implements per-room coordinators and the sharded directory
// that resolves a room ID to its single live coordinator.
package room

import (
	"sync"

	"go.uber.org/zap"

	"github.com/parley-chat/parley/internal/chat/event"
	"github.com/parley-chat/parley/internal/observability"
)

// MemberHandle is a reference capable of receiving room events.
// The connection bridge satisfies it.
type MemberHandle interface {
	// UserID returns the member's user identifier.
	UserID() string
	// Deliver hands an event to the member. Delivery is fire-and-forget;
	// an error means the event was dropped for this member only.
	Deliver(ev event.Event) error
}

// command is the closed set of inputs a coordinator processes.
type command interface {
	isCommand()
}

type joinCmd struct {
	userID string
	handle MemberHandle
}

type leaveCmd struct {
	userID string
}

type sendCmd struct {
	userID string
	text   string
}

type membersQuery struct {
	reply chan []string
}

func (joinCmd) isCommand()      {}
func (leaveCmd) isCommand()     {}
func (sendCmd) isCommand()      {}
func (membersQuery) isCommand() {}

// Coordinator is the single authority for one room. All membership
// mutation and broadcast ordering happens on its run loop, which
// processes commands strictly one at a time in arrival order. The
// membership map is never touched from outside that loop.
type Coordinator struct {
	roomID  string
	inbox   chan command
	members map[string]MemberHandle
	logger  *zap.Logger
	metrics *observability.Metrics

	done     chan struct{}
	stopOnce sync.Once
}

// newCoordinator creates a coordinator and starts its run loop.
// Coordinators are created by the Directory only.
func newCoordinator(roomID string, inboxBuffer int, logger *zap.Logger, metrics *observability.Metrics) *Coordinator {
	if inboxBuffer <= 0 {
		inboxBuffer = 64
	}
	c := &Coordinator{
		roomID:  roomID,
		inbox:   make(chan command, inboxBuffer),
		members: make(map[string]MemberHandle),
		logger:  logger.With(zap.String("room_id", roomID)),
		metrics: metrics,
		done:    make(chan struct{}),
	}
	go c.run()
	return c
}

// RoomID returns the room identifier this coordinator owns.
func (c *Coordinator) RoomID() string {
	return c.roomID
}

// Join adds userID to the room bound to the given handle, replacing any
// existing entry, then broadcasts UserJoined to all current members
// including the joiner. Fire-and-forget.
//
// Precondition: handle must be non-nil.
func (c *Coordinator) Join(userID string, handle MemberHandle) {
	c.tell(joinCmd{userID: userID, handle: handle})
}

// Leave removes userID from the room if present: the departing handle is
// notified directly, then UserLeft is broadcast to the remaining members.
// A Leave for an absent user is a no-op. Fire-and-forget.
func (c *Coordinator) Leave(userID string) {
	c.tell(leaveCmd{userID: userID})
}

// SendMessage broadcasts a MessageReceived event to all current members.
// The sender is not required to be a member. Fire-and-forget.
func (c *Coordinator) SendMessage(userID, text string) {
	c.tell(sendCmd{userID: userID, text: text})
}

// Members returns the user IDs currently in the room. Because commands
// are processed in order, the answer reflects every command enqueued
// before this call.
//
// Postcondition: Returns nil after the coordinator has stopped.
func (c *Coordinator) Members() []string {
	q := membersQuery{reply: make(chan []string, 1)}
	select {
	case c.inbox <- q:
	case <-c.done:
		return nil
	}
	select {
	case members := <-q.reply:
		return members
	case <-c.done:
		return nil
	}
}

// stop terminates the run loop and discards membership. Membership is not
// persisted: a stopped coordinator's room must be rejoined by clients.
func (c *Coordinator) stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

// tell enqueues a command, giving up if the coordinator has stopped.
func (c *Coordinator) tell(cmd command) {
	select {
	case c.inbox <- cmd:
	case <-c.done:
	}
}

// run is the coordinator's single-writer loop. It is the only goroutine
// that reads or writes c.members.
func (c *Coordinator) run() {
	for {
		select {
		case cmd := <-c.inbox:
			c.handle(cmd)
		case <-c.done:
			c.members = nil
			return
		}
	}
}

func (c *Coordinator) handle(cmd command) {
	switch m := cmd.(type) {
	case joinCmd:
		c.handleJoin(m)
	case leaveCmd:
		c.handleLeave(m)
	case sendCmd:
		c.handleSend(m)
	case membersQuery:
		ids := make([]string, 0, len(c.members))
		for id := range c.members {
			ids = append(ids, id)
		}
		m.reply <- ids
	}
}

func (c *Coordinator) handleJoin(cmd joinCmd) {
	c.members[cmd.userID] = cmd.handle

	// Broadcast after insertion so the joiner observes its own join.
	c.broadcast(event.UserJoined{UserID: cmd.userID, RoomID: c.roomID})

	c.logger.Debug("user joined room",
		zap.String("user_id", cmd.userID),
		zap.Int("members", len(c.members)),
	)
}

func (c *Coordinator) handleLeave(cmd leaveCmd) {
	handle, ok := c.members[cmd.userID]
	if !ok {
		return
	}
	delete(c.members, cmd.userID)

	left := event.UserLeft{UserID: cmd.userID, RoomID: c.roomID}
	c.deliver(handle, left)
	c.broadcast(left)

	c.logger.Debug("user left room",
		zap.String("user_id", cmd.userID),
		zap.Int("members", len(c.members)),
	)
}

func (c *Coordinator) handleSend(cmd sendCmd) {
	c.broadcast(event.MessageReceived{UserID: cmd.userID, Message: cmd.text, RoomID: c.roomID})
	c.metrics.MessagesBroadcast.Inc()
}

// broadcast delivers ev to every current member independently. A failed
// delivery is logged and dropped; it never affects other members and
// never removes the member from the room.
func (c *Coordinator) broadcast(ev event.Event) {
	for _, handle := range c.members {
		c.deliver(handle, ev)
	}
}

func (c *Coordinator) deliver(handle MemberHandle, ev event.Event) {
	if err := handle.Deliver(ev); err != nil {
		c.metrics.EventsDropped.Inc()
		c.logger.Warn("event delivery failed",
			zap.String("user_id", handle.UserID()),
			zap.Error(err),
		)
		return
	}
	c.metrics.EventsDelivered.Inc()
}
