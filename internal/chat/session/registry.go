// Package session provides process-wide tracking of connected users and
// the room each connection last joined.
package session

import (
	"fmt"
	"sync"

	"github.com/parley-chat/parley/internal/chat/bridge"
)

// UserSession tracks a connected user's state. Each user's session is
// mutated only by that user's own connection lifecycle events, so there
// are no cross-user races; the registry container tolerates concurrent
// inserts and removes for different keys.
type UserSession struct {
	// UserID is the unique identifier generated at connection time.
	UserID string
	// Bridge is the connection's event bridge.
	Bridge *bridge.Bridge
	// RoomID is the room the user currently occupies, or empty.
	RoomID string
}

// Registry tracks all active user sessions.
// All methods are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*UserSession
}

// NewRegistry creates an empty session Registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]*UserSession),
	}
}

// Register records a new connection's session with no current room.
//
// Precondition: userID must be non-empty; br must be non-nil.
// Postcondition: Returns the created UserSession, or an error if the
// user ID is already registered.
func (r *Registry) Register(userID string, br *bridge.Bridge) (*UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[userID]; exists {
		return nil, fmt.Errorf("user %q already connected", userID)
	}

	sess := &UserSession{
		UserID: userID,
		Bridge: br,
	}
	r.users[userID] = sess
	return sess, nil
}

// Unregister removes a user's session and returns the room the user was
// in, if any. The registry triggers no side effects: issuing a Leave for
// the returned room is the caller's responsibility.
//
// Postcondition: Returns (roomID, true) if the user was registered, with
// roomID possibly empty; ("", false) otherwise.
func (r *Registry) Unregister(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.users[userID]
	if !exists {
		return "", false
	}
	delete(r.users, userID)
	return sess.RoomID, true
}

// RecordJoin marks userID as currently in roomID.
//
// Precondition: userID and roomID must be non-empty.
// Postcondition: Returns an error if the user is not registered.
func (r *Registry) RecordJoin(userID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.users[userID]
	if !exists {
		return fmt.Errorf("user %q not found", userID)
	}
	sess.RoomID = roomID
	return nil
}

// RecordLeave clears userID's current room.
//
// Postcondition: Returns an error if the user is not registered.
func (r *Registry) RecordLeave(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.users[userID]
	if !exists {
		return fmt.Errorf("user %q not found", userID)
	}
	sess.RoomID = ""
	return nil
}

// CurrentRoom returns the room userID currently occupies.
//
// Postcondition: Returns (roomID, true) if the user is registered and in
// a room, ("", false) otherwise.
func (r *Registry) CurrentRoom(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, exists := r.users[userID]
	if !exists || sess.RoomID == "" {
		return "", false
	}
	return sess.RoomID, true
}

// Get returns the session for the given user ID.
//
// Postcondition: Returns (session, true) if found, or (nil, false) otherwise.
func (r *Registry) Get(userID string) (*UserSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.users[userID]
	return sess, ok
}

// Count returns the total number of connected users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
