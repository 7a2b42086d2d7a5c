// Package chat wires the session registry and the room directory into the
// operations the transport layer calls.
package chat

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/parley-chat/parley/internal/chat/bridge"
	"github.com/parley-chat/parley/internal/chat/room"
	"github.com/parley-chat/parley/internal/chat/session"
)

// ErrNotInRoom is returned when an operation requires a current room and
// the user has none.
var ErrNotInRoom = errors.New("not in a room")

// Service mediates between connections and room coordinators. It enforces
// single-room membership: joining a room retires the session's previous
// membership first.
type Service struct {
	sessions  *session.Registry
	directory *room.Directory
	logger    *zap.Logger
}

// NewService creates a Service with the given dependencies.
//
// Precondition: sessions, directory, and logger must be non-nil.
func NewService(sessions *session.Registry, directory *room.Directory, logger *zap.Logger) *Service {
	return &Service{
		sessions:  sessions,
		directory: directory,
		logger:    logger,
	}
}

// Connect registers a newly established connection.
//
// Precondition: userID must be non-empty; br must be non-nil.
// Postcondition: The user is tracked with no current room, or an error if
// the ID is already connected.
func (s *Service) Connect(userID string, br *bridge.Bridge) error {
	if _, err := s.sessions.Register(userID, br); err != nil {
		return fmt.Errorf("registering session: %w", err)
	}
	s.logger.Info("user connected", zap.String("user_id", userID))
	return nil
}

// JoinRoom places the user in roomID. If the user is already in a room,
// that room's coordinator is told to remove them first, so a user is a
// member of at most one room at a time.
//
// Postcondition: A Join command is enqueued with the room's coordinator,
// or an error if the user is unknown.
func (s *Service) JoinRoom(userID, roomID string) error {
	sess, ok := s.sessions.Get(userID)
	if !ok {
		return fmt.Errorf("user %q not found", userID)
	}

	if prior, inRoom := s.sessions.CurrentRoom(userID); inRoom && prior != roomID {
		s.directory.Resolve(prior).Leave(userID)
	}

	s.directory.Resolve(roomID).Join(userID, sess.Bridge)
	if err := s.sessions.RecordJoin(userID, roomID); err != nil {
		return fmt.Errorf("recording join: %w", err)
	}

	s.logger.Info("user joined room",
		zap.String("user_id", userID),
		zap.String("room_id", roomID),
	)
	return nil
}

// LeaveRoom removes the user from their current room.
//
// Postcondition: Returns the room that was left, or ErrNotInRoom.
func (s *Service) LeaveRoom(userID string) (string, error) {
	roomID, inRoom := s.sessions.CurrentRoom(userID)
	if !inRoom {
		return "", ErrNotInRoom
	}

	s.directory.Resolve(roomID).Leave(userID)
	if err := s.sessions.RecordLeave(userID); err != nil {
		return "", fmt.Errorf("recording leave: %w", err)
	}

	s.logger.Info("user left room",
		zap.String("user_id", userID),
		zap.String("room_id", roomID),
	)
	return roomID, nil
}

// SendMessage broadcasts text to the user's current room.
//
// Postcondition: A SendMessage command is enqueued with the room's
// coordinator, or ErrNotInRoom.
func (s *Service) SendMessage(userID, text string) error {
	roomID, inRoom := s.sessions.CurrentRoom(userID)
	if !inRoom {
		return ErrNotInRoom
	}
	s.directory.Resolve(roomID).SendMessage(userID, text)
	return nil
}

// Disconnect removes the user's session and, if they were in a room,
// issues the Leave command on their behalf. Safe to call for unknown
// users.
func (s *Service) Disconnect(userID string) {
	roomID, ok := s.sessions.Unregister(userID)
	if !ok {
		return
	}
	if roomID != "" {
		s.directory.Resolve(roomID).Leave(userID)
	}
	s.logger.Info("user disconnected",
		zap.String("user_id", userID),
		zap.String("room_id", roomID),
	)
}

// CurrentRoom reports the user's current room, if any.
func (s *Service) CurrentRoom(userID string) (string, bool) {
	return s.sessions.CurrentRoom(userID)
}
