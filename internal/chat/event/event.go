// Package event defines the closed set of room events delivered to
// connection bridges, and their JSON wire encoding.
package event

import (
	"encoding/json"
	"fmt"
)

// Event is an occurrence inside a room, fanned out to every member's
// connection bridge. The set is closed: UserJoined, UserLeft and
// MessageReceived are the only variants. Events are immutable and
// passed by value.
type Event interface {
	isEvent()
}

// UserJoined announces that a user entered a room.
type UserJoined struct {
	UserID string
	RoomID string
}

// UserLeft announces that a user left a room.
type UserLeft struct {
	UserID string
	RoomID string
}

// MessageReceived carries a chat message sent to a room.
type MessageReceived struct {
	UserID  string
	Message string
	RoomID  string
}

func (UserJoined) isEvent()      {}
func (UserLeft) isEvent()        {}
func (MessageReceived) isEvent() {}

// wireFrame is the server-to-client JSON shape shared by all event variants.
type wireFrame struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	RoomID  string `json:"roomId"`
	Message string `json:"message,omitempty"`
}

// Encode serializes an event into its JSON wire frame.
//
// Postcondition: Returns a single JSON object, or an error for an
// unrecognized variant.
func Encode(ev Event) ([]byte, error) {
	var frame wireFrame
	switch e := ev.(type) {
	case UserJoined:
		frame = wireFrame{Type: "user_joined", UserID: e.UserID, RoomID: e.RoomID}
	case UserLeft:
		frame = wireFrame{Type: "user_left", UserID: e.UserID, RoomID: e.RoomID}
	case MessageReceived:
		frame = wireFrame{Type: "message", UserID: e.UserID, RoomID: e.RoomID, Message: e.Message}
	default:
		return nil, fmt.Errorf("unknown event variant %T", ev)
	}
	return json.Marshal(frame)
}
