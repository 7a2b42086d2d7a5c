// Package ws provides the WebSocket transport adapter: it accepts
// connections, frames JSON payloads, and drives the chat service.
package ws

import (
	"encoding/json"
	"fmt"
)

// ClientFrame is a decoded client-to-server JSON frame.
type ClientFrame struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

// Client frame types.
const (
	FrameJoin    = "join"
	FrameLeave   = "leave"
	FrameMessage = "message"
)

// DecodeClientFrame parses one JSON object from a text frame.
//
// Postcondition: Returns a ClientFrame with a non-empty Type, or an error
// for malformed input.
func DecodeClientFrame(data []byte) (ClientFrame, error) {
	var frame ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return ClientFrame{}, fmt.Errorf("decoding frame: %w", err)
	}
	if frame.Type == "" {
		return ClientFrame{}, fmt.Errorf("frame missing type")
	}
	return frame, nil
}

// serverFrame is the shape of server-to-client control frames. Room event
// frames are encoded by the event package; both use the same field names.
type serverFrame struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
	Message string `json:"message,omitempty"`
}

func encodeServerFrame(f serverFrame) []byte {
	data, err := json.Marshal(f)
	if err != nil {
		// serverFrame contains only strings; marshalling cannot fail.
		panic(fmt.Sprintf("encoding server frame: %v", err))
	}
	return data
}

// ConnectedFrame acknowledges connection establishment with the assigned
// user ID.
func ConnectedFrame(userID string) []byte {
	return encodeServerFrame(serverFrame{Type: "connected", UserID: userID})
}

// JoinedFrame confirms a join to the requesting client.
func JoinedFrame(roomID string) []byte {
	return encodeServerFrame(serverFrame{Type: "joined", RoomID: roomID})
}

// LeftFrame confirms a leave to the requesting client.
func LeftFrame(roomID string) []byte {
	return encodeServerFrame(serverFrame{Type: "left", RoomID: roomID})
}

// ErrorFrame reports a per-request failure. The connection stays open.
func ErrorFrame(message string) []byte {
	return encodeServerFrame(serverFrame{Type: "error", Message: message})
}
