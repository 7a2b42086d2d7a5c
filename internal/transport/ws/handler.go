package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/chat/bridge"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/observability"
)

// Handler upgrades HTTP requests to WebSocket connections and runs one
// read pump and one write pump per connection. Each connection gets a
// generated user ID and a dedicated bridge.
type Handler struct {
	service  *chat.Service
	cfg      config.ServerConfig
	rooms    config.RoomsConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

// NewHandler constructs a Handler backed by the given chat service.
//
// Precondition: service, logger, and metrics are non-nil.
func NewHandler(service *chat.Service, cfg config.ServerConfig, rooms config.RoomsConfig, logger *zap.Logger, metrics *observability.Metrics) *Handler {
	return &Handler{
		service: service,
		cfg:     cfg,
		rooms:   rooms,
		logger:  logger,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP upgrades the request and blocks until the connection closes.
// On exit the session is unregistered, which issues a leave for any room
// the user was still in.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	userID := uuid.NewString()
	br := bridge.New(userID, h.rooms.BridgeBuffer)
	if err := h.service.Connect(userID, br); err != nil {
		h.logger.Error("session registration failed", zap.String("userId", userID), zap.Error(err))
		_ = conn.Close()
		return
	}

	h.metrics.Connections.Inc()
	h.logger.Info("connection established", zap.String("userId", userID), zap.String("remote", conn.RemoteAddr().String()))

	if err := br.Push(ConnectedFrame(userID)); err != nil {
		h.logger.Error("queueing connected frame", zap.String("userId", userID), zap.Error(err))
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(conn, br)
	}()

	h.readPump(conn, userID, br)

	h.service.Disconnect(userID)
	br.Close()
	<-writerDone
	_ = conn.Close()

	h.metrics.Connections.Dec()
	h.logger.Info("connection closed", zap.String("userId", userID))
}

// readPump reads client frames until the connection fails or closes.
// Request failures produce error frames on the bridge; the connection
// itself stays open.
func (h *Handler) readPump(conn *websocket.Conn, userID string, br *bridge.Bridge) {
	conn.SetReadLimit(h.cfg.MaxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("read failed", zap.String("userId", userID), zap.Error(err))
			}
			return
		}
		h.dispatch(userID, br, data)
	}
}

// dispatch routes one client frame to the chat service and queues the
// acknowledgement or error frame for the writer.
func (h *Handler) dispatch(userID string, br *bridge.Bridge, data []byte) {
	frame, err := DecodeClientFrame(data)
	if err != nil {
		h.push(br, ErrorFrame("malformed frame"))
		return
	}

	switch frame.Type {
	case FrameJoin:
		if frame.RoomID == "" {
			h.push(br, ErrorFrame("roomId is required"))
			return
		}
		if err := h.service.JoinRoom(userID, frame.RoomID); err != nil {
			h.push(br, ErrorFrame("failed to join room"))
			return
		}
		h.push(br, JoinedFrame(frame.RoomID))
	case FrameLeave:
		roomID, err := h.service.LeaveRoom(userID)
		if err != nil {
			h.push(br, ErrorFrame("not in a room"))
			return
		}
		h.push(br, LeftFrame(roomID))
	case FrameMessage:
		if frame.Message == "" {
			h.push(br, ErrorFrame("message content missing"))
			return
		}
		if err := h.service.SendMessage(userID, frame.Message); err != nil {
			if errors.Is(err, chat.ErrNotInRoom) {
				h.push(br, ErrorFrame("not in a room"))
				return
			}
			h.push(br, ErrorFrame("failed to send message"))
		}
	default:
		h.push(br, ErrorFrame("unknown message type: "+frame.Type))
	}
}

func (h *Handler) push(br *bridge.Bridge, frame []byte) {
	if err := br.Push(frame); err != nil {
		h.logger.Warn("queueing frame", zap.String("userId", br.UserID()), zap.Error(err))
	}
}

// writePump drains the bridge onto the wire and keeps the connection
// alive with periodic pings. It exits when the bridge closes.
func (h *Handler) writePump(conn *websocket.Conn, br *bridge.Bridge) {
	pingPeriod := h.cfg.ReadTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-br.Frames():
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.logger.Warn("write failed", zap.String("userId", br.UserID()), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
