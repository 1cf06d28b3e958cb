package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/suqhub/suq-backend/internal/modules/auth"
)

// Handler upgrades authenticated requests to websocket sessions and
// speaks the frame protocol: connected on open, ping/pong heartbeats,
// sync_event relay (sender excluded), subscribe acknowledgement.
type Handler struct {
	hub    *Hub
	logger *zap.Logger
}

func NewHandler(hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/ws", h.serveWS)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The mini-app is served from Telegram's webview; origin checks are
	// handled by token auth, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	deviceID := r.URL.Query().Get("device_id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade", zap.Error(err))
		return
	}

	s := &session{
		businessID: id.BusinessID,
		userID:     id.UserID,
		deviceID:   deviceID,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}
	h.hub.register(s)

	welcome := Frame{
		Type:      FrameConnected,
		Message:   "Connected to real-time sync",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(welcome); err != nil {
		h.hub.unregister(s)
		conn.Close()
		return
	}

	go h.writePump(conn, s)
	go h.readPump(conn, s)
}

// readPump consumes frames until the connection errors or closes. The
// session is unregistered on exit; no reconnection state is kept.
func (h *Handler) readPump(conn *websocket.Conn, s *session) {
	defer func() {
		h.hub.unregister(s)
		conn.Close()
	}()

	conn.SetReadLimit(64 << 10)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("ws read", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		switch frame.Type {
		case FramePing:
			h.enqueue(s, Frame{
				Type:      FramePong,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		case FrameSyncEvent:
			// Relay to everyone else in the tenant. Durable propagation
			// still goes through push/pull; this is a latency optimization.
			h.hub.Broadcast(s.businessID, Frame{
				Type:      FrameSyncEvent,
				EventType: frame.EventType,
				Payload:   frame.Payload,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			}, s)
		case FrameSubscribe:
			// Acknowledged but not enforced: broadcast is tenant-wide.
			h.enqueue(s, Frame{Type: FrameSubscribed, Events: frame.Events})
		}
	}
}

// enqueue delivers a frame to the session's own buffer, dropping it if
// the session is backed up or already torn down.
func (h *Handler) enqueue(s *session, frame Frame) {
	if s.closed() {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case s.send <- data:
	default:
	}
}

func (h *Handler) writePump(conn *websocket.Conn, s *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-s.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-s.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
