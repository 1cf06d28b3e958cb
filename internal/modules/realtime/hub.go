package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suqhub/suq-backend/internal/metrics"
)

// session is one live connection. Frames are delivered through the
// buffered send channel; a session that cannot keep up is pruned rather
// than blocking the broadcast to its tenant peers. send is never
// closed: a pruned session's readPump may still be relaying frames, so
// teardown is signalled through done instead and stale enqueues land in
// the buffer harmlessly.
type session struct {
	businessID uuid.UUID
	userID     uuid.UUID
	deviceID   string
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

func (s *session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Hub holds live connections grouped by business. It is created at
// startup, injected into the websocket handler and the outbox
// dispatcher, and torn down when the server stops. Delivery is best
// effort only; clients re-pull on reconnect to catch up.
type Hub struct {
	logger *zap.Logger

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*session]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		rooms:  make(map[uuid.UUID]map[*session]struct{}),
	}
}

const sendBuffer = 32

func (h *Hub) register(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[s.businessID]
	if !ok {
		room = make(map[*session]struct{})
		h.rooms[s.businessID] = room
	}
	room[s] = struct{}{}
	metrics.WSConnections.Inc()
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[s.businessID]
	if !ok {
		return
	}
	if _, present := room[s]; !present {
		return
	}
	delete(room, s)
	if len(room) == 0 {
		delete(h.rooms, s.businessID)
	}
	s.close()
	metrics.WSConnections.Dec()
}

// Broadcast sends a frame to every connection of a business. exclude
// may be nil; when set, that session is skipped (sender exclusion for
// client-relayed sync_event frames). Sessions with a full send buffer
// are pruned.
func (h *Hub) Broadcast(businessID uuid.UUID, frame Frame, exclude *session) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("marshal frame", zap.Error(err))
		return
	}

	h.mu.RLock()
	room := h.rooms[businessID]
	targets := make([]*session, 0, len(room))
	for s := range room {
		if s == exclude {
			continue
		}
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	var dead []*session
	for _, s := range targets {
		if s.closed() {
			continue
		}
		select {
		case s.send <- data:
		default:
			dead = append(dead, s)
		}
	}
	for _, s := range dead {
		metrics.BroadcastDroppedTotal.Inc()
		h.logger.Warn("pruning slow connection",
			zap.String("business_id", businessID.String()),
			zap.String("device_id", s.deviceID))
		h.unregister(s)
	}
}

// BroadcastEvent relays a committed sync event to its tenant.
func (h *Hub) BroadcastEvent(e *Event) {
	h.Broadcast(e.BusinessID, Frame{
		Type:      FrameSyncEvent,
		EventType: e.EventType,
		Payload:   e.Payload,
		Timestamp: e.CreatedAt.UTC().Format(time.RFC3339),
	}, nil)
}

// Shutdown closes every live session.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for biz, room := range h.rooms {
		for s := range room {
			s.close()
		}
		delete(h.rooms, biz)
	}
}

// connections reports the number of live sessions for a business.
func (h *Hub) connections(businessID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[businessID])
}
