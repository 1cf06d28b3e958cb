package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSession(businessID uuid.UUID, device string) *session {
	return &session{
		businessID: businessID,
		userID:     uuid.New(),
		deviceID:   device,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}
}

func recvFrame(t *testing.T, s *session) Frame {
	t.Helper()
	select {
	case data := <-s.send:
		var f Frame
		require.NoError(t, json.Unmarshal(data, &f))
		return f
	default:
		t.Fatal("no frame queued")
		return Frame{}
	}
}

func TestBroadcastReachesTenantOnly(t *testing.T) {
	hub := NewHub(zap.NewNop())
	bizA, bizB := uuid.New(), uuid.New()
	a1 := newTestSession(bizA, "a1")
	a2 := newTestSession(bizA, "a2")
	b1 := newTestSession(bizB, "b1")
	hub.register(a1)
	hub.register(a2)
	hub.register(b1)

	hub.Broadcast(bizA, Frame{Type: FrameSyncEvent, EventType: EventSaleCreated}, nil)

	assert.Equal(t, EventSaleCreated, recvFrame(t, a1).EventType)
	assert.Equal(t, EventSaleCreated, recvFrame(t, a2).EventType)
	assert.Empty(t, b1.send)
}

func TestBroadcastExcludesSender(t *testing.T) {
	hub := NewHub(zap.NewNop())
	biz := uuid.New()
	sender := newTestSession(biz, "sender")
	peer := newTestSession(biz, "peer")
	hub.register(sender)
	hub.register(peer)

	hub.Broadcast(biz, Frame{Type: FrameSyncEvent, EventType: EventStockUpdated}, sender)

	assert.Empty(t, sender.send)
	assert.Equal(t, EventStockUpdated, recvFrame(t, peer).EventType)
}

func TestBroadcastPrunesSlowConnections(t *testing.T) {
	hub := NewHub(zap.NewNop())
	biz := uuid.New()
	slow := newTestSession(biz, "slow")
	fast := newTestSession(biz, "fast")
	hub.register(slow)
	hub.register(fast)

	// Fill the slow session's buffer so the next broadcast cannot queue.
	for i := 0; i < sendBuffer; i++ {
		slow.send <- []byte(`{}`)
	}
	hub.Broadcast(biz, Frame{Type: FrameSyncEvent, EventType: EventSaleCreated}, nil)

	assert.Equal(t, 1, hub.connections(biz))
	recvFrame(t, fast)
}

func TestPrunedSessionSurvivesLateSends(t *testing.T) {
	hub := NewHub(zap.NewNop())
	handler := NewHandler(hub, zap.NewNop())
	biz := uuid.New()
	s := newTestSession(biz, "stale")
	peer := newTestSession(biz, "peer")
	hub.register(s)
	hub.register(peer)

	for i := 0; i < sendBuffer; i++ {
		s.send <- []byte(`{}`)
	}
	hub.Broadcast(biz, Frame{Type: FrameSyncEvent, EventType: EventSaleCreated}, nil)
	require.True(t, s.closed())

	// The session's readPump may still be handling an inbound frame and
	// other goroutines may hold the pointer; neither path may panic.
	handler.enqueue(s, Frame{Type: FramePong})
	hub.Broadcast(biz, Frame{Type: FrameSyncEvent, EventType: EventStockUpdated}, nil)
	hub.unregister(s)

	recvFrame(t, peer)
	assert.Equal(t, EventStockUpdated, recvFrame(t, peer).EventType)
}

func TestUnregisterClosesSession(t *testing.T) {
	hub := NewHub(zap.NewNop())
	biz := uuid.New()
	s := newTestSession(biz, "d1")
	hub.register(s)
	require.Equal(t, 1, hub.connections(biz))

	hub.unregister(s)
	assert.Equal(t, 0, hub.connections(biz))
	assert.True(t, s.closed())

	// A second unregister of the same session is a no-op.
	hub.unregister(s)
}

func TestShutdownClosesEverySession(t *testing.T) {
	hub := NewHub(zap.NewNop())
	s1 := newTestSession(uuid.New(), "d1")
	s2 := newTestSession(uuid.New(), "d2")
	hub.register(s1)
	hub.register(s2)

	hub.Shutdown()

	assert.True(t, s1.closed())
	assert.True(t, s2.closed())
	assert.Equal(t, 0, hub.connections(s1.businessID))
}

func TestBroadcastEventWrapsFrame(t *testing.T) {
	hub := NewHub(zap.NewNop())
	biz := uuid.New()
	s := newTestSession(biz, "d1")
	hub.register(s)

	hub.BroadcastEvent(&Event{
		BusinessID: biz,
		EventType:  EventProductUpdated,
		Payload:    json.RawMessage(`{"product_id":"p-1"}`),
	})

	f := recvFrame(t, s)
	assert.Equal(t, FrameSyncEvent, f.Type)
	assert.Equal(t, EventProductUpdated, f.EventType)
	assert.JSONEq(t, `{"product_id":"p-1"}`, string(f.Payload))
}
