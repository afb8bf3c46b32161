package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trigg3rX/cipherwork/pkg/eventbus"
	"github.com/trigg3rX/cipherwork/pkg/events"
)

type wireMessage struct {
	Type      MessageType     `json:"type"`
	Room      string          `json:"room"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
}

type harness struct {
	t      *testing.T
	bus    *eventbus.EventBus
	hub    *Hub
	server *httptest.Server
	cancel context.CancelFunc
}

func newHarness(t *testing.T) *harness {
	bus := eventbus.New(nil, 64)
	return startHarness(t, bus, bus)
}

func startHarness(t *testing.T, bus *eventbus.EventBus, source eventbus.Source) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{t: t, bus: bus, hub: NewHub(nil)}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.hub.Run(ctx, source)

	router := gin.New()
	router.GET("/ws", NewHandler(h.hub, nil).Serve)
	h.server = httptest.NewServer(router)
	t.Cleanup(func() {
		cancel()
		h.server.Close()
	})
	return h
}

func (h *harness) dial() *gorilla.Conn {
	h.t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws"
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = conn.Close() })

	msg := read(h.t, conn)
	require.Equal(h.t, MessageTypeConnected, msg.Type)
	return conn
}

func read(t *testing.T, conn *gorilla.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readEvent(t *testing.T, conn *gorilla.Conn) events.Event {
	t.Helper()
	msg := read(t, conn)
	require.Equal(t, MessageTypeEvent, msg.Type)
	var ev events.Event
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	return ev
}

func send(t *testing.T, conn *gorilla.Conn, msg Message) wireMessage {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	return read(t, conn)
}

func TestHub_BroadcastsInCommitOrder(t *testing.T) {
	h := newHarness(t)
	first, second := h.dial(), h.dial()

	h.bus.Publish(events.Event{Type: events.TaskCreated, TaskKey: "t1"})
	h.bus.Publish(events.Event{Type: events.TaskAssigned, TaskKey: "t1", Identity: "0xaa"})

	for _, conn := range []*gorilla.Conn{first, second} {
		ev := readEvent(t, conn)
		assert.Equal(t, uint64(1), ev.Seq)
		assert.Equal(t, events.TaskCreated, ev.Type)
		ev = readEvent(t, conn)
		assert.Equal(t, uint64(2), ev.Seq)
		assert.Equal(t, events.TaskAssigned, ev.Type)
	}
}

func TestHub_RoomFiltering(t *testing.T) {
	h := newHarness(t)
	conn := h.dial()

	reply := send(t, conn, Message{Type: MessageTypeSubscribe, Room: TaskRoom("t2"), RequestID: "r1"})
	assert.Equal(t, MessageTypeSuccess, reply.Type)
	assert.Equal(t, "r1", reply.RequestID)

	reply = send(t, conn, Message{Type: MessageTypeUnsubscribe, Room: RoomAll})
	assert.Equal(t, MessageTypeSuccess, reply.Type)

	h.bus.Publish(events.Event{Type: events.TaskCreated, TaskKey: "t1"})
	h.bus.Publish(events.Event{Type: events.TaskCreated, TaskKey: "t2"})

	ev := readEvent(t, conn)
	assert.Equal(t, "t2", ev.TaskKey)
	assert.Equal(t, uint64(2), ev.Seq)
}

func TestHub_WorkerRoomDeliversOnce(t *testing.T) {
	h := newHarness(t)
	conn := h.dial()

	reply := send(t, conn, Message{Type: MessageTypeSubscribe, Room: WorkerRoom("0xAA")})
	require.Equal(t, MessageTypeSuccess, reply.Type)

	h.bus.Publish(events.Event{Type: events.WorkerRegistered, Identity: "0xaa"})
	h.bus.Publish(events.Event{Type: events.WorkerRegistered, Identity: "0xbb"})

	assert.Equal(t, uint64(1), readEvent(t, conn).Seq)
	assert.Equal(t, uint64(2), readEvent(t, conn).Seq, "an event matching two rooms is sent once")
}

func TestHub_RequestErrors(t *testing.T) {
	h := newHarness(t)
	conn := h.dial()

	reply := send(t, conn, Message{Type: MessageTypeSubscribe, Room: "task:"})
	assert.Equal(t, MessageTypeError, reply.Type)

	reply = send(t, conn, Message{Type: "SHOUT"})
	require.Equal(t, MessageTypeError, reply.Type)
	var data ErrorData
	require.NoError(t, json.Unmarshal(reply.Data, &data))
	assert.Equal(t, "INVALID_MESSAGE_TYPE", data.Code)

	reply = send(t, conn, Message{Type: MessageTypePing, RequestID: "p"})
	assert.Equal(t, MessageTypePong, reply.Type)
	assert.Equal(t, "p", reply.RequestID)
}

func TestHub_ClientCountTracksConnections(t *testing.T) {
	h := newHarness(t)
	conn := h.dial()
	h.dial()

	assert.Equal(t, 2, h.hub.Stats()["total_clients"])

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return h.hub.Stats()["total_clients"] == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHub_ShutdownDisconnectsClients(t *testing.T) {
	h := newHarness(t)
	conn := h.dial()

	h.cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, gorilla.IsCloseError(err, gorilla.CloseGoingAway), "unexpected error: %v", err)
	assert.False(t, h.hub.Register(&Client{}))
}

type recordingSource struct {
	*eventbus.EventBus
	subs chan *eventbus.Subscription
}

func (s *recordingSource) Subscribe(types ...events.EventType) *eventbus.Subscription {
	sub := s.EventBus.Subscribe(types...)
	s.subs <- sub
	return sub
}

func nextSubscription(t *testing.T, s *recordingSource) *eventbus.Subscription {
	t.Helper()
	select {
	case sub := <-s.subs:
		return sub
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not subscribe")
		return nil
	}
}

func TestHub_ResubscribesAndReportsGap(t *testing.T) {
	bus := eventbus.New(nil, 1)
	source := &recordingSource{EventBus: bus, subs: make(chan *eventbus.Subscription, 4)}
	h := startHarness(t, bus, source)
	first := nextSubscription(t, source)
	conn := h.dial()

	// Holding the hub lock stalls broadcast of seq 1 so seq 2 fills the buffer and seq 3 drops the hub.
	h.hub.mu.Lock()
	bus.Publish(events.Event{Type: events.TaskCreated, TaskKey: "t1"})
	require.Eventually(t, func() bool { return len(first.C) == 0 }, time.Second, time.Millisecond)
	bus.Publish(events.Event{Type: events.TaskCreated, TaskKey: "t2"})
	bus.Publish(events.Event{Type: events.TaskCreated, TaskKey: "t3"})
	bus.Publish(events.Event{Type: events.TaskCreated, TaskKey: "t4"})
	h.hub.mu.Unlock()

	assert.True(t, first.Dropped())
	nextSubscription(t, source)
	bus.Publish(events.Event{Type: events.TaskCreated, TaskKey: "t5"})

	assert.Equal(t, uint64(1), readEvent(t, conn).Seq)
	assert.Equal(t, uint64(2), readEvent(t, conn).Seq)

	msg := read(t, conn)
	require.Equal(t, MessageTypeGap, msg.Type)
	var gap GapData
	require.NoError(t, json.Unmarshal(msg.Data, &gap))
	assert.Equal(t, GapData{From: 3, To: 4}, gap)

	ev := readEvent(t, conn)
	assert.Equal(t, uint64(5), ev.Seq)
	assert.Equal(t, "t5", ev.TaskKey)
	assert.Equal(t, 1, h.hub.Stats()["total_clients"])
}

func TestValidRoom(t *testing.T) {
	assert.True(t, ValidRoom(RoomAll))
	assert.True(t, ValidRoom("task:t1"))
	assert.True(t, ValidRoom(WorkerRoom("0xAB")))
	assert.Equal(t, "worker:0xab", WorkerRoom(" 0xAB "))
	assert.False(t, ValidRoom("task:"))
	assert.False(t, ValidRoom("jobs"))
}
