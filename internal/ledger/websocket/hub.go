// Package websocket pushes committed ledger events to websocket clients.
//
// A single hub goroutine owns every client and room, so each client sees
// events in commit order. A client that cannot keep up is disconnected.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/trigg3rX/cipherwork/internal/ledger/metrics"
	"github.com/trigg3rX/cipherwork/pkg/eventbus"
	"github.com/trigg3rX/cipherwork/pkg/events"
	"github.com/trigg3rX/cipherwork/pkg/logging"
)

const consumerName = "websocket_hub"

type subscription struct {
	client    *Client
	room      string
	requestID string
}

type directMessage struct {
	client  *Client
	message *Message
}

type Hub struct {
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	direct      chan directMessage
	done        chan struct{}
	closeOnce   sync.Once

	mu     sync.RWMutex
	logger logging.Logger
}

func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Hub{
		clients:     make(map[*Client]struct{}),
		rooms:       make(map[string]map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		direct:      make(chan directMessage, 64),
		done:        make(chan struct{}),
		logger:      logger.With("component", "websocket_hub"),
	}
}

// Run fans events from source out to clients until ctx is cancelled or the feed closes.
// When the hub itself falls behind it subscribes again and tells every client
// which sequence numbers were skipped. Every client is disconnected when Run returns.
func (h *Hub) Run(ctx context.Context, source eventbus.Source) {
	sub := source.Subscribe()
	defer func() { source.Unsubscribe(sub) }()
	defer h.shutdown()

	var cursor eventbus.Cursor

	h.logger.Info("Starting websocket hub")
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case s := <-h.subscribe:
			h.join(s)
		case s := <-h.unsubscribe:
			h.leave(s)
		case d := <-h.direct:
			h.deliver(d.client, d.message)
		case ev, ok := <-sub.C:
			if !ok {
				if !sub.Dropped() || ctx.Err() != nil {
					h.logger.Warn("Event feed closed, websocket hub stopping")
					return
				}
				sub = source.Subscribe()
				metrics.ConsumerResubscribesTotal.WithLabelValues(consumerName).Inc()
				h.logger.Warn("Websocket hub fell behind, resubscribed", "last_seq", cursor.Last())
				continue
			}
			if gap, skipped := cursor.Advance(ev.Seq); skipped {
				h.announceGap(gap)
			}
			h.broadcast(ev)
		case <-ctx.Done():
			h.logger.Info("Websocket hub shutting down")
			return
		}
	}
}

// Register hands a client to the hub; false once the hub has stopped
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make(map[string]int, len(h.rooms))
	for room, members := range h.rooms {
		rooms[room] = len(members)
	}
	return map[string]interface{}{
		"total_clients": len(h.clients),
		"total_rooms":   len(h.rooms),
		"rooms":         rooms,
	}
}

func (h *Hub) requestSubscription(ch chan subscription, s subscription) {
	select {
	case ch <- s:
	case <-h.done:
	}
}

func (h *Hub) reply(c *Client, msg *Message) {
	select {
	case h.direct <- directMessage{client: c, message: msg}:
	case <-h.done:
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.joinLocked(c, RoomAll)
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebsocketClients.Set(float64(total))
	h.logger.Infof("Client %s registered. Total clients: %d", c.ID, total)
	h.deliver(c, &Message{Type: MessageTypeConnected, Room: RoomAll, Data: ConnectedData{ClientID: c.ID}, Timestamp: time.Now().UTC()})
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

// dropLocked disconnects c; the caller holds h.mu
func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	metrics.WebsocketClients.Set(float64(len(h.clients)))
	h.logger.Infof("Client %s unregistered. Total clients: %d", c.ID, len(h.clients))
}

func (h *Hub) joinLocked(c *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
}

func (h *Hub) join(s subscription) {
	h.mu.Lock()
	if _, ok := h.clients[s.client]; !ok {
		h.mu.Unlock()
		return
	}
	h.joinLocked(s.client, s.room)
	h.mu.Unlock()

	h.logger.Debugf("Client %s subscribed to room %s", s.client.ID, s.room)
	h.deliver(s.client, newReply(MessageTypeSuccess, s.room, s.requestID))
}

func (h *Hub) leave(s subscription) {
	h.mu.Lock()
	if members, ok := h.rooms[s.room]; ok {
		delete(members, s.client)
		if len(members) == 0 {
			delete(h.rooms, s.room)
		}
	}
	h.mu.Unlock()

	h.logger.Debugf("Client %s unsubscribed from room %s", s.client.ID, s.room)
	h.deliver(s.client, newReply(MessageTypeSuccess, s.room, s.requestID))
}

// deliver queues msg for c without blocking, dropping c when its buffer is full
func (h *Hub) deliver(c *Client, msg *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverLocked(c, msg)
}

func (h *Hub) deliverLocked(c *Client, msg *Message) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.logger.Warnf("Client %s is too slow, disconnecting", c.ID)
		h.dropLocked(c)
	}
}

func (h *Hub) broadcast(ev events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	targets := make(map[*Client]struct{})
	for _, room := range eventRooms(ev) {
		for c := range h.rooms[room] {
			targets[c] = struct{}{}
		}
	}
	if len(targets) == 0 {
		return
	}

	msg := NewEventMessage(ev)
	for c := range targets {
		h.deliverLocked(c, msg)
	}
}

// announceGap tells every client, whatever its rooms, that a range of events was never delivered
func (h *Hub) announceGap(gap eventbus.Gap) {
	metrics.EventsMissedTotal.WithLabelValues(consumerName).Add(float64(gap.Len()))
	h.logger.Warn("Events missed while resubscribing", "from", gap.From, "to", gap.To)

	h.mu.Lock()
	defer h.mu.Unlock()
	msg := NewGapMessage(gap)
	for c := range h.clients {
		h.deliverLocked(c, msg)
	}
}

func (h *Hub) shutdown() {
	h.closeOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
	}
}
