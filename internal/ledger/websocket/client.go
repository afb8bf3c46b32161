package websocket

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/trigg3rX/cipherwork/pkg/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

// Client is one websocket connection. Only the hub writes to send or closes it.
type Client struct {
	ID     string
	conn   *websocket.Conn
	hub    *Hub
	send   chan *Message
	logger logging.Logger
}

func NewClient(conn *websocket.Conn, hub *Hub, logger logging.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		ID:     id,
		conn:   conn,
		hub:    hub,
		send:   make(chan *Message, sendBufferSize),
		logger: logger.With("client", id),
	}
}

// ReadPump handles client requests until the connection fails
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warnf("Failed to set read deadline: %v", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			var ce *websocket.CloseError
			switch {
			case errors.As(err, &ce) && (ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway):
				c.logger.Debugf("Websocket closed: code=%d", ce.Code)
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
				c.logger.Warnf("Websocket error: %v", err)
			default:
				c.logger.Debugf("Websocket read ended: %v", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

// WritePump drains the send buffer and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Warnf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe:
		if !ValidRoom(msg.Room) {
			c.hub.reply(c, NewErrorMessage("INVALID_ROOM", "room must be all, task:<key> or worker:<identity>", msg.RequestID))
			return
		}
		s := subscription{client: c, room: msg.Room, requestID: msg.RequestID}
		if msg.Type == MessageTypeSubscribe {
			c.hub.requestSubscription(c.hub.subscribe, s)
		} else {
			c.hub.requestSubscription(c.hub.unsubscribe, s)
		}
	case MessageTypePing:
		c.hub.reply(c, newReply(MessageTypePong, "", msg.RequestID))
	default:
		c.hub.reply(c, NewErrorMessage("INVALID_MESSAGE_TYPE", "unknown message type", msg.RequestID))
	}
}
