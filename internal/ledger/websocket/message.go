package websocket

import (
	"strings"
	"time"

	"github.com/trigg3rX/cipherwork/pkg/eventbus"
	"github.com/trigg3rX/cipherwork/pkg/events"
	"github.com/trigg3rX/cipherwork/pkg/types"
)

type MessageType string

const (
	MessageTypeConnected MessageType = "CONNECTED"
	MessageTypeEvent     MessageType = "EVENT"
	MessageTypeGap       MessageType = "GAP"

	MessageTypeSubscribe   MessageType = "SUBSCRIBE"
	MessageTypeUnsubscribe MessageType = "UNSUBSCRIBE"
	MessageTypePing        MessageType = "PING"
	MessageTypePong        MessageType = "PONG"
	MessageTypeError       MessageType = "ERROR"
	MessageTypeSuccess     MessageType = "SUCCESS"
)

// RoomAll receives every event. New clients start in it.
const RoomAll = "all"

const (
	taskRoomPrefix   = "task:"
	workerRoomPrefix = "worker:"
)

// Message is the frame exchanged with clients in both directions
type Message struct {
	Type      MessageType `json:"type"`
	Room      string      `json:"room,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GapData is the inclusive range of sequence numbers the hub never received
type GapData struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

type ConnectedData struct {
	ClientID string `json:"client_id"`
}

func TaskRoom(key string) string {
	return taskRoomPrefix + key
}

func WorkerRoom(identity string) string {
	return workerRoomPrefix + types.NormalizeIdentity(identity)
}

// ValidRoom accepts RoomAll and non-empty task or worker rooms
func ValidRoom(room string) bool {
	if room == RoomAll {
		return true
	}
	for _, prefix := range []string{taskRoomPrefix, workerRoomPrefix} {
		if strings.HasPrefix(room, prefix) && len(room) > len(prefix) {
			return true
		}
	}
	return false
}

// eventRooms lists the rooms an event is delivered to
func eventRooms(ev events.Event) []string {
	rooms := []string{RoomAll}
	if ev.TaskKey != "" {
		rooms = append(rooms, TaskRoom(ev.TaskKey))
	}
	if ev.Identity != "" {
		rooms = append(rooms, WorkerRoom(ev.Identity))
	}
	return rooms
}

func NewEventMessage(ev events.Event) *Message {
	return &Message{Type: MessageTypeEvent, Data: ev, Timestamp: time.Now().UTC()}
}

func NewGapMessage(gap eventbus.Gap) *Message {
	return &Message{Type: MessageTypeGap, Data: GapData{From: gap.From, To: gap.To}, Timestamp: time.Now().UTC()}
}

func NewErrorMessage(code, message, requestID string) *Message {
	return &Message{
		Type:      MessageTypeError,
		Data:      ErrorData{Code: code, Message: message},
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

func newReply(typ MessageType, room, requestID string) *Message {
	return &Message{Type: typ, Room: room, Timestamp: time.Now().UTC(), RequestID: requestID}
}
