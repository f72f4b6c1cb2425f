// Package chatsock is the client side of the resort chat socket.
//
// Frames are JSON envelopes {"op": ..., "d": ..., "seq": ...}.
//
// Client -> server: join, heartbeat.
// Server -> client: ready, join_error, new_message, messages_read, heartbeat_ack.
package chatsock

import (
	"encoding/json"
	"time"

	"github.com/matheus3301/resort/internal/chat"
)

// Event is one frame on the socket.
type Event struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
}

// Client -> server ops.
const (
	OpJoin      = "join"
	OpHeartbeat = "heartbeat"
)

// Server -> client ops.
const (
	OpReady        = "ready"
	OpJoinError    = "join_error"
	OpNewMessage   = "new_message"
	OpMessagesRead = "messages_read"
	OpHeartbeatAck = "heartbeat_ack"
)

// JoinData scopes the connection to one user.
type JoinData struct {
	UserID       string `json:"userId"`
	Role         string `json:"role"`
	ConnectionID string `json:"connectionId"`
}

// JoinErrorData explains a rejected join.
type JoinErrorData struct {
	Reason string `json:"reason"`
}

// MessageData is the payload of new_message.
type MessageData struct {
	ChatID    string    `json:"chatId"`
	ID        string    `json:"_id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func (m MessageData) live() chat.LiveMessage {
	return chat.LiveMessage{
		ConversationID: m.ChatID,
		ID:             m.ID,
		Sender:         chat.Sender(m.Sender),
		Text:           m.Text,
		Timestamp:      m.Timestamp,
	}
}

// ReadData is the payload of messages_read. Handlers do not depend on it.
type ReadData struct {
	ChatID string `json:"chatId"`
	Reader string `json:"reader,omitempty"`
}

func newEvent(op string, data any) (Event, error) {
	if data == nil {
		return Event{Op: op}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Op: op, Data: raw}, nil
}
