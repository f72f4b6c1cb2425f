package chat

import "time"

// Sender identifies which side of a conversation wrote a message.
type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderOwner    Sender = "owner"
)

// Role is the role a user connects to the chat socket with.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleOwner    Role = "owner"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleOwner
}

// Counterpart returns the sender whose messages count as unread for r.
func (r Role) Counterpart() Sender {
	if r == RoleOwner {
		return SenderCustomer
	}
	return SenderOwner
}

// Message is a single chat message. Messages are append-only.
type Message struct {
	ID        string
	Sender    Sender
	Text      string
	Timestamp time.Time
}

// Conversation is a customer <-> resort chat thread as returned by the backend.
type Conversation struct {
	ID         string
	CustomerID string
	ResortID   string
	ResortName string
	Messages   []Message
	CreatedAt  time.Time
}

// LiveMessage is a message delivered by the chat socket.
type LiveMessage struct {
	ConversationID string
	ID             string
	Sender         Sender
	Text           string
	Timestamp      time.Time
}

// AsMessage drops the conversation reference.
func (m LiveMessage) AsMessage() Message {
	return Message{ID: m.ID, Sender: m.Sender, Text: m.Text, Timestamp: m.Timestamp}
}
