package unread

import (
	"time"

	"github.com/matheus3301/resort/internal/chat"
)

// Cause says which writer changed the count.
type Cause string

const (
	CauseRefresh     Cause = "refresh"
	CauseLiveMessage Cause = "live_message"
	CauseLocal       Cause = "local"
	CauseLogout      Cause = "logout"
)

// CountChange is the payload of bus.KindUnreadChanged.
type CountChange struct {
	UserID string
	From   int
	To     int
	Cause  Cause
}

// Snapshot is the payload of bus.KindUnreadRefreshed: the conversation list a
// refresh computed its count from.
type Snapshot struct {
	UserID        string
	Role          chat.Role
	Conversations []chat.Conversation
	Count         int
	At            time.Time
}

// LiveEvent is the payload of bus.KindUnreadMessage.
type LiveEvent struct {
	UserID  string
	Role    chat.Role
	Message chat.LiveMessage
}
