package chat

import (
	"strconv"
	"time"
)

const noMessagesPreview = "No messages yet"

// LastMessage returns the most recent message of the conversation.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Preview returns the text of the last message, or a placeholder for empty threads.
func (c *Conversation) Preview() string {
	if last, ok := c.LastMessage(); ok {
		return last.Text
	}
	return noMessagesPreview
}

// LastActivity returns the timestamp of the last message, falling back to
// the conversation's creation time.
func (c *Conversation) LastActivity() time.Time {
	if last, ok := c.LastMessage(); ok {
		return last.Timestamp
	}
	return c.CreatedAt
}

// UnreadFor returns how many counterpart messages the viewer has not read.
//
// A conversation whose last message is the viewer's own is treated as fully
// read; otherwise every counterpart message in it counts. A customer passes
// SenderOwner.
func (c *Conversation) UnreadFor(counterpart Sender) int {
	last, ok := c.LastMessage()
	if !ok || last.Sender != counterpart {
		return 0
	}
	n := 0
	for _, m := range c.Messages {
		if m.Sender == counterpart {
			n++
		}
	}
	return n
}

// TotalUnread sums UnreadFor(counterpart) over all conversations.
func TotalUnread(convs []Conversation, counterpart Sender) int {
	total := 0
	for i := range convs {
		total += convs[i].UnreadFor(counterpart)
	}
	return total
}

// BadgeLabel renders a count for a tab badge: empty when there is nothing
// unread, capped at "99+".
func BadgeLabel(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > 99:
		return "99+"
	default:
		return strconv.Itoa(n)
	}
}
