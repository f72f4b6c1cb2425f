package store

import (
	"database/sql"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/matheus3301/resort/internal/chat"
)

const previewLen = 100

// ReplaceConversations stores convs as the complete conversation list of
// userID. Rows of conversations that are no longer listed are removed.
// counterpart decides which messages count as unread.
func (db *DB) ReplaceConversations(userID string, counterpart chat.Sender, convs []chat.Conversation) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM conversations WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}

	now := time.Now().UnixMilli()
	for i := range convs {
		c := &convs[i]
		var lastAt int64
		var lastSender string
		if last, ok := c.LastMessage(); ok {
			lastAt = last.Timestamp.UnixMilli()
			lastSender = string(last.Sender)
		} else {
			lastAt = c.CreatedAt.UnixMilli()
		}
		if _, err := tx.Exec(`
			INSERT INTO conversations (id, user_id, customer_id, resort_id, resort_name, unread_count,
				last_message_at, last_message_preview, last_sender, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				user_id = excluded.user_id,
				customer_id = excluded.customer_id,
				resort_id = excluded.resort_id,
				resort_name = excluded.resort_name,
				unread_count = excluded.unread_count,
				last_message_at = excluded.last_message_at,
				last_message_preview = excluded.last_message_preview,
				last_sender = excluded.last_sender,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at`,
			c.ID, userID, c.CustomerID, c.ResortID, c.ResortName, c.UnreadFor(counterpart),
			lastAt, truncate(c.Preview(), previewLen), lastSender, c.CreatedAt.UnixMilli(), now); err != nil {
			return fmt.Errorf("insert conversation %s: %w", c.ID, err)
		}
		if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, c.ID); err != nil {
			return fmt.Errorf("clear messages of %s: %w", c.ID, err)
		}
		for _, m := range c.Messages {
			if _, err := tx.Exec(`
				INSERT INTO messages (conversation_id, msg_id, sender, body, timestamp)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(conversation_id, msg_id) DO NOTHING`,
				c.ID, m.ID, string(m.Sender), m.Text, m.Timestamp.UnixMilli()); err != nil {
				return fmt.Errorf("insert message %s: %w", m.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit conversations: %w", err)
	}
	return nil
}

// AppendLiveMessage stores a message delivered by the chat socket
// (idempotent on conversation + message id) and updates the conversation
// summary. It reports whether the message was new.
func (db *DB) AppendLiveMessage(userID string, counterpart chat.Sender, m chat.LiveMessage) (bool, error) {
	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := m.Timestamp.UnixMilli()
	now := time.Now().UnixMilli()
	if _, err := tx.Exec(`
		INSERT INTO conversations (id, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		m.ConversationID, userID, ts, now); err != nil {
		return false, fmt.Errorf("ensure conversation: %w", err)
	}

	res, err := tx.Exec(`
		INSERT INTO messages (conversation_id, msg_id, sender, body, timestamp)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id, msg_id) DO NOTHING`,
		m.ConversationID, m.ID, string(m.Sender), m.Text, ts)
	if err != nil {
		return false, fmt.Errorf("insert message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	// Same rule as chat.Conversation.UnreadFor over the stored thread.
	if _, err := tx.Exec(`
		UPDATE conversations SET
			last_message_at = ?,
			last_message_preview = ?,
			last_sender = ?,
			unread_count = CASE WHEN ? = ?
				THEN (SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND sender = ?)
				ELSE 0 END,
			updated_at = ?
		WHERE id = ? AND last_message_at <= ?`,
		ts, truncate(m.Text, previewLen), string(m.Sender),
		string(m.Sender), string(counterpart), m.ConversationID, string(counterpart),
		now, m.ConversationID, ts); err != nil {
		return false, fmt.Errorf("update conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit message: %w", err)
	}
	return true, nil
}

// ListConversations returns the stored conversations of userID, most recent activity first.
func (db *DB) ListConversations(userID string) ([]Conversation, error) {
	rows, err := db.Query(`
		SELECT id, user_id, customer_id, resort_id, resort_name, unread_count,
			last_message_at, last_message_preview, last_sender, created_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY last_message_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.CustomerID, &c.ResortID, &c.ResortName, &c.UnreadCount,
			&c.LastMessageAt, &c.LastMessagePreview, &c.LastSender, &c.CreatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// GetConversation returns a single conversation, or nil if it is not stored.
func (db *DB) GetConversation(id string) (*Conversation, error) {
	var c Conversation
	err := db.QueryRow(`
		SELECT id, user_id, customer_id, resort_id, resort_name, unread_count,
			last_message_at, last_message_preview, last_sender, created_at
		FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.UserID, &c.CustomerID, &c.ResortID, &c.ResortName, &c.UnreadCount,
			&c.LastMessageAt, &c.LastMessagePreview, &c.LastSender, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListMessages returns the latest limit messages of a conversation in chronological order.
func (db *DB) ListMessages(conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, conversation_id, msg_id, sender, body, timestamp FROM (
			SELECT id, conversation_id, msg_id, sender, body, timestamp
			FROM messages
			WHERE conversation_id = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		) ORDER BY timestamp ASC, id ASC`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.MsgID, &m.Sender, &m.Body, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// UnreadTotal sums the stored per-conversation unread counts of userID.
func (db *DB) UnreadTotal(userID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COALESCE(SUM(unread_count), 0) FROM conversations WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// ConversationCount returns the number of stored conversations of userID.
func (db *DB) ConversationCount(userID string) (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM conversations WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// MessageCount returns the total number of stored messages.
func (db *DB) MessageCount() (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
