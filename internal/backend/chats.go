package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matheus3301/resort/internal/chat"
)

// ref is a populated document reference. The API returns either the
// populated object or, for unpopulated fields, the bare id string.
type ref struct {
	ID         string `json:"_id"`
	ResortName string `json:"resort_name,omitempty"`
}

func (r *ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	type plain ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ref(p)
	return nil
}

type apiMessage struct {
	ID        string    `json:"_id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type apiChat struct {
	ID         string       `json:"_id"`
	CustomerID ref          `json:"customer_id"`
	ResortID   ref          `json:"resort_id"`
	Messages   []apiMessage `json:"messages"`
	CreatedAt  time.Time    `json:"createdAt"`
}

func (a *apiChat) toConversation() chat.Conversation {
	c := chat.Conversation{
		ID:         a.ID,
		CustomerID: a.CustomerID.ID,
		ResortID:   a.ResortID.ID,
		ResortName: a.ResortID.ResortName,
		CreatedAt:  a.CreatedAt,
		Messages:   make([]chat.Message, 0, len(a.Messages)),
	}
	for _, m := range a.Messages {
		c.Messages = append(c.Messages, chat.Message{
			ID:        m.ID,
			Sender:    chat.Sender(m.Sender),
			Text:      m.Text,
			Timestamp: m.Timestamp,
		})
	}
	return c
}

// UserChats fetches every conversation the user takes part in. The backend
// returns the full list; there is no pagination on this path.
func (c *Client) UserChats(ctx context.Context, userID string) ([]chat.Conversation, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	var raw []apiChat
	if err := c.get(ctx, "/chats/user/"+pathEscape(userID), &raw); err != nil {
		return nil, err
	}
	convs := make([]chat.Conversation, 0, len(raw))
	for i := range raw {
		convs = append(convs, raw[i].toConversation())
	}
	return convs, nil
}
