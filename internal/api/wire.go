package api

import (
	"google.golang.org/protobuf/types/known/structpb"
)

// Status is the body of GetStatus.
type Status struct {
	Session       string `json:"session" yaml:"session"`
	State         string `json:"state" yaml:"state"`
	UserID        string `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Role          string `json:"role,omitempty" yaml:"role,omitempty"`
	UptimeMs      int64  `json:"uptime_ms" yaml:"uptime_ms"`
	SessionMs     int64  `json:"session_ms,omitempty" yaml:"session_ms,omitempty"`
	Unread        int64  `json:"unread" yaml:"unread"`
	Conversations int64  `json:"conversations" yaml:"conversations"`
	Messages      int64  `json:"messages" yaml:"messages"`
	LastRefresh   string `json:"last_refresh,omitempty" yaml:"last_refresh,omitempty"`
}

// Conversation is one row of ListConversations.
type Conversation struct {
	ID            string `json:"id" yaml:"id"`
	ResortID      string `json:"resort_id" yaml:"resort_id"`
	ResortName    string `json:"resort_name" yaml:"resort_name"`
	Preview       string `json:"preview" yaml:"preview"`
	LastSender    string `json:"last_sender,omitempty" yaml:"last_sender,omitempty"`
	LastMessageAt int64  `json:"last_message_at" yaml:"last_message_at"`
	Unread        int64  `json:"unread" yaml:"unread"`
}

// Message is one row of ListMessages.
type Message struct {
	ID        string `json:"id" yaml:"id"`
	Sender    string `json:"sender" yaml:"sender"`
	Text      string `json:"text" yaml:"text"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
}

// Favorite is one row of ListFavorites.
type Favorite struct {
	ResortID string `json:"resort_id" yaml:"resort_id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
}

// FavoriteOp is the body of GetFavoriteOp.
type FavoriteOp struct {
	OpID     string `json:"op_id" yaml:"op_id"`
	ResortID string `json:"resort_id" yaml:"resort_id"`
	Action   string `json:"action" yaml:"action"`
	Status   string `json:"status" yaml:"status"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (s Status) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"session":       s.Session,
		"state":         s.State,
		"user_id":       s.UserID,
		"role":          s.Role,
		"uptime_ms":     s.UptimeMs,
		"session_ms":    s.SessionMs,
		"unread":        s.Unread,
		"conversations": s.Conversations,
		"messages":      s.Messages,
		"last_refresh":  s.LastRefresh,
	})
}

// StatusFromStruct decodes a GetStatus response.
func StatusFromStruct(st *structpb.Struct) Status {
	return Status{
		Session:       str(st, "session"),
		State:         str(st, "state"),
		UserID:        str(st, "user_id"),
		Role:          str(st, "role"),
		UptimeMs:      num(st, "uptime_ms"),
		SessionMs:     num(st, "session_ms"),
		Unread:        num(st, "unread"),
		Conversations: num(st, "conversations"),
		Messages:      num(st, "messages"),
		LastRefresh:   str(st, "last_refresh"),
	}
}

func (c Conversation) toValue() *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"id":              structpb.NewStringValue(c.ID),
		"resort_id":       structpb.NewStringValue(c.ResortID),
		"resort_name":     structpb.NewStringValue(c.ResortName),
		"preview":         structpb.NewStringValue(c.Preview),
		"last_sender":     structpb.NewStringValue(c.LastSender),
		"last_message_at": structpb.NewNumberValue(float64(c.LastMessageAt)),
		"unread":          structpb.NewNumberValue(float64(c.Unread)),
	}})
}

// ConversationsFromList decodes a ListConversations response.
func ConversationsFromList(l *structpb.ListValue) []Conversation {
	out := make([]Conversation, 0, len(l.GetValues()))
	for _, v := range l.GetValues() {
		st := v.GetStructValue()
		out = append(out, Conversation{
			ID:            str(st, "id"),
			ResortID:      str(st, "resort_id"),
			ResortName:    str(st, "resort_name"),
			Preview:       str(st, "preview"),
			LastSender:    str(st, "last_sender"),
			LastMessageAt: num(st, "last_message_at"),
			Unread:        num(st, "unread"),
		})
	}
	return out
}

func (m Message) toValue() *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"id":        structpb.NewStringValue(m.ID),
		"sender":    structpb.NewStringValue(m.Sender),
		"text":      structpb.NewStringValue(m.Text),
		"timestamp": structpb.NewNumberValue(float64(m.Timestamp)),
	}})
}

// MessagesFromList decodes a ListMessages response.
func MessagesFromList(l *structpb.ListValue) []Message {
	out := make([]Message, 0, len(l.GetValues()))
	for _, v := range l.GetValues() {
		st := v.GetStructValue()
		out = append(out, Message{
			ID:        str(st, "id"),
			Sender:    str(st, "sender"),
			Text:      str(st, "text"),
			Timestamp: num(st, "timestamp"),
		})
	}
	return out
}

func (f Favorite) toValue() *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"resort_id": structpb.NewStringValue(f.ResortID),
		"name":      structpb.NewStringValue(f.Name),
	}})
}

// FavoritesFromList decodes a ListFavorites response.
func FavoritesFromList(l *structpb.ListValue) []Favorite {
	out := make([]Favorite, 0, len(l.GetValues()))
	for _, v := range l.GetValues() {
		st := v.GetStructValue()
		out = append(out, Favorite{ResortID: str(st, "resort_id"), Name: str(st, "name")})
	}
	return out
}

func (o FavoriteOp) toStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"op_id":     structpb.NewStringValue(o.OpID),
		"resort_id": structpb.NewStringValue(o.ResortID),
		"action":    structpb.NewStringValue(o.Action),
		"status":    structpb.NewStringValue(o.Status),
		"error":     structpb.NewStringValue(o.Error),
	}}
}

// FavoriteOpFromStruct decodes a GetFavoriteOp response.
func FavoriteOpFromStruct(st *structpb.Struct) FavoriteOp {
	return FavoriteOp{
		OpID:     str(st, "op_id"),
		ResortID: str(st, "resort_id"),
		Action:   str(st, "action"),
		Status:   str(st, "status"),
		Error:    str(st, "error"),
	}
}

func str(st *structpb.Struct, key string) string {
	return st.GetFields()[key].GetStringValue()
}

func num(st *structpb.Struct, key string) int64 {
	return int64(st.GetFields()[key].GetNumberValue())
}
