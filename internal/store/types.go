package store

// Conversation is the stored summary of one chat thread.
type Conversation struct {
	ID                 string
	UserID             string
	CustomerID         string
	ResortID           string
	ResortName         string
	UnreadCount        int
	LastMessageAt      int64
	LastMessagePreview string
	LastSender         string
	CreatedAt          int64
}

// Message is a stored chat message.
type Message struct {
	ID             int64
	ConversationID string
	MsgID          string
	Sender         string
	Body           string
	Timestamp      int64
}

// Favorite outbox actions.
const (
	FavoriteAdd    = "add"
	FavoriteRemove = "remove"
)

// Favorite outbox statuses.
const (
	StatusQueued  = "queued"
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// FavoriteOp is a pending or finished favorite mutation.
type FavoriteOp struct {
	ID           int64
	OpID         string
	ResortID     string
	Action       string
	Status       string
	ErrorMessage string
	CreatedAt    int64
}
