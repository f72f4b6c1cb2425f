package bus

import "time"

// Event kinds published by the daemon. Subscribers filter on the prefix
// before the first dot ("unread.", "session.", "store.", "favorite.").
const (
	KindStatusChanged   = "session.status_changed"
	KindUnreadChanged   = "unread.changed"
	KindUnreadRefreshed = "unread.refreshed"
	KindUnreadMessage   = "unread.message"
	KindSnapshotStored  = "store.snapshot_stored"
	KindMessageStored   = "store.message_stored"
	KindFavoriteAck     = "favorite.ack"
	KindFavoriteFailed  = "favorite.failed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
