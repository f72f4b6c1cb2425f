package sync

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/matheus3301/resort/internal/store"
	"go.uber.org/zap"
)

// Reconciler manages refresh checkpoints in sync_state.
type Reconciler struct {
	db     *store.DB
	logger *zap.Logger
}

// NewReconciler creates a new reconciler.
func NewReconciler(db *store.DB, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{db: db, logger: logger}
}

func lastRefreshKey(userID string) string { return "last_refresh:" + userID }
func lastCountKey(userID string) string   { return "last_count:" + userID }

// UpdateCheckpoint updates a sync checkpoint value.
func (r *Reconciler) UpdateCheckpoint(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := r.db.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	return err
}

// GetCheckpoint retrieves a sync checkpoint value. ok is false when the key is unset.
func (r *Reconciler) GetCheckpoint(key string) (value string, ok bool, err error) {
	err = r.db.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// LastRefresh returns when the user's conversations were last stored.
func (r *Reconciler) LastRefresh(userID string) (time.Time, bool, error) {
	v, ok, err := r.GetCheckpoint(lastRefreshKey(userID))
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		r.logger.Warn("corrupt refresh checkpoint", zap.String("user_id", userID), zap.String("value", v))
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// LastCount returns the unread count of the user's last stored refresh.
func (r *Reconciler) LastCount(userID string) (int, bool, error) {
	v, ok, err := r.GetCheckpoint(lastCountKey(userID))
	if err != nil || !ok {
		return 0, false, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.logger.Warn("corrupt count checkpoint", zap.String("user_id", userID), zap.String("value", v))
		return 0, false, nil
	}
	return n, true, nil
}
