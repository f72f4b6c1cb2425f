package store

import (
	"database/sql"
	"fmt"
	"time"
)

// QueueFavorite records a favorite mutation to be sent to the backend.
func (db *DB) QueueFavorite(opID, resortID, action string) error {
	if action != FavoriteAdd && action != FavoriteRemove {
		return fmt.Errorf("unknown favorite action %q", action)
	}
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO favorite_outbox (op_id, resort_id, action, status, created_at, updated_at)
		VALUES (?, ?, ?, 'queued', ?, ?)`,
		opID, resortID, action, now, now)
	return err
}

// MarkFavoriteSending updates an outbox entry to 'sending' status.
func (db *DB) MarkFavoriteSending(opID string) error {
	return db.setFavoriteStatus(opID, StatusSending, "")
}

// MarkFavoriteSent updates an outbox entry to 'sent'.
func (db *DB) MarkFavoriteSent(opID string) error {
	return db.setFavoriteStatus(opID, StatusSent, "")
}

// MarkFavoriteFailed updates an outbox entry to 'failed' with an error message.
func (db *DB) MarkFavoriteFailed(opID, errMsg string) error {
	return db.setFavoriteStatus(opID, StatusFailed, errMsg)
}

func (db *DB) setFavoriteStatus(opID, status, errMsg string) error {
	_, err := db.Exec(`UPDATE favorite_outbox SET status = ?, error_message = ?, updated_at = ? WHERE op_id = ?`,
		status, errMsg, time.Now().UnixMilli(), opID)
	return err
}

// RequeueSendingFavorites puts entries left in 'sending' by a crashed daemon
// back in the queue. It returns how many were requeued.
func (db *DB) RequeueSendingFavorites() (int64, error) {
	res, err := db.Exec(`UPDATE favorite_outbox SET status = 'queued', updated_at = ? WHERE status = 'sending'`,
		time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PendingFavorites returns queued entries, oldest first.
func (db *DB) PendingFavorites() ([]FavoriteOp, error) {
	rows, err := db.Query(`
		SELECT id, op_id, resort_id, action, status, error_message, created_at
		FROM favorite_outbox WHERE status = 'queued' ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ops []FavoriteOp
	for rows.Next() {
		var op FavoriteOp
		if err := rows.Scan(&op.ID, &op.OpID, &op.ResortID, &op.Action, &op.Status, &op.ErrorMessage, &op.CreatedAt); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// GetFavoriteOp returns an outbox entry by op id, or nil if unknown.
func (db *DB) GetFavoriteOp(opID string) (*FavoriteOp, error) {
	var op FavoriteOp
	err := db.QueryRow(`
		SELECT id, op_id, resort_id, action, status, error_message, created_at
		FROM favorite_outbox WHERE op_id = ?`, opID).
		Scan(&op.ID, &op.OpID, &op.ResortID, &op.Action, &op.Status, &op.ErrorMessage, &op.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &op, nil
}
