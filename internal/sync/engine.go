// Package sync mirrors the unread tracker's view of the conversations into
// the snapshot store.
package sync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/matheus3301/resort/internal/bus"
	"github.com/matheus3301/resort/internal/store"
	"github.com/matheus3301/resort/internal/unread"
	"go.uber.org/zap"
)

// Engine persists refresh snapshots and live messages. It subscribes to
// "unread." events on the bus and handles them in publish order.
type Engine struct {
	db         *store.DB
	bus        *bus.Bus
	reconciler *Reconciler
	logger     *zap.Logger
	cancel     context.CancelFunc
}

// SnapshotStored is the payload of bus.KindSnapshotStored.
type SnapshotStored struct {
	UserID        string
	Conversations int
	Unread        int
}

// NewEngine creates a new sync engine.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:         db,
		bus:        b,
		reconciler: NewReconciler(db, logger),
		logger:     logger,
	}
}

// Reconciler returns the checkpoint store used by the engine.
func (e *Engine) Reconciler() *Reconciler { return e.reconciler }

// Start subscribes to unread events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("unread.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindUnreadRefreshed:
		snap, ok := evt.Payload.(unread.Snapshot)
		if !ok {
			return
		}
		if err := e.StoreSnapshot(snap); err != nil {
			e.logger.Error("failed to store snapshot", zap.Error(err), zap.String("user_id", snap.UserID))
		}
	case bus.KindUnreadMessage:
		live, ok := evt.Payload.(unread.LiveEvent)
		if !ok {
			return
		}
		if err := e.StoreLiveMessage(live); err != nil {
			e.logger.Error("failed to store live message", zap.Error(err),
				zap.String("conversation_id", live.Message.ConversationID),
				zap.String("msg_id", live.Message.ID))
		}
	}
}

// StoreSnapshot replaces the user's stored conversations with the snapshot
// and records the refresh checkpoints.
func (e *Engine) StoreSnapshot(snap unread.Snapshot) error {
	if err := e.db.ReplaceConversations(snap.UserID, snap.Role.Counterpart(), snap.Conversations); err != nil {
		return fmt.Errorf("replace conversations: %w", err)
	}
	at := snap.At
	if at.IsZero() {
		at = time.Now()
	}
	if err := e.reconciler.UpdateCheckpoint(lastRefreshKey(snap.UserID), at.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("checkpoint refresh time: %w", err)
	}
	if err := e.reconciler.UpdateCheckpoint(lastCountKey(snap.UserID), strconv.Itoa(snap.Count)); err != nil {
		return fmt.Errorf("checkpoint count: %w", err)
	}

	e.bus.Publish(bus.Event{
		Kind: bus.KindSnapshotStored,
		Payload: SnapshotStored{
			UserID:        snap.UserID,
			Conversations: len(snap.Conversations),
			Unread:        snap.Count,
		},
	})
	e.logger.Info("snapshot stored",
		zap.String("user_id", snap.UserID),
		zap.Int("conversations", len(snap.Conversations)),
		zap.Int("unread", snap.Count))
	return nil
}

// StoreLiveMessage appends a socket message to its conversation (idempotent).
func (e *Engine) StoreLiveMessage(live unread.LiveEvent) error {
	inserted, err := e.db.AppendLiveMessage(live.UserID, live.Role.Counterpart(), live.Message)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}
	e.bus.Publish(bus.Event{
		Kind: bus.KindMessageStored,
		Payload: map[string]string{
			"conversation_id": live.Message.ConversationID,
			"msg_id":          live.Message.ID,
		},
	})
	return nil
}
