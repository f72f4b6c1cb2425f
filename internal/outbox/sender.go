// Package outbox delivers queued favorite mutations to the backend.
package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/resort/internal/backend"
	"github.com/matheus3301/resort/internal/bus"
	"github.com/matheus3301/resort/internal/store"
	"go.uber.org/zap"
)

const pollInterval = 500 * time.Millisecond

// FavoriteClient is the part of the backend client the sender calls.
type FavoriteClient interface {
	AddFavorite(ctx context.Context, resortID string) (*backend.FavoriteResponse, error)
	RemoveFavorite(ctx context.Context, resortID string) (*backend.FavoriteResponse, error)
}

// Result is the payload of bus.KindFavoriteAck and bus.KindFavoriteFailed.
type Result struct {
	OpID     string
	ResortID string
	Action   string
	Message  string
	Error    string
}

// Sender drains the favorite outbox.
type Sender struct {
	db     *store.DB
	client FavoriteClient
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSender creates a new outbox sender.
func NewSender(db *store.DB, client FavoriteClient, b *bus.Bus, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		db:     db,
		client: client,
		bus:    b,
		logger: logger,
	}
}

// Queue records an add or remove of resortID and returns its op id. The
// request is sent on the next poll.
func (s *Sender) Queue(resortID, action string) (string, error) {
	if resortID == "" {
		return "", fmt.Errorf("resort id is required")
	}
	opID := uuid.NewString()
	if err := s.db.QueueFavorite(opID, resortID, action); err != nil {
		return "", fmt.Errorf("queue favorite: %w", err)
	}
	return opID, nil
}

// Start requeues entries interrupted by a previous run and begins polling.
func (s *Sender) Start(ctx context.Context) {
	if n, err := s.db.RequeueSendingFavorites(); err != nil {
		s.logger.Error("failed to requeue interrupted favorites", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("requeued interrupted favorites", zap.Int64("count", n))
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
}

// Stop stops the sender loop and waits for the in-flight batch.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Sender) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.processPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sender) processPending(ctx context.Context) {
	pending, err := s.db.PendingFavorites()
	if err != nil {
		s.logger.Error("failed to read favorite outbox", zap.Error(err))
		return
	}

	for _, op := range pending {
		if ctx.Err() != nil {
			return
		}
		if err := s.db.MarkFavoriteSending(op.OpID); err != nil {
			s.logger.Error("failed to mark sending", zap.Error(err), zap.String("op_id", op.OpID))
			continue
		}

		resp, err := s.send(ctx, op)
		if err != nil {
			if ctx.Err() != nil {
				// Interrupted by shutdown; Start requeues it next run.
				return
			}
			s.logger.Error("failed to send favorite", zap.Error(err),
				zap.String("op_id", op.OpID), zap.String("resort_id", op.ResortID))
			_ = s.db.MarkFavoriteFailed(op.OpID, err.Error())
			s.bus.Publish(bus.Event{
				Kind:    bus.KindFavoriteFailed,
				Payload: Result{OpID: op.OpID, ResortID: op.ResortID, Action: op.Action, Error: err.Error()},
			})
			continue
		}

		if err := s.db.MarkFavoriteSent(op.OpID); err != nil {
			s.logger.Error("failed to mark sent", zap.Error(err), zap.String("op_id", op.OpID))
		}
		s.logger.Info("favorite sent",
			zap.String("op_id", op.OpID),
			zap.String("action", op.Action),
			zap.String("resort_id", op.ResortID))
		s.bus.Publish(bus.Event{
			Kind:    bus.KindFavoriteAck,
			Payload: Result{OpID: op.OpID, ResortID: op.ResortID, Action: op.Action, Message: resp.Message},
		})
	}
}

func (s *Sender) send(ctx context.Context, op store.FavoriteOp) (*backend.FavoriteResponse, error) {
	switch op.Action {
	case store.FavoriteAdd:
		return s.client.AddFavorite(ctx, op.ResortID)
	case store.FavoriteRemove:
		return s.client.RemoveFavorite(ctx, op.ResortID)
	default:
		return nil, fmt.Errorf("unknown favorite action %q", op.Action)
	}
}
