package outbox

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/resort/internal/backend"
	"github.com/matheus3301/resort/internal/bus"
	"github.com/matheus3301/resort/internal/store"
)

// fakeFavorites records calls and returns configurable results.
type fakeFavorites struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeFavorites) record(action, resortID string) (*backend.FavoriteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, action+":"+resortID)
	if f.err != nil {
		return nil, f.err
	}
	return &backend.FavoriteResponse{Message: action + " ok"}, nil
}

func (f *fakeFavorites) AddFavorite(_ context.Context, resortID string) (*backend.FavoriteResponse, error) {
	return f.record("add", resortID)
}

func (f *fakeFavorites) RemoveFavorite(_ context.Context, resortID string) (*backend.FavoriteResponse, error) {
	return f.record("remove", resortID)
}

func (f *fakeFavorites) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, _, err := store.OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func waitEvent(t *testing.T, ch <-chan bus.Event) bus.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for event")
		return bus.Event{}
	}
}

func TestSenderProcessesQueueInOrder(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	client := &fakeFavorites{}
	s := NewSender(db, client, b, nil)

	ch, unsub := b.Subscribe(bus.KindFavoriteAck, 10)
	defer unsub()

	first, err := s.Queue("r1", store.FavoriteAdd)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Queue("r1", store.FavoriteRemove); err != nil {
		t.Fatal(err)
	}

	s.Start(context.Background())
	defer s.Stop()

	ack := waitEvent(t, ch).Payload.(Result)
	if ack.OpID != first || ack.Action != "add" || ack.Message != "add ok" {
		t.Errorf("first ack = %+v", ack)
	}
	waitEvent(t, ch)

	if calls := client.snapshot(); len(calls) != 2 || calls[0] != "add:r1" || calls[1] != "remove:r1" {
		t.Errorf("calls = %v", calls)
	}
	pending, err := db.PendingFavorites()
	if err != nil || len(pending) != 0 {
		t.Errorf("pending = %d, %v; want 0", len(pending), err)
	}
	op, _ := db.GetFavoriteOp(first)
	if op == nil || op.Status != store.StatusSent {
		t.Errorf("op = %+v, want sent", op)
	}
}

func TestSenderHandlesFailure(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	s := NewSender(db, &fakeFavorites{err: fmt.Errorf("network error")}, b, nil)

	ch, unsub := b.Subscribe(bus.KindFavoriteFailed, 10)
	defer unsub()

	opID, err := s.Queue("r9", store.FavoriteAdd)
	if err != nil {
		t.Fatal(err)
	}
	s.Start(context.Background())
	defer s.Stop()

	res := waitEvent(t, ch).Payload.(Result)
	if res.OpID != opID || res.Error != "network error" {
		t.Errorf("failure = %+v", res)
	}

	op, err := db.GetFavoriteOp(opID)
	if err != nil || op == nil || op.Status != store.StatusFailed || op.ErrorMessage != "network error" {
		t.Errorf("op = %+v, %v", op, err)
	}
}

func TestQueueValidates(t *testing.T) {
	s := NewSender(testDB(t), &fakeFavorites{}, bus.New(), nil)
	if _, err := s.Queue("", store.FavoriteAdd); err == nil {
		t.Error("Queue without resort id should fail")
	}
	if _, err := s.Queue("r1", "toggle"); err == nil {
		t.Error("Queue with unknown action should fail")
	}
}

func TestStartRequeuesInterrupted(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	client := &fakeFavorites{}

	if err := db.QueueFavorite("op-crashed", "r1", store.FavoriteAdd); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkFavoriteSending("op-crashed"); err != nil {
		t.Fatal(err)
	}

	ch, unsub := b.Subscribe(bus.KindFavoriteAck, 10)
	defer unsub()

	s := NewSender(db, client, b, nil)
	s.Start(context.Background())
	defer s.Stop()

	if got := waitEvent(t, ch).Payload.(Result).OpID; got != "op-crashed" {
		t.Errorf("ack op = %q, want op-crashed", got)
	}
}

func TestStopWithoutStart(t *testing.T) {
	s := NewSender(testDB(t), &fakeFavorites{}, bus.New(), nil)
	s.Stop()
}
