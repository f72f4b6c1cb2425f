package model

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/resort/internal/api"
)

type fakeDaemon struct {
	mu       sync.Mutex
	status   api.Status
	convs    []api.Conversation
	setErr   error
	setCalls []int64
	// setGate, when set, holds SetUnreadCount until closed.
	setGate chan struct{}
	watch   chan int64
	logouts int
}

func (f *fakeDaemon) Status(context.Context) (api.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, nil
}

func (f *fakeDaemon) Conversations(context.Context) ([]api.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.convs == nil {
		return nil, errors.New("no user is logged in")
	}
	return f.convs, nil
}

func (f *fakeDaemon) Messages(_ context.Context, id string, _ int) ([]api.Message, error) {
	return []api.Message{{ID: id + "-m1", Sender: "owner", Text: "hi"}}, nil
}

func (f *fakeDaemon) SetUnreadCount(_ context.Context, n int64) (int64, error) {
	f.mu.Lock()
	gate := f.setGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls = append(f.setCalls, n)
	return n, f.setErr
}

func (f *fakeDaemon) RefreshUnread(context.Context) (int64, error) { return 7, nil }

func (f *fakeDaemon) WatchUnreadCount(ctx context.Context, fn func(int64)) error {
	for {
		select {
		case n := <-f.watch:
			fn(n)
		case <-ctx.Done():
			return nil
		}
	}
}

func (f *fakeDaemon) Login(context.Context, string, string, string) error { return nil }

func (f *fakeDaemon) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	f.convs = nil
	return nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestMarkAllReadIsOptimistic(t *testing.T) {
	gate := make(chan struct{})
	d := &fakeDaemon{status: api.Status{Unread: 4}, setGate: gate}
	vm := NewViewModel(d)
	if err := vm.LoadStatus(context.Background()); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- vm.MarkAllRead(context.Background()) }()

	waitFor(t, "optimistic zero", func() bool { return vm.Unread() == 0 })
	close(gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if len(d.setCalls) != 1 || d.setCalls[0] != 0 {
		t.Errorf("SetUnreadCount calls = %v", d.setCalls)
	}
}

func TestMarkAllReadRestoresOnFailure(t *testing.T) {
	d := &fakeDaemon{status: api.Status{Unread: 4}, setErr: errors.New("no user is logged in")}
	vm := NewViewModel(d)
	_ = vm.LoadStatus(context.Background())

	if err := vm.MarkAllRead(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if n := vm.Unread(); n != 4 {
		t.Errorf("unread after failed mark = %d, want 4", n)
	}
}

func TestWatchUnreadOwnsTheCount(t *testing.T) {
	d := &fakeDaemon{status: api.Status{Unread: 1}, watch: make(chan int64)}
	vm := NewViewModel(d)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = vm.WatchUnread(ctx) }()
	d.watch <- 3
	waitFor(t, "watched value", func() bool { return vm.Unread() == 3 })

	// A status poll must not overwrite the streamed value.
	_ = vm.LoadStatus(context.Background())
	if n := vm.Unread(); n != 3 {
		t.Errorf("unread after status poll = %d, want 3", n)
	}

	select {
	case <-vm.RefreshCh():
	default:
		t.Error("no refresh signal after updates")
	}
}

func TestConversationsAndLogout(t *testing.T) {
	d := &fakeDaemon{convs: []api.Conversation{{ID: "c1", ResortName: "Palm Bay", Unread: 2}}}
	vm := NewViewModel(d)
	ctx := context.Background()

	if err := vm.LoadConversations(ctx); err != nil {
		t.Fatal(err)
	}
	if c, ok := vm.Conversation("c1"); !ok || c.ResortName != "Palm Bay" {
		t.Errorf("Conversation(c1) = %+v, %v", c, ok)
	}
	if err := vm.LoadMessages(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	if vm.ActiveConversation() != "c1" || len(vm.Messages()) != 1 {
		t.Errorf("active = %q, messages = %v", vm.ActiveConversation(), vm.Messages())
	}

	if err := vm.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if len(vm.Conversations()) != 0 || vm.ActiveConversation() != "" || vm.Unread() != 0 {
		t.Error("logout left cached state behind")
	}
	if err := vm.LoadConversations(ctx); err == nil {
		t.Error("LoadConversations after logout should fail")
	}
}

func TestRefreshTakesDaemonCount(t *testing.T) {
	vm := NewViewModel(&fakeDaemon{})
	if err := vm.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := vm.Unread(); n != 7 {
		t.Errorf("unread = %d, want 7", n)
	}
}
