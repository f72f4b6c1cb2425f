// Package model caches daemon state for the terminal views.
package model

import (
	"context"
	"sync"

	"github.com/matheus3301/resort/internal/api"
)

// Daemon is the part of the daemon client the view model uses.
type Daemon interface {
	Status(ctx context.Context) (api.Status, error)
	Conversations(ctx context.Context) ([]api.Conversation, error)
	Messages(ctx context.Context, conversationID string, limit int) ([]api.Message, error)
	SetUnreadCount(ctx context.Context, n int64) (int64, error)
	RefreshUnread(ctx context.Context) (int64, error)
	WatchUnreadCount(ctx context.Context, fn func(int64)) error
	Login(ctx context.Context, userID, role, token string) error
	Logout(ctx context.Context) error
}

// ViewModel caches state from the daemon and signals UI refreshes.
type ViewModel struct {
	mu sync.RWMutex

	daemon        Daemon
	status        api.Status
	conversations []api.Conversation
	messages      []api.Message
	activeConvID  string
	unread        int64
	watching      bool

	refreshCh chan struct{}
}

// NewViewModel creates a new view model connected to the daemon client.
func NewViewModel(d Daemon) *ViewModel {
	return &ViewModel{
		daemon:    d,
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// LoadStatus fetches the daemon status.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	st, err := vm.daemon.Status(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = st
	if !vm.watching {
		vm.unread = st.Unread
	}
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// LoadConversations fetches the conversation list. Without a logged-in user
// the list is cleared.
func (vm *ViewModel) LoadConversations(ctx context.Context) error {
	convs, err := vm.daemon.Conversations(ctx)
	if err != nil {
		vm.mu.Lock()
		vm.conversations = nil
		vm.mu.Unlock()
		return err
	}
	vm.mu.Lock()
	vm.conversations = convs
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// LoadMessages fetches messages for a conversation and makes it active.
func (vm *ViewModel) LoadMessages(ctx context.Context, conversationID string) error {
	msgs, err := vm.daemon.Messages(ctx, conversationID, 100)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.activeConvID = conversationID
	vm.messages = msgs
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// WatchUnread follows the daemon's badge until ctx ends. It returns the
// stream error, if any.
func (vm *ViewModel) WatchUnread(ctx context.Context) error {
	vm.mu.Lock()
	vm.watching = true
	vm.mu.Unlock()
	defer func() {
		vm.mu.Lock()
		vm.watching = false
		vm.mu.Unlock()
	}()
	return vm.daemon.WatchUnreadCount(ctx, func(n int64) {
		vm.mu.Lock()
		vm.unread = n
		vm.mu.Unlock()
		vm.signalRefresh()
	})
}

// MarkAllRead zeroes the badge. The local value changes before the daemon
// answers; a failed call restores it.
func (vm *ViewModel) MarkAllRead(ctx context.Context) error {
	vm.mu.Lock()
	prev := vm.unread
	vm.unread = 0
	vm.mu.Unlock()
	vm.signalRefresh()

	if _, err := vm.daemon.SetUnreadCount(ctx, 0); err != nil {
		vm.mu.Lock()
		vm.unread = prev
		vm.mu.Unlock()
		vm.signalRefresh()
		return err
	}
	return nil
}

// Refresh asks the daemon for a full refresh.
func (vm *ViewModel) Refresh(ctx context.Context) error {
	n, err := vm.daemon.RefreshUnread(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.unread = n
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

func (vm *ViewModel) Login(ctx context.Context, userID, role string) error {
	if err := vm.daemon.Login(ctx, userID, role, ""); err != nil {
		return err
	}
	return vm.LoadStatus(ctx)
}

// Logout ends the daemon session and drops cached conversations.
func (vm *ViewModel) Logout(ctx context.Context) error {
	if err := vm.daemon.Logout(ctx); err != nil {
		return err
	}
	vm.mu.Lock()
	vm.conversations = nil
	vm.messages = nil
	vm.activeConvID = ""
	vm.unread = 0
	vm.mu.Unlock()
	return vm.LoadStatus(ctx)
}

// Conversations returns a snapshot of the conversation list.
func (vm *ViewModel) Conversations() []api.Conversation {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.conversations
}

// Conversation returns the cached conversation with id.
func (vm *ViewModel) Conversation(id string) (api.Conversation, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, c := range vm.conversations {
		if c.ID == id {
			return c, true
		}
	}
	return api.Conversation{}, false
}

// Messages returns a snapshot of the active conversation's messages.
func (vm *ViewModel) Messages() []api.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.messages
}

// ActiveConversation returns the id of the conversation last opened.
func (vm *ViewModel) ActiveConversation() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.activeConvID
}

func (vm *ViewModel) Status() api.Status {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// Unread returns the badge count last seen.
func (vm *ViewModel) Unread() int64 {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.unread
}
