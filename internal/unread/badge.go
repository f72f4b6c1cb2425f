package unread

import (
	"context"

	"github.com/matheus3301/resort/internal/auth"
)

// Badge is the consumer handle of one session. Once that session ends every
// write is ignored and Count reports 0.
type Badge struct {
	t *Tracker
	s *session
}

// Identity returns the user the badge belongs to.
func (b *Badge) Identity() auth.Identity { return b.s.id }

// Count returns the session's current count.
func (b *Badge) Count() int {
	b.t.mu.Lock()
	defer b.t.mu.Unlock()
	if b.t.sess != b.s {
		return 0
	}
	return b.s.count
}

// Set overwrites the count. Negative values are stored as 0.
func (b *Badge) Set(n int) {
	b.t.update(b.s, func(int) int { return n }, CauseLocal)
}

// Update applies fn to the current count atomically with respect to every
// other writer. Negative results are stored as 0.
func (b *Badge) Update(fn func(prev int) int) {
	b.t.update(b.s, fn, CauseLocal)
}

// Refresh recomputes the count from the backend and waits for the result.
// Failures are logged and leave the count unchanged.
func (b *Badge) Refresh(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(b.s.ctx, cancel)
	defer stop()
	_ = b.t.refresh(ctx, b.s, "manual")
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying b.
func NewContext(ctx context.Context, b *Badge) context.Context {
	return context.WithValue(ctx, ctxKey{}, b)
}

// FromContext returns the badge stored by NewContext. It panics when ctx is
// not inside a session scope.
func FromContext(ctx context.Context) *Badge {
	b, ok := ctx.Value(ctxKey{}).(*Badge)
	if !ok || b == nil {
		panic("unread: badge used outside of a session scope")
	}
	return b
}
