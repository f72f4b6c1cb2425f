package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/resort/internal/bus"
)

// State is the lifecycle state of the unread-count session.
type State string

const (
	// Uninitialized: no user identity, count reported as 0, nothing subscribed.
	Uninitialized State = "UNINITIALIZED"
	// Syncing: identity known, initial refresh and socket connect in flight.
	Syncing State = "SYNCING"
	// Live: refreshed once and subscribed to the chat socket.
	Live State = "LIVE"
	// Degraded: the chat socket is unavailable; only refreshes update the count.
	Degraded State = "DEGRADED"
)

var validTransitions = map[State][]State{
	Uninitialized: {Syncing},
	Syncing:       {Live, Degraded, Uninitialized},
	Live:          {Degraded, Uninitialized},
	Degraded:      {Live, Uninitialized},
}

// Machine tracks and enforces session state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Uninitialized.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Uninitialized,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(to)
}

// TransitionIf moves to `to` only when the current state is one of `from`.
// It reports whether the transition happened.
func (m *Machine) TransitionIf(to State, from ...State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(from, m.current) {
		return false
	}
	return m.transitionLocked(to) == nil
}

// Reset forces the machine back to Uninitialized from any state.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == Uninitialized {
		return
	}
	_ = m.transitionLocked(Uninitialized)
}

func (m *Machine) transitionLocked(to State) error {
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind: bus.KindStatusChanged,
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
