package session

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Listener receives every applied session, in dispatch order. Listeners must
// not call Dispatch synchronously.
type Listener func(Session)

// Machine is the single writer of session state.
type Machine struct {
	mu      sync.RWMutex
	current Session
	subs    map[uint64]Listener
	nextSub uint64

	// notifyMu serialises dispatch + notification so listeners observe
	// sessions in the order they were applied.
	notifyMu sync.Mutex
}

// NewMachine returns a machine in the initial (pre-bootstrap) session.
func NewMachine() *Machine {
	return &Machine{
		current: Initial(),
		subs:    make(map[uint64]Listener),
	}
}

// Current returns a snapshot of the session.
func (m *Machine) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.clone()
}

// Dispatch applies ev. Illegal transitions leave the session untouched, are
// logged and returned as an error; listeners are not notified for them.
func (m *Machine) Dispatch(ev Event) (Session, error) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	prev := m.current
	next, err := Transition(prev, ev)
	if err != nil {
		m.mu.Unlock()
		log.Warn().Err(err).Str("event", string(ev.Kind())).Str("state", prev.State.String()).Msg("Session event rejected")
		return prev.clone(), err
	}
	next.Version = prev.Version + 1
	m.current = next
	listeners := make([]Listener, 0, len(m.subs))
	for _, l := range m.subs {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	log.Debug().
		Str("event", string(ev.Kind())).
		Str("from", prev.State.String()).
		Str("to", next.State.String()).
		Uint64("version", next.Version).
		Msg("Session transition")

	for _, l := range listeners {
		l(next.clone())
	}
	return next.clone(), nil
}

// Subscribe registers l and returns a function that removes it.
func (m *Machine) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = l
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Reset returns the machine to its initial session and drops all listeners.
func (m *Machine) Reset() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Initial()
	m.subs = make(map[uint64]Listener)
}
