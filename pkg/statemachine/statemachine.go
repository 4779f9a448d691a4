package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Guard evaluates whether a transition may proceed based on runtime conditions.
type Guard[S, E comparable] func(ctx context.Context, from S, event E) bool

// Listener observes applied transitions. Listeners run after the state change
// in registration order, serialized with other Fire calls; a listener must not
// call Fire on the same machine.
type Listener[S, E comparable] func(ctx context.Context, from, to S, event E)

// Transition defines a state change triggered by an event.
type Transition[S, E comparable] struct {
	From   S
	To     S
	Event  E
	Guards []Guard[S, E] // All must pass for the transition to proceed
}

// Machine is a thread-safe finite state machine over comparable state and event types.
// Lookup table is [from][event][]Transition; the first transition whose guards pass wins.
type Machine[S, E comparable] struct {
	mu           sync.RWMutex
	initial      S
	current      S
	transitions  map[S]map[E][]Transition[S, E]
	listeners    []Listener[S, E]
	listenerLock sync.Mutex // keeps listener notifications in transition order
}

func newMachine[S, E comparable](initial S) *Machine[S, E] {
	return &Machine[S, E]{
		initial:     initial,
		current:     initial,
		transitions: make(map[S]map[E][]Transition[S, E]),
	}
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the machine is in state s.
func (m *Machine[S, E]) Is(s S) bool {
	return m.Current() == s
}

// AddTransition registers a transition. Multiple transitions for the same
// from/event pair are allowed to support guard-based branching.
func (m *Machine[S, E]) AddTransition(from, to S, event E, guards ...Guard[S, E]) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transitions[from]; !ok {
		m.transitions[from] = make(map[E][]Transition[S, E])
	}
	m.transitions[from][event] = append(m.transitions[from][event], Transition[S, E]{
		From:   from,
		To:     to,
		Event:  event,
		Guards: guards,
	})
}

// OnTransition registers a listener for applied transitions.
func (m *Machine[S, E]) OnTransition(l Listener[S, E]) {
	if l == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Fire applies event to the current state and returns the previous and new state.
// Self-transitions (from == to) are applied but do not notify listeners.
func (m *Machine[S, E]) Fire(ctx context.Context, event E) (from, to S, err error) {
	m.listenerLock.Lock()
	defer m.listenerLock.Unlock()

	m.mu.Lock()
	from = m.current
	t, err := m.find(ctx, event)
	if err != nil {
		m.mu.Unlock()
		return from, from, err
	}
	m.current = t.To
	listeners := append([]Listener[S, E](nil), m.listeners...)
	m.mu.Unlock()

	if from != t.To {
		for _, l := range listeners {
			l(ctx, from, t.To, event)
		}
	}
	return from, t.To, nil
}

// CanFire reports whether event would be accepted in the current state.
func (m *Machine[S, E]) CanFire(ctx context.Context, event E) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.find(ctx, event)
	return err == nil
}

// Reset returns the machine to its initial state without notifying listeners.
func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

// Must be called with lock held.
func (m *Machine[S, E]) find(ctx context.Context, event E) (*Transition[S, E], error) {
	byEvent, ok := m.transitions[m.current]
	if !ok {
		return nil, NewErrNoTransitionAvailable(name(m.current), name(event))
	}
	candidates := byEvent[event]
	if len(candidates) == 0 {
		return nil, NewErrNoTransitionAvailable(name(m.current), name(event))
	}

	for i, t := range candidates {
		passed := true
		for _, g := range t.Guards {
			if g != nil && !g(ctx, m.current, event) {
				passed = false
				break
			}
		}
		if passed {
			return &candidates[i], nil
		}
	}
	return nil, NewErrTransitionRejected(name(m.current), name(event))
}

func name(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}
