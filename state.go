package imoji

import (
	"context"

	"github.com/dmitrymomot/imoji/pkg/logger"
	"github.com/dmitrymomot/imoji/pkg/statemachine"
)

// SessionState is the connection state of a Session.
type SessionState int

const (
	StateNotConnected SessionState = iota
	StateConnected
	StateConnectedSynchronized
)

func (s SessionState) String() string {
	switch s {
	case StateNotConnected:
		return "not_connected"
	case StateConnected:
		return "connected"
	case StateConnectedSynchronized:
		return "connected_synchronized"
	default:
		return "unknown"
	}
}

type stateEvent string

const (
	eventConnect       stateEvent = "connect"
	eventSynchronize   stateEvent = "synchronize"
	eventDesynchronize stateEvent = "desynchronize"
	eventDisconnect    stateEvent = "disconnect"
)

func newStateMachine(listener statemachine.Listener[SessionState, stateEvent]) *statemachine.Machine[SessionState, stateEvent] {
	// Every transition changes the state.
	return statemachine.New(StateNotConnected,
		statemachine.WithTransition(StateNotConnected, StateConnected, eventConnect),
		statemachine.WithTransitionsFrom([]SessionState{StateNotConnected, StateConnected}, StateConnectedSynchronized, eventSynchronize),
		statemachine.WithTransition(StateConnectedSynchronized, StateConnected, eventDesynchronize),
		statemachine.WithTransitionsFrom([]SessionState{StateConnected, StateConnectedSynchronized}, StateNotConnected, eventDisconnect),
		statemachine.WithListener(listener),
	)
}

// fire applies event, then hands the resulting change to the delegate.
// Events that do not apply in the current state are ignored: concurrent
// operations may race to report the same transition.
func (s *Session) fire(ctx context.Context, event stateEvent) {
	if _, _, err := s.machine.Fire(ctx, event); err != nil && !statemachine.IsNoTransitionAvailableError(err) {
		s.logger.WarnContext(ctx, "state transition failed", "event", string(event), logger.Error(err))
	}
	s.notify()
}

type stateChange struct {
	delegate Delegate
	from, to SessionState
}

// onTransition runs inside Fire, in transition order. It only queues the
// delegate call; notify delivers it once the machine is released, so a
// delegate may call back into the session.
func (s *Session) onTransition(ctx context.Context, from, to SessionState, _ stateEvent) {
	s.metrics.transitions.WithLabelValues(from.String(), to.String()).Inc()
	s.logger.InfoContext(ctx, "session state changed", logger.Transition(from.String(), to.String()))

	d := s.Delegate()
	if d == nil {
		return
	}
	s.notifyMu.Lock()
	s.pending = append(s.pending, stateChange{delegate: d, from: from, to: to})
	s.notifyMu.Unlock()
}

// notify drains queued state changes. One caller drains at a time; changes
// queued meanwhile, including by a delegate, are picked up by that loop.
func (s *Session) notify() {
	s.notifyMu.Lock()
	if s.notifying {
		s.notifyMu.Unlock()
		return
	}
	s.notifying = true
	for len(s.pending) > 0 {
		c := s.pending[0]
		s.pending = s.pending[1:]
		s.notifyMu.Unlock()

		s.dispatcher.Dispatch(func() {
			c.delegate.SessionStateChanged(s, c.to, c.from)
		})

		s.notifyMu.Lock()
	}
	s.notifying = false
	s.notifyMu.Unlock()
}
