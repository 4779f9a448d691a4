// Package statemachine provides a small, generic finite state machine.
//
// States and events are any comparable types, typically small integer enums with a
// String method. The Machine handles:
//  1. Transition lookup keyed by current state and event
//  2. Optional Guard evaluation to accept or reject transitions
//  3. Listener notification after a transition has been applied
//  4. Concurrency-safe access to the current state
//
// # Usage
//
//	type state int
//	type event int
//
//	m := statemachine.New[state, event](idle,
//		statemachine.WithTransition(idle, running, start),
//		statemachine.WithTransitionsFrom([]state{idle, running}, stopped, stop),
//		statemachine.WithListener(func(ctx context.Context, from, to state, ev event) {
//			log.Printf("%v -> %v", from, to)
//		}),
//	)
//
//	if _, _, err := m.Fire(ctx, start); err != nil {
//		// statemachine.IsNoTransitionAvailableError(err) or IsTransitionRejectedError(err)
//	}
//
// Listeners run outside the state lock but while Fire is still in progress; a listener
// must not call Fire on the same machine.
package statemachine
