package statemachine

// Option configures a machine during construction.
type Option[S, E comparable] func(*Machine[S, E])

// New creates a machine in the given initial state.
func New[S, E comparable](initial S, opts ...Option[S, E]) *Machine[S, E] {
	m := newMachine[S, E](initial)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithTransition adds a transition from one state.
func WithTransition[S, E comparable](from, to S, event E, guards ...Guard[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) {
		m.AddTransition(from, to, event, guards...)
	}
}

// WithTransitionsFrom adds the same event/target pair for several source states.
func WithTransitionsFrom[S, E comparable](from []S, to S, event E, guards ...Guard[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) {
		for _, f := range from {
			m.AddTransition(f, to, event, guards...)
		}
	}
}

// WithListener registers a transition listener.
func WithListener[S, E comparable](l Listener[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) {
		m.OnTransition(l)
	}
}
