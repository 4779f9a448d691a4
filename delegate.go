package imoji

import (
	"context"
	"net/url"
)

// Delegate observes a Session. SessionStateChanged runs through the session
// dispatcher after every state transition, in transition order, and may call
// back into the Session.
type Delegate interface {
	SessionStateChanged(s *Session, newState, oldState SessionState)
}

// SynchronizationObserver is an optional Delegate extension notified when a
// recognized handshake callback could not be completed.
type SynchronizationObserver interface {
	SynchronizationFailed(s *Session, err error)
}

// DelegateFunc adapts a function to Delegate.
type DelegateFunc func(s *Session, newState, oldState SessionState)

func (f DelegateFunc) SessionStateChanged(s *Session, newState, oldState SessionState) {
	f(s, newState, oldState)
}

// Launcher opens URLs in other applications on behalf of the Session.
type Launcher interface {
	CanOpen(u *url.URL) bool
	Open(ctx context.Context, u *url.URL) error
}
