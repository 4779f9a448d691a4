package imoji

import (
	"context"
	"errors"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/imoji/pkg/async"
)

var errNotSynchronized = errors.New("no user is synchronized with this session")

// UserImojis lists the synchronized user's collection with the streaming
// contract of Search. Without a synchronized user rs receives 0 and
// ErrSessionNotSynchronized, and neither the state nor the server is touched.
//
// The one exception is a session restored from persisted state that has not
// connected yet: the call connects first, moving the session to
// StateConnectedSynchronized, and then proceeds. AddToUserCollection behaves
// the same way.
func (s *Session) UserImojis(rs ResultSetCallback, item ImojiCallback) *Operation {
	const op = "user imojis"
	return s.stream(op, rs, item, func(ctx context.Context) ([]*Imoji, error) {
		tok, err := s.synchronizedToken(ctx, op)
		if err != nil {
			return nil, err
		}
		res, err := s.client.UserCollection(ctx, tok)
		if err != nil {
			return nil, s.failUser(ctx, op, err)
		}
		return newImojis(res), nil
	})
}

// AddToUserCollection adds im to the synchronized user's collection. It is
// gated like UserImojis.
func (s *Session) AddToUserCollection(im *Imoji, cb AsyncCallback) *Operation {
	const op = "add to collection"
	return s.start(op, func(ctx context.Context, t *async.Task) {
		err := s.addToCollection(ctx, im)
		if err != nil {
			s.logFailure(ctx, op, err)
		}
		s.deliver(ctx, t, func() {
			if cb != nil {
				cb(err == nil, err)
			}
		})
	})
}

func (s *Session) addToCollection(ctx context.Context, im *Imoji) error {
	const op = "add to collection"

	tok, err := s.synchronizedToken(ctx, op)
	if err != nil {
		return err
	}
	if im == nil {
		return invalidArgument(op, "nil imoji")
	}
	if err := s.client.AddToCollection(ctx, tok, im.ID()); err != nil {
		return s.failUser(ctx, op, err)
	}
	return nil
}

// synchronizedToken gates user operations. A session holding a restored
// token connects first; any other session must already be synchronized.
// Expired tokens are refreshed and persisted.
func (s *Session) synchronizedToken(ctx context.Context, op string) (*oauth2.Token, error) {
	if s.State() == StateNotConnected && s.currentUserToken() != nil {
		if err := s.connect(ctx); err != nil {
			return nil, err
		}
	}
	tok := s.currentUserToken()
	if s.State() != StateConnectedSynchronized || tok == nil {
		return nil, newError(CodeSessionNotSynchronized, op, errNotSynchronized)
	}

	fresh, err := s.client.RefreshUserToken(ctx, tok)
	if err != nil {
		return nil, s.failUser(ctx, op, err)
	}
	if fresh != tok {
		s.setUserToken(ctx, fresh)
	}
	return fresh, nil
}
