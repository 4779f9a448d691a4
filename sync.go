package imoji

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/dmitrymomot/imoji/pkg/async"
	"github.com/dmitrymomot/imoji/pkg/logger"
	"github.com/dmitrymomot/imoji/pkg/qrcode"
)

var errSyncDisabled = errors.New("callback scheme is not configured")

// RequestUserSynchronization asks the companion app, through the Launcher,
// to authorize this application for its signed-in user. The app answers by
// opening <CallbackScheme>://imoji/sync, which the host application passes
// to HandleImojiAppRequest.
func (s *Session) RequestUserSynchronization() error {
	const op = "request synchronization"

	if s.handshake == nil {
		return newError(CodeInvalidArgument, op, errSyncDisabled)
	}
	if s.launcher == nil {
		return newError(CodeApplicationNotInstalled, op, errors.New("no launcher configured"))
	}
	probe, err := url.Parse(s.cfg.AuthorizeURL)
	if err != nil {
		return newError(CodeInvalidArgument, op, err)
	}
	if !s.launcher.CanOpen(probe) {
		return newError(CodeApplicationNotInstalled, op, fmt.Errorf("no application handles %s://", probe.Scheme))
	}

	raw, err := s.SynchronizationURL()
	if err != nil {
		return err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return newError(CodeInvalidArgument, op, err)
	}
	if err := s.launcher.Open(s.ctx, u); err != nil {
		return newError(CodeApplicationNotInstalled, op, err)
	}
	s.logger.Info("synchronization requested")
	return nil
}

// SynchronizationURL starts a handshake and returns the authorization URL
// without opening it, for out-of-band delivery.
func (s *Session) SynchronizationURL() (string, error) {
	const op = "synchronization url"

	if s.handshake == nil {
		return "", newError(CodeInvalidArgument, op, errSyncDisabled)
	}
	authURL, _, err := s.handshake.Begin(s.ctx)
	if err != nil {
		return "", newError(CodeUserAuthenticationFailed, op, err)
	}
	return authURL, nil
}

// SynchronizationQRCode starts a handshake and returns its authorization URL
// as a PNG QR code of size pixels; zero means the default size.
func (s *Session) SynchronizationQRCode(size int) ([]byte, error) {
	const op = "synchronization qr code"

	if size < 0 {
		return nil, invalidArgument(op, "negative size %d", size)
	}
	if size == 0 {
		size = qrcode.DefaultSize
	}
	authURL, err := s.SynchronizationURL()
	if err != nil {
		return nil, err
	}
	png, err := qrcode.PNG(authURL, size)
	if err != nil {
		return nil, newError(CodeInvalidArgument, op, err)
	}
	return png, nil
}

// IsImojiAppRequest reports whether u is a handshake callback sent by the
// companion app. It performs no I/O and changes nothing.
func (s *Session) IsImojiAppRequest(u *url.URL, sourceApp string) bool {
	return s.handshake != nil && s.handshake.Matches(u, sourceApp)
}

// HandleImojiAppRequest completes a handshake. It returns false, changing
// nothing, for any URL IsImojiAppRequest rejects. A recognized URL is always
// consumed: failures are reported to the delegate's SynchronizationFailed.
func (s *Session) HandleImojiAppRequest(ctx context.Context, u *url.URL, sourceApp string) bool {
	if !s.IsImojiAppRequest(u, sourceApp) {
		return false
	}

	if err := s.completeHandshake(ctx, u); err != nil {
		s.metrics.handshakes.WithLabelValues("failed").Inc()
		s.logger.WarnContext(ctx, "synchronization failed", logger.Error(err))
		s.notifySynchronizationFailed(err)
		return true
	}
	s.metrics.handshakes.WithLabelValues("succeeded").Inc()
	return true
}

func (s *Session) completeHandshake(ctx context.Context, u *url.URL) error {
	const op = "handle handshake"

	code, err := s.handshake.Consume(ctx, u)
	if err != nil {
		return newError(CodeUserAuthenticationFailed, op, err)
	}
	tok, err := s.client.ExchangeCode(ctx, code, s.handshake.RedirectURI())
	if err != nil {
		return newError(CodeUserAuthenticationFailed, op, err)
	}
	s.setUserToken(ctx, tok)
	s.fire(ctx, eventSynchronize)
	return nil
}

func (s *Session) notifySynchronizationFailed(err error) {
	obs, ok := s.Delegate().(SynchronizationObserver)
	if !ok {
		return
	}
	s.dispatcher.Dispatch(func() {
		obs.SynchronizationFailed(s, err)
	})
}

// ClearUserSynchronization revokes the user token (best effort), deletes the
// persisted state and returns the session to Connected. cb may be nil.
func (s *Session) ClearUserSynchronization(cb AsyncCallback) *Operation {
	const op = "clear synchronization"
	return s.start(op, func(ctx context.Context, t *async.Task) {
		if tok := s.takeUserToken(); tok != nil {
			if err := s.client.Revoke(ctx, tok.AccessToken); err != nil && !isCanceled(ctx, err) {
				s.logger.WarnContext(ctx, "token revocation failed", logger.Error(err))
			}
		}
		err := s.deleteUserToken()
		s.fire(ctx, eventDesynchronize)

		if err != nil {
			err = newError(CodeServerError, op, err)
			s.logFailure(ctx, op, err)
		}
		s.deliver(ctx, t, func() {
			if cb != nil {
				cb(err == nil, err)
			}
		})
	})
}
