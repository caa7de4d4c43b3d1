// File: internal/navigator/auth.go
package navigator

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jmosier/campusnav/api/schemas"
	"github.com/jmosier/campusnav/internal/config"
)

// Authenticator detects the SSO login challenge and completes it. It borrows
// the page; it never owns or closes it.
type Authenticator struct {
	logger *zap.Logger
	portal config.PortalConfig

	// loginTimeout bounds the wait for the authenticated landing route. The
	// SSO redirect chain is asynchronous and variable-length, so this is the
	// one hard synchronization point in the whole flow.
	loginTimeout time.Duration
}

// NewAuthenticator creates an authenticator for the configured portal.
func NewAuthenticator(logger *zap.Logger, portal config.PortalConfig, loginTimeout time.Duration) *Authenticator {
	if loginTimeout <= 0 {
		loginTimeout = 60 * time.Second
	}
	return &Authenticator{
		logger:       logger.Named("auth"),
		portal:       portal,
		loginTimeout: loginTimeout,
	}
}

// EnsureLoggedIn completes the login challenge if one is present and reports
// whether the page ended up on the authenticated landing view. A false return
// with a nil error means "cannot proceed", an expected outcome rather than a
// fault. The marker is re-checked on every call: sessions expire, so a cached
// answer would lie.
func (a *Authenticator) EnsureLoggedIn(ctx context.Context, page Page, creds schemas.Credentials) (bool, error) {
	if creds.Password == "" {
		return false, ErrMissingCredentials
	}

	content, err := page.Content(ctx)
	if err != nil {
		return false, err
	}

	if strings.Contains(content, a.portal.LoginTitle) {
		a.logger.Info("Login page detected; submitting credentials")

		if err := page.Fill(ctx, a.portal.PasscodeSelector, creds.Password); err != nil {
			return false, err
		}
		if err := page.ClickWithText(ctx, "button", "Sign in"); err != nil {
			return false, err
		}

		if err := page.WaitURLContains(ctx, a.portal.HomeURLFragment, a.loginTimeout); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return false, &AuthTimeoutError{Wait: a.loginTimeout.String(), Err: err}
			}
			return false, err
		}

		content, err = page.Content(ctx)
		if err != nil {
			return false, err
		}
	}

	authenticated := strings.Contains(content, a.portal.LandingMarker)
	if !authenticated {
		a.logger.Warn("Authenticated landing marker not found after login check")
	}
	return authenticated, nil
}
