// File: internal/navigator/errors.go
package navigator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSessionNotStarted indicates an ordering bug: a page accessor was
	// called before the session was acquired.
	ErrSessionNotStarted = errors.New("navigator: session not started")

	// ErrSessionClosed indicates the session was torn down, either explicitly
	// or by the liveness watcher after the tab was closed externally.
	ErrSessionClosed = errors.New("navigator: session closed")

	// ErrMissingCredentials is reported before any browser interaction when
	// no username or password is available.
	ErrMissingCredentials = errors.New("navigator: missing credentials")
)

// AuthTimeoutError indicates the bounded wait for the authenticated landing
// route expired. It is transient; a single caller-level retry with backoff is
// recommended over automatic internal retries, which risk account lockout.
type AuthTimeoutError struct {
	Wait string
	Err  error
}

func (e *AuthTimeoutError) Error() string {
	return fmt.Sprintf("navigator: timed out after %s waiting for authenticated landing page: %v", e.Wait, e.Err)
}

func (e *AuthTimeoutError) Unwrap() error { return e.Err }

// StepError indicates a critical step failed after exhausting every selector
// candidate. The full attempt list is carried for diagnosability, since the
// usual cause is selector drift in the remote UI.
type StepError struct {
	Description    string
	SelectorsTried []string
	Err            error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("navigator: step %q failed; selectors tried: [%s]",
		e.Description, strings.Join(e.SelectorsTried, ", "))
}

func (e *StepError) Unwrap() error { return e.Err }

// OptionNotFoundError indicates a scroll-to-reveal search exhausted its
// iteration budget without the target option appearing. It is a
// specialization of a step failure.
type OptionNotFoundError struct {
	Label    string
	Attempts int
}

func (e *OptionNotFoundError) Error() string {
	return fmt.Sprintf("navigator: option %q not found after %d scroll attempts", e.Label, e.Attempts)
}
