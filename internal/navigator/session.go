// File: internal/navigator/session.go
package navigator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jmosier/campusnav/api/schemas"
	"github.com/jmosier/campusnav/internal/config"
)

// Session owns one persistent-profile browser context and the single logical
// tab driven by all flows. Cookies and SSO state live in the profile
// directory, so authentication survives across flow invocations within a
// process. At most one Session is active per process; flows serialize their
// checkout through flowMu.
type Session struct {
	id             string
	logger         *zap.Logger
	page           Page
	screenshotsDir string
	cancel         context.CancelFunc

	// flowMu serializes flow execution: two flows driving the same tab would
	// race on navigation state.
	flowMu sync.Mutex

	mu          sync.Mutex
	closed      bool
	advisors    []schemas.Advisor
	advisorsSet bool

	closeOnce   sync.Once
	watcherStop chan struct{}
	watcherWG   sync.WaitGroup
	onClose     func()
}

// newSession wires a session around an already-launched page. It creates the
// screenshots directory (pre-existing is fine) and starts the liveness
// watcher that tears the session down if the tab is closed externally.
func newSession(logger *zap.Logger, page Page, screenshotsDir string, watchEvery time.Duration, cancel context.CancelFunc) (*Session, error) {
	if err := os.MkdirAll(screenshotsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating screenshots directory: %w", err)
	}

	id := uuid.New().String()
	s := &Session{
		id:             id,
		logger:         logger.Named("session").With(zap.String("session_id", id)),
		page:           page,
		screenshotsDir: screenshotsDir,
		cancel:         cancel,
		watcherStop:    make(chan struct{}),
	}

	s.watcherWG.Add(1)
	go s.watch(watchEvery)

	return s, nil
}

// watch polls tab liveness at a fixed interval. Detecting external closure
// (e.g. the user closed the window) triggers full session teardown. The
// watcher stops deterministically when Close is called.
func (s *Session) watch(interval time.Duration) {
	defer s.watcherWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.watcherStop:
			return
		case <-ticker.C:
			if s.page.IsClosed() {
				s.logger.Info("Browser tab closed externally; tearing down session")
				// Close waits for the watcher, so it must not run on this
				// goroutine.
				go s.Close()
				return
			}
		}
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Page returns the active tab handle, or ErrSessionClosed once the session
// has been torn down.
func (s *Session) Page() (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.page, nil
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ScreenshotPath builds an artifact path of the form
// <dir>/<flow-step>_<timestamp>.png.
func (s *Session) ScreenshotPath(stepName string) string {
	stamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(s.screenshotsDir, fmt.Sprintf("%s_%s.png", stepName, stamp))
}

// Advisors returns the cached advisor roster, if one was scraped.
func (s *Session) Advisors() ([]schemas.Advisor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advisors, s.advisorsSet
}

// SetAdvisors caches the roster for the session lifetime. The roster rarely
// changes, so it is scraped at most once per session unless invalidated.
func (s *Session) SetAdvisors(advisors []schemas.Advisor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advisors = advisors
	s.advisorsSet = true
}

// InvalidateAdvisors drops the cached roster so the next flow re-scrapes it.
func (s *Session) InvalidateAdvisors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advisors = nil
	s.advisorsSet = false
}

// checkout claims the session for one flow invocation, blocking concurrent
// flows until release.
func (s *Session) checkout() { s.flowMu.Lock() }
func (s *Session) release() { s.flowMu.Unlock() }

// Close releases the browser resource and marks the session unusable.
// Calling Close twice is a no-op, not an error.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.logger.Info("Closing session")

		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.watcherStop)
		s.watcherWG.Wait()

		if s.cancel != nil {
			s.cancel()
		}
		if s.onClose != nil {
			s.onClose()
		}
	})
	return nil
}

// LaunchFunc starts a browser and returns its single tab plus a cancel that
// tears the browser down. Swappable so tests can inject a fake page.
type LaunchFunc func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Page, context.CancelFunc, error)

// Manager guards the one-session-per-process invariant. Acquire is
// single-flight: concurrent callers during launch share one attempt instead
// of racing two browsers into existence.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig
	launch LaunchFunc

	mu      sync.Mutex
	session *Session
	sf      singleflight.Group
}

// NewManager creates a session manager that launches real browser sessions.
func NewManager(logger *zap.Logger, cfg config.BrowserConfig) *Manager {
	return &Manager{
		logger: logger.Named("session_manager"),
		cfg:    cfg,
		launch: launchChromium,
	}
}

// Acquire returns the live session, launching one if needed. Idempotent.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.session != nil && !m.session.Closed() {
		s := m.session
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	v, err, _ := m.sf.Do("acquire", func() (interface{}, error) {
		// Re-check under the lock: another flight may have just finished.
		m.mu.Lock()
		if m.session != nil && !m.session.Closed() {
			s := m.session
			m.mu.Unlock()
			return s, nil
		}
		m.mu.Unlock()

		m.logger.Info("Launching browser session",
			zap.Bool("headless", m.cfg.Headless),
			zap.String("profile_dir", m.cfg.ProfileDir))

		page, cancel, err := m.launch(ctx, m.cfg, m.logger)
		if err != nil {
			return nil, fmt.Errorf("launching browser: %w", err)
		}

		s, err := newSession(m.logger, page, m.cfg.ScreenshotsDir, m.cfg.WatcherInterval, cancel)
		if err != nil {
			cancel()
			return nil, err
		}
		s.onClose = func() {
			m.mu.Lock()
			if m.session == s {
				m.session = nil
			}
			m.mu.Unlock()
		}

		m.mu.Lock()
		m.session = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// CurrentPage returns the active tab of the live session. Calling it before
// Acquire is an ordering error.
func (m *Manager) CurrentPage() (Page, error) {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return nil, ErrSessionNotStarted
	}
	return s.Page()
}

// Shutdown closes the live session, if any.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Close()
}
