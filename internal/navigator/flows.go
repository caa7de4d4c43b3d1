// File: internal/navigator/flows.go
package navigator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jmosier/campusnav/api/schemas"
	"github.com/jmosier/campusnav/internal/config"
)

// flowState is the shared state machine shape of every flow. Completed and
// Failed are terminal; a retry means a fresh flow invocation, never a resume.
type flowState int

const (
	flowStart flowState = iota
	flowLoggingIn
	flowAuthenticated
	flowNavigating
	flowStepSequence
	flowCompleted
	flowFailed
)

func (s flowState) String() string {
	switch s {
	case flowStart:
		return "start"
	case flowLoggingIn:
		return "logging_in"
	case flowAuthenticated:
		return "authenticated"
	case flowNavigating:
		return "navigating"
	case flowStepSequence:
		return "step_sequence_running"
	case flowCompleted:
		return "completed"
	case flowFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// advisorSectionSelector locates the contacts widget the roster is scraped
// from.
const advisorSectionSelector = "[aria-label='Important Contacts Support Network'] table"

const advisorScrapeJS = `(() => {
	const section = document.querySelector("[aria-label='Important Contacts Support Network']");
	if (!section) return [];
	const rows = section.querySelectorAll("table[data-automation-id='table'] tbody tr");
	return Array.from(rows).map(row => {
		const cells = row.querySelectorAll("td");
		return {
			role: cells[0] ? cells[0].innerText.trim() : '',
			cohort: cells[1] ? cells[1].innerText.trim() : '',
			person: cells[3] ? cells[3].innerText.trim() : '',
			email: cells[4] ? cells[4].innerText.trim() : ''
		};
	}).filter(r => r.role && r.role.includes('Advisor'));
})()`

// Navigator composes the session manager, authenticator, and step executor
// into complete portal journeys. Flows never leak a raw driver error: every
// outcome, including a panic, becomes a FlowResult.
type Navigator struct {
	logger   *zap.Logger
	browser  config.BrowserConfig
	portal   config.PortalConfig
	sessions *Manager
	auth     *Authenticator
	exec     *Executor
}

// New creates a Navigator with a real browser-backed session manager.
func New(logger *zap.Logger, cfg *config.Config) *Navigator {
	log := logger.Named("navigator")
	return &Navigator{
		logger:   log,
		browser:  cfg.Browser,
		portal:   cfg.Portal,
		sessions: NewManager(log, cfg.Browser),
		auth:     NewAuthenticator(log, cfg.Portal, cfg.Browser.LoginTimeout),
		exec:     NewExecutor(log, cfg.Browser.StepTimeout),
	}
}

// Sessions exposes the session manager for lifecycle control (shutdown).
func (n *Navigator) Sessions() *Manager { return n.sessions }

// credentials resolves explicit credentials, falling back to configuration.
func (n *Navigator) credentials(creds *schemas.Credentials) schemas.Credentials {
	if creds != nil && !creds.IsZero() {
		return *creds
	}
	return schemas.Credentials{Username: n.portal.Username, Password: n.portal.Password}
}

// RunRegistration drives the course-registration journey: login, Academics,
// advisor roster, Find Course Sections, the calendar/semester/level form,
// submit, and a screenshot of the results page.
func (n *Navigator) RunRegistration(ctx context.Context, creds *schemas.Credentials) (result schemas.FlowResult) {
	flow := newFlowRun(n.logger, "registration")
	defer flow.recoverPanic(&result)

	sess, page, done, err := n.checkoutSession(ctx)
	if err != nil {
		return flow.fail(nil, "could not start a browser session", err)
	}
	defer done()

	if err := page.Navigate(ctx, n.portal.BaseURL); err != nil {
		return flow.fail(sess, "could not reach the portal entry page", err)
	}
	if _, err := n.exec.Execute(ctx, page, portalEntryStep()); err != nil {
		return flow.fail(sess, "could not open the portal login link", err)
	}

	flow.transition(flowLoggingIn)
	ok, err := n.auth.EnsureLoggedIn(ctx, page, n.credentials(creds))
	if err != nil {
		return flow.fail(sess, "login could not be completed", err)
	}
	if !ok {
		return flow.fail(sess, "login failed - could not reach the registration page", nil)
	}
	flow.transition(flowAuthenticated)

	flow.transition(flowNavigating)
	if _, err := n.exec.Execute(ctx, page, academicsEntryStep()); err != nil {
		return flow.fail(sess, "could not open the academics dashboard", err)
	}
	// The roster lives on the Academics dashboard, not the section search.
	n.scrapeAdvisors(ctx, sess, page)
	if _, err := n.exec.Execute(ctx, page, courseSectionSearchStep()); err != nil {
		return flow.fail(sess, "could not open the course section search", err)
	}

	flow.transition(flowStepSequence)
	if _, err := n.exec.ExecuteAll(ctx, page, calendarSteps(n.portal)); err != nil {
		return flow.fail(sess, "could not fill in the course search form", err)
	}

	yearSelector := fmt.Sprintf("[data-automation-label='%s']", n.portal.AcademicYear)
	if err := n.exec.ScrollUntilVisible(ctx, page, yearSelector, "[data-automation-id='promptOption']", n.portal.AcademicYear); err != nil {
		return flow.fail(sess, "could not locate the academic year option", err)
	}

	if _, err := n.exec.ExecuteAll(ctx, page, semesterAndLevelSteps(n.portal)); err != nil {
		return flow.fail(sess, "could not submit the course search form", err)
	}

	shot := sess.ScreenshotPath("registration_results")
	if err := page.Screenshot(ctx, shot); err != nil {
		return flow.fail(sess, "results page reached but screenshot failed", err)
	}

	flow.transition(flowCompleted)
	return schemas.FlowResult{
		Success:    true,
		Message:    "Navigated to course registration successfully.",
		Screenshot: shot,
	}
}

// RunFinancialAccount drives the simpler finances journey: login, Finances,
// screenshot.
func (n *Navigator) RunFinancialAccount(ctx context.Context, creds *schemas.Credentials) (result schemas.FlowResult) {
	flow := newFlowRun(n.logger, "financial_account")
	defer flow.recoverPanic(&result)

	sess, page, done, err := n.checkoutSession(ctx)
	if err != nil {
		return flow.fail(nil, "could not start a browser session", err)
	}
	defer done()

	if err := page.Navigate(ctx, n.portal.BaseURL); err != nil {
		return flow.fail(sess, "could not reach the portal entry page", err)
	}
	if _, err := n.exec.Execute(ctx, page, portalEntryStep()); err != nil {
		return flow.fail(sess, "could not open the portal login link", err)
	}

	flow.transition(flowLoggingIn)
	ok, err := n.auth.EnsureLoggedIn(ctx, page, n.credentials(creds))
	if err != nil {
		return flow.fail(sess, "login could not be completed", err)
	}
	if !ok {
		return flow.fail(sess, "login failed - could not reach the finance page", nil)
	}
	flow.transition(flowAuthenticated)

	flow.transition(flowNavigating)
	if _, err := n.exec.ExecuteAll(ctx, page, financesSteps()); err != nil {
		return flow.fail(sess, "could not open the finances dashboard", err)
	}

	shot := sess.ScreenshotPath("financial_account")
	if err := page.Screenshot(ctx, shot); err != nil {
		return flow.fail(sess, "finances page reached but screenshot failed", err)
	}

	flow.transition(flowCompleted)
	return schemas.FlowResult{
		Success:    true,
		Message:    "Navigated to the financial account section successfully.",
		Screenshot: shot,
	}
}

// checkoutSession acquires the shared session and claims it for one flow.
// The returned done func releases the claim and, under close_after_flow,
// tears the session down so the next flow starts fresh.
func (n *Navigator) checkoutSession(ctx context.Context) (*Session, Page, func(), error) {
	sess, err := n.sessions.Acquire(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	sess.checkout()

	page, err := sess.Page()
	if err != nil {
		sess.release()
		return nil, nil, nil, err
	}

	done := func() {
		sess.release()
		if n.browser.CloseAfterFlow {
			_ = sess.Close()
		}
	}
	return sess, page, done, nil
}

// scrapeAdvisors reads the advisor roster off the Academics page unless the
// session already holds it. Best effort: the flow proceeds either way.
func (n *Navigator) scrapeAdvisors(ctx context.Context, sess *Session, page Page) {
	if _, ok := sess.Advisors(); ok {
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := page.WaitVisible(waitCtx, advisorSectionSelector); err != nil {
		n.logger.Warn("Advisor roster table not found; skipping scrape", zap.Error(err))
		return
	}

	var advisors []schemas.Advisor
	if err := page.Evaluate(ctx, advisorScrapeJS, &advisors); err != nil {
		n.logger.Warn("Advisor roster scrape failed", zap.Error(err))
		return
	}

	sess.SetAdvisors(advisors)
	n.logger.Info("Advisor roster cached", zap.Int("count", len(advisors)))
}

// Advisors returns the roster cached on the live session, if any.
func (n *Navigator) Advisors() ([]schemas.Advisor, bool) {
	n.sessions.mu.Lock()
	sess := n.sessions.session
	n.sessions.mu.Unlock()
	if sess == nil {
		return nil, false
	}
	return sess.Advisors()
}

// flowRun tracks one flow invocation's state machine and terminal handling.
type flowRun struct {
	logger *zap.Logger
	name   string
	state  flowState
}

func newFlowRun(logger *zap.Logger, name string) *flowRun {
	f := &flowRun{
		logger: logger.Named("flow").With(zap.String("flow", name)),
		name:   name,
		state:  flowStart,
	}
	f.logger.Info("Flow started")
	return f
}

func (f *flowRun) transition(to flowState) {
	f.logger.Debug("Flow state transition",
		zap.Stringer("from", f.state),
		zap.Stringer("to", to))
	f.state = to
}

// fail converts an error into the terminal failure result, attaching a
// best-effort screenshot of the page the flow died on.
func (f *flowRun) fail(sess *Session, message string, err error) schemas.FlowResult {
	f.transition(flowFailed)

	result := schemas.FlowResult{Success: false, Message: message}
	if err != nil {
		result.Error = err.Error()
		f.logger.Error("Flow failed", zap.String("message", message), zap.Error(err))
	} else {
		result.Error = message
		f.logger.Error("Flow failed", zap.String("message", message))
	}

	if sess != nil {
		if page, pageErr := sess.Page(); pageErr == nil {
			shotCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			shot := sess.ScreenshotPath(f.name + "_failed")
			if shotErr := page.Screenshot(shotCtx, shot); shotErr == nil {
				result.Screenshot = shot
			}
		}
	}
	return result
}

// recoverPanic is the outermost flow boundary: nothing escapes as a panic.
func (f *flowRun) recoverPanic(result *schemas.FlowResult) {
	if r := recover(); r != nil {
		f.logger.Error("Flow panicked", zap.Any("panic", r))
		*result = schemas.FlowResult{
			Success: false,
			Message: "internal error during flow execution",
			Error:   fmt.Sprintf("panic: %v", r),
		}
	}
}
