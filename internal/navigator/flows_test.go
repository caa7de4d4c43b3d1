// File: internal/navigator/flows_test.go
package navigator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmosier/campusnav/api/schemas"
	"github.com/jmosier/campusnav/internal/config"
)

func testNavigatorConfig(t *testing.T) *config.Config {
	t.Helper()
	portal := testPortalConfig()
	portal.Username = "student"
	portal.Password = "hunter2"
	portal.AcademicYear = "2025-2026 Semester Academic Calendar"
	portal.AcademicSemester = "Fall Semester 2025"
	portal.AcademicLevel = "Graduate"
	return &config.Config{
		Browser: testBrowserConfig(t),
		Portal:  portal,
	}
}

// newTestNavigator builds a Navigator whose manager launches the given fake
// page instead of a browser.
func newTestNavigator(t *testing.T, cfg *config.Config, page Page) (*Navigator, *atomic.Int32) {
	t.Helper()
	log := zap.NewNop()
	var launches atomic.Int32
	mgr := &Manager{
		logger: log,
		cfg:    cfg.Browser,
		launch: fakeLaunch(&launches, page),
	}
	exec := NewExecutor(log, cfg.Browser.StepTimeout)
	exec.sleep = noSleep
	nav := &Navigator{
		logger:   log,
		browser:  cfg.Browser,
		portal:   cfg.Portal,
		sessions: mgr,
		auth:     NewAuthenticator(log, cfg.Portal, cfg.Browser.LoginTimeout),
		exec:     exec,
	}
	t.Cleanup(func() { _ = mgr.Shutdown() })
	return nav, &launches
}

func TestRunRegistrationSuccess(t *testing.T) {
	cfg := testNavigatorConfig(t)
	page := newFakePage()
	page.setContent(landingPageHTML())

	nav, _ := newTestNavigator(t, cfg, page)
	result := nav.RunRegistration(context.Background(), nil)

	require.True(t, result.Success, "flow failed: %s / %s", result.Message, result.Error)
	assert.Empty(t, result.Error)
	assert.Contains(t, result.Screenshot, "registration_results")

	clicks := page.callsTo("click")
	assert.Contains(t, clicks, "[data-automation-id='wd-CommandButton_uic_okButton']")
	assert.Contains(t, page.callsTo("wait_visible"), "[data-automation-id='resultsContainer']")
}

func TestRunRegistrationCompletesLoginChallenge(t *testing.T) {
	cfg := testNavigatorConfig(t)
	page := newFakePage()
	page.setContent(loginPageHTML())
	page.clickTextErr = func(selector, hint string) error {
		if hint == "Sign in" {
			page.setContent(landingPageHTML())
		}
		return nil
	}

	nav, _ := newTestNavigator(t, cfg, page)
	result := nav.RunRegistration(context.Background(), nil)

	require.True(t, result.Success, "flow failed: %s / %s", result.Message, result.Error)
	require.Len(t, page.callsTo("fill"), 1, "password submitted exactly once")
}

func TestRunRegistrationReusesSessionAcrossFlows(t *testing.T) {
	cfg := testNavigatorConfig(t)
	page := newFakePage()
	page.setContent(landingPageHTML())

	nav, launches := newTestNavigator(t, cfg, page)
	require.True(t, nav.RunRegistration(context.Background(), nil).Success)
	require.True(t, nav.RunRegistration(context.Background(), nil).Success)

	assert.Equal(t, int32(1), launches.Load(), "second flow reuses the live session")
}

func TestRunRegistrationClosesSessionWhenConfigured(t *testing.T) {
	cfg := testNavigatorConfig(t)
	cfg.Browser.CloseAfterFlow = true
	page := newFakePage()
	page.setContent(landingPageHTML())

	nav, _ := newTestNavigator(t, cfg, page)
	require.True(t, nav.RunRegistration(context.Background(), nil).Success)

	_, err := nav.Sessions().CurrentPage()
	require.ErrorIs(t, err, ErrSessionNotStarted)
}

func TestRunRegistrationAdvisorRosterScrapedOnce(t *testing.T) {
	cfg := testNavigatorConfig(t)
	page := newFakePage()
	page.setContent(landingPageHTML())

	var scrapes atomic.Int32
	page.evalFn = func(expression string, out any) error {
		scrapes.Add(1)
		if roster, ok := out.(*[]schemas.Advisor); ok {
			*roster = []schemas.Advisor{{Role: "Academic Advisor", Person: "A. Mentor", Email: "mentor@example.edu"}}
		}
		return nil
	}

	nav, _ := newTestNavigator(t, cfg, page)
	require.True(t, nav.RunRegistration(context.Background(), nil).Success)
	require.True(t, nav.RunRegistration(context.Background(), nil).Success)

	assert.Equal(t, int32(1), scrapes.Load(), "roster cached for the session's lifetime")

	advisors, ok := nav.Advisors()
	require.True(t, ok)
	require.Len(t, advisors, 1)
	assert.Equal(t, "A. Mentor", advisors[0].Person)
}

// The roster table only exists on the Academics dashboard, so the scrape has
// to happen before the flow clicks through to the section search.
func TestRunRegistrationScrapesAdvisorsBeforeSectionSearch(t *testing.T) {
	cfg := testNavigatorConfig(t)
	page := newFakePage()
	page.setContent(landingPageHTML())

	nav, _ := newTestNavigator(t, cfg, page)
	require.True(t, nav.RunRegistration(context.Background(), nil).Success)

	page.mu.Lock()
	calls := append([]pageCall(nil), page.calls...)
	page.mu.Unlock()

	rosterWait, sectionClick := -1, -1
	for i, c := range calls {
		if c.method == "wait_visible" && c.selector == advisorSectionSelector && rosterWait == -1 {
			rosterWait = i
		}
		if c.method == "click" && c.selector == "//*[text()='Find Course Sections']" {
			sectionClick = i
		}
	}
	require.NotEqual(t, -1, rosterWait, "roster table awaited")
	require.NotEqual(t, -1, sectionClick, "section search opened")
	assert.Less(t, rosterWait, sectionClick,
		"roster scraped off the academics dashboard before leaving it")
}

func TestRunRegistrationFailedLoginReturnsResult(t *testing.T) {
	cfg := testNavigatorConfig(t)
	page := newFakePage()
	page.setContent(loginPageHTML())
	page.urlWaitErr = context.DeadlineExceeded

	nav, _ := newTestNavigator(t, cfg, page)
	result := nav.RunRegistration(context.Background(), nil)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Contains(t, result.Message, "login")
}

func TestRunRegistrationCriticalStepFailureReturnsResult(t *testing.T) {
	cfg := testNavigatorConfig(t)
	page := newFakePage()
	page.setContent(landingPageHTML())
	page.clickErr = func(selector string) error {
		if strings.Contains(selector, "okButton") || strings.Contains(selector, "OK") {
			return errors.New("element not found")
		}
		return nil
	}

	nav, _ := newTestNavigator(t, cfg, page)
	result := nav.RunRegistration(context.Background(), nil)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "submit the course section search")
	assert.Contains(t, result.Screenshot, "registration_failed",
		"failure captures a diagnostic screenshot")
}

func TestRunRegistrationLaunchFailureReturnsResult(t *testing.T) {
	cfg := testNavigatorConfig(t)
	log := zap.NewNop()
	mgr := &Manager{
		logger: log,
		cfg:    cfg.Browser,
		launch: func(ctx context.Context, bc config.BrowserConfig, l *zap.Logger) (Page, context.CancelFunc, error) {
			return nil, nil, errors.New("chromium not found")
		},
	}
	exec := NewExecutor(log, cfg.Browser.StepTimeout)
	exec.sleep = noSleep
	nav := &Navigator{
		logger:   log,
		browser:  cfg.Browser,
		portal:   cfg.Portal,
		sessions: mgr,
		auth:     NewAuthenticator(log, cfg.Portal, cfg.Browser.LoginTimeout),
		exec:     exec,
	}

	result := nav.RunRegistration(context.Background(), nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "chromium not found")
	assert.Empty(t, result.Screenshot)
}

func TestRunRegistrationRecoversFromPanic(t *testing.T) {
	cfg := testNavigatorConfig(t)
	page := newFakePage()
	page.setContent(landingPageHTML())
	page.clickErr = func(selector string) error {
		panic("driver went away")
	}

	nav, _ := newTestNavigator(t, cfg, page)

	var result schemas.FlowResult
	require.NotPanics(t, func() {
		result = nav.RunRegistration(context.Background(), nil)
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "panic")
}

func TestRunRegistrationHonorsCancellation(t *testing.T) {
	cfg := testNavigatorConfig(t)
	page := newFakePage()
	page.setContent(landingPageHTML())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	nav, _ := newTestNavigator(t, cfg, page)
	result := nav.RunRegistration(ctx, nil)
	assert.False(t, result.Success)
}

func TestRunFinancialAccountSuccess(t *testing.T) {
	cfg := testNavigatorConfig(t)
	page := newFakePage()
	page.setContent(landingPageHTML())

	nav, _ := newTestNavigator(t, cfg, page)
	result := nav.RunFinancialAccount(context.Background(), nil)

	require.True(t, result.Success, "flow failed: %s / %s", result.Message, result.Error)
	assert.Contains(t, result.Screenshot, "financial_account")
	assert.Contains(t, page.callsTo("click"), "//button[.//text()='Finances']")
}

func TestRunFinancialAccountScreenshotFailure(t *testing.T) {
	cfg := testNavigatorConfig(t)
	page := newFakePage()
	page.setContent(landingPageHTML())
	page.shotErr = errors.New("disk full")

	nav, _ := newTestNavigator(t, cfg, page)
	result := nav.RunFinancialAccount(context.Background(), nil)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "disk full")
}

func TestCredentialsFallBackToConfig(t *testing.T) {
	cfg := testNavigatorConfig(t)
	nav, _ := newTestNavigator(t, cfg, newFakePage())

	creds := nav.credentials(nil)
	assert.Equal(t, "student", creds.Username)
	assert.Equal(t, "hunter2", creds.Password)

	explicit := &schemas.Credentials{Username: "other", Password: "pw"}
	assert.Equal(t, *explicit, nav.credentials(explicit))
}

// The fallback chain is exercised end to end: the primary calendar selector
// is stale, the structural fallback still resolves, and the flow finishes.
func TestRunRegistrationSurvivesStalePrimarySelector(t *testing.T) {
	cfg := testNavigatorConfig(t)
	page := newFakePage()
	page.setContent(landingPageHTML())
	page.clickErr = func(selector string) error {
		if selector == "[data-uxi-element-id='selectinput-15$456818']" {
			return errors.New("element not found")
		}
		return nil
	}

	nav, _ := newTestNavigator(t, cfg, page)
	result := nav.RunRegistration(context.Background(), nil)

	require.True(t, result.Success, "flow failed: %s / %s", result.Message, result.Error)
	clicks := page.callsTo("click")
	assert.Contains(t, clicks, "//label[contains(., 'Start Date within')]/following::input[1]")
}

// Flow timing sanity: noSleep still respects a dead context, so WaitBefore
// steps do not spin when the caller has given up.
func TestNoSleepRespectsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()
	require.Error(t, noSleep(ctx, time.Hour))
}
