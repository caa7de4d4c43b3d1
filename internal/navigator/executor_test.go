// File: internal/navigator/executor_test.go
package navigator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestExecutor() *Executor {
	e := NewExecutor(zap.NewNop(), 100*time.Millisecond)
	e.sleep = noSleep
	return e
}

func TestExecuteTriesCandidatesInDeclaredOrder(t *testing.T) {
	page := newFakePage()
	page.clickErr = func(selector string) error {
		if selector == "#primary" || selector == "#fallback-1" {
			return errors.New("element not found")
		}
		return nil
	}

	exec := newTestExecutor()
	step := Step{
		Description: "click the prompt",
		Selector:    "#primary",
		Fallbacks:   []string{"#fallback-1", "#fallback-2"},
		Action:      ActionClick,
		Critical:    true,
	}

	res, err := exec.Execute(context.Background(), page, step)
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, "#fallback-2", res.SelectorUsed)
	assert.Equal(t, []string{"#primary", "#fallback-1", "#fallback-2"}, page.callsTo("click"))
}

func TestExecuteStopsAtFirstSuccessfulCandidate(t *testing.T) {
	page := newFakePage()
	exec := newTestExecutor()
	step := Step{
		Description: "click the prompt",
		Selector:    "#primary",
		Fallbacks:   []string{"#fallback-1"},
		Action:      ActionClick,
	}

	res, err := exec.Execute(context.Background(), page, step)
	require.NoError(t, err)
	assert.Equal(t, "#primary", res.SelectorUsed)
	assert.Equal(t, []string{"#primary"}, page.callsTo("click"))
}

func TestExecuteCriticalFailureReturnsStepError(t *testing.T) {
	page := newFakePage()
	page.clickErr = func(string) error { return errors.New("element not found") }

	exec := newTestExecutor()
	step := Step{
		Description: "submit the form",
		Selector:    "#submit",
		Fallbacks:   []string{"button[title='OK']"},
		Action:      ActionClick,
		Critical:    true,
	}

	_, err := exec.Execute(context.Background(), page, step)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "submit the form", stepErr.Description)
	assert.Equal(t, []string{"#submit", "button[title='OK']"}, stepErr.SelectorsTried)
}

func TestExecuteNonCriticalFailureIsAbsorbed(t *testing.T) {
	page := newFakePage()
	page.clickErr = func(string) error { return errors.New("element not found") }

	exec := newTestExecutor()
	step := Step{
		Description: "dismiss the banner",
		Selector:    "#banner-close",
		Action:      ActionClick,
	}

	res, err := exec.Execute(context.Background(), page, step)
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Error(t, res.Err)
}

func TestExecuteTextHintUsesFilteredClick(t *testing.T) {
	page := newFakePage()
	exec := newTestExecutor()
	step := Step{
		Description: "choose an option",
		Selector:    "[role='option']",
		TextHint:    "Fall Semester",
		Action:      ActionClick,
	}

	_, err := exec.Execute(context.Background(), page, step)
	require.NoError(t, err)
	assert.Empty(t, page.callsTo("click"))
	assert.Equal(t, []string{"[role='option']"}, page.callsTo("click_text"))
}

func TestExecuteWaitBeforeUsesSleepHook(t *testing.T) {
	page := newFakePage()
	exec := newTestExecutor()

	var slept time.Duration
	exec.sleep = func(ctx context.Context, d time.Duration) error {
		slept += d
		return nil
	}

	step := Step{Description: "settle", Selector: "#x", Action: ActionClick, WaitBefore: 3 * time.Second}
	_, err := exec.Execute(context.Background(), page, step)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, slept)
}

func TestExecuteAllStopsAtCriticalFailure(t *testing.T) {
	page := newFakePage()
	page.clickErr = func(selector string) error {
		if selector == "#second" {
			return errors.New("element not found")
		}
		return nil
	}

	exec := newTestExecutor()
	steps := []Step{
		{Description: "first", Selector: "#first", Action: ActionClick, Critical: true},
		{Description: "second", Selector: "#second", Action: ActionClick, Critical: true},
		{Description: "third", Selector: "#third", Action: ActionClick, Critical: true},
	}

	results, err := exec.ExecuteAll(context.Background(), page, steps)
	require.Error(t, err)
	assert.Len(t, results, 2)
	assert.NotContains(t, page.callsTo("click"), "#third")
}

func TestExecuteAllContinuesPastNonCriticalFailure(t *testing.T) {
	page := newFakePage()
	page.clickErr = func(selector string) error {
		if selector == "#optional" {
			return errors.New("element not found")
		}
		return nil
	}

	exec := newTestExecutor()
	steps := []Step{
		{Description: "optional", Selector: "#optional", Action: ActionClick},
		{Description: "required", Selector: "#required", Action: ActionClick, Critical: true},
	}

	results, err := exec.ExecuteAll(context.Background(), page, steps)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Succeeded)
	assert.True(t, results[1].Succeeded)
}

func TestExecuteVerifyDialogRequiresMatch(t *testing.T) {
	page := newFakePage()
	page.countFn = func(string) (int, error) { return 0, nil }

	exec := newTestExecutor()
	step := Step{
		Description: "confirm the dialog",
		Selector:    "[role='dialog']",
		Action:      ActionVerifyDialog,
		Critical:    true,
	}

	_, err := exec.Execute(context.Background(), page, step)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
}

func TestScrollUntilVisibleRevealsHiddenOption(t *testing.T) {
	const target = "[data-automation-label='2026-2027 Semester Academic Calendar']"
	const options = "[data-automation-id='promptOption']"

	page := newFakePage()
	scrolls := 0
	page.countFn = func(selector string) (int, error) {
		if selector == target && scrolls >= 4 {
			return 1, nil
		}
		return 0, nil
	}
	page.scrollErr = func(selector string) error {
		if selector == options {
			scrolls++
		}
		return nil
	}

	exec := newTestExecutor()
	err := exec.ScrollUntilVisible(context.Background(), page, target, options, "2026-2027")
	require.NoError(t, err)
	assert.Equal(t, 4, scrolls)
	assert.Equal(t, []string{target}, page.callsTo("click"))
}

func TestScrollUntilVisibleExhaustsBudget(t *testing.T) {
	page := newFakePage()
	page.countFn = func(string) (int, error) { return 0, nil }

	exec := newTestExecutor()
	err := exec.ScrollUntilVisible(context.Background(), page, "#never", "#options", "2099-2100")

	var notFound *OptionNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "2099-2100", notFound.Label)
	assert.Equal(t, maxRevealScrolls, notFound.Attempts)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr, "exhausted reveal is a step failure")
	assert.Equal(t, []string{"#never"}, stepErr.SelectorsTried)
	assert.Len(t, page.callsTo("scroll_last"), maxRevealScrolls)
	assert.Empty(t, page.callsTo("click"))
}

func TestScrollUntilVisibleHonorsCancellation(t *testing.T) {
	page := newFakePage()
	page.countFn = func(string) (int, error) { return 0, nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := newTestExecutor()
	err := exec.ScrollUntilVisible(ctx, page, "#never", "#options", "x")
	require.ErrorIs(t, err, context.Canceled)
}

func TestStepCandidatesOrder(t *testing.T) {
	step := Step{Selector: "#a", Fallbacks: []string{"#b", "#c"}}
	assert.Equal(t, []string{"#a", "#b", "#c"}, step.candidates())
}

func TestActionString(t *testing.T) {
	for _, tc := range []struct {
		action Action
		want   string
	}{
		{ActionClick, "click"},
		{ActionFill, "fill"},
		{ActionType, "type"},
		{ActionWaitVisible, "wait_visible"},
		{ActionVerifyDialog, "verify_dialog"},
	} {
		assert.Equal(t, tc.want, tc.action.String(), fmt.Sprintf("action %d", tc.action))
	}
}
