// File: internal/navigator/executor.go
package navigator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultStepTimeout = 10 * time.Second

	// Scroll-to-reveal budget. Virtualized dropdowns load options as their
	// tail scrolls into view; 30 rounds covers every list seen in practice.
	maxRevealScrolls    = 30
	revealScrollDelay   = 300 * time.Millisecond
	revealTargetTimeout = 3 * time.Second
)

// Executor resolves and performs declarative steps against a live page, with
// deterministic fallback ordering. It borrows the page and never owns it.
type Executor struct {
	logger      *zap.Logger
	stepTimeout time.Duration

	// sleep is swappable so tests do not wait out real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates a step executor. stepTimeout is the default
// per-candidate budget for steps that do not set their own.
func NewExecutor(logger *zap.Logger, stepTimeout time.Duration) *Executor {
	if stepTimeout <= 0 {
		stepTimeout = defaultStepTimeout
	}
	return &Executor{
		logger:      logger.Named("executor"),
		stepTimeout: stepTimeout,
		sleep:       sleepCtx,
	}
}

// Execute runs one step. Candidates are tried strictly in declared order,
// each within its own timeout; the first success wins. A critical step whose
// candidates all fail returns a StepError; a non-critical one returns a
// failed StepResult and a nil error.
func (e *Executor) Execute(ctx context.Context, page Page, step Step) (StepResult, error) {
	result := StepResult{Description: step.Description}

	if step.WaitBefore > 0 {
		if err := e.sleep(ctx, step.WaitBefore); err != nil {
			result.Err = err
			return result, e.failure(step, result)
		}
	}

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = e.stepTimeout
	}

	var lastErr error
	for i, selector := range step.candidates() {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		err := e.tryCandidate(ctx, page, step, selector, timeout)
		if err == nil {
			result.Succeeded = true
			result.SelectorUsed = selector
			if i > 0 {
				e.logger.Info("Step resolved via fallback selector",
					zap.String("step", step.Description),
					zap.String("selector", selector),
					zap.Int("fallback_index", i))
			}
			return result, nil
		}

		lastErr = err
		e.logger.Debug("Selector candidate failed",
			zap.String("step", step.Description),
			zap.String("selector", selector),
			zap.Error(err))
	}

	result.Err = lastErr
	return result, e.failure(step, result)
}

// tryCandidate resolves one selector and performs the step's action within
// the candidate's own timeout.
func (e *Executor) tryCandidate(ctx context.Context, page Page, step Step, selector string, timeout time.Duration) error {
	candCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch step.Action {
	case ActionClick:
		if step.TextHint != "" {
			return page.ClickWithText(candCtx, selector, step.TextHint)
		}
		return page.Click(candCtx, selector)

	case ActionFill:
		if err := page.WaitVisible(candCtx, selector); err != nil {
			return err
		}
		return page.Fill(candCtx, selector, step.Value)

	case ActionType:
		if err := page.WaitVisible(candCtx, selector); err != nil {
			return err
		}
		return page.Type(candCtx, selector, step.Value)

	case ActionWaitVisible:
		return page.WaitVisible(candCtx, selector)

	case ActionVerifyDialog:
		n, err := page.Count(candCtx, selector)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("dialog %q not present", selector)
		}
		return nil

	default:
		return fmt.Errorf("unknown step action %d", step.Action)
	}
}

// failure converts a failed step into the executor's propagation policy:
// critical steps raise, non-critical steps are logged and absorbed.
func (e *Executor) failure(step Step, result StepResult) error {
	if !step.Critical {
		e.logger.Warn("Non-critical step failed; continuing",
			zap.String("step", step.Description),
			zap.Error(result.Err))
		return nil
	}
	return &StepError{
		Description:    step.Description,
		SelectorsTried: step.candidates(),
		Err:            result.Err,
	}
}

// ExecuteAll runs steps strictly in declared order, stopping at the first
// critical failure. All produced results are returned either way.
func (e *Executor) ExecuteAll(ctx context.Context, page Page, steps []Step) ([]StepResult, error) {
	results := make([]StepResult, 0, len(steps))
	for _, step := range steps {
		res, err := e.Execute(ctx, page, step)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// ScrollUntilVisible reveals an option inside a virtualized dropdown by
// repeatedly scrolling the last rendered option into view until the target
// appears, then clicks it. optionSelector locates the list's generic option
// elements; targetSelector the wanted one. The iteration budget is fixed:
// exhausting it returns a StepError wrapping OptionNotFoundError rather than
// looping forever.
func (e *Executor) ScrollUntilVisible(ctx context.Context, page Page, targetSelector, optionSelector, label string) error {
	for attempt := 0; attempt < maxRevealScrolls; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := page.Count(ctx, targetSelector)
		if err != nil {
			return fmt.Errorf("counting scroll target %q: %w", targetSelector, err)
		}
		if n > 0 {
			if err := page.ScrollIntoView(ctx, targetSelector); err != nil {
				return err
			}
			waitCtx, cancel := context.WithTimeout(ctx, revealTargetTimeout)
			err := page.WaitVisible(waitCtx, targetSelector)
			cancel()
			if err != nil {
				return err
			}
			return page.Click(ctx, targetSelector)
		}

		if err := page.ScrollLastIntoView(ctx, optionSelector); err != nil {
			return fmt.Errorf("scrolling option list: %w", err)
		}
		if err := e.sleep(ctx, revealScrollDelay); err != nil {
			return err
		}
	}

	return &StepError{
		Description:    fmt.Sprintf("reveal the %q option", label),
		SelectorsTried: []string{targetSelector},
		Err:            &OptionNotFoundError{Label: label, Attempts: maxRevealScrolls},
	}
}

// sleepCtx sleeps for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
