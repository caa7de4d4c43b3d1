// File: internal/navigator/step.go
package navigator

import "time"

// Action is the kind of interaction a step performs once its selector
// resolves.
type Action int

const (
	// ActionClick scrolls the element into view and clicks it.
	ActionClick Action = iota
	// ActionFill sets the element's value to Step.Value.
	ActionFill
	// ActionType sends Step.Value key by key and presses Enter.
	ActionType
	// ActionWaitVisible only waits for the element to appear.
	ActionWaitVisible
	// ActionVerifyDialog checks that a dialog/modal element is present
	// without interacting with it.
	ActionVerifyDialog
)

func (a Action) String() string {
	switch a {
	case ActionClick:
		return "click"
	case ActionFill:
		return "fill"
	case ActionType:
		return "type"
	case ActionWaitVisible:
		return "wait_visible"
	case ActionVerifyDialog:
		return "verify_dialog"
	default:
		return "unknown"
	}
}

// Step is one declarative, data-only interaction within a flow. Steps are
// immutable configuration: flows construct them, the executor consumes them.
type Step struct {
	// Description names the step in logs and errors.
	Description string
	// Selector is the primary locator.
	Selector string
	// Fallbacks are alternative locators, tried strictly in order after the
	// primary fails to resolve.
	Fallbacks []string
	// TextHint filters multi-match selectors down to the element whose
	// visible text contains the hint.
	TextHint string
	// Action selects the interaction kind; zero value is a click.
	Action Action
	// Value is the text for fill/type actions.
	Value string
	// WaitBefore is lead time before the first resolution attempt, for
	// widgets that render asynchronously after the previous interaction.
	WaitBefore time.Duration
	// Timeout bounds each selector candidate individually. The worst case
	// for a step is therefore Timeout * (1 + len(Fallbacks)): a deliberate
	// trade of latency for robustness against slow-rendering candidates.
	Timeout time.Duration
	// Critical marks steps whose failure aborts the whole flow. Non-critical
	// steps are best-effort: their failure is recorded and the flow moves on.
	Critical bool
}

// candidates returns the ordered locator list: primary first, then fallbacks.
func (s Step) candidates() []string {
	out := make([]string, 0, 1+len(s.Fallbacks))
	out = append(out, s.Selector)
	out = append(out, s.Fallbacks...)
	return out
}

// StepResult records the outcome of executing one step.
type StepResult struct {
	Description  string
	Succeeded    bool
	SelectorUsed string
	Err          error
}
