// File: internal/navigator/page.go
package navigator

import (
	"context"
	"time"
)

// Page is the logical browser tab the navigator drives. It abstracts the
// underlying driver so the authenticator, step executor, and flows can run
// against a fake in tests. Every method takes a context and must honor its
// deadline; none of them may block indefinitely.
//
// Selectors are CSS by default; strings starting with "/" or "(" are treated
// as XPath by the chromedp implementation.
type Page interface {
	// Navigate loads the URL and waits for the load to settle.
	Navigate(ctx context.Context, url string) error
	// Content returns the serialized HTML of the current page.
	Content(ctx context.Context) (string, error)
	// Click scrolls the first match into view, waits for visibility, clicks.
	Click(ctx context.Context, selector string) error
	// ClickWithText clicks the first match whose visible text contains hint.
	// Used for selectors that legitimately match many elements, such as the
	// options of a virtualized dropdown.
	ClickWithText(ctx context.Context, selector, hint string) error
	// Fill sets the value of an input in one shot.
	Fill(ctx context.Context, selector, value string) error
	// Type sends text to an element key by key, then presses Enter. Some
	// search dropdowns only filter on real key events.
	Type(ctx context.Context, selector, text string) error
	// WaitVisible blocks until the selector matches a visible element.
	WaitVisible(ctx context.Context, selector string) error
	// WaitURLContains blocks until the page URL contains fragment.
	WaitURLContains(ctx context.Context, fragment string, timeout time.Duration) error
	// Count reports how many elements currently match the selector.
	Count(ctx context.Context, selector string) (int, error)
	// ScrollIntoView scrolls the first match into the viewport.
	ScrollIntoView(ctx context.Context, selector string) error
	// ScrollLastIntoView scrolls the LAST match into the viewport. This is
	// the scroll-to-reveal primitive: virtualized lists render more options
	// when their current tail becomes visible.
	ScrollLastIntoView(ctx context.Context, selector string) error
	// Evaluate runs a JavaScript expression and unmarshals its result.
	Evaluate(ctx context.Context, expression string, out any) error
	// Screenshot captures the viewport to path, creating parent directories.
	Screenshot(ctx context.Context, path string) error
	// IsClosed reports whether the tab is gone. Polled by the session's
	// liveness watcher.
	IsClosed() bool
}
