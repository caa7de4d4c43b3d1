// File: internal/navigator/fake_page_test.go
package navigator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// pageCall records one driver invocation for order and count assertions.
type pageCall struct {
	method   string
	selector string
	value    string
}

// fakePage is a scripted Page. Hooks default to success; tests override the
// ones they care about. All state is mutex-guarded so concurrent session
// tests stay race-clean.
type fakePage struct {
	mu    sync.Mutex
	calls []pageCall

	content      string
	navErr       error
	clickErr     func(selector string) error
	clickTextErr func(selector, hint string) error
	fillErr      func(selector string) error
	typeErr      func(selector string) error
	waitErr      func(selector string) error
	urlWaitErr   error
	countFn      func(selector string) (int, error)
	scrollErr    func(selector string) error
	evalFn       func(expression string, out any) error
	shotErr      error

	closed atomic.Bool
}

func newFakePage() *fakePage {
	return &fakePage{content: "<html></html>"}
}

func (p *fakePage) record(method, selector, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, pageCall{method: method, selector: selector, value: value})
}

// callsTo returns the selectors passed to method, in call order.
func (p *fakePage) callsTo(method string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, c := range p.calls {
		if c.method == method {
			out = append(out, c.selector)
		}
	}
	return out
}

func (p *fakePage) setContent(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.content = html
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.record("navigate", url, "")
	return p.navErr
}

func (p *fakePage) Content(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, pageCall{method: "content"})
	return p.content, nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	p.record("click", selector, "")
	if p.clickErr != nil {
		return p.clickErr(selector)
	}
	return nil
}

func (p *fakePage) ClickWithText(ctx context.Context, selector, hint string) error {
	p.record("click_text", selector, hint)
	if p.clickTextErr != nil {
		return p.clickTextErr(selector, hint)
	}
	return nil
}

func (p *fakePage) Fill(ctx context.Context, selector, value string) error {
	p.record("fill", selector, value)
	if p.fillErr != nil {
		return p.fillErr(selector)
	}
	return nil
}

func (p *fakePage) Type(ctx context.Context, selector, text string) error {
	p.record("type", selector, text)
	if p.typeErr != nil {
		return p.typeErr(selector)
	}
	return nil
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string) error {
	p.record("wait_visible", selector, "")
	if p.waitErr != nil {
		return p.waitErr(selector)
	}
	return nil
}

func (p *fakePage) WaitURLContains(ctx context.Context, fragment string, timeout time.Duration) error {
	p.record("wait_url", fragment, "")
	return p.urlWaitErr
}

func (p *fakePage) Count(ctx context.Context, selector string) (int, error) {
	p.record("count", selector, "")
	if p.countFn != nil {
		return p.countFn(selector)
	}
	return 1, nil
}

func (p *fakePage) ScrollIntoView(ctx context.Context, selector string) error {
	p.record("scroll", selector, "")
	if p.scrollErr != nil {
		return p.scrollErr(selector)
	}
	return nil
}

func (p *fakePage) ScrollLastIntoView(ctx context.Context, selector string) error {
	p.record("scroll_last", selector, "")
	if p.scrollErr != nil {
		return p.scrollErr(selector)
	}
	return nil
}

func (p *fakePage) Evaluate(ctx context.Context, expression string, out any) error {
	p.record("evaluate", expression, "")
	if p.evalFn != nil {
		return p.evalFn(expression, out)
	}
	return nil
}

func (p *fakePage) Screenshot(ctx context.Context, path string) error {
	p.record("screenshot", path, "")
	return p.shotErr
}

func (p *fakePage) IsClosed() bool { return p.closed.Load() }

// noSleep replaces the executor's delay hook so tests run instantly.
func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }
