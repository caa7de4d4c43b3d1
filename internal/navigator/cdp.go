// File: internal/navigator/cdp.go
package navigator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/jmosier/campusnav/internal/config"
)

// matchesJS resolves a selector to an element array in page JS. CSS by
// default; selectors starting with "/" or "(" go through XPath.
const matchesJS = `function __cnMatches(sel) {
	if (sel.startsWith('/') || sel.startsWith('(')) {
		const r = document.evaluate(sel, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		const out = [];
		for (let i = 0; i < r.snapshotLength; i++) out.push(r.snapshotItem(i));
		return out;
	}
	return Array.from(document.querySelectorAll(sel));
}`

// cdpPage implements Page on a chromedp browser context. The context is the
// session lifetime; per-call contexts are combined with it so an operation
// stops when either the caller gives up or the session dies.
type cdpPage struct {
	ctx        context.Context
	logger     *zap.Logger
	navTimeout time.Duration
}

var _ Page = (*cdpPage)(nil)

// launchChromium starts a persistent-profile Chromium instance with a single
// tab. The returned cancel tears the whole browser down.
func launchChromium(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Page, context.CancelFunc, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.UserDataDir(cfg.ProfileDir),
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	)

	// The browser outlives the acquiring request, so the allocator hangs off
	// the background context, not the caller's.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	cancelAll := func() {
		browserCancel()
		allocCancel()
	}

	startCtx, startCancel := combineContext(browserCtx, ctx)
	defer startCancel()
	runCtx, runCancel := context.WithTimeout(startCtx, cfg.NavigationTimeout)
	defer runCancel()

	// An empty Run forces the browser process and first tab into existence.
	if err := chromedp.Run(runCtx); err != nil {
		cancelAll()
		return nil, nil, fmt.Errorf("starting chromium: %w", err)
	}

	page := &cdpPage{
		ctx:        browserCtx,
		logger:     logger.Named("cdp"),
		navTimeout: cfg.NavigationTimeout,
	}
	return page, cancelAll, nil
}

// selectorOpt picks the chromedp query option matching the selector syntax.
func selectorOpt(selector string) chromedp.QueryOption {
	if strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// run executes actions under the combined session and caller contexts.
func (p *cdpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := combineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

func (p *cdpPage) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("Navigating", zap.String("url", url))

	navCtx, cancel := context.WithTimeout(ctx, p.navTimeout)
	defer cancel()

	err := p.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (p *cdpPage) Content(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading page content: %w", err)
	}
	return html, nil
}

func (p *cdpPage) Click(ctx context.Context, selector string) error {
	opt := selectorOpt(selector)
	return p.run(ctx,
		chromedp.ScrollIntoView(selector, opt),
		chromedp.WaitVisible(selector, opt),
		chromedp.Click(selector, opt),
	)
}

func (p *cdpPage) ClickWithText(ctx context.Context, selector, hint string) error {
	expr := fmt.Sprintf(`(() => {
		%s
		const el = __cnMatches(%q).find(e => (e.innerText || '').includes(%q));
		if (!el) return false;
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	})()`, matchesJS, selector, hint)

	var clicked bool
	if err := p.run(ctx, chromedp.Evaluate(expr, &clicked)); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("no element matching %q with text %q", selector, hint)
	}
	return nil
}

func (p *cdpPage) Fill(ctx context.Context, selector, value string) error {
	opt := selectorOpt(selector)
	return p.run(ctx,
		chromedp.WaitVisible(selector, opt),
		chromedp.SetValue(selector, "", opt),
		chromedp.SendKeys(selector, value, opt),
	)
}

func (p *cdpPage) Type(ctx context.Context, selector, text string) error {
	opt := selectorOpt(selector)
	return p.run(ctx,
		chromedp.WaitVisible(selector, opt),
		chromedp.Click(selector, opt),
		chromedp.SendKeys(selector, text+kb.Enter, opt),
	)
}

func (p *cdpPage) WaitVisible(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, selectorOpt(selector)))
}

func (p *cdpPage) WaitURLContains(ctx context.Context, fragment string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		var current string
		if err := p.run(waitCtx, chromedp.Location(&current)); err != nil {
			return err
		}
		if strings.Contains(current, fragment) {
			return nil
		}
		select {
		case <-waitCtx.Done():
			return fmt.Errorf("waiting for url containing %q: %w", fragment, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func (p *cdpPage) Count(ctx context.Context, selector string) (int, error) {
	expr := fmt.Sprintf(`(() => { %s return __cnMatches(%q).length; })()`, matchesJS, selector)
	var n int
	if err := p.run(ctx, chromedp.Evaluate(expr, &n)); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *cdpPage) ScrollIntoView(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.ScrollIntoView(selector, selectorOpt(selector)))
}

func (p *cdpPage) ScrollLastIntoView(ctx context.Context, selector string) error {
	expr := fmt.Sprintf(`(() => {
		%s
		const els = __cnMatches(%q);
		if (els.length === 0) return false;
		els[els.length - 1].scrollIntoView({block: 'center'});
		return true;
	})()`, matchesJS, selector)

	var scrolled bool
	if err := p.run(ctx, chromedp.Evaluate(expr, &scrolled)); err != nil {
		return err
	}
	if !scrolled {
		return fmt.Errorf("no elements matching %q to scroll", selector)
	}
	return nil
}

func (p *cdpPage) Evaluate(ctx context.Context, expression string, out any) error {
	return p.run(ctx, chromedp.Evaluate(expression, out))
}

func (p *cdpPage) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := p.run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("capturing screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("writing screenshot %s: %w", path, err)
	}
	p.logger.Debug("Screenshot saved", zap.String("path", path))
	return nil
}

func (p *cdpPage) IsClosed() bool {
	return p.ctx.Err() != nil
}
