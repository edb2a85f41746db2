package docchromium

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-docgen/docgen"
	"github.com/goliatone/go-docgen/engine"
)

const (
	defaultIdleWindow = 500 * time.Millisecond
	settlePoll        = 50 * time.Millisecond
)

// Page is a Chromium tab.
type Page struct {
	ctx     context.Context
	cancel  context.CancelFunc
	tracker *idleTracker
}

// Load replaces the tab content with html and blocks until the document is
// complete and no network request has been in flight for the idle window.
func (p *Page) Load(ctx context.Context, html string, opts engine.LoadOptions) error {
	execCtx, release := p.bind(ctx)
	defer release()

	chromedp.ListenTarget(p.ctx, p.tracker.handle)

	actions := []chromedp.Action{network.Enable()}
	if opts.BlockExternal {
		actions = append(actions, network.SetBlockedURLs([]string{"http://*", "https://*"}))
	}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		actions = append(actions, chromedp.EmulateViewport(int64(opts.ViewportWidth), int64(opts.ViewportHeight)))
	}
	actions = append(actions,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			p.tracker.touch()
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
	)
	if err := chromedp.Run(execCtx, actions...); err != nil {
		return err
	}

	window := opts.IdleWindow
	if window <= 0 {
		window = defaultIdleWindow
	}
	return p.waitSettled(execCtx, window)
}

func (p *Page) waitSettled(ctx context.Context, window time.Duration) error {
	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()
	for {
		var state string
		if err := chromedp.Run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
			return err
		}
		if state == "complete" && p.tracker.idle(window) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// PDF prints the tab with the given layout.
func (p *Page) PDF(ctx context.Context, layout docgen.PDFLayout) ([]byte, error) {
	execCtx, release := p.bind(ctx)
	defer release()

	var pdf []byte
	err := chromedp.Run(execCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		pdf, _, err = buildPrintToPDFParams(layout).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

// Close closes the tab.
func (p *Page) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	return err
}

// bind derives a context from the tab that also ends when the caller's ctx does.
func (p *Page) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	execCtx, cancel := context.WithCancel(p.ctx)
	if ctx == nil {
		return execCtx, cancel
	}
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		execCtx, cancelDeadline = context.WithDeadline(execCtx, deadline)
		parent := cancel
		cancel = func() {
			cancelDeadline()
			parent()
		}
	}
	stop := context.AfterFunc(ctx, cancel)
	return execCtx, func() {
		stop()
		cancel()
	}
}

func buildPrintToPDFParams(layout docgen.PDFLayout) *page.PrintToPDFParams {
	params := page.PrintToPDF().
		WithScale(layout.Scale).
		WithLandscape(layout.Landscape).
		WithPrintBackground(layout.PrintBackground).
		WithMarginTop(layout.MarginTop).
		WithMarginBottom(layout.MarginBottom).
		WithMarginLeft(layout.MarginLeft).
		WithMarginRight(layout.MarginRight)
	if layout.PreferCSSPageSize {
		params = params.WithPreferCSSPageSize(true)
	}
	if layout.HasPaperSize {
		params = params.WithPaperWidth(layout.PaperWidth).WithPaperHeight(layout.PaperHeight)
	}
	return params
}

// idleTracker counts in-flight network requests for a tab.
type idleTracker struct {
	mu           sync.Mutex
	inflight     map[network.RequestID]struct{}
	lastActivity time.Time
	now          func() time.Time
}

func newIdleTracker(now func() time.Time) *idleTracker {
	return &idleTracker{
		inflight:     make(map[network.RequestID]struct{}),
		lastActivity: now(),
		now:          now,
	}
}

func (t *idleTracker) handle(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[e.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.inflight, e.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, e.RequestID)
	default:
		return
	}
	t.lastActivity = t.now()
}

func (t *idleTracker) touch() {
	t.mu.Lock()
	t.lastActivity = t.now()
	t.mu.Unlock()
}

func (t *idleTracker) idle(window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && t.now().Sub(t.lastActivity) >= window
}

func (t *idleTracker) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}
