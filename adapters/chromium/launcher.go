package docchromium

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-docgen/docgen"
	"github.com/goliatone/go-docgen/engine"
)

// Launcher starts Chromium processes through chromedp's exec allocator.
type Launcher struct {
	BrowserPath string
	Headless    bool
	// Args are appended after engine.DefaultArgs.
	Args   []string
	Logger docgen.Logger
}

// NewLauncher returns a headless launcher for the browser at path. An empty path
// lets chromedp search the usual locations.
func NewLauncher(path string, args ...string) *Launcher {
	return &Launcher{BrowserPath: path, Headless: true, Args: args}
}

// Launch starts a browser and waits for its DevTools endpoint. The browser is
// not bound to ctx; cancelling ctx only abandons a launch still in progress.
func (l *Launcher) Launch(ctx context.Context) (engine.Browser, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := l.logger()

	opts := l.allocatorOptions(ctx)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(logger.Errorf))

	// the first Run starts the process; it must not carry ctx's deadline or the
	// browser would die with it
	errCh := make(chan error, 1)
	go func() {
		errCh <- chromedp.Run(browserCtx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			browserCancel()
			allocCancel()
			return nil, err
		}
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return nil, ctx.Err()
	}

	b := &Browser{
		ctx:          browserCtx,
		cancel:       browserCancel,
		allocCancel:  allocCancel,
		disconnected: make(chan struct{}),
		logger:       logger,
	}
	go b.observe()
	return b, nil
}

func (l *Launcher) allocatorOptions(ctx context.Context) []chromedp.ExecAllocatorOption {
	options := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if path := strings.TrimSpace(l.BrowserPath); path != "" {
		options = append(options, chromedp.ExecPath(path))
	}
	options = append(options, chromedp.Flag("headless", l.Headless))
	options = append(options, allocatorOptionsFromArgs(engine.DefaultArgs)...)
	options = append(options, allocatorOptionsFromArgs(l.Args)...)
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			options = append(options, chromedp.WSURLReadTimeout(remaining))
		}
	}
	return options
}

func (l *Launcher) logger() docgen.Logger {
	if l.Logger == nil {
		return docgen.NopLogger{}
	}
	return l.Logger
}

func allocatorOptionsFromArgs(args []string) []chromedp.ExecAllocatorOption {
	options := make([]chromedp.ExecAllocatorOption, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		arg = strings.TrimPrefix(arg, "--")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			options = append(options, chromedp.Flag(name, value))
			continue
		}
		options = append(options, chromedp.Flag(arg, true))
	}
	return options
}

// Browser is a running Chromium instance.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      docgen.Logger

	disconnected chan struct{}
	once         sync.Once
}

// observe waits for the websocket to drop or the browser context to end.
func (b *Browser) observe() {
	var lost <-chan struct{}
	if c := chromedp.FromContext(b.ctx); c != nil && c.Browser != nil {
		lost = c.Browser.LostConnection
	}
	select {
	case <-lost:
	case <-b.ctx.Done():
	}
	b.markDisconnected()
}

func (b *Browser) markDisconnected() {
	b.once.Do(func() { close(b.disconnected) })
}

// Disconnected implements engine.Browser.
func (b *Browser) Disconnected() <-chan struct{} {
	return b.disconnected
}

// NewPage opens a new tab.
func (b *Browser) NewPage(ctx context.Context) (engine.Page, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	tabCtx, cancel := chromedp.NewContext(b.ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- chromedp.Run(tabCtx)
	}()
	select {
	case err := <-errCh:
		if err != nil {
			cancel()
			return nil, err
		}
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}

	return &Page{ctx: tabCtx, cancel: cancel, tracker: newIdleTracker(time.Now)}, nil
}

// Close asks Chromium to exit and releases the allocator.
func (b *Browser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()
	b.markDisconnected()
	return err
}
