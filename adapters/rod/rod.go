package docrod

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/goliatone/go-docgen/docgen"
	"github.com/goliatone/go-docgen/engine"
)

var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
)

const defaultIdleWindow = 500 * time.Millisecond

// Launcher starts browsers through rod's launcher.
type Launcher struct {
	BrowserPath string
	Headless    bool
	Args        []string
	Logger      docgen.Logger
}

// NewLauncher returns a headless launcher. An empty path lets rod find or
// download a browser.
func NewLauncher(path string, args ...string) *Launcher {
	return &Launcher{BrowserPath: path, Headless: true, Args: args}
}

// Launch starts the process and connects to it.
func (l *Launcher) Launch(ctx context.Context) (engine.Browser, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ln := l.configure(launcher.New()).Context(ctx)
	u, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		ln.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	b := &Browser{
		browser:      browser,
		launcher:     ln,
		disconnected: make(chan struct{}),
		logger:       l.logger(),
	}
	go b.observe()
	return b, nil
}

func (l *Launcher) configure(ln *launcher.Launcher) *launcher.Launcher {
	if path := strings.TrimSpace(l.BrowserPath); path != "" {
		ln = ln.Bin(path)
	}
	ln = ln.Headless(l.Headless).NoSandbox(true)
	for _, arg := range append(append([]string{}, engine.DefaultArgs...), l.Args...) {
		name, value, ok := splitArg(arg)
		if !ok {
			continue
		}
		if value == "" {
			ln = ln.Set(flags.Flag(name))
			continue
		}
		ln = ln.Set(flags.Flag(name), value)
	}
	return ln
}

func splitArg(arg string) (string, string, bool) {
	arg = strings.TrimPrefix(strings.TrimSpace(arg), "--")
	if arg == "" {
		return "", "", false
	}
	name, value, _ := strings.Cut(arg, "=")
	return name, value, true
}

func (l *Launcher) logger() docgen.Logger {
	if l.Logger == nil {
		return docgen.NopLogger{}
	}
	return l.Logger
}

// Browser is a running browser connected through rod.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	logger   docgen.Logger

	disconnected chan struct{}
	once         sync.Once
}

// observe blocks until the browser process exits.
func (b *Browser) observe() {
	b.launcher.Cleanup()
	b.markDisconnected()
}

func (b *Browser) markDisconnected() {
	b.once.Do(func() { close(b.disconnected) })
}

// Disconnected implements engine.Browser.
func (b *Browser) Disconnected() <-chan struct{} {
	return b.disconnected
}

// NewPage opens a blank page.
func (b *Browser) NewPage(ctx context.Context) (engine.Page, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	return &Page{page: p}, nil
}

// Close closes the browser and kills the process if it lingers.
func (b *Browser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	b.markDisconnected()
	return err
}

// Page is a rod page.
type Page struct {
	page *rod.Page
}

// Load sets the document content and waits for the load event and for the
// network to stay idle for the idle window.
func (p *Page) Load(ctx context.Context, html string, opts engine.LoadOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pg := p.page.Context(ctx)

	if opts.BlockExternal {
		if err := (proto.NetworkEnable{}).Call(pg); err != nil {
			return fmt.Errorf("%w: %v", ErrPageLoad, err)
		}
		if err := (proto.NetworkSetBlockedURLs{Urls: []string{"http://*", "https://*"}}).Call(pg); err != nil {
			return fmt.Errorf("%w: %v", ErrPageLoad, err)
		}
	}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		if err := pg.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.ViewportWidth,
			Height:            opts.ViewportHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			return fmt.Errorf("%w: %v", ErrPageLoad, err)
		}
	}

	window := opts.IdleWindow
	if window <= 0 {
		window = defaultIdleWindow
	}
	// an empty exclude list keeps images and fonts in the idle calculation
	wait := pg.WaitRequestIdle(window, nil, nil, []proto.NetworkResourceType{})

	if err := pg.SetDocumentContent(html); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("%w: %w", ErrPageLoad, err)
	}
	wait()
	// wait returns quietly when ctx ends
	return ctx.Err()
}

// PDF prints the page.
func (p *Page) PDF(ctx context.Context, layout docgen.PDFLayout) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	reader, err := p.page.Context(ctx).PDF(buildPDFOptions(layout))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdf, nil
}

// Close closes the page.
func (p *Page) Close() error {
	return p.page.Close()
}

func buildPDFOptions(layout docgen.PDFLayout) *proto.PagePrintToPDF {
	opts := &proto.PagePrintToPDF{
		Landscape:         layout.Landscape,
		PrintBackground:   layout.PrintBackground,
		PreferCSSPageSize: layout.PreferCSSPageSize,
		Scale:             floatPtr(layout.Scale),
		MarginTop:         floatPtr(layout.MarginTop),
		MarginBottom:      floatPtr(layout.MarginBottom),
		MarginLeft:        floatPtr(layout.MarginLeft),
		MarginRight:       floatPtr(layout.MarginRight),
	}
	if layout.HasPaperSize {
		opts.PaperWidth = floatPtr(layout.PaperWidth)
		opts.PaperHeight = floatPtr(layout.PaperHeight)
	}
	return opts
}

func floatPtr(v float64) *float64 {
	return &v
}
