package docpdf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-docgen/docgen"
	"github.com/goliatone/go-docgen/engine"
)

const (
	DefaultSettleTimeout = 45 * time.Second
	DefaultIdleWindow    = 500 * time.Millisecond
)

// Acquirer hands out the shared browser.
type Acquirer interface {
	Acquire(ctx context.Context) (engine.Browser, error)
}

// Config supplies dependencies for Renderer.
type Config struct {
	Engine   Acquirer
	Defaults docgen.PDFOptions
	// SettleTimeout bounds the wait for network idle after the content is set.
	SettleTimeout time.Duration
	IdleWindow    time.Duration
	// GraceDelay is waited after the content settles so late fonts and images
	// can paint. Zero disables it.
	GraceDelay time.Duration
	Logger     docgen.Logger
}

// Renderer implements docgen.PDFRenderer.
type Renderer struct {
	engine        Acquirer
	defaults      docgen.PDFOptions
	settleTimeout time.Duration
	idleWindow    time.Duration
	graceDelay    time.Duration
	logger        docgen.Logger
	sleep         func(ctx context.Context, d time.Duration) error
}

// NewRenderer creates a Renderer with the provided configuration.
func NewRenderer(cfg Config) *Renderer {
	logger := cfg.Logger
	if logger == nil {
		logger = docgen.NopLogger{}
	}
	settle := cfg.SettleTimeout
	if settle <= 0 {
		settle = DefaultSettleTimeout
	}
	idle := cfg.IdleWindow
	if idle <= 0 {
		idle = DefaultIdleWindow
	}
	grace := cfg.GraceDelay
	if grace < 0 {
		grace = 0
	}
	return &Renderer{
		engine:        cfg.Engine,
		defaults:      docgen.MergePDFOptions(docgen.DefaultPDFOptions(), cfg.Defaults),
		settleTimeout: settle,
		idleWindow:    idle,
		graceDelay:    grace,
		logger:        logger,
		sleep:         sleepContext,
	}
}

// RenderPDF loads html on a fresh page and prints it. The page is closed on every
// path; close failures are logged only.
func (r *Renderer) RenderPDF(ctx context.Context, html string, opts docgen.PDFOptions) (pdf []byte, err error) {
	if r == nil || r.engine == nil {
		return nil, docgen.NewError(docgen.KindInternal, "pdf renderer requires engine", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	options := docgen.MergePDFOptions(r.defaults, opts)
	layout, err := docgen.ResolvePDFLayout(options)
	if err != nil {
		return nil, err
	}
	html = docgen.InjectBaseURL(html, options.BaseURL)

	browser, err := r.engine.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	page, err := browser.NewPage(ctx)
	if err != nil {
		return nil, r.engineError(ctx, browser, "open page", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			r.logger.Errorf("pdf page close: %v", closeErr)
		}
	}()

	loadCtx, cancel := context.WithTimeout(ctx, r.settleTimeout)
	err = page.Load(loadCtx, html, engine.LoadOptions{
		IdleWindow:     r.idleWindow,
		ViewportWidth:  options.ViewportWidth,
		ViewportHeight: options.ViewportHeight,
		BlockExternal:  options.ExternalAssetsPolicy == docgen.PDFExternalAssetsBlock,
	})
	settleExpired := errors.Is(loadCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		if settleExpired && ctx.Err() == nil {
			return nil, docgen.NewError(docgen.KindTimeout, fmt.Sprintf("content did not settle within %s", r.settleTimeout), err)
		}
		return nil, r.engineError(ctx, browser, "load content", err)
	}

	if r.graceDelay > 0 {
		if err := r.sleep(ctx, r.graceDelay); err != nil {
			return nil, docgen.NewError(docgen.KindFromError(err), "pdf render interrupted", err)
		}
	}

	pdf, err = page.PDF(ctx, layout)
	if err != nil {
		return nil, r.engineError(ctx, browser, "print pdf", err)
	}
	if len(pdf) == 0 {
		return nil, docgen.NewError(docgen.KindInternal, "pdf render produced no output", nil)
	}
	return pdf, nil
}

func (r *Renderer) engineError(ctx context.Context, browser engine.Browser, op string, err error) error {
	if !engine.Connected(browser) {
		return docgen.NewError(docgen.KindUnavailable, "rendering engine disconnected during "+op, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return docgen.NewError(docgen.KindFromError(ctxErr), "pdf render interrupted during "+op, err)
	}
	return docgen.NewError(docgen.KindInternal, "pdf render failed during "+op, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
