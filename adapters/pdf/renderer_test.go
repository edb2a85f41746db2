package docpdf

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-docgen/docgen"
	"github.com/goliatone/go-docgen/engine"
)

type stubPage struct {
	loadFn  func(ctx context.Context, html string, opts engine.LoadOptions) error
	pdfFn   func(ctx context.Context, layout docgen.PDFLayout) ([]byte, error)
	closeFn func() error
	closed  int
}

func (p *stubPage) Load(ctx context.Context, html string, opts engine.LoadOptions) error {
	if p.loadFn == nil {
		return nil
	}
	return p.loadFn(ctx, html, opts)
}

func (p *stubPage) PDF(ctx context.Context, layout docgen.PDFLayout) ([]byte, error) {
	if p.pdfFn == nil {
		return []byte("%PDF-1.7"), nil
	}
	return p.pdfFn(ctx, layout)
}

func (p *stubPage) Close() error {
	p.closed++
	if p.closeFn == nil {
		return nil
	}
	return p.closeFn()
}

type stubBrowser struct {
	page         *stubPage
	pageErr      error
	disconnected chan struct{}
	once         sync.Once
}

func newStubBrowser(page *stubPage) *stubBrowser {
	return &stubBrowser{page: page, disconnected: make(chan struct{})}
}

func (b *stubBrowser) NewPage(context.Context) (engine.Page, error) {
	if b.pageErr != nil {
		return nil, b.pageErr
	}
	return b.page, nil
}

func (b *stubBrowser) Disconnected() <-chan struct{} { return b.disconnected }

func (b *stubBrowser) Close() error {
	b.drop()
	return nil
}

func (b *stubBrowser) drop() {
	b.once.Do(func() { close(b.disconnected) })
}

type stubAcquirer struct {
	browser engine.Browser
	err     error
	calls   int
}

func (a *stubAcquirer) Acquire(context.Context) (engine.Browser, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return a.browser, nil
}

type recordingLogger struct {
	docgen.NopLogger
	errors []string
}

func (l *recordingLogger) Errorf(format string, args ...any) {
	l.errors = append(l.errors, format)
}

func newTestRenderer(acq Acquirer, cfg Config) (*Renderer, *[]time.Duration) {
	cfg.Engine = acq
	r := NewRenderer(cfg)
	slept := []time.Duration{}
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func TestRenderer_RenderPDF(t *testing.T) {
	var gotHTML string
	var gotOpts engine.LoadOptions
	var gotLayout docgen.PDFLayout
	page := &stubPage{
		loadFn: func(ctx context.Context, html string, opts engine.LoadOptions) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Fatalf("expected settle deadline on load")
			}
			gotHTML = html
			gotOpts = opts
			return nil
		},
		pdfFn: func(_ context.Context, layout docgen.PDFLayout) ([]byte, error) {
			gotLayout = layout
			return []byte("%PDF-1.7 data"), nil
		},
	}
	acq := &stubAcquirer{browser: newStubBrowser(page)}
	r, slept := newTestRenderer(acq, Config{GraceDelay: time.Second})

	pdf, err := r.RenderPDF(context.Background(), "<p>hello</p>", docgen.PDFOptions{
		Landscape:            docgen.BoolPtr(true),
		BaseURL:              "https://assets.local/",
		ExternalAssetsPolicy: docgen.PDFExternalAssetsBlock,
		ViewportWidth:        1024,
		ViewportHeight:       768,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(pdf) != "%PDF-1.7 data" {
		t.Fatalf("unexpected pdf %q", pdf)
	}
	if page.closed != 1 {
		t.Fatalf("expected page to be closed once, got %d", page.closed)
	}
	if !strings.Contains(gotHTML, `<base href="https://assets.local/">`) {
		t.Fatalf("expected base url injected, got %q", gotHTML)
	}
	if !gotOpts.BlockExternal || gotOpts.ViewportWidth != 1024 || gotOpts.IdleWindow != DefaultIdleWindow {
		t.Fatalf("unexpected load options %+v", gotOpts)
	}
	if !gotLayout.Landscape || !gotLayout.HasPaperSize || gotLayout.PaperWidth != 8.27 {
		t.Fatalf("expected A4 landscape layout, got %+v", gotLayout)
	}
	if len(*slept) != 1 || (*slept)[0] != time.Second {
		t.Fatalf("expected one grace delay, got %v", *slept)
	}
}

func TestRenderer_NoGraceDelay(t *testing.T) {
	acq := &stubAcquirer{browser: newStubBrowser(&stubPage{})}
	r, slept := newTestRenderer(acq, Config{})
	if _, err := r.RenderPDF(context.Background(), "<p>x</p>", docgen.PDFOptions{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(*slept) != 0 {
		t.Fatalf("expected grace delay to be disabled")
	}
}

func TestRenderer_InvalidOptionsSkipEngine(t *testing.T) {
	acq := &stubAcquirer{browser: newStubBrowser(&stubPage{})}
	r, _ := newTestRenderer(acq, Config{})

	_, err := r.RenderPDF(context.Background(), "<p>x</p>", docgen.PDFOptions{PageSize: "B9"})
	if docgen.KindFromError(err) != docgen.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if acq.calls != 0 {
		t.Fatalf("engine must not be touched for invalid options")
	}
}

func TestRenderer_AcquireFailure(t *testing.T) {
	acq := &stubAcquirer{err: docgen.NewError(docgen.KindUnavailable, "rendering engine unavailable", errors.New("no chromium"))}
	r, _ := newTestRenderer(acq, Config{})

	_, err := r.RenderPDF(context.Background(), "<p>x</p>", docgen.PDFOptions{})
	if docgen.KindFromError(err) != docgen.KindUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestRenderer_SettleTimeout(t *testing.T) {
	page := &stubPage{
		loadFn: func(ctx context.Context, _ string, _ engine.LoadOptions) error {
			<-ctx.Done()
			return ctx.Err()
		},
		pdfFn: func(context.Context, docgen.PDFLayout) ([]byte, error) {
			t.Fatalf("pdf must not be printed after a settle timeout")
			return nil, nil
		},
	}
	acq := &stubAcquirer{browser: newStubBrowser(page)}
	r, _ := newTestRenderer(acq, Config{SettleTimeout: 20 * time.Millisecond})

	_, err := r.RenderPDF(context.Background(), "<p>x</p>", docgen.PDFOptions{})
	if docgen.KindFromError(err) != docgen.KindTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if page.closed != 1 {
		t.Fatalf("expected page to be closed after timeout")
	}
}

func TestRenderer_DisconnectDuringPrint(t *testing.T) {
	page := &stubPage{}
	browser := newStubBrowser(page)
	page.pdfFn = func(context.Context, docgen.PDFLayout) ([]byte, error) {
		browser.drop()
		return nil, errors.New("websocket closed")
	}
	r, _ := newTestRenderer(&stubAcquirer{browser: browser}, Config{})

	_, err := r.RenderPDF(context.Background(), "<p>x</p>", docgen.PDFOptions{})
	if docgen.KindFromError(err) != docgen.KindUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if page.closed != 1 {
		t.Fatalf("expected page to be closed")
	}
}

func TestRenderer_PrintFailure(t *testing.T) {
	page := &stubPage{pdfFn: func(context.Context, docgen.PDFLayout) ([]byte, error) {
		return nil, errors.New("printing failed")
	}}
	r, _ := newTestRenderer(&stubAcquirer{browser: newStubBrowser(page)}, Config{})

	_, err := r.RenderPDF(context.Background(), "<p>x</p>", docgen.PDFOptions{})
	if docgen.KindFromError(err) != docgen.KindInternal {
		t.Fatalf("expected internal, got %v", err)
	}
}

func TestRenderer_EmptyOutput(t *testing.T) {
	page := &stubPage{pdfFn: func(context.Context, docgen.PDFLayout) ([]byte, error) {
		return nil, nil
	}}
	r, _ := newTestRenderer(&stubAcquirer{browser: newStubBrowser(page)}, Config{})

	if _, err := r.RenderPDF(context.Background(), "<p>x</p>", docgen.PDFOptions{}); err == nil {
		t.Fatalf("expected error for empty pdf")
	}
}

func TestRenderer_PageCloseErrorIsLogged(t *testing.T) {
	logger := &recordingLogger{}
	page := &stubPage{closeFn: func() error { return errors.New("target closed") }}
	r, _ := newTestRenderer(&stubAcquirer{browser: newStubBrowser(page)}, Config{Logger: logger})

	pdf, err := r.RenderPDF(context.Background(), "<p>x</p>", docgen.PDFOptions{})
	if err != nil {
		t.Fatalf("close failures must not fail the render: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatalf("expected pdf output")
	}
	if len(logger.errors) != 1 {
		t.Fatalf("expected close error to be logged, got %v", logger.errors)
	}
}

func TestRenderer_PageOpenFailure(t *testing.T) {
	browser := newStubBrowser(nil)
	browser.pageErr = errors.New("target crashed")
	r, _ := newTestRenderer(&stubAcquirer{browser: browser}, Config{})

	_, err := r.RenderPDF(context.Background(), "<p>x</p>", docgen.PDFOptions{})
	if docgen.KindFromError(err) != docgen.KindInternal {
		t.Fatalf("expected internal, got %v", err)
	}
}

func TestRenderer_MissingEngine(t *testing.T) {
	r := NewRenderer(Config{})
	if _, err := r.RenderPDF(context.Background(), "<p>x</p>", docgen.PDFOptions{}); docgen.KindFromError(err) != docgen.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("sleep: %v", err)
	}
}
