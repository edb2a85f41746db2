package docchromium

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/goliatone/go-docgen/docgen"
	"github.com/goliatone/go-docgen/engine"
)

func chromeBinaryPath(t *testing.T) string {
	t.Helper()

	chromePath := os.Getenv("CHROME_BIN")
	if chromePath == "" {
		paths := []string{"google-chrome", "chromium", "chromium-browser"}
		for _, candidate := range paths {
			if path, err := exec.LookPath(candidate); err == nil {
				chromePath = path
				break
			}
		}
	}
	if chromePath == "" {
		t.Skip("chromium binary not found; set CHROME_BIN to run this test")
	}

	return chromePath
}

func TestBuildPrintToPDFParams_Layout(t *testing.T) {
	layout, err := docgen.ResolvePDFLayout(docgen.DefaultPDFOptions())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	params := buildPrintToPDFParams(layout)
	if params.PaperWidth != 8.27 || params.PaperHeight != 11.69 {
		t.Fatalf("expected A4 paper, got width=%f height=%f", params.PaperWidth, params.PaperHeight)
	}
	if params.MarginTop == 0 || params.MarginLeft == 0 {
		t.Fatalf("expected margins to be set")
	}
	if !params.PrintBackground || params.Scale != 1 {
		t.Fatalf("expected background and unit scale, got %+v", params)
	}
	if params.PreferCSSPageSize {
		t.Fatalf("explicit paper size must not defer to css")
	}
}

func TestBuildPrintToPDFParams_CSSPageSize(t *testing.T) {
	layout, err := docgen.ResolvePDFLayout(docgen.PDFOptions{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	params := buildPrintToPDFParams(layout)
	if !params.PreferCSSPageSize || params.PaperWidth != 0 {
		t.Fatalf("expected css page size, got %+v", params)
	}
}

func TestAllocatorOptionsFromArgs(t *testing.T) {
	opts := allocatorOptionsFromArgs([]string{"--no-sandbox", "", "--", "window-size=800,600", "  --disable-gpu  "})
	if len(opts) != 3 {
		t.Fatalf("expected 3 options, got %d", len(opts))
	}
}

func TestIdleTracker(t *testing.T) {
	now := time.Unix(0, 0)
	tracker := newIdleTracker(func() time.Time { return now })
	window := 500 * time.Millisecond

	if tracker.idle(window) {
		t.Fatalf("tracker should not be idle before the window elapses")
	}

	tracker.handle(&network.EventRequestWillBeSent{RequestID: "1"})
	tracker.handle(&network.EventRequestWillBeSent{RequestID: "2"})
	now = now.Add(time.Second)
	if tracker.idle(window) || tracker.pending() != 2 {
		t.Fatalf("tracker must not be idle with requests in flight")
	}

	tracker.handle(&network.EventLoadingFinished{RequestID: "1"})
	tracker.handle(&network.EventLoadingFailed{RequestID: "2"})
	if tracker.pending() != 0 {
		t.Fatalf("expected no pending requests")
	}
	if tracker.idle(window) {
		t.Fatalf("tracker must wait a full window after the last response")
	}

	now = now.Add(window)
	if !tracker.idle(window) {
		t.Fatalf("expected idle after window")
	}

	tracker.handle("unrelated event")
	if !tracker.idle(window) {
		t.Fatalf("unrelated events must not reset the window")
	}
}

func TestLauncher_RenderPDF_Smoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping chromium smoke test in short mode")
	}
	chromePath := chromeBinaryPath(t)

	handle := engine.NewHandle(engine.Config{
		Launcher:      NewLauncher(chromePath),
		LaunchTimeout: 30 * time.Second,
	})
	t.Cleanup(func() {
		_ = handle.Shutdown(context.Background())
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	browser, err := handle.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	pg, err := browser.NewPage(ctx)
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	defer pg.Close()

	if err := pg.Load(ctx, "<html><body><h1>Hello</h1></body></html>", engine.LoadOptions{IdleWindow: 100 * time.Millisecond}); err != nil {
		t.Fatalf("load: %v", err)
	}
	layout, _ := docgen.ResolvePDFLayout(docgen.DefaultPDFOptions())
	pdf, err := pg.PDF(ctx, layout)
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if len(pdf) < 4 || string(pdf[:4]) != "%PDF" {
		t.Fatalf("expected pdf output")
	}
}

func TestLauncher_CloseSignalsDisconnect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping chromium smoke test in short mode")
	}
	chromePath := chromeBinaryPath(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	browser, err := NewLauncher(chromePath).Launch(ctx)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if !engine.Connected(browser) {
		t.Fatalf("expected connected browser")
	}
	_ = browser.Close()

	select {
	case <-browser.Disconnected():
	case <-time.After(10 * time.Second):
		t.Fatalf("expected disconnect signal after close")
	}
}
