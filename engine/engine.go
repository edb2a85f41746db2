// Package engine owns the long-lived rendering engine process shared by all PDF
// conversions. Drivers for concrete browsers live under adapters/.
package engine

import (
	"context"
	"time"

	"github.com/goliatone/go-docgen/docgen"
)

// DefaultArgs are the browser flags every driver launches with. They keep the
// browser usable inside containers without a GPU or a large /dev/shm.
var DefaultArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--disable-software-rasterizer",
	"--single-process",
}

// Launcher starts a new browser process. ctx bounds the launch only; the returned
// Browser outlives it.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// LauncherFunc adapts a function into a Launcher.
type LauncherFunc func(ctx context.Context) (Browser, error)

func (fn LauncherFunc) Launch(ctx context.Context) (Browser, error) {
	return fn(ctx)
}

// Browser is a connected rendering engine instance.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	// Disconnected is closed once the connection to the process is lost,
	// including after Close.
	Disconnected() <-chan struct{}
	Close() error
}

// LoadOptions controls how a page decides its content has settled.
type LoadOptions struct {
	// IdleWindow is how long the page must go without in-flight network requests.
	IdleWindow     time.Duration
	ViewportWidth  int
	ViewportHeight int
	BlockExternal  bool
}

// Page is a transient rendering context opened on a Browser.
type Page interface {
	// Load replaces the page content with html and waits until network activity
	// settles or ctx expires.
	Load(ctx context.Context, html string, opts LoadOptions) error
	PDF(ctx context.Context, layout docgen.PDFLayout) ([]byte, error)
	Close() error
}

// Connected reports whether b is non-nil and has not signalled a disconnect.
func Connected(b Browser) bool {
	if b == nil {
		return false
	}
	select {
	case <-b.Disconnected():
		return false
	default:
		return true
	}
}
