package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-docgen/docgen"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultLaunchTimeout = 60 * time.Second
	launchKey            = "launch"
)

// Config supplies dependencies for Handle.
type Config struct {
	Launcher      Launcher
	LaunchTimeout time.Duration
	Logger        docgen.Logger
}

// Handle lazily launches one browser and hands it to every caller until the
// browser disconnects or the handle is shut down. Concurrent callers arriving
// while a launch is in flight share that launch's outcome.
type Handle struct {
	launcher      Launcher
	launchTimeout time.Duration
	logger        docgen.Logger

	group singleflight.Group

	mu       sync.Mutex
	browser  Browser
	state    docgen.EngineState
	shutdown bool
	lastErr  string

	launches    atomic.Int64
	disconnects atomic.Int64
}

// NewHandle creates a Handle in the absent state. Nothing is launched until the
// first Acquire or Warm.
func NewHandle(cfg Config) *Handle {
	logger := cfg.Logger
	if logger == nil {
		logger = docgen.NopLogger{}
	}
	timeout := cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = DefaultLaunchTimeout
	}
	return &Handle{
		launcher:      cfg.Launcher,
		launchTimeout: timeout,
		logger:        logger,
		state:         docgen.EngineAbsent,
	}
}

// Acquire returns the connected browser, launching one if needed. A caller whose
// ctx ends stops waiting, but an in-flight launch keeps going for the others.
func (h *Handle) Acquire(ctx context.Context) (Browser, error) {
	if h == nil || h.launcher == nil {
		return nil, docgen.NewError(docgen.KindInternal, "engine launcher not configured", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	h.mu.Lock()
	if h.shutdown {
		h.mu.Unlock()
		return nil, errShutdown()
	}
	if Connected(h.browser) {
		b := h.browser
		h.mu.Unlock()
		return b, nil
	}
	h.mu.Unlock()

	ch := h.group.DoChan(launchKey, func() (any, error) {
		return h.launch()
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Browser), nil
	case <-ctx.Done():
		return nil, docgen.NewError(docgen.KindFromError(ctx.Err()), "waiting for rendering engine", ctx.Err())
	}
}

// Warm launches the browser ahead of the first request.
func (h *Handle) Warm(ctx context.Context) error {
	_, err := h.Acquire(ctx)
	return err
}

func (h *Handle) launch() (Browser, error) {
	h.mu.Lock()
	if h.shutdown {
		h.mu.Unlock()
		return nil, errShutdown()
	}
	// a previous flight may have finished between the caller's check and now
	if Connected(h.browser) {
		b := h.browser
		h.mu.Unlock()
		return b, nil
	}
	h.browser = nil
	h.state = docgen.EngineLaunching
	h.mu.Unlock()

	n := h.launches.Add(1)
	h.logger.Infof("launching rendering engine (attempt %d)", n)

	ctx, cancel := context.WithTimeout(context.Background(), h.launchTimeout)
	defer cancel()
	start := time.Now()
	b, err := h.launcher.Launch(ctx)

	h.mu.Lock()
	if err == nil && b == nil {
		err = docgen.NewError(docgen.KindInternal, "launcher returned no browser", nil)
	}
	if err != nil {
		h.state = docgen.EngineAbsent
		h.lastErr = err.Error()
		h.mu.Unlock()
		h.logger.Errorf("rendering engine launch failed: %v", err)
		return nil, docgen.NewError(docgen.KindUnavailable, "rendering engine unavailable", err)
	}
	if h.shutdown {
		h.mu.Unlock()
		h.closeBrowser(b)
		return nil, errShutdown()
	}
	h.browser = b
	h.state = docgen.EngineReady
	h.lastErr = ""
	h.mu.Unlock()

	h.logger.Infof("rendering engine ready in %s", time.Since(start).Round(time.Millisecond))
	go h.watch(b)
	return b, nil
}

// watch records the disconnect of b and clears the handle, unless b was already
// replaced or released by Shutdown.
func (h *Handle) watch(b Browser) {
	<-b.Disconnected()

	h.mu.Lock()
	if h.shutdown {
		h.mu.Unlock()
		return
	}
	if h.browser == b {
		h.browser = nil
		h.state = docgen.EngineDisconnected
	}
	h.mu.Unlock()

	h.disconnects.Add(1)
	h.logger.Errorf("rendering engine disconnected; next request relaunches")
}

// Shutdown closes the browser and refuses later Acquire calls. Close failures are
// logged and never returned.
func (h *Handle) Shutdown(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	h.mu.Lock()
	h.shutdown = true
	b := h.browser
	h.browser = nil
	h.state = docgen.EngineAbsent
	h.mu.Unlock()

	if b == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.closeBrowser(b)
	}()
	select {
	case <-done:
		h.logger.Infof("rendering engine closed")
	case <-ctx.Done():
		h.logger.Errorf("rendering engine close abandoned: %v", ctx.Err())
	}
	return nil
}

func (h *Handle) closeBrowser(b Browser) {
	if err := b.Close(); err != nil {
		h.logger.Errorf("rendering engine close: %v", err)
	}
}

// State reports the current lifecycle state.
func (h *Handle) State() docgen.EngineState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Connected reports whether a browser is held and connected.
func (h *Handle) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Connected(h.browser)
}

// Status returns a snapshot of the handle.
func (h *Handle) Status() docgen.EngineStatus {
	h.mu.Lock()
	status := docgen.EngineStatus{
		State:     h.state,
		Connected: Connected(h.browser),
		LastError: h.lastErr,
	}
	h.mu.Unlock()
	status.Launches = h.launches.Load()
	status.Disconnects = h.disconnects.Load()
	return status
}

// EngineStatus implements docgen.StatusProvider.
func (h *Handle) EngineStatus(context.Context) (docgen.EngineStatus, error) {
	if h == nil {
		return docgen.EngineStatus{State: docgen.EngineAbsent}, nil
	}
	return h.Status(), nil
}

func errShutdown() error {
	return docgen.NewError(docgen.KindUnavailable, "rendering engine is shut down", nil)
}
