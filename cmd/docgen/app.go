package main

import (
	"context"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	docchromium "github.com/goliatone/go-docgen/adapters/chromium"
	docpdf "github.com/goliatone/go-docgen/adapters/pdf"
	docrod "github.com/goliatone/go-docgen/adapters/rod"
	docword "github.com/goliatone/go-docgen/adapters/word"
	"github.com/goliatone/go-docgen/cmd/docgen/config"
	"github.com/goliatone/go-docgen/command"
	"github.com/goliatone/go-docgen/docgen"
	"github.com/goliatone/go-docgen/engine"
)

// App owns the long-lived pieces shared by the server and the batch command.
type App struct {
	cfg           config.Config
	logger        docgen.Logger
	handle        *engine.Handle
	service       *docgen.Service
	batch         *command.BatchCommand
	registry      *gcmd.Registry
	subscriptions []dispatcher.Subscription
}

// NewApp wires the engine handle, renderers, service and command bus.
func NewApp(cfg config.Config, logger docgen.Logger) (*App, error) {
	if logger == nil {
		logger = docgen.NopLogger{}
	}
	app := &App{cfg: cfg, logger: logger}

	app.handle = engine.NewHandle(engine.Config{
		Launcher:      newLauncher(cfg.Engine, logger),
		LaunchTimeout: cfg.Engine.LaunchTimeout.Std(),
		Logger:        logger,
	})

	pdf := docpdf.NewRenderer(docpdf.Config{
		Engine:        app.handle,
		Defaults:      pdfDefaults(cfg.PDF),
		SettleTimeout: cfg.PDF.SettleTimeout.Std(),
		IdleWindow:    cfg.PDF.IdleWindow.Std(),
		GraceDelay:    cfg.PDF.GraceDelay.Std(),
		Logger:        logger,
	})
	docx := docword.NewConverter(docword.Config{
		PandocPath:   cfg.DOCX.PandocPath,
		ReferenceDoc: cfg.DOCX.ReferenceDoc,
		Timeout:      cfg.DOCX.Timeout.Std(),
		Defaults:     docxDefaults(cfg.DOCX),
		Logger:       logger,
	})
	var metrics docgen.MetricsHook
	if l, ok := logger.(*Logger); ok {
		metrics = metricsLog{logger: l}
	}
	app.service = docgen.NewService(docgen.ServiceConfig{
		PDF:     pdf,
		DOCX:    docx,
		Logger:  logger,
		Metrics: metrics,
	})

	app.batch = command.NewBatchCommand(command.DispatchExecutor(),
		command.WithBatchLimits(command.BatchLimits{
			MaxRequests: cfg.Batch.MaxRequests,
			MinInterval: cfg.Batch.MinInterval.Std(),
		}),
		command.WithBatchLogger(logger),
	)

	app.registry = gcmd.NewRegistry()
	subs, err := RegisterHandlers(app.registry, app.service, app.handle, app.batch)
	app.subscriptions = subs
	if err != nil {
		app.unsubscribe()
		return nil, err
	}
	return app, nil
}

// Warm launches the browser ahead of the first request.
func (a *App) Warm(ctx context.Context) {
	if err := a.handle.Warm(ctx); err != nil {
		a.logger.Errorf("engine warm-up failed: %v", err)
		return
	}
	a.logger.Infof("engine ready")
}

// Close releases the command bus subscriptions and shuts the engine down.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	a.unsubscribe()
	return a.handle.Shutdown(ctx)
}

func (a *App) unsubscribe() {
	for _, sub := range a.subscriptions {
		sub.Unsubscribe()
	}
	a.subscriptions = nil
}

func newLauncher(cfg config.EngineConfig, logger docgen.Logger) engine.Launcher {
	switch cfg.Driver {
	case config.DriverRod:
		l := docrod.NewLauncher(cfg.BrowserPath, cfg.Args...)
		l.Logger = logger
		return l
	default:
		l := docchromium.NewLauncher(cfg.BrowserPath, cfg.Args...)
		l.Logger = logger
		return l
	}
}

func pdfDefaults(cfg config.PDFConfig) docgen.PDFOptions {
	return cfg.Options()
}

func docxDefaults(cfg config.DOCXConfig) docgen.DOCXOptions {
	return cfg.Options()
}
