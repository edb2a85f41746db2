// Command docgen serves the HTML to PDF/DOCX conversion API and converts batches
// of documents from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-docgen/cmd/docgen/config"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	if err := run(os.Args, os.Getenv, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, getenv func(string) string, stdout, stderr io.Writer) error {
	flags, err := parseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logger := NewLogger(stderr, flags.verbose)
	_, _ = maxprocs.Set(maxprocs.Logger(logger.Debugf))

	cfg, err := config.Load(flags.config, getenv)
	if err != nil {
		return err
	}
	flags.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
		defer cancel()
		_ = app.Close(closeCtx)
	}()

	switch flags.command {
	case commandBatch:
		return runBatch(ctx, app, flags, stdout)
	default:
		return serve(ctx, app)
	}
}

func serve(ctx context.Context, app *App) error {
	srv := buildServer(app)
	addr := app.cfg.Addr()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Infof("listening on http://%s (driver=%s)", addr, app.cfg.Engine.Driver)
		errCh <- srv.Serve(addr)
	}()

	if app.cfg.Engine.Eager {
		go app.Warm(ctx)
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Errorf("server shutdown: %v", err)
	}
	// engine shutdown happens in App.Close
	return nil
}

func runBatch(ctx context.Context, app *App, flags cliFlags, stdout io.Writer) error {
	if flags.from == "" {
		return errors.New("batch: --from is required")
	}
	start := time.Now()
	report, err := app.batch.Run(ctx, flags.from, flags.out)
	fmt.Fprintf(stdout, "converted %d document(s), %d failed in %s\n", len(report.Written), report.Failed, time.Since(start).Round(time.Millisecond))
	return err
}
