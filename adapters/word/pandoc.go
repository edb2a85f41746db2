package docword

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-docgen/docgen"
)

const DefaultTimeout = 60 * time.Second

// CommandRunner abstracts command execution to enable testing without real subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Config supplies dependencies for Converter.
type Config struct {
	Runner     CommandRunner
	PandocPath string
	// ReferenceDoc is passed to pandoc as --reference-doc when set.
	ReferenceDoc string
	Timeout      time.Duration
	Defaults     docgen.DOCXOptions
	Logger       docgen.Logger
}

// Converter implements docgen.DOCXRenderer on top of pandoc.
type Converter struct {
	runner       CommandRunner
	pandocPath   string
	referenceDoc string
	timeout      time.Duration
	defaults     docgen.DOCXOptions
	logger       docgen.Logger
}

// NewConverter creates a Converter with the provided configuration.
func NewConverter(cfg Config) *Converter {
	runner := cfg.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	path := strings.TrimSpace(cfg.PandocPath)
	if path == "" {
		path = "pandoc"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = docgen.NopLogger{}
	}
	return &Converter{
		runner:       runner,
		pandocPath:   path,
		referenceDoc: strings.TrimSpace(cfg.ReferenceDoc),
		timeout:      timeout,
		defaults:     cfg.Defaults,
		logger:       logger,
	}
}

// RenderDOCX converts html to a DOCX package.
func (c *Converter) RenderDOCX(ctx context.Context, html string, opts docgen.DOCXOptions) ([]byte, error) {
	if c == nil {
		return nil, docgen.NewError(docgen.KindInternal, "docx converter is nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	options := MergeDOCXOptions(c.defaults, opts)
	margins, err := MarginsFromLengths(options.MarginTop, options.MarginRight, options.MarginBottom, options.MarginLeft)
	if err != nil {
		return nil, err
	}

	input := html
	if options.WordCompat != nil && *options.WordCompat {
		input, err = WrapWordEnvelope(html, Envelope{
			Title:        options.Title,
			MarginTop:    options.MarginTop,
			MarginRight:  options.MarginRight,
			MarginBottom: options.MarginBottom,
			MarginLeft:   options.MarginLeft,
		})
		if err != nil {
			return nil, docgen.NewError(docgen.KindInternal, "word envelope render failed", err)
		}
	}

	dir, err := os.MkdirTemp("", "go-docgen-*")
	if err != nil {
		return nil, docgen.NewError(docgen.KindInternal, "create temp dir", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			c.logger.Errorf("docx temp cleanup: %v", err)
		}
	}()

	inPath := filepath.Join(dir, "input.html")
	outPath := filepath.Join(dir, "output.docx")
	if err := os.WriteFile(inPath, []byte(input), 0o600); err != nil {
		return nil, docgen.NewError(docgen.KindInternal, "write docx input", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, stderr, err := c.runner.Run(runCtx, c.pandocPath, c.args(inPath, outPath, options)...)
	if err != nil {
		return nil, c.runError(ctx, runCtx, stderr, err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, docgen.NewError(docgen.KindInternal, "docx converter produced no output", err)
	}

	patched, err := SetPageMargins(data, margins)
	if err != nil {
		return nil, docgen.NewError(docgen.KindInternal, "set docx page margins", err)
	}
	return patched, nil
}

func (c *Converter) args(inPath, outPath string, opts docgen.DOCXOptions) []string {
	args := []string{"-f", "html", "-t", "docx", "-o", outPath}
	if c.referenceDoc != "" {
		args = append(args, "--reference-doc", c.referenceDoc)
	}
	if title := strings.TrimSpace(opts.Title); title != "" {
		args = append(args, "--metadata", "title="+title)
	}
	return append(args, inPath)
}

func (c *Converter) runError(ctx, runCtx context.Context, stderr string, err error) error {
	message := strings.TrimSpace(stderr)
	if message == "" {
		message = err.Error()
	}
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return docgen.NewError(docgen.KindUnavailable, "docx converter unavailable", err)
	case ctx.Err() != nil:
		return docgen.NewError(docgen.KindFromError(ctx.Err()), "docx conversion interrupted", err)
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return docgen.NewError(docgen.KindTimeout, fmt.Sprintf("docx conversion exceeded %s", c.timeout), err)
	default:
		return docgen.NewError(docgen.KindInternal, "docx conversion failed: "+message, err)
	}
}

// MergeDOCXOptions overlays the non-zero fields of override onto base.
func MergeDOCXOptions(base, override docgen.DOCXOptions) docgen.DOCXOptions {
	merged := base
	if override.WordCompat != nil {
		merged.WordCompat = override.WordCompat
	}
	if override.Title != "" {
		merged.Title = override.Title
	}
	if override.MarginTop != "" {
		merged.MarginTop = override.MarginTop
	}
	if override.MarginRight != "" {
		merged.MarginRight = override.MarginRight
	}
	if override.MarginBottom != "" {
		merged.MarginBottom = override.MarginBottom
	}
	if override.MarginLeft != "" {
		merged.MarginLeft = override.MarginLeft
	}
	return merged
}
