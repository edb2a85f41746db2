package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-docgen/docgen"
	"github.com/goliatone/go-errors"
)

// BatchItem is one entry of a batch file. HTMLFile is resolved relative to the
// batch file when HTML is empty.
type BatchItem struct {
	HTML     string        `json:"html,omitempty"`
	HTMLFile string        `json:"htmlFile,omitempty"`
	Filename string        `json:"filename,omitempty"`
	Format   docgen.Format `json:"format,omitempty"`
}

// BatchLoader loads batch items from a source.
type BatchLoader func(ctx context.Context) ([]BatchItem, error)

// BatchExecutor converts a single batch item.
type BatchExecutor interface {
	ExecuteDocument(ctx context.Context, req docgen.ConversionRequest) (docgen.Result, error)
}

// BatchExecutorFunc adapts a function to a BatchExecutor.
type BatchExecutorFunc func(ctx context.Context, req docgen.ConversionRequest) (docgen.Result, error)

func (f BatchExecutorFunc) ExecuteDocument(ctx context.Context, req docgen.ConversionRequest) (docgen.Result, error) {
	if f == nil {
		return docgen.Result{}, errors.New("batch executor is required", errors.CategoryInternal).
			WithTextCode("BATCH_EXECUTOR_NIL")
	}
	return f(ctx, req)
}

// DispatchExecutor sends each item through the GenerateDocument command.
func DispatchExecutor() BatchExecutor {
	return BatchExecutorFunc(func(ctx context.Context, req docgen.ConversionRequest) (docgen.Result, error) {
		return dispatcher.DispatchWithResult[GenerateDocument, docgen.Result](ctx, GenerateDocument{Request: req})
	})
}

// ConverterExecutor calls conv directly.
func ConverterExecutor(conv docgen.Converter) BatchExecutor {
	return BatchExecutorFunc(func(ctx context.Context, req docgen.ConversionRequest) (docgen.Result, error) {
		if conv == nil {
			return docgen.Result{}, errors.New("converter is required", errors.CategoryInternal).
				WithTextCode("CONVERTER_REQUIRED")
		}
		return conv.Convert(ctx, req)
	})
}

// BatchLimits bounds batch execution throughput.
type BatchLimits struct {
	MaxRequests int
	MinInterval time.Duration
}

// BatchReport summarizes a batch run.
type BatchReport struct {
	Written []string
	Failed  int
}

// BatchCommand converts a list of documents and writes them to a directory.
type BatchCommand struct {
	executor  BatchExecutor
	loader    BatchLoader
	outDir    string
	cliConfig gcmd.CLIConfig
	limits    BatchLimits
	logger    docgen.Logger
	sleep     func(time.Duration)
}

// BatchOption customizes batch commands.
type BatchOption func(*BatchCommand)

// WithBatchCLIConfig overrides CLI configuration.
func WithBatchCLIConfig(cfg gcmd.CLIConfig) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.cliConfig = cfg
	}
}

// WithBatchLimits overrides batch execution limits.
func WithBatchLimits(limits BatchLimits) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.limits = limits
	}
}

// WithBatchLoader sets the source used when no batch file is given.
func WithBatchLoader(loader BatchLoader) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.loader = loader
	}
}

// WithBatchOutputDir sets the default output directory.
func WithBatchOutputDir(dir string) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.outDir = dir
	}
}

// WithBatchLogger sets the logger.
func WithBatchLogger(logger docgen.Logger) BatchOption {
	return func(cmd *BatchCommand) {
		if logger != nil {
			cmd.logger = logger
		}
	}
}

// NewBatchCommand creates the batch conversion command.
func NewBatchCommand(executor BatchExecutor, opts ...BatchOption) *BatchCommand {
	cmd := &BatchCommand{
		executor: executor,
		outDir:   ".",
		cliConfig: gcmd.CLIConfig{
			Path:        []string{"batch"},
			Description: "Convert a JSON list of HTML documents",
			Group:       "docgen",
		},
		logger: docgen.NopLogger{},
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cmd)
		}
	}
	return cmd
}

// CLIHandler exposes the CLI handler.
func (c *BatchCommand) CLIHandler() any {
	return &batchCLI{cmd: c}
}

// CLIOptions returns CLI configuration.
func (c *BatchCommand) CLIOptions() gcmd.CLIConfig {
	if c == nil {
		return gcmd.CLIConfig{}
	}
	return c.cliConfig
}

// Run converts every item from the batch file at from (or the configured
// loader) into out. Failed items are logged and counted; the run keeps going.
func (c *BatchCommand) Run(ctx context.Context, from, out string) (BatchReport, error) {
	if c == nil {
		return BatchReport{}, errors.New("batch command is nil", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	if c.executor == nil {
		return BatchReport{}, errors.New("batch executor is required", errors.CategoryValidation).
			WithTextCode("EXECUTOR_REQUIRED")
	}
	if strings.TrimSpace(out) == "" {
		out = c.outDir
	}

	items, baseDir, err := c.loadItems(ctx, from)
	if err != nil {
		return BatchReport{}, err
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return BatchReport{}, errors.Wrap(err, errors.CategoryExternal, "create output directory failed").
			WithTextCode("BATCH_OUTPUT_DIR")
	}

	report := BatchReport{}
	seen := map[string]int{}
	for i, item := range items {
		if c.limits.MaxRequests > 0 && i >= c.limits.MaxRequests {
			break
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if i > 0 && c.limits.MinInterval > 0 && c.sleep != nil {
			c.sleep(c.limits.MinInterval)
		}

		req, err := item.request(baseDir)
		if err != nil {
			c.logger.Errorf("batch item %d: %v", i, err)
			report.Failed++
			continue
		}
		result, err := c.executor.ExecuteDocument(ctx, req)
		if err != nil {
			c.logger.Errorf("batch item %d: %v", i, err)
			report.Failed++
			continue
		}

		path := filepath.Join(out, uniqueName(seen, result.Filename))
		if err := os.WriteFile(path, result.Content, 0o644); err != nil {
			return report, errors.Wrap(err, errors.CategoryExternal, "write batch output failed").
				WithTextCode("BATCH_OUTPUT_WRITE")
		}
		c.logger.Infof("batch item %d written to %s (%d bytes)", i, path, len(result.Content))
		report.Written = append(report.Written, path)
	}

	if report.Failed > 0 {
		return report, errors.New(fmt.Sprintf("%d batch item(s) failed", report.Failed), errors.CategoryOperation).
			WithTextCode("BATCH_PARTIAL")
	}
	return report, nil
}

func (c *BatchCommand) loadItems(ctx context.Context, from string) ([]BatchItem, string, error) {
	if strings.TrimSpace(from) != "" {
		items, err := loadBatchItemsFromFile(from)
		return items, filepath.Dir(from), err
	}
	if c.loader == nil {
		return nil, "", errors.New("batch loader not configured", errors.CategoryValidation).
			WithTextCode("LOADER_REQUIRED")
	}
	items, err := c.loader(ctx)
	return items, ".", err
}

func (item BatchItem) request(baseDir string) (docgen.ConversionRequest, error) {
	html := item.HTML
	if html == "" && item.HTMLFile != "" {
		path := item.HTMLFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return docgen.ConversionRequest{}, errors.Wrap(err, errors.CategoryExternal, "read html file failed").
				WithTextCode("BATCH_HTML_READ")
		}
		html = string(content)
	}
	return docgen.ConversionRequest{
		HTML:     html,
		Filename: item.Filename,
		Format:   docgen.NormalizeFormat(item.Format),
	}, nil
}

// uniqueName suffixes repeated filenames within one run: report.pdf, report-2.pdf.
func uniqueName(seen map[string]int, name string) string {
	seen[name]++
	n := seen[name]
	if n == 1 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n, ext)
}

type batchCLI struct {
	cmd  *BatchCommand
	From string `kong:"name='from',help='Path to JSON batch requests'"`
	Out  string `kong:"name='out',help='Output directory'"`
}

func (c *batchCLI) Run() error {
	if c == nil || c.cmd == nil {
		return errors.New("batch command is required", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	_, err := c.cmd.Run(context.Background(), c.From, c.Out)
	return err
}

func loadBatchItemsFromFile(path string) ([]BatchItem, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "read batch file failed").
			WithTextCode("BATCH_FILE_READ")
	}

	var items []BatchItem
	if err := json.Unmarshal(content, &items); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "batch file invalid JSON").
			WithTextCode("BATCH_FILE_INVALID")
	}
	return items, nil
}
