// Package config loads the docgen server configuration from defaults, an
// optional YAML file and the environment, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	docword "github.com/goliatone/go-docgen/adapters/word"
	"github.com/goliatone/go-docgen/docgen"
	"github.com/goliatone/go-errors"
)

// MaxFileSize limits config files.
const MaxFileSize = 1 << 20

const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
)

// Config holds the docgen server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Engine EngineConfig `yaml:"engine"`
	PDF    PDFConfig    `yaml:"pdf"`
	DOCX   DOCXConfig   `yaml:"docx"`
	CORS   CORSConfig   `yaml:"cors"`
	Batch  BatchConfig  `yaml:"batch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            string   `yaml:"port"`
	BodyLimit       int64    `yaml:"bodyLimit"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
}

// EngineConfig selects and configures the browser driver.
type EngineConfig struct {
	Driver        string   `yaml:"driver"`
	BrowserPath   string   `yaml:"browserPath"`
	Args          []string `yaml:"args"`
	Eager         bool     `yaml:"eager"`
	LaunchTimeout Duration `yaml:"launchTimeout"`
}

// PDFConfig holds deployment defaults for PDF rendering.
type PDFConfig struct {
	PageSize        string         `yaml:"pageSize"`
	Landscape       bool           `yaml:"landscape"`
	PrintBackground bool           `yaml:"printBackground"`
	Scale           float64        `yaml:"scale"`
	Margin          MarginConfig   `yaml:"margin"`
	SettleTimeout   Duration       `yaml:"settleTimeout"`
	IdleWindow      Duration       `yaml:"idleWindow"`
	GraceDelay      Duration       `yaml:"graceDelay"`
	Viewport        ViewportConfig `yaml:"viewport"`
	BaseURL         string         `yaml:"baseURL"`
	ExternalAssets  string         `yaml:"externalAssets"`
}

// MarginConfig holds CSS lengths per side.
type MarginConfig struct {
	Top    string `yaml:"top"`
	Right  string `yaml:"right"`
	Bottom string `yaml:"bottom"`
	Left   string `yaml:"left"`
}

// ViewportConfig is the emulated viewport. Zero leaves the browser default.
type ViewportConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DOCXConfig holds pandoc settings.
type DOCXConfig struct {
	PandocPath   string   `yaml:"pandocPath"`
	WordCompat   bool     `yaml:"wordCompat"`
	Margin       string   `yaml:"margin"`
	ReferenceDoc string   `yaml:"referenceDoc"`
	Timeout      Duration `yaml:"timeout"`
}

// CORSConfig lists allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// BatchConfig bounds the batch command.
type BatchConfig struct {
	MaxRequests int      `yaml:"maxRequests"`
	MinInterval Duration `yaml:"minInterval"`
}

// Duration decodes Go duration strings such as "45s" or "1.5s".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "5000",
			BodyLimit:       50 * 1024 * 1024,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Engine: EngineConfig{
			Driver:        DriverChromedp,
			LaunchTimeout: Duration(60 * time.Second),
		},
		PDF: PDFConfig{
			PageSize:        "A4",
			PrintBackground: true,
			Scale:           1,
			Margin: MarginConfig{
				Top:    "20mm",
				Right:  "15mm",
				Bottom: "20mm",
				Left:   "15mm",
			},
			SettleTimeout: Duration(45 * time.Second),
			IdleWindow:    Duration(500 * time.Millisecond),
			GraceDelay:    Duration(time.Second),
		},
		DOCX: DOCXConfig{
			PandocPath: "pandoc",
			Margin:     "1in",
			Timeout:    Duration(60 * time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (when
// set), then environment overrides. The result is not validated so callers
// can apply flag overrides first.
func Load(path string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		path = getenv("DOCGEN_CONFIG")
	}
	if strings.TrimSpace(path) != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "read config file failed").
			WithTextCode("CONFIG_READ")
	}
	if len(data) > MaxFileSize {
		return errors.New(fmt.Sprintf("config file exceeds %d bytes", MaxFileSize), errors.CategoryValidation).
			WithTextCode("CONFIG_TOO_LARGE")
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid config file").
			WithTextCode("CONFIG_INVALID")
	}
	return nil
}

// ApplyEnv overrides cfg from environment variables.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if cfg == nil {
		return nil
	}
	if getenv == nil {
		getenv = os.Getenv
	}

	if port := getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if host := getenv("HOST"); host != "" {
		cfg.Server.Host = host
	}
	if limit := getenv("DOCGEN_BODY_LIMIT"); limit != "" {
		parsed, err := strconv.ParseInt(limit, 10, 64)
		if err != nil {
			return envError("DOCGEN_BODY_LIMIT", err)
		}
		cfg.Server.BodyLimit = parsed
	}

	if driver := getenv("DOCGEN_ENGINE_DRIVER"); driver != "" {
		cfg.Engine.Driver = driver
	}
	if path := firstNonEmpty(getenv("BROWSER_EXECUTABLE_PATH"), getenv("PUPPETEER_EXECUTABLE_PATH"), getenv("CHROME_BIN")); path != "" {
		cfg.Engine.BrowserPath = path
	}
	if args := getenv("DOCGEN_ENGINE_ARGS"); args != "" {
		cfg.Engine.Args = SplitCSV(args)
	}
	if err := envBool(getenv, "DOCGEN_ENGINE_EAGER", &cfg.Engine.Eager); err != nil {
		return err
	}
	if err := envDuration(getenv, "DOCGEN_LAUNCH_TIMEOUT", &cfg.Engine.LaunchTimeout); err != nil {
		return err
	}

	if origins := getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.CORS.AllowedOrigins = SplitCSV(origins)
	}

	if size := getenv("DOCGEN_PDF_PAGE_SIZE"); size != "" {
		cfg.PDF.PageSize = size
	}
	if err := envBool(getenv, "DOCGEN_PDF_LANDSCAPE", &cfg.PDF.Landscape); err != nil {
		return err
	}
	if top := getenv("DOCGEN_PDF_MARGIN_TOP"); top != "" {
		cfg.PDF.Margin.Top = top
	}
	if right := getenv("DOCGEN_PDF_MARGIN_RIGHT"); right != "" {
		cfg.PDF.Margin.Right = right
	}
	if bottom := getenv("DOCGEN_PDF_MARGIN_BOTTOM"); bottom != "" {
		cfg.PDF.Margin.Bottom = bottom
	}
	if left := getenv("DOCGEN_PDF_MARGIN_LEFT"); left != "" {
		cfg.PDF.Margin.Left = left
	}
	if err := envDuration(getenv, "DOCGEN_PDF_SETTLE_TIMEOUT", &cfg.PDF.SettleTimeout); err != nil {
		return err
	}
	if err := envDuration(getenv, "DOCGEN_PDF_IDLE_WINDOW", &cfg.PDF.IdleWindow); err != nil {
		return err
	}
	if err := envDuration(getenv, "DOCGEN_PDF_GRACE_DELAY", &cfg.PDF.GraceDelay); err != nil {
		return err
	}
	if viewport := getenv("DOCGEN_PDF_VIEWPORT"); viewport != "" {
		parsed, err := ParseViewport(viewport)
		if err != nil {
			return envError("DOCGEN_PDF_VIEWPORT", err)
		}
		cfg.PDF.Viewport = parsed
	}
	if baseURL := getenv("DOCGEN_PDF_BASE_URL"); baseURL != "" {
		cfg.PDF.BaseURL = baseURL
	}
	if policy := getenv("DOCGEN_PDF_EXTERNAL_ASSETS"); policy != "" {
		cfg.PDF.ExternalAssets = policy
	}

	if pandoc := getenv("DOCGEN_PANDOC_PATH"); pandoc != "" {
		cfg.DOCX.PandocPath = pandoc
	}
	if err := envBool(getenv, "DOCGEN_DOCX_WORD_COMPAT", &cfg.DOCX.WordCompat); err != nil {
		return err
	}
	if margin := getenv("DOCGEN_DOCX_MARGIN"); margin != "" {
		cfg.DOCX.Margin = margin
	}
	if ref := getenv("DOCGEN_DOCX_REFERENCE_DOC"); ref != "" {
		cfg.DOCX.ReferenceDoc = ref
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return validationError("server.port is required")
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 0 || port > 65535 {
		return validationError("server.port must be a number between 0 and 65535")
	}
	if c.Server.BodyLimit <= 0 {
		return validationError("server.bodyLimit must be positive")
	}
	switch c.Engine.Driver {
	case DriverChromedp, DriverRod:
	default:
		return validationError(fmt.Sprintf("engine.driver must be %q or %q", DriverChromedp, DriverRod))
	}
	if c.Engine.LaunchTimeout < 0 || c.PDF.SettleTimeout < 0 || c.PDF.IdleWindow < 0 || c.PDF.GraceDelay < 0 {
		return validationError("durations must not be negative")
	}
	if c.PDF.Scale < 0.1 || c.PDF.Scale > 2 {
		return validationError("pdf.scale must be between 0.1 and 2")
	}
	if c.PDF.Viewport.Width < 0 || c.PDF.Viewport.Height < 0 {
		return validationError("pdf.viewport must not be negative")
	}
	switch c.PDF.ExternalAssets {
	case "", "allow", "block":
	default:
		return validationError("pdf.externalAssets must be \"allow\" or \"block\"")
	}
	if c.Batch.MaxRequests < 0 || c.Batch.MinInterval < 0 {
		return validationError("batch limits must not be negative")
	}
	if _, err := docgen.ResolvePDFLayout(c.PDF.Options()); err != nil {
		return validationError("pdf page setup: " + err.Error())
	}
	if _, err := docword.MarginsFromLengths(c.DOCX.Margin, c.DOCX.Margin, c.DOCX.Margin, c.DOCX.Margin); err != nil {
		return validationError("docx.margin: " + err.Error())
	}
	return nil
}

// Options converts the pdf section into request defaults.
func (c PDFConfig) Options() docgen.PDFOptions {
	return docgen.PDFOptions{
		PageSize:             c.PageSize,
		Landscape:            docgen.BoolPtr(c.Landscape),
		PrintBackground:      docgen.BoolPtr(c.PrintBackground),
		Scale:                c.Scale,
		MarginTop:            c.Margin.Top,
		MarginRight:          c.Margin.Right,
		MarginBottom:         c.Margin.Bottom,
		MarginLeft:           c.Margin.Left,
		ViewportWidth:        c.Viewport.Width,
		ViewportHeight:       c.Viewport.Height,
		BaseURL:              c.BaseURL,
		ExternalAssetsPolicy: docgen.PDFExternalAssetsPolicy(c.ExternalAssets),
	}
}

// Options converts the docx section into request defaults.
func (c DOCXConfig) Options() docgen.DOCXOptions {
	return docgen.DOCXOptions{
		WordCompat:   docgen.BoolPtr(c.WordCompat),
		MarginTop:    c.Margin,
		MarginRight:  c.Margin,
		MarginBottom: c.Margin,
		MarginLeft:   c.Margin,
	}
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// SplitCSV splits a comma separated list, dropping blanks.
func SplitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseViewport parses "WIDTHxHEIGHT".
func ParseViewport(value string) (ViewportConfig, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(value)), "x")
	if !ok {
		return ViewportConfig{}, fmt.Errorf("viewport %q: expected WIDTHxHEIGHT", value)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil || width <= 0 {
		return ViewportConfig{}, fmt.Errorf("viewport %q: invalid width", value)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || height <= 0 {
		return ViewportConfig{}, fmt.Errorf("viewport %q: invalid height", value)
	}
	return ViewportConfig{Width: width, Height: height}, nil
}

// parseDuration accepts Go duration strings and bare integers as milliseconds.
func parseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(value)
}

func envBool(getenv func(string) string, key string, dst *bool) error {
	raw := getenv(key)
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return envError(key, err)
	}
	*dst = parsed
	return nil
}

func envDuration(getenv func(string) string, key string, dst *Duration) error {
	raw := getenv(key)
	if raw == "" {
		return nil
	}
	parsed, err := parseDuration(raw)
	if err != nil {
		return envError(key, err)
	}
	*dst = Duration(parsed)
	return nil
}

func envError(key string, err error) error {
	return errors.Wrap(err, errors.CategoryValidation, "invalid "+key).
		WithTextCode("CONFIG_ENV_INVALID")
}

func validationError(msg string) error {
	return errors.New(msg, errors.CategoryValidation).WithTextCode("CONFIG_INVALID")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
