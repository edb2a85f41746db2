package docgen

import (
	"context"
	"time"
)

// Format enumerates supported output formats.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// PDFExternalAssetsPolicy controls how external assets are handled in PDF rendering.
type PDFExternalAssetsPolicy string

const (
	PDFExternalAssetsUnspecified PDFExternalAssetsPolicy = ""
	PDFExternalAssetsAllow       PDFExternalAssetsPolicy = "allow"
	PDFExternalAssetsBlock       PDFExternalAssetsPolicy = "block"
)

// PDFOptions configures PDF output for headless engines.
type PDFOptions struct {
	PageSize             string
	Landscape            *bool
	PrintBackground      *bool
	Scale                float64
	MarginTop            string
	MarginBottom         string
	MarginLeft           string
	MarginRight          string
	PreferCSSPageSize    *bool
	ViewportWidth        int
	ViewportHeight       int
	BaseURL              string
	ExternalAssetsPolicy PDFExternalAssetsPolicy
}

// DOCXOptions configures DOCX output.
type DOCXOptions struct {
	// WordCompat wraps the HTML in the Word compatibility envelope before conversion.
	WordCompat   *bool
	Title        string
	MarginTop    string
	MarginBottom string
	MarginLeft   string
	MarginRight  string
}

// ConversionRequest describes a single conversion.
type ConversionRequest struct {
	HTML      string
	Filename  string
	Format    Format
	PDF       PDFOptions
	DOCX      DOCXOptions
	RequestID string
}

// Result is a converted document ready to be sent to the caller.
type Result struct {
	Content     []byte
	ContentType string
	Filename    string
	Format      Format
	Duration    time.Duration
	RequestID   string
}

// Converter turns a request into a document.
type Converter interface {
	Convert(ctx context.Context, req ConversionRequest) (Result, error)
}

// PDFRenderer renders HTML into PDF bytes.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string, opts PDFOptions) ([]byte, error)
}

// DOCXRenderer renders HTML into DOCX bytes.
type DOCXRenderer interface {
	RenderDOCX(ctx context.Context, html string, opts DOCXOptions) ([]byte, error)
}

// EngineState is the lifecycle state of the rendering engine handle.
type EngineState string

const (
	EngineAbsent       EngineState = "absent"
	EngineLaunching    EngineState = "launching"
	EngineReady        EngineState = "ready"
	EngineDisconnected EngineState = "disconnected"
)

// EngineStatus is a snapshot of the rendering engine handle.
type EngineStatus struct {
	State       EngineState `json:"state"`
	Connected   bool        `json:"connected"`
	Launches    int64       `json:"launches"`
	Disconnects int64       `json:"disconnects"`
	LastError   string      `json:"lastError,omitempty"`
}

// StatusProvider reports engine status.
type StatusProvider interface {
	EngineStatus(ctx context.Context) (EngineStatus, error)
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger is a no-op logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}

// MetricsEvent describes conversion lifecycle metrics.
type MetricsEvent struct {
	Name      string
	RequestID string
	Format    Format
	Bytes     int64
	Duration  time.Duration
	ErrorKind ErrorKind
	Timestamp time.Time
}

// MetricsHook emits metrics-friendly lifecycle observations.
type MetricsHook interface {
	Emit(ctx context.Context, evt MetricsEvent) error
}
