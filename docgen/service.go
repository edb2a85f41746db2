package docgen

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ServiceConfig supplies dependencies for Service.
type ServiceConfig struct {
	PDF         PDFRenderer
	DOCX        DOCXRenderer
	Logger      Logger
	Metrics     MetricsHook
	Now         func() time.Time
	IDGenerator func() string
}

// Service validates conversion requests and dispatches them to the renderer for
// the requested format.
type Service struct {
	pdf         PDFRenderer
	docx        DOCXRenderer
	logger      Logger
	metrics     MetricsHook
	now         func() time.Time
	idGenerator func() string
}

// NewService creates a Service with the provided configuration.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger{}
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	idGen := cfg.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	return &Service{
		pdf:         cfg.PDF,
		docx:        cfg.DOCX,
		logger:      logger,
		metrics:     cfg.Metrics,
		now:         nowFn,
		idGenerator: idGen,
	}
}

// Validate checks a request without touching any renderer.
func Validate(req ConversionRequest) error {
	if req.HTML == "" {
		return NewError(KindValidation, "Valid HTML string is required", nil)
	}
	if !NormalizeFormat(req.Format).Valid() {
		return NewError(KindValidation, "unsupported format: "+string(req.Format), nil)
	}
	return nil
}

// Convert renders req and returns the framed result.
func (s *Service) Convert(ctx context.Context, req ConversionRequest) (Result, error) {
	if s == nil {
		return Result{}, NewError(KindInternal, "conversion service is nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := Validate(req); err != nil {
		return Result{}, err
	}

	req.Format = NormalizeFormat(req.Format)
	if req.RequestID == "" {
		req.RequestID = s.idGenerator()
	}

	start := s.now()
	s.logger.Infof("conversion started id=%s format=%s bytes=%d", req.RequestID, req.Format, len(req.HTML))
	s.emit(ctx, req, "conversion.started", 0, 0, nil)

	content, err := s.render(ctx, req)
	elapsed := s.now().Sub(start)
	if err != nil {
		s.logger.Errorf("conversion failed id=%s format=%s after %s: %v", req.RequestID, req.Format, elapsed, err)
		s.emit(ctx, req, "conversion.failed", 0, elapsed, err)
		return Result{}, err
	}

	s.logger.Infof("conversion completed id=%s format=%s size=%d duration=%s", req.RequestID, req.Format, len(content), elapsed)
	s.emit(ctx, req, "conversion.completed", int64(len(content)), elapsed, nil)

	return Result{
		Content:     content,
		ContentType: req.Format.ContentType(),
		Filename:    SanitizeFilename(req.Filename, req.Format),
		Format:      req.Format,
		Duration:    elapsed,
		RequestID:   req.RequestID,
	}, nil
}

func (s *Service) render(ctx context.Context, req ConversionRequest) ([]byte, error) {
	switch req.Format {
	case FormatPDF:
		if s.pdf == nil {
			return nil, NewError(KindNotImpl, "pdf renderer not configured", nil)
		}
		return s.pdf.RenderPDF(ctx, req.HTML, req.PDF)
	case FormatDOCX:
		if s.docx == nil {
			return nil, NewError(KindNotImpl, "docx renderer not configured", nil)
		}
		return s.docx.RenderDOCX(ctx, req.HTML, req.DOCX)
	default:
		return nil, NewError(KindValidation, "unsupported format: "+string(req.Format), nil)
	}
}

func (s *Service) emit(ctx context.Context, req ConversionRequest, name string, size int64, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	kind := ErrorKind("")
	if err != nil {
		kind = KindFromError(err)
	}
	if emitErr := s.metrics.Emit(ctx, MetricsEvent{
		Name:      name,
		RequestID: req.RequestID,
		Format:    req.Format,
		Bytes:     size,
		Duration:  elapsed,
		ErrorKind: kind,
		Timestamp: s.now(),
	}); emitErr != nil {
		s.logger.Debugf("metrics hook %s: %v", name, emitErr)
	}
}
