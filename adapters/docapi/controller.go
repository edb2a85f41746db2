package docapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-docgen/docgen"
	errorslib "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	PathGeneratePDF  = "/api/generate-pdf"
	PathGenerateDOCX = "/api/generate-docx"
	PathHealth       = "/health"

	HeaderRequestID = "X-Request-Id"
)

// Config configures the shared conversion controller.
type Config struct {
	Converter      docgen.Converter
	Status         docgen.StatusProvider
	CORS           CORSPolicy
	MaxBodyBytes   int64
	RequestDecoder RequestDecoder
	Logger         docgen.Logger
	IDGenerator    func() string
	Now            func() time.Time
}

// Controller exposes the conversion endpoints for multiple transports.
type Controller struct {
	converter      docgen.Converter
	status         docgen.StatusProvider
	cors           CORSPolicy
	requestDecoder RequestDecoder
	logger         docgen.Logger
	idGenerator    func() string
	now            func() time.Time
	startedAt      time.Time
}

// NewController creates a shared conversion controller.
func NewController(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = docgen.NopLogger{}
	}
	decoder := cfg.RequestDecoder
	if decoder == nil {
		decoder = JSONRequestDecoder{MaxBodyBytes: cfg.MaxBodyBytes}
	}
	idGen := cfg.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Controller{
		converter:      cfg.Converter,
		status:         cfg.Status,
		cors:           cfg.CORS,
		requestDecoder: decoder,
		logger:         logger,
		idGenerator:    idGen,
		now:            nowFn,
		startedAt:      nowFn(),
	}
}

// Routes lists the paths served by the controller.
func (c *Controller) Routes() []string {
	return []string{PathGeneratePDF, PathGenerateDOCX, PathHealth}
}

// Serve routes conversion endpoints using the shared controller.
func (c *Controller) Serve(req Request, res Response) {
	if res == nil {
		return
	}
	if c == nil {
		WriteError(res, docgen.NewError(docgen.KindInternal, "handler is nil", nil))
		return
	}
	if req == nil {
		WriteError(res, docgen.NewError(docgen.KindInternal, "request is nil", nil))
		return
	}

	if c.cors.Apply(req, res) {
		return
	}

	path := strings.TrimRight(req.Path(), "/")
	switch path {
	case PathGeneratePDF:
		c.requireMethod(req, res, http.MethodPost, func() { c.handleGenerate(req, res, docgen.FormatPDF) })
	case PathGenerateDOCX:
		c.requireMethod(req, res, http.MethodPost, func() { c.handleGenerate(req, res, docgen.FormatDOCX) })
	case PathHealth:
		c.requireMethod(req, res, http.MethodGet, func() { c.handleHealth(req, res) })
	default:
		writeJSON(res, http.StatusNotFound, ErrorResponse{Error: "not found"})
	}
}

func (c *Controller) requireMethod(req Request, res Response, method string, next func()) {
	if req.Method() == method || (method == http.MethodGet && req.Method() == http.MethodHead) {
		next()
		return
	}
	res.SetHeader("Allow", method+",OPTIONS")
	writeJSON(res, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
}

func (c *Controller) handleGenerate(req Request, res Response, format docgen.Format) {
	requestID := strings.TrimSpace(req.Header(HeaderRequestID))
	if requestID == "" {
		requestID = c.idGenerator()
	}
	res.SetHeader(HeaderRequestID, requestID)

	if c.converter == nil {
		WriteConversionError(res, format, docgen.NewError(docgen.KindNotImpl, "converter not configured", nil))
		return
	}

	decoded, err := c.requestDecoder.Decode(req)
	if err != nil {
		c.logger.Debugf("rejected %s request id=%s: %v", format, requestID, err)
		WriteConversionError(res, format, err)
		return
	}
	decoded.Format = format
	decoded.RequestID = requestID

	result, err := c.converter.Convert(req.Context(), decoded)
	if err != nil {
		WriteConversionError(res, format, err)
		return
	}

	setDownloadHeaders(res, result)
	res.WriteHeader(http.StatusOK)
	if _, err := res.Write(result.Content); err != nil {
		c.logger.Errorf("write %s response id=%s: %v", format, requestID, err)
	}
}

func (c *Controller) handleHealth(req Request, res Response) {
	payload := HealthResponse{
		Status:      "ok",
		Uptime:      c.now().Sub(c.startedAt).Seconds(),
		EngineState: string(docgen.EngineAbsent),
	}
	if c.status != nil {
		status, err := c.status.EngineStatus(req.Context())
		if err != nil {
			c.logger.Errorf("engine status: %v", err)
		} else {
			payload.EngineConnected = status.Connected
			payload.EngineState = string(status.State)
		}
	}
	writeJSON(res, http.StatusOK, payload)
}

// WriteConversionError writes a failed conversion. Validation failures answer 400
// with only the error text; everything else answers 500 with a per-format
// headline and the underlying message.
func WriteConversionError(res Response, format docgen.Format, err error) {
	ge := docgen.AsGoError(err)
	status := statusForError(ge)
	if status == http.StatusBadRequest {
		writeJSON(res, status, ErrorResponse{Error: ge.Message})
		return
	}
	writeJSON(res, status, ErrorResponse{
		Error:   failureHeadline(format),
		Message: ge.Message,
	})
}

// WriteError writes err with its mapped status.
func WriteError(res Response, err error) {
	if err == nil {
		res.WriteHeader(http.StatusNoContent)
		return
	}
	ge := docgen.AsGoError(err)
	writeJSON(res, statusForError(ge), ErrorResponse{Error: ge.Message})
}

func failureHeadline(format docgen.Format) string {
	switch format {
	case docgen.FormatDOCX:
		return "Failed to generate DOCX"
	default:
		return "Failed to generate PDF"
	}
}

func writeJSON(res Response, status int, payload any) {
	_ = res.WriteJSON(status, payload)
}

func statusForError(err *errorslib.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	switch err.Category {
	case errorslib.CategoryValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func setDownloadHeaders(res Response, result docgen.Result) {
	contentType := result.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	res.SetHeader("Content-Type", contentType)
	res.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	res.SetHeader("Content-Length", strconv.Itoa(len(result.Content)))
}
