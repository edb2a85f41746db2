package docapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/goliatone/go-docgen/docgen"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes int64 = 50 * 1024 * 1024

const msgInvalidHTML = "Valid HTML string is required"

// Request provides minimal request access for transport adapters.
type Request interface {
	Context() context.Context
	Method() string
	Path() string
	Header(name string) string
	Query(name string) string
	Body() io.ReadCloser
}

// RequestDecoder parses a request body into a conversion request.
type RequestDecoder interface {
	Decode(req Request) (docgen.ConversionRequest, error)
}

// JSONRequestDecoder decodes {html, filename, options} bodies.
type JSONRequestDecoder struct {
	MaxBodyBytes int64
}

// Decode reads and validates the JSON body. A missing, empty or non-string html
// field is a validation error; a non-string filename falls back to the default.
func (d JSONRequestDecoder) Decode(req Request) (docgen.ConversionRequest, error) {
	if req == nil {
		return docgen.ConversionRequest{}, docgen.NewError(docgen.KindInternal, "request is nil", nil)
	}
	body := req.Body()
	if body == nil {
		return docgen.ConversionRequest{}, docgen.NewError(docgen.KindValidation, msgInvalidHTML, nil)
	}
	defer body.Close()

	limit := d.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	raw, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return docgen.ConversionRequest{}, docgen.NewError(docgen.KindValidation, "unable to read request body", err)
	}
	if int64(len(raw)) > limit {
		return docgen.ConversionRequest{}, docgen.NewError(docgen.KindValidation, "request body too large", nil)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return docgen.ConversionRequest{}, docgen.NewError(docgen.KindValidation, msgInvalidHTML, nil)
	}

	var payload requestPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return docgen.ConversionRequest{}, docgen.NewError(docgen.KindValidation, "invalid "+typeErr.Field, err)
		}
		return docgen.ConversionRequest{}, docgen.NewError(docgen.KindValidation, "invalid JSON body", err)
	}

	html, ok := stringValue(payload.HTML)
	if !ok || html == "" {
		return docgen.ConversionRequest{}, docgen.NewError(docgen.KindValidation, msgInvalidHTML, nil)
	}
	filename, _ := stringValue(payload.Filename)

	out := docgen.ConversionRequest{
		HTML:     html,
		Filename: filename,
	}
	if payload.Options != nil {
		out.PDF = payload.Options.toPDFOptions()
		out.DOCX = payload.Options.toDOCXOptions()
	}
	return out, nil
}

// stringValue reports the decoded string when raw holds a JSON string.
func stringValue(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

type requestPayload struct {
	HTML     json.RawMessage `json:"html"`
	Filename json.RawMessage `json:"filename"`
	Options  *optionsPayload `json:"options,omitempty"`
}

type optionsPayload struct {
	PageSize          string          `json:"pageSize,omitempty"`
	Landscape         *bool           `json:"landscape,omitempty"`
	PrintBackground   *bool           `json:"printBackground,omitempty"`
	PreferCSSPageSize *bool           `json:"preferCSSPageSize,omitempty"`
	Scale             float64         `json:"scale,omitempty"`
	Margin            marginPayload   `json:"margin,omitempty"`
	Viewport          viewportPayload `json:"viewport,omitempty"`
	BaseURL           string          `json:"baseURL,omitempty"`
	ExternalAssets    string          `json:"externalAssets,omitempty"`
	WordCompat        *bool           `json:"wordCompat,omitempty"`
	Title             string          `json:"title,omitempty"`
}

type marginPayload struct {
	Top    string `json:"top,omitempty"`
	Right  string `json:"right,omitempty"`
	Bottom string `json:"bottom,omitempty"`
	Left   string `json:"left,omitempty"`
}

type viewportPayload struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

func (p optionsPayload) toPDFOptions() docgen.PDFOptions {
	return docgen.PDFOptions{
		PageSize:             p.PageSize,
		Landscape:            p.Landscape,
		PrintBackground:      p.PrintBackground,
		PreferCSSPageSize:    p.PreferCSSPageSize,
		Scale:                p.Scale,
		MarginTop:            p.Margin.Top,
		MarginRight:          p.Margin.Right,
		MarginBottom:         p.Margin.Bottom,
		MarginLeft:           p.Margin.Left,
		ViewportWidth:        p.Viewport.Width,
		ViewportHeight:       p.Viewport.Height,
		BaseURL:              p.BaseURL,
		ExternalAssetsPolicy: docgen.PDFExternalAssetsPolicy(p.ExternalAssets),
	}
}

func (p optionsPayload) toDOCXOptions() docgen.DOCXOptions {
	return docgen.DOCXOptions{
		WordCompat:   p.WordCompat,
		Title:        p.Title,
		MarginTop:    p.Margin.Top,
		MarginRight:  p.Margin.Right,
		MarginBottom: p.Margin.Bottom,
		MarginLeft:   p.Margin.Left,
	}
}
