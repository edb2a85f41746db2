package docapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-docgen/docgen"
)

type stubRequest struct {
	method  string
	path    string
	headers map[string]string
	body    string
}

func (s stubRequest) Context() context.Context { return context.Background() }
func (s stubRequest) Method() string           { return s.method }
func (s stubRequest) Path() string             { return s.path }
func (s stubRequest) Header(name string) string {
	return s.headers[name]
}
func (s stubRequest) Query(string) string { return "" }
func (s stubRequest) Body() io.ReadCloser {
	return io.NopCloser(strings.NewReader(s.body))
}

type recordedResponse struct {
	status  int
	headers map[string]string
	body    []byte
}

func newRecordedResponse() *recordedResponse {
	return &recordedResponse{headers: map[string]string{}}
}

func (r *recordedResponse) SetHeader(name, value string) { r.headers[name] = value }
func (r *recordedResponse) WriteHeader(status int)       { r.status = status }
func (r *recordedResponse) Write(data []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body = append(r.body, data...)
	return len(data), nil
}
func (r *recordedResponse) WriteJSON(status int, payload any) error {
	r.headers["Content-Type"] = "application/json"
	r.status = status
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.body = data
	return nil
}

type stubConverter struct {
	mu    sync.Mutex
	calls []docgen.ConversionRequest
	fn    func(req docgen.ConversionRequest) (docgen.Result, error)
}

func (s *stubConverter) Convert(_ context.Context, req docgen.ConversionRequest) (docgen.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(req)
	}
	return docgen.Result{
		Content:     []byte("bytes-" + string(req.Format)),
		ContentType: req.Format.ContentType(),
		Filename:    docgen.SanitizeFilename(req.Filename, req.Format),
		Format:      req.Format,
	}, nil
}

type stubStatus struct {
	status docgen.EngineStatus
	err    error
}

func (s stubStatus) EngineStatus(context.Context) (docgen.EngineStatus, error) {
	return s.status, s.err
}

func decodeError(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return payload
}

func TestController_GeneratePDF(t *testing.T) {
	conv := &stubConverter{}
	c := NewController(Config{Converter: conv, IDGenerator: func() string { return "id-1" }})

	res := newRecordedResponse()
	c.Serve(stubRequest{method: http.MethodPost, path: PathGeneratePDF, body: `{"html":"<p>hello</p>","filename":"report"}`}, res)

	if res.status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.status, res.body)
	}
	if res.headers["Content-Type"] != "application/pdf" {
		t.Fatalf("unexpected content type %q", res.headers["Content-Type"])
	}
	if res.headers["Content-Disposition"] != `attachment; filename="report.pdf"` {
		t.Fatalf("unexpected disposition %q", res.headers["Content-Disposition"])
	}
	if res.headers[HeaderRequestID] != "id-1" || res.headers["Content-Length"] != "9" {
		t.Fatalf("unexpected headers %+v", res.headers)
	}
	if string(res.body) != "bytes-pdf" {
		t.Fatalf("unexpected body %q", res.body)
	}
	if len(conv.calls) != 1 || conv.calls[0].Format != docgen.FormatPDF || conv.calls[0].RequestID != "id-1" {
		t.Fatalf("unexpected converter calls %+v", conv.calls)
	}
}

func TestController_GenerateDOCX_WithOptions(t *testing.T) {
	conv := &stubConverter{}
	c := NewController(Config{Converter: conv})

	res := newRecordedResponse()
	body := `{"html":"<table><tr><td>x</td></tr></table>","options":{"wordCompat":true,"title":"T","margin":{"top":"2cm"}}}`
	c.Serve(stubRequest{method: http.MethodPost, path: PathGenerateDOCX, body: body, headers: map[string]string{HeaderRequestID: "caller-id"}}, res)

	if res.status != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.status)
	}
	if res.headers["Content-Type"] != docgen.ContentTypeDOCX {
		t.Fatalf("unexpected content type %q", res.headers["Content-Type"])
	}
	if res.headers["Content-Disposition"] != `attachment; filename="document.docx"` {
		t.Fatalf("unexpected disposition %q", res.headers["Content-Disposition"])
	}
	if res.headers[HeaderRequestID] != "caller-id" {
		t.Fatalf("expected caller request id to be echoed")
	}
	got := conv.calls[0]
	if got.DOCX.WordCompat == nil || !*got.DOCX.WordCompat || got.DOCX.Title != "T" || got.DOCX.MarginTop != "2cm" {
		t.Fatalf("expected docx options, got %+v", got.DOCX)
	}
	if got.PDF.MarginTop != "2cm" {
		t.Fatalf("expected margins to map onto pdf options too")
	}
}

func TestController_ValidationErrors(t *testing.T) {
	bodies := []string{
		`{}`,
		``,
		`{"html":""}`,
		`{"html":42}`,
		`{"html":null}`,
		`not json`,
		`{"html":"<p>x</p>","options":{"scale":"big"}}`,
	}
	for _, path := range []string{PathGeneratePDF, PathGenerateDOCX} {
		for _, body := range bodies {
			conv := &stubConverter{}
			c := NewController(Config{Converter: conv})
			res := newRecordedResponse()
			c.Serve(stubRequest{method: http.MethodPost, path: path, body: body}, res)

			if res.status != http.StatusBadRequest {
				t.Fatalf("%s %q: expected 400, got %d", path, body, res.status)
			}
			payload := decodeError(t, res.body)
			if _, ok := payload["error"].(string); !ok {
				t.Fatalf("%s %q: expected error field, got %v", path, body, payload)
			}
			if _, ok := payload["message"]; ok {
				t.Fatalf("%s %q: 400 must carry only the error field", path, body)
			}
			if len(conv.calls) != 0 {
				t.Fatalf("%s %q: converter must not be called", path, body)
			}
		}
	}

	c := NewController(Config{Converter: &stubConverter{}})
	res := newRecordedResponse()
	c.Serve(stubRequest{method: http.MethodPost, path: PathGeneratePDF, body: `{}`}, res)
	if payload := decodeError(t, res.body); payload["error"] != "Valid HTML string is required" {
		t.Fatalf("unexpected error text %v", payload["error"])
	}
}

func TestController_NonStringFilenameFallsBack(t *testing.T) {
	conv := &stubConverter{}
	c := NewController(Config{Converter: conv})
	res := newRecordedResponse()
	c.Serve(stubRequest{method: http.MethodPost, path: PathGeneratePDF, body: `{"html":"<p>x</p>","filename":7}`}, res)

	if res.headers["Content-Disposition"] != `attachment; filename="document.pdf"` {
		t.Fatalf("unexpected disposition %q", res.headers["Content-Disposition"])
	}
}

func TestController_BodyLimit(t *testing.T) {
	conv := &stubConverter{}
	c := NewController(Config{Converter: conv, MaxBodyBytes: 32})
	res := newRecordedResponse()
	c.Serve(stubRequest{method: http.MethodPost, path: PathGeneratePDF, body: `{"html":"` + strings.Repeat("x", 64) + `"}`}, res)

	if res.status != http.StatusBadRequest || len(conv.calls) != 0 {
		t.Fatalf("expected oversized body to be rejected, got %d", res.status)
	}
}

func TestController_ConversionFailure(t *testing.T) {
	cases := []struct {
		path     string
		err      error
		headline string
	}{
		{PathGeneratePDF, docgen.NewError(docgen.KindUnavailable, "rendering engine unavailable", errors.New("spawn failed")), "Failed to generate PDF"},
		{PathGeneratePDF, docgen.NewError(docgen.KindTimeout, "content did not settle within 45s", nil), "Failed to generate PDF"},
		{PathGenerateDOCX, errors.New("pandoc crashed"), "Failed to generate DOCX"},
	}
	for _, tc := range cases {
		conv := &stubConverter{fn: func(docgen.ConversionRequest) (docgen.Result, error) { return docgen.Result{}, tc.err }}
		c := NewController(Config{Converter: conv})
		res := newRecordedResponse()
		c.Serve(stubRequest{method: http.MethodPost, path: tc.path, body: `{"html":"<p>x</p>"}`}, res)

		if res.status != http.StatusInternalServerError {
			t.Fatalf("%v: expected 500, got %d", tc.err, res.status)
		}
		payload := decodeError(t, res.body)
		if payload["error"] != tc.headline {
			t.Fatalf("unexpected headline %v", payload["error"])
		}
		if msg, _ := payload["message"].(string); msg == "" {
			t.Fatalf("expected message on 500")
		}
		if _, ok := res.headers["Content-Disposition"]; ok {
			t.Fatalf("failed conversions must not set download headers")
		}
	}
}

func TestController_Health(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewController(Config{
		Status: stubStatus{status: docgen.EngineStatus{State: docgen.EngineReady, Connected: true}},
		Now:    func() time.Time { return now },
	})
	now = now.Add(90 * time.Second)

	res := newRecordedResponse()
	c.Serve(stubRequest{method: http.MethodGet, path: PathHealth}, res)
	if res.status != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.status)
	}
	var payload HealthResponse
	if err := json.Unmarshal(res.body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "ok" || payload.Uptime != 90 || !payload.EngineConnected || payload.EngineState != "ready" {
		t.Fatalf("unexpected health payload %+v", payload)
	}

	c = NewController(Config{Status: stubStatus{err: errors.New("unreachable")}})
	res = newRecordedResponse()
	c.Serve(stubRequest{method: http.MethodGet, path: PathHealth}, res)
	if res.status != http.StatusOK {
		t.Fatalf("health must stay ok when status lookup fails")
	}
}

func TestController_RoutingErrors(t *testing.T) {
	c := NewController(Config{Converter: &stubConverter{}})

	res := newRecordedResponse()
	c.Serve(stubRequest{method: http.MethodGet, path: "/nope"}, res)
	if res.status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.status)
	}

	res = newRecordedResponse()
	c.Serve(stubRequest{method: http.MethodGet, path: PathGeneratePDF}, res)
	if res.status != http.StatusMethodNotAllowed || res.headers["Allow"] != "POST,OPTIONS" {
		t.Fatalf("expected 405 with allow header, got %d %v", res.status, res.headers)
	}

	res = newRecordedResponse()
	c.Serve(stubRequest{method: http.MethodPost, path: PathHealth}, res)
	if res.status != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.status)
	}
}

func TestController_MissingConverter(t *testing.T) {
	c := NewController(Config{})
	res := newRecordedResponse()
	c.Serve(stubRequest{method: http.MethodPost, path: PathGeneratePDF, body: `{"html":"<p>x</p>"}`}, res)
	if res.status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.status)
	}
}

func TestController_Preflight(t *testing.T) {
	c := NewController(Config{
		Converter: &stubConverter{},
		CORS:      CORSPolicy{AllowedOrigins: []string{"https://app.example.com"}},
	})

	res := newRecordedResponse()
	c.Serve(stubRequest{method: http.MethodOptions, path: PathGeneratePDF, headers: map[string]string{"Origin": "https://app.example.com"}}, res)
	if res.status != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.status)
	}
	if res.headers["Access-Control-Allow-Origin"] != "https://app.example.com" || res.headers["Access-Control-Allow-Methods"] != "GET,POST,OPTIONS" {
		t.Fatalf("unexpected preflight headers %+v", res.headers)
	}

	res = newRecordedResponse()
	c.Serve(stubRequest{method: http.MethodPost, path: PathGeneratePDF, body: `{"html":"<p>x</p>"}`, headers: map[string]string{"Origin": "https://evil.test"}}, res)
	if _, ok := res.headers["Access-Control-Allow-Origin"]; ok {
		t.Fatalf("disallowed origin must not receive cors headers")
	}
	if res.status != http.StatusOK {
		t.Fatalf("request itself is still served, got %d", res.status)
	}
}
