package dochttp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/goliatone/go-docgen/adapters/docapi"
)

type httpRequest struct {
	r *http.Request
}

func (req httpRequest) Context() context.Context {
	if req.r == nil {
		return context.Background()
	}
	return req.r.Context()
}

func (req httpRequest) Method() string {
	if req.r == nil {
		return ""
	}
	return req.r.Method
}

func (req httpRequest) Path() string {
	if req.r == nil || req.r.URL == nil {
		return ""
	}
	return req.r.URL.Path
}

func (req httpRequest) Header(name string) string {
	if req.r == nil {
		return ""
	}
	return req.r.Header.Get(name)
}

func (req httpRequest) Query(name string) string {
	if req.r == nil || req.r.URL == nil {
		return ""
	}
	return req.r.URL.Query().Get(name)
}

func (req httpRequest) Body() io.ReadCloser {
	if req.r == nil {
		return nil
	}
	return req.r.Body
}

type httpResponse struct {
	w http.ResponseWriter
}

func (res httpResponse) SetHeader(name, value string) {
	if res.w == nil {
		return
	}
	res.w.Header().Set(name, value)
}

func (res httpResponse) WriteHeader(status int) {
	if res.w == nil {
		return
	}
	res.w.WriteHeader(status)
}

func (res httpResponse) Write(data []byte) (int, error) {
	if res.w == nil {
		return 0, nil
	}
	return res.w.Write(data)
}

func (res httpResponse) WriteJSON(status int, payload any) error {
	if res.w == nil {
		return nil
	}
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	return json.NewEncoder(res.w).Encode(payload)
}

var (
	_ docapi.Request  = httpRequest{}
	_ docapi.Response = httpResponse{}
)
