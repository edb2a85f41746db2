// Package dochttp serves the conversion API over net/http.
package dochttp

import (
	"net/http"

	"github.com/goliatone/go-docgen/adapters/docapi"
	"github.com/goliatone/go-docgen/docgen"
)

// Config configures the HTTP adapter.
type Config = docapi.Config

// Handler exposes the conversion endpoints as an http.Handler.
type Handler struct {
	controller *docapi.Controller
}

// NewHandler creates a new HTTP handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: docapi.NewController(cfg)}
}

// RegisterRoutes registers handlers on a compatible router such as http.ServeMux.
func (h *Handler) RegisterRoutes(router any) {
	for _, path := range h.routes() {
		switch r := router.(type) {
		case interface{ Handle(string, http.Handler) }:
			r.Handle(path, h)
		case interface {
			HandleFunc(string, func(http.ResponseWriter, *http.Request))
		}:
			r.HandleFunc(path, h.ServeHTTP)
		}
	}
}

// ServeHTTP routes conversion endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	if h == nil || h.controller == nil {
		docapi.WriteError(httpResponse{w: w}, docgen.NewError(docgen.KindInternal, "handler is nil", nil))
		return
	}
	h.controller.Serve(httpRequest{r: r}, httpResponse{w: w})
}

func (h *Handler) routes() []string {
	if h == nil || h.controller == nil {
		return nil
	}
	return h.controller.Routes()
}
