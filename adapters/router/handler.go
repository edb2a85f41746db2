// Package docrouter mounts the conversion API on a go-router router.
package docrouter

import (
	"github.com/goliatone/go-docgen/adapters/docapi"
	"github.com/goliatone/go-docgen/docgen"
	"github.com/goliatone/go-router"
)

// Config configures the go-router adapter.
type Config = docapi.Config

// Handler exposes conversion routes for go-router.
type Handler struct {
	controller *docapi.Controller
}

// NewHandler creates a go-router handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: docapi.NewController(cfg)}
}

// RegisterRoutes registers routes on a compatible go-router router. Preflight
// routes are added when the router supports OPTIONS.
func (h *Handler) RegisterRoutes(r any) {
	reg, ok := r.(routeRegistrar)
	if !ok {
		return
	}
	reg.Post(docapi.PathGeneratePDF, h.Handle)
	reg.Post(docapi.PathGenerateDOCX, h.Handle)
	reg.Get(docapi.PathHealth, h.Handle)

	if opts, ok := r.(optionsRegistrar); ok {
		opts.Options(docapi.PathGeneratePDF, h.Handle)
		opts.Options(docapi.PathGenerateDOCX, h.Handle)
		opts.Options(docapi.PathHealth, h.Handle)
	}
}

// Handle executes the shared conversion workflow.
func (h *Handler) Handle(c router.Context) error {
	if c == nil {
		return nil
	}
	if h == nil || h.controller == nil {
		docapi.WriteError(routerResponse{ctx: c}, docgen.NewError(docgen.KindInternal, "handler is nil", nil))
		return nil
	}
	h.controller.Serve(routerRequest{ctx: c}, routerResponse{ctx: c})
	return nil
}

type routeRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

type optionsRegistrar interface {
	Options(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}
