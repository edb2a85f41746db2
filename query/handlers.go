package query

import (
	"context"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-docgen/docgen"
	"github.com/goliatone/go-errors"
)

// EngineStatusHandler answers EngineStatus queries.
type EngineStatusHandler struct {
	Provider docgen.StatusProvider
}

func NewEngineStatusHandler(provider docgen.StatusProvider) *EngineStatusHandler {
	return &EngineStatusHandler{Provider: provider}
}

func (h *EngineStatusHandler) Query(ctx context.Context, msg EngineStatus) (docgen.EngineStatus, error) {
	_ = msg
	if h == nil || h.Provider == nil {
		return docgen.EngineStatus{}, errors.New("status provider is required", errors.CategoryInternal).
			WithTextCode("PROVIDER_REQUIRED")
	}
	return h.Provider.EngineStatus(ctx)
}

// DispatchStatus resolves engine status through the query bus.
type DispatchStatus struct{}

func (DispatchStatus) EngineStatus(ctx context.Context) (docgen.EngineStatus, error) {
	return dispatcher.Query[EngineStatus, docgen.EngineStatus](ctx, EngineStatus{})
}

var _ docgen.StatusProvider = DispatchStatus{}
