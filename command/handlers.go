package command

import (
	"context"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-docgen/docgen"
	"github.com/goliatone/go-errors"
)

// GenerateDocumentHandler runs conversions dispatched on the command bus.
type GenerateDocumentHandler struct {
	Converter docgen.Converter
}

func NewGenerateDocumentHandler(conv docgen.Converter) *GenerateDocumentHandler {
	return &GenerateDocumentHandler{Converter: conv}
}

func (h *GenerateDocumentHandler) Execute(ctx context.Context, msg GenerateDocument) error {
	if h == nil || h.Converter == nil {
		return errors.New("converter is required", errors.CategoryInternal).
			WithTextCode("CONVERTER_REQUIRED")
	}
	result, err := h.Converter.Convert(ctx, msg.Request)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = result
	}
	if res := gcmd.ResultFromContext[docgen.Result](ctx); res != nil {
		res.Store(result)
	}
	return nil
}
