package command

import (
	"github.com/goliatone/go-docgen/docgen"
	"github.com/goliatone/go-errors"
)

// GenerateDocument converts one HTML document.
type GenerateDocument struct {
	Request docgen.ConversionRequest
	Result  *docgen.Result
}

func (GenerateDocument) Type() string { return "docgen:generate" }

func (msg GenerateDocument) Validate() error {
	if err := docgen.Validate(msg.Request); err != nil {
		if docgen.IsValidation(err) {
			return errors.New(err.Error(), errors.CategoryValidation).
				WithTextCode("REQUEST_INVALID")
		}
		return err
	}
	return nil
}
