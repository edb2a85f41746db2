package main

import (
	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-docgen/command"
	"github.com/goliatone/go-docgen/docgen"
	"github.com/goliatone/go-docgen/query"
	"github.com/goliatone/go-errors"
)

// RegisterHandlers wires docgen commands and queries to go-command.
func RegisterHandlers(reg *gcmd.Registry, conv docgen.Converter, status docgen.StatusProvider, batch *command.BatchCommand) ([]dispatcher.Subscription, error) {
	if conv == nil {
		return nil, errors.New("converter is required", errors.CategoryValidation).
			WithTextCode("CONVERTER_REQUIRED")
	}
	if status == nil {
		return nil, errors.New("status provider is required", errors.CategoryValidation).
			WithTextCode("STATUS_REQUIRED")
	}

	gen := command.NewGenerateDocumentHandler(conv)
	engineStatus := query.NewEngineStatusHandler(status)

	subscriptions := []dispatcher.Subscription{
		dispatcher.SubscribeCommand(gen),
		dispatcher.SubscribeQuery(engineStatus),
	}

	if reg != nil {
		handlers := []any{gen, engineStatus}
		if batch != nil {
			handlers = append(handlers, batch)
		}
		for _, handler := range handlers {
			if err := reg.RegisterCommand(handler); err != nil {
				return subscriptions, err
			}
		}
	}

	return subscriptions, nil
}
