package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-docgen/adapters/docapi"
	docrouter "github.com/goliatone/go-docgen/adapters/router"
	"github.com/goliatone/go-docgen/query"
	"github.com/goliatone/go-router"
)

const (
	corsAllowMethods = "GET,POST,OPTIONS"
	corsAllowHeaders = "Content-Type,Authorization"
	corsExposeHeader = "Content-Disposition,X-Request-Id"
)

func buildServer(app *App) router.Server[*fiber.App] {
	srv := router.NewFiberAdapter(fiberAppInitializer(app))
	handler := docrouter.NewHandler(docapi.Config{
		Converter:    app.service,
		Status:       query.DispatchStatus{},
		CORS:         app.corsPolicy(),
		MaxBodyBytes: app.cfg.Server.BodyLimit,
		Logger:       app.logger,
	})
	handler.RegisterRoutes(srv.Router())
	return srv
}

func fiberAppInitializer(app *App) func(*fiber.App) *fiber.App {
	return func(*fiber.App) *fiber.App {
		fiberApp := fiber.New(fiber.Config{
			AppName:               "docgen",
			BodyLimit:             int(app.cfg.Server.BodyLimit),
			DisableStartupMessage: true,
		})

		fiberApp.Use(recover.New())
		fiberApp.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		}))
		fiberApp.Use(cors.New(corsConfig(app.corsPolicy())))

		return fiberApp
	}
}

// corsConfig answers preflights before routing; the controller sets the same
// headers on the actual requests.
func corsConfig(policy docapi.CORSPolicy) cors.Config {
	cfg := cors.Config{
		AllowMethods:  corsAllowMethods,
		AllowHeaders:  corsAllowHeaders,
		ExposeHeaders: corsExposeHeader,
		MaxAge:        600,
	}
	if policy.AllowAll() {
		cfg.AllowOrigins = "*"
		return cfg
	}
	cfg.AllowOriginsFunc = policy.Allows
	return cfg
}

func (a *App) corsPolicy() docapi.CORSPolicy {
	return docapi.CORSPolicy{AllowedOrigins: a.cfg.CORS.AllowedOrigins}
}
