package http

import (
	"database/sql"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/woztorrentz/torrent-api/internal/config"
	"github.com/woztorrentz/torrent-api/internal/dispatch"
	"github.com/woztorrentz/torrent-api/internal/http/handlers"
	"github.com/woztorrentz/torrent-api/internal/repository"
)

type Dependencies struct {
	DB         *sql.DB
	Dispatcher *dispatch.Dispatcher
	SiteChecks *repository.SiteCheckRepository
	Logger     *slog.Logger
	Version    string
}

func NewServer(cfg config.Config, deps Dependencies) *fiber.App {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	health := handlers.NewHealthHandler(deps.DB, cfg.AppName, deps.Version)
	search := handlers.NewSearchHandler(deps.Dispatcher)
	top100 := handlers.NewTop100Handler(deps.Dispatcher)

	siteHandlers := handlers.NewSitesHandler(deps.Dispatcher, nil, logger)
	if deps.SiteChecks != nil {
		siteHandlers = handlers.NewSitesHandler(deps.Dispatcher, deps.SiteChecks, logger)
	}

	app.Get("/health", health.Check)

	v1 := app.Group("/api/v1")
	v1.Get("/health", health.Check)
	v1.Get("/search", search.Search)
	v1.Get("/trending", search.Trending)
	v1.Get("/recent", search.Recent)
	v1.Get("/top100/movies", top100.Movies)
	v1.Get("/top100/categories", top100.Categories)
	v1.Get("/top100/category/:category", top100.Category)
	v1.Get("/sites", siteHandlers.List)
	v1.Get("/sites/status", siteHandlers.Status)
	v1.Get("/sites/health", siteHandlers.Health)

	return app
}
