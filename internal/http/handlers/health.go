package handlers

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/woztorrentz/torrent-api/internal/database"
)

type HealthHandler struct {
	db      *sql.DB
	app     string
	version string
	started time.Time
}

func NewHealthHandler(db *sql.DB, app string, version string) *HealthHandler {
	return &HealthHandler{db: db, app: app, version: version, started: time.Now()}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":  "ok",
		"app":     h.app,
		"version": h.version,
		"uptime":  int64(time.Since(h.started).Seconds()),
		"db":      "disabled",
		"time":    time.Now().UTC().Format(time.RFC3339),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := database.Check(ctx, h.db); err != nil {
			body["status"] = "degraded"
			body["db"] = "down"
			return c.Status(fiber.StatusServiceUnavailable).JSON(body)
		}
		body["db"] = "up"
	}

	return c.JSON(body)
}
