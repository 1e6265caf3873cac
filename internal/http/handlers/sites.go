package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/woztorrentz/torrent-api/internal/dispatch"
	"github.com/woztorrentz/torrent-api/internal/models"
)

type siteCheckReader interface {
	LatestBySite(ctx context.Context) (map[string]models.SiteCheck, error)
}

type SitesHandler struct {
	dispatcher *dispatch.Dispatcher
	checks     siteCheckReader
	logger     *slog.Logger
}

type siteStatus struct {
	Key           string     `json:"key"`
	Name          string     `json:"name"`
	BaseURL       string     `json:"baseUrl"`
	Available     *bool      `json:"available"`
	Error         *string    `json:"error,omitempty"`
	LatencyMS     int64      `json:"latencyMs,omitempty"`
	LastCheckedAt *time.Time `json:"lastCheckedAt,omitempty"`
}

func NewSitesHandler(dispatcher *dispatch.Dispatcher, checks siteCheckReader, logger *slog.Logger) *SitesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SitesHandler{dispatcher: dispatcher, checks: checks, logger: logger}
}

func (h *SitesHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"items": h.dispatcher.Sites()})
}

// Status reports the last recorded availability of every site. Sites never
// checked have a null availability.
func (h *SitesHandler) Status(c *fiber.Ctx) error {
	latest := map[string]models.SiteCheck{}
	if h.checks != nil {
		loaded, err := h.checks.LatestBySite(c.UserContext())
		if err != nil {
			h.logger.Error("load site checks failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "An unexpected error occurred: " + err.Error()})
		}
		latest = loaded
	}

	items := make([]siteStatus, 0)
	for _, descriptor := range h.dispatcher.Sites() {
		item := siteStatus{Key: descriptor.Key, Name: descriptor.Name, BaseURL: descriptor.BaseURL}
		if check, ok := latest[descriptor.Key]; ok {
			available := check.Available
			checkedAt := check.CheckedAt
			item.Available = &available
			item.Error = check.Error
			item.LatencyMS = check.LatencyMS
			item.LastCheckedAt = &checkedAt
		}
		items = append(items, item)
	}

	return c.JSON(fiber.Map{"items": items})
}

// Health probes every site now.
func (h *SitesHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 20*time.Second)
	defer cancel()
	return c.JSON(fiber.Map{"items": h.dispatcher.Health(ctx)})
}
