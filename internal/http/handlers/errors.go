package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/woztorrentz/torrent-api/internal/dispatch"
	"github.com/woztorrentz/torrent-api/internal/scrapers"
	"github.com/woztorrentz/torrent-api/internal/sites"
)

const blockedMessage = "Website Blocked. Change IP or Website Domain."

// writeError maps dispatcher and scraper errors onto HTTP responses.
func writeError(c *fiber.Ctx, site string, err error) error {
	var internal *dispatch.InternalError

	switch {
	case errors.Is(err, dispatch.ErrQueryRequired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Query is required"})
	case errors.Is(err, dispatch.ErrUnsupportedSite):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": sites.NormalizeKey(site) + " not supported"})
	case errors.Is(err, scrapers.ErrUnavailable):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": blockedMessage})
	case errors.Is(err, scrapers.ErrNotSupported):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Not available"})
	case errors.As(err, &internal):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "An unexpected error occurred: " + internal.Message})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "An unexpected error occurred: " + err.Error()})
	}
}

func humanize(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
