package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/woztorrentz/torrent-api/internal/dispatch"
	"github.com/woztorrentz/torrent-api/internal/scrapers"
)

const maxBrowseLimit = 100

type Top100Handler struct {
	dispatcher *dispatch.Dispatcher
}

func NewTop100Handler(dispatcher *dispatch.Dispatcher) *Top100Handler {
	return &Top100Handler{dispatcher: dispatcher}
}

func (h *Top100Handler) Movies(c *fiber.Ctx) error {
	site := c.Query("site")
	response, err := h.dispatcher.Top100Movies(c.UserContext(), site, c.QueryInt("page", 1), c.QueryInt("limit", dispatch.DefaultBrowseLimit))
	if err != nil {
		return writeError(c, site, err)
	}
	if response.Total == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No top movies found."})
	}
	return c.JSON(response)
}

func (h *Top100Handler) Categories(c *fiber.Ctx) error {
	site := c.Query("site")
	categories, descriptor, err := h.dispatcher.Categories(site)
	if err != nil {
		if errors.Is(err, dispatch.ErrUnsupportedSite) || errors.Is(err, scrapers.ErrNotSupported) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Categories not available."})
		}
		return writeError(c, site, err)
	}

	return c.JSON(fiber.Map{
		"categories": categories,
		"source":     descriptor.Name,
	})
}

func (h *Top100Handler) Category(c *fiber.Ctx) error {
	site := c.Query("site")
	category := c.Params("category")

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", dispatch.DefaultBrowseLimit)
	if page < 1 || limit < 1 || limit > maxBrowseLimit {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("page must be >= 1 and limit between 1 and %d", maxBrowseLimit)})
	}

	response, err := h.dispatcher.Top100Category(c.UserContext(), site, category, page, limit)
	if err != nil {
		if errors.Is(err, dispatch.ErrUnknownCategory) {
			available := []string{}
			if categories, _, catErr := h.dispatcher.Categories(site); catErr == nil {
				for _, item := range categories {
					available = append(available, item.Value)
				}
			}
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":                fmt.Sprintf("Category '%s' not available.", category),
				"available_categories": available,
			})
		}
		return writeError(c, site, err)
	}

	if response.Total == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": fmt.Sprintf("No top %s found.", humanize(response.Category))})
	}
	return c.JSON(response)
}
