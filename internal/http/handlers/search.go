package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/woztorrentz/torrent-api/internal/dispatch"
	"github.com/woztorrentz/torrent-api/internal/sites"
)

type SearchHandler struct {
	dispatcher *dispatch.Dispatcher
}

func NewSearchHandler(dispatcher *dispatch.Dispatcher) *SearchHandler {
	return &SearchHandler{dispatcher: dispatcher}
}

// Search handles GET /api/v1/search?query=&site=&limit=50&page=1.
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Query is required"})
	}

	site := c.Query("site")
	if strings.TrimSpace(site) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Site is required"})
	}

	response, err := h.dispatcher.Search(c.UserContext(), site, query, c.QueryInt("page", 1), c.QueryInt("limit", sites.DefaultLimit))
	if err != nil {
		return writeError(c, site, err)
	}
	return c.JSON(response)
}

func (h *SearchHandler) Trending(c *fiber.Ctx) error {
	site := c.Query("site")
	response, err := h.dispatcher.Trending(c.UserContext(), site, c.Query("category"), c.QueryInt("page", 1), c.QueryInt("limit", sites.DefaultLimit))
	if err != nil {
		return writeError(c, site, err)
	}
	return c.JSON(response)
}

func (h *SearchHandler) Recent(c *fiber.Ctx) error {
	site := c.Query("site")
	response, err := h.dispatcher.Recent(c.UserContext(), site, c.Query("category"), c.QueryInt("page", 1), c.QueryInt("limit", sites.DefaultLimit))
	if err != nil {
		return writeError(c, site, err)
	}
	return c.JSON(response)
}
