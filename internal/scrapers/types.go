// Package scrapers defines the contract shared by the per-site torrent
// scrapers: the normalized record and result shapes, the error values callers
// branch on, and helpers every scraper uses to fetch and tidy pages.
package scrapers

import (
	"context"
	"errors"
	"strings"

	"github.com/woztorrentz/torrent-api/internal/sites"
)

const (
	UnknownUploader = "N/A"
	PlaceholderHash = "0000000000000000000000000000000000000000"
)

var (
	// ErrUnavailable means the site could not be reached, timed out, answered
	// with a non-2xx status or served a bot challenge. It is never used for a
	// search that simply found nothing.
	ErrUnavailable = errors.New("site unavailable")

	// ErrNotSupported means the site has no such listing.
	ErrNotSupported = errors.New("operation not supported by site")
)

type TorrentRecord struct {
	Name     string `json:"name"`
	Size     string `json:"size"`
	Seeders  int    `json:"seeders"`
	Leechers int    `json:"leechers"`
	Uploader string `json:"uploader"`
	URL      string `json:"url"`
	Date     string `json:"date"`
	Language string `json:"language"`
	Hash     string `json:"hash"`
	Magnet   string `json:"magnet"`
}

// Result is the envelope every scraper operation returns on success.
type Result struct {
	Data  []TorrentRecord `json:"data"`
	Total int             `json:"total"`
	Time  float64         `json:"time"`
}

// Scraper is implemented once per site. Instances are built per request and
// carry no per-call state.
type Scraper interface {
	Key() string
	Name() string
	HealthCheck(ctx context.Context) error
	Search(ctx context.Context, query string, page int, limit int) (*Result, error)
	Trending(ctx context.Context, category string, page int, limit int) (*Result, error)
	Recent(ctx context.Context, category string, page int, limit int) (*Result, error)
}

// CategoryBrowser is implemented by sites with browse-by-category listings.
type CategoryBrowser interface {
	Top100Movies(ctx context.Context, page int, limit int) (*Result, error)
	Top100Category(ctx context.Context, categoryID int, page int, limit int) (*Result, error)
}

// Factory builds a fresh scraper for one request.
type Factory func(site sites.Descriptor) Scraper

// ParseCount reads a seeder or leecher cell. Anything unparsable counts as 0.
func ParseCount(raw string) int {
	cleaned := strings.NewReplacer(",", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(raw))
	value := 0
	if cleaned == "" {
		return 0
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return 0
		}
		value = value*10 + int(r-'0')
		if value > 1<<30 {
			return 0
		}
	}
	return value
}
