package defaults

import (
	"log/slog"
	"net/http"

	"github.com/woztorrentz/torrent-api/internal/scrapers"
	"github.com/woztorrentz/torrent-api/internal/scrapers/kickass"
	"github.com/woztorrentz/torrent-api/internal/scrapers/limetorrents"
	"github.com/woztorrentz/torrent-api/internal/scrapers/piratebay"
	"github.com/woztorrentz/torrent-api/internal/sites"
)

type Options struct {
	// Client overrides the per-site HTTP clients. Tests use it to point
	// scrapers at fixture servers.
	Client                  *http.Client
	Logger                  *slog.Logger
	DetailWorkers           int
	DetailRequestsPerSecond float64
	LimetorrentsCookie      string
}

// NewRegistry registers the built-in scrapers and applies table. Sites in the
// table without a built-in scraper are reported but do not prevent startup.
func NewRegistry(table []sites.Descriptor, opts Options) (*scrapers.Registry, error) {
	registry := scrapers.NewRegistry()

	_ = registry.Register(piratebay.Key, func(site sites.Descriptor) scrapers.Scraper {
		return piratebay.NewScraperWithOptions(piratebay.Options{
			BaseURL: site.BaseURL,
			Client:  opts.Client,
			Logger:  opts.Logger,
		})
	})
	_ = registry.Register(kickass.Key, func(site sites.Descriptor) scrapers.Scraper {
		return kickass.NewScraperWithOptions(kickass.Options{
			BaseURL:                 site.BaseURL,
			Client:                  opts.Client,
			Logger:                  opts.Logger,
			Workers:                 opts.DetailWorkers,
			DetailRequestsPerSecond: opts.DetailRequestsPerSecond,
		})
	})
	_ = registry.Register(limetorrents.Key, func(site sites.Descriptor) scrapers.Scraper {
		return limetorrents.NewScraperWithOptions(limetorrents.Options{
			BaseURL: site.BaseURL,
			Client:  opts.Client,
			Logger:  opts.Logger,
			Cookie:  opts.LimetorrentsCookie,
		})
	})

	return registry, registry.Apply(table)
}
