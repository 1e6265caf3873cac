// Package dispatch routes search and browse requests to site scrapers and
// gives every scraper the same execution contract: a fresh instance per
// call, a bounded number of concurrent calls, and one error taxonomy.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/woztorrentz/torrent-api/internal/scrapers"
	"github.com/woztorrentz/torrent-api/internal/sites"
)

const (
	DefaultMaxConcurrent = 16
	DefaultBrowseLimit   = 100
	DefaultBrowseSite    = "piratebay"
)

type Options struct {
	MaxConcurrent int
	Logger        *slog.Logger
}

type Dispatcher struct {
	registry *scrapers.Registry
	slots    chan struct{}
	logger   *slog.Logger
}

// Response is a scraper Result plus the request parameters it answers.
type Response struct {
	scrapers.Result
	Site       string `json:"site"`
	Source     string `json:"source"`
	Query      string `json:"query,omitempty"`
	Category   string `json:"category,omitempty"`
	CategoryID int    `json:"category_id,omitempty"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}

func New(registry *scrapers.Registry, opts Options) *Dispatcher {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		registry: registry,
		slots:    make(chan struct{}, maxConcurrent),
		logger:   logger,
	}
}

func (d *Dispatcher) Search(ctx context.Context, site string, query string, page int, limit int) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}

	scraper, descriptor, err := d.resolve(site)
	if err != nil {
		return nil, err
	}

	page, limit = normalizePaging(page, limit, descriptor.Limit)
	result, err := d.run(ctx, "search", descriptor.Key, func(ctx context.Context) (*scrapers.Result, error) {
		return scraper.Search(ctx, query, page, limit)
	})
	if err != nil {
		return nil, err
	}

	return &Response{Result: *result, Site: descriptor.Key, Source: descriptor.Name, Query: query, Page: page, Limit: limit}, nil
}

func (d *Dispatcher) Trending(ctx context.Context, site string, category string, page int, limit int) (*Response, error) {
	scraper, descriptor, err := d.resolve(site)
	if err != nil {
		return nil, err
	}
	if !descriptor.TrendingAvailable {
		return nil, fmt.Errorf("%s trending: %w", descriptor.Key, scrapers.ErrNotSupported)
	}
	if strings.TrimSpace(category) != "" && !descriptor.TrendingCategory {
		return nil, fmt.Errorf("%s trending by category: %w", descriptor.Key, scrapers.ErrNotSupported)
	}

	page, limit = normalizePaging(page, limit, descriptor.Limit)
	result, err := d.run(ctx, "trending", descriptor.Key, func(ctx context.Context) (*scrapers.Result, error) {
		return scraper.Trending(ctx, category, page, limit)
	})
	if err != nil {
		return nil, err
	}

	return &Response{Result: *result, Site: descriptor.Key, Source: descriptor.Name, Category: category, Page: page, Limit: limit}, nil
}

func (d *Dispatcher) Recent(ctx context.Context, site string, category string, page int, limit int) (*Response, error) {
	scraper, descriptor, err := d.resolve(site)
	if err != nil {
		return nil, err
	}
	if !descriptor.RecentAvailable {
		return nil, fmt.Errorf("%s recent: %w", descriptor.Key, scrapers.ErrNotSupported)
	}
	if strings.TrimSpace(category) != "" && !descriptor.RecentCategoryAvailable {
		return nil, fmt.Errorf("%s recent by category: %w", descriptor.Key, scrapers.ErrNotSupported)
	}

	page, limit = normalizePaging(page, limit, descriptor.Limit)
	result, err := d.run(ctx, "recent", descriptor.Key, func(ctx context.Context) (*scrapers.Result, error) {
		return scraper.Recent(ctx, category, page, limit)
	})
	if err != nil {
		return nil, err
	}

	return &Response{Result: *result, Site: descriptor.Key, Source: descriptor.Name, Category: category, Page: page, Limit: limit}, nil
}

// Top100Movies browses the HD movies listing of site, or of the default
// browse site when site is empty.
func (d *Dispatcher) Top100Movies(ctx context.Context, site string, page int, limit int) (*Response, error) {
	browser, descriptor, err := d.browser(site, false)
	if err != nil {
		return nil, err
	}

	page, limit = normalizePaging(page, limit, DefaultBrowseLimit)
	result, err := d.run(ctx, "top100 movies", descriptor.Key, func(ctx context.Context) (*scrapers.Result, error) {
		return browser.Top100Movies(ctx, page, limit)
	})
	if err != nil {
		return nil, err
	}

	return &Response{Result: *result, Site: descriptor.Key, Source: descriptor.Name, Page: page, Limit: limit}, nil
}

func (d *Dispatcher) Top100Category(ctx context.Context, site string, category string, page int, limit int) (*Response, error) {
	browser, descriptor, err := d.browser(site, true)
	if err != nil {
		return nil, err
	}

	category = strings.ToLower(strings.TrimSpace(category))
	categoryID, ok := descriptor.CategoryID(category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	page, limit = normalizePaging(page, limit, DefaultBrowseLimit)
	result, err := d.run(ctx, "top100 category", descriptor.Key, func(ctx context.Context) (*scrapers.Result, error) {
		return browser.Top100Category(ctx, categoryID, page, limit)
	})
	if err != nil {
		return nil, err
	}

	return &Response{
		Result:     *result,
		Site:       descriptor.Key,
		Source:     descriptor.Name,
		Category:   category,
		CategoryID: categoryID,
		Page:       page,
		Limit:      limit,
	}, nil
}

// Categories lists the browse categories of site, or of the default browse
// site when site is empty.
func (d *Dispatcher) Categories(site string) ([]sites.Category, sites.Descriptor, error) {
	descriptor, err := d.descriptor(defaultBrowseSite(site))
	if err != nil {
		return nil, sites.Descriptor{}, err
	}
	if !descriptor.Top100CategoryAvailable || len(descriptor.Top100Categories) == 0 {
		return nil, descriptor, fmt.Errorf("%s categories: %w", descriptor.Key, scrapers.ErrNotSupported)
	}
	return descriptor.FormattedCategories(), descriptor, nil
}

func (d *Dispatcher) Sites() []sites.Descriptor {
	return d.registry.List()
}

func (d *Dispatcher) Health(ctx context.Context) []scrapers.HealthStatus {
	return d.registry.Health(ctx)
}

func (d *Dispatcher) descriptor(site string) (sites.Descriptor, error) {
	descriptor, _, ok := d.registry.Lookup(site)
	if !ok {
		return sites.Descriptor{}, fmt.Errorf("%w: %q", ErrUnsupportedSite, sites.NormalizeKey(site))
	}
	return descriptor, nil
}

func (d *Dispatcher) resolve(site string) (scrapers.Scraper, sites.Descriptor, error) {
	scraper, descriptor, ok := d.registry.New(site)
	if !ok {
		return nil, sites.Descriptor{}, fmt.Errorf("%w: %q", ErrUnsupportedSite, sites.NormalizeKey(site))
	}
	return scraper, descriptor, nil
}

func (d *Dispatcher) browser(site string, byCategory bool) (scrapers.CategoryBrowser, sites.Descriptor, error) {
	scraper, descriptor, err := d.resolve(defaultBrowseSite(site))
	if err != nil {
		return nil, sites.Descriptor{}, err
	}

	allowed := descriptor.Top100Available
	if byCategory {
		allowed = descriptor.Top100CategoryAvailable
	}
	browser, ok := scraper.(scrapers.CategoryBrowser)
	if !allowed || !ok {
		return nil, descriptor, fmt.Errorf("%s top 100: %w", descriptor.Key, scrapers.ErrNotSupported)
	}
	return browser, descriptor, nil
}

// run executes one scraper call inside an execution slot. Panics and errors
// outside the scraper taxonomy become *InternalError.
func (d *Dispatcher) run(ctx context.Context, op string, site string, call func(context.Context) (*scrapers.Result, error)) (result *scrapers.Result, err error) {
	select {
	case d.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, &InternalError{Op: op, Site: site, Message: "cancelled while waiting for a free slot", Err: ctx.Err()}
	}
	defer func() { <-d.slots }()

	defer func() {
		if recovered := recover(); recovered != nil {
			d.logger.Error("scraper panicked", "site", site, "op", op, "panic", recovered, "stack", string(debug.Stack()))
			result = nil
			err = &InternalError{Op: op, Site: site, Message: fmt.Sprint(recovered)}
		}
	}()

	result, err = call(ctx)
	switch {
	case err == nil && result == nil:
		d.logger.Error("scraper returned no result", "site", site, "op", op)
		return nil, &InternalError{Op: op, Site: site, Message: "scraper returned no result"}
	case err == nil:
		d.logger.Debug("scraper finished", "site", site, "op", op, "total", result.Total, "time", result.Time)
		return result, nil
	case errors.Is(err, scrapers.ErrUnavailable):
		d.logger.Warn("site unavailable", "site", site, "op", op, "error", err)
		return nil, err
	case errors.Is(err, scrapers.ErrNotSupported):
		return nil, err
	default:
		d.logger.Error("scraper failed", "site", site, "op", op, "error", err)
		return nil, &InternalError{Op: op, Site: site, Message: err.Error(), Err: err}
	}
}

func normalizePaging(page int, limit int, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit < 1 {
		limit = sites.DefaultLimit
	}
	return page, limit
}

func defaultBrowseSite(site string) string {
	if strings.TrimSpace(site) == "" {
		return DefaultBrowseSite
	}
	return site
}
