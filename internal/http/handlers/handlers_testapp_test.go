package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/woztorrentz/torrent-api/internal/config"
	"github.com/woztorrentz/torrent-api/internal/database"
	"github.com/woztorrentz/torrent-api/internal/dispatch"
	apihttp "github.com/woztorrentz/torrent-api/internal/http"
	"github.com/woztorrentz/torrent-api/internal/repository"
	"github.com/woztorrentz/torrent-api/internal/scrapers"
	"github.com/woztorrentz/torrent-api/internal/sites"
)

type stubScraper struct {
	site   sites.Descriptor
	search func(query string, page int, limit int) (*scrapers.Result, error)
}

func (s *stubScraper) Key() string                       { return s.site.Key }
func (s *stubScraper) Name() string                      { return s.site.Name }
func (s *stubScraper) HealthCheck(context.Context) error { return nil }
func (s *stubScraper) Search(_ context.Context, query string, page int, limit int) (*scrapers.Result, error) {
	return s.search(query, page, limit)
}
func (s *stubScraper) Trending(context.Context, string, int, int) (*scrapers.Result, error) {
	return nil, scrapers.ErrNotSupported
}
func (s *stubScraper) Recent(context.Context, string, int, int) (*scrapers.Result, error) {
	return nil, scrapers.ErrNotSupported
}

type stubBrowser struct {
	stubScraper
	browse func(categoryID int, limit int) []scrapers.TorrentRecord
}

func (s *stubBrowser) Top100Movies(ctx context.Context, page int, limit int) (*scrapers.Result, error) {
	return s.Top100Category(ctx, 207, page, limit)
}

func (s *stubBrowser) Top100Category(_ context.Context, categoryID int, _ int, limit int) (*scrapers.Result, error) {
	return scrapers.NewResult(s.browse(categoryID, limit), limit, time.Now()), nil
}

type testApp struct {
	app    *fiber.App
	checks *repository.SiteCheckRepository
}

func record(name string, seeders int) scrapers.TorrentRecord {
	return scrapers.TorrentRecord{Name: name, Seeders: seeders, Uploader: scrapers.UnknownUploader, Hash: scrapers.PlaceholderHash}
}

// setupTestApp serves the default site table. piratebay answers searches
// and browses through browse, kickass is blocked and limetorrents fails.
func setupTestApp(t *testing.T, browse func(categoryID int, limit int) []scrapers.TorrentRecord) testApp {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.ApplyMigrations(db, database.MigrationsFS("")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	table, err := sites.Default()
	if err != nil {
		t.Fatalf("default sites: %v", err)
	}

	registry := scrapers.NewRegistry()
	mustRegister(t, registry, "piratebay", func(site sites.Descriptor) scrapers.Scraper {
		return &stubBrowser{
			stubScraper: stubScraper{site: site, search: func(query string, _ int, limit int) (*scrapers.Result, error) {
				return scrapers.NewResult([]scrapers.TorrentRecord{record(query+" 720p", 4), record(query+" 1080p", 9)}, limit, time.Now()), nil
			}},
			browse: browse,
		}
	})
	mustRegister(t, registry, "kickass", func(site sites.Descriptor) scrapers.Scraper {
		return &stubScraper{site: site, search: func(string, int, int) (*scrapers.Result, error) {
			return nil, scrapers.Unavailable(site.BaseURL, errors.New("unexpected status: 403"))
		}}
	})
	mustRegister(t, registry, "limetorrents", func(site sites.Descriptor) scrapers.Scraper {
		return &stubScraper{site: site, search: func(string, int, int) (*scrapers.Result, error) {
			return nil, errors.New("parse listing: broken markup")
		}}
	})
	if err := registry.Apply(table); err != nil {
		t.Fatalf("apply table: %v", err)
	}

	checks := repository.NewSiteCheckRepository(db)
	app := apihttp.NewServer(config.Config{AppName: "test-app"}, apihttp.Dependencies{
		DB:         db,
		Dispatcher: dispatch.New(registry, dispatch.Options{}),
		SiteChecks: checks,
		Version:    "test",
	})
	t.Cleanup(func() { _ = app.Shutdown() })

	return testApp{app: app, checks: checks}
}

func mustRegister(t *testing.T, registry *scrapers.Registry, key string, factory scrapers.Factory) {
	t.Helper()
	if err := registry.Register(key, factory); err != nil {
		t.Fatalf("register %s: %v", key, err)
	}
}

func doGet(t *testing.T, app *fiber.App, target string, out any) int {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), 5000)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("decode %s body %q: %v", target, string(body), err)
		}
	}
	return resp.StatusCode
}
