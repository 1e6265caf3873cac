package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/woztorrentz/torrent-api/internal/scrapers"
	"github.com/woztorrentz/torrent-api/internal/sites"
)

type fakeScraper struct {
	site   sites.Descriptor
	search func(ctx context.Context, query string, page int, limit int) (*scrapers.Result, error)
}

func (f *fakeScraper) Key() string                       { return f.site.Key }
func (f *fakeScraper) Name() string                      { return f.site.Name }
func (f *fakeScraper) HealthCheck(context.Context) error { return nil }
func (f *fakeScraper) Search(ctx context.Context, query string, page int, limit int) (*scrapers.Result, error) {
	return f.search(ctx, query, page, limit)
}
func (f *fakeScraper) Trending(context.Context, string, int, int) (*scrapers.Result, error) {
	return nil, scrapers.ErrNotSupported
}
func (f *fakeScraper) Recent(context.Context, string, int, int) (*scrapers.Result, error) {
	return nil, scrapers.ErrNotSupported
}

type fakeBrowser struct {
	fakeScraper
	lastCategory int
}

func (f *fakeBrowser) Top100Movies(ctx context.Context, page int, limit int) (*scrapers.Result, error) {
	return f.Top100Category(ctx, 207, page, limit)
}

func (f *fakeBrowser) Top100Category(_ context.Context, categoryID int, _ int, limit int) (*scrapers.Result, error) {
	f.lastCategory = categoryID
	return scrapers.NewResult([]scrapers.TorrentRecord{{Name: "Movie", Seeders: 3}}, limit, time.Now()), nil
}

func okSearch(_ context.Context, query string, _ int, _ int) (*scrapers.Result, error) {
	return scrapers.NewResult([]scrapers.TorrentRecord{{Name: query, Seeders: 1}}, 0, time.Now()), nil
}

func newTestDispatcher(t *testing.T, maxConcurrent int, search func(context.Context, string, int, int) (*scrapers.Result, error)) (*Dispatcher, *atomic.Int32, *fakeBrowser) {
	t.Helper()

	var built atomic.Int32
	browser := &fakeBrowser{}

	registry := scrapers.NewRegistry()
	_ = registry.Register("piratebay", func(site sites.Descriptor) scrapers.Scraper {
		built.Add(1)
		browser.fakeScraper = fakeScraper{site: site, search: search}
		return browser
	})
	_ = registry.Register("kickass", func(site sites.Descriptor) scrapers.Scraper {
		return &fakeScraper{site: site, search: search}
	})

	err := registry.Apply([]sites.Descriptor{
		{
			Key:                     "piratebay",
			Name:                    "Pirate Bay",
			BaseURL:                 "https://pb.example",
			TrendingAvailable:       true,
			Top100Available:         true,
			Top100CategoryAvailable: true,
			Top100Categories:        map[string]int{"audio": 100, "hd_movies": 207},
			Limit:                   50,
		},
		{Key: "kickass", Name: "Kickass", BaseURL: "https://kat.example", Limit: 25},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	return New(registry, Options{MaxConcurrent: maxConcurrent}), &built, browser
}

func TestSearchUnknownSiteIsUnsupported(t *testing.T) {
	dispatcher, _, _ := newTestDispatcher(t, 4, okSearch)

	_, err := dispatcher.Search(context.Background(), "nyaa", "ubuntu", 1, 10)
	if !errors.Is(err, ErrUnsupportedSite) {
		t.Fatalf("expected ErrUnsupportedSite, got %v", err)
	}
	if errors.Is(err, scrapers.ErrUnavailable) {
		t.Fatalf("unsupported site must not be reported as unavailable")
	}
}

func TestSearchNormalizesInput(t *testing.T) {
	var gotPage, gotLimit int
	dispatcher, built, _ := newTestDispatcher(t, 4, func(ctx context.Context, query string, page int, limit int) (*scrapers.Result, error) {
		gotPage, gotLimit = page, limit
		return okSearch(ctx, query, page, limit)
	})

	response, err := dispatcher.Search(context.Background(), "  PirateBay ", "  ubuntu ", 0, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if gotPage != 1 || gotLimit != 50 {
		t.Fatalf("expected page 1 limit 50, got %d %d", gotPage, gotLimit)
	}
	if response.Site != "piratebay" || response.Query != "ubuntu" || response.Source != "Pirate Bay" || response.Total != 1 {
		t.Fatalf("unexpected response %#v", response)
	}

	if _, err := dispatcher.Search(context.Background(), "piratebay", "again", 1, 5); err != nil {
		t.Fatalf("second search: %v", err)
	}
	if built.Load() != 2 {
		t.Fatalf("expected a fresh scraper per call, built %d", built.Load())
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	dispatcher, _, _ := newTestDispatcher(t, 4, okSearch)
	if _, err := dispatcher.Search(context.Background(), "piratebay", "   ", 1, 10); !errors.Is(err, ErrQueryRequired) {
		t.Fatalf("expected ErrQueryRequired, got %v", err)
	}
}

func TestSearchErrorTaxonomy(t *testing.T) {
	unavailable := scrapers.Unavailable("https://pb.example", errors.New("timeout"))
	dispatcher, _, _ := newTestDispatcher(t, 4, func(context.Context, string, int, int) (*scrapers.Result, error) {
		return nil, unavailable
	})
	if _, err := dispatcher.Search(context.Background(), "piratebay", "x", 1, 10); !errors.Is(err, scrapers.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	cause := errors.New("selector exploded")
	dispatcher, _, _ = newTestDispatcher(t, 4, func(context.Context, string, int, int) (*scrapers.Result, error) {
		return nil, cause
	})
	_, err := dispatcher.Search(context.Background(), "piratebay", "x", 1, 10)
	var internal *InternalError
	if !errors.As(err, &internal) || !errors.Is(err, cause) {
		t.Fatalf("expected InternalError wrapping cause, got %v", err)
	}
	if internal.Site != "piratebay" || internal.Message != "selector exploded" {
		t.Fatalf("unexpected internal error %#v", internal)
	}

	dispatcher, _, _ = newTestDispatcher(t, 4, func(context.Context, string, int, int) (*scrapers.Result, error) {
		return nil, nil
	})
	if _, err := dispatcher.Search(context.Background(), "piratebay", "x", 1, 10); !errors.As(err, &internal) {
		t.Fatalf("expected InternalError for nil result, got %v", err)
	}
}

func TestPanicsBecomeInternalErrorsAndReleaseSlots(t *testing.T) {
	dispatcher, _, _ := newTestDispatcher(t, 1, func(_ context.Context, query string, _ int, _ int) (*scrapers.Result, error) {
		if query == "boom" {
			panic("index out of range")
		}
		return scrapers.NewResult(nil, 0, time.Now()), nil
	})

	_, err := dispatcher.Search(context.Background(), "piratebay", "boom", 1, 10)
	var internal *InternalError
	if !errors.As(err, &internal) || internal.Message != "index out of range" {
		t.Fatalf("expected InternalError from panic, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := dispatcher.Search(ctx, "piratebay", "fine", 1, 10); err != nil {
		t.Fatalf("expected slot to be released after panic, got %v", err)
	}
}

func TestConcurrentCallsAreBounded(t *testing.T) {
	var inFlight, peak atomic.Int32
	release := make(chan struct{})

	dispatcher, _, _ := newTestDispatcher(t, 2, func(_ context.Context, _ string, _ int, _ int) (*scrapers.Result, error) {
		current := inFlight.Add(1)
		for {
			previous := peak.Load()
			if current <= previous || peak.CompareAndSwap(previous, current) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		return scrapers.NewResult(nil, 0, time.Now()), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = dispatcher.Search(context.Background(), "kickass", "x", 1, 10)
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent calls, saw %d", peak.Load())
	}
}

func TestCapabilityGating(t *testing.T) {
	dispatcher, _, browser := newTestDispatcher(t, 4, okSearch)

	if _, err := dispatcher.Trending(context.Background(), "kickass", "", 1, 10); !errors.Is(err, scrapers.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported for disabled trending, got %v", err)
	}
	if _, err := dispatcher.Trending(context.Background(), "piratebay", "", 1, 10); !errors.Is(err, scrapers.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported from scraper, got %v", err)
	}
	if _, err := dispatcher.Recent(context.Background(), "piratebay", "", 1, 10); !errors.Is(err, scrapers.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported for recent, got %v", err)
	}
	if _, err := dispatcher.Top100Movies(context.Background(), "kickass", 1, 10); !errors.Is(err, scrapers.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported for kickass top 100, got %v", err)
	}

	response, err := dispatcher.Top100Category(context.Background(), "", "AUDIO", 0, 0)
	if err != nil {
		t.Fatalf("top100 category: %v", err)
	}
	if browser.lastCategory != 100 || response.CategoryID != 100 || response.Category != "audio" || response.Limit != DefaultBrowseLimit {
		t.Fatalf("unexpected response %#v (category %d)", response, browser.lastCategory)
	}

	if _, err := dispatcher.Top100Category(context.Background(), "piratebay", "anime", 1, 10); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}

	movies, err := dispatcher.Top100Movies(context.Background(), "", 1, 10)
	if err != nil || movies.Total != 1 || browser.lastCategory != 207 {
		t.Fatalf("unexpected top100 movies %#v err=%v", movies, err)
	}
}

func TestCategories(t *testing.T) {
	dispatcher, _, _ := newTestDispatcher(t, 4, okSearch)

	categories, descriptor, err := dispatcher.Categories("")
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if descriptor.Key != "piratebay" || len(categories) != 2 || categories[0].Value != "hd_movies" {
		t.Fatalf("unexpected categories %#v", categories)
	}

	if _, _, err := dispatcher.Categories("kickass"); !errors.Is(err, scrapers.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
	if _, _, err := dispatcher.Categories("nope"); !errors.Is(err, ErrUnsupportedSite) {
		t.Fatalf("expected ErrUnsupportedSite, got %v", err)
	}
}
