package kickass

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/woztorrentz/torrent-api/internal/namecleaner"
	"github.com/woztorrentz/torrent-api/internal/scrapers"
	"github.com/woztorrentz/torrent-api/internal/textnorm"
)

const (
	Key              = "kickass"
	canonicalBaseURL = "https://katcr.to"
	requestTimeout   = 10 * time.Second
	DefaultWorkers   = 10
)

type Options struct {
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
	// Workers bounds concurrent detail-page fetches.
	Workers int
	// DetailRequestsPerSecond paces detail-page fetches. Zero means unpaced.
	DetailRequestsPerSecond float64
}

type Scraper struct {
	baseURL string
	listing *scrapers.Fetcher
	detail  *scrapers.Fetcher
	workers int
	logger  *slog.Logger
}

type candidate struct {
	record    scrapers.TorrentRecord
	detailURL string
}

type resolution struct {
	index  int
	magnet string
}

func NewScraper() *Scraper {
	return NewScraperWithOptions(Options{})
}

func NewScraperWithOptions(opts Options) *Scraper {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = canonicalBaseURL
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}

	listing := scrapers.NewFetcher(scrapers.FetcherOptions{
		Client:    opts.Client,
		Timeout:   requestTimeout,
		CookieJar: true,
	})

	return &Scraper{
		baseURL: baseURL,
		listing: listing,
		detail:  listing.Paced(opts.DetailRequestsPerSecond, workers),
		workers: workers,
		logger:  logger.With("site", Key),
	}
}

func (s *Scraper) Key() string {
	return Key
}

func (s *Scraper) Name() string {
	return "Kickass"
}

func (s *Scraper) HealthCheck(ctx context.Context) error {
	_, err := s.listing.Document(ctx, s.baseURL+"/")
	return err
}

func (s *Scraper) Search(ctx context.Context, query string, page int, limit int) (*scrapers.Result, error) {
	started := time.Now()
	endpoint := fmt.Sprintf("%s/usearch/%s/%d/", s.baseURL, url.PathEscape(strings.TrimSpace(query)), page)

	doc, err := s.listing.Document(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	candidates := s.parseListing(doc)
	s.logger.Debug("listing parsed", "candidates", len(candidates))

	records := s.resolve(ctx, candidates, limit)
	return scrapers.NewResult(records, limit, started), nil
}

func (s *Scraper) Trending(context.Context, string, int, int) (*scrapers.Result, error) {
	return nil, scrapers.ErrNotSupported
}

func (s *Scraper) Recent(context.Context, string, int, int) (*scrapers.Result, error) {
	return nil, scrapers.ErrNotSupported
}

func (s *Scraper) parseListing(doc *goquery.Document) []candidate {
	rows := doc.Find("tr.odd, tr.even")
	if rows.Length() == 0 {
		rows = doc.Find("table.data > tbody > tr")
	}

	candidates := make([]candidate, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		item, ok := s.parseRow(row)
		if !ok {
			return
		}
		candidates = append(candidates, item)
	})

	return candidates
}

func (s *Scraper) parseRow(row *goquery.Selection) (candidate, bool) {
	if row.Find("th").Length() > 0 {
		return candidate{}, false
	}

	nameLink := row.Find("a.cellMainLink").First()
	if nameLink.Length() == 0 {
		return candidate{}, false
	}

	cells := row.Find("td")
	if cells.Length() < 6 {
		return candidate{}, false
	}

	seeders := scrapers.ParseCount(cells.Eq(4).Text())
	if seeders < 1 {
		return candidate{}, false
	}

	name := namecleaner.CleanConcatenated(textnorm.RepairEncoding(strings.TrimSpace(nameLink.Text())))
	if name == "" {
		return candidate{}, false
	}

	language := textnorm.DetectLanguage(name)
	if language != textnorm.English {
		return candidate{}, false
	}

	href, _ := nameLink.Attr("href")
	detailURL := scrapers.AbsoluteURL(s.baseURL, href)
	if detailURL == "" {
		return candidate{}, false
	}

	return candidate{
		detailURL: detailURL,
		record: scrapers.TorrentRecord{
			Name:     name,
			Size:     strings.TrimSpace(cells.Eq(1).Text()),
			Seeders:  seeders,
			Leechers: scrapers.ParseCount(cells.Eq(5).Text()),
			Uploader: scrapers.UnknownUploader,
			URL:      detailURL,
			Date:     strings.TrimSpace(cells.Eq(3).Text()),
			Language: language,
		},
	}, true
}

// resolve fetches detail pages concurrently and returns candidates whose
// magnet link was found, in completion order. Once limit records are
// collected the remaining fetches are cancelled.
func (s *Scraper) resolve(ctx context.Context, candidates []candidate, limit int) []scrapers.TorrentRecord {
	records := make([]scrapers.TorrentRecord, 0)
	if len(candidates) == 0 {
		return records
	}

	want := limit
	if want < 1 || want > len(candidates) {
		want = len(candidates)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)
	resolved := make(chan resolution)

	go func() {
		defer close(resolved)
		for index := range candidates {
			if groupCtx.Err() != nil {
				break
			}
			group.Go(func() error {
				magnet, err := s.detailMagnet(groupCtx, candidates[index].detailURL)
				if err != nil {
					s.logger.Debug("detail page skipped", "url", candidates[index].detailURL, "error", err)
					return nil
				}
				select {
				case resolved <- resolution{index: index, magnet: magnet}:
				case <-groupCtx.Done():
				}
				return nil
			})
		}
		_ = group.Wait()
	}()

	for item := range resolved {
		if len(records) >= want {
			continue
		}

		record := candidates[item.index].record
		hash, ok := scrapers.HashFromMagnet(item.magnet)
		if !ok {
			continue
		}
		record.Hash = hash
		record.Magnet = item.magnet
		if !scrapers.Keep(record) {
			continue
		}

		records = append(records, record)
		if len(records) >= want {
			cancel()
		}
	}

	return records
}

func (s *Scraper) detailMagnet(ctx context.Context, detailURL string) (string, error) {
	doc, err := s.detail.Document(ctx, detailURL)
	if err != nil {
		return "", err
	}

	if href, ok := doc.Find("a.kaGiantButton").First().Attr("href"); ok && strings.HasPrefix(strings.TrimSpace(href), "magnet:") {
		return strings.TrimSpace(href), nil
	}
	if href, ok := doc.Find(`a[href^="magnet:"]`).First().Attr("href"); ok {
		return strings.TrimSpace(href), nil
	}
	return "", fmt.Errorf("no magnet link on %s", detailURL)
}
