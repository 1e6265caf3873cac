package piratebay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/woztorrentz/torrent-api/internal/namecleaner"
	"github.com/woztorrentz/torrent-api/internal/scrapers"
	"github.com/woztorrentz/torrent-api/internal/textnorm"
)

const (
	Key                = "piratebay"
	canonicalBaseURL   = "https://thehiddenbay.com"
	requestTimeout     = 15 * time.Second
	hdMoviesCategoryID = 207
	maxBrowsePages     = 10
)

type Options struct {
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
}

type Scraper struct {
	baseURL string
	fetcher *scrapers.Fetcher
	logger  *slog.Logger
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

	return &Scraper{
		baseURL: baseURL,
		fetcher: scrapers.NewFetcher(scrapers.FetcherOptions{
			Client:  opts.Client,
			Timeout: requestTimeout,
		}),
		logger: logger.With("site", Key),
	}
}

func (s *Scraper) Key() string {
	return Key
}

func (s *Scraper) Name() string {
	return "Pirate Bay"
}

func (s *Scraper) HealthCheck(ctx context.Context) error {
	_, err := s.fetcher.Document(ctx, s.baseURL+"/")
	return err
}

func (s *Scraper) Search(ctx context.Context, query string, page int, limit int) (*scrapers.Result, error) {
	started := time.Now()
	endpoint := fmt.Sprintf("%s/search/%s/%d/99/0", s.baseURL, url.PathEscape(strings.TrimSpace(query)), page)

	doc, err := s.fetcher.Document(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	return scrapers.NewResult(s.parseListing(doc), limit, started), nil
}

func (s *Scraper) Trending(context.Context, string, int, int) (*scrapers.Result, error) {
	return nil, scrapers.ErrNotSupported
}

func (s *Scraper) Recent(context.Context, string, int, int) (*scrapers.Result, error) {
	return nil, scrapers.ErrNotSupported
}

func (s *Scraper) Top100Movies(ctx context.Context, page int, limit int) (*scrapers.Result, error) {
	return s.browse(ctx, hdMoviesCategoryID, page, limit)
}

func (s *Scraper) Top100Category(ctx context.Context, categoryID int, page int, limit int) (*scrapers.Result, error) {
	return s.browse(ctx, categoryID, page, limit)
}

// browse walks listing pages sorted by seeders starting at page. It stops
// once limit records are collected, when a page adds nothing new, or after
// maxBrowsePages pages. Only a failure on the first page is an error.
func (s *Scraper) browse(ctx context.Context, categoryID int, page int, limit int) (*scrapers.Result, error) {
	started := time.Now()
	seen := map[string]struct{}{}
	records := make([]scrapers.TorrentRecord, 0)

	for current := page; current < page+maxBrowsePages; current++ {
		endpoint := fmt.Sprintf("%s/browse/%d/%d/7/0", s.baseURL, categoryID, current)

		doc, err := s.fetcher.Document(ctx, endpoint)
		if err != nil {
			if current == page {
				return nil, err
			}
			s.logger.Warn("browse page failed, returning partial results", "page", current, "error", err)
			break
		}

		added := 0
		for _, record := range s.parseListing(doc) {
			hashKey := strings.ToLower(record.Hash)
			if _, exists := seen[hashKey]; exists {
				continue
			}
			seen[hashKey] = struct{}{}
			records = append(records, record)
			added++
		}

		if added == 0 || len(records) >= limit {
			break
		}
	}

	return scrapers.NewResult(records, limit, started), nil
}

func (s *Scraper) parseListing(doc *goquery.Document) []scrapers.TorrentRecord {
	records := make([]scrapers.TorrentRecord, 0)

	doc.Find("table#searchResult tr").Each(func(_ int, row *goquery.Selection) {
		record, ok := s.parseRow(row)
		if !ok {
			return
		}
		records = append(records, record)
	})

	return records
}

func (s *Scraper) parseRow(row *goquery.Selection) (scrapers.TorrentRecord, bool) {
	if row.Find("th").Length() > 0 {
		return scrapers.TorrentRecord{}, false
	}

	desc := row.Find("font.detDesc").First()
	if desc.Length() == 0 {
		return scrapers.TorrentRecord{}, false
	}
	date, size, uploader, ok := parseDescription(desc.Text())
	if !ok {
		return scrapers.TorrentRecord{}, false
	}

	magnet, _ := row.Find("td div.detName + a").First().Attr("href")
	hash, ok := scrapers.HashFromMagnet(magnet)
	if !ok {
		return scrapers.TorrentRecord{}, false
	}

	nameLink := row.Find("a.detLink").First()
	if nameLink.Length() == 0 {
		return scrapers.TorrentRecord{}, false
	}
	name := namecleaner.CleanConcatenated(strings.TrimSpace(nameLink.Text()))
	if name == "" {
		return scrapers.TorrentRecord{}, false
	}

	language := textnorm.DetectLanguage(name)
	if language != textnorm.English {
		return scrapers.TorrentRecord{}, false
	}

	cells := row.Find("td")
	if cells.Length() < 2 {
		return scrapers.TorrentRecord{}, false
	}
	seeders := scrapers.ParseCount(cells.Eq(cells.Length() - 2).Text())
	leechers := scrapers.ParseCount(cells.Eq(cells.Length() - 1).Text())
	if seeders < 1 {
		return scrapers.TorrentRecord{}, false
	}

	href, _ := nameLink.Attr("href")

	record := scrapers.TorrentRecord{
		Name:     name,
		Size:     size,
		Seeders:  seeders,
		Leechers: leechers,
		Uploader: uploader,
		URL:      scrapers.AbsoluteURL(s.baseURL, href),
		Date:     date,
		Language: language,
		Hash:     hash,
		Magnet:   strings.TrimSpace(magnet),
	}
	if !scrapers.Keep(record) {
		s.logger.Debug("dropping malformed row", "name", name)
		return scrapers.TorrentRecord{}, false
	}
	return record, true
}

// parseDescription splits "Uploaded 04-07 2023, Size 1.23 GiB, ULed by someone".
func parseDescription(raw string) (date string, size string, uploader string, ok bool) {
	text := strings.ReplaceAll(raw, "\u00a0", " ")
	parts := strings.Split(text, ",")
	if len(parts) < 3 {
		return "", "", "", false
	}

	date = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[0]), "Uploaded"))
	size = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[1]), "Size"))

	uploader = strings.TrimSpace(parts[2])
	uploader = strings.TrimPrefix(uploader, "ULed")
	uploader = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(uploader), "by"))
	if uploader == "" {
		uploader = scrapers.UnknownUploader
	}

	return date, size, uploader, true
}
