package limetorrents

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
	Key              = "limetorrents"
	canonicalBaseURL = "https://www.limetorrents.pro"
	requestTimeout   = 10 * time.Second
	DefaultCookie    = "fencekey=0e31613a539b90e445bbcecafaa5a273"
)

type Options struct {
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
	// Cookie is sent verbatim with every request.
	Cookie string
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

	cookie := strings.TrimSpace(opts.Cookie)
	if cookie == "" {
		cookie = DefaultCookie
	}

	return &Scraper{
		baseURL: baseURL,
		fetcher: scrapers.NewFetcher(scrapers.FetcherOptions{
			Client:  opts.Client,
			Timeout: requestTimeout,
			Headers: map[string]string{"Cookie": cookie},
		}),
		logger: logger.With("site", Key),
	}
}

func (s *Scraper) Key() string {
	return Key
}

func (s *Scraper) Name() string {
	return "Limetorrents"
}

func (s *Scraper) HealthCheck(ctx context.Context) error {
	_, err := s.fetcher.Document(ctx, s.baseURL+"/")
	return err
}

func (s *Scraper) Search(ctx context.Context, query string, page int, limit int) (*scrapers.Result, error) {
	started := time.Now()
	endpoint := fmt.Sprintf("%s/search/all/%s/seeds/%d/", s.baseURL, url.PathEscape(strings.TrimSpace(query)), page)

	doc, err := s.fetcher.Document(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	records := make([]scrapers.TorrentRecord, 0)
	doc.Find("table.table2 tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		record, ok := s.parseRow(row)
		if !ok {
			return true
		}
		records = append(records, record)
		return limit < 1 || len(records) < limit
	})

	return scrapers.NewResult(records, limit, started), nil
}

func (s *Scraper) Trending(context.Context, string, int, int) (*scrapers.Result, error) {
	return nil, scrapers.ErrNotSupported
}

func (s *Scraper) Recent(context.Context, string, int, int) (*scrapers.Result, error) {
	return nil, scrapers.ErrNotSupported
}

func (s *Scraper) parseRow(row *goquery.Selection) (scrapers.TorrentRecord, bool) {
	if row.Find("th").Length() > 0 {
		return scrapers.TorrentRecord{}, false
	}

	cells := row.Find("td")
	if cells.Length() < 6 {
		return scrapers.TorrentRecord{}, false
	}

	nameLink, detailHref := detailLink(cells.Eq(0))
	if nameLink == nil {
		return scrapers.TorrentRecord{}, false
	}

	name := titleFromHref(detailHref)
	if name == "" {
		name = strings.TrimSpace(nameLink.Text())
	}
	name = namecleaner.CleanConcatenated(textnorm.RepairEncoding(name))
	if name == "" {
		return scrapers.TorrentRecord{}, false
	}

	language := textnorm.DetectLanguage(name)
	if language != textnorm.English {
		return scrapers.TorrentRecord{}, false
	}

	seeders := scrapers.ParseCount(cells.Eq(3).Text())
	if seeders < 1 {
		return scrapers.TorrentRecord{}, false
	}

	hash, magnet := s.hashAndMagnet(row, name)

	record := scrapers.TorrentRecord{
		Name:     name,
		Size:     strings.TrimSpace(cells.Eq(2).Text()),
		Seeders:  seeders,
		Leechers: scrapers.ParseCount(cells.Eq(4).Text()),
		Uploader: scrapers.UnknownUploader,
		URL:      scrapers.AbsoluteURL(s.baseURL, detailHref),
		Date:     strings.TrimSpace(cells.Eq(1).Text()),
		Language: language,
		Hash:     hash,
		Magnet:   magnet,
	}
	if !scrapers.Keep(record) {
		s.logger.Debug("dropping malformed row", "name", name)
		return scrapers.TorrentRecord{}, false
	}
	return record, true
}

// detailLink picks the first anchor in the name cell that is not a download
// or magnet link, falling back to the first anchor.
func detailLink(cell *goquery.Selection) (*goquery.Selection, string) {
	anchors := cell.Find("a")
	if anchors.Length() == 0 {
		return nil, ""
	}

	var chosen *goquery.Selection
	anchors.EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		href, _ := anchor.Attr("href")
		lowered := strings.ToLower(href)
		if strings.Contains(lowered, ".torrent") || strings.Contains(lowered, "download") || strings.Contains(lowered, "magnet:") {
			return true
		}
		chosen = anchor
		return false
	})

	if chosen == nil {
		chosen = anchors.First()
	}
	href, _ := chosen.Attr("href")
	return chosen, strings.TrimSpace(href)
}

func titleFromHref(href string) string {
	if !strings.Contains(href, "title=") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	title := parsed.Query().Get("title")
	title = strings.NewReplacer("-", " ", "_", " ").Replace(title)
	return textnorm.CollapseWhitespace(title)
}

// hashAndMagnet prefers a magnet anchor, then a 40-hex hash embedded in a
// torrent cache link, then the zero placeholder.
func (s *Scraper) hashAndMagnet(row *goquery.Selection, name string) (string, string) {
	hash := ""
	magnet := ""

	row.Find("a").EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		href := strings.TrimSpace(anchor.AttrOr("href", ""))
		lowered := strings.ToLower(href)

		switch {
		case strings.HasPrefix(lowered, "magnet:"):
			if found, ok := scrapers.HashFromMagnet(href); ok {
				hash = found
				magnet = href
				return false
			}
		case strings.Contains(lowered, "itorrents.org") || strings.Contains(lowered, ".torrent"):
			if found, ok := scrapers.HashFromLink(href); ok {
				hash = found
				magnet = scrapers.MagnetFor(found, name)
				return false
			}
		}
		return true
	})

	if hash == "" {
		hash = scrapers.PlaceholderHash
		magnet = scrapers.MagnetFor(hash, name)
	}
	return hash, magnet
}
