package scrapers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	maxBodyBytes = 8 << 20
)

// ErrChallenge is returned when a site answers with a bot-challenge page
// instead of content. It always travels wrapped in ErrUnavailable.
var ErrChallenge = errors.New("bot challenge served")

var challengeMarkers = []string{
	"<title>just a moment...</title>",
	"cf-browser-verification",
	"challenge-platform",
	"cf_chl_opt",
	"ddos-guard",
}

type FetcherOptions struct {
	Client            *http.Client
	Timeout           time.Duration
	UserAgent         string
	Headers           map[string]string
	CookieJar         bool
	RequestsPerSecond float64
	Burst             int
}

// Fetcher loads HTML pages the way a browser would and hands back parsed
// documents. Any failure to obtain a usable page is reported as
// ErrUnavailable.
type Fetcher struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
	limiter   *rate.Limiter
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	if opts.CookieJar && client.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err == nil {
			withJar := *client
			withJar.Jar = jar
			client = &withJar
		}
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		headers:   opts.Headers,
		limiter:   limiter,
	}
}

// Paced returns a fetcher sharing f's client and cookies whose requests are
// limited to requestsPerSecond. A non-positive rate disables pacing.
func (f *Fetcher) Paced(requestsPerSecond float64, burst int) *Fetcher {
	paced := *f
	paced.limiter = nil
	if requestsPerSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		paced.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return &paced
}

// Document fetches endpoint and parses it.
func (f *Fetcher) Document(ctx context.Context, endpoint string) (*goquery.Document, error) {
	body, err := f.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", endpoint, err)
	}
	return doc, nil
}

func (f *Fetcher) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, Unavailable(endpoint, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for name, value := range f.headers {
		req.Header.Set(name, value)
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, Unavailable(endpoint, fmt.Errorf("request failed: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, Unavailable(endpoint, fmt.Errorf("unexpected status: %d", res.StatusCode))
	}

	reader, err := charset.NewReader(res.Body, res.Header.Get("Content-Type"))
	if err != nil {
		reader = res.Body
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes))
	if err != nil {
		return nil, Unavailable(endpoint, fmt.Errorf("read response body: %w", err))
	}

	if isChallenge(body) {
		return nil, Unavailable(endpoint, ErrChallenge)
	}

	return body, nil
}

func isChallenge(body []byte) bool {
	head := body
	if len(head) > 64<<10 {
		head = head[:64<<10]
	}
	lowered := bytes.ToLower(head)
	for _, marker := range challengeMarkers {
		if bytes.Contains(lowered, []byte(marker)) {
			return true
		}
	}
	return false
}
