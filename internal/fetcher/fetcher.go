package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/mfenderov/pic-harvest/internal/failure"
)

// Config holds page fetcher configuration.
type Config struct {
	UserAgent string        // empty keeps the collector default
	Timeout   time.Duration // zero keeps the collector default
	Transport http.RoundTripper
}

// Page is a fetched HTML page decoded as text.
type Page struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        string
	FetchedAt   time.Time
}

// Fetcher performs a single GET for a page.
type Fetcher struct {
	config Config
}

// New creates a new Fetcher with the given configuration.
func New(config Config) *Fetcher {
	return &Fetcher{config: config}
}

// Fetch downloads pageURL once and returns its body as text. Links are not
// followed and the request is never retried.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, failure.New(failure.KindParse, "parse page url", pageURL, err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return nil, failure.New(failure.KindParse, "parse page url", pageURL, errors.New("URL must be absolute with a host"))
	}

	slog.Debug("fetching page", "url", pageURL)

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.MaxBodySize(0),
		colly.DetectCharset(),
		colly.StdlibContext(ctx),
	)
	// Status codes are checked below, any 2xx page is accepted
	c.ParseHTTPErrorResponse = true
	if f.config.UserAgent != "" {
		c.UserAgent = f.config.UserAgent
	}
	if f.config.Timeout > 0 {
		c.SetRequestTimeout(f.config.Timeout)
	}
	if f.config.Transport != nil {
		c.WithTransport(f.config.Transport)
	}

	// Check for cancellation before the request goes out
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			slog.Debug("fetch cancelled", "url", r.URL.String())
			r.Abort()
		}
	})

	var page *Page
	c.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:         pageURL,
			FinalURL:    r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        strings.ToValidUTF8(string(r.Body), "�"),
			FetchedAt:   time.Now(),
		}
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, failure.New(failure.KindNetwork, "fetch page", pageURL, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, failure.New(failure.KindNetwork, "fetch page", pageURL, err)
	}
	if page == nil {
		return nil, failure.New(failure.KindNetwork, "fetch page", pageURL, fmt.Errorf("no response received"))
	}
	if page.StatusCode < 200 || page.StatusCode > 299 {
		return nil, failure.New(failure.KindNetwork, "fetch page", pageURL, fmt.Errorf("invalid status %d", page.StatusCode))
	}

	slog.Debug("fetched page", "url", pageURL, "status", page.StatusCode, "content_type", page.ContentType, "size", len(page.Body))
	return page, nil
}
