package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	pageLoadTimeout = 30 * time.Second
	userAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Fetcher retrieves and parses a web page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// FetchError reports a page that could not be retrieved. The scraper treats
// it as a missing page rather than a failed run.
type FetchError struct {
	URL        string
	StatusCode int
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// HTTPFetcher fetches pages with a colly collector, paced by a rate limiter
type HTTPFetcher struct {
	collector *colly.Collector
	limiter   *rate.Limiter
}

// NewHTTPFetcher allows one request per delay; a zero delay disables pacing.
// A nil client uses colly's default with pageLoadTimeout.
func NewHTTPFetcher(client *http.Client, delay time.Duration) *HTTPFetcher {
	c := colly.NewCollector(colly.AllowURLRevisit())
	c.UserAgent = userAgent
	if client != nil {
		c.SetClient(client)
	} else {
		c.SetRequestTimeout(pageLoadTimeout)
	}

	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &HTTPFetcher{collector: c, limiter: rate.NewLimiter(limit, 1)}
}

// Fetch waits for the limiter, then downloads and parses url. The request is
// bound to ctx, so a canceled scrape never waits for the client timeout.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	c := f.collector.Clone()
	colly.StdlibContext(ctx)(c)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	var body []byte
	var status int
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	err := c.Visit(url)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: status, Cause: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: url, Cause: err}
	}
	return doc, nil
}

// BrowserFetcher renders pages in headless Chrome for JavaScript-heavy results
type BrowserFetcher struct {
	ctx     context.Context
	cancel  context.CancelFunc
	limiter *rate.Limiter
}

// NewBrowserFetcher starts a browser bound to parent; Close releases it.
// Every Fetch opens a tab in that one browser.
func NewBrowserFetcher(parent context.Context, delay time.Duration, logger *zap.Logger) (*BrowserFetcher, error) {
	ctx, cancel := createBrowserContext(parent, logger)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &BrowserFetcher{ctx: ctx, cancel: cancel, limiter: rate.NewLimiter(limit, 1)}, nil
}

// Fetch navigates to url and parses the rendered document
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(f.ctx)
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, pageLoadTimeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{URL: url, Cause: err}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &FetchError{URL: url, Cause: err}
	}
	return doc, nil
}

// Close shuts the browser down
func (f *BrowserFetcher) Close() {
	f.cancel()
}

// createBrowserContext creates a new browser context with appropriate options
func createBrowserContext(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel2 := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...interface{}) {
		msg := fmt.Sprintf(format, v...)
		// cdproto lags behind Chrome; unknown event payloads are harmless
		if strings.Contains(msg, "could not unmarshal event") {
			return
		}
		logger.Debug("chromedp", zap.String("msg", msg))
	}))

	return ctx, func() {
		cancel2()
		cancel()
	}
}
