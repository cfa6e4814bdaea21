package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/khrees2412/jobhunter/internal/database"
	"github.com/khrees2412/jobhunter/internal/storage"
	"github.com/khrees2412/jobhunter/pkg/models"
	"go.uber.org/zap"
)

const jobsite = "Indeed"

// SearchProgress provides feedback during a scrape
type SearchProgress struct {
	mu       sync.Mutex
	out      io.Writer
	current  string
	listings int
}

// NewSearchProgress writes progress lines to out; a nil out discards them
func NewSearchProgress(out io.Writer) *SearchProgress {
	if out == nil {
		out = io.Discard
	}
	return &SearchProgress{out: out}
}

func (p *SearchProgress) SetSearch(query, city string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = fmt.Sprintf("%s in %s", query, city)
	p.listings = 0
	fmt.Fprintf(p.out, "\r\033[K⏳ Scraping %s...", p.current)
}

func (p *SearchProgress) Page(page, listings int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listings += listings
	fmt.Fprintf(p.out, "\r\033[K⏳ %s: page %d, %d listings...", p.current, page, p.listings)
}

func (p *SearchProgress) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\r\033[K✓ %s: scraped %d listings\n", p.current, p.listings)
}

func (p *SearchProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\r\033[K✗ %s: %v\n", p.current, err)
}

// Scraper walks Indeed search results and stores the listings it finds
type Scraper struct {
	Fetcher  Fetcher
	Store    storage.Store
	Bucket   string
	Key      string
	BaseURL  string
	Radius   int
	Limit    int
	Index    bool // mirror listings and runs into the sqlite database
	Logger   *zap.Logger
	Progress *SearchProgress
}

// SearchURL builds the date-sorted results URL for a query and city term.
// A "+" in a term is kept as the word separator.
func (s *Scraper) SearchURL(query, city string) string {
	return fmt.Sprintf("%s/jobs?q=%s&l=%s&radius=%d&sort=date&limit=%d",
		strings.TrimRight(s.BaseURL, "/"), escapeTerm(query), escapeTerm(city), s.Radius, s.Limit)
}

func escapeTerm(term string) string {
	words := strings.Split(term, "+")
	for i, w := range words {
		words[i] = url.QueryEscape(w)
	}
	return strings.Join(words, "+")
}

// RunAll scrapes every city and query combination in turn
func (s *Scraper) RunAll(ctx context.Context, queries, cities []string, daily bool) ([]*models.ScrapeRun, error) {
	var runs []*models.ScrapeRun
	for _, city := range cities {
		for _, query := range queries {
			run, err := s.Scrape(ctx, query, city, daily)
			if run != nil {
				runs = append(runs, run)
			}
			if err != nil {
				return runs, err
			}
		}
	}
	return runs, nil
}

// Scrape follows the result pages of one search until there is no next page,
// or, in daily mode, until a listing was not posted today. The listings
// object is rewritten after every page.
func (s *Scraper) Scrape(ctx context.Context, query, city string, daily bool) (*models.ScrapeRun, error) {
	logger := s.logger().With(zap.String("query", query), zap.String("city", city), zap.Bool("daily", daily))
	progress := s.progress()
	progress.SetSearch(query, city)

	run := &models.ScrapeRun{ID: uuid.NewString(), Query: query, City: city, Daily: daily}
	if s.Index {
		if err := database.CreateScrapeRun(run); err != nil {
			return nil, fmt.Errorf("failed to record scrape run: %w", err)
		}
	}

	err := s.scrape(ctx, run, logger, progress)
	run.Status = "done"
	if err != nil {
		run.Status = "failed"
		progress.Error(err)
	} else {
		progress.Complete()
	}
	if s.Index {
		if ferr := database.FinishScrapeRun(run); ferr != nil && err == nil {
			err = fmt.Errorf("failed to finish scrape run: %w", ferr)
		}
	}
	logger.Info("scrape finished", zap.String("status", run.Status),
		zap.Int("pages", run.Pages), zap.Int("listings", run.Listings))
	return run, err
}

func (s *Scraper) scrape(ctx context.Context, run *models.ScrapeRun, logger *zap.Logger, progress *SearchProgress) error {
	data, err := storage.ReadListings(ctx, s.Store, s.Bucket, s.Key)
	if err != nil {
		return fmt.Errorf("failed to load listings: %w", err)
	}

	pageURL := s.SearchURL(run.Query, run.City)
	for {
		doc, err := s.fetch(ctx, pageURL, logger)
		if err != nil {
			return err
		}
		if doc == nil {
			logger.Warn("results page unavailable, stopping", zap.String("url", pageURL))
			return nil
		}

		if run.Pages == 0 {
			if total, err := GetNumberOfJobs(doc); err == nil {
				run.TotalJobs = total
				logger.Info("search results", zap.Int("total_jobs", total))
			}
		}

		more := HasNextPage(doc)
		page, stop, err := s.parsePage(ctx, doc, run, logger)
		if err != nil {
			return err
		}
		if stop {
			more = false
		}

		data = append(data, page...)
		if data, err = storage.WriteListings(ctx, s.Store, s.Bucket, s.Key, data); err != nil {
			return fmt.Errorf("failed to save listings: %w", err)
		}
		if s.Index {
			for i := range page {
				if err := database.UpsertListing(&page[i], run.ID); err != nil {
					return fmt.Errorf("failed to index listing: %w", err)
				}
			}
		}
		run.Pages++
		run.Listings += len(page)
		progress.Page(run.Pages, len(page))
		logger.Debug("page scraped", zap.Int("page", run.Pages), zap.Int("listings", len(page)))

		if !more {
			return nil
		}
		pageURL = NextURL(doc, s.BaseURL, pageURL)
	}
}

// parsePage extracts the listings of one results page. stop is set in daily
// mode once a listing older than today is reached.
func (s *Scraper) parsePage(ctx context.Context, doc *goquery.Document, run *models.ScrapeRun, logger *zap.Logger) (page []models.Listing, stop bool, err error) {
	seen := map[string]bool{}
	doc.Find("div.row").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		href, ok := div.Find(`a[data-tn-element="jobTitle"]`).First().Attr("href")
		if !ok || seen[href] {
			return true
		}
		if run.Daily {
			if strings.Contains(href, "pagead") {
				return true
			}
			if !PostedToday(div) {
				stop = true
				return false
			}
		}

		listing := ParseListing(div)
		listing.SearchTerm = run.Query
		listing.CityTerm = run.City
		listing.JobDescription, err = s.description(ctx, href, logger)
		if err != nil {
			return false
		}
		seen[href] = true
		page = append(page, listing)
		return true
	})
	return page, stop, err
}

// description fetches the posting page behind href and returns its text.
// With Index set, a description already in the database is reused.
func (s *Scraper) description(ctx context.Context, href string, logger *zap.Logger) (string, error) {
	if s.Index {
		indexed, err := database.GetListingByURL(href)
		if err != nil {
			return "", fmt.Errorf("failed to look up listing: %w", err)
		}
		if indexed != nil && indexed.JobDescription != "" && indexed.JobDescription != models.NotAvailable {
			logger.Debug("description already indexed", zap.String("url", href))
			return indexed.JobDescription, nil
		}
	}
	doc, err := s.fetch(ctx, strings.TrimRight(s.BaseURL, "/")+href, logger)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return models.NotAvailable, nil
	}
	return DescriptionText(doc), nil
}

// fetch turns a FetchError into a nil document; anything else aborts the run
func (s *Scraper) fetch(ctx context.Context, rawURL string, logger *zap.Logger) (*goquery.Document, error) {
	doc, err := s.Fetcher.Fetch(ctx, rawURL)
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		logger.Debug("page unavailable", zap.String("url", rawURL), zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Scraper) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Scraper) progress() *SearchProgress {
	if s.Progress == nil {
		s.Progress = NewSearchProgress(nil)
	}
	return s.Progress
}

// ParseListing reads title, location, company and URL from a result row
func ParseListing(div *goquery.Selection) models.Listing {
	title := div.Find(`a[data-tn-element="jobTitle"]`).First()
	href, _ := title.Attr("href")
	name, _ := title.Attr("title")

	return models.Listing{
		JobTitle: strings.ReplaceAll(name, ",", ""),
		Location: strings.ReplaceAll(div.Find("span.location").First().Text(), ",", ""),
		Company:  companyName(div),
		URL:      href,
		Jobsite:  jobsite,
	}
}

func companyName(div *goquery.Selection) string {
	company := div.Find("span.company").First()
	if company.Length() == 0 {
		return models.NotAvailable
	}
	text := company.Text()
	if a := div.Find(`a[data-tn-element="companyName"]`).First(); a.Length() > 0 {
		text = a.Text()
	}
	return strings.ReplaceAll(strings.Join(strings.Fields(text), " "), ",", "")
}

// PostedToday reports whether the row's date label is Today or Just posted
func PostedToday(div *goquery.Selection) bool {
	date := div.Find("span.date").First().Text()
	return date == "Today" || date == "Just posted"
}

// DescriptionText flattens a posting page into one phrase per line
func DescriptionText(doc *goquery.Document) string {
	doc.Find("script, style").Remove()

	var chunks []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				chunks = append(chunks, phrase)
			}
		}
	}
	return strings.Join(chunks, "\n")
}

// HasNextPage reports whether any pagination label reads Next
func HasNextPage(doc *goquery.Document) bool {
	found := false
	doc.Find("span.np").EachWithBreak(func(_ int, np *goquery.Selection) bool {
		found = strings.Contains(np.Text(), "Next")
		return !found
	})
	return found
}

// NextURL returns the target of the last pagination link, or current when
// the page has no pagination
func NextURL(doc *goquery.Document, baseURL, current string) string {
	href, ok := doc.Find("div.pagination").First().Find("a").Last().Attr("href")
	if !ok {
		return current
	}
	if u, err := url.Parse(href); err == nil && u.IsAbs() {
		return href
	}
	return strings.TrimRight(baseURL, "/") + href
}

// GetNumberOfJobs parses the total from a search count such as
// "Page 1 of 1,234 jobs"
func GetNumberOfJobs(doc *goquery.Document) (int, error) {
	fields := strings.Fields(doc.Find("div#searchCount").First().Text())
	if len(fields) < 2 {
		return 0, errors.New("search count not found")
	}
	n, err := strconv.Atoi(strings.ReplaceAll(fields[len(fields)-2], ",", ""))
	if err != nil {
		return 0, fmt.Errorf("failed to parse search count: %w", err)
	}
	return n, nil
}
