package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/khrees2412/jobhunter/internal/database"
	"github.com/khrees2412/jobhunter/internal/storage"
	"github.com/khrees2412/jobhunter/pkg/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const firstPage = `<html><body>
<div id="searchCount">Page 1 of 1,234 jobs</div>
<div class="row">
  <a data-tn-element="jobTitle" href="/viewjob?jk=1" title="Data Scientist, Senior">x</a>
  <span class="company">  <a data-tn-element="companyName">Acme,   Inc</a> </span>
  <span class="location">San Francisco, CA</span>
</div>
<div class="row">
  <a data-tn-element="jobTitle" href="/viewjob?jk=1" title="Data Scientist, Senior">x</a>
  <span class="company">Acme</span>
  <span class="location">San Francisco, CA</span>
</div>
<div class="row">
  <a data-tn-element="jobTitle" href="/viewjob?jk=2" title="Analyst">x</a>
  <span class="location">Oakland, CA</span>
</div>
<div class="pagination"><a href="/jobs?page=0">1</a><a href="/jobs?page=2">Next</a></div>
<span class="np">Next&nbsp;&raquo;</span>
</body></html>`

const secondPage = `<html><body>
<div class="row">
  <a data-tn-element="jobTitle" href="/viewjob?jk=3" title="BI Developer">x</a>
  <span class="company">
     Big
     Corp </span>
  <span class="location">Berkeley, CA</span>
</div>
<div class="pagination"><a href="/jobs?page=1">&laquo; Previous</a></div>
<span class="np">&laquo; Previous</span>
</body></html>`

const dailyPage = `<html><body>
<div class="row">
  <a data-tn-element="jobTitle" href="/viewjob?jk=1" title="Fresh">x</a>
  <span class="location">Austin, TX</span><span class="date">Just posted</span>
</div>
<div class="row">
  <a data-tn-element="jobTitle" href="/pagead/clk?jk=9" title="Sponsored">x</a>
  <span class="location">Austin, TX</span><span class="date">Today</span>
</div>
<div class="row">
  <a data-tn-element="jobTitle" href="/viewjob?jk=2" title="Old">x</a>
  <span class="location">Austin, TX</span><span class="date">3 days ago</span>
</div>
<div class="row">
  <a data-tn-element="jobTitle" href="/viewjob?jk=3" title="Also today">x</a>
  <span class="location">Austin, TX</span><span class="date">Today</span>
</div>
<div class="pagination"><a href="/jobs?page=2">Next</a></div>
<span class="np">Next &raquo;</span>
</body></html>`

const posting = `<html><head><style>.x{}</style><script>var a = 1;</script></head>
<body><h1>Data Scientist</h1>
<p>  Python and SQL  required   </p>

<p>Build models</p></body></html>`

func newIndeed(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/jobs":
			page, ok := results[r.URL.Query().Get("page")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, page)
		case "/viewjob":
			if r.URL.Query().Get("jk") == "3" {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, posting)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newSlowServer answers every request after delay, or when the client goes away
func newSlowServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		fmt.Fprint(w, firstPage)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// useTestDB points database.DB at a fresh sqlite file for the test
func useTestDB(t *testing.T) {
	t.Helper()
	db, err := database.Open(t.TempDir())
	require.NoError(t, err)
	oldDB := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = oldDB
		db.Close()
	})
}

func newTestScraper(baseURL string) *Scraper {
	return &Scraper{
		Fetcher: NewHTTPFetcher(nil, 0),
		Store:   storage.NewFSStore(afero.NewMemMapFs(), "/data"),
		Bucket:  "bucket",
		Key:     "indeed_data.csv",
		BaseURL: baseURL,
		Radius:  15,
		Limit:   50,
	}
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestSearchURL(t *testing.T) {
	s := newTestScraper("https://www.indeed.com/")
	assert.Equal(t,
		"https://www.indeed.com/jobs?q=Data+Scientist&l=New+York&radius=15&sort=date&limit=50",
		s.SearchURL("Data+Scientist", "New+York"))
}

func TestSearchURL_EscapesTerms(t *testing.T) {
	s := newTestScraper("https://www.indeed.com")
	tests := []struct {
		query, city string
		want        string
	}{
		{"Data Scientist", "Austin", "q=Data+Scientist&l=Austin&"},
		{"R&D+Engineer", "New+York", "q=R%26D+Engineer&l=New+York&"},
		{"C#", "St.+Louis", "q=C%23&l=St.+Louis&"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := s.SearchURL(tt.query, tt.city)
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestParseListing(t *testing.T) {
	doc := mustDoc(t, firstPage)
	rows := doc.Find("div.row")

	first := ParseListing(rows.Eq(0))
	assert.Equal(t, models.Listing{
		JobTitle: "Data Scientist Senior",
		Location: "San Francisco CA",
		Company:  "Acme Inc",
		URL:      "/viewjob?jk=1",
		Jobsite:  "Indeed",
	}, first)

	assert.Equal(t, "Acme", ParseListing(rows.Eq(1)).Company)
	assert.Equal(t, models.NotAvailable, ParseListing(rows.Eq(2)).Company)
	assert.Equal(t, "Big Corp", ParseListing(mustDoc(t, secondPage).Find("div.row")).Company)
}

func TestDescriptionText(t *testing.T) {
	assert.Equal(t, "Data Scientist\nPython and SQL\nrequired\nBuild models", DescriptionText(mustDoc(t, posting)))
}

func TestPagination(t *testing.T) {
	first := mustDoc(t, firstPage)
	assert.True(t, HasNextPage(first))
	assert.Equal(t, "https://www.indeed.com/jobs?page=2", NextURL(first, "https://www.indeed.com", "cur"))

	second := mustDoc(t, secondPage)
	assert.False(t, HasNextPage(second))

	single := mustDoc(t, `<html><body><div class="row"></div></body></html>`)
	assert.Equal(t, "cur", NextURL(single, "https://www.indeed.com", "cur"))
}

func TestGetNumberOfJobs(t *testing.T) {
	n, err := GetNumberOfJobs(mustDoc(t, firstPage))
	require.NoError(t, err)
	assert.Equal(t, 1234, n)

	_, err = GetNumberOfJobs(mustDoc(t, secondPage))
	assert.Error(t, err)
}

func TestScrape_FollowsPages(t *testing.T) {
	srv := newIndeed(t, map[string]string{"": firstPage, "2": secondPage})
	s := newTestScraper(srv.URL)
	var out bytes.Buffer
	s.Progress = NewSearchProgress(&out)

	run, err := s.Scrape(context.Background(), "Data+Scientist", "San+Francisco", false)
	require.NoError(t, err)
	assert.Equal(t, "done", run.Status)
	assert.Equal(t, 2, run.Pages)
	assert.Equal(t, 3, run.Listings)
	assert.Equal(t, 1234, run.TotalJobs)
	assert.NotEmpty(t, run.ID)
	assert.Contains(t, out.String(), "scraped 3 listings")

	listings, err := storage.ReadListings(context.Background(), s.Store, s.Bucket, s.Key)
	require.NoError(t, err)
	require.Len(t, listings, 3)

	assert.Equal(t, "/viewjob?jk=1", listings[0].URL)
	assert.Equal(t, "Data Scientist\nPython and SQL\nrequired\nBuild models", listings[0].JobDescription)
	assert.Equal(t, "Data+Scientist", listings[0].SearchTerm)
	assert.Equal(t, "San+Francisco", listings[0].CityTerm)
	assert.Equal(t, models.NotAvailable, listings[2].JobDescription)
}

func TestScrape_AppendsAndDedupesAcrossRuns(t *testing.T) {
	srv := newIndeed(t, map[string]string{"": secondPage})
	s := newTestScraper(srv.URL)

	_, err := s.Scrape(context.Background(), "Data+Analyst", "Chicago", false)
	require.NoError(t, err)
	_, err = s.Scrape(context.Background(), "Data+Analyst", "Chicago", false)
	require.NoError(t, err)

	listings, err := storage.ReadListings(context.Background(), s.Store, s.Bucket, s.Key)
	require.NoError(t, err)
	assert.Len(t, listings, 1)
}

func TestScrape_Daily(t *testing.T) {
	srv := newIndeed(t, map[string]string{"": dailyPage, "2": secondPage})
	s := newTestScraper(srv.URL)

	run, err := s.Scrape(context.Background(), "Data+Scientist", "Austin", true)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Pages)
	assert.Equal(t, 1, run.Listings)

	listings, err := storage.ReadListings(context.Background(), s.Store, s.Bucket, s.Key)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Fresh", listings[0].JobTitle)
}

func TestScrape_MissingResultsPage(t *testing.T) {
	srv := newIndeed(t, map[string]string{})
	s := newTestScraper(srv.URL)

	run, err := s.Scrape(context.Background(), "Data+Scientist", "Austin", false)
	require.NoError(t, err)
	assert.Equal(t, 0, run.Pages)
}

func TestScrape_Canceled(t *testing.T) {
	srv := newIndeed(t, map[string]string{"": firstPage})
	s := newTestScraper(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := s.Scrape(ctx, "Data+Scientist", "Austin", false)
	require.Error(t, err)
	assert.Equal(t, "failed", run.Status)
}

func TestScrape_DeadlineDuringFetch(t *testing.T) {
	srv := newSlowServer(t, 3*time.Second)
	s := newTestScraper(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	run, err := s.Scrape(ctx, "Data+Scientist", "Austin", false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "failed", run.Status)
	assert.Equal(t, 0, run.Pages)
}

func TestScrape_ReusesIndexedDescription(t *testing.T) {
	useTestDB(t)
	require.NoError(t, database.UpsertListing(&models.Listing{
		JobTitle: "BI Developer", URL: "/viewjob?jk=3", JobDescription: "indexed text",
		SearchTerm: "Data+Analyst", CityTerm: "Chicago",
	}, ""))

	var postings atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/viewjob" {
			postings.Add(1)
			fmt.Fprint(w, posting)
			return
		}
		fmt.Fprint(w, secondPage)
	}))
	defer srv.Close()

	s := newTestScraper(srv.URL)
	s.Index = true
	_, err := s.Scrape(context.Background(), "Data+Analyst", "Chicago", false)
	require.NoError(t, err)
	assert.Equal(t, int32(0), postings.Load())

	listings, err := storage.ReadListings(context.Background(), s.Store, s.Bucket, s.Key)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "indexed text", listings[0].JobDescription)
}

func TestRunAll_IndexesRuns(t *testing.T) {
	useTestDB(t)

	srv := newIndeed(t, map[string]string{"": secondPage})
	s := newTestScraper(srv.URL)
	s.Index = true

	runs, err := s.RunAll(context.Background(), []string{"Data+Scientist", "Data+Analyst"}, []string{"Austin", "Chicago"}, false)
	require.NoError(t, err)
	require.Len(t, runs, 4)
	assert.Equal(t, "Austin", runs[0].City)
	assert.Equal(t, "Data+Analyst", runs[1].Query)

	recent, err := database.GetRecentScrapeRuns(10)
	require.NoError(t, err)
	assert.Len(t, recent, 4)

	indexed, err := database.GetListingByURL("/viewjob?jk=3")
	require.NoError(t, err)
	require.NotNil(t, indexed)
	assert.Equal(t, "BI Developer", indexed.JobTitle)
}

func TestFetchError(t *testing.T) {
	srv := newIndeed(t, map[string]string{})
	_, err := NewHTTPFetcher(srv.Client(), 0).Fetch(context.Background(), srv.URL+"/missing")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestHTTPFetcher_DeadlineAbortsRequest(t *testing.T) {
	srv := newSlowServer(t, 3*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	doc, err := NewHTTPFetcher(nil, 0).Fetch(ctx, srv.URL+"/jobs")
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	var fetchErr *FetchError
	assert.False(t, errors.As(err, &fetchErr))
}

func TestNewBrowserFetcher_StartFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, err := NewBrowserFetcher(ctx, 0, zap.NewNop())
	assert.Error(t, err)
	assert.Nil(t, f)
}
