package models

import "time"

// NotAvailable is stored for fields that could not be scraped
const NotAvailable = "N/A"

// ListingColumns is the CSV header of the listings object, in column order
var ListingColumns = []string{
	"job_title", "location", "company", "url",
	"jobsite", "job_description", "search_term", "city_term",
}

// Listing represents one scraped job posting
type Listing struct {
	JobTitle       string `json:"job_title"`
	Location       string `json:"location"`
	Company        string `json:"company"`
	URL            string `json:"url"`
	Jobsite        string `json:"jobsite"`
	JobDescription string `json:"job_description"`
	SearchTerm     string `json:"search_term"`
	CityTerm       string `json:"city_term"`

	// Set by the cleaning pipeline, never persisted to CSV
	Label   int  `json:"-"`
	Cleaned bool `json:"-"`
}

// Record returns the listing as a CSV row matching ListingColumns
func (l Listing) Record() []string {
	return []string{
		l.JobTitle, l.Location, l.Company, l.URL,
		l.Jobsite, l.JobDescription, l.SearchTerm, l.CityTerm,
	}
}

// City maps a search-query city term to its class label
type City struct {
	Term    string `json:"term"`    // e.g. San+Francisco
	Label   int    `json:"label"`   // class index
	Display string `json:"display"` // e.g. San Francisco, CA
}

// DefaultCities is the label table used for training and serving
var DefaultCities = []City{
	{Term: "San+Francisco", Label: 0, Display: "San Francisco, CA"},
	{Term: "New+York", Label: 1, Display: "New York, NY"},
	{Term: "Chicago", Label: 2, Display: "Chicago, IL"},
	{Term: "Austin", Label: 3, Display: "Austin, TX"},
}

// CityScore is one entry of a ranked prediction
type CityScore struct {
	Label       int     `json:"label"`
	City        string  `json:"city"`
	Probability float64 `json:"probability"`
}

// ScrapeRun records a single scraper invocation
type ScrapeRun struct {
	ID         string     `json:"id"`
	Query      string     `json:"query"`
	City       string     `json:"city"`
	Daily      bool       `json:"daily"`
	Pages      int        `json:"pages"`
	Listings   int        `json:"listings"`
	TotalJobs  int        `json:"total_jobs"` // search count reported by the first page
	Status     string     `json:"status"` // running, done, failed
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"` // nullable while running
}

// TrainingRun records a train or cross-validation invocation
type TrainingRun struct {
	ID         int       `json:"id"`
	Kind       string    `json:"kind"` // train, cv
	Classifier string    `json:"classifier"`
	Vectorizer string    `json:"vectorizer"`
	Params     string    `json:"params"` // JSON string
	Documents  int       `json:"documents"`
	Folds      int       `json:"folds"`
	Accuracy   float64   `json:"accuracy"`
	CreatedAt  time.Time `json:"created_at"`
}
