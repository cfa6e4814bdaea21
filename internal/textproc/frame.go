// Package textproc cleans and labels scraped listings and normalizes their text
// before vectorization.
package textproc

import (
	"strings"

	"github.com/khrees2412/jobhunter/pkg/models"
)

const (
	indeedFooter    = "Indeed - Cookies, Privacy and Terms"
	jobTypeMarker   = "Job Type:"
	salaryBoilerRef = "We know salary is a key component"
	forbiddenMarker = "403"
)

// CreateModelData runs the full cleaning chain: drop empty descriptions,
// dedupe, label, keep the first numCities classes and clean Indeed pages.
func CreateModelData(listings []models.Listing, cities []models.City, numCities int) []models.Listing {
	out := RemoveNull(listings)
	out = DedupeAnd403(out)
	out = CreateLabels(out, cities)
	out = FilterClasses(out, numCities)
	return CleanIndeedJobs(out)
}

// RemoveNull drops listings without a description
func RemoveNull(listings []models.Listing) []models.Listing {
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if strings.TrimSpace(l.JobDescription) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

// DedupeAnd403 drops repeated descriptions (first one wins) and pages that
// were served as 403 errors
func DedupeAnd403(listings []models.Listing) []models.Listing {
	seen := make(map[string]bool, len(listings))
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if seen[l.JobDescription] {
			continue
		}
		seen[l.JobDescription] = true
		if strings.Contains(l.JobDescription, forbiddenMarker) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// CreateLabels sets Label from CityTerm; unknown cities get -1
func CreateLabels(listings []models.Listing, cities []models.City) []models.Listing {
	labels := make(map[string]int, len(cities))
	for _, c := range cities {
		labels[c.Term] = c.Label
	}
	out := make([]models.Listing, len(listings))
	for i, l := range listings {
		label, ok := labels[l.CityTerm]
		if !ok {
			label = -1
		}
		l.Label = label
		out[i] = l
	}
	return out
}

// FilterClasses keeps listings with 0 <= Label < numCities
func FilterClasses(listings []models.Listing, numCities int) []models.Listing {
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if l.Label >= 0 && l.Label < numCities {
			out = append(out, l)
		}
	}
	return out
}

// CleanIndeedJobs extracts the posting text from pages hosted directly on
// Indeed: the longest line, cut before "Job Type:". Hosted pages that still
// carry the salary survey boilerplate are dropped. Rows that were not hosted
// on Indeed come first, cleaned rows are appended after them.
func CleanIndeedJobs(listings []models.Listing) []models.Listing {
	var plain, cleaned []models.Listing
	for _, l := range listings {
		if !strings.Contains(l.JobDescription, indeedFooter) {
			l.Cleaned = false
			plain = append(plain, l)
			continue
		}
		l.JobDescription = longestLine(l.JobDescription)
		if i := strings.Index(l.JobDescription, jobTypeMarker); i >= 0 {
			l.JobDescription = l.JobDescription[:i]
		}
		if strings.Contains(l.JobDescription, salaryBoilerRef) {
			continue
		}
		l.Cleaned = true
		cleaned = append(cleaned, l)
	}
	return append(plain, cleaned...)
}

// longestLine returns the first of the longest newline-separated lines
func longestLine(s string) string {
	best := ""
	for _, line := range strings.Split(s, "\n") {
		if len(line) > len(best) {
			best = line
		}
	}
	return best
}

// Descriptions returns the descriptions and labels of listings
func Descriptions(listings []models.Listing) ([]string, []int) {
	docs := make([]string, len(listings))
	labels := make([]int, len(listings))
	for i, l := range listings {
		docs[i] = l.JobDescription
		labels[i] = l.Label
	}
	return docs, labels
}
