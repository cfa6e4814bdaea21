package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"

	"github.com/khrees2412/jobhunter/pkg/models"
)

// ReadListings loads the listings CSV object. A missing object yields an
// empty slice so a first scrape starts from a fresh table.
func ReadListings(ctx context.Context, store Store, bucket, key string) ([]models.Listing, error) {
	data, err := store.Get(ctx, bucket, key)
	if errors.Is(err, ErrNotExist) {
		return []models.Listing{}, nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeListings(data)
}

// WriteListings drops duplicate URLs (first one wins) and writes the CSV object
func WriteListings(ctx context.Context, store Store, bucket, key string, listings []models.Listing) ([]models.Listing, error) {
	deduped := DedupeURLs(listings)
	data, err := EncodeListings(deduped)
	if err != nil {
		return nil, err
	}
	if err := store.Put(ctx, bucket, key, data); err != nil {
		return nil, err
	}
	return deduped, nil
}

// DedupeURLs removes listings whose URL was already seen
func DedupeURLs(listings []models.Listing) []models.Listing {
	seen := make(map[string]bool, len(listings))
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if seen[l.URL] {
			continue
		}
		seen[l.URL] = true
		out = append(out, l)
	}
	return out
}

// EncodeListings renders listings as CSV with a header row
func EncodeListings(listings []models.Listing) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(models.ListingColumns); err != nil {
		return nil, err
	}
	for _, l := range listings {
		if err := w.Write(l.Record()); err != nil {
			return nil, fmt.Errorf("encode listing %s: %w", l.URL, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeListings parses a listings CSV. Columns are matched by header name,
// so older files missing a column still load.
func DecodeListings(data []byte) ([]models.Listing, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse listings csv: %w", err)
	}
	if len(rows) == 0 {
		return []models.Listing{}, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[name] = i
	}
	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	listings := make([]models.Listing, 0, len(rows)-1)
	for _, row := range rows[1:] {
		listings = append(listings, models.Listing{
			JobTitle:       field(row, "job_title"),
			Location:       field(row, "location"),
			Company:        field(row, "company"),
			URL:            field(row, "url"),
			Jobsite:        field(row, "jobsite"),
			JobDescription: field(row, "job_description"),
			SearchTerm:     field(row, "search_term"),
			CityTerm:       field(row, "city_term"),
		})
	}
	return listings, nil
}
