package database

import (
	"database/sql"
	"time"

	"github.com/khrees2412/jobhunter/pkg/models"
)

// Listing operations

// UpsertListing inserts a listing, or refreshes it when the URL is already indexed
func UpsertListing(l *models.Listing, runID string) error {
	query := `INSERT INTO listings (job_title, location, company, url, jobsite, job_description,
			  search_term, city_term, scrape_run_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(url) DO UPDATE SET job_title=excluded.job_title, location=excluded.location,
			  company=excluded.company, job_description=excluded.job_description,
			  search_term=excluded.search_term, city_term=excluded.city_term,
			  scrape_run_id=excluded.scrape_run_id, scraped_at=CURRENT_TIMESTAMP`
	_, err := DB.Exec(query, l.JobTitle, l.Location, l.Company, l.URL, l.Jobsite,
		l.JobDescription, l.SearchTerm, l.CityTerm, nullString(runID))
	return err
}

// GetListingByURL returns the indexed listing for url, or nil when there is none
func GetListingByURL(url string) (*models.Listing, error) {
	query := `SELECT job_title, location, company, url, jobsite, job_description,
			  search_term, city_term FROM listings WHERE url=?`
	l := &models.Listing{}
	err := DB.QueryRow(query, url).Scan(&l.JobTitle, &l.Location, &l.Company, &l.URL,
		&l.Jobsite, &l.JobDescription, &l.SearchTerm, &l.CityTerm)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

// CountListingsByCity returns the number of indexed listings per city term
func CountListingsByCity() (map[string]int, error) {
	rows, err := DB.Query(`SELECT city_term, COUNT(*) FROM listings GROUP BY city_term`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var city sql.NullString
		var n int
		if err := rows.Scan(&city, &n); err != nil {
			return nil, err
		}
		counts[city.String] += n
	}
	return counts, rows.Err()
}

// Scrape run operations

func CreateScrapeRun(run *models.ScrapeRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = "running"
	}
	query := `INSERT INTO scrape_runs (id, query, city, daily, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := DB.Exec(query, run.ID, run.Query, run.City, run.Daily, run.Status, run.StartedAt)
	return err
}

func FinishScrapeRun(run *models.ScrapeRun) error {
	now := time.Now()
	run.FinishedAt = &now
	query := `UPDATE scrape_runs SET pages=?, listings=?, total_jobs=?, status=?, finished_at=? WHERE id=?`
	_, err := DB.Exec(query, run.Pages, run.Listings, run.TotalJobs, run.Status, now, run.ID)
	return err
}

func GetRecentScrapeRuns(limit int) ([]*models.ScrapeRun, error) {
	query := `SELECT id, query, city, daily, pages, listings, total_jobs, status, started_at, finished_at
			  FROM scrape_runs ORDER BY started_at DESC LIMIT ?`
	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*models.ScrapeRun{}
	for rows.Next() {
		run := &models.ScrapeRun{}
		var finished sql.NullTime
		err := rows.Scan(&run.ID, &run.Query, &run.City, &run.Daily, &run.Pages,
			&run.Listings, &run.TotalJobs, &run.Status, &run.StartedAt, &finished)
		if err != nil {
			return nil, err
		}
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Training run operations

func CreateTrainingRun(run *models.TrainingRun) error {
	query := `INSERT INTO training_runs (kind, classifier, vectorizer, params, documents, folds, accuracy)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := DB.Exec(query, run.Kind, run.Classifier, run.Vectorizer, run.Params,
		run.Documents, run.Folds, run.Accuracy)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	run.ID = int(id)
	return nil
}

func GetRecentTrainingRuns(limit int) ([]*models.TrainingRun, error) {
	query := `SELECT id, kind, classifier, vectorizer, params, documents, folds, accuracy, created_at
			  FROM training_runs ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*models.TrainingRun{}
	for rows.Next() {
		run := &models.TrainingRun{}
		var params sql.NullString
		err := rows.Scan(&run.ID, &run.Kind, &run.Classifier, &run.Vectorizer, &params,
			&run.Documents, &run.Folds, &run.Accuracy, &run.CreatedAt)
		if err != nil {
			return nil, err
		}
		run.Params = params.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
