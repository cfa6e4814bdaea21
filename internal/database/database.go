package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB

// Open creates and opens the SQLite index in dataDir and runs migrations
func Open(dataDir string) (*sql.DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "jobhunter.db")

	// Open with DSN options for SQLite pragmas
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// RunMigrations creates all necessary tables
func RunMigrations(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS listings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_title TEXT NOT NULL,
		location TEXT,
		company TEXT,
		url TEXT UNIQUE NOT NULL,
		jobsite TEXT DEFAULT 'Indeed',
		job_description TEXT,
		search_term TEXT,
		city_term TEXT,
		scrape_run_id TEXT,
		scraped_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (scrape_run_id) REFERENCES scrape_runs(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS scrape_runs (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		city TEXT NOT NULL,
		daily BOOLEAN DEFAULT 0,
		pages INTEGER DEFAULT 0,
		listings INTEGER DEFAULT 0,
		total_jobs INTEGER DEFAULT 0,
		status TEXT DEFAULT 'running',
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME,
		CHECK(status IN ('running', 'done', 'failed'))
	);

	CREATE TABLE IF NOT EXISTS training_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		classifier TEXT NOT NULL,
		vectorizer TEXT NOT NULL,
		params TEXT,
		documents INTEGER DEFAULT 0,
		folds INTEGER DEFAULT 0,
		accuracy REAL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		CHECK(kind IN ('train', 'cv'))
	);

	CREATE INDEX IF NOT EXISTS idx_listings_city_term ON listings(city_term);
	CREATE INDEX IF NOT EXISTS idx_listings_search_term ON listings(search_term);
	CREATE INDEX IF NOT EXISTS idx_scrape_runs_started_at ON scrape_runs(started_at);
	`

	_, err := db.Exec(schema)
	return err
}
