package app

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/khrees2412/jobhunter/internal/config"
	"github.com/khrees2412/jobhunter/internal/database"
	"github.com/khrees2412/jobhunter/internal/model"
	"github.com/khrees2412/jobhunter/internal/scraper"
	"github.com/khrees2412/jobhunter/internal/storage"
	"github.com/khrees2412/jobhunter/internal/textproc"
	"github.com/khrees2412/jobhunter/internal/vectorize"
	"github.com/khrees2412/jobhunter/pkg/models"
	"go.uber.org/zap"
)

// App is the dependency container for the CLI application
type App struct {
	DB         *sql.DB
	Config     *config.Config
	HTTPClient *http.Client
	Logger     *zap.Logger
	Store      storage.Store
}

// NewApp initializes and returns a new App instance
func NewApp(ctx context.Context, verbose bool) (*App, error) {
	// Initialize config
	if err := config.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	cfg := config.AppConfig

	logger, err := NewLogger(cfg.LogLevel, verbose)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.DataDir)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Verify database connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	database.DB = db

	return New(cfg, db, storage.NewOSStore(cfg.DataDir), logger), nil
}

// New assembles an App from already opened resources
func New(cfg *config.Config, db *sql.DB, store storage.Store, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		DB:         db,
		Config:     cfg,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     logger,
		Store:      store,
	}
}

// Close closes all resources
func (a *App) Close() error {
	_ = a.Logger.Sync()
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// ModelSpec translates the configuration into a model spec
func (a *App) ModelSpec() model.Spec {
	c := a.Config
	return model.Spec{
		Processing: textproc.Options{
			StemLem:      c.StemLem,
			MinDF:        c.MinDF,
			MaxDF:        c.MaxDF,
			NumCities:    c.NumCities,
			NGramMin:     c.NGrams,
			NGramMax:     c.NGrams,
			UseStopwords: c.UseStopwords,
			Vectorizer:   vectorize.Kind(c.Vectorizer),
			Cities:       models.DefaultCities,
		},
		Classifier: c.Classifier,
	}
}

// LoadListings reads the scraped listings object
func (a *App) LoadListings(ctx context.Context) ([]models.Listing, error) {
	listings, err := storage.ReadListings(ctx, a.Store, a.Config.Bucket, a.Config.DataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", a.Config.CSVPath(), err)
	}
	if len(listings) == 0 {
		return nil, fmt.Errorf("%w in %s, run `jobhunter scrape` first", ErrNoListings, a.Config.CSVPath())
	}
	return listings, nil
}

// SaveModel writes a fitted model to the configured model object
func (a *App) SaveModel(ctx context.Context, m *model.Model) error {
	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		return err
	}
	return a.Store.Put(ctx, a.Config.Bucket, a.Config.ModelFile, buf.Bytes())
}

// LoadModel reads the model written by SaveModel
func (a *App) LoadModel(ctx context.Context) (*model.Model, error) {
	ok, err := a.Store.Exists(ctx, a.Config.Bucket, a.Config.ModelFile)
	if err != nil {
		return nil, fmt.Errorf("failed to check model: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w, run `jobhunter train` first", ErrModelNotFound)
	}
	data, err := a.Store.Get(ctx, a.Config.Bucket, a.Config.ModelFile)
	if err != nil {
		return nil, err
	}
	return model.Load(bytes.NewReader(data))
}

// NewScraper builds a scraper from the configuration. The returned func
// releases the browser when one was started.
func (a *App) NewScraper(ctx context.Context) (*scraper.Scraper, func(), error) {
	c := a.Config
	var fetcher scraper.Fetcher = scraper.NewHTTPFetcher(a.HTTPClient, c.RequestDelay)
	release := func() {}
	if c.UseBrowser {
		browser, err := scraper.NewBrowserFetcher(ctx, c.RequestDelay, a.Logger)
		if err != nil {
			return nil, nil, err
		}
		fetcher, release = browser, browser.Close
	}
	return &scraper.Scraper{
		Fetcher: fetcher,
		Store:   a.Store,
		Bucket:  c.Bucket,
		Key:     c.DataFile,
		BaseURL: c.BaseURL,
		Radius:  c.Radius,
		Limit:   c.PageLimit,
		Index:   a.DB != nil,
		Logger:  a.Logger.Named("scraper"),
	}, release, nil
}
