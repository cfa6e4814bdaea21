package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeAt_CreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InitializeAt(dir))

	_, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	cfg := AppConfig
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "job-hunter-plus-data", cfg.Bucket)
	assert.Equal(t, "indeed_data.csv", cfg.DataFile)
	assert.Equal(t, 2*time.Second, cfg.RequestDelay)
	assert.Equal(t, []string{"Austin", "Chicago", "San+Francisco", "New+York"}, cfg.Cities)
	assert.Equal(t, 1.0, cfg.MinDF)
	assert.Equal(t, 1.0, cfg.MaxDF)
	assert.Equal(t, 2, cfg.NumCities)
	assert.True(t, cfg.UseStopwords)
	assert.Equal(t, "tfidf", cfg.Vectorizer)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), GetConfigPath())
}

func TestSet_PersistsValue(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InitializeAt(dir))

	require.NoError(t, Set("classifier", "centroid"))
	assert.Equal(t, "centroid", Get("classifier"))

	require.NoError(t, InitializeAt(dir))
	assert.Equal(t, "centroid", AppConfig.Classifier)
}

func TestInitializeAt_EnvOverride(t *testing.T) {
	t.Setenv("JOBHUNTER_NUM_CITIES", "4")
	require.NoError(t, InitializeAt(t.TempDir()))
	assert.Equal(t, 4, AppConfig.NumCities)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DataDir:    "/tmp",
			Bucket:     "b",
			DataFile:   "f.csv",
			BaseURL:    "https://www.indeed.com",
			PageLimit:  50,
			Queries:    []string{"Data+Scientist"},
			Cities:     []string{"Austin"},
			MinDF:      1,
			MaxDF:      1,
			NumCities:  2,
			NGrams:     1,
			Vectorizer: "tfidf",
			Classifier: "nb",
			ModelFile:  "model.gob",
			ListenAddr: ":8080",
			LogLevel:   "info",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "stemlem combination", mutate: func(c *Config) { c.StemLem = "wordnet, porter" }},
		{name: "unknown stemlem", mutate: func(c *Config) { c.StemLem = "lancaster" }, wantErr: true},
		{name: "bad vectorizer", mutate: func(c *Config) { c.Vectorizer = "hashing" }, wantErr: true},
		{name: "too many cities", mutate: func(c *Config) { c.NumCities = 5 }, wantErr: true},
		{name: "no queries", mutate: func(c *Config) { c.Queries = nil }, wantErr: true},
		{name: "bad base url", mutate: func(c *Config) { c.BaseURL = "indeed" }, wantErr: true},
		{name: "zero min_df", mutate: func(c *Config) { c.MinDF = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
