package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	DataDir  string `mapstructure:"data_dir" validate:"required"`
	Bucket   string `mapstructure:"bucket" validate:"required"`
	DataFile string `mapstructure:"data_file" validate:"required"`

	// Scraper
	BaseURL      string        `mapstructure:"base_url" validate:"required,url"`
	Radius       int           `mapstructure:"radius" validate:"gte=0"`
	PageLimit    int           `mapstructure:"page_limit" validate:"gte=1,lte=100"`
	RequestDelay time.Duration `mapstructure:"request_delay" validate:"gte=0"`
	UseBrowser   bool          `mapstructure:"use_browser"`
	Queries      []string      `mapstructure:"queries" validate:"min=1,dive,required"`
	Cities       []string      `mapstructure:"cities" validate:"min=1,dive,required"`

	// Text processing and model
	StemLem      string  `mapstructure:"stemlem"` // any of wordnet, snowball, porter
	MinDF        float64 `mapstructure:"min_df" validate:"gt=0"`
	MaxDF        float64 `mapstructure:"max_df" validate:"gt=0"`
	NumCities    int     `mapstructure:"num_cities" validate:"gte=2,lte=4"`
	NGrams       int     `mapstructure:"n_grams" validate:"gte=1,lte=3"`
	UseStopwords bool    `mapstructure:"use_stopwords"`
	Vectorizer   string  `mapstructure:"vectorizer" validate:"oneof=tfidf count"`
	Classifier   string  `mapstructure:"classifier" validate:"oneof=nb centroid"`
	ModelFile    string  `mapstructure:"model_file" validate:"required"`

	// Web app
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`
	LogLevel   string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
}

var AppConfig *Config

var configDir string

// ValidKeys lists the keys accepted by Set
func ValidKeys() []string {
	return []string{
		"data_dir", "bucket", "data_file", "base_url", "radius", "page_limit",
		"request_delay", "use_browser", "queries", "cities", "stemlem",
		"min_df", "max_df", "num_cities", "n_grams", "use_stopwords",
		"vectorizer", "classifier", "model_file", "listen_addr", "log_level",
	}
}

// Initialize loads or creates the configuration file under $HOME/.jobhunter
func Initialize() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	return InitializeAt(filepath.Join(homeDir, ".jobhunter"))
}

// InitializeAt loads or creates the configuration file in dir
func InitializeAt(dir string) error {
	configDir = dir
	configFile := filepath.Join(dir, "config.yaml")

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create default config if it doesn't exist
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := createDefaultConfig(configFile); err != nil {
			return err
		}
	}

	// A missing .env is fine
	_ = godotenv.Load()

	viper.Reset()
	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("JOBHUNTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("data_dir", dir)
	viper.SetDefault("bucket", "job-hunter-plus-data")
	viper.SetDefault("data_file", "indeed_data.csv")
	viper.SetDefault("base_url", "https://www.indeed.com")
	viper.SetDefault("radius", 15)
	viper.SetDefault("page_limit", 50)
	viper.SetDefault("request_delay", "2s")
	viper.SetDefault("use_browser", false)
	viper.SetDefault("queries", []string{"Data+Scientist", "Data+Analyst", "Business+Intelligence"})
	viper.SetDefault("cities", []string{"Austin", "Chicago", "San+Francisco", "New+York"})
	viper.SetDefault("stemlem", "")
	viper.SetDefault("min_df", 1)
	viper.SetDefault("max_df", 1.0)
	viper.SetDefault("num_cities", 2)
	viper.SetDefault("n_grams", 1)
	viper.SetDefault("use_stopwords", true)
	viper.SetDefault("vectorizer", "tfidf")
	viper.SetDefault("classifier", "nb")
	viper.SetDefault("model_file", "model.gob")
	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("log_level", "info")

	// Read config
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	// Unmarshal into struct
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	AppConfig = cfg
	return nil
}

var validate = validator.New()

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, method := range splitStemLem(c.StemLem) {
		switch method {
		case "wordnet", "snowball", "porter":
		default:
			return fmt.Errorf("invalid config: unknown stemlem method %q", method)
		}
	}
	return nil
}

// CSVPath returns the "bucket/key" location of the listings object, for display
func (c *Config) CSVPath() string {
	return c.Bucket + "/" + c.DataFile
}

func splitStemLem(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// createDefaultConfig creates a default config file
func createDefaultConfig(path string) error {
	defaultConfig := `# Job Hunter Configuration
bucket: job-hunter-plus-data
data_file: indeed_data.csv

# Scraper
base_url: https://www.indeed.com
radius: 15
page_limit: 50
request_delay: 2s
use_browser: false
queries:
  - Data+Scientist
  - Data+Analyst
  - Business+Intelligence
cities:
  - Austin
  - Chicago
  - San+Francisco
  - New+York

# Model: stemlem is any of wordnet, snowball, porter (comma separated)
stemlem: ""
min_df: 1
max_df: 1.0
num_cities: 2
n_grams: 1
use_stopwords: true
vectorizer: tfidf
classifier: nb
model_file: model.gob

# Web app
listen_addr: ":8080"
log_level: info
`
	return os.WriteFile(path, []byte(defaultConfig), 0600)
}

// Set updates a configuration value
func Set(key, value string) error {
	viper.Set(key, value)
	return viper.WriteConfig()
}

// Get retrieves a configuration value
func Get(key string) string {
	return viper.GetString(key)
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configDir != "" {
		return filepath.Join(configDir, "config.yaml")
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".jobhunter", "config.yaml")
}
