// Package config loads and validates runtime configuration at startup.
// Fail-fast: an invalid value is reported before any component is built.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// SlackWebhookPrefix is the required prefix of slack.webhook_url.
const SlackWebhookPrefix = "https://hooks.slack.com"

// Config holds all runtime configuration for the harvester service.
type Config struct {
	Database DatabaseConfig
	RedisURL string // empty disables the session lock

	Crawl    CrawlConfig
	Loader   LoaderConfig
	Interval time.Duration // schedule.interval

	SlackWebhookURL  string
	SlackMinInterval time.Duration
	ExportPath       string // empty disables the spreadsheet export
	RedFlags         []string

	HTTPPort string
	GRPCPort string // empty disables the gRPC health server

	LogLevel       string
	LogDevelopment bool
}

// DatabaseConfig selects and locates the record store.
type DatabaseConfig struct {
	Driver string // sqlite | postgres
	Path   string
	URL    string
}

// CrawlConfig drives the crawl controller.
type CrawlConfig struct {
	BaseURL     string
	Category    string
	Language    string
	MaxPages    int
	StopOnKnown bool
	Delay       time.Duration
	JitterMin   time.Duration
	JitterMax   time.Duration
}

// JobsURL is the search page under BaseURL.
func (c CrawlConfig) JobsURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/jobs"
}

// LoaderConfig selects the page loader.
type LoaderConfig struct {
	Kind           string // browser | http
	Headless       bool
	RemoteURL      string
	UserAgent      string
	PageTimeout    time.Duration
	Settle         time.Duration
	BlockResources []string
}

// NewViper returns a viper instance with defaults, environment binding
// (database.url reads DATABASE_URL) and the optional config file. A .env
// file in the working directory is loaded first if present.
func NewViper(cfgFile string) (*viper.Viper, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}
	return v, nil
}

// SetDefaults registers every key with its default.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "workana_jobs.db")
	v.SetDefault("database.url", "")
	v.SetDefault("redis.url", "")

	v.SetDefault("crawl.base_url", "https://www.workana.com")
	v.SetDefault("crawl.category", "it-programming")
	v.SetDefault("crawl.language", "en,pt,es")
	v.SetDefault("crawl.max_pages", 1)
	v.SetDefault("crawl.stop_on_known", false)
	v.SetDefault("crawl.delay", "1s")
	v.SetDefault("crawl.jitter_min", "500ms")
	v.SetDefault("crawl.jitter_max", "2s")

	v.SetDefault("loader.kind", "browser")
	v.SetDefault("loader.headless", true)
	v.SetDefault("loader.remote_url", "")
	v.SetDefault("loader.user_agent", "")
	v.SetDefault("loader.page_timeout", "20s")
	v.SetDefault("loader.settle", "500ms")
	v.SetDefault("loader.block_resources", "images,fonts,media")

	v.SetDefault("schedule.interval", "30s")

	v.SetDefault("slack.webhook_url", "")
	v.SetDefault("slack.min_interval", "500ms")
	v.SetDefault("export.path", "")
	v.SetDefault("filter.red_flags", "")

	v.SetDefault("http.port", "8081")
	v.SetDefault("grpc.port", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads v and returns a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("database.driver")),
			Path:   v.GetString("database.path"),
			URL:    v.GetString("database.url"),
		},
		RedisURL: v.GetString("redis.url"),
		Crawl: CrawlConfig{
			BaseURL:     v.GetString("crawl.base_url"),
			Category:    v.GetString("crawl.category"),
			Language:    v.GetString("crawl.language"),
			MaxPages:    v.GetInt("crawl.max_pages"),
			StopOnKnown: v.GetBool("crawl.stop_on_known"),
			Delay:       v.GetDuration("crawl.delay"),
			JitterMin:   v.GetDuration("crawl.jitter_min"),
			JitterMax:   v.GetDuration("crawl.jitter_max"),
		},
		Loader: LoaderConfig{
			Kind:           strings.ToLower(v.GetString("loader.kind")),
			Headless:       v.GetBool("loader.headless"),
			RemoteURL:      v.GetString("loader.remote_url"),
			UserAgent:      v.GetString("loader.user_agent"),
			PageTimeout:    v.GetDuration("loader.page_timeout"),
			Settle:         v.GetDuration("loader.settle"),
			BlockResources: list(v, "loader.block_resources"),
		},
		Interval:         v.GetDuration("schedule.interval"),
		SlackWebhookURL:  v.GetString("slack.webhook_url"),
		SlackMinInterval: v.GetDuration("slack.min_interval"),
		ExportPath:       v.GetString("export.path"),
		RedFlags:         list(v, "filter.red_flags"),
		HTTPPort:         v.GetString("http.port"),
		GRPCPort:         v.GetString("grpc.port"),
		LogLevel:         v.GetString("log.level"),
		LogDevelopment:   v.GetBool("log.development"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. All problems are reported at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}

	if c.Crawl.BaseURL == "" {
		errs = append(errs, errors.New("crawl.base_url is required"))
	}
	if c.Crawl.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("crawl.max_pages must be >= 0, got %d", c.Crawl.MaxPages))
	}
	if c.Crawl.Delay < 0 || c.Crawl.JitterMin < 0 || c.Crawl.JitterMax < 0 {
		errs = append(errs, errors.New("crawl delays must not be negative"))
	}
	if c.Crawl.JitterMin > c.Crawl.JitterMax {
		errs = append(errs, fmt.Errorf("crawl.jitter_min (%s) exceeds crawl.jitter_max (%s)",
			c.Crawl.JitterMin, c.Crawl.JitterMax))
	}

	switch c.Loader.Kind {
	case "browser", "http":
	default:
		errs = append(errs, fmt.Errorf("loader.kind must be browser or http, got %q", c.Loader.Kind))
	}
	if c.Loader.PageTimeout <= 0 {
		errs = append(errs, errors.New("loader.page_timeout must be positive"))
	}

	if c.Interval <= 0 {
		errs = append(errs, errors.New("schedule.interval must be positive"))
	}
	if c.SlackWebhookURL != "" && !strings.HasPrefix(c.SlackWebhookURL, SlackWebhookPrefix) {
		errs = append(errs, fmt.Errorf("slack.webhook_url must start with %s", SlackWebhookPrefix))
	}
	if c.SlackMinInterval < 0 {
		errs = append(errs, errors.New("slack.min_interval must not be negative"))
	}
	return errors.Join(errs...)
}

// list reads a comma-separated string or a YAML sequence.
func list(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case string:
		raw = strings.Split(val, ",")
	case []string:
		raw = val
	case []any:
		for _, item := range val {
			raw = append(raw, fmt.Sprint(item))
		}
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
