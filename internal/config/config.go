package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every variable; the short names in the struct tags are
// accepted too, so SERVER_PORT and DASHBOARD_SERVER_SERVER_PORT both work.
const EnvPrefix = "DASHBOARD"

type Config struct {
	Server    ServerConfig
	Dataset   DatasetConfig
	Dashboard DashboardConfig
	Logger    LoggerConfig
	Security  SecurityConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"localhost"`
	Port            int           `envconfig:"SERVER_PORT" default:"8084"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type DatasetConfig struct {
	CSVFile         string        `envconfig:"CSV_FILE" default:"data.csv"`
	LoadTimeout     time.Duration `envconfig:"DATASET_LOAD_TIMEOUT" default:"30s"`
	BatchSize       int           `envconfig:"DATASET_BATCH_SIZE" default:"10000"`
	Workers         int           `envconfig:"DATASET_WORKERS" default:"10"`
	SnapshotEnabled bool          `envconfig:"DATASET_SNAPSHOT_ENABLED" default:"true"`
	SnapshotDir     string        `envconfig:"DATASET_SNAPSHOT_DIR" default:".cache"`
}

type DashboardConfig struct {
	Profile         string   `envconfig:"DASHBOARD_PROFILE" default:"babycare"`
	Title           string   `envconfig:"DASHBOARD_TITLE"`
	FilterFields    []string `envconfig:"DASHBOARD_FILTER_FIELDS"`
	ShortNameLength int      `envconfig:"DASHBOARD_SHORT_NAME_LENGTH" default:"25"`
	Currency        string   `envconfig:"DASHBOARD_CURRENCY" default:"Rupiah"`
}

type LoggerConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

type SecurityConfig struct {
	EnableRateLimit bool          `envconfig:"SECURITY_RATE_LIMIT_ENABLED" default:"true"`
	RateLimitRPS    int           `envconfig:"SECURITY_RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst  int           `envconfig:"SECURITY_RATE_LIMIT_BURST" default:"10"`
	RateLimitIdle   time.Duration `envconfig:"SECURITY_RATE_LIMIT_IDLE" default:"1m"`
	AllowedOrigins  []string      `envconfig:"SECURITY_ALLOWED_ORIGINS" default:"http://localhost:8084"`
	TrustedProxies  []string      `envconfig:"SECURITY_TRUSTED_PROXIES" default:"127.0.0.1"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"METRICS_PATH" default:"/metrics"`
}

// Profile is a preset for one of the product dashboards.
type Profile struct {
	Title        string
	FilterFields []string
}

var Profiles = map[string]Profile{
	"babycare": {
		Title:        "Top 10 Baby Care Brands in Indonesia (2025)",
		FilterFields: []string{"month", "brand"},
	},
	"moisturizer": {
		Title:        "Finally Found You Product Dashboard 2025",
		FilterFields: []string{"month", "category"},
	},
	"herbal": {
		Title:        "ExpertCare Sales Performance 2025",
		FilterFields: []string{"month"},
	},
}

var filterableFields = []string{"month", "brand", "category", "product_name", "price_range"}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyProfile()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyProfile fills title and filter fields from the selected profile unless
// they were set explicitly.
func (c *Config) applyProfile() {
	c.Dashboard.Profile = strings.ToLower(strings.TrimSpace(c.Dashboard.Profile))
	p, ok := Profiles[c.Dashboard.Profile]
	if !ok {
		return
	}
	if c.Dashboard.Title == "" {
		c.Dashboard.Title = p.Title
	}
	if len(c.Dashboard.FilterFields) == 0 {
		c.Dashboard.FilterFields = slices.Clone(p.FilterFields)
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Dataset.CSVFile == "" {
		return fmt.Errorf("CSV file path cannot be empty")
	}

	if c.Dataset.BatchSize <= 0 {
		return fmt.Errorf("dataset batch size must be positive")
	}

	if c.Dataset.Workers <= 0 {
		return fmt.Errorf("dataset workers must be positive")
	}

	if _, ok := Profiles[c.Dashboard.Profile]; !ok {
		return fmt.Errorf("unknown dashboard profile %q", c.Dashboard.Profile)
	}

	for i, f := range c.Dashboard.FilterFields {
		f = strings.TrimSpace(f)
		if !slices.Contains(filterableFields, f) {
			return fmt.Errorf("invalid filter field %q, must be one of: %s", f, strings.Join(filterableFields, ", "))
		}
		c.Dashboard.FilterFields[i] = f
	}

	if c.Dashboard.ShortNameLength <= 0 {
		return fmt.Errorf("short name length must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Security.RateLimitIdle <= 0 {
		return fmt.Errorf("rate limit idle window must be positive")
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
