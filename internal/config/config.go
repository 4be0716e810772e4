package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log          LogConfig          `yaml:"log"`
	Store        StoreConfig        `yaml:"store"`
	NATS         NATSConfig         `yaml:"nats"`
	Web          WebConfig          `yaml:"web"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Router       RouterConfig       `yaml:"router"`
	Defaults     DefaultsConfig     `yaml:"defaults"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
	// Retention drops sessions inactive for longer than this; zero keeps
	// everything.
	Retention     time.Duration `yaml:"retention"`
	PruneSchedule string        `yaml:"prune_schedule"`
}

type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	// DataDir turns on JetStream storage when set.
	DataDir string `yaml:"data_dir"`
}

type WebConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type TelegramConfig struct {
	Token     string  `yaml:"token"`
	AllowFrom []int64 `yaml:"allow_from"`
}

type OrchestratorConfig struct {
	// Parallel dispatches handlers concurrently. Aggregation order is unchanged.
	Parallel           bool          `yaml:"parallel"`
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
}

// RouterConfig holds the keyword vocabulary used to pick specialist handlers.
type RouterConfig struct {
	Travel  []string `yaml:"travel"`
	Weather []string `yaml:"weather"`
	Budget  []string `yaml:"budget"`
}

// DefaultsConfig holds the planning values used when a message does not
// mention them.
type DefaultsConfig struct {
	Origin              string  `yaml:"origin"`
	Destination         string  `yaml:"destination"`
	TravelDate          string  `yaml:"travel_date"`
	Nights              int     `yaml:"nights"`
	Month               int     `yaml:"month"`
	TotalBudget         float64 `yaml:"total_budget"`
	FlightCost          float64 `yaml:"flight_cost"`
	HotelCost           float64 `yaml:"hotel_cost"`
	TripDays            int     `yaml:"trip_days"`
	SufficientThreshold float64 `yaml:"sufficient_threshold"`
}

// DefaultRouter returns the built-in routing vocabulary.
func DefaultRouter() RouterConfig {
	return RouterConfig{
		Travel:  []string{"trip", "vacation", "travel", "hawaii", "paris", "flight", "hotel"},
		Weather: []string{"weather", "climate", "rain", "sunny", "temperature", "best time"},
		Budget:  []string{"budget", "cost", "money", "expenses", "save"},
	}
}

// DefaultPlanning returns the built-in planning defaults.
func DefaultPlanning() DefaultsConfig {
	return DefaultsConfig{
		Origin:              "JFK",
		Destination:         "Paris",
		TravelDate:          "2025-06-15",
		Nights:              5,
		Month:               6,
		TotalBudget:         3000,
		FlightCost:          500,
		HotelCost:           1200,
		TripDays:            5,
		SufficientThreshold: 500,
	}
}

func defaults() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Path:          ":memory:",
			PruneSchedule: "0 3 * * *",
		},
		NATS: NATSConfig{
			Enabled: true,
			Port:    4222,
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8080,
		},
		Orchestrator: OrchestratorConfig{
			SessionIdleTimeout: 30 * time.Minute,
		},
		Router:   DefaultRouter(),
		Defaults: DefaultPlanning(),
	}
}

func Load() (*Config, error) {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg := defaults()

	path := os.Getenv("TRIPDESK_CONFIG")
	if path == "" {
		path = "config/tripdesk.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults + env
	} else {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TRIPDESK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TRIPDESK_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TRIPDESK_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("TRIPDESK_STORE_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Store.Retention = d
		}
	}
	if v := os.Getenv("TRIPDESK_NATS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.NATS.Port = port
		}
	}
	if v := os.Getenv("TRIPDESK_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		}
	}
	if v := os.Getenv("TRIPDESK_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("TRIPDESK_PARALLEL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Orchestrator.Parallel = b
		}
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Store.Retention < 0 {
		return fmt.Errorf("store.retention must not be negative, got %s", c.Store.Retention)
	}
	if c.Defaults.Nights <= 0 {
		return fmt.Errorf("defaults.nights must be positive, got %d", c.Defaults.Nights)
	}
	if c.Defaults.TripDays <= 0 {
		return fmt.Errorf("defaults.trip_days must be positive, got %d", c.Defaults.TripDays)
	}
	if c.Defaults.Month < 1 || c.Defaults.Month > 12 {
		return fmt.Errorf("defaults.month must be 1-12, got %d", c.Defaults.Month)
	}
	return nil
}
