package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the tracker configuration: where the static tables and cache
// files live, the live feed endpoint, and the scope of the target station.
type Config struct {
	StaticDir   string `yaml:"static_dir" validate:"required"`
	CacheDir    string `yaml:"cache_dir" validate:"required"`
	FeedBaseURL string `yaml:"feed_base_url" validate:"required,url"`

	// HubRouteToken selects routes whose long name serves the station;
	// HubStopToken selects the station's physical stops. ExcludedStopID is
	// the parent place id that groups those stops but is not itself an
	// arrival point.
	HubRouteToken  string `yaml:"hub_route_token" validate:"required"`
	HubStopToken   string `yaml:"hub_stop_token" validate:"required"`
	ExcludedStopID string `yaml:"excluded_stop_id"`

	// Allow-lists applied to the live trip-update feed before it is cached.
	LiveRouteIDs []string `yaml:"live_route_ids" validate:"required,min=1"`
	LiveStopIDs  []string `yaml:"live_stop_ids" validate:"required,min=1"`

	SupportedYear     int `yaml:"supported_year" validate:"gt=0"`
	WindowMinutes     int `yaml:"window_minutes" validate:"gt=0"`
	MinRefreshSeconds int `yaml:"min_refresh_seconds" validate:"gte=0"`
	FetchTimeoutSecs  int `yaml:"fetch_timeout_seconds" validate:"gt=0"`
}

// Default returns the configuration for the UQ Lakes station deployment.
func Default() *Config {
	return &Config{
		StaticDir:      "./static-data",
		CacheDir:       "./cached-data",
		FeedBaseURL:    "http://127.0.0.1:5343/gtfs/seq",
		HubRouteToken:  "uq ",
		HubStopToken:   "uq lakes",
		ExcludedStopID: "place_uqlksa",
		LiveRouteIDs: []string{
			"28-3195", "29-3195",
			"66-3136", "66-3195",
			"139-3195", "169-3136",
			"169-3195", "192-3195",
			"209-3136", "209-3195",
			"P332-3195",
		},
		LiveStopIDs:       []string{"1853", "1878", "1882", "1947"},
		SupportedYear:     2023,
		WindowMinutes:     10,
		MinRefreshSeconds: 300,
		FetchTimeoutSecs:  15,
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variable overrides, then validates the result. A missing file
// is not an error; the defaults describe a complete deployment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.StaticDir = envStr("UQBUS_STATIC_DIR", cfg.StaticDir)
	cfg.CacheDir = envStr("UQBUS_CACHE_DIR", cfg.CacheDir)
	cfg.FeedBaseURL = envStr("UQBUS_FEED_URL", cfg.FeedBaseURL)
	cfg.SupportedYear = envInt("UQBUS_SUPPORTED_YEAR", cfg.SupportedYear)
	cfg.MinRefreshSeconds = envInt("UQBUS_MIN_REFRESH_SECONDS", cfg.MinRefreshSeconds)
	cfg.FetchTimeoutSecs = envInt("UQBUS_FETCH_TIMEOUT_SECONDS", cfg.FetchTimeoutSecs)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
