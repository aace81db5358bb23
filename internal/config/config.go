package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Version is stamped at build time via -ldflags.
var Version = "0.1.0"

const (
	envPrefix   = "photojournalism"
	projectHome = "http://github.com/samvad-hq/samvad-photojournalism"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	FeedList             string        `mapstructure:"feed_list"`
	FetchIntervalSeconds int64         `mapstructure:"fetch_interval"`
	FetchInterval        time.Duration `mapstructure:"-"`
	MaxConcurrentFetches int64         `mapstructure:"max_concurrent_fetches"`
	UserAgent            string        `mapstructure:"user_agent"`
	HTTPTimeoutSeconds   int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout          time.Duration `mapstructure:"-"`
	OGFallback           bool          `mapstructure:"og_fallback"`
	PublishersFile       string        `mapstructure:"publishers_file"`

	ServerAddress string `mapstructure:"server"`
	PageSize      int    `mapstructure:"page_size"`
	DefaultSeed   uint64 `mapstructure:"default_seed"`
	StaticDir     string `mapstructure:"static_dir"`

	StorageType            string        `mapstructure:"storage_type"`
	StoragePath            string        `mapstructure:"storage_path"`
	RedisAddr              string        `mapstructure:"redis_addr"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// DefaultUserAgent identifies the service to feed publishers.
func DefaultUserAgent() string {
	return fmt.Sprintf("photojournalism/%s +%s", Version, projectHome)
}

// Load reads configuration from environment variables (PHOTOJOURNALISM_*) and configs/.env.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	setDefaults(v)
	v.AutomaticEnv()

	return decode(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "samvad-photojournalism")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("feed_list", "")
	v.SetDefault("fetch_interval", 3600) // seconds
	v.SetDefault("max_concurrent_fetches", 0)
	v.SetDefault("user_agent", DefaultUserAgent())
	v.SetDefault("http_timeout_seconds", 15)
	v.SetDefault("og_fallback", false)
	v.SetDefault("publishers_file", "")
	v.SetDefault("server", ":8080")
	v.SetDefault("page_size", 8)
	v.SetDefault("default_seed", 1)
	v.SetDefault("static_dir", "./static")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("storage_path", filepath.Join(os.TempDir(), "photojournalism", "http-cache.db"))
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("storage_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.FeedList = strings.TrimSpace(cfg.FeedList)
	if cfg.FeedList == "" {
		return nil, fmt.Errorf("feed_list is required (set PHOTOJOURNALISM_FEED_LIST)")
	}

	if cfg.FetchIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid fetch_interval (must be positive seconds)")
	}
	cfg.FetchInterval = time.Duration(cfg.FetchIntervalSeconds) * time.Second

	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("invalid page_size (must be positive)")
	}
	if cfg.MaxConcurrentFetches < 0 {
		return nil, fmt.Errorf("invalid max_concurrent_fetches (must be zero or positive)")
	}

	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = DefaultUserAgent()
	}

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}
