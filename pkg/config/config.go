// Package config loads client settings from the environment.
//
// Settings are read from RECURLY_* environment variables. An optional
// .env file is loaded first; variables already set in the environment
// take precedence over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/Sternrassler/recurly-client/pkg/client"
	"github.com/Sternrassler/recurly-client/pkg/logging"
)

// EnvPrefix is prepended to every setting name.
const EnvPrefix = "RECURLY"

// DefaultEnvFile is the .env file read by the CLI.
const DefaultEnvFile = ".env"

// Settings holds the resolved configuration.
type Settings struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	UserAgent  string
	PageSize   int
	Timeout    time.Duration
	MaxRetries int

	// RedisAddr enables the response cache and shared rate limit state.
	RedisAddr string

	LogLevel  logging.LogLevel
	LogPretty bool
}

// Load reads envFile (skipped when empty or missing) and the environment.
func Load(envFile string) (Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("api_version", client.DefaultAPIVersion)
	v.SetDefault("user_agent", client.DefaultUserAgent)
	v.SetDefault("page_size", client.DefaultPageSize)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("max_retries", 3)
	v.SetDefault("log_level", string(logging.LevelInfo))
	v.SetDefault("log_pretty", false)

	// Bind keys without defaults so AutomaticEnv picks them up for Get
	for _, key := range []string{"api_key", "subdomain", "base_url", "redis_addr"} {
		if err := v.BindEnv(key); err != nil {
			return Settings{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	level, err := logging.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return Settings{}, err
	}

	s := Settings{
		APIKey:     strings.TrimSpace(v.GetString("api_key")),
		BaseURL:    baseURL(v.GetString("base_url"), v.GetString("subdomain")),
		APIVersion: v.GetString("api_version"),
		UserAgent:  v.GetString("user_agent"),
		PageSize:   v.GetInt("page_size"),
		Timeout:    v.GetDuration("timeout"),
		MaxRetries: v.GetInt("max_retries"),
		RedisAddr:  strings.TrimSpace(v.GetString("redis_addr")),
		LogLevel:   level,
		LogPretty:  v.GetBool("log_pretty"),
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// baseURL prefers an explicit URL and derives one from the site subdomain
// otherwise.
func baseURL(explicit, subdomain string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return strings.TrimRight(explicit, "/")
	}
	if subdomain = strings.TrimSpace(subdomain); subdomain != "" {
		return fmt.Sprintf("https://%s.recurly.com/v2", subdomain)
	}
	return ""
}

// Validate reports every invalid setting.
func (s Settings) Validate() error {
	var errs []error
	if s.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s_API_KEY is required", EnvPrefix))
	}
	if s.BaseURL == "" {
		errs = append(errs, fmt.Errorf("%s_SUBDOMAIN or %s_BASE_URL is required", EnvPrefix, EnvPrefix))
	}
	if s.PageSize < 1 || s.PageSize > client.MaxPageSize {
		errs = append(errs, fmt.Errorf("%s_PAGE_SIZE must be between 1 and %d (got %d)", EnvPrefix, client.MaxPageSize, s.PageSize))
	}
	if s.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s_TIMEOUT must be positive (got %s)", EnvPrefix, s.Timeout))
	}
	if s.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("%s_MAX_RETRIES must be >= 1 (got %d)", EnvPrefix, s.MaxRetries))
	}
	return errors.Join(errs...)
}

// ClientConfig maps the settings to a client configuration. redisClient
// may be nil.
func (s Settings) ClientConfig(redisClient *redis.Client) client.Config {
	cfg := client.DefaultConfig(s.BaseURL, s.APIKey)
	cfg.APIVersion = s.APIVersion
	cfg.UserAgent = s.UserAgent
	cfg.PageSize = s.PageSize
	cfg.Timeout = s.Timeout
	cfg.MaxRetries = s.MaxRetries
	cfg.Redis = redisClient
	return cfg
}

// Logging returns the logger configuration.
func (s Settings) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = s.LogLevel
	cfg.Pretty = s.LogPretty
	return cfg
}
