package config

import (
	"time"

	"github.com/vietddude/noor/internal/content/connectivity"
	"github.com/vietddude/noor/internal/content/retry"
	"github.com/vietddude/noor/internal/infra/kvstore"
	"github.com/vietddude/noor/internal/infra/upstream"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server        ServerConfig        `yaml:"server"        envPrefix:"SERVER_"`
	Logging       LoggingConfig       `yaml:"logging"       envPrefix:"LOG_"`
	Fetch         FetchConfig         `yaml:"fetch"         envPrefix:"FETCH_"`
	Cache         CacheConfig         `yaml:"cache"         envPrefix:"CACHE_"`
	Notifications NotificationConfig  `yaml:"notifications" envPrefix:"NOTIFY_"`
	Connectivity  ConnectivityConfig  `yaml:"connectivity"  envPrefix:"CONNECTIVITY_"`
	Providers     ProvidersConfig     `yaml:"providers"     envPrefix:"PROVIDER_"`
	Redis         kvstore.RedisConfig `yaml:"redis"         envPrefix:"REDIS_"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port" env:"PORT"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LEVEL"` // debug, info, warn, error
}

// FetchConfig is the retry policy for every network operation.
type FetchConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"    env:"MAX_ATTEMPTS"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout" env:"ATTEMPT_TIMEOUT"`
	Delay          time.Duration `yaml:"delay"           env:"DELAY"`
}

// Retry converts to the fetcher's policy.
func (f FetchConfig) Retry() retry.Config {
	return retry.Config{
		MaxAttempts:    f.MaxAttempts,
		AttemptTimeout: f.AttemptTimeout,
		Delay:          f.Delay,
	}
}

// CacheConfig holds memo lifetimes. Per-category TTLs of zero use TTL.
type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl"            env:"TTL"`
	FallbackTTL   time.Duration `yaml:"fallback_ttl"   env:"FALLBACK_TTL"`
	PrayerTTL     time.Duration `yaml:"prayer_ttl"     env:"PRAYER_TTL"`
	ChapterTTL    time.Duration `yaml:"chapter_ttl"    env:"CHAPTER_TTL"`
	CommentaryTTL time.Duration `yaml:"commentary_ttl" env:"COMMENTARY_TTL"`
}

// NotificationConfig holds notification slot settings.
type NotificationConfig struct {
	Duration time.Duration `yaml:"duration" env:"DURATION"`
	Mode     string        `yaml:"mode"     env:"MODE"` // replace, queue
}

// ConnectivityConfig configures the reachability probe.
type ConnectivityConfig struct {
	Disabled     bool          `yaml:"disabled"      env:"DISABLED"`
	ProbeAddress string        `yaml:"probe_address" env:"PROBE_ADDRESS"`
	Interval     time.Duration `yaml:"interval"      env:"INTERVAL"`
	Timeout      time.Duration `yaml:"timeout"       env:"TIMEOUT"`
}

// Probe converts to the probe's settings.
func (c ConnectivityConfig) Probe() connectivity.ProbeConfig {
	return connectivity.ProbeConfig{
		Address:  c.ProbeAddress,
		Interval: c.Interval,
		Timeout:  c.Timeout,
	}
}

// ProvidersConfig holds one upstream per content family.
type ProvidersConfig struct {
	Prayer     ProviderConfig `yaml:"prayer"     envPrefix:"PRAYER_"`
	Scripture  ProviderConfig `yaml:"scripture"  envPrefix:"SCRIPTURE_"`
	Commentary ProviderConfig `yaml:"commentary" envPrefix:"COMMENTARY_"`
}

// ProviderConfig holds settings for an upstream REST provider.
type ProviderConfig struct {
	BaseURL   string        `yaml:"base_url"   env:"BASE_URL"`
	Timeout   time.Duration `yaml:"timeout"    env:"TIMEOUT"`
	RateLimit float64       `yaml:"rate_limit" env:"RATE_LIMIT"` // requests per second, 0 = unlimited
	Burst     int           `yaml:"burst"      env:"BURST"`
	Method    int           `yaml:"method"     env:"METHOD"`    // prayer calculation method
	TextPath  string        `yaml:"text_path"  env:"TEXT_PATH"` // commentary only
}

// Enabled reports whether a base URL is configured.
func (p ProviderConfig) Enabled() bool {
	return p.BaseURL != ""
}

// Upstream converts to the provider's settings.
func (p ProviderConfig) Upstream(name string) upstream.Config {
	return upstream.Config{
		Name:      name,
		BaseURL:   p.BaseURL,
		Timeout:   p.Timeout,
		RateLimit: p.RateLimit,
		Burst:     p.Burst,
	}
}
