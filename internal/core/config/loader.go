package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"

	"github.com/vietddude/noor/internal/content/cache"
	"github.com/vietddude/noor/internal/content/connectivity"
	"github.com/vietddude/noor/internal/content/notify"
	"github.com/vietddude/noor/internal/content/resolver"
	"github.com/vietddude/noor/internal/content/retry"
)

// EnvPrefix prefixes every environment override, e.g. NOOR_FETCH_DELAY.
const EnvPrefix = "NOOR_"

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Server:  ServerConfig{Port: 8080},
		Logging: LoggingConfig{Level: "info"},
		Fetch: FetchConfig{
			MaxAttempts:    retry.DefaultConfig.MaxAttempts,
			AttemptTimeout: retry.DefaultConfig.AttemptTimeout,
			Delay:          retry.DefaultConfig.Delay,
		},
		Cache: CacheConfig{
			TTL:         cache.DefaultTTL,
			FallbackTTL: resolver.DefaultFallbackTTL,
		},
		Notifications: NotificationConfig{
			Duration: notify.DefaultDuration,
			Mode:     string(notify.ModeReplace),
		},
		Connectivity: ConnectivityConfig{
			ProbeAddress: connectivity.DefaultProbeConfig.Address,
			Interval:     connectivity.DefaultProbeConfig.Interval,
			Timeout:      connectivity.DefaultProbeConfig.Timeout,
		},
		Providers: ProvidersConfig{
			Prayer: ProviderConfig{
				BaseURL: "https://api.aladhan.com",
				Timeout: 10 * time.Second,
				Method:  2,
			},
			Scripture: ProviderConfig{
				BaseURL: "https://api.alquran.cloud",
				Timeout: 10 * time.Second,
			},
		},
	}
}

// Load reads configuration from a YAML file on top of Default, then applies
// NOOR_* environment overrides. An empty path skips the file.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enums.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Fetch.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("fetch.max_attempts must be at least 1, got %d", c.Fetch.MaxAttempts))
	}
	if c.Fetch.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("fetch.attempt_timeout must be positive"))
	}
	if c.Fetch.Delay < 0 {
		errs = append(errs, errors.New("fetch.delay must not be negative"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if _, err := notify.ParseMode(c.Notifications.Mode); err != nil {
		errs = append(errs, fmt.Errorf("notifications.mode: %w", err))
	}
	if !c.Connectivity.Disabled && c.Connectivity.ProbeAddress == "" {
		errs = append(errs, errors.New("connectivity.probe_address is required unless connectivity is disabled"))
	}
	for name, p := range map[string]ProviderConfig{
		"prayer":     c.Providers.Prayer,
		"scripture":  c.Providers.Scripture,
		"commentary": c.Providers.Commentary,
	} {
		if p.RateLimit < 0 {
			errs = append(errs, fmt.Errorf("providers.%s.rate_limit must not be negative", name))
		}
	}

	return errors.Join(errs...)
}
