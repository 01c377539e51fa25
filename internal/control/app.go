package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vietddude/noor/internal/content/api"
	"github.com/vietddude/noor/internal/content/cache"
	"github.com/vietddude/noor/internal/content/connectivity"
	"github.com/vietddude/noor/internal/content/fallback"
	"github.com/vietddude/noor/internal/content/notify"
	"github.com/vietddude/noor/internal/content/resolver"
	"github.com/vietddude/noor/internal/content/retry"
	"github.com/vietddude/noor/internal/content/service"
	"github.com/vietddude/noor/internal/core/config"
	"github.com/vietddude/noor/internal/core/errclass"
	"github.com/vietddude/noor/internal/health"
	"github.com/vietddude/noor/internal/infra/upstream"
)

const (
	offlineMessage = "You are offline. Saved content will be shown where available."
	onlineMessage  = "Back online."
)

// Config holds the application configuration.
type Config struct {
	App *config.AppConfig

	// Signal replaces the network probe when set.
	Signal connectivity.Signal
}

// App owns every content component for one session.
type App struct {
	cfg *config.AppConfig

	probe        *connectivity.Probe
	monitor      *connectivity.Monitor
	channel      *notify.Channel
	cache        *cache.Cache
	service      *service.Service
	providers    []*upstream.HTTPProvider
	healthMon    *health.Monitor
	healthServer *health.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *slog.Logger
}

// NewApp creates an App with all dependencies initialized.
func NewApp(cfg Config) (*App, error) {
	if cfg.App == nil {
		return nil, errors.New("missing app config")
	}
	appCfg := cfg.App
	log := slog.Default().With("component", "app")

	mode, err := notify.ParseMode(appCfg.Notifications.Mode)
	if err != nil {
		return nil, err
	}

	// 1. Connectivity
	var probe *connectivity.Probe
	signal := cfg.Signal
	if signal == nil {
		if appCfg.Connectivity.Disabled {
			signal = connectivity.NewManualSignal(true)
		} else {
			probe = connectivity.NewProbe(appCfg.Connectivity.Probe(), nil, slog.Default())
			signal = probe
		}
	}
	monitor := connectivity.NewMonitor(signal, slog.Default())

	// 2. Notifications
	channel := notify.NewChannel(mode, notify.WithLogger(slog.Default()))
	notifyDuration := appCfg.Notifications.Duration
	monitor.OnChange(func(s connectivity.State) {
		if s.Online {
			channel.Offer(onlineMessage, notify.SeverityInfo, notifyDuration)
		} else {
			channel.Offer(offlineMessage, notify.SeverityWarning, notifyDuration)
		}
	})

	// 3. Retrieval core
	fetchCfg := appCfg.Fetch.Retry()
	fetcher := retry.NewFetcher(fetchCfg, errclass.NewClassifier(fetchCfg.AttemptTimeout), slog.Default())
	contentCache := cache.New(cache.WithDefaultTTL(appCfg.Cache.TTL))
	res := resolver.New(
		resolver.Config{
			FallbackTTL:    appCfg.Cache.FallbackTTL,
			NotifyDuration: notifyDuration,
		},
		contentCache,
		fetcher,
		monitor,
		fallback.NewProvider(),
		channel,
		slog.Default(),
	)

	// 4. Upstreams
	app := &App{
		cfg:     appCfg,
		probe:   probe,
		monitor: monitor,
		channel: channel,
		cache:   contentCache,
		log:     log,
	}

	var (
		prayer     service.PrayerSource
		scripture  service.ScriptureSource
		commentary service.CommentarySource
	)
	if p := appCfg.Providers.Prayer; p.Enabled() {
		provider, err := app.addProvider("prayer", p)
		if err != nil {
			return nil, err
		}
		prayer = upstream.NewPrayerClient(provider)
	}
	if p := appCfg.Providers.Scripture; p.Enabled() {
		provider, err := app.addProvider("scripture", p)
		if err != nil {
			return nil, err
		}
		scripture = upstream.NewScriptureClient(provider)
	}
	if p := appCfg.Providers.Commentary; p.Enabled() {
		provider, err := app.addProvider("commentary", p)
		if err != nil {
			return nil, err
		}
		commentary = upstream.NewCommentaryClient(provider, p.TextPath)
	}

	app.service = service.New(service.Config{
		PrayerTTL:     appCfg.Cache.PrayerTTL,
		ChapterTTL:    appCfg.Cache.ChapterTTL,
		CommentaryTTL: appCfg.Cache.CommentaryTTL,
	}, res, prayer, scripture, commentary)

	// 5. HTTP: health and content on one listener
	healthProviders := make([]health.Provider, 0, len(app.providers))
	for _, p := range app.providers {
		healthProviders = append(healthProviders, p)
	}
	app.healthMon = health.NewMonitor(monitor, contentCache, channel, healthProviders...)
	app.healthServer = health.NewServer(app.healthMon, appCfg.Server.Port)
	api.NewHandler(app.service, appCfg.Providers.Prayer.Method, slog.Default()).Register(app.healthServer)

	return app, nil
}

func (a *App) addProvider(name string, cfg config.ProviderConfig) (*upstream.HTTPProvider, error) {
	p, err := upstream.NewHTTPProvider(cfg.Upstream(name))
	if err != nil {
		return nil, fmt.Errorf("init %s provider: %w", name, err)
	}
	a.providers = append(a.providers, p)
	a.log.Debug("Provider configured", "provider", name, "base_url", cfg.BaseURL)
	return p, nil
}

// Service returns the content entry point.
func (a *App) Service() *service.Service {
	return a.service
}

// Notifications returns the display slot.
func (a *App) Notifications() *notify.Channel {
	return a.channel
}

// Connectivity returns the connectivity monitor.
func (a *App) Connectivity() *connectivity.Monitor {
	return a.monitor
}

// Handler returns the HTTP routes served by Start.
func (a *App) Handler() http.Handler {
	return a.healthServer.Handler()
}

// Health returns the current health report.
func (a *App) Health() health.HealthReport {
	return a.healthMon.CheckHealth()
}

// CheckConnectivity runs one probe, for short-lived commands that never
// call Start. It is a no-op without a probe.
func (a *App) CheckConnectivity(ctx context.Context) {
	if a.probe != nil {
		a.probe.Check(ctx)
	}
}

// Start starts the probe loop and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	// Start HTTP Server
	go func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()

	// Start Connectivity Probe
	if a.probe != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.probe.Run(ctx)
		}()
	}

	a.log.Info("Started", "port", a.cfg.Server.Port, "providers", len(a.providers))
	return nil
}

// Stop stops background work and releases resources.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping...")

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	a.monitor.Close()
	a.channel.Close()
	for _, p := range a.providers {
		_ = p.Close()
	}

	// Stop HTTP Server
	return a.healthServer.Stop(ctx)
}
