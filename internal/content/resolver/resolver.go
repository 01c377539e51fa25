// Package resolver mediates every content request: cache, connectivity
// gate, retrying fetch, then stale or fallback degradation, with a user
// notification on every failure path.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/noor/internal/content/cache"
	"github.com/vietddude/noor/internal/content/metrics"
	"github.com/vietddude/noor/internal/content/notify"
	"github.com/vietddude/noor/internal/content/retry"
	"github.com/vietddude/noor/internal/core/domain"
	"github.com/vietddude/noor/internal/core/errclass"
)

// DefaultFallbackTTL is how long substitute content stays cached.
const DefaultFallbackTTL = 30 * time.Second

// Source tells where a result came from.
type Source int

const (
	SourceNetwork  Source = iota // fetched or served fresh from cache
	SourceStale                  // expired cache entry served after a failure
	SourceFallback               // deterministic substitute content
)

func (s Source) String() string {
	switch s {
	case SourceStale:
		return "stale"
	case SourceFallback:
		return "fallback"
	default:
		return "network"
	}
}

// MarshalText renders the source by name.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is a resolved value. Cause is set when the value is degraded.
type Result struct {
	Value  any
	Source Source
	Cause  *errclass.Error
}

// Degraded reports whether the value is not fresh upstream content.
func (r Result) Degraded() bool {
	return r.Source != SourceNetwork
}

// Gate reports whether the network should be skipped.
type Gate interface {
	IsOffline() bool
}

// Substitutes supplies fallback text for whitelisted keys.
type Substitutes interface {
	Provide(key domain.ContentKey) (string, bool)
}

// Notifier receives user-facing failure messages.
type Notifier interface {
	Offer(text string, severity notify.Severity, duration time.Duration) notify.Notification
}

// Config tunes degradation.
type Config struct {
	FallbackTTL    time.Duration
	NotifyDuration time.Duration
}

// Invoke is a single network attempt for one key.
type Invoke func(ctx context.Context) (any, error)

// fallbackValue marks cached substitute content.
type fallbackValue struct {
	text  string
	cause *errclass.Error
}

// Resolver is safe for concurrent use.
type Resolver struct {
	config   Config
	cache    *cache.Cache
	fetcher  *retry.Fetcher
	gate     Gate
	fallback Substitutes
	notifier Notifier
	log      *slog.Logger
}

// New wires a resolver. gate, fallback and notifier may be nil.
func New(
	cfg Config,
	c *cache.Cache,
	fetcher *retry.Fetcher,
	gate Gate,
	fallback Substitutes,
	notifier Notifier,
	logger *slog.Logger,
) *Resolver {
	if cfg.FallbackTTL <= 0 {
		cfg.FallbackTTL = DefaultFallbackTTL
	}
	if cfg.NotifyDuration <= 0 {
		cfg.NotifyDuration = notify.DefaultDuration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		config:   cfg,
		cache:    c,
		fetcher:  fetcher,
		gate:     gate,
		fallback: fallback,
		notifier: notifier,
		log:      logger.With("component", "resolver"),
	}
}

// Get resolves key. A nil error always comes with a usable Value, possibly
// degraded. A non-nil error is a *errclass.Error, or ctx.Err() when the
// caller gave up first.
func (r *Resolver) Get(ctx context.Context, key domain.ContentKey, invoke Invoke, ttl time.Duration) (Result, error) {
	category := string(key.Category())

	producer := func(pctx context.Context) (any, error) {
		if r.gate != nil && r.gate.IsOffline() {
			metrics.FetchErrorsTotal.WithLabelValues(category, errclass.KindNetwork.String()).Inc()
			return nil, errclass.Offline()
		}
		return r.fetcher.Execute(pctx, retry.Operation{Name: category, Invoke: invoke})
	}

	v, err := r.cache.Get(ctx, key.String(), producer, ttl)
	if err == nil {
		if fb, ok := v.(fallbackValue); ok {
			return Result{Value: fb.text, Source: SourceFallback, Cause: fb.cause}, nil
		}
		return Result{Value: v, Source: SourceNetwork}, nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	cause := errclass.As(err)
	log := r.log.With("key", key.String(), "kind", cause.Kind.String())

	if cause.Kind != errclass.KindNotFound {
		if e, ok := r.cache.Lookup(key.String()); ok {
			if _, isFallback := e.Value.(fallbackValue); !isFallback {
				log.Warn("Serving stale content", "age", time.Since(e.FetchedAt).Round(time.Second), "error", err)
				metrics.DegradedTotal.WithLabelValues(category, SourceStale.String()).Inc()
				r.offer(staleMessage, notify.SeverityWarning)
				return Result{Value: e.Value, Source: SourceStale, Cause: cause}, nil
			}
		}
	}

	if r.fallback != nil {
		if text, ok := r.fallback.Provide(key); ok {
			log.Info("Serving fallback content", "error", err)
			r.cache.Set(key.String(), fallbackValue{text: text, cause: cause}, r.config.FallbackTTL)
			metrics.DegradedTotal.WithLabelValues(category, SourceFallback.String()).Inc()
			r.offer(fallbackMessage, notify.SeverityInfo)
			return Result{Value: text, Source: SourceFallback, Cause: cause}, nil
		}
	}

	log.Error("Content unavailable", "error", err)
	r.offer(Message(cause), notify.SeverityError)
	return Result{Cause: cause}, cause
}

// Invalidate forces the next Get for key to go to the network.
func (r *Resolver) Invalidate(key domain.ContentKey) {
	r.cache.Invalidate(key.String())
}

func (r *Resolver) offer(text string, severity notify.Severity) {
	if r.notifier == nil {
		return
	}
	r.notifier.Offer(text, severity, r.config.NotifyDuration)
}

const (
	staleMessage    = "Showing saved content. It may be out of date."
	fallbackMessage = "Showing offline content while the service is unavailable."
)

// Message is the user-facing text for a classified failure.
func Message(e *errclass.Error) string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case errclass.KindNotFound:
		return "The requested content could not be found."
	case errclass.KindServerError:
		return "The content service is having problems. Please try again later."
	case errclass.KindNetwork:
		return "No internet connection. Check your network and try again."
	case errclass.KindTimeout:
		return "The request took too long. Please try again."
	default:
		return "Something went wrong while loading content."
	}
}
