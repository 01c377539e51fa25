// Package service is the typed entry point for content consumers. It builds
// content keys, validates arguments and delegates to the resolver.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/noor/internal/content/resolver"
	"github.com/vietddude/noor/internal/core/domain"
	"github.com/vietddude/noor/internal/core/errclass"
)

var (
	// ErrInvalidArgument is returned before any lookup for malformed requests.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotConfigured marks a content family with no upstream.
	ErrNotConfigured = errors.New("source not configured")
)

// PrayerSource fetches prayer timings.
type PrayerSource interface {
	TimingsByCoordinates(ctx context.Context, lat, lng float64, method int) (*domain.PrayerTimes, error)
	TimingsByCity(ctx context.Context, city, country string, method int) (*domain.PrayerTimes, error)
}

// ScriptureSource fetches chapters.
type ScriptureSource interface {
	Chapter(ctx context.Context, number int, translation string) (*domain.Chapter, error)
}

// CommentarySource fetches verse commentary.
type CommentarySource interface {
	Commentary(ctx context.Context, chapter, verse int) (string, error)
}

// Config holds per-category cache lifetimes. Zero uses the cache default.
type Config struct {
	PrayerTTL     time.Duration
	ChapterTTL    time.Duration
	CommentaryTTL time.Duration
}

// Content is a typed resolver result.
type Content[T any] struct {
	Value  T
	Source resolver.Source
	Cause  *errclass.Error
}

// Degraded reports whether Value is stale or substitute content.
func (c Content[T]) Degraded() bool {
	return c.Source != resolver.SourceNetwork
}

// Service is safe for concurrent use.
type Service struct {
	config     Config
	resolver   *resolver.Resolver
	prayer     PrayerSource
	scripture  ScriptureSource
	commentary CommentarySource
}

// New creates a service. Any source may be nil; requests for it fail with
// ErrNotConfigured, except commentary, which falls back.
func New(
	cfg Config,
	r *resolver.Resolver,
	prayer PrayerSource,
	scripture ScriptureSource,
	commentary CommentarySource,
) *Service {
	return &Service{
		config:     cfg,
		resolver:   r,
		prayer:     prayer,
		scripture:  scripture,
		commentary: commentary,
	}
}

// PrayerTimes returns today's timings for a location.
func (s *Service) PrayerTimes(ctx context.Context, lat, lng float64, method int) (Content[*domain.PrayerTimes], error) {
	if lat < -90 || lat > 90 {
		return Content[*domain.PrayerTimes]{}, fmt.Errorf("%w: latitude %v out of range", ErrInvalidArgument, lat)
	}
	if lng < -180 || lng > 180 {
		return Content[*domain.PrayerTimes]{}, fmt.Errorf("%w: longitude %v out of range", ErrInvalidArgument, lng)
	}
	if method < 0 {
		return Content[*domain.PrayerTimes]{}, fmt.Errorf("%w: method %d", ErrInvalidArgument, method)
	}
	if s.prayer == nil {
		return Content[*domain.PrayerTimes]{}, fmt.Errorf("prayer: %w", ErrNotConfigured)
	}

	key := PrayerKey(lat, lng, method)
	res, err := s.resolver.Get(ctx, key, func(ctx context.Context) (any, error) {
		return s.prayer.TimingsByCoordinates(ctx, lat, lng, method)
	}, s.config.PrayerTTL)
	return typed[*domain.PrayerTimes](res, err)
}

// PrayerTimesByCity returns today's timings for a city.
func (s *Service) PrayerTimesByCity(ctx context.Context, city, country string, method int) (Content[*domain.PrayerTimes], error) {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	if city == "" || country == "" {
		return Content[*domain.PrayerTimes]{}, fmt.Errorf("%w: city and country are required", ErrInvalidArgument)
	}
	if method < 0 {
		return Content[*domain.PrayerTimes]{}, fmt.Errorf("%w: method %d", ErrInvalidArgument, method)
	}
	if s.prayer == nil {
		return Content[*domain.PrayerTimes]{}, fmt.Errorf("prayer: %w", ErrNotConfigured)
	}

	key := CityPrayerKey(city, country, method)
	res, err := s.resolver.Get(ctx, key, func(ctx context.Context) (any, error) {
		return s.prayer.TimingsByCity(ctx, city, country, method)
	}, s.config.PrayerTTL)
	return typed[*domain.PrayerTimes](res, err)
}

// Chapter returns a chapter, optionally in a translation edition.
func (s *Service) Chapter(ctx context.Context, number int, translation string) (Content[*domain.Chapter], error) {
	if err := validChapter(number); err != nil {
		return Content[*domain.Chapter]{}, err
	}
	if s.scripture == nil {
		return Content[*domain.Chapter]{}, fmt.Errorf("scripture: %w", ErrNotConfigured)
	}

	translation = strings.TrimSpace(translation)
	key := ChapterKey(number, translation)
	res, err := s.resolver.Get(ctx, key, func(ctx context.Context) (any, error) {
		return s.scripture.Chapter(ctx, number, translation)
	}, s.config.ChapterTTL)
	return typed[*domain.Chapter](res, err)
}

// Commentary returns the commentary for one verse. It is the only category
// that degrades to substitute text, which it also serves when no commentary
// upstream is configured.
func (s *Service) Commentary(ctx context.Context, chapter, verse int) (Content[domain.Commentary], error) {
	if err := validChapter(chapter); err != nil {
		return Content[domain.Commentary]{}, err
	}
	if verse < 1 {
		return Content[domain.Commentary]{}, fmt.Errorf("%w: verse %d", ErrInvalidArgument, verse)
	}

	key := CommentaryKey(chapter, verse)
	res, err := s.resolver.Get(ctx, key, func(ctx context.Context) (any, error) {
		if s.commentary == nil {
			// No upstream: fail once without retry so the fallback is served.
			return nil, &errclass.Error{
				Kind:    errclass.KindNetwork,
				Message: "commentary: " + ErrNotConfigured.Error(),
				Err:     ErrNotConfigured,
			}
		}
		return s.commentary.Commentary(ctx, chapter, verse)
	}, s.config.CommentaryTTL)

	text, err := typed[string](res, err)
	if err != nil {
		return Content[domain.Commentary]{Cause: text.Cause}, err
	}
	return Content[domain.Commentary]{
		Value: domain.Commentary{
			Chapter:  chapter,
			Verse:    verse,
			Text:     text.Value,
			Degraded: text.Degraded(),
		},
		Source: text.Source,
		Cause:  text.Cause,
	}, nil
}

// Invalidate drops the cached content for key.
func (s *Service) Invalidate(key domain.ContentKey) {
	s.resolver.Invalidate(key)
}

// PrayerKey identifies timings for rounded coordinates.
func PrayerKey(lat, lng float64, method int) domain.ContentKey {
	return domain.NewContentKey(domain.CategoryPrayerTimes,
		fmt.Sprintf("%.4f,%.4f", lat, lng),
		"method="+strconv.Itoa(method),
	)
}

// CityPrayerKey identifies timings for a city, case-insensitively.
func CityPrayerKey(city, country string, method int) domain.ContentKey {
	return domain.NewContentKey(domain.CategoryPrayerTimesCity,
		strings.ToLower(city)+","+strings.ToLower(country),
		"method="+strconv.Itoa(method),
	)
}

// ChapterKey identifies a chapter edition.
func ChapterKey(number int, translation string) domain.ContentKey {
	if translation == "" {
		return domain.NewContentKey(domain.CategoryChapter, strconv.Itoa(number))
	}
	return domain.NewContentKey(domain.CategoryChapter, strconv.Itoa(number), translation)
}

// CommentaryKey identifies a verse's commentary.
func CommentaryKey(chapter, verse int) domain.ContentKey {
	return domain.NewContentKey(domain.CategoryCommentary, strconv.Itoa(chapter), strconv.Itoa(verse))
}

func validChapter(n int) error {
	if n < 1 || n > domain.ChapterCount {
		return fmt.Errorf("%w: chapter %d not in 1..%d", ErrInvalidArgument, n, domain.ChapterCount)
	}
	return nil
}

func typed[T any](res resolver.Result, err error) (Content[T], error) {
	if err != nil {
		return Content[T]{Cause: res.Cause}, err
	}
	v, ok := res.Value.(T)
	if !ok {
		return Content[T]{}, fmt.Errorf("unexpected content type %T", res.Value)
	}
	return Content[T]{Value: v, Source: res.Source, Cause: res.Cause}, nil
}
