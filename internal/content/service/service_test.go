package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/noor/internal/content/cache"
	"github.com/vietddude/noor/internal/content/fallback"
	"github.com/vietddude/noor/internal/content/resolver"
	"github.com/vietddude/noor/internal/content/retry"
	"github.com/vietddude/noor/internal/core/domain"
	"github.com/vietddude/noor/internal/core/errclass"
)

type fakeUpstream struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{calls: make(map[string]int)}
}

func (f *fakeUpstream) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.err
}

func (f *fakeUpstream) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeUpstream) TimingsByCoordinates(_ context.Context, lat, lng float64, method int) (*domain.PrayerTimes, error) {
	if err := f.hit("coords"); err != nil {
		return nil, err
	}
	return &domain.PrayerTimes{Fajr: "04:12", Sunrise: "05:40", Dhuhr: "12:01", Asr: "15:22", Maghrib: "18:20", Isha: "19:45"}, nil
}

func (f *fakeUpstream) TimingsByCity(_ context.Context, city, country string, method int) (*domain.PrayerTimes, error) {
	if err := f.hit("city"); err != nil {
		return nil, err
	}
	return &domain.PrayerTimes{Fajr: "05:01", Isha: "20:10"}, nil
}

func (f *fakeUpstream) Chapter(_ context.Context, number int, translation string) (*domain.Chapter, error) {
	if err := f.hit("chapter"); err != nil {
		return nil, err
	}
	return &domain.Chapter{Number: number, EnglishName: "Al-Ikhlaas", VerseCount: 4}, nil
}

func (f *fakeUpstream) Commentary(_ context.Context, chapter, verse int) (string, error) {
	if err := f.hit("commentary"); err != nil {
		return "", err
	}
	return "real commentary", nil
}

func newTestService(up *fakeUpstream) *Service {
	fetcher := retry.NewFetcher(retry.Config{
		MaxAttempts:    3,
		AttemptTimeout: 100 * time.Millisecond,
		Delay:          10 * time.Millisecond,
	}, nil, nil)
	r := resolver.New(resolver.Config{}, cache.New(), fetcher, nil, fallback.NewProvider(), nil, nil)
	return New(Config{}, r, up, up, up)
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		got  domain.ContentKey
		want string
	}{
		{"coords", PrayerKey(21.38999, 39.86001, 4), "prayer-times:21.3900,39.8600:method=4"},
		{"city", CityPrayerKey("Cairo", "Egypt", 5), "prayer-times-city:cairo,egypt:method=5"},
		{"chapter", ChapterKey(112, ""), "chapter:112"},
		{"chapter translation", ChapterKey(112, "en.asad"), "chapter:112:en.asad"},
		{"commentary", CommentaryKey(2, 5), "verse-commentary:2:5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got.String())
		})
	}
}

func TestValidation(t *testing.T) {
	up := newFakeUpstream()
	s := newTestService(up)
	ctx := context.Background()

	_, err := s.PrayerTimes(ctx, 91, 0, 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.PrayerTimes(ctx, 0, -181, 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.PrayerTimes(ctx, 0, 0, -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.PrayerTimesByCity(ctx, "  ", "Egypt", 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.Chapter(ctx, 0, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.Chapter(ctx, 115, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.Commentary(ctx, 2, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Empty(t, up.calls, "invalid requests must not reach upstream")
}

func TestPrayerTimes_Cached(t *testing.T) {
	up := newFakeUpstream()
	s := newTestService(up)

	first, err := s.PrayerTimes(context.Background(), 21.4225, 39.8262, 4)
	require.NoError(t, err)
	assert.Equal(t, "04:12", first.Value.Fajr)
	assert.False(t, first.Degraded())

	second, err := s.PrayerTimes(context.Background(), 21.4225, 39.8262, 4)
	require.NoError(t, err)
	assert.Same(t, first.Value, second.Value)
	assert.Equal(t, 1, up.count("coords"))

	city, err := s.PrayerTimesByCity(context.Background(), "Cairo", "Egypt", 5)
	require.NoError(t, err)
	assert.Equal(t, "05:01", city.Value.Fajr)
}

func TestChapter_NotFound(t *testing.T) {
	up := newFakeUpstream()
	up.err = &errclass.StatusError{StatusCode: 404}
	s := newTestService(up)

	_, err := s.Chapter(context.Background(), 1, "xx.missing")
	var ce *errclass.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errclass.KindNotFound, ce.Kind)
	assert.Equal(t, 1, up.count("chapter"))
}

func TestCommentary(t *testing.T) {
	up := newFakeUpstream()
	s := newTestService(up)

	got, err := s.Commentary(context.Background(), 2, 255)
	require.NoError(t, err)
	assert.Equal(t, domain.Commentary{Chapter: 2, Verse: 255, Text: "real commentary"}, got.Value)
	assert.Equal(t, resolver.SourceNetwork, got.Source)
}

func TestCommentary_Fallback(t *testing.T) {
	up := newFakeUpstream()
	up.err = errors.New("connection reset by peer")
	s := newTestService(up)

	got, err := s.Commentary(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, up.count("commentary"))
	assert.True(t, got.Degraded())
	assert.True(t, got.Value.Degraded)

	want, ok := fallback.NewProvider().Provide(CommentaryKey(2, 5))
	require.True(t, ok)
	assert.Equal(t, want, got.Value.Text)
	require.NotNil(t, got.Cause)
	assert.Equal(t, errclass.KindUnknown, got.Cause.Kind)
}

func TestCommentary_UnconfiguredServesFallback(t *testing.T) {
	fetcher := retry.NewFetcher(retry.Config{MaxAttempts: 3, AttemptTimeout: 100 * time.Millisecond, Delay: time.Second}, nil, nil)
	r := resolver.New(resolver.Config{}, cache.New(), fetcher, nil, fallback.NewProvider(), nil, nil)
	up := newFakeUpstream()
	s := New(Config{}, r, up, nil, nil)

	start := time.Now()
	got, err := s.Commentary(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "no retry delay without an upstream")
	assert.Equal(t, resolver.SourceFallback, got.Source)
	assert.True(t, got.Value.Degraded)
	require.NotNil(t, got.Cause)
	assert.ErrorIs(t, got.Cause, ErrNotConfigured)

	_, err = s.Chapter(context.Background(), 1, "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
