package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/noor/internal/core/errclass"
)

const timingsReply = `{
  "code": 200,
  "status": "OK",
  "data": {
    "timings": {
      "Fajr": "04:12", "Sunrise": "05:40", "Dhuhr": "12:01",
      "Asr": "15:22", "Sunset": "18:20", "Maghrib": "18:20", "Isha": "19:45"
    },
    "date": {
      "hijri": {"date": "17-04-1448", "day": "17", "month": {"number": 4, "en": "Rabīʿ al-thānī"}, "year": "1448"}
    }
  }
}`

const chapterReply = `{
  "code": 200,
  "data": {
    "number": 112,
    "name": "سُورَةُ الإِخْلَاصِ",
    "englishName": "Al-Ikhlaas",
    "numberOfAyahs": 4,
    "revelationType": "Meccan",
    "ayahs": [
      {"number": 6222, "text": "one", "numberInSurah": 1},
      {"number": 6223, "text": "two", "numberInSurah": 2},
      {"number": 6224, "text": "three", "numberInSurah": 3},
      {"number": 6225, "text": "four", "numberInSurah": 4}
    ]
  }
}`

func newTestProvider(t *testing.T, h http.HandlerFunc) *HTTPProvider {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	p, err := NewHTTPProvider(Config{Name: "mock", BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return p
}

func TestNewHTTPProvider_RejectsRelativeURL(t *testing.T) {
	_, err := NewHTTPProvider(Config{Name: "bad", BaseURL: "/v1"})
	assert.Error(t, err)
}

func TestPrayerClient_TimingsByCoordinates(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/timings", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "21.4225", q.Get("latitude"))
		assert.Equal(t, "39.8262", q.Get("longitude"))
		assert.Equal(t, "4", q.Get("method"))
		_, _ = w.Write([]byte(timingsReply))
	})

	pt, err := NewPrayerClient(p).TimingsByCoordinates(context.Background(), 21.4225, 39.8262, 4)
	require.NoError(t, err)
	assert.Equal(t, "04:12", pt.Fajr)
	assert.Equal(t, "19:45", pt.Isha)
	assert.Equal(t, "Rabīʿ al-thānī", pt.Hijri.Month)
	assert.Equal(t, "1448", pt.Hijri.Year)
}

func TestPrayerClient_TimingsByCity(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/timingsByCity", r.URL.Path)
		assert.Equal(t, "Cairo", r.URL.Query().Get("city"))
		assert.Equal(t, "Egypt", r.URL.Query().Get("country"))
		_, _ = w.Write([]byte(timingsReply))
	})

	pt, err := NewPrayerClient(p).TimingsByCity(context.Background(), "Cairo", "Egypt", 5)
	require.NoError(t, err)
	assert.Equal(t, "12:01", pt.Dhuhr)
}

func TestPrayerClient_MissingTimings(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"timings": {"Fajr": "04:12"}}}`))
	})

	_, err := NewPrayerClient(p).TimingsByCity(context.Background(), "x", "y", 1)
	assert.Error(t, err, "incomplete timings must not parse")
}

func TestScriptureClient_Chapter(t *testing.T) {
	tests := []struct {
		name        string
		translation string
		wantPath    string
	}{
		{"original", "", "/v1/surah/112"},
		{"translation", "en.asad", "/v1/surah/112/en.asad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantPath, r.URL.Path)
				_, _ = w.Write([]byte(chapterReply))
			})

			ch, err := NewScriptureClient(p).Chapter(context.Background(), 112, tt.translation)
			require.NoError(t, err)
			assert.Equal(t, 112, ch.Number)
			assert.Equal(t, "Al-Ikhlaas", ch.EnglishName)
			assert.Equal(t, 4, ch.VerseCount)
			require.Len(t, ch.Verses, 4)
			assert.Equal(t, 4, ch.Verses[3].Number)
			assert.Equal(t, "four", ch.Verses[3].Text)
		})
	}
}

func TestCommentaryClient_TextPath(t *testing.T) {
	tests := []struct {
		name     string
		textPath string
		reply    string
		want     string
		wantErr  bool
	}{
		{"default path", "", `{"text": "commentary"}`, "commentary", false},
		{"nested path", "data.tafsir.text", `{"data": {"tafsir": {"text": "nested"}}}`, "nested", false},
		{"missing", "", `{"other": 1}`, "", true},
		{"invalid json", "", `not json`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/2/255", r.URL.Path)
				_, _ = w.Write([]byte(tt.reply))
			})

			got, err := NewCommentaryClient(p, tt.textPath).Commentary(context.Background(), 2, 255)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPProvider_StatusErrors(t *testing.T) {
	tests := []struct {
		name string
		code int
		kind errclass.Kind
	}{
		{"not found", http.StatusNotFound, errclass.KindNotFound},
		{"server error", http.StatusBadGateway, errclass.KindServerError},
		{"bad request", http.StatusBadRequest, errclass.KindUnknown},
	}

	classifier := errclass.NewClassifier(10 * time.Second)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.code)
			})

			_, err := p.Get(context.Background(), "/anything", nil)
			var se *errclass.StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.StatusCode)
			assert.Equal(t, tt.kind, classifier.Classify(err, time.Millisecond).Kind)
		})
	}
}

func TestHTTPProvider_ThrottleShortCircuits(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := p.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.False(t, p.IsAvailable(), "provider is throttled after a 429")

	_, err = p.Get(context.Background(), "/x", nil)
	var se *errclass.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load(), "throttled calls stay local")

	h := p.GetHealth()
	assert.False(t, h.Available)
	assert.Equal(t, 1, h.Stats.ThrottleCount)
	assert.Equal(t, StatusThrottled, h.Stats.Status)
}

func TestHTTPProvider_UnreachableIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	p, err := NewHTTPProvider(Config{Name: "closed", BaseURL: addr, Timeout: time.Second})
	require.NoError(t, err)

	_, err = p.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	classified := errclass.NewClassifier(10*time.Second).Classify(err, time.Millisecond)
	assert.Equal(t, errclass.KindNetwork, classified.Kind, "error: %v", err)
	assert.Equal(t, 1, p.Monitor.GetStats().Failures)
}

func TestProviderMonitor_Degraded(t *testing.T) {
	m := NewProviderMonitor()
	for i := 0; i < 6; i++ {
		m.RecordRequest(50 * time.Millisecond)
	}
	for i := 0; i < 4; i++ {
		m.RecordFailure()
	}

	stats := m.GetStats()
	assert.Equal(t, 10, stats.Requests)
	assert.Equal(t, 4, stats.Failures)
	assert.Equal(t, StatusDegraded, stats.Status, "40% errors is degraded")
	assert.Equal(t, 50*time.Millisecond, stats.AverageLatency)
}

func TestProviderMonitor_RetryAfterFallback(t *testing.T) {
	m := NewProviderMonitor()
	m.RecordThrottle("Wed, 21 Oct 2015 07:28:00 GMT")

	got := m.GetRetryAfter()
	assert.Greater(t, got, 59*time.Second)
	assert.LessOrEqual(t, got, time.Minute)
	assert.Equal(t, StatusThrottled, m.CheckProviderStatus())
}
