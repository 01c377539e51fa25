package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/noor/internal/content/connectivity"
	"github.com/vietddude/noor/internal/content/resolver"
	"github.com/vietddude/noor/internal/core/domain"
	"github.com/vietddude/noor/internal/core/errclass"
	"github.com/vietddude/noor/internal/health"
	"github.com/vietddude/noor/internal/infra/kvstore"
)

func TestParseVerseRef(t *testing.T) {
	tests := []struct {
		args    []string
		chapter int
		verse   int
		wantErr bool
	}{
		{[]string{"2:255"}, 2, 255, false},
		{[]string{"2", "255"}, 2, 255, false},
		{[]string{"2"}, 0, 0, true},
		{[]string{"a:1"}, 0, 0, true},
		{[]string{"1:b"}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			c, v, err := parseVerseRef(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.chapter, c)
			assert.Equal(t, tt.verse, v)
		})
	}
}

func TestPrefsOps(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	var out bytes.Buffer

	require.NoError(t, prefsSet(ctx, store, &out, []string{"calc.method", "4"}))
	require.NoError(t, prefsSet(ctx, store, &out, []string{"theme", "dark"}))

	require.NoError(t, prefsGet(ctx, store, &out, []string{"theme"}))
	assert.Equal(t, "dark\n", out.String())

	out.Reset()
	require.NoError(t, prefsList(ctx, store, &out, nil))
	assert.Equal(t, "calc.method\ntheme\n", out.String())

	require.NoError(t, prefsRemove(ctx, store, &out, []string{"theme"}))
	assert.Error(t, prefsGet(ctx, store, &out, []string{"theme"}))
}

func TestPrintCommentary_Degraded(t *testing.T) {
	var out bytes.Buffer
	cause := &errclass.Error{Kind: errclass.KindNetwork}

	err := printCommentary(&out, domain.Commentary{Chapter: 2, Verse: 5, Text: "substitute", Degraded: true},
		resolver.SourceFallback, cause)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "(showing fallback content: "+resolver.Message(cause)+")")
	assert.Contains(t, out.String(), "2:5\nsubstitute\n")
}

func TestPrintPrayer(t *testing.T) {
	var out bytes.Buffer
	pt := &domain.PrayerTimes{Fajr: "04:12", Sunrise: "05:40", Dhuhr: "12:01", Asr: "15:22", Maghrib: "18:20", Isha: "19:45"}

	require.NoError(t, printPrayer(&out, pt, resolver.SourceNetwork, nil))
	assert.NotContains(t, out.String(), "showing")
	assert.Contains(t, out.String(), "Fajr")
	assert.Contains(t, out.String(), "19:45")
}

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	report := health.HealthReport{
		SystemStatus: health.StatusDegraded,
		Connectivity: connectivity.State{Online: false},
		Providers: map[string]health.ProviderHealth{
			"scripture": {Status: health.StatusHealthy},
			"prayer":    {Status: health.StatusDegraded},
		},
	}

	require.NoError(t, printStatus(&out, report))
	s := out.String()
	assert.Contains(t, s, "System: degraded (offline)")
	assert.Less(t, strings.Index(s, "prayer"), strings.Index(s, "scripture"))
}
