package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/vietddude/noor/internal/core/domain"
)

// PrayerClient reads prayer timings from an Aladhan-compatible API.
type PrayerClient struct {
	provider *HTTPProvider
}

// NewPrayerClient wraps a provider.
func NewPrayerClient(p *HTTPProvider) *PrayerClient {
	return &PrayerClient{provider: p}
}

// TimingsByCoordinates fetches today's timings for a location.
func (c *PrayerClient) TimingsByCoordinates(
	ctx context.Context,
	lat, lng float64,
	method int,
) (*domain.PrayerTimes, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("method", strconv.Itoa(method))

	body, err := c.provider.Get(ctx, "/v1/timings", q)
	if err != nil {
		return nil, err
	}
	return parseTimings(body)
}

// TimingsByCity fetches today's timings for a city.
func (c *PrayerClient) TimingsByCity(
	ctx context.Context,
	city, country string,
	method int,
) (*domain.PrayerTimes, error) {
	q := url.Values{}
	q.Set("city", city)
	q.Set("country", country)
	q.Set("method", strconv.Itoa(method))

	body, err := c.provider.Get(ctx, "/v1/timingsByCity", q)
	if err != nil {
		return nil, err
	}
	return parseTimings(body)
}

func parseTimings(body []byte) (*domain.PrayerTimes, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("parse timings: invalid json")
	}

	timings := gjson.GetBytes(body, "data.timings")
	if !timings.IsObject() {
		return nil, fmt.Errorf("parse timings: missing data.timings")
	}

	pt := &domain.PrayerTimes{
		Fajr:    timings.Get("Fajr").String(),
		Sunrise: timings.Get("Sunrise").String(),
		Dhuhr:   timings.Get("Dhuhr").String(),
		Asr:     timings.Get("Asr").String(),
		Maghrib: timings.Get("Maghrib").String(),
		Isha:    timings.Get("Isha").String(),
	}
	for _, t := range pt.Ordered() {
		if t[1] == "" {
			return nil, fmt.Errorf("parse timings: missing %s", t[0])
		}
	}

	hijri := gjson.GetBytes(body, "data.date.hijri")
	pt.Hijri = domain.HijriDate{
		Date:  hijri.Get("date").String(),
		Day:   hijri.Get("day").String(),
		Month: hijri.Get("month.en").String(),
		Year:  hijri.Get("year").String(),
	}
	return pt, nil
}
