package domain

// PrayerTimes holds the six daily times reported by the prayer provider.
// Times are kept as the provider formats them ("HH:MM").
type PrayerTimes struct {
	Fajr    string    `json:"fajr"`
	Sunrise string    `json:"sunrise"`
	Dhuhr   string    `json:"dhuhr"`
	Asr     string    `json:"asr"`
	Maghrib string    `json:"maghrib"`
	Isha    string    `json:"isha"`
	Hijri   HijriDate `json:"hijri"`
}

// HijriDate is the hijri descriptor that accompanies a timings response.
type HijriDate struct {
	Date  string `json:"date"`
	Day   string `json:"day"`
	Month string `json:"month"`
	Year  string `json:"year"`
}

// Ordered returns the times in the order they occur during the day.
func (p PrayerTimes) Ordered() [][2]string {
	return [][2]string{
		{"Fajr", p.Fajr},
		{"Sunrise", p.Sunrise},
		{"Dhuhr", p.Dhuhr},
		{"Asr", p.Asr},
		{"Maghrib", p.Maghrib},
		{"Isha", p.Isha},
	}
}
