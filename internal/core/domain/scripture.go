package domain

// ChapterCount is the number of chapters in the scripture.
const ChapterCount = 114

// Chapter is a chapter with its ordered verses.
type Chapter struct {
	Number          int     `json:"number"`
	Name            string  `json:"name"`
	EnglishName     string  `json:"english_name"`
	VerseCount      int     `json:"verse_count"`
	RevelationPlace string  `json:"revelation_place"`
	Verses          []Verse `json:"verses"`
}

// Verse is a single verse record.
type Verse struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Commentary is the commentary text for one verse. Degraded is set when the
// text is substitute content rather than the provider's answer.
type Commentary struct {
	Chapter  int    `json:"chapter"`
	Verse    int    `json:"verse"`
	Text     string `json:"text"`
	Degraded bool   `json:"degraded"`
}
