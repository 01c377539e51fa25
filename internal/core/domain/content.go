package domain

import (
	"strconv"
	"strings"
)

// Category groups content keys that come from the same upstream and share
// degradation rules.
type Category string

const (
	CategoryPrayerTimes     Category = "prayer-times"
	CategoryPrayerTimesCity Category = "prayer-times-city"
	CategoryChapter         Category = "chapter"
	CategoryCommentary      Category = "verse-commentary"
)

// ContentKey identifies one unit of retrievable content, e.g.
// "verse-commentary:2:5" or "prayer-times:21.3900,39.8600:method=2".
type ContentKey string

const keySeparator = ":"

// NewContentKey joins a category and its parts into a key.
func NewContentKey(category Category, parts ...string) ContentKey {
	if len(parts) == 0 {
		return ContentKey(category)
	}
	return ContentKey(string(category) + keySeparator + strings.Join(parts, keySeparator))
}

// Category returns the leading segment of the key.
func (k ContentKey) Category() Category {
	s := string(k)
	if i := strings.Index(s, keySeparator); i >= 0 {
		return Category(s[:i])
	}
	return Category(s)
}

// Parts returns the segments after the category.
func (k ContentKey) Parts() []string {
	s := string(k)
	i := strings.Index(s, keySeparator)
	if i < 0 {
		return nil
	}
	return strings.Split(s[i+1:], keySeparator)
}

// NumericSum adds up every part that is a plain non-negative integer.
// "verse-commentary:2:5" yields 7.
func (k ContentKey) NumericSum() uint64 {
	var sum uint64
	for _, p := range k.Parts() {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			continue
		}
		sum += n
	}
	return sum
}

func (k ContentKey) String() string {
	return string(k)
}
