// Package fallback produces deterministic substitute content for the
// categories that allow degradation.
package fallback

import (
	"github.com/vietddude/noor/internal/core/domain"
)

// commentaryTexts are shown when verse commentary cannot be retrieved.
// Order matters: indexes are derived from content keys and must stay stable.
var commentaryTexts = []string{
	"Commentary for this verse is not available right now. Read the verse slowly and reflect on how its meaning applies to your day.",
	"We could not load the commentary. Consider the verses around this one; their context often explains its message.",
	"Commentary is temporarily unavailable. Take a moment to memorize this verse and revisit its explanation later.",
	"The explanation for this verse could not be reached. Recite it again and note the words that stand out to you.",
	"Commentary will return once the connection recovers. Meanwhile, reflect on what this verse asks of the reader.",
	"This verse's commentary is offline for now. Pause on its meaning and return to the full explanation soon.",
	"We were unable to fetch the scholars' notes for this verse. Read it in your own translation and ponder its lesson.",
}

// Provider maps content keys to substitute text. It is a pure function of
// the key: no network, no randomness.
type Provider struct {
	texts map[domain.Category][]string
}

// NewProvider returns a provider with the built-in whitelist, which only
// covers verse commentary.
func NewProvider() *Provider {
	return NewProviderWithTexts(map[domain.Category][]string{
		domain.CategoryCommentary: commentaryTexts,
	})
}

// NewProviderWithTexts builds a provider from an explicit whitelist.
// Categories with an empty list are ignored.
func NewProviderWithTexts(texts map[domain.Category][]string) *Provider {
	p := &Provider{texts: make(map[domain.Category][]string, len(texts))}
	for category, list := range texts {
		if len(list) == 0 {
			continue
		}
		p.texts[category] = append([]string(nil), list...)
	}
	return p
}

// Supports reports whether category has fallback content.
func (p *Provider) Supports(category domain.Category) bool {
	_, ok := p.texts[category]
	return ok
}

// Provide returns the substitute text for key, or false when the key's
// category is not whitelisted.
func (p *Provider) Provide(key domain.ContentKey) (string, bool) {
	list, ok := p.texts[key.Category()]
	if !ok {
		return "", false
	}
	return list[Index(key, len(list))], true
}

// Index derives the position of key in a list of n texts: the sum of the
// key's numeric components modulo n.
func Index(key domain.ContentKey, n int) int {
	if n <= 0 {
		return 0
	}
	return int(key.NumericSum() % uint64(n))
}
