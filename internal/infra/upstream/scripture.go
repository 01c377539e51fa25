package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/vietddude/noor/internal/core/domain"
)

// ScriptureClient reads chapters from an alquran.cloud-compatible API.
type ScriptureClient struct {
	provider *HTTPProvider
}

// NewScriptureClient wraps a provider.
func NewScriptureClient(p *HTTPProvider) *ScriptureClient {
	return &ScriptureClient{provider: p}
}

// Chapter fetches a chapter, optionally in a translation edition such as
// "en.asad". An empty translation returns the original text.
func (c *ScriptureClient) Chapter(ctx context.Context, number int, translation string) (*domain.Chapter, error) {
	path := "/v1/surah/" + strconv.Itoa(number)
	if translation != "" {
		path += "/" + url.PathEscape(translation)
	}

	body, err := c.provider.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return parseChapter(body)
}

func parseChapter(body []byte) (*domain.Chapter, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("parse chapter: invalid json")
	}

	data := gjson.GetBytes(body, "data")
	if !data.Get("number").Exists() {
		return nil, fmt.Errorf("parse chapter: missing data.number")
	}

	ch := &domain.Chapter{
		Number:          int(data.Get("number").Int()),
		Name:            data.Get("name").String(),
		EnglishName:     data.Get("englishName").String(),
		VerseCount:      int(data.Get("numberOfAyahs").Int()),
		RevelationPlace: data.Get("revelationType").String(),
	}

	data.Get("ayahs").ForEach(func(_, ayah gjson.Result) bool {
		ch.Verses = append(ch.Verses, domain.Verse{
			Number: int(ayah.Get("numberInSurah").Int()),
			Text:   ayah.Get("text").String(),
		})
		return true
	})

	if ch.VerseCount == 0 {
		ch.VerseCount = len(ch.Verses)
	}
	return ch, nil
}
