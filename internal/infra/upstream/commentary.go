package upstream

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// DefaultTextPath is where the commentary text sits in the reply.
const DefaultTextPath = "text"

// CommentaryClient reads verse commentary from GET {base}/{chapter}/{verse}.
type CommentaryClient struct {
	provider *HTTPProvider
	textPath string
}

// NewCommentaryClient wraps a provider. textPath is a gjson path to the
// commentary text; empty means DefaultTextPath.
func NewCommentaryClient(p *HTTPProvider, textPath string) *CommentaryClient {
	if textPath == "" {
		textPath = DefaultTextPath
	}
	return &CommentaryClient{provider: p, textPath: textPath}
}

// Commentary fetches the commentary text for one verse.
func (c *CommentaryClient) Commentary(ctx context.Context, chapter, verse int) (string, error) {
	path := "/" + strconv.Itoa(chapter) + "/" + strconv.Itoa(verse)

	body, err := c.provider.Get(ctx, path, nil)
	if err != nil {
		return "", err
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("parse commentary: invalid json")
	}

	text := gjson.GetBytes(body, c.textPath)
	if !text.Exists() || text.String() == "" {
		return "", fmt.Errorf("parse commentary: missing %s", c.textPath)
	}
	return text.String(), nil
}
