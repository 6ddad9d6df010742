package fetcher

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"

	"politikk-moter/internal/usecase/extract"
)

// ErrNoReadableContent is returned when readability finds no main content.
var ErrNoReadableContent = errors.New("no readable content found")

// ReadableText extracts the main text of a detail page with the Mozilla
// Readability algorithm. Navigation, footers and cookie banners are dropped,
// which keeps "kl. 10:00" and "Sted:" lines from the page chrome out of the
// time and venue heuristics.
func ReadableText(page *extract.Page) (string, error) {
	if page == nil || len(page.Body) == 0 {
		return "", ErrNoReadableContent
	}

	var pageURL *url.URL
	if page.URL != "" {
		if u, err := url.Parse(page.URL); err == nil {
			pageURL = u
		}
	}

	article, err := readability.FromReader(bytes.NewReader(page.Body), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", ErrNoReadableContent
	}
	return text, nil
}
