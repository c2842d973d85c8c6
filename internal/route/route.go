// Package route maps article URLs to detail-view routes and back.
package route

import (
	"fmt"
	"net/url"
	"strings"
)

// DetailPrefix is the route segment of the article detail view.
const DetailPrefix = "newsDetail/"

// EncodeArticleURL percent-encodes an article URL so it fits in one path segment.
// Spaces become "+", reserved characters including "/" become %XX.
func EncodeArticleURL(articleURL string) string {
	return url.QueryEscape(articleURL)
}

// DecodeArticleURL reverses EncodeArticleURL.
func DecodeArticleURL(segment string) (string, error) {
	decoded, err := url.QueryUnescape(segment)
	if err != nil {
		return "", fmt.Errorf("invalid article route %q: %w", segment, err)
	}
	return decoded, nil
}

// ArticlePath returns the detail route for an article URL.
func ArticlePath(articleURL string) string {
	return DetailPrefix + EncodeArticleURL(articleURL)
}

// ParseArticlePath extracts and decodes the article URL from a detail route.
func ParseArticlePath(path string) (string, error) {
	segment, ok := strings.CutPrefix(strings.TrimPrefix(path, "/"), DetailPrefix)
	if !ok || segment == "" {
		return "", fmt.Errorf("not an article route: %q", path)
	}
	return DecodeArticleURL(segment)
}
