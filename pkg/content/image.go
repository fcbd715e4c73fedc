// Package content fetches linked pages and extracts presentation metadata
// for ingested posts.
package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// pages larger than this are cut off, metadata lives in the head anyway
const maxPageBytes = 2 << 20

// ImageExtractor fetches a page and returns its representative image URL.
// Callers are expected to space requests to the same origin, fetching here
// is a secondary enrichment and must not hammer the source site.
type ImageExtractor struct {
	client    *http.Client
	userAgent string
}

// NewImageExtractor creates an extractor with a per-request timeout
func NewImageExtractor(timeout time.Duration, userAgent string) *ImageExtractor {
	return &ImageExtractor{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// MainImage returns the main image URL of the page, or an empty string
// when the page declares none
func (e *ImageExtractor) MainImage(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid URL: %s", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read page %s: %w", pageURL, err)
	}

	// trafilatura handles most real-world pages including relative image
	// URLs, fall back to a raw og:image scan when it finds nothing
	opts := trafilatura.Options{
		ExcludeComments: true,
		IncludeImages:   true,
		OriginalURL:     parsed,
	}
	if result, exErr := trafilatura.Extract(bytes.NewReader(body), opts); exErr == nil && result != nil {
		if img := strings.TrimSpace(result.Metadata.Image); img != "" {
			return img, nil
		}
	}

	return ogImage(body), nil
}

// ogImage scans the document for <meta property="og:image" content="...">
func ogImage(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			if string(name) != "meta" || !hasAttr {
				continue
			}
			var property, content string
			for {
				key, val, more := tokenizer.TagAttr()
				switch string(key) {
				case "property":
					property = string(val)
				case "content":
					content = string(val)
				}
				if !more {
					break
				}
			}
			if property == "og:image" && content != "" {
				return content
			}
		}
	}
}
