package feed

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/readmoa/readmoa/pkg/domain"
)

// InferType decides the feed family from the URL shape and the document
// root. Known single-family providers are resolved from the URL alone,
// everything else is sniffed from the content. Malformed markup degrades
// to TypeUnknown, never an error.
func InferType(feedURL string, content []byte) domain.FeedType {
	if u, err := url.Parse(feedURL); err == nil {
		// brunch.co.kr only serves RSS, e.g. https://brunch.co.kr/rss/@@iDz
		if strings.HasSuffix(u.Hostname(), "brunch.co.kr") && strings.Contains(feedURL, "rss/@@") {
			return domain.TypeRSS
		}
	}

	switch gofeed.DetectFeedType(bytes.NewReader(content)) {
	case gofeed.FeedTypeRSS:
		return domain.TypeRSS
	case gofeed.FeedTypeAtom:
		return domain.TypeAtom
	default:
		return domain.TypeUnknown
	}
}
