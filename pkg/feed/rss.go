package feed

import (
	"bytes"
	"fmt"

	"github.com/go-pkgz/lgr"
	"github.com/mmcdole/gofeed/rss"

	"github.com/readmoa/readmoa/pkg/domain"
)

// rssReader parses RSS 2.0 documents
type rssReader struct {
	feed *rss.Feed
}

func newRSSReader(content []byte) (*rssReader, error) {
	p := &rss.Parser{}
	parsed, err := p.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFeedMetadata, err)
	}
	if parsed.Title == "" {
		return nil, fmt.Errorf("%w: rss channel has no title", ErrFeedMetadata)
	}
	return &rssReader{feed: parsed}, nil
}

// Metadata returns channel-level fields, missing elements default to empty
func (r *rssReader) Metadata() Metadata {
	return Metadata{
		Title:       decodeText(r.feed.Title),
		Description: r.feed.Description,
		Language:    r.feed.Language,
		Generator:   r.feed.Generator,
	}
}

// Read returns up to maxItems items in document order. An item without a
// link is dropped, the rest of the document is still read.
func (r *rssReader) Read(maxItems int) []domain.FeedItem {
	items := make([]domain.FeedItem, 0, maxItems)
	for _, entry := range r.feed.Items {
		if len(items) >= maxItems {
			break
		}
		if entry.Link == "" {
			lgr.Printf("[DEBUG] skipping rss item without link in %q", r.feed.Title)
			continue
		}

		item := domain.FeedItem{
			URL:         entry.Link,
			Title:       decodeText(entry.Title),
			Description: extractSummary(entry.Description),
			Author:      rssAuthor(entry),
		}
		if entry.PubDateParsed != nil {
			item.Published = *entry.PubDateParsed
		}
		items = append(items, item)
	}
	return items
}

// rssAuthor prefers the author element and falls back to dc:creator, which
// frequently arrives wrapped in CDATA
func rssAuthor(entry *rss.Item) string {
	if entry.Author != "" {
		return decodeText(entry.Author)
	}
	if dc := entry.DublinCoreExt; dc != nil && len(dc.Creator) > 0 {
		return decodeText(dc.Creator[0])
	}
	return ""
}
