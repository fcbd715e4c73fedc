package feed

import (
	"bytes"
	"fmt"

	"github.com/go-pkgz/lgr"
	"github.com/mmcdole/gofeed/atom"

	"github.com/readmoa/readmoa/pkg/domain"
)

// atomReader parses Atom 1.0 documents
type atomReader struct {
	feed *atom.Feed
}

func newAtomReader(content []byte) (*atomReader, error) {
	p := &atom.Parser{}
	parsed, err := p.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFeedMetadata, err)
	}
	if parsed.Title == "" {
		return nil, fmt.Errorf("%w: atom feed has no title", ErrFeedMetadata)
	}
	return &atomReader{feed: parsed}, nil
}

func (r *atomReader) Metadata() Metadata {
	md := Metadata{
		Title:       decodeText(r.feed.Title),
		Description: r.feed.Subtitle,
		Language:    r.feed.Language,
	}
	if r.feed.Generator != nil {
		md.Generator = r.feed.Generator.Value
	}
	if len(r.feed.Authors) > 0 && r.feed.Authors[0] != nil {
		md.Author = r.feed.Authors[0].Name
	}
	return md
}

// Read returns up to maxItems entries in document order, entries without a
// usable link are skipped
func (r *atomReader) Read(maxItems int) []domain.FeedItem {
	items := make([]domain.FeedItem, 0, maxItems)
	for _, entry := range r.feed.Entries {
		if len(items) >= maxItems {
			break
		}
		link := entryLink(entry)
		if link == "" {
			lgr.Printf("[DEBUG] skipping atom entry without link in %q", r.feed.Title)
			continue
		}

		item := domain.FeedItem{
			URL:         link,
			Title:       decodeText(entry.Title),
			Description: extractSummary(entry.Summary),
			Author:      entryAuthor(entry),
		}
		switch {
		case entry.PublishedParsed != nil:
			item.Published = *entry.PublishedParsed
		case entry.UpdatedParsed != nil:
			item.Published = *entry.UpdatedParsed
		}
		items = append(items, item)
	}
	return items
}

// entryLink picks the alternate link of an entry, or the first link when
// no rel is declared
func entryLink(entry *atom.Entry) string {
	for _, l := range entry.Links {
		if l != nil && (l.Rel == "" || l.Rel == "alternate") {
			return l.Href
		}
	}
	if len(entry.Links) > 0 && entry.Links[0] != nil {
		return entry.Links[0].Href
	}
	return ""
}

func entryAuthor(entry *atom.Entry) string {
	if len(entry.Authors) > 0 && entry.Authors[0] != nil {
		return decodeText(entry.Authors[0].Name)
	}
	return ""
}
