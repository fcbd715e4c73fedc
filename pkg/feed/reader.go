// Package feed parses RSS and Atom documents into feed items and infers
// the feed family of a raw document. Each family has its own reader behind
// a shared Reader contract, new families are added as new readers.
package feed

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/readmoa/readmoa/pkg/domain"
)

// MaxSummaryLen is the firm upper bound for item descriptions, measured in
// characters after markup is stripped
const MaxSummaryLen = 150

// ErrFeedMetadata indicates a document without a recognizable feed root or
// title, the whole document is unparseable
var ErrFeedMetadata = errors.New("feed metadata missing")

// ErrUnsupportedType indicates a feed family no reader exists for
var ErrUnsupportedType = errors.New("unsupported feed type")

// Metadata holds feed-level descriptive fields, absent fields are empty
// strings
type Metadata struct {
	Title       string
	Description string
	Language    string
	Generator   string
	Author      string
}

// Reader parses one fetched feed document. Read returns at most maxItems
// items in document order, entries missing a link are skipped. Reads are
// idempotent, each call starts from the beginning of the document.
type Reader interface {
	Metadata() Metadata
	Read(maxItems int) []domain.FeedItem
}

// NewReader returns the reader for the given feed family
func NewReader(feedType domain.FeedType, content []byte) (Reader, error) {
	switch feedType {
	case domain.TypeRSS:
		return newRSSReader(content)
	case domain.TypeAtom:
		return newAtomReader(content)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, feedType)
	}
}

var summaryPolicy = bluemonday.StrictPolicy()

// extractSummary strips markup from an item description, collapses it to a
// single run of text and truncates to MaxSummaryLen characters, mid-word
// if necessary
func extractSummary(s string) string {
	text := html.UnescapeString(summaryPolicy.Sanitize(s))
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > MaxSummaryLen {
		return string(runes[:MaxSummaryLen])
	}
	return text
}

// decodeText unescapes HTML entities left in CDATA or escaped text nodes
func decodeText(s string) string {
	return html.UnescapeString(strings.TrimSpace(s))
}
