// Package schedule estimates how often a feed is worth polling from its
// fetch history.
package schedule

import (
	"sort"

	"github.com/readmoa/readmoa/pkg/domain"
)

const (
	// DefaultChangerate is one day in seconds, used when the history gives
	// no usable signal
	DefaultChangerate = 86400
	// MaxChangerate caps the polling interval at 14 days so a stale feed
	// is never effectively unsubscribed
	MaxChangerate = 14 * 86400
)

// Changerate computes the polling interval in seconds from recent fetch
// events. Only the most recent event is considered: the gap between its
// fetch time and the newest post it observed approximates how long the
// feed sits idle between updates. A non-positive gap means clock skew or
// a post newer than its own fetch and falls back to DefaultChangerate,
// anything above MaxChangerate is capped there, everything else passes
// through unchanged.
func Changerate(events []domain.FetchEvent) int {
	if len(events) == 0 {
		return DefaultChangerate
	}

	sorted := make([]domain.FetchEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FetchedAt.After(sorted[j].FetchedAt) })

	latest := sorted[0]
	duration := int(latest.FetchedAt.Sub(latest.NewestPublished).Seconds())

	switch {
	case duration <= 0:
		return DefaultChangerate
	case duration > MaxChangerate:
		return MaxChangerate
	default:
		return duration
	}
}
