package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/readmoa/readmoa/pkg/domain"
)

func TestChangerate(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	event := func(fetched time.Time, newest time.Time) domain.FetchEvent {
		return domain.FetchEvent{FeedKey: "k", FetchedAt: fetched, NewestPublished: newest}
	}

	tests := []struct {
		name   string
		events []domain.FetchEvent
		want   int
	}{
		{"no history", nil, DefaultChangerate},
		{"zero duration", []domain.FetchEvent{event(now, now)}, DefaultChangerate},
		{"negative duration", []domain.FetchEvent{event(now, now.Add(time.Hour))}, DefaultChangerate},
		{"ten days passes through", []domain.FetchEvent{event(now, now.Add(-10 * 24 * time.Hour))}, 864000},
		{"one hour passes through", []domain.FetchEvent{event(now, now.Add(-time.Hour))}, 3600},
		{"astronomically old clamps to ceiling", []domain.FetchEvent{event(now, now.Add(-365 * 24 * time.Hour))}, MaxChangerate},
		{"exactly at ceiling not clamped", []domain.FetchEvent{event(now, now.Add(-14 * 24 * time.Hour))}, MaxChangerate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Changerate(tt.events))
		})
	}
}

func TestChangerate_UsesMostRecentEvent(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// events deliberately out of order, the newest fetch must win
	events := []domain.FetchEvent{
		{FeedKey: "k", FetchedAt: now.Add(-48 * time.Hour), NewestPublished: now.Add(-50 * 24 * time.Hour)},
		{FeedKey: "k", FetchedAt: now, NewestPublished: now.Add(-2 * 24 * time.Hour)},
		{FeedKey: "k", FetchedAt: now.Add(-24 * time.Hour), NewestPublished: now.Add(-40 * 24 * time.Hour)},
	}

	assert.Equal(t, 2*86400, Changerate(events))

	// input slice is not reordered
	assert.Equal(t, now.Add(-48*time.Hour), events[0].FetchedAt)
}
