// Package crawler runs the adaptive feed poll: it fetches due feeds,
// ingests their newest items as posts and reschedules each feed from its
// fetch history.
package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/readmoa/readmoa/pkg/config"
	"github.com/readmoa/readmoa/pkg/domain"
	"github.com/readmoa/readmoa/pkg/feed"
	"github.com/readmoa/readmoa/pkg/schedule"
	"github.com/readmoa/readmoa/pkg/urlkey"
)

// feeds considered per run, effectively all of them
const maxFeedsPerRun = 10000

// fetch history depth fed to the changerate estimator
const historyDepth = 10

// feed documents larger than this are cut off
const maxFeedBytes = 8 << 20

// FeedStore is the feed side of the storage layer used by the crawler
type FeedStore interface {
	ScanRecent(ctx context.Context, offset, limit int) ([]domain.Feed, error)
	UpdateAfterFetch(ctx context.Context, feed *domain.Feed) error
}

// PostStore is the post side of the storage layer used by the crawler
type PostStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	InsertIfAbsent(ctx context.Context, post *domain.Post) (bool, error)
}

// FetchLog is the append-only fetch history used by the crawler
type FetchLog interface {
	Append(ctx context.Context, event *domain.FetchEvent) error
	ScanByFeed(ctx context.Context, feedKey string, limit int) ([]domain.FetchEvent, error)
}

// ImageExtractor fetches a linked page and returns its main image URL
type ImageExtractor interface {
	MainImage(ctx context.Context, pageURL string) (string, error)
}

// Crawler polls subscribed feeds and ingests their items. One run visits
// every feed once, feeds sharing an origin are processed sequentially and
// requests to the same origin are spaced by the politeness delay.
type Crawler struct {
	feeds  FeedStore
	posts  PostStore
	log    FetchLog
	images ImageExtractor
	client *http.Client
	cfg    config.CrawlerConfig
	gate   *hostGate
	now    func() time.Time
}

// New creates a crawler. The image extractor may be nil, posts are then
// ingested without a main image.
func New(feeds FeedStore, posts PostStore, log FetchLog, images ImageExtractor, cfg config.CrawlerConfig) *Crawler {
	if cfg.MaxItemsPerFeed == 0 {
		cfg.MaxItemsPerFeed = 2
	}
	if cfg.AgeLimit == 0 {
		cfg.AgeLimit = 24 * time.Hour
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ReadMoa/1.0"
	}

	return &Crawler{
		feeds:  feeds,
		posts:  posts,
		log:    log,
		images: images,
		client: &http.Client{Timeout: cfg.FetchTimeout},
		cfg:    cfg,
		gate:   newHostGate(cfg.PolitenessDelay),
		now:    time.Now,
	}
}

// Run performs one poll over all subscribed feeds and returns the number of
// newly ingested posts. Per-feed failures are logged and skipped, they never
// abort the run. The returned error reflects only the initial feed scan or
// a canceled context.
func (c *Crawler) Run(ctx context.Context) (int, error) {
	feeds, err := c.feeds.ScanRecent(ctx, 0, maxFeedsPerRun)
	if err != nil {
		return 0, fmt.Errorf("scan feeds: %w", err)
	}
	lgr.Printf("[INFO] crawl started, %d feeds", len(feeds))

	// feeds on the same origin go to one worker so requests to a host are
	// never issued concurrently
	byHost := map[string][]domain.Feed{}
	for _, f := range feeds {
		byHost[hostOf(f.URL)] = append(byHost[hostOf(f.URL)], f)
	}

	var newPosts int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxWorkers)
	for _, group := range byHost {
		group := group
		g.Go(func() error {
			for i := range group {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				atomic.AddInt64(&newPosts, int64(c.processFeed(gctx, &group[i])))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(atomic.LoadInt64(&newPosts)), fmt.Errorf("crawl interrupted: %w", err)
	}

	lgr.Printf("[INFO] crawl completed, %d new posts", newPosts)
	return int(atomic.LoadInt64(&newPosts)), nil
}

// processFeed fetches one feed if it is due and ingests its newest items.
// Exactly one fetch event is appended per successful parse, a feed that
// fails to fetch or parse leaves no trace in the history.
func (c *Crawler) processFeed(ctx context.Context, f *domain.Feed) int {
	now := c.now().UTC()
	if !now.After(f.ScheduledFetch) {
		lgr.Printf("[DEBUG] feed %s not due until %s, skipped", f.URL, f.ScheduledFetch.Format(time.RFC3339))
		return 0
	}
	lgr.Printf("[INFO] fetching feed %s", f.URL)

	content, err := c.fetch(ctx, f.URL)
	if err != nil {
		lgr.Printf("[WARN] failed to fetch feed %s: %v", f.URL, err)
		return 0
	}
	fetchedAt := c.now().UTC()

	feedType := f.Type
	if feedType == "" || feedType == domain.TypeUnknown {
		feedType = feed.InferType(f.URL, content)
	}

	reader, err := feed.NewReader(feedType, content)
	if err != nil {
		lgr.Printf("[WARN] failed to parse feed %s: %v", f.URL, err)
		return 0
	}

	newCount := 0
	var newest time.Time
	var newestItem domain.FeedItem
	for _, item := range reader.Read(c.cfg.MaxItemsPerFeed) {
		// items without a date are ingested regardless of age
		if !item.Published.IsZero() && now.Sub(item.Published) > c.cfg.AgeLimit {
			lgr.Printf("[DEBUG] item %s too old (%s), skipped", item.URL, item.Published.Format(time.RFC3339))
			continue
		}

		if c.ingestItem(ctx, item) {
			newCount++
		}
		if item.Published.After(newest) {
			newest = item.Published
			newestItem = item
		}
	}

	event := &domain.FetchEvent{
		FeedKey:            f.Key,
		FetchedAt:          fetchedAt,
		Updated:            newCount > 0,
		NewestPublished:    newest,
		PrevChangerate:     f.Changerate,
		PrevScheduledFetch: f.ScheduledFetch,
	}
	if err := c.log.Append(ctx, event); err != nil {
		lgr.Printf("[ERROR] failed to record fetch of %s: %v", f.URL, err)
		return newCount
	}

	c.reschedule(ctx, f, newestItem)
	lgr.Printf("[INFO] feed %s done, %d new posts, next fetch %s",
		f.URL, newCount, f.ScheduledFetch.Format(time.RFC3339))
	return newCount
}

// ingestItem stores one feed item as a post unless it is already known,
// enriching it with the main image of the linked page first
func (c *Crawler) ingestItem(ctx context.Context, item domain.FeedItem) bool {
	exists, err := c.posts.Exists(ctx, urlkey.ForURL(item.URL))
	if err != nil {
		lgr.Printf("[ERROR] failed to check post %s: %v", item.URL, err)
		return false
	}
	if exists {
		return false
	}

	post := domain.PostFromItem(item, c.now().UTC())
	if c.images != nil {
		if err := c.gate.wait(ctx, hostOf(item.URL)); err != nil {
			return false
		}
		img, imgErr := c.images.MainImage(ctx, item.URL)
		if imgErr != nil {
			lgr.Printf("[WARN] no main image for %s: %v", item.URL, imgErr)
		}
		post.MainImageURL = img
	}

	inserted, err := c.posts.InsertIfAbsent(ctx, &post)
	if err != nil {
		lgr.Printf("[ERROR] failed to insert post %s: %v", item.URL, err)
		return false
	}
	return inserted
}

// reschedule recomputes the changerate from the fetch history and persists
// the feed's next scheduled fetch time
func (c *Crawler) reschedule(ctx context.Context, f *domain.Feed, newestItem domain.FeedItem) {
	events, err := c.log.ScanByFeed(ctx, f.Key, historyDepth)
	if err != nil || len(events) == 0 {
		lgr.Printf("[ERROR] failed to load fetch history for %s: %v", f.URL, err)
		return
	}

	f.Changerate = schedule.Changerate(events)
	f.LastFetched = events[0].FetchedAt
	if f.FirstFetched.IsZero() {
		f.FirstFetched = f.LastFetched
	}
	f.ScheduledFetch = f.LastFetched.Add(time.Duration(f.Changerate) * time.Second)
	if newestItem.URL != "" {
		f.LatestItemURL = newestItem.URL
		f.LatestItemTitle = newestItem.Title
	}

	if err := c.feeds.UpdateAfterFetch(ctx, f); err != nil {
		lgr.Printf("[ERROR] failed to reschedule feed %s: %v", f.URL, err)
	}
}

// fetch retrieves the feed document, honoring the per-origin spacing
func (c *Crawler) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	if err := c.gate.wait(ctx, hostOf(feedURL)); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
