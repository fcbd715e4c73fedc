package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/readmoa/readmoa/pkg/domain"
	"github.com/readmoa/readmoa/pkg/feed"
	"github.com/readmoa/readmoa/pkg/store"
	"github.com/readmoa/readmoa/pkg/urlkey"
)

// feed documents larger than this are cut off during onboarding probes
const maxProbeBytes = 8 << 20

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// postJSON is the wire shape of a post
type postJSON struct {
	Key          string     `json:"key"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	Author       string     `json:"author,omitempty"`
	AuthorKey    string     `json:"author_key,omitempty"`
	Published    *time.Time `json:"published,omitempty"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	MainImageURL string     `json:"main_image_url,omitempty"`
	Description  string     `json:"description,omitempty"`
	AuthorName   string     `json:"author_display_name,omitempty"`
	AuthorPhoto  string     `json:"author_photo_url,omitempty"`
}

// feedJSON is the wire shape of a feed
type feedJSON struct {
	Key             string     `json:"key"`
	URL             string     `json:"url"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Language        string     `json:"language,omitempty"`
	Type            string     `json:"type"`
	Generator       string     `json:"generator,omitempty"`
	Label           string     `json:"label,omitempty"`
	Changerate      int        `json:"changerate"`
	FirstFetched    *time.Time `json:"first_fetched,omitempty"`
	LastFetched     *time.Time `json:"last_fetched,omitempty"`
	LatestItemURL   string     `json:"latest_item_url,omitempty"`
	LatestItemTitle string     `json:"latest_item_title,omitempty"`
	ScheduledFetch  *time.Time `json:"scheduled_fetch,omitempty"`
}

func toPostJSON(p domain.Post) postJSON {
	out := postJSON{
		Key:          p.Key,
		URL:          p.URL,
		Title:        p.Title,
		Author:       p.Author,
		AuthorKey:    p.AuthorKey,
		SubmittedAt:  p.SubmittedAt,
		MainImageURL: p.MainImageURL,
		Description:  p.Description,
		AuthorName:   p.UserDisplayName,
		AuthorPhoto:  p.UserPhotoURL,
	}
	if !p.Published.IsZero() {
		published := p.Published
		out.Published = &published
	}
	return out
}

func toFeedJSON(f domain.Feed) feedJSON {
	out := feedJSON{
		Key:             f.Key,
		URL:             f.URL,
		Title:           f.Title,
		Description:     f.Description,
		Language:        f.Language,
		Type:            string(f.Type),
		Generator:       f.Generator,
		Label:           f.Label,
		Changerate:      f.Changerate,
		LatestItemURL:   f.LatestItemURL,
		LatestItemTitle: f.LatestItemTitle,
	}
	for _, t := range []struct {
		src time.Time
		dst **time.Time
	}{
		{f.FirstFetched, &out.FirstFetched},
		{f.LastFetched, &out.LastFetched},
		{f.ScheduledFetch, &out.ScheduledFetch},
	} {
		if !t.src.IsZero() {
			v := t.src
			*t.dst = &v
		}
	}
	return out
}

// listPostsHandler returns posts in reverse submission order, optionally
// filtered by author key
func (s *Server) listPostsHandler(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r)
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	posts, err := s.posts.Scan(r.Context(), offset, limit, r.URL.Query().Get("author"))
	if err != nil {
		lgr.Printf("[ERROR] failed to list posts: %v", err)
		renderError(w, r, fmt.Errorf("failed to list posts"), http.StatusInternalServerError)
		return
	}

	out := make([]postJSON, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostJSON(p))
	}
	renderJSON(w, r, http.StatusOK, map[string]any{"posts": out, "offset": offset, "limit": limit})
}

// getPostHandler returns one post by its key
func (s *Server) getPostHandler(w http.ResponseWriter, r *http.Request) {
	post, err := s.posts.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			renderError(w, r, fmt.Errorf("post not found"), http.StatusNotFound)
			return
		}
		lgr.Printf("[ERROR] failed to get post: %v", err)
		renderError(w, r, fmt.Errorf("failed to get post"), http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, toPostJSON(*post))
}

// listFeedsHandler returns subscribed feeds, most recently fetched first
func (s *Server) listFeedsHandler(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r)
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	feeds, err := s.feeds.ScanRecent(r.Context(), offset, limit)
	if err != nil {
		lgr.Printf("[ERROR] failed to list feeds: %v", err)
		renderError(w, r, fmt.Errorf("failed to list feeds"), http.StatusInternalServerError)
		return
	}

	out := make([]feedJSON, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, toFeedJSON(f))
	}
	renderJSON(w, r, http.StatusOK, map[string]any{"feeds": out, "offset": offset, "limit": limit})
}

// getFeedHandler returns one feed by its key
func (s *Server) getFeedHandler(w http.ResponseWriter, r *http.Request) {
	f, err := s.feeds.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			renderError(w, r, fmt.Errorf("feed not found"), http.StatusNotFound)
			return
		}
		lgr.Printf("[ERROR] failed to get feed: %v", err)
		renderError(w, r, fmt.Errorf("failed to get feed"), http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, toFeedJSON(*f))
}

// addFeedHandler onboards a feed: it probes the URL, infers the feed
// family, reads the feed-level metadata and stores the subscription due
// for immediate fetch
func (s *Server) addFeedHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL   string `json:"url"`
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}

	parsed, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		renderError(w, r, fmt.Errorf("invalid feed url"), http.StatusBadRequest)
		return
	}
	feedURL := parsed.String()

	if _, err := s.feeds.Get(r.Context(), urlkey.ForURL(feedURL)); err == nil {
		renderError(w, r, fmt.Errorf("feed already subscribed"), http.StatusConflict)
		return
	}

	content, err := s.probe(r, feedURL)
	if err != nil {
		lgr.Printf("[WARN] feed probe failed for %s: %v", feedURL, err)
		renderError(w, r, fmt.Errorf("feed not reachable: %v", err), http.StatusUnprocessableEntity)
		return
	}

	feedType := feed.InferType(feedURL, content)
	reader, err := feed.NewReader(feedType, content)
	if err != nil {
		renderError(w, r, fmt.Errorf("not a parseable feed: %v", err), http.StatusUnprocessableEntity)
		return
	}
	meta := reader.Metadata()

	f := &domain.Feed{
		Key:         urlkey.ForURL(feedURL),
		URL:         feedURL,
		Title:       meta.Title,
		Description: meta.Description,
		Language:    meta.Language,
		Type:        feedType,
		Generator:   meta.Generator,
		Label:       req.Label,
	}
	if err := s.feeds.Insert(r.Context(), f); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			renderError(w, r, err, http.StatusUnprocessableEntity)
			return
		}
		lgr.Printf("[ERROR] failed to insert feed %s: %v", feedURL, err)
		renderError(w, r, fmt.Errorf("failed to store feed"), http.StatusInternalServerError)
		return
	}

	lgr.Printf("[INFO] subscribed feed %s (%s)", feedURL, feedType)
	renderJSON(w, r, http.StatusCreated, toFeedJSON(*f))
}

// deleteFeedHandler removes a feed and its fetch history
func (s *Server) deleteFeedHandler(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if _, err := s.feeds.Get(r.Context(), key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			renderError(w, r, fmt.Errorf("feed not found"), http.StatusNotFound)
			return
		}
		lgr.Printf("[ERROR] failed to get feed: %v", err)
		renderError(w, r, fmt.Errorf("failed to get feed"), http.StatusInternalServerError)
		return
	}

	if err := s.feeds.Delete(r.Context(), key); err != nil {
		lgr.Printf("[ERROR] failed to delete feed %s: %v", key, err)
		renderError(w, r, fmt.Errorf("failed to delete feed"), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// probe fetches the feed document once to verify it before subscribing
func (s *Server) probe(r *http.Request, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, feedURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// pageParams parses offset and limit query parameters with defaults
func pageParams(r *http.Request) (offset, limit int, err error) {
	limit = defaultPageSize
	q := r.URL.Query()

	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q", v)
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 || limit > maxPageSize {
			return 0, 0, fmt.Errorf("invalid limit %q", v)
		}
	}
	return offset, limit, nil
}

// renderJSON sends a JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends an error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"error": errMsg})
}
