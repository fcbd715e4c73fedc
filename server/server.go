// Package server exposes the read API over HTTP: post listings, feed
// listings and feed onboarding.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/readmoa/readmoa/pkg/domain"
)

// FeedStore is the feed side of the storage layer used by the server
type FeedStore interface {
	Insert(ctx context.Context, feed *domain.Feed) error
	Get(ctx context.Context, key string) (*domain.Feed, error)
	ScanRecent(ctx context.Context, offset, limit int) ([]domain.Feed, error)
	Delete(ctx context.Context, key string) error
}

// PostStore is the post side of the storage layer used by the server
type PostStore interface {
	Get(ctx context.Context, key string) (*domain.Post, error)
	Scan(ctx context.Context, offset, limit int, authorKey string) ([]domain.Post, error)
}

// Config holds server settings
type Config struct {
	Listen       string
	Timeout      time.Duration
	FetchTimeout time.Duration
	UserAgent    string
	Version      string
	Debug        bool
}

// Server represents the HTTP server instance
type Server struct {
	feeds  FeedStore
	posts  PostStore
	client *http.Client
	cfg    Config

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// New initializes a new server instance
func New(feeds FeedStore, posts PostStore, cfg Config) *Server {
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ReadMoa/1.0"
	}

	s := &Server{
		feeds:  feeds,
		posts:  posts,
		client: &http.Client{Timeout: cfg.FetchTimeout},
		cfg:    cfg,
		router: routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	lgr.Printf("[INFO] starting server on %s", s.cfg.Listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Timeout,
		WriteTimeout: s.cfg.Timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("readmoa", "readmoa", s.cfg.Version))
	s.router.Use(rest.Ping)

	if s.cfg.Debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /posts", s.listPostsHandler)
		r.HandleFunc("GET /posts/{key}", s.getPostHandler)
		r.HandleFunc("GET /feeds", s.listFeedsHandler)
		r.HandleFunc("POST /feeds", s.addFeedHandler)
		r.HandleFunc("GET /feeds/{key}", s.getFeedHandler)
		r.HandleFunc("DELETE /feeds/{key}", s.deleteFeedHandler)
	})
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"version": s.cfg.Version,
		"time":    time.Now().UTC(),
	}
	renderJSON(w, r, http.StatusOK, status)
}
