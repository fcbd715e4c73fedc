package crawler

import (
	"context"
	"sync"
	"time"
)

// hostGate spaces outgoing requests per origin. Holding the per-host lock
// through the sleep also serializes concurrent callers hitting one host,
// which can happen when a post links to a page on another feed's origin.
type hostGate struct {
	delay time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	last  map[string]time.Time
}

func newHostGate(delay time.Duration) *hostGate {
	return &hostGate{
		delay: delay,
		locks: map[string]*sync.Mutex{},
		last:  map[string]time.Time{},
	}
}

// wait blocks until a request to host is allowed, then records it
func (g *hostGate) wait(ctx context.Context, host string) error {
	if g.delay <= 0 {
		return ctx.Err()
	}

	g.mu.Lock()
	lock, ok := g.locks[host]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[host] = lock
	}
	g.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	g.mu.Lock()
	pause := g.delay - time.Since(g.last[host])
	g.mu.Unlock()

	if pause > 0 {
		timer := time.NewTimer(pause)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	g.mu.Lock()
	g.last[host] = time.Now()
	g.mu.Unlock()
	return nil
}
