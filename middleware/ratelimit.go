// Package middleware provides the echo middleware used by the CaseDesk server
package middleware

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/yshengliao/casedesk/response"
)

const (
	limiterSweepInterval = time.Minute
	limiterIdleTTL       = 10 * time.Minute
)

// RateLimiter decides whether a request identified by key may proceed.
type RateLimiter interface {
	Allow(key string) bool
	Reset(key string)
}

// RateLimitConfig configures RateLimitMiddleware. Store is required.
type RateLimitConfig struct {
	Store RateLimiter

	// KeyFunc defaults to the client's real IP.
	KeyFunc func(c echo.Context) string
	// ErrorHandler defaults to a 429 response envelope.
	ErrorHandler func(c echo.Context) error
	SkipFunc     func(c echo.Context) bool
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryStore keeps one token bucket per key and drops buckets that have
// been idle for a while.
type MemoryStore struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a store allowing perSecond requests per key with
// the given burst. Call Stop to release the sweeper goroutine.
func NewMemoryStore(perSecond int, burst int) *MemoryStore {
	s := &MemoryStore{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go s.sweep(limiterSweepInterval, limiterIdleTTL)
	return s
}

func (s *MemoryStore) Allow(key string) bool {
	now := time.Now()

	s.mu.Lock()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	s.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

func (s *MemoryStore) Reset(key string) {
	s.mu.Lock()
	delete(s.buckets, key)
	s.mu.Unlock()
}

// Size returns the number of tracked keys.
func (s *MemoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// Stop ends the sweeper. It is safe to call more than once.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemoryStore) sweep(every, ttl time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			s.mu.Lock()
			for key, b := range s.buckets {
				if now.Sub(b.lastSeen) > ttl {
					delete(s.buckets, key)
				}
			}
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

// RateLimitMiddleware rejects requests whose key has exhausted its bucket.
func RateLimitMiddleware(config *RateLimitConfig) echo.MiddlewareFunc {
	cfg := *config
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c echo.Context) string { return c.RealIP() }
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c echo.Context) error {
			return response.TooManyRequests(c, "rate limit exceeded")
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.SkipFunc != nil && cfg.SkipFunc(c) {
				return next(c)
			}
			if !cfg.Store.Allow(cfg.KeyFunc(c)) {
				return cfg.ErrorHandler(c)
			}
			return next(c)
		}
	}
}

// RateLimitByIP rate limits requests per client IP using store.
func RateLimitByIP(store RateLimiter) echo.MiddlewareFunc {
	return RateLimitMiddleware(&RateLimitConfig{Store: store})
}
