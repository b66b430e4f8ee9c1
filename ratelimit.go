package apikit

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	Rate            float64                                      // requests per second
	Burst           int                                          // max burst
	KeyFunc         func(r *http.Request) string                 // default: remote IP
	OnLimit         func(w http.ResponseWriter, r *http.Request) // default: 429 error body
	CleanupInterval time.Duration                                // how often to prune idle limiters (default: 1m)
	MaxIdle         time.Duration                                // remove limiters idle longer than this (default: 5m)
}

func (c *RateLimitConfig) defaults() {
	if c.KeyFunc == nil {
		c.KeyFunc = remoteHost
	}
	if c.OnLimit == nil {
		c.OnLimit = func(w http.ResponseWriter, _ *http.Request) {
			WriteError(w, CodedError(http.StatusTooManyRequests, CodeRateLimited, http.StatusText(http.StatusTooManyRequests)))
		}
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Minute
	}
	if c.MaxIdle <= 0 {
		c.MaxIdle = 5 * time.Minute
	}
}

// RateLimit returns middleware that applies per-key rate limiting.
func RateLimit(cfg RateLimitConfig) Middleware {
	cfg.defaults()
	set := newLimiterSet(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !set.allow(cfg.KeyFunc(r)) {
				w.Header().Set("Retry-After", retryAfter(cfg.Rate))
				cfg.OnLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// EndpointRateLimit gives every endpoint its own budget, so a busy
// endpoint cannot starve the others of the same registry.
func EndpointRateLimit(cfg RateLimitConfig) EndpointMiddleware {
	return func(Endpoint) Middleware {
		return RateLimit(cfg)
	}
}

// limiterSet holds one token bucket per key and lazily prunes idle ones.
type limiterSet struct {
	cfg         RateLimitConfig
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterSet(cfg RateLimitConfig) *limiterSet {
	return &limiterSet{cfg: cfg, limiters: make(map[string]*limiterEntry)}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	now := time.Now()

	if now.Sub(s.lastCleanup) >= s.cfg.CleanupInterval {
		for k, e := range s.limiters {
			if now.Sub(e.lastSeen) > s.cfg.MaxIdle {
				delete(s.limiters, k)
			}
		}
		s.lastCleanup = now
	}

	entry, ok := s.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(s.cfg.Rate), s.cfg.Burst)}
		s.limiters[key] = entry
	}
	entry.lastSeen = now
	s.mu.Unlock()

	return entry.limiter.Allow()
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func retryAfter(perSecond float64) string {
	if perSecond <= 0 {
		return "1"
	}
	secs := int(1/perSecond + 0.999)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
