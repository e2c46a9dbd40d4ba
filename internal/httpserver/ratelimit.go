package httpserver

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig sets the token bucket applied to each key.
type RateLimitConfig struct {
	Rate            rate.Limit
	Burst           int
	CleanupInterval time.Duration
}

// PerMinute allows n requests per minute per client, with a burst of n.
func PerMinute(n int) RateLimitConfig {
	if n <= 0 {
		n = 1
	}
	return RateLimitConfig{
		Rate:            rate.Limit(float64(n) / 60.0),
		Burst:           n,
		CleanupInterval: 5 * time.Minute,
	}
}

// PerHour allows n requests per hour per key, with a burst of n.
func PerHour(n int) RateLimitConfig {
	if n <= 0 {
		n = 1
	}
	return RateLimitConfig{
		Rate:            rate.Limit(float64(n) / 3600.0),
		Burst:           n,
		CleanupInterval: time.Hour,
	}
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per key, a client IP or an account email.
type RateLimiter struct {
	config   RateLimitConfig
	observer RequestObserver
	logger   *slog.Logger
	nowFunc  func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter starts a limiter with a background sweep of idle clients.
func NewRateLimiter(config RateLimitConfig, observer RequestObserver, logger *slog.Logger) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		config:   config,
		observer: observer,
		logger:   logger,
		nowFunc:  time.Now,
		clients:  make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the background sweep. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			rl.reject(w, r, "client_ip")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Allow spends one token from the bucket of key.
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.nowFunc()
	return rl.limiterFor(key, now).AllowN(now, 1)
}

// reject answers 429. scope names what the bucket was keyed on; the key
// itself is not logged.
func (rl *RateLimiter) reject(w http.ResponseWriter, r *http.Request, scope string) {
	route := r.URL.Path
	rl.observer.RecordRateLimited(route)
	rl.logger.WarnContext(r.Context(), "rate limit exceeded",
		slog.String("scope", scope),
		slog.String("client_ip", clientIP(r)),
		slog.String("path", route),
	)
	w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, try again later")
}

// ClientCount reports the number of tracked clients.
func (rl *RateLimiter) ClientCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if cl, ok := rl.clients[key]; ok {
		cl.lastAccess = now
		return cl.limiter
	}
	cl := &clientLimiter{
		limiter:    rate.NewLimiter(rl.config.Rate, rl.config.Burst),
		lastAccess: now,
	}
	rl.clients[key] = cl
	return cl.limiter
}

func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.config.Rate <= 0 {
		return 60
	}
	sec := int(math.Ceil(1.0/float64(rl.config.Rate) - 1e-9))
	if sec < 1 {
		sec = 1
	}
	return sec
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(rl.nowFunc())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup forgets clients idle for more than two cleanup intervals.
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, cl := range rl.clients {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.clients, key)
		}
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
