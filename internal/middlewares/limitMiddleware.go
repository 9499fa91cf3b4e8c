package middlewares

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"interiorly/internal/utils"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller. Authenticated callers are
// keyed by identity, everyone else by client IP.
type RateLimiter struct {
	name       string
	limit      rate.Limit
	burst      int
	trustProxy bool

	mu           sync.Mutex
	ipVisitors   map[string]*visitor
	userVisitors map[string]*visitor
}

func NewRateLimiter(name string, limit rate.Limit, burst int, trustProxy bool) *RateLimiter {
	return &RateLimiter{
		name:         name,
		limit:        limit,
		burst:        burst,
		trustProxy:   trustProxy,
		ipVisitors:   make(map[string]*visitor),
		userVisitors: make(map[string]*visitor),
	}
}

// NewWindowLimiter allows n requests per window per caller, refilling evenly.
func NewWindowLimiter(name string, n int, window time.Duration, trustProxy bool) *RateLimiter {
	if n < 1 {
		n = 1
	}
	return NewRateLimiter(name, rate.Every(window/time.Duration(n)), n, trustProxy)
}

func (l *RateLimiter) getLimiter(key string, isUser bool) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	visitors := l.ipVisitors
	if isUser {
		visitors = l.userVisitors
	}

	v, exists := visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		visitors[key] = v
	}
	v.lastSeen = time.Now()

	return v.limiter
}

// Cleanup drops callers idle for longer than ttl, every interval, until ctx is done.
func (l *RateLimiter) Cleanup(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(ttl)
		}
	}
}

func (l *RateLimiter) evict(ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.ipVisitors {
		if time.Since(v.lastSeen) > ttl {
			delete(l.ipVisitors, ip)
		}
	}
	for userID, v := range l.userVisitors {
		if time.Since(v.lastSeen) > ttl {
			delete(l.userVisitors, userID)
		}
	}
}

func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var limiter *rate.Limiter

		if claims, ok := r.Context().Value(utils.ClaimsContextKey).(*utils.Claims); ok && claims != nil {
			limiter = l.getLimiter(claims.ID, true)
		} else {
			limiter = l.getLimiter(utils.ClientIP(r, l.trustProxy), false)
		}

		if !limiter.Allow() {
			zerolog.Ctx(r.Context()).Warn().Str("limiter", l.name).Str("path", r.URL.Path).Msg("Rate limit exceeded")
			utils.RespondWithError(w, http.StatusTooManyRequests, "too many requests, try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}
