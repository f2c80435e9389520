package api

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// loadTestUserAgent is the designated user-agent that bypasses the rate
// limiter when ALLOW_LOAD_TEST is set (spec.md §5).
const loadTestUserAgent = "dlob-load-test"

// ipRateLimiter hands out one golang.org/x/time/rate.Limiter per
// source IP, created lazily on first sight. Grounded on the teacher's
// map+mutex idiom (OrderIndex, market.Registry) rather than any single
// example's rate-limit code, since none of the pack wires x/time/rate
// directly.
type ipRateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	perSecond   rate.Limit
	burst       int
	allowLoadTest bool
}

func newIPRateLimiter(callsPerSecond int, allowLoadTest bool) *ipRateLimiter {
	if callsPerSecond <= 0 {
		callsPerSecond = 1
	}
	return &ipRateLimiter{
		limiters:      make(map[string]*rate.Limiter),
		perSecond:     rate.Limit(callsPerSecond),
		burst:         callsPerSecond,
		allowLoadTest: allowLoadTest,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.perSecond, l.burst)
		l.limiters[ip] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// middleware wraps h with per-IP rate limiting, honoring the
// ALLOW_LOAD_TEST user-agent bypass (spec.md §5).
func (l *ipRateLimiter) middleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.allowLoadTest && r.Header.Get("User-Agent") == loadTestUserAgent {
			h.ServeHTTP(w, r)
			return
		}
		if !l.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		h.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// stripDLOBPrefix removes a leading "/dlob" path segment before
// routing, for load-balancer path-based routing (spec.md §6). An empty
// result becomes "/".
func stripDLOBPrefix(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/dlob") {
			r.URL.Path = strings.TrimPrefix(r.URL.Path, "/dlob")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
		}
		h.ServeHTTP(w, r)
	})
}
