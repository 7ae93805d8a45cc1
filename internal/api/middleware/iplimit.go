package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kiranshivaraju/listingscope/internal/api/response"
	"golang.org/x/time/rate"
)

const (
	defaultPublicRPS   = 5
	defaultPublicBurst = 20
	limiterIdleTTL     = 10 * time.Minute
	limiterSweepEvery  = 1024
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPLimit is an in-process token bucket per client IP, for routes that carry
// no API key. Run chi's RealIP before it when behind a proxy.
type IPLimit struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
	calls    int
}

// NewIPLimit creates a limiter allowing rps requests per second per IP with
// the given burst.
func NewIPLimit(rps float64, burst int) *IPLimit {
	if rps <= 0 {
		rps = defaultPublicRPS
	}
	if burst <= 0 {
		burst = defaultPublicBurst
	}
	return &IPLimit{
		rps:      rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Limit rejects requests from an IP whose bucket is empty.
func (l *IPLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *IPLimit) allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%limiterSweepEvery == 0 {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(l.visitors, k)
			}
		}
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *IPLimit) retryAfter() int {
	secs := int(1 / float64(l.rps))
	if secs < 1 {
		return 1
	}
	return secs
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
