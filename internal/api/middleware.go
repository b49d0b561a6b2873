package api

import (
    "net"
    "net/http"
    "strconv"
    "strings"
    "sync"
    "time"

    "golang.org/x/time/rate"

    "staffcast/internal/metrics"
)

type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (r *statusRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware records request counts and latencies. The path label is
// the route pattern prefix, not the raw path, to keep cardinality bounded.
func MetricsMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
        start := time.Now()
        next.ServeHTTP(rec, r)
        path := routeLabel(r.URL.Path)
        status := strconv.Itoa(rec.status)
        metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
        metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
    })
}

func routeLabel(path string) string {
    for _, p := range []string{"/v1/forecasts/", "/v1/plans/", "/v1/subscriptions/"} {
        if strings.HasPrefix(path, p) && len(path) > len(p) {
            return p + ":id"
        }
    }
    return path
}

// Idle limiter entries are swept once the map crosses maxClients, so
// churning client IPs cannot grow it without bound.
const (
    maxClients = 4096
    clientTTL  = 10 * time.Minute
)

// RateLimiter applies a per-client token bucket keyed by remote IP. A zero
// rate disables limiting.
type RateLimiter struct {
    limit rate.Limit
    burst int
    mu    sync.Mutex
    byIP  map[string]*clientLimiter
}

type clientLimiter struct {
    lim  *rate.Limiter
    seen time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
    if burst <= 0 {
        burst = 1
    }
    return &RateLimiter{limit: rate.Limit(perSecond), burst: burst, byIP: map[string]*clientLimiter{}}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
    now := time.Now()
    rl.mu.Lock()
    defer rl.mu.Unlock()
    c, ok := rl.byIP[ip]
    if !ok {
        if len(rl.byIP) >= maxClients {
            rl.sweepLocked(now)
        }
        c = &clientLimiter{lim: rate.NewLimiter(rl.limit, rl.burst)}
        rl.byIP[ip] = c
    }
    c.seen = now
    return c.lim
}

// sweepLocked drops entries idle past the TTL; callers hold rl.mu.
func (rl *RateLimiter) sweepLocked(now time.Time) {
    for ip, c := range rl.byIP {
        if now.Sub(c.seen) > clientTTL {
            delete(rl.byIP, ip)
        }
    }
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
    if rl == nil || rl.limit <= 0 {
        return next
    }
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        ip, _, err := net.SplitHostPort(r.RemoteAddr)
        if err != nil {
            ip = r.RemoteAddr
        }
        if !rl.limiter(ip).Allow() {
            w.Header().Set("Retry-After", "1")
            writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded", r.URL.Path)
            return
        }
        next.ServeHTTP(w, r)
    })
}
