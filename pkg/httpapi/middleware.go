package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/metrics"
)

// limiterIdleTTL is how long a caller's bucket survives without traffic
// before it is evicted.
const limiterIdleTTL = 10 * time.Minute

// keyPeekLimit caps how much of a request body the caller-key peek reads.
const keyPeekLimit = 1 << 20

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// callerLimiter enforces the per-caller request ceiling. Callers are keyed
// by owner identity when supplied, falling back to the remote address. Idle
// entries are swept lazily so the map stays bounded by active callers.
type callerLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	perMin    int
	now       func() time.Time
	lastSweep time.Time
}

func newCallerLimiter(perMinute int) *callerLimiter {
	return &callerLimiter{
		limiters: make(map[string]*limiterEntry),
		perMin:   perMinute,
		now:      time.Now,
	}
}

func (c *callerLimiter) allow(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= limiterIdleTTL {
		for k, e := range c.limiters {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(c.limiters, k)
			}
		}
		c.lastSweep = now
	}

	entry, ok := c.limiters[key]
	if !ok {
		entry = &limiterEntry{
			lim: rate.NewLimiter(rate.Every(time.Minute/time.Duration(c.perMin)), c.perMin),
		}
		c.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.lim.Allow()
}

// callerKey resolves the caller identity: the owner_id query parameter, the
// owner_id of a JSON request body (the search route carries it there), then
// the remote address. The body peek rewinds what it consumed so handlers
// decode the full body afterwards.
func callerKey(r *http.Request) string {
	if owner := r.URL.Query().Get("owner_id"); owner != "" {
		return owner
	}

	if r.Method == http.MethodPost && r.Body != nil {
		raw, err := io.ReadAll(io.LimitReader(r.Body, keyPeekLimit))
		if err == nil {
			r.Body = struct {
				io.Reader
				io.Closer
			}{io.MultiReader(bytes.NewReader(raw), r.Body), r.Body}

			var peek struct {
				OwnerID string `json:"owner_id"`
			}
			if json.Unmarshal(raw, &peek) == nil && peek.OwnerID != "" {
				return peek.OwnerID
			}
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// statusRecorder captures the status code for logging and metrics, and
// swallows duplicate WriteHeader calls so the recovery path can always go
// through the normal write helpers.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wrote {
		return
	}
	s.wrote = true
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wrote {
		s.WriteHeader(http.StatusOK)
	}
	return s.ResponseWriter.Write(b)
}

// middleware wraps a handler with rate limiting, a request deadline, panic
// recovery, tracing, logging and metrics. Route is the registered pattern,
// not the concrete path, to keep metric cardinality bounded.
func middleware(next http.HandlerFunc, route string, cfg Config, limiter *callerLimiter, l *logger.Logger, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		if !limiter.allow(callerKey(r)) {
			writeError(w, started, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), cfg.RequestTimeout)
		defer cancel()

		ctx, span := otel.Tracer("httpapi").Start(ctx, route)
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				l.Error("handler panicked", nil, map[string]interface{}{
					"route": route,
					"panic": p,
				})
				if rec.wrote {
					// The response already went out; record the failure for
					// metrics and logs only.
					rec.status = http.StatusInternalServerError
				} else {
					writeError(rec, started, http.StatusInternalServerError, CodeInternalError, "internal error")
				}
			}

			latency := time.Since(started)
			if m != nil {
				m.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
				m.HTTPLatency.WithLabelValues(route).Observe(latency.Seconds())
			}
			l.Debug("request served", nil, map[string]interface{}{
				"route":      route,
				"method":     r.Method,
				"status":     rec.status,
				"latency_ms": latency.Milliseconds(),
			})
		}()

		next(rec, r.WithContext(ctx))
	}
}
