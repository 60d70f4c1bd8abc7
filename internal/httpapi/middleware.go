package httpapi

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the ID the audit layer assigned to the request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type middleware func(http.Handler) http.Handler

// wrap applies mws so that the first one sees the request first.
func wrap(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

func withTimeout(d time.Duration) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// withBearerToken rejects requests that do not carry "Bearer <token>".
func withBearerToken(token string, logger zerolog.Logger) middleware {
	want := []byte(token)
	logger = logger.With().Str("middleware", "auth").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, got, _ := strings.Cut(header, " ")

			var reason string
			switch {
			case header == "":
				reason = "missing Authorization header"
			case !strings.EqualFold(scheme, "bearer"):
				reason = "invalid Authorization format (expected 'Bearer <token>')"
			case subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1:
				reason = "invalid token"
			}
			if reason != "" {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Str("reason", reason).
					Msg("Rejected request")
				http.Error(w, "Unauthorized: "+reason, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// withRateLimit limits each remote host to limit requests per window.
func withRateLimit(limiter *RateLimiter, limit *RateLimit, logger zerolog.Logger) middleware {
	logger = logger.With().Str("middleware", "ratelimit").Logger()
	policy := fmt.Sprintf("%d;w=%d", limit.Requests, int(limit.Window.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := remoteHost(r)
			ok, remaining, reset := limiter.Allow(host, limit)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			h.Set("X-RateLimit-Policy", policy)

			if ok {
				next.ServeHTTP(w, r)
				return
			}

			wait := max(int(time.Until(reset).Seconds()), 1)
			logger.Warn().
				Str("client", host).
				Str("path", r.URL.Path).
				Stringer("rate_limit", limit).
				Int("retry_after_seconds", wait).
				Msg("Rate limit exceeded")
			h.Set("Retry-After", strconv.Itoa(wait))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		})
	}
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// withAudit tags each request with an ID and logs its outcome. A valid
// UUID sent by the client is reused.
func withAudit(logger zerolog.Logger) middleware {
	logger = logger.With().Str("component", "audit").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := r.Header.Get(RequestIDHeader)
			if uuid.Validate(id) != nil {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))

			level := zerolog.InfoLevel
			if r.URL.Path == "/health" {
				level = zerolog.DebugLevel
			}
			ev := logger.WithLevel(level).
				Str("request_id", id).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", rec.Status()).
				Dur("duration", time.Since(start))
			if ua := r.UserAgent(); ua != "" {
				ev = ev.Str("user_agent", ua)
			}
			if r.ContentLength > 0 {
				ev = ev.Int64("content_length", r.ContentLength)
			}
			ev.Msg("Request")
		})
	}
}

// statusRecorder remembers the first status code written.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
