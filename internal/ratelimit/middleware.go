package ratelimit

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/af-corp/aireader-gateway/internal/config"
	"github.com/af-corp/aireader-gateway/internal/httputil"
	"github.com/af-corp/aireader-gateway/internal/telemetry"
)

const (
	defaultRPM = 30

	headerRateLimitRequests          = "X-RateLimit-Limit-Requests"
	headerRateLimitRemainingRequests = "X-RateLimit-Remaining-Requests"
	headerRateLimitReset             = "X-RateLimit-Reset-Requests"
	headerRetryAfter                 = "Retry-After"
)

// Middleware returns chi middleware that enforces per-client request limits.
// Clients are identified by remote IP; mount it after middleware.RealIP.
// The settings are read on every request so reloads apply immediately.
func Middleware(limiter *Limiter, settings func() config.RateLimitConfig, metrics *telemetry.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg := settings()
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}
			reqID := httputil.RequestIDFromContext(r.Context())

			rpm := cfg.RequestsPerMinute
			if rpm <= 0 {
				rpm = defaultRPM
			}

			client := clientIP(r)
			result, _ := limiter.Check(r.Context(), "rpm:"+client, int64(rpm), time.Minute)

			// Always set rate limit headers
			w.Header().Set(headerRateLimitRequests, strconv.Itoa(rpm))
			w.Header().Set(headerRateLimitRemainingRequests, strconv.FormatInt(result.Remaining, 10))
			w.Header().Set(headerRateLimitReset, result.ResetAt.Format(time.RFC3339))

			if !result.Allowed {
				logger.Warn("rate limit exceeded",
					"request_id", reqID,
					"client", client,
					"limit", rpm,
				)
				if metrics != nil {
					metrics.RecordRateLimitHit()
				}
				retry := int(result.RetryAfter.Seconds())
				if retry < 1 {
					retry = 1
				}
				w.Header().Set(headerRetryAfter, strconv.Itoa(retry))
				httputil.WriteRateLimitError(w, reqID,
					fmt.Sprintf("Rate limit exceeded: %d requests per minute. Retry after %ds", rpm, retry))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
