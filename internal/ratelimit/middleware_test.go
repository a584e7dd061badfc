package ratelimit

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/af-corp/aireader-gateway/internal/config"
	"github.com/af-corp/aireader-gateway/internal/httputil"
	"github.com/af-corp/aireader-gateway/internal/telemetry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func settings(cfg config.RateLimitConfig) func() config.RateLimitConfig {
	return func() config.RateLimitConfig { return cfg }
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func request(remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/generate/text", nil)
	req.RemoteAddr = remote
	return req
}

func TestMiddleware_AllowsRequest(t *testing.T) {
	mw := Middleware(NewLimiter(nil, 5), settings(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100}), nil, discardLogger())
	handler := mw(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, request("10.0.0.1:5555"))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	// Check rate limit headers
	if h := rec.Header().Get(headerRateLimitRequests); h != "100" {
		t.Errorf("expected X-RateLimit-Limit-Requests=100, got %s", h)
	}
	if h := rec.Header().Get(headerRateLimitRemainingRequests); h == "" {
		t.Error("expected X-RateLimit-Remaining-Requests header")
	}
	if h := rec.Header().Get(headerRateLimitReset); h == "" {
		t.Error("expected X-RateLimit-Reset-Requests header")
	}
}

func TestMiddleware_DefaultRPM(t *testing.T) {
	mw := Middleware(NewLimiter(nil, 5), settings(config.RateLimitConfig{Enabled: true}), nil, discardLogger())
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, request("10.0.0.2:1"))

	if h := rec.Header().Get(headerRateLimitRequests); h != "30" {
		t.Errorf("expected default RPM=30, got %s", h)
	}
}

func TestMiddleware_Disabled_PassThrough(t *testing.T) {
	mw := Middleware(NewLimiter(nil, 1), settings(config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1}), nil, discardLogger())
	handler := mw(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, request("10.0.0.3:1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 with limiting disabled, got %d", i, rec.Code)
		}
	}
}

func TestMiddleware_Exceeded(t *testing.T) {
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	mw := Middleware(NewLimiter(nil, 2), settings(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}), metrics, discardLogger())
	handler := httputil.RequestID(mw(okHandler()))

	var rec *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, request("10.0.0.4:1234"))
	}

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third request, got %d", rec.Code)
	}
	if rec.Header().Get(headerRetryAfter) == "" {
		t.Error("expected Retry-After header")
	}

	var apiErr httputil.APIError
	if err := json.NewDecoder(rec.Body).Decode(&apiErr); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if apiErr.Error.Code != "rate_limit_exceeded" || apiErr.Error.RequestID == "" {
		t.Errorf("unexpected error body %+v", apiErr.Error)
	}

	var metric dto.Metric
	metrics.RateLimitHitTotal.Write(&metric)
	if metric.GetCounter().GetValue() != 1 {
		t.Errorf("expected 1 rate limit hit, got %v", metric.GetCounter().GetValue())
	}

	// A different client is unaffected.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, request("10.0.0.5:1234"))
	if rec.Code != http.StatusOK {
		t.Errorf("other client should pass, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := map[string]string{
		"192.168.1.10:443": "192.168.1.10",
		"[::1]:8080":       "::1",
		"10.1.1.1":         "10.1.1.1",
	}
	for in, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = in
		if got := clientIP(r); got != want {
			t.Errorf("clientIP(%q) = %q, want %q", in, got, want)
		}
	}
}
