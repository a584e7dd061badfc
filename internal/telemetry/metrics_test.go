package telemetry

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/af-corp/aireader-gateway/internal/config"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func TestNewMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	if m.RequestTotal == nil {
		t.Error("RequestTotal should not be nil")
	}
	if m.AttemptTotal == nil {
		t.Error("AttemptTotal should not be nil")
	}
	if m.CursorAdvanceTotal == nil {
		t.Error("CursorAdvanceTotal should not be nil")
	}
	if m.RotationTotal == nil {
		t.Error("RotationTotal should not be nil")
	}
	if m.RateLimitHitTotal == nil {
		t.Error("RateLimitHitTotal should not be nil")
	}
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	// Registering twice on different registries must not panic.
	NewMetrics(prometheus.NewRegistry())
	NewMetrics(prometheus.NewRegistry())
}

func TestRecordRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRequest(RequestLabels{Kind: "text", Status: "success", DurationMs: 1500})
	m.RecordRequest(RequestLabels{Kind: "text", Status: "success", DurationMs: 800})
	m.RecordRequest(RequestLabels{Kind: "image", Status: "exhausted", DurationMs: 90000})

	if got := counterValue(t, m.RequestTotal.WithLabelValues("text", "success")); got != 2 {
		t.Errorf("expected 2 text successes, got %v", got)
	}
	if got := counterValue(t, m.RequestTotal.WithLabelValues("image", "exhausted")); got != 1 {
		t.Errorf("expected 1 image exhaustion, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() != "aireader_request_duration_ms" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetValue() == "text" && metric.GetHistogram().GetSampleCount() != 2 {
					t.Errorf("expected 2 text duration samples, got %d", metric.GetHistogram().GetSampleCount())
				}
			}
		}
	}
}

func TestRecordAttemptAndState(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordAttempt("text", "gemini-2.5-pro", "rate_limited", 120)
	m.RecordAttempt("text", "gemini-2.5-pro", "timeout", 0)
	m.RecordCursorAdvance("text")
	m.RecordRotation("image")
	m.RecordStateError("set_active")
	m.RecordRateLimitHit()

	if got := counterValue(t, m.AttemptTotal.WithLabelValues("text", "gemini-2.5-pro", "rate_limited")); got != 1 {
		t.Errorf("expected 1 rate_limited attempt, got %v", got)
	}
	if got := counterValue(t, m.CursorAdvanceTotal.WithLabelValues("text")); got != 1 {
		t.Errorf("expected 1 cursor advance, got %v", got)
	}
	if got := counterValue(t, m.RotationTotal.WithLabelValues("image")); got != 1 {
		t.Errorf("expected 1 rotation, got %v", got)
	}
	if got := counterValue(t, m.StateErrorTotal.WithLabelValues("set_active")); got != 1 {
		t.Errorf("expected 1 state error, got %v", got)
	}
	if got := counterValue(t, m.RateLimitHitTotal); got != 1 {
		t.Errorf("expected 1 rate limit hit, got %v", got)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, config.TelemetryConfig{LogLevel: "warn", LogFormat: "json"})

	logger.Info("dropped")
	logger.Warn("kept", "kind", "text")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %s", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry["msg"] != "kept" || entry["kind"] != "text" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"INFO":    "INFO",
		"warning": "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"verbose": "INFO",
	}
	for in, want := range tests {
		if got := parseLevel(in).String(); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
