package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/samrato/QMMMUST/internal/config"
)

func sampleDecision(s sdktrace.Sampler) sdktrace.SamplingDecision {
	return s.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       oteltrace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		Name:          "gate-scan",
	}).Decision
}

func TestParseSampler(t *testing.T) {
	if got := sampleDecision(parseSampler("always_off", "")); got != sdktrace.Drop {
		t.Fatalf("always_off must drop, got %v", got)
	}
	if got := sampleDecision(parseSampler("traceidratio", "7")); got != sdktrace.RecordAndSample {
		t.Fatalf("ratio should clamp to 1, got %v", got)
	}
	if got := sampleDecision(parseSampler("parentbased", "0")); got != sdktrace.Drop {
		t.Fatalf("ratio 0 without sampled parent should drop, got %v", got)
	}
	if got := sampleDecision(parseSampler("", "")); got != sdktrace.RecordAndSample {
		t.Fatalf("default should sample, got %v", got)
	}
}

func TestParseHeaders(t *testing.T) {
	headers := parseHeaders([]string{"api-key=abc", " tenant = campus ", "broken"})
	if len(headers) != 2 || headers["api-key"] != "abc" || headers["tenant"] != "campus" {
		t.Fatalf("unexpected headers %v", headers)
	}
}

func TestInitWithoutEndpointAndHandler(t *testing.T) {
	shutdown, err := Init(context.Background(), &config.Config{ServiceName: "gatepass-test"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	defer shutdown(context.Background())

	h := Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), "test")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("expected wrapped handler to run, got %d", w.Code)
	}
}
