package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/juristcu/juristcu-api/internal/core/domain"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	return string(body)
}

func TestHTTPServerMetricsRecordsScanTelemetry(t *testing.T) {
	m := NewHTTPServerMetrics("juristcu-api")
	m.ProviderCall(domain.ProviderGemini, errors.New("429"), domain.KindQuotaExhausted)
	m.ProviderCall(domain.ProviderClaude, nil, "")
	m.ProviderFailover(domain.ProviderGemini, domain.ProviderClaude)
	m.ProviderFailover(domain.ProviderOpenAI, "")
	m.ParseFailure(domain.ProviderClaude)
	m.ScanFinished(&domain.ScanOutcome{
		DocumentsProcessed: 3,
		Halted:             true,
		HaltReason:         domain.HaltQuotaExhaustedAllProviders,
		Elapsed:            2 * time.Second,
	})
	m.ScanFinished(nil)

	body := scrape(t, m.Handler())
	for _, want := range []string{
		`juristcu_provider_calls_total{provider="gemini",result="error",service="juristcu-api"} 1`,
		`juristcu_provider_calls_total{provider="claude",result="ok",service="juristcu-api"} 1`,
		`juristcu_provider_failures_total{kind="quota_exhausted",provider="gemini",service="juristcu-api"} 1`,
		`juristcu_provider_failovers_total{from="gemini",service="juristcu-api",to="claude"} 1`,
		`juristcu_provider_failovers_total{from="openai",service="juristcu-api",to="none"} 1`,
		`juristcu_evaluation_parse_failures_total{provider="claude",service="juristcu-api"} 1`,
		`juristcu_scan_runs_total{outcome="quota_exhausted_all_providers",service="juristcu-api"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestHTTPMiddlewareCollapsesUnknownPaths(t *testing.T) {
	m := NewHTTPServerMetrics("juristcu-api")
	h := m.Middleware("juristcu-api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin/login.php", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health/", nil))

	body := scrape(t, m.Handler())
	if !strings.Contains(body, `juristcu_http_requests_total{method="GET",path="other",service="juristcu-api",status="404"} 1`) {
		t.Fatalf("expected unknown path to collapse into other:\n%s", body)
	}
	if !strings.Contains(body, `path="/api/v1/health"`) {
		t.Fatalf("expected health path label:\n%s", body)
	}
}

func TestWorkerMetricsFinishRecord(t *testing.T) {
	m := NewWorkerMetrics("juristcu-worker")
	m.StartRecord()
	m.FinishRecord("juristcu-worker", 10*time.Millisecond, nil)
	m.StartRecord()
	m.FinishRecord("juristcu-worker", 10*time.Millisecond, errors.New("insert failed"))
	m.ObserveQueueLag("juristcu-worker", -time.Second)

	body := scrape(t, m.Handler())
	for _, want := range []string{
		`juristcu_worker_scan_records_total{service="juristcu-worker",status="success"} 1`,
		`juristcu_worker_scan_records_total{service="juristcu-worker",status="error"} 1`,
		`juristcu_worker_scan_records_in_flight{service="juristcu-worker"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
