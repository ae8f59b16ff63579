package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/juristcu/juristcu-api/internal/config"
	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/core/ports"
	"github.com/juristcu/juristcu-api/internal/observability/metrics"
)

const testAPIKey = "tcu_test_key_123"

var longCase = strings.Repeat("Contratação emergencial sem licitação. ", 3)

type analyzerFake struct {
	outcome *domain.ScanOutcome
	err     error
	got     []ports.AnalyzeRequest
}

func (f *analyzerFake) Analyze(_ context.Context, req ports.AnalyzeRequest) (*domain.ScanOutcome, error) {
	f.got = append(f.got, req)
	return f.outcome, f.err
}

type statsFake struct {
	stats domain.CorpusStats
	err   error
}

func (f statsFake) Stats(context.Context) (domain.CorpusStats, error) {
	return f.stats, f.err
}

type pingFake struct{ err error }

func (f pingFake) Ping(context.Context) error { return f.err }

func testConfig() config.Config {
	return config.Config{
		APIKey:                testAPIKey,
		GeminiKeys:            []string{"g1", "g2"},
		OpenAIAPIKey:          "sk",
		APIMaxConcurrentScans: 2,
		APIBackpressureWaitMS: 50,
	}
}

func testTaxonomy() domain.Taxonomy {
	return domain.Taxonomy{Categories: []domain.Category{{
		Name: "Licitações e Contratos",
		Subcategories: []domain.Subcategory{{
			Name:     "Dispensa indevida",
			Criteria: []string{"a", "b"},
		}},
	}}}
}

func newTestRouter(analyzer ports.CaseAnalyzer, stats ports.CorpusStatsReader, store StorePinger) *Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := NewRouter(testConfig(), analyzer, stats, store, testTaxonomy()).WithLogger(logger)
	rt.now = func() time.Time { return time.Date(2025, 11, 17, 10, 0, 0, 0, time.UTC) }
	return rt
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, key string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)

	var payload map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return res, payload
}

func TestHealthIsPublicAndReportsServices(t *testing.T) {
	h := newTestRouter(&analyzerFake{}, statsFake{}, pingFake{}).Handler()

	res, payload := doRequest(t, h, http.MethodGet, "/api/v1/health", nil, "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
	services := payload["servicos"].(map[string]any)
	if services["postgres"] != "conectado" || services["gemini"] != "2 chave(s)" ||
		services["claude"] != "não configurado" || services["openai"] != "configurado" {
		t.Fatalf("unexpected services: %v", services)
	}
	if payload["timestamp"] != "2025-11-17T10:00:00Z" || payload["status"] != "online" {
		t.Fatalf("unexpected health payload: %v", payload)
	}

	h = newTestRouter(&analyzerFake{}, statsFake{}, pingFake{err: errors.New("down")}).Handler()
	_, payload = doRequest(t, h, http.MethodGet, "/api/v1/health", nil, "")
	if payload["servicos"].(map[string]any)["postgres"] != "desconectado" {
		t.Fatalf("expected disconnected store, got %v", payload["servicos"])
	}
}

func TestProtectedRoutesRequireAPIKey(t *testing.T) {
	h := newTestRouter(&analyzerFake{}, statsFake{}, pingFake{}).Handler()

	res, payload := doRequest(t, h, http.MethodGet, "/api/v1/info", nil, "")
	if res.Code != http.StatusUnauthorized || payload["erro"] != "API Key não fornecida" {
		t.Fatalf("expected 401, got %d %v", res.Code, payload)
	}

	res, payload = doRequest(t, h, http.MethodGet, "/api/v1/info", nil, "tcu_wrong")
	if res.Code != http.StatusForbidden || payload["erro"] != "API Key inválida" {
		t.Fatalf("expected 403, got %d %v", res.Code, payload)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/info", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected bearer token to be accepted, got %d", rec.Code)
	}
}

func TestInfoListsTaxonomyCategories(t *testing.T) {
	h := newTestRouter(&analyzerFake{}, statsFake{}, pingFake{}).Handler()

	res, payload := doRequest(t, h, http.MethodGet, "/api/v1/info", nil, testAPIKey)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	cats := payload["categorias_disponiveis"].([]any)
	if len(cats) != 1 || cats[0] != "Licitações e Contratos" {
		t.Fatalf("unexpected categories: %v", cats)
	}
	behavior := payload["comportamento"].(map[string]any)
	if behavior["limite_retorno_padrao"].(float64) != 10 || behavior["limite_retorno_maximo"].(float64) != 100 {
		t.Fatalf("unexpected behavior: %v", behavior)
	}
}

func TestCorpusStats(t *testing.T) {
	h := newTestRouter(&analyzerFake{}, statsFake{stats: domain.CorpusStats{Total: 200, Processable: 150}}, pingFake{}).Handler()

	res, payload := doRequest(t, h, http.MethodGet, "/api/v1/estatisticas", nil, testAPIKey)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if payload["acordaos_sem_texto"].(float64) != 50 || payload["percentual_processavel"] != "75.00%" {
		t.Fatalf("unexpected stats payload: %v", payload)
	}

	storeErr := domain.WrapError(domain.ErrTemporary, "postgres.count_acordaos", errors.New("conn refused"))
	h = newTestRouter(&analyzerFake{}, statsFake{err: storeErr}, pingFake{}).Handler()
	res, payload = doRequest(t, h, http.MethodGet, "/api/v1/estatisticas", nil, testAPIKey)
	if res.Code != http.StatusServiceUnavailable || payload["erro"] != "Erro ao buscar estatísticas" {
		t.Fatalf("expected 503, got %d %v", res.Code, payload)
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	h := newTestRouter(&analyzerFake{}, statsFake{}, pingFake{}).Handler()

	res, payload := doRequest(t, h, http.MethodDelete, "/api/v2/anything", nil, "")
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	if payload["mensagem"] != "O endpoint DELETE /api/v2/anything não existe" {
		t.Fatalf("unexpected message: %v", payload["mensagem"])
	}
	if len(payload["endpoints_disponiveis"].([]any)) != 4 {
		t.Fatalf("expected endpoint list, got %v", payload["endpoints_disponiveis"])
	}
}

func TestAnalyzeRejectsMissingOrNonStringCase(t *testing.T) {
	analyzer := &analyzerFake{}
	h := newTestRouter(analyzer, statsFake{}, pingFake{}).Handler()

	for name, body := range map[string]any{
		"missing":  map[string]any{"max_resultados": 5},
		"number":   map[string]any{"caso_concreto": 42},
		"empty":    map[string]any{"caso_concreto": ""},
		"bad json": "{",
	} {
		res, payload := doRequest(t, h, http.MethodPost, "/api/v1/analisar-caso", body, testAPIKey)
		if res.Code != http.StatusBadRequest || payload["erro"] != "Parâmetro inválido" {
			t.Fatalf("%s: expected 400, got %d %v", name, res.Code, payload)
		}
	}
	if len(analyzer.got) != 0 {
		t.Fatalf("expected no analyzer calls, got %d", len(analyzer.got))
	}
}

func TestAnalyzeMapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		title  string
	}{
		{domain.WrapError(domain.ErrInvalidInput, "analyze case", errors.New("short")), http.StatusBadRequest, "Caso muito curto"},
		{domain.WrapError(domain.ErrCorpusEmpty, "analyze case", errors.New("none")), http.StatusNotFound, "Nenhum acórdão encontrado"},
		{errors.New("boom"), http.StatusInternalServerError, "Erro interno do servidor"},
	}
	for _, tc := range cases {
		h := newTestRouter(&analyzerFake{err: tc.err}, statsFake{}, pingFake{}).Handler()
		res, payload := doRequest(t, h, http.MethodPost, "/api/v1/analisar-caso", map[string]any{"caso_concreto": longCase}, testAPIKey)
		if res.Code != tc.status || payload["erro"] != tc.title {
			t.Fatalf("%v: expected %d %q, got %d %v", tc.err, tc.status, tc.title, res.Code, payload)
		}
	}
}

func TestAnalyzeReturnsRankedResults(t *testing.T) {
	outcome := &domain.ScanOutcome{
		Results: []domain.DocumentResult{{
			Acordao:          domain.AcordaoRef{ID: 1, Numero: "1234", Ano: 2024},
			Categorias:       []domain.SubcategoryResult{{Categoria: "Licitações e Contratos", Subcategoria: "Dispensa indevida", PercentualAtendimento: 100}},
			MelhorPercentual: 100,
		}},
		DocumentsProcessed: 4,
		TotalDocuments:     4,
		RelevantFound:      1,
		Elapsed:            1500 * time.Millisecond,
		Providers: domain.ProviderState{
			Active: domain.ProviderOpenAI,
			Providers: map[domain.ProviderID]domain.ProviderStatus{
				domain.ProviderGemini: domain.ProviderExhausted,
				domain.ProviderClaude: domain.ProviderNotConfigured,
				domain.ProviderOpenAI: domain.ProviderActive,
			},
		},
	}
	analyzer := &analyzerFake{outcome: outcome}
	h := newTestRouter(analyzer, statsFake{}, pingFake{}).Handler()

	res, payload := doRequest(t, h, http.MethodPost, "/api/v1/analisar-caso",
		map[string]any{"caso_concreto": longCase, "max_resultados": 5, "max_acordaos": 20}, testAPIKey)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", res.Code, payload)
	}
	if len(analyzer.got) != 1 {
		t.Fatalf("expected one analyzer call")
	}
	got := analyzer.got[0]
	if got.CaseText != longCase || got.MaxResults != 5 || got.MaxDocuments != 20 || got.RequestID == "" {
		t.Fatalf("unexpected analyze request: %+v", got)
	}
	if payload["sucesso"] != true || payload["acordaos_retornados"].(float64) != 1 || payload["tempo_processamento_segundos"].(float64) != 1.5 {
		t.Fatalf("unexpected payload: %v", payload)
	}
	results := payload["resultados"].([]any)
	first := results[0].(map[string]any)
	if first["melhor_percentual"] != float64(100) {
		t.Fatalf("expected melhor_percentual on result item: %v", first)
	}
	stats := payload["estatisticas"].(map[string]any)
	if stats["provedor_ativo"] != "openai" || stats["progresso_percentual"] != "100.00" {
		t.Fatalf("unexpected statistics: %v", stats)
	}
}

func TestAnalyzeHaltedScanReturns503WithPartialResults(t *testing.T) {
	outcome := &domain.ScanOutcome{
		Results: []domain.DocumentResult{{
			Acordao:          domain.AcordaoRef{ID: 9, Numero: "9", Ano: 2023},
			MelhorPercentual: 60,
		}},
		DocumentsProcessed: 1,
		TotalDocuments:     3,
		Elapsed:            time.Second,
		Halted:             true,
		HaltReason:         domain.HaltQuotaExhaustedAllProviders,
		Providers: domain.ProviderState{
			AllExhausted: true,
			Providers: map[domain.ProviderID]domain.ProviderStatus{
				domain.ProviderGemini: domain.ProviderExhausted,
				domain.ProviderClaude: domain.ProviderExhausted,
				domain.ProviderOpenAI: domain.ProviderNotConfigured,
			},
		},
	}
	h := newTestRouter(&analyzerFake{outcome: outcome}, statsFake{}, pingFake{}).Handler()

	res, payload := doRequest(t, h, http.MethodPost, "/api/v1/analisar-caso", map[string]any{"caso_concreto": longCase}, testAPIKey)
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
	if payload["motivo"] != "quota_exhausted_all_providers" || payload["progresso_percentual"] != "33.33" {
		t.Fatalf("unexpected halt payload: %v", payload)
	}
	details := payload["detalhes"].(map[string]any)
	if details["gemini"] != "Todas as chaves falharam" || details["claude"] != "Quota excedida" || details["openai"] != "Não configurado" {
		t.Fatalf("unexpected details: %v", details)
	}
	partial := payload["resultados_parciais"].([]any)
	if len(partial) != 1 {
		t.Fatalf("expected one partial result, got %v", partial)
	}
	if item := partial[0].(map[string]any); item["melhor_percentual"] != float64(60) {
		t.Fatalf("expected melhor_percentual on partial result: %v", item)
	}
	if payload["tempo_processamento_segundos"] != float64(1) {
		t.Fatalf("expected elapsed seconds on halt payload: %v", payload)
	}
}

func TestAnalyzeRejectsGet(t *testing.T) {
	h := newTestRouter(&analyzerFake{}, statsFake{}, pingFake{}).Handler()
	res, _ := doRequest(t, h, http.MethodGet, "/api/v1/analisar-caso", nil, testAPIKey)
	if res.Code != http.StatusMethodNotAllowed || res.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("expected 405 with Allow header, got %d", res.Code)
	}
}

func TestMetricsEndpointIsServedWhenConfigured(t *testing.T) {
	m := metrics.NewHTTPServerMetrics(ServiceName)
	h := newTestRouter(&analyzerFake{}, statsFake{}, pingFake{}).WithMetrics(m).Handler()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "juristcu_http_requests_total") {
		t.Fatalf("expected prometheus output, got %d", res.Code)
	}
}
