package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/juristcu/juristcu-api/internal/config"
	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/core/ports"
	"github.com/juristcu/juristcu-api/internal/core/usecase"
	"github.com/juristcu/juristcu-api/internal/observability/metrics"
)

const (
	ServiceName = "juristcu-api"
	Version     = "1.0.0"

	healthPingTimeout = 2 * time.Second
)

var availableEndpoints = []string{
	"GET /api/v1/health",
	"GET /api/v1/info",
	"GET /api/v1/estatisticas",
	"POST /api/v1/analisar-caso",
}

// StorePinger reports document store connectivity for the health endpoint.
type StorePinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	cfg      config.Config
	analyzer ports.CaseAnalyzer
	stats    ports.CorpusStatsReader
	store    StorePinger
	taxonomy domain.Taxonomy
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewRouter(
	cfg config.Config,
	analyzer ports.CaseAnalyzer,
	stats ports.CorpusStatsReader,
	store StorePinger,
	taxonomy domain.Taxonomy,
) *Router {
	return &Router{
		cfg:      cfg,
		analyzer: analyzer,
		stats:    stats,
		store:    store,
		taxonomy: taxonomy,
		logger:   slog.Default(),
		now:      time.Now,
	}
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) WithLogger(logger *slog.Logger) *Router {
	if logger != nil {
		rt.logger = logger
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("/api/v1/info", rt.info)
	protectedMux.HandleFunc("/api/v1/estatisticas", rt.corpusStats)
	protectedMux.Handle("/api/v1/analisar-caso", backpressureMiddleware(
		http.HandlerFunc(rt.analyzeCase),
		rt.cfg.APIMaxConcurrentScans,
		time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond,
	))
	protected := rateLimitMiddleware(
		authMiddleware(rt.cfg.APIKey, rt.logger, protectedMux),
		rt.cfg.APIRateLimitRPS,
		rt.cfg.APIRateLimitBurst,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", rt.health)
	mux.Handle("/api/v1/info", protected)
	mux.Handle("/api/v1/estatisticas", protected)
	mux.Handle("/api/v1/analisar-caso", protected)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("/", rt.notFound)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(ServiceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	storeStatus := "desconectado"
	if rt.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := rt.store.Ping(ctx); err == nil {
			storeStatus = "conectado"
		} else {
			rt.logger.Warn("health_store_ping_failed", "error", err)
		}
	}

	gemini := "não configurado"
	if n := len(rt.cfg.GeminiKeys); n > 0 {
		gemini = fmt.Sprintf("%d chave(s)", n)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "online",
		"versao": Version,
		"servicos": map[string]string{
			"postgres": storeStatus,
			"gemini":   gemini,
			"claude":   configuredLabel(rt.cfg.AnthropicAPIKey != ""),
			"openai":   configuredLabel(rt.cfg.OpenAIAPIKey != ""),
		},
		"timestamp": rt.now().UTC().Format(time.RFC3339),
	})
}

func (rt *Router) info(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nome":      "JurisTCU API",
		"versao":    Version,
		"descricao": "API para análise e categorização de casos concretos baseado em acórdãos do TCU",
		"endpoints": map[string]string{
			"/api/v1/health":        "Verificar status da API (público)",
			"/api/v1/info":          "Informações sobre a API (requer autenticação)",
			"/api/v1/estatisticas":  "Estatísticas do banco de acórdãos (requer autenticação)",
			"/api/v1/analisar-caso": "Analisar caso concreto (POST, requer autenticação)",
		},
		"categorias_disponiveis": rt.taxonomy.CategoryNames(),
		"autenticacao":           "Necessário header X-API-Key ou Authorization: Bearer <key>",
		"comportamento": map[string]any{
			"processamento":           "Analisa os acórdãos processáveis do banco de dados, dos mais recentes para os mais antigos",
			"retorno":                 "Retorna apenas os acórdãos mais relevantes (definido por max_resultados)",
			"limite_retorno_padrao":   usecase.DefaultMaxResults,
			"limite_retorno_maximo":   usecase.MaxResultsCap,
			"limite_processamento":    usecase.MaxDocumentsCap,
			"percentual_minimo":       domain.QualifyingPercent,
			"total_criterios":         rt.taxonomy.CriteriaCount(),
			"caracteres_minimos_caso": usecase.MinCaseTextChars,
		},
	})
}

func (rt *Router) corpusStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	stats, err := rt.stats.Stats(r.Context())
	if err != nil {
		rt.logger.Error("corpus_stats_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		writeError(w, "Erro ao buscar estatísticas", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sucesso":                true,
		"total_acordaos":         stats.Total,
		"acordaos_processaveis":  stats.Processable,
		"acordaos_sem_texto":     stats.WithoutText(),
		"percentual_processavel": fmt.Sprintf("%.2f%%", stats.ProcessablePercent()),
	})
}

func (rt *Router) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"erro":                  "Endpoint não encontrado",
		"mensagem":              fmt.Sprintf("O endpoint %s %s não existe", r.Method, r.URL.Path),
		"endpoints_disponiveis": availableEndpoints,
	})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Erro:     "Método não permitido",
		Mensagem: fmt.Sprintf("Use %s %s", method, r.URL.Path),
	})
	return false
}

func configuredLabel(ok bool) string {
	if ok {
		return "configurado"
	}
	return "não configurado"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
