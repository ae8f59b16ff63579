package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"unicode/utf8"

	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/core/ports"
)

const (
	maxAnalyzeBodyBytes = 1 << 20
	caseEchoChars       = 200
)

type analyzeRequest struct {
	CasoConcreto  json.RawMessage `json:"caso_concreto"`
	MaxResultados int             `json:"max_resultados"`
	MaxAcordaos   int             `json:"max_acordaos"`
}

type resultItem struct {
	Acordao          domain.AcordaoRef          `json:"acordao"`
	Categorias       []domain.SubcategoryResult `json:"categorias"`
	MelhorPercentual float64                    `json:"melhor_percentual"`
}

type analyzeResponse struct {
	Sucesso                bool          `json:"sucesso"`
	CasoConcreto           string        `json:"caso_concreto"`
	TotalAcordaosBanco     int           `json:"total_acordaos_banco"`
	AcordaosProcessados    int           `json:"acordaos_processados"`
	AcordaosRelevantes     int           `json:"acordaos_relevantes_encontrados"`
	AcordaosRetornados     int           `json:"acordaos_retornados"`
	TempoProcessamentoSegs float64       `json:"tempo_processamento_segundos"`
	Resultados             []resultItem  `json:"resultados"`
	Estatisticas           scanStatistic `json:"estatisticas"`
}

type scanStatistic struct {
	ProvedorAtivo       domain.ProviderID                           `json:"provedor_ativo,omitempty"`
	Provedores          map[domain.ProviderID]domain.ProviderStatus `json:"provedores"`
	ChaveGeminiAtual    int                                         `json:"chave_gemini_atual"`
	ChavesGemini        int                                         `json:"chaves_gemini"`
	QuotaClaudeExcedida bool                                        `json:"quota_claude_excedida"`
	QuotaOpenAIExcedida bool                                        `json:"quota_openai_excedida"`
	ProgressoPercentual string                                      `json:"progresso_percentual"`
}

type haltedResponse struct {
	Erro                   string            `json:"erro"`
	Mensagem               string            `json:"mensagem"`
	Motivo                 domain.HaltReason `json:"motivo"`
	Detalhes               map[string]string `json:"detalhes"`
	ResultadosParciais     []resultItem      `json:"resultados_parciais"`
	AcordaosProcessados    int               `json:"acordaos_processados"`
	TotalAcordaos          int               `json:"total_acordaos"`
	ProgressoPercentual    string            `json:"progresso_percentual"`
	TempoProcessamentoSegs float64           `json:"tempo_processamento_segundos"`
}

func (rt *Router) analyzeCase(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	requestID := requestIDFromContext(r.Context())

	var body analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBodyBytes)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Erro:     "Parâmetro inválido",
			Mensagem: "O corpo da requisição deve ser um JSON válido",
		})
		return
	}
	caseText, ok := decodeCaseText(body.CasoConcreto)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Erro:     "Parâmetro inválido",
			Mensagem: `O campo "caso_concreto" é obrigatório e deve ser uma string`,
		})
		return
	}

	rt.logger.Info("scan_requested",
		"request_id", requestID,
		"case_chars", utf8.RuneCountInString(caseText),
		"max_resultados", body.MaxResultados,
		"max_acordaos", body.MaxAcordaos,
	)

	outcome, err := rt.analyzer.Analyze(r.Context(), ports.AnalyzeRequest{
		CaseText:     caseText,
		MaxResults:   body.MaxResultados,
		MaxDocuments: body.MaxAcordaos,
		RequestID:    requestID,
	})
	if err != nil {
		rt.writeAnalyzeError(w, requestID, err)
		return
	}

	if outcome.Halted {
		writeJSON(w, http.StatusServiceUnavailable, newHaltedResponse(outcome))
		return
	}
	writeJSON(w, http.StatusOK, newAnalyzeResponse(caseText, outcome))
}

func (rt *Router) writeAnalyzeError(w http.ResponseWriter, requestID string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Erro:     "Caso muito curto",
			Mensagem: "O caso concreto deve ter pelo menos 50 caracteres",
		})
	case errors.Is(err, domain.ErrCorpusEmpty):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Erro:     "Nenhum acórdão encontrado",
			Mensagem: "Não há acórdãos com texto processado no banco de dados",
		})
	default:
		rt.logger.Error("scan_failed", "request_id", requestID, "error", err)
		writeError(w, "Erro interno do servidor", err)
	}
}

// decodeCaseText accepts only a non-empty JSON string.
func decodeCaseText(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil || text == "" {
		return "", false
	}
	return text, true
}

func newAnalyzeResponse(caseText string, outcome *domain.ScanOutcome) analyzeResponse {
	return analyzeResponse{
		Sucesso:                true,
		CasoConcreto:           echoCase(caseText),
		TotalAcordaosBanco:     outcome.TotalDocuments,
		AcordaosProcessados:    outcome.DocumentsProcessed,
		AcordaosRelevantes:     outcome.RelevantFound,
		AcordaosRetornados:     len(outcome.Results),
		TempoProcessamentoSegs: elapsedSeconds(outcome),
		Resultados:             toResultItems(outcome.Results),
		Estatisticas: scanStatistic{
			ProvedorAtivo:       outcome.Providers.Active,
			Provedores:          outcome.Providers.Providers,
			ChaveGeminiAtual:    outcome.Providers.GeminiKeyIndex,
			ChavesGemini:        outcome.Providers.GeminiKeyCount,
			QuotaClaudeExcedida: outcome.Providers.Providers[domain.ProviderClaude] == domain.ProviderExhausted,
			QuotaOpenAIExcedida: outcome.Providers.Providers[domain.ProviderOpenAI] == domain.ProviderExhausted,
			ProgressoPercentual: formatPercent(outcome.ProgressPercent()),
		},
	}
}

func newHaltedResponse(outcome *domain.ScanOutcome) haltedResponse {
	resp := haltedResponse{
		Erro:                   "Serviços de IA indisponíveis",
		Mensagem:               "Todas as opções de IA estão indisponíveis no momento.",
		Motivo:                 outcome.HaltReason,
		Detalhes:               providerDetails(outcome.Providers),
		ResultadosParciais:     toResultItems(outcome.Results),
		AcordaosProcessados:    outcome.DocumentsProcessed,
		TotalAcordaos:          outcome.TotalDocuments,
		ProgressoPercentual:    formatPercent(outcome.ProgressPercent()),
		TempoProcessamentoSegs: elapsedSeconds(outcome),
	}
	if outcome.HaltReason == domain.HaltNoProvidersConfigured {
		resp.Mensagem = "Nenhum provedor de IA está configurado."
	}
	return resp
}

func providerDetails(state domain.ProviderState) map[string]string {
	details := make(map[string]string, len(domain.ProviderChain))
	for _, p := range domain.ProviderChain {
		status := state.Providers[p]
		switch {
		case status == domain.ProviderNotConfigured || status == "":
			details[string(p)] = "Não configurado"
		case status == domain.ProviderExhausted && p == domain.ProviderGemini:
			details[string(p)] = "Todas as chaves falharam"
		case status == domain.ProviderExhausted:
			details[string(p)] = "Quota excedida"
		default:
			details[string(p)] = "Disponível"
		}
	}
	return details
}

func toResultItems(results []domain.DocumentResult) []resultItem {
	items := make([]resultItem, 0, len(results))
	for _, res := range results {
		items = append(items, resultItem{
			Acordao:          res.Acordao,
			Categorias:       res.Categorias,
			MelhorPercentual: res.MelhorPercentual,
		})
	}
	return items
}

func elapsedSeconds(outcome *domain.ScanOutcome) float64 {
	return math.Round(outcome.Elapsed.Seconds()*100) / 100
}

func echoCase(text string) string {
	runes := []rune(text)
	if len(runes) > caseEchoChars {
		runes = runes[:caseEchoChars]
	}
	return string(runes) + "..."
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
