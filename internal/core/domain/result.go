package domain

import (
	"sort"
	"time"
)

// QualifyingPercent is the minimum subcategory score for a document to be reported.
const QualifyingPercent = 60.0

type Evaluation struct {
	Numero        int        `json:"numero"`
	Texto         string     `json:"texto"`
	Atende        bool       `json:"atende"`
	Justificativa string     `json:"justificativa"`
	Provider      ProviderID `json:"provider,omitempty"`
}

type SubcategoryResult struct {
	Categoria             string       `json:"categoria"`
	Subcategoria          string       `json:"subcategoria"`
	Criterios             []Evaluation `json:"criterios"`
	TotalCriterios        int          `json:"totalCriterios"`
	CriteriosAtendidos    int          `json:"criteriosAtendidos"`
	PercentualAtendimento float64      `json:"percentualAtendimento"`
}

// NewSubcategoryResult scores evaluations against the full criteria count of the
// subcategory, never against the number of evaluations received.
func NewSubcategoryResult(ref SubcategoryRef, evaluations []Evaluation) SubcategoryResult {
	res := SubcategoryResult{
		Categoria:      ref.Category,
		Subcategoria:   ref.Subcategory,
		Criterios:      evaluations,
		TotalCriterios: len(ref.Criteria),
	}
	for _, ev := range evaluations {
		if ev.Atende {
			res.CriteriosAtendidos++
		}
	}
	if res.TotalCriterios > 0 {
		res.PercentualAtendimento = float64(res.CriteriosAtendidos) / float64(res.TotalCriterios) * 100
	}
	return res
}

func (r SubcategoryResult) Qualifies() bool {
	return r.PercentualAtendimento >= QualifyingPercent
}

type DocumentResult struct {
	Acordao          AcordaoRef          `json:"acordao"`
	Categorias       []SubcategoryResult `json:"categorias"`
	MelhorPercentual float64             `json:"melhor_percentual"`
}

// NewDocumentResult keeps the qualifying subcategories sorted by score. The boolean is
// false when nothing qualifies and the document must be left out of the ranking.
func NewDocumentResult(doc Acordao, subcategories []SubcategoryResult) (DocumentResult, bool) {
	qualifying := make([]SubcategoryResult, 0, len(subcategories))
	for _, sub := range subcategories {
		if sub.Qualifies() {
			qualifying = append(qualifying, sub)
		}
	}
	if len(qualifying) == 0 {
		return DocumentResult{}, false
	}
	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].PercentualAtendimento > qualifying[j].PercentualAtendimento
	})
	return DocumentResult{
		Acordao:          doc.Ref(),
		Categorias:       qualifying,
		MelhorPercentual: qualifying[0].PercentualAtendimento,
	}, true
}

// RankResults orders by best score descending, keeping corpus order on ties, and
// truncates to limit. The input slice is not modified.
func RankResults(results []DocumentResult, limit int) []DocumentResult {
	ranked := make([]DocumentResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MelhorPercentual > ranked[j].MelhorPercentual
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

type HaltReason string

const (
	HaltNone                       HaltReason = ""
	HaltQuotaExhaustedAllProviders HaltReason = "quota_exhausted_all_providers"
	HaltNoProvidersConfigured      HaltReason = "no_providers_configured"
)

type ScanOutcome struct {
	Results            []DocumentResult `json:"resultados"`
	DocumentsProcessed int              `json:"acordaos_processados"`
	TotalDocuments     int              `json:"total_acordaos"`
	RelevantFound      int              `json:"acordaos_relevantes_encontrados"`
	Halted             bool             `json:"interrompido"`
	HaltReason         HaltReason       `json:"motivo_interrupcao,omitempty"`
	Elapsed            time.Duration    `json:"-"`
	Providers          ProviderState    `json:"provedores"`
}

func (o ScanOutcome) ProgressPercent() float64 {
	if o.TotalDocuments == 0 {
		return 0
	}
	return float64(o.DocumentsProcessed) / float64(o.TotalDocuments) * 100
}

// ScanRecord is the audit entry emitted once a scan finishes, halted or not.
type ScanRecord struct {
	ID                 string        `json:"id"`
	RequestID          string        `json:"request_id,omitempty"`
	CaseExcerpt        string        `json:"case_excerpt"`
	StartedAt          time.Time     `json:"started_at"`
	FinishedAt         time.Time     `json:"finished_at"`
	DocumentsProcessed int           `json:"documents_processed"`
	TotalDocuments     int           `json:"total_documents"`
	RelevantFound      int           `json:"relevant_found"`
	Returned           int           `json:"returned"`
	Halted             bool          `json:"halted"`
	HaltReason         HaltReason    `json:"halt_reason,omitempty"`
	Providers          ProviderState `json:"providers"`
}
