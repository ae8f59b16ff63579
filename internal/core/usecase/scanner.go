package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/core/ports"
	"github.com/juristcu/juristcu-api/internal/core/routing"
)

const (
	unhandledErrorJustification = "unhandled error"
	progressLogEvery            = 10
)

// CorpusScanner evaluates every document against the whole taxonomy, one criterion at
// a time, and aggregates the qualifying documents into a ranking.
type CorpusScanner struct {
	evaluator *CriterionEvaluator
	taxonomy  domain.Taxonomy
	clock     ports.Clock
	observer  ports.ScanObserver
	logger    *slog.Logger
}

func NewCorpusScanner(
	evaluator *CriterionEvaluator,
	taxonomy domain.Taxonomy,
	clock ports.Clock,
	observer ports.ScanObserver,
	logger *slog.Logger,
) *CorpusScanner {
	if clock == nil {
		clock = SystemClock{}
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CorpusScanner{
		evaluator: evaluator,
		taxonomy:  taxonomy,
		clock:     clock,
		observer:  observer,
		logger:    logger,
	}
}

// Scan walks docs in the given order. When the router runs out of providers the scan
// stops and returns the ranking of the documents completed so far with Halted set; the
// document in flight at that moment is dropped. Only context errors are returned.
func (s *CorpusScanner) Scan(
	ctx context.Context,
	router *routing.Router,
	caseText string,
	docs []domain.Acordao,
	maxResults int,
) (*domain.ScanOutcome, error) {
	start := s.clock.Now()
	plan := s.taxonomy.Plan()
	outcome := &domain.ScanOutcome{TotalDocuments: len(docs)}

	s.logger.Info("scan_started",
		"documents", len(docs),
		"subcategories", len(plan),
		"criteria", s.taxonomy.CriteriaCount(),
		"router", router.String(),
	)

	var found []domain.DocumentResult
	if !router.Configured() {
		outcome.Halted = true
		outcome.HaltReason = domain.HaltNoProvidersConfigured
	}

	for i := 0; i < len(docs) && !outcome.Halted; i++ {
		doc := docs[i]
		subs, err := s.scanDocument(ctx, router, caseText, doc, plan)
		if err != nil {
			if !errors.Is(err, domain.ErrAllProvidersExhausted) {
				return nil, err
			}
			outcome.Halted = true
			outcome.HaltReason = domain.HaltQuotaExhaustedAllProviders
			s.logger.Warn("scan_halted",
				"reason", outcome.HaltReason,
				"processed", outcome.DocumentsProcessed,
				"total", outcome.TotalDocuments,
				"acordao", doc.Numero,
			)
			break
		}

		outcome.DocumentsProcessed++
		if res, ok := domain.NewDocumentResult(doc, subs); ok {
			found = append(found, res)
			s.logger.Info("acordao_relevant",
				"acordao", doc.Numero,
				"ano", doc.Ano,
				"best_percent", res.MelhorPercentual,
			)
		}
		if outcome.DocumentsProcessed%progressLogEvery == 0 {
			s.logger.Info("scan_progress",
				"processed", outcome.DocumentsProcessed,
				"total", outcome.TotalDocuments,
				"relevant", len(found),
				"router", router.String(),
			)
		}
	}

	outcome.RelevantFound = len(found)
	outcome.Results = domain.RankResults(found, maxResults)
	outcome.Providers = router.Snapshot()
	outcome.Elapsed = s.clock.Now().Sub(start)

	s.observer.ScanFinished(outcome)
	s.logger.Info("scan_finished",
		"processed", outcome.DocumentsProcessed,
		"total", outcome.TotalDocuments,
		"relevant", outcome.RelevantFound,
		"returned", len(outcome.Results),
		"halted", outcome.Halted,
		"elapsed_ms", outcome.Elapsed.Milliseconds(),
	)
	return outcome, nil
}

// scanDocument returns every subcategory result of doc, or the error that stopped it.
func (s *CorpusScanner) scanDocument(
	ctx context.Context,
	router *routing.Router,
	caseText string,
	doc domain.Acordao,
	plan []domain.SubcategoryRef,
) ([]domain.SubcategoryResult, error) {
	subs := make([]domain.SubcategoryResult, 0, len(plan))
	for _, ref := range plan {
		evals := make([]domain.Evaluation, 0, len(ref.Criteria))
		for j, criterion := range ref.Criteria {
			ev, err := s.evaluator.Evaluate(ctx, router, caseText, doc, j+1, criterion)
			if err != nil {
				if errors.Is(err, domain.ErrAllProvidersExhausted) {
					return nil, err
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				s.logger.Error("criterion_unhandled_error",
					"acordao", doc.Numero,
					"subcategory", ref.Subcategory,
					"criterion", j+1,
					"error", err,
				)
				ev = domain.Evaluation{
					Numero:        j + 1,
					Texto:         criterion,
					Justificativa: s.evaluator.capJustification(unhandledErrorJustification),
				}
			}
			evals = append(evals, ev)
		}
		subs = append(subs, domain.NewSubcategoryResult(ref, evals))
	}
	return subs, nil
}
