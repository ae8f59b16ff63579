package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/core/ports"
	"github.com/juristcu/juristcu-api/internal/core/routing"
)

const parseFailureJustification = "parse failure"

type EvaluatorSettings struct {
	CourtesyDelay         time.Duration
	BodyExcerptChars      int
	JustificationMaxChars int
	Temperature           float64
	MaxTokens             int
}

func DefaultEvaluatorSettings() EvaluatorSettings {
	return EvaluatorSettings{
		CourtesyDelay:         500 * time.Millisecond,
		BodyExcerptChars:      2000,
		JustificationMaxChars: 200,
		Temperature:           0.1,
		MaxTokens:             500,
	}
}

func (s EvaluatorSettings) normalize() EvaluatorSettings {
	out := s
	def := DefaultEvaluatorSettings()
	if out.CourtesyDelay < 0 {
		out.CourtesyDelay = 0
	}
	if out.BodyExcerptChars <= 0 {
		out.BodyExcerptChars = def.BodyExcerptChars
	}
	if out.JustificationMaxChars <= 0 {
		out.JustificationMaxChars = def.JustificationMaxChars
	}
	if out.Temperature < 0 {
		out.Temperature = def.Temperature
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = def.MaxTokens
	}
	return out
}

// CriterionEvaluator asks the active provider whether one document meets one criterion.
type CriterionEvaluator struct {
	clients  map[domain.ProviderID]ports.CompletionClient
	clock    ports.Clock
	observer ports.ScanObserver
	logger   *slog.Logger
	settings EvaluatorSettings
}

func NewCriterionEvaluator(
	clients map[domain.ProviderID]ports.CompletionClient,
	clock ports.Clock,
	observer ports.ScanObserver,
	logger *slog.Logger,
	settings EvaluatorSettings,
) *CriterionEvaluator {
	if clock == nil {
		clock = SystemClock{}
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CriterionEvaluator{
		clients:  clients,
		clock:    clock,
		observer: observer,
		logger:   logger,
		settings: settings.normalize(),
	}
}

// Evaluate runs criterion number (1-based) against doc. A failed call is classified,
// reported to the router and retried on whatever the router selects next, so the same
// provider and key are never asked twice. It returns ErrAllProvidersExhausted once the
// router has nothing left, and the context error if ctx is done.
func (e *CriterionEvaluator) Evaluate(
	ctx context.Context,
	router *routing.Router,
	caseText string,
	doc domain.Acordao,
	number int,
	criterion string,
) (domain.Evaluation, error) {
	req := ports.CompletionRequest{
		SystemPrompt: evaluationSystemPrompt,
		Prompt:       buildEvaluationPrompt(caseText, doc, criterion, e.settings.BodyExcerptChars, e.settings.JustificationMaxChars),
		Temperature:  e.settings.Temperature,
		MaxTokens:    e.settings.MaxTokens,
		SchemaName:   verdictSchemaName,
		Schema:       VerdictSchema(),
	}

	for {
		if err := ctx.Err(); err != nil {
			return domain.Evaluation{}, err
		}

		sel, err := router.Current()
		if err != nil {
			return domain.Evaluation{}, err
		}
		req.Credential = sel.Credential

		raw, err := e.complete(ctx, sel.Provider, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.Evaluation{}, ctxErr
			}
			e.handleFailure(router, sel, err)
			continue
		}
		e.observer.ProviderCall(sel.Provider, nil, "")

		if err := e.clock.Sleep(ctx, e.settings.CourtesyDelay); err != nil {
			return domain.Evaluation{}, err
		}

		ev := domain.Evaluation{
			Numero:   number,
			Texto:    criterion,
			Provider: sel.Provider,
		}
		v, err := decodeVerdict(raw)
		if err != nil {
			e.observer.ParseFailure(sel.Provider)
			e.logger.Warn("evaluation_parse_failure",
				"provider", sel.Provider,
				"acordao", doc.Numero,
				"criterion", number,
				"error", err,
			)
			ev.Justificativa = e.capJustification(parseFailureJustification)
			return ev, nil
		}
		ev.Atende = v.Atende
		ev.Justificativa = e.capJustification(strings.TrimSpace(v.Justificativa))

		e.logger.Debug("criterion_evaluated",
			"provider", sel.Provider,
			"acordao", doc.Numero,
			"criterion", number,
			"atende", ev.Atende,
		)
		return ev, nil
	}
}

// capJustification applies JustificationMaxChars to every justificativa, including
// the fixed markers written when no verdict was obtained.
func (e *CriterionEvaluator) capJustification(s string) string {
	return truncateRunes(s, e.settings.JustificationMaxChars)
}

func (e *CriterionEvaluator) complete(ctx context.Context, provider domain.ProviderID, req ports.CompletionRequest) (string, error) {
	client, ok := e.clients[provider]
	if !ok || client == nil {
		return "", &domain.ProviderError{Provider: provider, Message: "no completion client registered"}
	}
	raw, err := client.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s complete: %w", provider, err)
	}
	return raw, nil
}

func (e *CriterionEvaluator) handleFailure(router *routing.Router, sel routing.Selection, err error) {
	kind := routing.ClassifyError(sel.Provider, err)
	e.observer.ProviderCall(sel.Provider, err, kind)

	tr := router.ReportFailure(sel.Provider, kind)
	e.logger.Warn("provider_call_failed",
		"provider", sel.Provider,
		"key_index", sel.KeyIndex,
		"kind", kind,
		"error", err,
	)

	switch {
	case tr.KeyRotated:
		e.logger.Info("provider_key_rotated", "provider", sel.Provider, "router", router.String())
	case tr.Exhausted:
		e.observer.ProviderFailover(tr.From, tr.To)
		e.logger.Warn("provider_failover",
			"from", tr.From,
			"to", tr.To,
			"kind", kind,
			"router", router.String(),
		)
	}
}

type noopObserver struct{}

func (noopObserver) ProviderCall(domain.ProviderID, error, domain.ErrorKind) {}
func (noopObserver) ProviderFailover(domain.ProviderID, domain.ProviderID)  {}
func (noopObserver) ParseFailure(domain.ProviderID)                         {}
func (noopObserver) ScanFinished(*domain.ScanOutcome)                       {}
