package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/core/ports"
	"github.com/juristcu/juristcu-api/internal/core/routing"
)

const (
	MinCaseTextChars  = 50
	DefaultMaxResults = 10
	MaxResultsCap     = 100
	MaxDocumentsCap   = 10000
	caseExcerptChars  = 200
)

type AnalyzeCaseUseCase struct {
	store     ports.DocumentStore
	scanner   *CorpusScanner
	creds     domain.ProviderCredentials
	publisher ports.ScanEventPublisher
	clock     ports.Clock
	logger    *slog.Logger
}

// NewAnalyzeCaseUseCase wires the scan entry point. publisher may be nil when scan
// events are disabled.
func NewAnalyzeCaseUseCase(
	store ports.DocumentStore,
	scanner *CorpusScanner,
	creds domain.ProviderCredentials,
	publisher ports.ScanEventPublisher,
	clock ports.Clock,
	logger *slog.Logger,
) *AnalyzeCaseUseCase {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeCaseUseCase{
		store:     store,
		scanner:   scanner,
		creds:     creds,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// Analyze validates the request, loads the corpus and runs one scan with a fresh router.
// A halted scan is not an error: the outcome carries the partial ranking.
func (uc *AnalyzeCaseUseCase) Analyze(ctx context.Context, req ports.AnalyzeRequest) (*domain.ScanOutcome, error) {
	if utf8.RuneCountInString(req.CaseText) < MinCaseTextChars {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze case",
			fmt.Errorf("caso_concreto must have at least %d characters", MinCaseTextChars))
	}
	maxResults := NormalizeMaxResults(req.MaxResults)
	maxDocuments := NormalizeMaxDocuments(req.MaxDocuments)

	docs, err := uc.store.ListProcessable(ctx, maxDocuments)
	if err != nil {
		return nil, fmt.Errorf("list processable acordaos: %w", err)
	}
	if len(docs) == 0 {
		return nil, domain.WrapError(domain.ErrCorpusEmpty, "analyze case", errors.New("no acordaos with text and summary"))
	}

	startedAt := uc.clock.Now()
	router := routing.NewRouter(uc.creds)
	outcome, err := uc.scanner.Scan(ctx, router, req.CaseText, docs, maxResults)
	if err != nil {
		return nil, fmt.Errorf("scan corpus: %w", err)
	}

	uc.publish(ctx, buildScanRecord(req, outcome, startedAt, uc.clock.Now()))
	return outcome, nil
}

func (uc *AnalyzeCaseUseCase) publish(ctx context.Context, record domain.ScanRecord) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishScanRecorded(ctx, record); err != nil {
		uc.logger.Warn("scan_record_publish_failed",
			"scan_id", record.ID,
			"error", err,
		)
	}
}

func buildScanRecord(req ports.AnalyzeRequest, outcome *domain.ScanOutcome, startedAt, finishedAt time.Time) domain.ScanRecord {
	excerpt := truncateRunes(req.CaseText, caseExcerptChars)
	if excerpt != req.CaseText {
		excerpt += "..."
	}
	return domain.ScanRecord{
		ID:                 uuid.NewString(),
		RequestID:          req.RequestID,
		CaseExcerpt:        excerpt,
		StartedAt:          startedAt.UTC(),
		FinishedAt:         finishedAt.UTC(),
		DocumentsProcessed: outcome.DocumentsProcessed,
		TotalDocuments:     outcome.TotalDocuments,
		RelevantFound:      outcome.RelevantFound,
		Returned:           len(outcome.Results),
		Halted:             outcome.Halted,
		HaltReason:         outcome.HaltReason,
		Providers:          outcome.Providers,
	}
}

// NormalizeMaxResults applies the default and the upper bound to max_resultados.
func NormalizeMaxResults(n int) int {
	if n <= 0 {
		return DefaultMaxResults
	}
	if n > MaxResultsCap {
		return MaxResultsCap
	}
	return n
}

// NormalizeMaxDocuments caps max_acordaos. Zero means the whole corpus.
func NormalizeMaxDocuments(n int) int {
	if n <= 0 {
		return 0
	}
	if n > MaxDocumentsCap {
		return MaxDocumentsCap
	}
	return n
}
