package ports

import (
	"context"

	"github.com/juristcu/juristcu-api/internal/core/domain"
)

// AnalyzeRequest is the caller-facing scan request. MaxDocuments <= 0 scans the whole corpus.
type AnalyzeRequest struct {
	CaseText     string
	MaxResults   int
	MaxDocuments int
	RequestID    string
}

// CaseAnalyzer is the inbound contract for ranking rulings against a case description.
type CaseAnalyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*domain.ScanOutcome, error)
}

// CorpusStatsReader is the inbound read model for corpus counts.
type CorpusStatsReader interface {
	Stats(ctx context.Context) (domain.CorpusStats, error)
}

// ScanRecorder is the inbound contract for persisting scan audit events.
type ScanRecorder interface {
	Record(ctx context.Context, record domain.ScanRecord) error
}
