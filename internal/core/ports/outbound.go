package ports

import (
	"context"
	"time"

	"github.com/juristcu/juristcu-api/internal/core/domain"
)

// DocumentStore reads the ruling corpus. ListProcessable returns only rulings with body
// text and summary, most recent session first; limit <= 0 means no limit.
type DocumentStore interface {
	ListProcessable(ctx context.Context, limit int) ([]domain.Acordao, error)
	Counts(ctx context.Context) (domain.CorpusStats, error)
}

// CompletionRequest is one single-turn prompt sent to a provider.
type CompletionRequest struct {
	SystemPrompt string
	Prompt       string
	Temperature  float64
	MaxTokens    int
	Credential   string
	SchemaName   string
	Schema       any
}

// CompletionClient performs exactly one completion call. Failures are reported as
// *domain.ProviderError so they can be classified.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Clock is the only place the scan pipeline waits.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// ScanObserver receives pipeline telemetry. All methods must be cheap.
type ScanObserver interface {
	ProviderCall(provider domain.ProviderID, err error, kind domain.ErrorKind)
	ProviderFailover(from, to domain.ProviderID)
	ParseFailure(provider domain.ProviderID)
	ScanFinished(outcome *domain.ScanOutcome)
}

// ScanEventPublisher announces finished scans.
type ScanEventPublisher interface {
	PublishScanRecorded(ctx context.Context, record domain.ScanRecord) error
}

// ScanEventSubscriber consumes finished scan announcements until ctx is done.
type ScanEventSubscriber interface {
	SubscribeScanRecorded(ctx context.Context, handler func(context.Context, domain.ScanRecord) error) error
}

// ScanRunStore persists scan audit records.
type ScanRunStore interface {
	SaveScanRun(ctx context.Context, record domain.ScanRecord) error
}
