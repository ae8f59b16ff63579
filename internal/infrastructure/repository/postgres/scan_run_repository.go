package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/infrastructure/resilience"
)

// ScanRunRepository stores the audit trail of finished scans.
type ScanRunRepository struct {
	db       *sql.DB
	executor *resilience.Executor
	now      func() time.Time
}

func NewScanRunRepository(db *sql.DB, executor *resilience.Executor) *ScanRunRepository {
	return &ScanRunRepository{
		db:       db,
		executor: executor,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *ScanRunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across worker replicas.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2025111701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS scan_runs (
	id TEXT PRIMARY KEY,
	request_id TEXT,
	case_excerpt TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	documents_processed INTEGER NOT NULL,
	total_documents INTEGER NOT NULL,
	relevant_found INTEGER NOT NULL,
	returned INTEGER NOT NULL,
	halted BOOLEAN NOT NULL,
	halt_reason TEXT,
	providers JSONB NOT NULL DEFAULT '{}'::jsonb,
	recorded_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scan_runs_started_at ON scan_runs(started_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveScanRun inserts record once; redelivered events with a known id are ignored.
func (r *ScanRunRepository) SaveScanRun(ctx context.Context, record domain.ScanRecord) error {
	providersJSON, err := json.Marshal(record.Providers)
	if err != nil {
		return fmt.Errorf("marshal providers: %w", err)
	}

	const op = "postgres.save_scan_run"
	_, err = resilience.Do(ctx, r.executor, op, func(ctx context.Context) (struct{}, error) {
		_, err := r.db.ExecContext(ctx, `
INSERT INTO scan_runs (
	id, request_id, case_excerpt, started_at, finished_at, documents_processed, total_documents,
	relevant_found, returned, halted, halt_reason, providers, recorded_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO NOTHING
`,
			record.ID, record.RequestID, record.CaseExcerpt, record.StartedAt, record.FinishedAt,
			record.DocumentsProcessed, record.TotalDocuments, record.RelevantFound, record.Returned,
			record.Halted, string(record.HaltReason), providersJSON, r.now(),
		)
		if err != nil {
			return struct{}{}, fmt.Errorf("insert scan run: %w", err)
		}
		return struct{}{}, nil
	}, classifyPostgresError)
	return wrapTemporaryIfNeeded(op, err)
}
