package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/juristcu/juristcu-api/internal/core/domain"
)

func newScanRunRepoWithMock(t *testing.T) (*ScanRunRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	repo := NewScanRunRepository(db, nil)
	repo.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return repo, mock, func() { _ = db.Close() }
}

func TestScanRunEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newScanRunRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(int64(2025111701)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS scan_runs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveScanRunInsertsIdempotently(t *testing.T) {
	repo, mock, done := newScanRunRepoWithMock(t)
	defer done()

	started := time.Date(2025, 1, 2, 3, 0, 0, 0, time.UTC)
	record := domain.ScanRecord{
		ID:                 "scan-1",
		RequestID:          "req-1",
		CaseExcerpt:        "caso",
		StartedAt:          started,
		FinishedAt:         started.Add(time.Minute),
		DocumentsProcessed: 3,
		TotalDocuments:     10,
		RelevantFound:      1,
		Returned:           1,
		Halted:             true,
		HaltReason:         domain.HaltQuotaExhaustedAllProviders,
		Providers:          domain.ProviderState{AllExhausted: true},
	}

	mock.ExpectExec(`INSERT INTO scan_runs .* ON CONFLICT \(id\) DO NOTHING`).
		WithArgs("scan-1", "req-1", "caso", started, started.Add(time.Minute), 3, 10, 1, 1, true,
			"quota_exhausted_all_providers", sqlmock.AnyArg(), repo.now()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveScanRun(context.Background(), record); err != nil {
		t.Fatalf("SaveScanRun() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveScanRunWrapsInsertError(t *testing.T) {
	repo, mock, done := newScanRunRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO scan_runs").WillReturnError(errors.New("disk full"))

	err := repo.SaveScanRun(context.Background(), domain.ScanRecord{ID: "scan-2"})
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent insert error, got %v", err)
	}
}
