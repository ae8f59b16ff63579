package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/core/ports"
)

// RecordScanUseCase stores the audit record of a finished scan.
type RecordScanUseCase struct {
	store ports.ScanRunStore
}

func NewRecordScanUseCase(store ports.ScanRunStore) *RecordScanUseCase {
	return &RecordScanUseCase{store: store}
}

func (uc *RecordScanUseCase) Record(ctx context.Context, record domain.ScanRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record scan", errors.New("scan id is required"))
	}
	if record.FinishedAt.Before(record.StartedAt) {
		return domain.WrapError(domain.ErrInvalidInput, "record scan", errors.New("finished_at before started_at"))
	}
	if err := uc.store.SaveScanRun(ctx, record); err != nil {
		return fmt.Errorf("save scan run %s: %w", record.ID, err)
	}
	return nil
}
