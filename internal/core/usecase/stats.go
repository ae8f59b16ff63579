package usecase

import (
	"context"
	"fmt"

	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/core/ports"
)

type CorpusStatsUseCase struct {
	store ports.DocumentStore
}

func NewCorpusStatsUseCase(store ports.DocumentStore) *CorpusStatsUseCase {
	return &CorpusStatsUseCase{store: store}
}

func (uc *CorpusStatsUseCase) Stats(ctx context.Context) (domain.CorpusStats, error) {
	stats, err := uc.store.Counts(ctx)
	if err != nil {
		return domain.CorpusStats{}, fmt.Errorf("count acordaos: %w", err)
	}
	return stats, nil
}
