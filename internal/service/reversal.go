package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/ayo6706/payment-screening/internal/models"
	"github.com/ayo6706/payment-screening/internal/repository"
)

// ReversalService exposes recorded reversal outcomes. FAILED rows form the
// manual intervention queue.
type ReversalService struct {
	store QueryStore
}

func NewReversalService(store QueryStore) *ReversalService {
	return &ReversalService{store: store}
}

func (s *ReversalService) List(ctx context.Context, status string, page, limit int) ([]models.Reversal, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && status != domain.ReversalStatusCompleted && status != domain.ReversalStatusFailed {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReversalStatus, status)
	}
	page, limit = clampPage(page, limit, 20, 100)
	rows, err := s.store.Queries().ListReversals(ctx, repository.ListReversalsParams{
		Status: status,
		Limit:  int32(limit),
		Offset: int32((page - 1) * limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list reversals: %w", err)
	}
	out := make([]models.Reversal, 0, len(rows))
	for _, row := range rows {
		out = append(out, toReversalModel(row))
	}
	return out, nil
}

// ManualQueueSize counts reversals that failed and await an operator.
func (s *ReversalService) ManualQueueSize(ctx context.Context) (int64, error) {
	n, err := s.store.Queries().CountReversalsByStatus(ctx, domain.ReversalStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("count failed reversals: %w", err)
	}
	return n, nil
}
