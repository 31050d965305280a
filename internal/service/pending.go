package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/ayo6706/payment-screening/internal/models"
	"github.com/ayo6706/payment-screening/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	defaultPendingPageSize = 20
	maxPendingPageSize     = 100
)

type ListPendingRequest struct {
	RiskLevel string
	Page      int
	Limit     int
}

// ListPending pages through PENDING payments, optionally filtered by risk
// level, with aggregate stats over all pending payments.
func (s *ScreeningService) ListPending(ctx context.Context, req ListPendingRequest) (*models.PendingPaymentList, error) {
	minRisk, maxRisk := 0, domain.MaxRiskScore
	if req.RiskLevel != "" {
		level, ok := domain.ParseRiskLevel(req.RiskLevel)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRiskLevel, req.RiskLevel)
		}
		minRisk, maxRisk = level.Range()
	}
	page, limit := clampPage(req.Page, req.Limit, defaultPendingPageSize, maxPendingPageSize)

	queries := s.store.Queries()
	rows, err := queries.ListPendingPayments(ctx, repository.ListPendingPaymentsParams{
		MinRisk: int32(minRisk),
		MaxRisk: int32(maxRisk),
		Limit:   int32(limit),
		Offset:  int32((page - 1) * limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	total, err := queries.CountPendingPayments(ctx, int32(minRisk), int32(maxRisk))
	if err != nil {
		return nil, fmt.Errorf("count pending payments: %w", err)
	}
	stats, err := queries.GetPendingPaymentStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending payment stats: %w", err)
	}

	items := make([]models.PendingPayment, 0, len(rows))
	for _, row := range rows {
		items = append(items, toPendingPaymentModel(row))
	}
	return &models.PendingPaymentList{
		Items: items,
		Pagination: models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int((total + int64(limit) - 1) / int64(limit)),
		},
		Stats: models.PendingPaymentStats{
			TotalPending: stats.TotalPending,
			LowRisk:      stats.LowRisk,
			MediumRisk:   stats.MediumRisk,
			HighRisk:     stats.HighRisk,
			TotalAmount:  domain.MicrosToDecimal(stats.TotalAmount),
			AutoEligible: stats.AutoEligible,
		},
	}, nil
}

func (s *ScreeningService) GetPendingPayment(ctx context.Context, id uuid.UUID) (*models.PendingPayment, error) {
	row, err := s.store.Queries().GetPendingPayment(ctx, repository.ToPgUUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPendingPaymentNotFound
		}
		return nil, fmt.Errorf("get pending payment: %w", err)
	}
	out := toPendingPaymentModel(row)
	return &out, nil
}
