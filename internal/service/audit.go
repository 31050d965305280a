package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/payment-screening/internal/repository"
	"github.com/google/uuid"
)

const systemActor = "system"

// AuditService writes immutable audit trail entries.
type AuditService struct {
	store QueryStore
}

func NewAuditService(store QueryStore) *AuditService {
	return &AuditService{store: store}
}

// Write stores a single immutable audit record. An empty actor is recorded
// as the system.
func (s *AuditService) Write(ctx context.Context, qtx *repository.Queries, entityType string, entityID uuid.UUID, actor, action, prevState, nextState string, metadata []byte) error {
	if actor == "" {
		actor = systemActor
	}
	if err := qtx.InsertAuditLog(ctx, repository.InsertAuditLogParams{
		EntityType: entityType,
		EntityID:   repository.ToPgUUID(entityID),
		Actor:      &actor,
		Action:     action,
		PrevState:  textParam(prevState),
		NextState:  textParam(nextState),
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
