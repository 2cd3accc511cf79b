package handlers

import (
	"context"

	"salesflow/internal/core/id"
	"salesflow/internal/infrastructure/storage/postgres"
	"salesflow/pkg/logger"
)

// auditTrail records posting transitions to the audit journal. A failed
// audit write never fails the request.
type auditTrail struct {
	svc *postgres.AuditService
}

func (a auditTrail) record(ctx context.Context, entityType string, entityID id.ID, action postgres.AuditAction, changes map[string]any) {
	if a.svc == nil {
		return
	}
	if err := a.svc.LogChange(ctx, entityType, entityID, action, changes); err != nil {
		logger.Warn(ctx, "audit write failed",
			"entity_type", entityType,
			"entity_id", entityID,
			"action", action,
			"error", err,
		)
	}
}
