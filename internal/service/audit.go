package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/riteshkumar/greengrid/internal/models"
	"github.com/riteshkumar/greengrid/internal/repository"
)

// recordAudit writes an audit entry. Failures are logged and never abort the
// operation being audited.
func recordAudit(ctx context.Context, repo repository.AuditRepository, clk clock.Clock, logger *slog.Logger, entityType, entityID, action string, oldValue, newValue any) {
	if repo == nil {
		return
	}

	entry := &models.AuditLog{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		CreatedAt:  clk.Now().UTC(),
	}
	if oldValue != nil {
		raw, err := json.Marshal(oldValue)
		if err != nil {
			logger.Error("failed to encode audit old value", "entity_id", entityID, "error", err.Error())
			return
		}
		entry.OldValue = raw
	}
	raw, err := json.Marshal(newValue)
	if err != nil {
		logger.Error("failed to encode audit new value", "entity_id", entityID, "error", err.Error())
		return
	}
	entry.NewValue = raw

	if err := repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		logger.Error("failed to create audit log",
			"entity_type", entityType,
			"entity_id", entityID,
			"action", action,
			"error", err.Error(),
		)
	}
}
