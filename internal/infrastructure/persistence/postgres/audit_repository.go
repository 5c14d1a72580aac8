package postgres

import (
	"context"
	"fmt"

	"github.com/rokthenats/karting-registry/internal/domain"
	"github.com/rokthenats/karting-registry/internal/infrastructure/persistence"
)

type AuditRepository struct {
	q persistence.Executor
}

func (r *AuditRepository) Append(ctx context.Context, record *domain.AuditRecord) error {
	query := `
		INSERT INTO audit_log (
			audit_id, driver_id, actor, action, field_name, old_value, new_value, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.Exec(ctx, query,
		record.AuditID,
		nullableID(record.DriverID),
		record.Actor,
		record.Action,
		record.FieldName,
		record.OldValue,
		record.NewValue,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit log: %w", err)
	}
	return nil
}
