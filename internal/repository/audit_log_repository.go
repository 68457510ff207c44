package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressmesh/reconcile/internal/domain"
)

type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository wires an append-only audit trail backed by pgxpool.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) Append(ctx context.Context, entry domain.AutoUpdateLogEntry) error {
	oldJSON, err := json.Marshal(entry.OldValue)
	if err != nil {
		return fmt.Errorf("failed to marshal old value: %w", err)
	}
	newJSON, err := json.Marshal(entry.NewValue)
	if err != nil {
		return fmt.Errorf("failed to marshal new value: %w", err)
	}

	_, err = r.pool.Exec(
		ctx,
		`INSERT INTO auto_update_logs
		   (id, entity_type, entity_id, field, old_value, new_value, confidence,
		    majority_count, total_count, value_age_days)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID,
		entry.EntityType,
		entry.EntityID,
		entry.Field,
		oldJSON,
		newJSON,
		entry.Confidence,
		entry.MajorityCount,
		entry.TotalCount,
		entry.ValueAgeDays,
	)
	if err != nil {
		return fmt.Errorf("failed to append auto-update log: %w", err)
	}
	return nil
}

func (r *auditLogRepository) ListByEntity(ctx context.Context, entityID uuid.UUID, limit int) ([]domain.AutoUpdateLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, entity_type, entity_id, field, old_value, new_value, confidence,
		        majority_count, total_count, value_age_days, created_at
		 FROM auto_update_logs
		 WHERE entity_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		entityID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-update logs: %w", err)
	}
	defer rows.Close()

	entries := []domain.AutoUpdateLogEntry{}
	for rows.Next() {
		var (
			entry   domain.AutoUpdateLogEntry
			oldJSON json.RawMessage
			newJSON json.RawMessage
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Field,
			&oldJSON,
			&newJSON,
			&entry.Confidence,
			&entry.MajorityCount,
			&entry.TotalCount,
			&entry.ValueAgeDays,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan auto-update log: %w", err)
		}
		if err := json.Unmarshal(oldJSON, &entry.OldValue); err != nil {
			return nil, fmt.Errorf("failed to decode old value: %w", err)
		}
		if err := json.Unmarshal(newJSON, &entry.NewValue); err != nil {
			return nil, fmt.Errorf("failed to decode new value: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *auditLogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM auto_update_logs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count auto-update logs: %w", err)
	}
	return count, nil
}
