package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressmesh/reconcile/internal/domain"
)

// entityRepository implements EntityRepository backed by pgxpool.
type entityRepository struct {
	pool *pgxpool.Pool
}

// NewEntityRepository creates a new entity repository.
func NewEntityRepository(pool *pgxpool.Pool) EntityRepository {
	return &entityRepository{pool: pool}
}

// Create creates a new reference entity.
func (r *entityRepository) Create(ctx context.Context, entity domain.Entity) (domain.Entity, error) {
	propertiesJSON, err := entity.GetPropertiesAsJSONB()
	if err != nil {
		return domain.Entity{}, fmt.Errorf("failed to marshal properties: %w", err)
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO entities (id, entity_type, name, properties)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, entity_type, name, properties, created_at, updated_at`,
		entity.ID,
		entity.EntityType,
		entity.Name,
		propertiesJSON,
	)

	created, err := scanEntity(row)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("failed to create entity: %w", err)
	}
	return created, nil
}

// GetByID retrieves an entity by ID.
func (r *entityRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Entity, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, entity_type, name, properties, created_at, updated_at
		 FROM entities WHERE id = $1`,
		id,
	)

	entity, err := scanEntity(row)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("failed to get entity: %w", err)
	}
	return entity, nil
}

// List retrieves entities of a type, newest first.
func (r *entityRepository) List(ctx context.Context, entityType domain.EntityType, limit int, offset int) ([]domain.Entity, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, entity_type, name, properties, created_at, updated_at
		 FROM entities
		 WHERE entity_type = $1
		 ORDER BY updated_at DESC
		 LIMIT $2 OFFSET $3`,
		entityType,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	entities := []domain.Entity{}
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// ApplyFieldUpdate writes a new field value together with its provenance
// metadata in a single statement. The previous value, updater identity,
// reason, confidence and write time are stored as suffixed property keys so
// later resolutions can read them back as provenance.
func (r *entityRepository) ApplyFieldUpdate(ctx context.Context, update FieldUpdate) error {
	now := time.Now().UTC()
	patch := map[string]any{
		update.Field:                       update.NewValue,
		update.Field + "_previousValue":    update.PreviousValue,
		update.Field + "_updatedBy":        update.UpdatedBy,
		update.Field + "_updateReason":     update.Reason,
		update.Field + "_updateConfidence": update.Confidence,
		update.Field + "_updatedAt":        now.Format(time.RFC3339),
	}
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to marshal field update: %w", err)
	}

	nameValue := ""
	isName := false
	if update.Field == "name" {
		if s, ok := update.NewValue.(string); ok {
			nameValue = s
			isName = true
		}
	}

	tag, err := r.pool.Exec(
		ctx,
		`UPDATE entities
		 SET properties = properties || $2::jsonb,
		     name = CASE WHEN $3 THEN $4 ELSE name END,
		     updated_at = now()
		 WHERE id = $1`,
		update.EntityID,
		patchJSON,
		isName,
		nameValue,
	)
	if err != nil {
		return fmt.Errorf("failed to apply field update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to apply field update: entity %s not found", update.EntityID)
	}
	return nil
}

// GetFieldProvenance reads back who last wrote a field and how many days ago.
// A value with no recorded writer counts as manually entered; the unknown
// sentinels are reserved for storage failures.
func (r *entityRepository) GetFieldProvenance(ctx context.Context, id uuid.UUID, field string) (domain.FieldProvenance, error) {
	var (
		propertiesJSON json.RawMessage
		createdAt      time.Time
		updatedAt      time.Time
	)
	err := r.pool.QueryRow(
		ctx,
		`SELECT properties, created_at, updated_at FROM entities WHERE id = $1`,
		id,
	).Scan(&propertiesJSON, &createdAt, &updatedAt)
	if err != nil {
		return domain.UnknownProvenance(), fmt.Errorf("failed to read entity provenance: %w", err)
	}

	properties, err := domain.FromJSONBProperties(propertiesJSON)
	if err != nil {
		return domain.UnknownProvenance(), fmt.Errorf("failed to decode entity properties: %w", err)
	}

	writtenBy := ""
	if raw, ok := properties[field+"_updatedBy"].(string); ok && raw != "" {
		writtenBy = raw
	} else if raw, ok := properties["createdBy"].(string); ok && raw != "" {
		writtenBy = raw
	}
	prov := domain.FieldProvenance{
		Source:  domain.ClassifySource(writtenBy),
		AgeDays: domain.UnknownAgeDays,
	}

	writtenAt := updatedAt
	if raw, ok := properties[field+"_updatedAt"].(string); ok {
		if parsed, parseErr := time.Parse(time.RFC3339, raw); parseErr == nil {
			writtenAt = parsed
		}
	} else if writtenAt.IsZero() {
		writtenAt = createdAt
	}
	if !writtenAt.IsZero() {
		age := int(time.Since(writtenAt).Hours() / 24)
		if age < 0 {
			age = 0
		}
		prov.AgeDays = age
	}

	return prov, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (domain.Entity, error) {
	var (
		entity         domain.Entity
		propertiesJSON json.RawMessage
	)
	if err := row.Scan(
		&entity.ID,
		&entity.EntityType,
		&entity.Name,
		&propertiesJSON,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	); err != nil {
		return domain.Entity{}, err
	}

	properties, err := domain.FromJSONBProperties(propertiesJSON)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("failed to decode properties for entity %s: %w", entity.ID, err)
	}
	entity.Properties = properties
	return entity, nil
}
