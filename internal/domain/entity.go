package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntityType identifies which reference collection an entity belongs to.
type EntityType string

const (
	EntityTypeCompany     EntityType = "company"
	EntityTypePublication EntityType = "publication"
)

// Valid reports whether the entity type is one of the known collections.
func (t EntityType) Valid() bool {
	return t == EntityTypeCompany || t == EntityTypePublication
}

// ParseEntityType converts a raw string into an EntityType.
func ParseEntityType(raw string) (EntityType, error) {
	t := EntityType(raw)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q", raw)
	}
	return t, nil
}

// Entity represents a reference record (company or publication) whose field
// values are reconciled against observations from tenant organizations.
// Field values and their provenance metadata live together in Properties,
// using suffixed keys ("website", "website_updatedBy", "website_updatedAt", ...).
type Entity struct {
	ID         uuid.UUID      `json:"id"`
	EntityType EntityType     `json:"entity_type"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewEntity creates a new entity with immutable pattern.
func NewEntity(entityType EntityType, name string, properties map[string]any) Entity {
	now := time.Now()
	return Entity{
		ID:         uuid.New(),
		EntityType: entityType,
		Name:       name,
		Properties: copyProperties(properties),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// WithProperty returns a new entity with an added/updated property.
func (e Entity) WithProperty(key string, value any) Entity {
	newProperties := copyProperties(e.Properties)
	newProperties[key] = value

	return Entity{
		ID:         e.ID,
		EntityType: e.EntityType,
		Name:       e.Name,
		Properties: newProperties,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  time.Now(),
	}
}

// FieldValue returns the current value of a reconcilable field. The "name"
// field is materialized as a column and shadowed into Properties on read.
func (e Entity) FieldValue(field string) any {
	if field == "name" {
		return e.Name
	}
	if e.Properties == nil {
		return nil
	}
	return e.Properties[field]
}

// GetPropertiesAsJSONB converts properties to JSON for database storage.
func (e Entity) GetPropertiesAsJSONB() (json.RawMessage, error) {
	if e.Properties == nil {
		return json.RawMessage("{}"), nil
	}
	return json.Marshal(e.Properties)
}

// FromJSONBProperties converts JSON from database to properties map.
func FromJSONBProperties(data json.RawMessage) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var properties map[string]any
	if err := json.Unmarshal(data, &properties); err != nil {
		return nil, err
	}
	if properties == nil {
		properties = map[string]any{}
	}
	return properties, nil
}

func copyProperties(properties map[string]any) map[string]any {
	copied := make(map[string]any, len(properties))
	for k, v := range properties {
		copied[k] = v
	}
	return copied
}
