package domain

import (
	"time"

	"github.com/google/uuid"
)

// AutoUpdateLogEntry is the append-only audit record emitted for every
// engine-performed field update. Entries are write-once.
type AutoUpdateLogEntry struct {
	ID            uuid.UUID  `json:"id"`
	EntityType    EntityType `json:"entityType"`
	EntityID      uuid.UUID  `json:"entityId"`
	Field         string     `json:"field"`
	OldValue      any        `json:"oldValue"`
	NewValue      any        `json:"newValue"`
	Confidence    float64    `json:"confidence"`
	MajorityCount int        `json:"majorityCount"`
	TotalCount    int        `json:"totalCount"`
	ValueAgeDays  int        `json:"valueAgeDays"`
	CreatedAt     time.Time  `json:"createdAt"`
}
