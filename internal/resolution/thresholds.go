package resolution

// FieldThreshold holds the consensus ratios required for automated decisions
// on one field: AutoUpdate gates engine-initiated overwrites, Flag gates
// whether a disagreement is worth surfacing at all.
type FieldThreshold struct {
	AutoUpdate float64
	Flag       float64
}

// ThresholdTable maps field names onto consensus policy. The table is
// immutable after construction and injected into the engine, so deployments
// can override policy without touching global state.
type ThresholdTable struct {
	fields   map[string]FieldThreshold
	fallback FieldThreshold
}

// NewThresholdTable builds a table from per-field entries plus a fallback
// for unlisted fields. The input map is copied.
func NewThresholdTable(fields map[string]FieldThreshold, fallback FieldThreshold) ThresholdTable {
	copied := make(map[string]FieldThreshold, len(fields))
	for name, threshold := range fields {
		copied[name] = threshold
	}
	return ThresholdTable{fields: copied, fallback: fallback}
}

// Lookup returns the policy for a field, or the fallback when unlisted.
func (t ThresholdTable) Lookup(field string) FieldThreshold {
	if threshold, ok := t.fields[field]; ok {
		return threshold
	}
	return t.fallback
}

// DefaultThresholds is the stock policy, tiered by field criticality.
// Identity fields never auto-update below unanimity; contact fields demand a
// strong consensus; presentational fields accept a moderate one.
func DefaultThresholds() ThresholdTable {
	return NewThresholdTable(map[string]FieldThreshold{
		// critical identity fields: never auto-update below unanimity
		"name":         {AutoUpdate: 1.0, Flag: 0.95},
		"officialName": {AutoUpdate: 1.0, Flag: 0.95},
		"legalName":    {AutoUpdate: 1.0, Flag: 0.95},
		"taxId":        {AutoUpdate: 1.0, Flag: 0.95},

		// contact and location fields
		"address": {AutoUpdate: 0.9, Flag: 0.75},
		"phone":   {AutoUpdate: 0.9, Flag: 0.75},
		"email":   {AutoUpdate: 0.9, Flag: 0.75},

		// soft presentational fields
		"website":     {AutoUpdate: 0.8, Flag: 0.66},
		"socialMedia": {AutoUpdate: 0.8, Flag: 0.66},
		"logo":        {AutoUpdate: 0.85, Flag: 0.7},
		"description": {AutoUpdate: 0.85, Flag: 0.7},
	}, FieldThreshold{AutoUpdate: 0.9, Flag: 0.75})
}
