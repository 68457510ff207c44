package domain

// ValueSource classifies who or what last wrote a field value.
type ValueSource string

const (
	SourceAutomatic   ValueSource = "automatic"
	SourceManualEntry ValueSource = "manual_entry"
	SourceUnknown     ValueSource = "unknown"
)

// UnknownAgeDays is the sentinel age used when a field's last-write time
// cannot be determined. Unknown ages behave as very old values, so aging
// bonuses apply rather than the same-day manual guard.
const UnknownAgeDays = 999

// Writer identities recorded on engine-authored updates. Any updatedBy value
// outside this set classifies as manual_entry.
const (
	WriterMatchingSystem = "matching_system"
	WriterImportSystem   = "import_system"
)

// ClassifySource maps a raw updatedBy identity onto a ValueSource. A value
// with no recorded writer was entered by a person, so absent identities
// classify as manual_entry like any other unrecognized one; unknown is
// reserved for failed lookups.
func ClassifySource(updatedBy string) ValueSource {
	switch updatedBy {
	case WriterMatchingSystem, WriterImportSystem:
		return SourceAutomatic
	default:
		return SourceManualEntry
	}
}

// FieldProvenance describes the age and origin of a field's current value.
type FieldProvenance struct {
	Source  ValueSource `json:"source"`
	AgeDays int         `json:"ageDays"`
}

// UnknownProvenance is the degraded default used when provenance lookups
// fail; resolution proceeds instead of surfacing the lookup error.
func UnknownProvenance() FieldProvenance {
	return FieldProvenance{Source: SourceUnknown, AgeDays: UnknownAgeDays}
}
