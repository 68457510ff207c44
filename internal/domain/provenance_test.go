package domain

import "testing"

func TestClassifySource(t *testing.T) {
	cases := map[string]ValueSource{
		"":                SourceManualEntry,
		"matching_system": SourceAutomatic,
		"import_system":   SourceAutomatic,
		"user123":         SourceManualEntry,
		"jane@example.de": SourceManualEntry,
	}
	for updatedBy, want := range cases {
		if got := ClassifySource(updatedBy); got != want {
			t.Fatalf("ClassifySource(%q) = %s, want %s", updatedBy, got, want)
		}
	}
}

func TestUnknownProvenanceUsesSentinels(t *testing.T) {
	prov := UnknownProvenance()
	if prov.Source != SourceUnknown {
		t.Fatalf("expected unknown source, got %s", prov.Source)
	}
	if prov.AgeDays != UnknownAgeDays {
		t.Fatalf("expected sentinel age %d, got %d", UnknownAgeDays, prov.AgeDays)
	}
}
