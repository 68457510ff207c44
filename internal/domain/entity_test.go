package domain

import "testing"

func TestEntityFieldValue(t *testing.T) {
	entity := NewEntity(EntityTypePublication, "Der Spiegel", map[string]any{
		"website": "https://spiegel.de",
	})

	if got := entity.FieldValue("website"); got != "https://spiegel.de" {
		t.Fatalf("unexpected website value: %v", got)
	}
	if got := entity.FieldValue("name"); got != "Der Spiegel" {
		t.Fatalf("name must come from the name column, got %v", got)
	}
	if got := entity.FieldValue("phone"); got != nil {
		t.Fatalf("missing field must be nil, got %v", got)
	}
}

func TestEntityWithPropertyDoesNotMutateOriginal(t *testing.T) {
	entity := NewEntity(EntityTypeCompany, "Acme", map[string]any{"phone": "+49 40 1"})

	updated := entity.WithProperty("phone", "+49 40 2")

	if entity.Properties["phone"] != "+49 40 1" {
		t.Fatalf("original entity mutated: %v", entity.Properties["phone"])
	}
	if updated.Properties["phone"] != "+49 40 2" {
		t.Fatalf("updated entity missing new value: %v", updated.Properties["phone"])
	}
}

func TestParseEntityType(t *testing.T) {
	if _, err := ParseEntityType("company"); err != nil {
		t.Fatalf("company must parse: %v", err)
	}
	if _, err := ParseEntityType("publication"); err != nil {
		t.Fatalf("publication must parse: %v", err)
	}
	if _, err := ParseEntityType("journalist"); err == nil {
		t.Fatalf("unknown entity type must fail")
	}
}
