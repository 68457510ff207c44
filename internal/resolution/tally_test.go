package resolution

import "testing"

func TestTallyCollapsesCaseAndWhitespaceVariants(t *testing.T) {
	result := Tally([]any{"Der Spiegel", "DER SPIEGEL", " der spiegel ", "Die Zeit"})

	if result.TotalCount != 4 {
		t.Fatalf("expected 4 counted candidates, got %d", result.TotalCount)
	}
	if result.Majority != "der spiegel" {
		t.Fatalf("expected majority 'der spiegel', got %v", result.Majority)
	}
	if result.MajorityCount != 3 {
		t.Fatalf("expected majority count 3, got %d", result.MajorityCount)
	}
	if pct := result.MajorityPercentage(); pct != 0.75 {
		t.Fatalf("expected majority percentage 0.75, got %f", pct)
	}
}

func TestTallyFiltersNilAndEmptyCandidates(t *testing.T) {
	result := Tally([]any{nil, "", "  ", "a", nil, "a"})

	if result.TotalCount != 2 {
		t.Fatalf("expected 2 counted candidates, got %d", result.TotalCount)
	}
	if result.Majority != "a" || result.MajorityCount != 2 {
		t.Fatalf("unexpected majority: %v (%d)", result.Majority, result.MajorityCount)
	}
}

func TestTallySignalsNoData(t *testing.T) {
	result := Tally([]any{nil, "", "   "})

	if result.HasData() {
		t.Fatalf("expected no data after filtering")
	}
	if pct := result.MajorityPercentage(); pct != 0 {
		t.Fatalf("expected percentage 0 on no data, got %f", pct)
	}
}

func TestTallyFirstSeenWinsOnTies(t *testing.T) {
	result := Tally([]any{"b", "a", "a", "b"})

	if result.Majority != "b" {
		t.Fatalf("expected first-seen value 'b' to win the tie, got %v", result.Majority)
	}
	if result.MajorityCount != 2 || result.TotalCount != 4 {
		t.Fatalf("unexpected counts: %d/%d", result.MajorityCount, result.TotalCount)
	}
}

func TestTallyCountsNonStringValues(t *testing.T) {
	result := Tally([]any{42, 42, 7})

	if result.Majority != 42 || result.MajorityCount != 2 || result.TotalCount != 3 {
		t.Fatalf("unexpected tally: %+v", result)
	}
}
