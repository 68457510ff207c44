package resolution

import "testing"

func TestNormalizeTrimsAndLowercases(t *testing.T) {
	cases := map[string]string{
		" Der Spiegel ":  "der spiegel",
		"DER SPIEGEL":    "der spiegel",
		"der spiegel":    "der spiegel",
		"\tTagesschau\n": "tagesschau",
	}
	for input, want := range cases {
		got := Normalize(input)
		if got != want {
			t.Fatalf("Normalize(%q) = %v, want %q", input, got, want)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{" Der Spiegel ", "MIXED Case", "", "  ", "already normal"}
	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %v != %v", input, once, twice)
		}
	}
}

func TestNormalizePassesNonStringsThrough(t *testing.T) {
	if got := Normalize(42); got != 42 {
		t.Fatalf("expected int to pass through, got %v", got)
	}
	if got := Normalize(true); got != true {
		t.Fatalf("expected bool to pass through, got %v", got)
	}
	if got := Normalize(nil); got != nil {
		t.Fatalf("expected nil to pass through, got %v", got)
	}
}

func TestIsEmpty(t *testing.T) {
	if !IsEmpty(nil) || !IsEmpty("") || !IsEmpty("   ") {
		t.Fatalf("expected nil and blank strings to count as empty")
	}
	if IsEmpty("x") || IsEmpty(0) || IsEmpty(false) {
		t.Fatalf("expected non-blank values to count as present")
	}
}
