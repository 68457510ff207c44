package resolution

import "reflect"

// TallyResult holds the plurality outcome over a candidate set.
type TallyResult struct {
	Majority      any
	MajorityCount int
	TotalCount    int
}

// HasData reports whether any countable candidates survived filtering. The
// engine maps a no-data tally onto kept_existing with confidence 0 instead
// of dividing by zero.
func (t TallyResult) HasData() bool {
	return t.TotalCount > 0
}

// MajorityPercentage is the fraction of candidates agreeing with the
// plurality value.
func (t TallyResult) MajorityPercentage() float64 {
	if t.TotalCount == 0 {
		return 0
	}
	return float64(t.MajorityCount) / float64(t.TotalCount)
}

// Tally counts occurrences of each normalized candidate value, after
// dropping nil and empty-string candidates. The majority value is the one
// with the highest count; on equal counts the first-seen value wins, which
// keeps the result deterministic for a given candidate order.
func Tally(values []any) TallyResult {
	type bucket struct {
		value any
		count int
	}

	var buckets []bucket
	total := 0
	for _, v := range values {
		normalized := Normalize(v)
		if IsEmpty(normalized) {
			continue
		}
		total++

		found := false
		for i := range buckets {
			if reflect.DeepEqual(buckets[i].value, normalized) {
				buckets[i].count++
				found = true
				break
			}
		}
		if !found {
			buckets = append(buckets, bucket{value: normalized, count: 1})
		}
	}

	result := TallyResult{TotalCount: total}
	for _, b := range buckets {
		// strict > preserves first-seen on ties
		if b.count > result.MajorityCount {
			result.Majority = b.value
			result.MajorityCount = b.count
		}
	}
	return result
}
