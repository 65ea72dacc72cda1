package catalog

import "sort"

// ItemCounts is a multiset of item codes. A missing key means zero.
type ItemCounts map[int32]int

// Add increments code by n.
func (ic ItemCounts) Add(code int32, n int) {
	if n == 0 {
		return
	}
	ic[code] += n
}

// Take removes one unit of code if available and reports whether it did.
func (ic ItemCounts) Take(code int32) bool {
	if ic[code] <= 0 {
		return false
	}
	ic[code]--
	if ic[code] == 0 {
		delete(ic, code)
	}
	return true
}

// Merge adds every count of other into ic.
func (ic ItemCounts) Merge(other ItemCounts) {
	for code, n := range other {
		ic.Add(code, n)
	}
}

// Clone returns an independent copy (never nil).
func (ic ItemCounts) Clone() ItemCounts {
	out := make(ItemCounts, len(ic))
	for code, n := range ic {
		out[code] = n
	}
	return out
}

// Sum merges all inputs into a new multiset.
func Sum(all ...ItemCounts) ItemCounts {
	out := make(ItemCounts)
	for _, ic := range all {
		out.Merge(ic)
	}
	return out
}

// Satisfies reports whether ic holds at least required[code] of every code.
func (ic ItemCounts) Satisfies(required ItemCounts) bool {
	for code, n := range required {
		if ic[code] < n {
			return false
		}
	}
	return true
}

// Missing returns the required entries that ic does not fully cover,
// keeping the full required count for each short entry.
func (ic ItemCounts) Missing(required ItemCounts) ItemCounts {
	out := make(ItemCounts)
	for code, n := range required {
		if ic[code] < n {
			out[code] = n
		}
	}
	return out
}

// Total returns the number of units across all codes.
func (ic ItemCounts) Total() int {
	total := 0
	for _, n := range ic {
		total += n
	}
	return total
}

// Codes returns the codes with a positive count, ascending.
func (ic ItemCounts) Codes() []int32 {
	codes := make([]int32, 0, len(ic))
	for code, n := range ic {
		if n > 0 {
			codes = append(codes, code)
		}
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
