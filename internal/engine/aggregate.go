package engine

import (
	"lumia-router/internal/catalog"
)

// AreaSource lists the items that drop in an area.
type AreaSource interface {
	ItemsInArea(area int32) []*catalog.Item
}

// AggregateInventory sums the roster's starting inventories and, for each
// distinct area, adds dropCount * InitialCount of every item dropping there.
func AggregateInventory(roster []catalog.ItemCounts, areas []int32, src AreaSource) catalog.ItemCounts {
	total := catalog.Sum(roster...)
	seen := make(map[int32]bool, len(areas))
	for _, area := range areas {
		if seen[area] {
			continue
		}
		seen[area] = true
		for _, it := range src.ItemsInArea(area) {
			total.Add(it.Code, it.AreaItemCounts[area]*it.Yield())
		}
	}
	return total
}

// gain is one area's contribution to one required slot.
type gain struct {
	slot int
	n    int
}

// Aggregator is a search-local index that answers "does this route satisfy the
// requirement?" without building a map per candidate. It only tracks the
// required codes. Read-only after construction; each goroutine brings its own scratch.
type Aggregator struct {
	codes    []int32 // required codes, ascending; slot i <-> codes[i]
	need     []int
	base     []int    // roster stock per slot
	areaGain [][]gain // universe index -> gains
}

// NewAggregator indexes the requirement against a roster and an area universe.
// Codes in skip are treated as already satisfied.
func NewAggregator(required catalog.ItemCounts, roster []catalog.ItemCounts, universe []int32, src AreaSource, skip map[int32]bool) *Aggregator {
	a := &Aggregator{areaGain: make([][]gain, len(universe))}
	slots := make(map[int32]int)
	for _, code := range required.Codes() {
		if skip[code] {
			continue
		}
		slots[code] = len(a.codes)
		a.codes = append(a.codes, code)
		a.need = append(a.need, required[code])
	}

	stock := catalog.Sum(roster...)
	a.base = make([]int, len(a.codes))
	for i, code := range a.codes {
		a.base[i] = stock[code]
	}

	for u, area := range universe {
		for _, it := range src.ItemsInArea(area) {
			slot, ok := slots[it.Code]
			if !ok {
				continue
			}
			a.areaGain[u] = append(a.areaGain[u], gain{slot: slot, n: it.AreaItemCounts[area] * it.Yield()})
		}
	}
	return a
}

// Scratch returns a buffer sized for Satisfied.
func (a *Aggregator) Scratch() []int {
	return make([]int, len(a.codes))
}

// Satisfied reports whether the areas at the given universe indices, together
// with the roster stock, cover every required count.
func (a *Aggregator) Satisfied(indices []int, scratch []int) bool {
	copy(scratch, a.base)
	for _, u := range indices {
		for _, g := range a.areaGain[u] {
			scratch[g.slot] += g.n
		}
	}
	for i, n := range a.need {
		if scratch[i] < n {
			return false
		}
	}
	return true
}
