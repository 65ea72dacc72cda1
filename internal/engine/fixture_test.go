package engine

import (
	"lumia-router/internal/catalog"
)

// Areas 10, 20, 30.
//
//	1 Leather  base  10:1
//	2 Branch   base  20:1
//	3 Stone    base  20:1 30:2
//	4 Water    base  30:1 (common)
//	9 Mithril  base  drops nowhere
//	100 Whip    = 1 + 2  x1
//	101 Bandage = 1 + 3  x3
//	102 Gear    = 100 + 101
func testCatalog() *catalog.Catalog {
	items := []*catalog.Item{
		{Code: 1, Name: "Leather", InitialCount: 1, AreaItemCounts: map[int32]int{10: 1}},
		{Code: 2, Name: "Branch", InitialCount: 1, AreaItemCounts: map[int32]int{20: 1}},
		{Code: 3, Name: "Stone", InitialCount: 1, AreaItemCounts: map[int32]int{20: 1, 30: 2}},
		{Code: 4, Name: "Water", InitialCount: 1, Common: true, AreaItemCounts: map[int32]int{30: 1}},
		{Code: 9, Name: "Mithril", InitialCount: 1},
		{Code: 100, Name: "Whip", MakeMaterial1: 1, MakeMaterial2: 2, InitialCount: 1},
		{Code: 101, Name: "Bandage", MakeMaterial1: 1, MakeMaterial2: 3, InitialCount: 3},
		{Code: 102, Name: "Gear", MakeMaterial1: 100, MakeMaterial2: 101, InitialCount: 1},
	}
	chars := []*catalog.Character{
		{
			Code:        1,
			Name:        "Jackie",
			WeaponTypes: []string{"Axe", "DualSword"},
			StartItems: map[string]catalog.ItemCounts{
				"Axe":       {1: 1},
				"DualSword": {},
			},
		},
	}
	return catalog.New(items, chars)
}

// dropCatalog builds a catalog where item code drops count units in each listed area.
func dropCatalog(drops map[int32]map[int32]int) *catalog.Catalog {
	items := make([]*catalog.Item, 0, len(drops))
	for code, areas := range drops {
		items = append(items, &catalog.Item{Code: code, InitialCount: 1, AreaItemCounts: areas})
	}
	return catalog.New(items, nil)
}

func sameRoutes(a, b [][]int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

// collect returns an emit func and the slice it appends to.
func collect() (func(Message), *[]Message) {
	var msgs []Message
	return func(m Message) { msgs = append(msgs, m) }, &msgs
}
