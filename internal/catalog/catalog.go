package catalog

import (
	"sort"
)

// RareMaterialCodes lists materials that only appear from special spawns
// (Tree of Life, Meteorite, Mithril, VF Blood Sample).
var RareMaterialCodes = map[int32]bool{
	401208: true,
	401209: true,
	401304: true,
	401401: true,
}

// Item is a single entry of the item catalog.
type Item struct {
	Code          int32  `json:"code"`
	Name          string `json:"name"`
	ItemType      string `json:"item_type"` // Weapon, Armor, Consume, Misc, Special
	Grade         string `json:"grade"`
	MakeMaterial1 int32  `json:"make_material_1"` // 0 = base material
	MakeMaterial2 int32  `json:"make_material_2"`
	InitialCount  int    `json:"initial_count"` // units yielded per craft
	Common        bool   `json:"common"`        // spawns everywhere on the map
	// AreaItemCounts maps area code -> drop count in that area.
	AreaItemCounts map[int32]int `json:"area_item_counts"`
}

// IsBase reports whether the item has no build recipe.
func (i *Item) IsBase() bool {
	return i.MakeMaterial1 == 0
}

// Yield returns the number of units one craft (or one drop) produces, never less than 1.
func (i *Item) Yield() int {
	if i.InitialCount < 1 {
		return 1
	}
	return i.InitialCount
}

// Filter narrows Catalog.Where results. Zero values match everything.
type Filter struct {
	AreaCode      int32
	ItemType      string
	CraftableOnly bool
	FinalOnly     bool
	ExcludeRare   bool
}

// Catalog is a read-only index over items and characters.
// It is safe for concurrent use once built.
type Catalog struct {
	items      map[int32]*Item
	codes      []int32 // ascending
	byArea     map[int32][]*Item
	areaCodes  []int32 // ascending
	nonFinal   map[int32]bool
	characters map[int32]*Character
	charCodes  []int32
}

// New builds a catalog from items and characters.
// Later duplicates of the same code replace earlier ones.
func New(items []*Item, characters []*Character) *Catalog {
	c := &Catalog{
		items:      make(map[int32]*Item, len(items)),
		byArea:     make(map[int32][]*Item),
		nonFinal:   make(map[int32]bool),
		characters: make(map[int32]*Character, len(characters)),
	}
	for _, it := range items {
		if it == nil {
			continue
		}
		c.items[it.Code] = it
	}
	for code, it := range c.items {
		c.codes = append(c.codes, code)
		if !it.IsBase() {
			c.nonFinal[it.MakeMaterial1] = true
			c.nonFinal[it.MakeMaterial2] = true
		}
	}
	sort.Slice(c.codes, func(i, j int) bool { return c.codes[i] < c.codes[j] })

	for _, code := range c.codes {
		it := c.items[code]
		for area, n := range it.AreaItemCounts {
			if n <= 0 {
				continue
			}
			c.byArea[area] = append(c.byArea[area], it)
		}
	}
	for area := range c.byArea {
		c.areaCodes = append(c.areaCodes, area)
	}
	sort.Slice(c.areaCodes, func(i, j int) bool { return c.areaCodes[i] < c.areaCodes[j] })

	for _, ch := range characters {
		if ch == nil {
			continue
		}
		if _, dup := c.characters[ch.Code]; !dup {
			c.charCodes = append(c.charCodes, ch.Code)
		}
		c.characters[ch.Code] = ch
	}
	sort.Slice(c.charCodes, func(i, j int) bool { return c.charCodes[i] < c.charCodes[j] })
	return c
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// FindByCode looks up an item.
func (c *Catalog) FindByCode(code int32) (*Item, bool) {
	it, ok := c.items[code]
	return it, ok
}

// AreaCodes returns every area code that appears in some drop table, ascending.
// The returned slice must not be modified.
func (c *Catalog) AreaCodes() []int32 {
	return c.areaCodes
}

// ItemsInArea returns the items with a positive drop count in area, ordered by code.
func (c *Catalog) ItemsInArea(area int32) []*Item {
	return c.byArea[area]
}

// IsFinal reports whether no other item uses it as a material.
func (c *Catalog) IsFinal(it *Item) bool {
	return !c.nonFinal[it.Code]
}

// RequiresRareMaterial reports whether any node of the item's build tree is a rare material.
func (c *Catalog) RequiresRareMaterial(it *Item) bool {
	onPath := make(map[int32]bool)
	var visit func(*Item) bool
	visit = func(i *Item) bool {
		if RareMaterialCodes[i.Code] {
			return true
		}
		if i.IsBase() || onPath[i.Code] {
			return false
		}
		onPath[i.Code] = true
		defer delete(onPath, i.Code)
		for _, m := range []int32{i.MakeMaterial1, i.MakeMaterial2} {
			if child, ok := c.items[m]; ok && visit(child) {
				return true
			}
		}
		return false
	}
	return visit(it)
}

// Where returns the items matching f, ordered by code.
func (c *Catalog) Where(f Filter) []*Item {
	source := c.codes
	if f.AreaCode != 0 {
		source = source[:0:0]
		for _, it := range c.byArea[f.AreaCode] {
			source = append(source, it.Code)
		}
	}

	out := []*Item{}
	for _, code := range source {
		it := c.items[code]
		if f.ItemType != "" && it.ItemType != f.ItemType {
			continue
		}
		if f.CraftableOnly && it.IsBase() {
			continue
		}
		if f.FinalOnly && !c.IsFinal(it) {
			continue
		}
		if f.ExcludeRare && c.RequiresRareMaterial(it) {
			continue
		}
		out = append(out, it)
	}
	return out
}
