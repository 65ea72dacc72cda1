package engine

import (
	"fmt"

	"lumia-router/internal/catalog"
)

// MaterialPlan is the material summary for a roster's build targets and chosen route.
type MaterialPlan struct {
	Required catalog.ItemCounts `json:"required"` // base materials to craft every target from scratch
	All      catalog.ItemCounts `json:"all"`      // starting kits plus route drops
	Missing  catalog.ItemCounts `json:"missing"`  // required entries that All does not cover
}

// PlanUser is one roster member with their build targets and route.
type PlanUser struct {
	User
	ItemCodes []int32 `json:"itemCodes"`
	Route     []int32 `json:"route"`
}

// Planner computes material plans.
type Planner struct {
	Catalog  Catalog
	Resolver *Resolver
}

// NewPlanner creates a planner over cat.
func NewPlanner(cat Catalog) *Planner {
	return &Planner{Catalog: cat, Resolver: NewResolver(cat)}
}

// Plan resolves every user's targets (in roster order) into base materials and
// compares them with what the roster starts with plus everything dropping in
// the union of their routes.
func (p *Planner) Plan(users []PlanUser) (*MaterialPlan, error) {
	var targets []int32
	roster := make([]catalog.ItemCounts, 0, len(users))
	var areas []int32
	seen := make(map[int32]bool)
	for i, u := range users {
		targets = append(targets, u.ItemCodes...)
		inv, err := p.Catalog.StartItemCounts(u.CharacterCode, u.StartWeaponType)
		if err != nil {
			return nil, fmt.Errorf("%w: user %d: %v", ErrMalformedRequest, i, err)
		}
		roster = append(roster, inv)
		for _, a := range u.Route {
			if !seen[a] {
				seen[a] = true
				areas = append(areas, a)
			}
		}
	}

	required, err := p.Resolver.Resolve(targets, nil)
	if err != nil {
		return nil, err
	}
	all := AggregateInventory(roster, areas, p.Catalog)
	return &MaterialPlan{
		Required: required,
		All:      all,
		Missing:  all.Missing(required),
	}, nil
}
