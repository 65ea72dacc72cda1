package engine

import (
	"fmt"

	"lumia-router/internal/catalog"
)

// ItemSource resolves item codes to catalog entries.
type ItemSource interface {
	FindByCode(code int32) (*catalog.Item, bool)
}

// Resolver computes the base materials still missing for a set of target items.
type Resolver struct {
	Items ItemSource
}

// NewResolver creates a resolver backed by items.
func NewResolver(items ItemSource) *Resolver {
	return &Resolver{Items: items}
}

// resolveState is the traversal context threaded through one resolution.
// held shrinks as stock is consumed and grows with craft surplus.
type resolveState struct {
	items   ItemSource
	held    catalog.ItemCounts
	missing catalog.ItemCounts
	onPath  map[int32]bool
}

// Resolve looks up codes and resolves them in order. See ResolveMissingMaterials.
func (r *Resolver) Resolve(codes []int32, alreadyHeld catalog.ItemCounts) (catalog.ItemCounts, error) {
	targets := make([]*catalog.Item, 0, len(codes))
	for _, code := range codes {
		it, ok := r.Items.FindByCode(code)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrInvalidItemCode, code)
		}
		targets = append(targets, it)
	}
	return r.ResolveMissingMaterials(targets, alreadyHeld)
}

// ResolveMissingMaterials crafts the targets down to base materials, left to right,
// depth first, first material before second. A held unit of any node satisfies
// that node without descending into it, and every craft puts its surplus units
// (InitialCount - 1) back into the held stock for later nodes.
// alreadyHeld is not modified.
func (r *Resolver) ResolveMissingMaterials(targets []*catalog.Item, alreadyHeld catalog.ItemCounts) (catalog.ItemCounts, error) {
	st := &resolveState{
		items:   r.Items,
		held:    alreadyHeld.Clone(),
		missing: make(catalog.ItemCounts),
		onPath:  make(map[int32]bool),
	}
	for _, it := range targets {
		if err := st.visit(it); err != nil {
			return nil, err
		}
	}
	return st.missing, nil
}

func (st *resolveState) visit(it *catalog.Item) error {
	if st.held.Take(it.Code) {
		return nil
	}
	if it.IsBase() {
		st.missing.Add(it.Code, 1)
		return nil
	}
	if st.onPath[it.Code] {
		return fmt.Errorf("%w: item %d is its own material", ErrCyclicBuildGraph, it.Code)
	}
	st.onPath[it.Code] = true
	defer delete(st.onPath, it.Code)

	for _, code := range []int32{it.MakeMaterial1, it.MakeMaterial2} {
		child, ok := st.items.FindByCode(code)
		if !ok {
			return fmt.Errorf("%w: %d (material of %d)", ErrInvalidItemCode, code, it.Code)
		}
		if err := st.visit(child); err != nil {
			return err
		}
	}
	// Surplus is credited after the subtree; no descendant shares this code.
	st.held.Add(it.Code, it.Yield()-1)
	return nil
}
