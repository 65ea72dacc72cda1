package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"lumia-router/internal/catalog"
)

// DefaultProgressSteps is the target number of PROGRESS messages per search.
const DefaultProgressSteps = 300

// Catalog is everything the search worker reads from the item catalog.
type Catalog interface {
	ItemSource
	AreaSource
	AreaCodes() []int32
	StartItemCounts(characterCode int32, weaponType string) (catalog.ItemCounts, error)
}

// SearchOptions tunes a Searcher.
type SearchOptions struct {
	Workers           int  // goroutines per subset size (default 1)
	ProgressSteps     int  // default DefaultProgressSteps
	IncludeEmptyRoute bool // also test the route that visits no area
	IgnoreCommonItems bool // common items never block a route
	ValidateItemCodes bool // reject unknown codes instead of searching for them
}

// Searcher finds the shortest area combinations whose drops cover a requirement.
// It keeps no state between searches and is safe for concurrent use.
type Searcher struct {
	Catalog Catalog
	Options SearchOptions
}

// NewSearcher creates a Searcher over cat.
func NewSearcher(cat Catalog, opts SearchOptions) *Searcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.ProgressSteps <= 0 {
		opts.ProgressSteps = DefaultProgressSteps
	}
	return &Searcher{Catalog: cat, Options: opts}
}

// progressTracker counts examined candidates and emits PROGRESS at every
// step-th candidate. Emission is serialised and never goes backwards.
type progressTracker struct {
	ctx      context.Context
	emit     func(Message)
	total    uint64
	step     uint64
	examined atomic.Uint64
	mu       sync.Mutex
	last     uint64
}

// tick records one examined candidate. The context is only polled on
// reporting boundaries.
func (p *progressTracker) tick() error {
	v := p.examined.Add(1)
	if v%p.step != 0 {
		return nil
	}
	p.mu.Lock()
	if v > p.last {
		p.last = v
		p.emit(Message{Type: MessageProgress, Current: v, Total: p.total})
	}
	p.mu.Unlock()
	return p.ctx.Err()
}

// progressStep returns ceil(total/steps), at least 1.
func progressStep(total uint64, steps int) uint64 {
	if steps <= 0 {
		steps = DefaultProgressSteps
	}
	s := uint64(steps)
	step := total / s
	if total%s != 0 {
		step++
	}
	if step == 0 {
		step = 1
	}
	return step
}

// Validate checks a resolved request without searching it.
func (s *Searcher) Validate(req SearchRequest) error {
	if len(req.Areas) > MaxUniverse {
		return fmt.Errorf("%w: %d areas (max %d)", ErrUniverseTooLarge, len(req.Areas), MaxUniverse)
	}
	seen := make(map[int32]bool, len(req.Areas))
	for _, a := range req.Areas {
		if seen[a] {
			return fmt.Errorf("%w: duplicate area %d", ErrMalformedRequest, a)
		}
		seen[a] = true
	}
	for code, n := range req.Required {
		if n < 0 {
			return fmt.Errorf("%w: negative count %d for item %d", ErrMalformedRequest, n, code)
		}
		if s.Options.ValidateItemCodes {
			if _, ok := s.Catalog.FindByCode(code); !ok {
				return fmt.Errorf("%w: %d", ErrInvalidItemCode, code)
			}
		}
	}
	for i, inv := range req.Roster {
		for code, n := range inv {
			if n < 0 {
				return fmt.Errorf("%w: negative count %d for item %d in roster entry %d", ErrMalformedRequest, n, code, i)
			}
			if s.Options.ValidateItemCodes {
				if _, ok := s.Catalog.FindByCode(code); !ok {
					return fmt.Errorf("%w: %d in roster entry %d", ErrInvalidItemCode, code, i)
				}
			}
		}
	}
	return nil
}

func (s *Searcher) commonCodes(required catalog.ItemCounts) map[int32]bool {
	if !s.Options.IgnoreCommonItems {
		return nil
	}
	skip := make(map[int32]bool)
	for code := range required {
		if it, ok := s.Catalog.FindByCode(code); ok && it.Common {
			skip[code] = true
		}
	}
	return skip
}

// Search enumerates area subsets by increasing size and reports every subset of
// the first size that satisfies req.Required. It emits START, PROGRESS and
// FINISH through emit in that order. If ctx is cancelled the search stops at
// the next progress boundary and returns ctx.Err() without emitting FINISH.
// Validation failures are returned before anything is emitted.
func (s *Searcher) Search(ctx context.Context, req SearchRequest, emit func(Message)) (*SearchOutcome, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	n := len(req.Areas)
	from := 1
	if s.Options.IncludeEmptyRoute {
		from = 0
	}
	total, ok := TotalCandidates(n, from)
	if !ok {
		return nil, fmt.Errorf("%w: %d areas", ErrUniverseTooLarge, n)
	}

	agg := NewAggregator(req.Required, req.Roster, req.Areas, s.Catalog, s.commonCodes(req.Required))
	p := &progressTracker{
		ctx:   ctx,
		emit:  emit,
		total: total,
		step:  progressStep(total, s.Options.ProgressSteps),
	}

	emit(Message{Type: MessageStart, Total: total})

	for size := from; size <= n; size++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matches, err := s.searchSize(ctx, agg, req.Areas, size, p)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			emit(Message{Type: MessageFinish, Routes: matches})
			return &SearchOutcome{
				Total:     total,
				Examined:  p.examined.Load(),
				Found:     true,
				RouteSize: size,
				Routes:    matches,
			}, nil
		}
	}

	emit(Message{Type: MessageFinish, Routes: [][]int32{}})
	return &SearchOutcome{Total: total, Examined: p.examined.Load(), Routes: [][]int32{}}, nil
}

// searchSize evaluates every subset of one size. The rank range is split into
// contiguous chunks, one per worker; concatenating chunk results in chunk order
// keeps the lexicographic order of the sequential walk.
func (s *Searcher) searchSize(ctx context.Context, agg *Aggregator, universe []int32, size int, p *progressTracker) ([][]int32, error) {
	count, _ := Binomial(len(universe), size)
	workers := uint64(s.Options.Workers)
	if workers < 1 {
		workers = 1
	}
	if workers > count {
		workers = count
	}
	if workers == 0 {
		return nil, nil
	}

	chunk, rem := count/workers, count%workers
	results := make([][][]int32, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := uint64(0); w < workers; w++ {
		start := w*chunk + min(w, rem)
		length := chunk
		if w < rem {
			length++
		}
		g.Go(func() error {
			scratch := agg.Scratch()
			c := NewCombinationAt(len(universe), size, start)
			var found [][]int32
			for i := uint64(0); i < length && c.Next(); i++ {
				idx := c.Indices()
				if agg.Satisfied(idx, scratch) {
					route := make([]int32, len(idx))
					for j, ix := range idx {
						route[j] = universe[ix]
					}
					found = append(found, route)
				}
				if err := p.tick(); err != nil {
					return err
				}
				if i&0x3ff == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
			}
			results[w] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var matches [][]int32
	for _, r := range results {
		matches = append(matches, r...)
	}
	return matches, nil
}
