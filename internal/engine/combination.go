package engine

import (
	"iter"
	"math/bits"
)

// MaxUniverse is the largest area universe whose candidate total (2^n - 1) fits in a uint64.
const MaxUniverse = 63

// Binomial returns C(n, k). ok is false when the result overflows uint64.
func Binomial(n, k int) (uint64, bool) {
	if k < 0 || n < 0 || k > n {
		return 0, true
	}
	if k > n-k {
		k = n - k
	}
	var r uint64 = 1
	for i := 1; i <= k; i++ {
		// r * (n-k+i) / i is always an integer; divide the gcd first to delay overflow.
		num := uint64(n - k + i)
		g := gcd(r, uint64(i))
		r /= g
		d := uint64(i) / g
		num /= d
		hi, lo := bits.Mul64(r, num)
		if hi != 0 {
			return 0, false
		}
		r = lo
	}
	return r, true
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// TotalCandidates returns the sum of C(n, size) for size in [from, n].
func TotalCandidates(n, from int) (uint64, bool) {
	if n > MaxUniverse {
		return 0, false
	}
	var total uint64
	for size := max(from, 0); size <= n; size++ {
		c, ok := Binomial(n, size)
		if !ok {
			return 0, false
		}
		total += c
	}
	return total, true
}

// Combination walks the k-subsets of {0..n-1} as strictly increasing index
// tuples in lexicographic order. The zero-size subset is produced once.
type Combination struct {
	n, k    int
	idx     []int
	started bool
	pending bool // positioned by NewCombinationAt, not yet returned
	done    bool
}

// NewCombination returns an iterator positioned before the first subset.
func NewCombination(n, k int) *Combination {
	c := &Combination{n: n, k: k}
	if k < 0 || k > n {
		c.done = true
	}
	return c
}

// NewCombinationAt returns an iterator positioned before the subset with the given rank.
func NewCombinationAt(n, k int, rank uint64) *Combination {
	c := NewCombination(n, k)
	if c.done {
		return c
	}
	total, ok := Binomial(n, k)
	if ok && rank >= total {
		c.done = true
		return c
	}
	c.idx = Unrank(n, k, rank)
	c.started = true
	c.pending = true
	return c
}

// Next advances to the next subset and reports whether one exists.
func (c *Combination) Next() bool {
	if c.done {
		return false
	}
	if c.pending {
		c.pending = false
		return true
	}
	if !c.started {
		c.started = true
		c.idx = make([]int, c.k)
		for i := range c.idx {
			c.idx[i] = i
		}
		return true
	}
	// Find the rightmost index that can still move right.
	i := c.k - 1
	for i >= 0 && c.idx[i] == c.n-c.k+i {
		i--
	}
	if i < 0 {
		c.done = true
		return false
	}
	c.idx[i]++
	for j := i + 1; j < c.k; j++ {
		c.idx[j] = c.idx[j-1] + 1
	}
	return true
}

// Indices returns the current subset. The slice is reused by Next.
func (c *Combination) Indices() []int {
	return c.idx
}

// Unrank returns the index tuple at position rank of the lexicographic k-subset order of n.
// rank must be below C(n, k).
func Unrank(n, k int, rank uint64) []int {
	out := make([]int, 0, k)
	x := 0
	for slot := 0; slot < k; slot++ {
		for {
			// Subsets that pick x here, with the remaining slots from above x.
			count, _ := Binomial(n-x-1, k-slot-1)
			if rank < count {
				break
			}
			rank -= count
			x++
		}
		out = append(out, x)
		x++
	}
	return out
}

// Combinations yields every size-k subset of universe in lexicographic index order.
// Each yielded slice is freshly allocated.
func Combinations[T any](universe []T, k int) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		c := NewCombination(len(universe), k)
		for c.Next() {
			subset := make([]T, k)
			for i, ix := range c.Indices() {
				subset[i] = universe[ix]
			}
			if !yield(subset) {
				return
			}
		}
	}
}
