package engine

import (
	"fmt"
	"testing"
)

func TestBinomial(t *testing.T) {
	tests := []struct {
		n, k int
		want uint64
	}{
		{0, 0, 1},
		{5, 0, 1},
		{5, 5, 1},
		{5, 2, 10},
		{10, 3, 120},
		{30, 15, 155117520},
		{64, 32, 1832624140942590534},
		{3, 4, 0},
		{3, -1, 0},
	}
	for _, tt := range tests {
		got, ok := Binomial(tt.n, tt.k)
		if !ok || got != tt.want {
			t.Errorf("Binomial(%d,%d) = %d,%v; want %d", tt.n, tt.k, got, ok, tt.want)
		}
	}
	if _, ok := Binomial(70, 35); ok {
		t.Error("Binomial(70,35) should overflow")
	}
}

func TestTotalCandidates(t *testing.T) {
	for n := 0; n <= 20; n++ {
		got, ok := TotalCandidates(n, 1)
		if !ok || got != (uint64(1)<<n)-1 {
			t.Errorf("TotalCandidates(%d,1) = %d, want %d", n, got, (uint64(1)<<n)-1)
		}
	}
	if got, _ := TotalCandidates(4, 0); got != 16 {
		t.Errorf("TotalCandidates(4,0) = %d, want 16", got)
	}
	if got, ok := TotalCandidates(63, 1); !ok || got != (uint64(1)<<63)-1 {
		t.Errorf("TotalCandidates(63,1) = %d,%v", got, ok)
	}
	if _, ok := TotalCandidates(64, 1); ok {
		t.Error("TotalCandidates(64,1) should not fit")
	}
}

func TestCombination_CompleteOrderedDistinct(t *testing.T) {
	for n := 1; n <= 7; n++ {
		for k := 1; k <= n; k++ {
			want, _ := Binomial(n, k)
			c := NewCombination(n, k)
			seen := make(map[string]bool)
			var prev []int
			var count uint64
			for c.Next() {
				idx := c.Indices()
				if len(idx) != k {
					t.Fatalf("n=%d k=%d: subset size %d", n, k, len(idx))
				}
				for i := 1; i < k; i++ {
					if idx[i] <= idx[i-1] {
						t.Fatalf("n=%d k=%d: indices not increasing %v", n, k, idx)
					}
				}
				if prev != nil && !lexLess(prev, idx) {
					t.Fatalf("n=%d k=%d: %v not after %v", n, k, idx, prev)
				}
				key := fmt.Sprint(idx)
				if seen[key] {
					t.Fatalf("n=%d k=%d: duplicate %v", n, k, idx)
				}
				seen[key] = true
				prev = append(prev[:0], idx...)
				count++
			}
			if count != want {
				t.Errorf("n=%d k=%d: %d subsets, want %d", n, k, count, want)
			}
		}
	}
}

func lexLess(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func TestCombination_EdgeSizes(t *testing.T) {
	c := NewCombination(3, 0)
	if !c.Next() || len(c.Indices()) != 0 {
		t.Fatal("k=0 should yield one empty subset")
	}
	if c.Next() {
		t.Error("k=0 should yield exactly one subset")
	}
	if NewCombination(2, 3).Next() {
		t.Error("k>n should yield nothing")
	}
}

func TestUnrank_MatchesSequentialWalk(t *testing.T) {
	n, k := 8, 3
	c := NewCombination(n, k)
	var rank uint64
	for c.Next() {
		got := Unrank(n, k, rank)
		if fmt.Sprint(got) != fmt.Sprint(c.Indices()) {
			t.Fatalf("Unrank(%d) = %v, want %v", rank, got, c.Indices())
		}
		rank++
	}
}

func TestNewCombinationAt_ResumesSequence(t *testing.T) {
	n, k := 6, 2
	var all [][]int
	c := NewCombination(n, k)
	for c.Next() {
		all = append(all, append([]int(nil), c.Indices()...))
	}
	for start := range all {
		r := NewCombinationAt(n, k, uint64(start))
		for i := start; i < len(all); i++ {
			if !r.Next() {
				t.Fatalf("start=%d: ended early at %d", start, i)
			}
			if fmt.Sprint(r.Indices()) != fmt.Sprint(all[i]) {
				t.Fatalf("start=%d: got %v, want %v", start, r.Indices(), all[i])
			}
		}
		if r.Next() {
			t.Fatalf("start=%d: yielded past the end", start)
		}
	}
	if NewCombinationAt(n, k, uint64(len(all))).Next() {
		t.Error("rank past the end should yield nothing")
	}
}

func TestCombinations_GenericDeterministic(t *testing.T) {
	universe := []string{"a", "b", "c", "d"}
	run := func() []string {
		var out []string
		for s := range Combinations(universe, 2) {
			out = append(out, fmt.Sprint(s))
		}
		return out
	}
	first, second := run(), run()
	want := []string{"[a b]", "[a c]", "[a d]", "[b c]", "[b d]", "[c d]"}
	if fmt.Sprint(first) != fmt.Sprint(want) {
		t.Errorf("Combinations = %v, want %v", first, want)
	}
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Error("Combinations not deterministic")
	}

	n := 0
	for range Combinations(universe, 1) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("early break: n = %d", n)
	}
}
