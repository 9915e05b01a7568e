package tree

import (
	"math"
	"math/rand"
	"sort"
)

const (
	// epsilon mirrors np.finfo(float64).eps; a node whose impurity is at or
	// below it is pure.
	epsilon = 2.220446049250313e-16
	// featureThreshold is the minimal gap between two consecutive sorted
	// values for a split to be placed between them.
	featureThreshold = 1e-7
)

// stackRecord is a pending node of the depth-first build.
type stackRecord struct {
	start, end int
	depth      int
	parent     int
	isLeft     bool
}

// split is the best split found for one node.
type split struct {
	feature       int
	threshold     float64
	improvement   float64
	impurityLeft  float64
	impurityRight float64
}

// builder grows a Tree depth-first with an explicit stack, so the build never
// recurses regardless of the configured maximum depth.
type builder struct {
	criterion           Criterion
	maxDepth            int // <= 0 means unbounded
	minSamplesSplit     int
	minSamplesLeaf      int
	minImpurityDecrease float64
	rng                 *rand.Rand

	columns  [][]float64 // column-major copy of X
	y        []int       // class index per sample
	nClasses int
	nTotal   float64
	samples  []int
}

func (b *builder) build(t *Tree) {
	n := len(b.y)
	b.nTotal = float64(n)
	b.samples = make([]int, n)
	for i := range b.samples {
		b.samples[i] = i
	}

	stack := []stackRecord{{start: 0, end: n, depth: 0, parent: TreeUndefined}}
	for len(stack) > 0 {
		rec := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nNode := rec.end - rec.start
		counts := b.classCounts(rec.start, rec.end)
		impurity := b.criterion(counts, float64(nNode))

		isLeaf := (b.maxDepth > 0 && rec.depth >= b.maxDepth) ||
			nNode < b.minSamplesSplit ||
			nNode < 2*b.minSamplesLeaf ||
			impurity <= epsilon

		var best split
		if !isLeaf {
			var ok bool
			best, ok = b.bestSplit(rec.start, rec.end, impurity)
			// strict comparison: a decrease equal to the threshold still splits
			isLeaf = !ok || best.improvement+epsilon < b.minImpurityDecrease
		}

		id := t.addNode(rec.parent, rec.isLeft, isLeaf, best.feature, best.threshold, impurity, nNode, counts)
		if rec.depth > t.MaxDepth {
			t.MaxDepth = rec.depth
		}
		if isLeaf {
			continue
		}

		pos := b.partition(rec.start, rec.end, best.feature, best.threshold)
		// right is pushed first so the left subtree is built first
		stack = append(stack,
			stackRecord{start: pos, end: rec.end, depth: rec.depth + 1, parent: id, isLeft: false},
			stackRecord{start: rec.start, end: pos, depth: rec.depth + 1, parent: id, isLeft: true},
		)
	}
}

func (b *builder) classCounts(start, end int) []float64 {
	counts := make([]float64, b.nClasses)
	for _, s := range b.samples[start:end] {
		counts[b.y[s]]++
	}
	return counts
}

// bestSplit scans every feature, visited in a random order so that ties
// between equally good splits depend on the random state.
func (b *builder) bestSplit(start, end int, impurity float64) (split, bool) {
	nNode := end - start
	best := split{improvement: math.Inf(-1)}
	found := false

	idx := make([]int, nNode)
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)

	for _, f := range b.rng.Perm(len(b.columns)) {
		col := b.columns[f]
		copy(idx, b.samples[start:end])
		sort.SliceStable(idx, func(i, j int) bool { return col[idx[i]] < col[idx[j]] })

		if col[idx[nNode-1]] <= col[idx[0]]+featureThreshold {
			continue // constant feature
		}

		for k := range left {
			left[k] = 0
			right[k] = 0
		}
		for _, s := range idx {
			right[b.y[s]]++
		}

		for i := 0; i < nNode-1; i++ {
			c := b.y[idx[i]]
			left[c]++
			right[c]--

			cur, next := col[idx[i]], col[idx[i+1]]
			if next <= cur+featureThreshold {
				continue
			}
			nLeft := i + 1
			nRight := nNode - nLeft
			if nLeft < b.minSamplesLeaf || nRight < b.minSamplesLeaf {
				continue
			}

			impLeft := b.criterion(left, float64(nLeft))
			impRight := b.criterion(right, float64(nRight))
			improvement := b.improvement(nNode, nLeft, nRight, impurity, impLeft, impRight)
			if improvement > best.improvement {
				threshold := cur/2 + next/2
				if threshold == next || math.IsInf(threshold, 0) || math.IsNaN(threshold) {
					threshold = cur
				}
				best = split{
					feature:       f,
					threshold:     threshold,
					improvement:   improvement,
					impurityLeft:  impLeft,
					impurityRight: impRight,
				}
				found = true
			}
		}
	}
	return best, found
}

// improvement is the weighted impurity decrease of a split:
// N_t/N * (impurity - N_r/N_t*impurity_right - N_l/N_t*impurity_left)
func (b *builder) improvement(nNode, nLeft, nRight int, impurity, impLeft, impRight float64) float64 {
	nt := float64(nNode)
	return (nt / b.nTotal) *
		(impurity - float64(nRight)/nt*impRight - float64(nLeft)/nt*impLeft)
}

// partition reorders samples[start:end] so that samples going left come
// first and returns the boundary.
func (b *builder) partition(start, end, feature int, threshold float64) int {
	col := b.columns[feature]
	seg := b.samples[start:end]
	sort.SliceStable(seg, func(i, j int) bool {
		return col[seg[i]] <= threshold && col[seg[j]] > threshold
	})
	pos := start
	for _, s := range seg {
		if col[s] <= threshold {
			pos++
		}
	}
	return pos
}
