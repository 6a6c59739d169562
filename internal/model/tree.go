package model

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Node is one node of a flattened binary tree. Feature is -1 for leaves.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Samples   int
}

// treeParams controls growth of a single tree
type treeParams struct {
	maxDepth        int // 0 = unlimited
	minSamplesSplit int
	maxFeatures     int // 0 = all
}

// growTree fits a regression tree on target over the rows in idx.
// Splits minimize the sum of squared errors, which for 0/1 targets ranks
// splits the same way as Gini impurity. Leaf values are target means.
func growTree(cols [][]float64, target []float64, idx []int, p treeParams, rng *rand.Rand) []Node {
	g := &grower{cols: cols, target: target, params: p, rng: rng}
	if g.params.minSamplesSplit < 2 {
		g.params.minSamplesSplit = 2
	}
	g.features = make([]int, len(cols))
	for j := range g.features {
		g.features[j] = j
	}
	g.grow(idx, 0)
	return g.nodes
}

type grower struct {
	cols     [][]float64
	target   []float64
	params   treeParams
	rng      *rand.Rand
	features []int
	nodes    []Node
}

func (g *grower) grow(idx []int, depth int) int {
	sum := 0.0
	for _, i := range idx {
		sum += g.target[i]
	}
	n := len(idx)

	id := len(g.nodes)
	g.nodes = append(g.nodes, Node{Feature: -1, Value: sum / float64(n), Samples: n})

	if n < g.params.minSamplesSplit || (g.params.maxDepth > 0 && depth >= g.params.maxDepth) || g.pure(idx) {
		return id
	}

	feature, threshold, ok := g.bestSplit(idx, sum)
	if !ok {
		return id
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	col := g.cols[feature]
	for _, i := range idx {
		if col[i] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := g.grow(left, depth+1)
	r := g.grow(right, depth+1)

	g.nodes[id].Feature = feature
	g.nodes[id].Threshold = threshold
	g.nodes[id].Left = l
	g.nodes[id].Right = r
	return id
}

func (g *grower) pure(idx []int) bool {
	first := g.target[idx[0]]
	for _, i := range idx[1:] {
		if g.target[i] != first {
			return false
		}
	}
	return true
}

// candidateFeatures returns the features to search at one node.
// With subsampling, features are drawn in random order until maxFeatures
// of them vary over idx; constant features do not count toward the draw.
func (g *grower) candidateFeatures(idx []int) []int {
	k := g.params.maxFeatures
	if k <= 0 || k >= len(g.features) {
		return g.features
	}
	g.rng.Shuffle(len(g.features), func(a, b int) {
		g.features[a], g.features[b] = g.features[b], g.features[a]
	})
	out := make([]int, 0, k)
	for _, j := range g.features {
		if g.constant(j, idx) {
			continue
		}
		out = append(out, j)
		if len(out) == k {
			break
		}
	}
	sort.Ints(out)
	return out
}

func (g *grower) constant(feature int, idx []int) bool {
	col := g.cols[feature]
	first := col[idx[0]]
	for _, i := range idx[1:] {
		if col[i] != first {
			return false
		}
	}
	return true
}

// bestSplit maximizes sumL²/nL + sumR²/nR, equivalent to minimizing child SSE.
// A split without impurity gain is still taken, so XOR-like interactions can
// be reached one level down. The first best split in feature order wins.
func (g *grower) bestSplit(idx []int, total float64) (int, float64, bool) {
	n := len(idx)
	best := -1.0
	bestFeature, bestThreshold, found := -1, 0.0, false

	order := make([]int, n)
	for _, j := range g.candidateFeatures(idx) {
		col := g.cols[j]
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool { return col[order[a]] < col[order[b]] })

		left := 0.0
		for k := 0; k < n-1; k++ {
			left += g.target[order[k]]
			lo, hi := col[order[k]], col[order[k+1]]
			if lo == hi {
				continue
			}
			nl := float64(k + 1)
			nr := float64(n - k - 1)
			right := total - left
			score := left*left/nl + right*right/nr
			if score > best {
				best = score
				bestFeature = j
				bestThreshold = lo + (hi-lo)/2
				found = true
			}
		}
	}

	return bestFeature, bestThreshold, found
}

// leafOf walks nodes to the leaf for row
func leafOf(nodes []Node, row []float64) int {
	i := 0
	for nodes[i].Feature >= 0 {
		if row[nodes[i].Feature] <= nodes[i].Threshold {
			i = nodes[i].Left
		} else {
			i = nodes[i].Right
		}
	}
	return i
}

// DecisionTree is a CART classifier. Leaf values are the fraction of delayed rows.
type DecisionTree struct {
	MaxDepth        int // 0 = grow until leaves are pure
	MinSamplesSplit int
	MaxFeatures     int // 0 = all features at every split
	Seed            int64

	Nodes []Node
}

// Name returns the family name
func (m *DecisionTree) Name() string { return KindDecisionTree }

// Params returns the hyper-parameters
func (m *DecisionTree) Params() map[string]float64 {
	return map[string]float64{
		ParamMaxDepth:        float64(m.MaxDepth),
		ParamMinSamplesSplit: float64(m.MinSamplesSplit),
	}
}

// Fit grows the tree on every row of x
func (m *DecisionTree) Fit(x mat.Matrix, y []int) error {
	rows, _, err := checkLabels(x, y)
	if err != nil {
		return fmt.Errorf("decision tree: %w", err)
	}

	idx := make([]int, rows)
	for i := range idx {
		idx[i] = i
	}
	m.fitRows(columns(x), labelsAsFloat(y), idx, rand.New(rand.NewSource(m.Seed)))
	return nil
}

// fitRows grows the tree on a subset of rows; rows may repeat (bootstrap)
func (m *DecisionTree) fitRows(cols [][]float64, target []float64, idx []int, rng *rand.Rand) {
	m.Nodes = growTree(cols, target, idx, treeParams{
		maxDepth:        m.MaxDepth,
		minSamplesSplit: m.MinSamplesSplit,
		maxFeatures:     m.MaxFeatures,
	}, rng)
}

// Score returns the leaf's delayed fraction
func (m *DecisionTree) Score(row []float64) float64 {
	if len(m.Nodes) == 0 {
		return 0
	}
	return m.Nodes[leafOf(m.Nodes, row)].Value
}

// Classify applies Threshold
func (m *DecisionTree) Classify(row []float64) int {
	return classify(m.Score(row))
}

// Depth returns the depth of the deepest leaf
func (m *DecisionTree) Depth() int {
	if len(m.Nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		if m.Nodes[i].Feature < 0 {
			return 0
		}
		return 1 + max(walk(m.Nodes[i].Left), walk(m.Nodes[i].Right))
	}
	return walk(0)
}

func labelsAsFloat(y []int) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = float64(v)
	}
	return out
}
