// Package tree implements CART decision tree classification.
//
// A fitted tree is stored as parallel node arrays indexed 0..NodeCount-1, the
// same layout scikit-learn exposes through DecisionTreeClassifier.tree_. Node 0
// is the root. A node is a leaf when its left child slot holds TreeLeaf; both
// child slots are always set or unset together.
package tree

import (
	"gonum.org/v1/gonum/floats"
)

const (
	// TreeLeaf marks an absent child.
	TreeLeaf = -1
	// TreeUndefined is stored as feature index and threshold of leaves.
	TreeUndefined = -2
)

// Tree is a fitted decision tree.
type Tree struct {
	NFeatures int
	NClasses  int

	ChildrenLeft  []int
	ChildrenRight []int
	Feature       []int
	Threshold     []float64
	Impurity      []float64
	NNodeSamples  []int
	// Value holds per-class sample counts, ordered like the classifier's
	// sorted class labels.
	Value [][]float64

	MaxDepth int
}

// NewTree returns an empty tree for the given problem shape.
func NewTree(nFeatures, nClasses int) *Tree {
	return &Tree{NFeatures: nFeatures, NClasses: nClasses}
}

// NodeCount returns the number of nodes in the tree.
func (t *Tree) NodeCount() int {
	return len(t.ChildrenLeft)
}

// IsLeaf reports whether node i has no children.
func (t *Tree) IsLeaf(i int) bool {
	return t.ChildrenLeft[i] == TreeLeaf
}

// NLeaves returns the number of leaves.
func (t *Tree) NLeaves() int {
	n := 0
	for i := range t.ChildrenLeft {
		if t.IsLeaf(i) {
			n++
		}
	}
	return n
}

// addNode appends a node and links it to its parent. parent is TreeUndefined
// for the root.
func (t *Tree) addNode(parent int, isLeft, isLeaf bool, feature int, threshold, impurity float64, nSamples int, value []float64) int {
	id := len(t.ChildrenLeft)

	t.ChildrenLeft = append(t.ChildrenLeft, TreeLeaf)
	t.ChildrenRight = append(t.ChildrenRight, TreeLeaf)
	if isLeaf {
		t.Feature = append(t.Feature, TreeUndefined)
		t.Threshold = append(t.Threshold, TreeUndefined)
	} else {
		t.Feature = append(t.Feature, feature)
		t.Threshold = append(t.Threshold, threshold)
	}
	t.Impurity = append(t.Impurity, impurity)
	t.NNodeSamples = append(t.NNodeSamples, nSamples)
	t.Value = append(t.Value, value)

	if parent != TreeUndefined {
		if isLeft {
			t.ChildrenLeft[parent] = id
		} else {
			t.ChildrenRight[parent] = id
		}
	}
	return id
}

// Apply returns the index of the leaf reached by x.
func (t *Tree) Apply(x []float64) int {
	node := 0
	for !t.IsLeaf(node) {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return node
}

// FeatureImportances returns the normalized total impurity decrease brought
// by each feature. All zeros for a tree without splits.
func (t *Tree) FeatureImportances() []float64 {
	importances := make([]float64, t.NFeatures)
	for i := range t.ChildrenLeft {
		if t.IsLeaf(i) {
			continue
		}
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		importances[t.Feature[i]] +=
			float64(t.NNodeSamples[i])*t.Impurity[i] -
				float64(t.NNodeSamples[l])*t.Impurity[l] -
				float64(t.NNodeSamples[r])*t.Impurity[r]
	}

	total := floats.Sum(importances)
	if total > 0 {
		floats.Scale(1/total, importances)
	}
	return importances
}
