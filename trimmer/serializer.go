package trimmer

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
	"github.com/YuminosukeSato/treetrim/pkg/log"
	"github.com/YuminosukeSato/treetrim/sklearn/tree"
)

const (
	thresholdPlaces  = 3
	impurityPlaces   = 3
	percentagePlaces = 2
	importancePlaces = 4
)

// round rounds half away from zero. Non-finite input is returned unchanged.
func round(x float64, places int) float64 {
	r, err := stats.Round(x, places)
	if err != nil {
		return x
	}
	return r
}

// SerializedTree is the result of a full traversal.
type SerializedTree struct {
	Root NodeReport
	// MaxDepth is the deepest leaf reached.
	MaxDepth int
	// Visited is the number of nodes emitted.
	Visited int
	// UndefinedPercentage is set when the root impurity is zero and every
	// percentage decrease was reported as nil.
	UndefinedPercentage bool
}

// TreeSerializer converts a fitted tree into a nested report.
type TreeSerializer struct {
	tree         *tree.Tree
	featureNames []string
	labels       []Label
	criterion    string
	nTotal       int
}

// NewTreeSerializer creates a serializer for a fitted tree. nTotal is the
// number of training samples used to fit it.
func NewTreeSerializer(t *tree.Tree, featureNames []string, labels []Label, criterion string, nTotal int) *TreeSerializer {
	return &TreeSerializer{
		tree:         t,
		featureNames: featureNames,
		labels:       labels,
		criterion:    criterion,
		nTotal:       nTotal,
	}
}

// NewModelSerializer creates a serializer for a fitted TreeModel.
func NewModelSerializer(m *TreeModel) (*TreeSerializer, error) {
	if err := m.state.RequireFitted("TreeModel", "Serialize"); err != nil {
		return nil, err
	}
	return NewTreeSerializer(m.tree, m.dataset.FeatureNames, m.labels, m.params.Criterion, m.dataset.NSamples()), nil
}

// NodeData extracts the per-node fields of node i at the given depth. The
// split descriptor is set only for internal nodes.
func (s *TreeSerializer) NodeData(i, depth int) NodeData {
	t := s.tree
	d := NodeData{
		Depth:    depth,
		Impurity: ImpurityDescriptor{Criterion: s.criterion, Value: round(t.Impurity[i], impurityPlaces)},
		NSamples: t.NNodeSamples[i],
	}
	if !t.IsLeaf(i) {
		d.Split = &SplitDescriptor{
			Feature:   s.featureNames[t.Feature[i]],
			Threshold: round(t.Threshold[i], thresholdPlaces),
		}
	}
	d.ClassCounts = make([]ClassCount, len(s.labels))
	for k, label := range s.labels {
		d.ClassCounts[k] = ClassCount{Label: label, Count: int(math.Round(t.Value[i][k]))}
	}
	return d
}

// ImpurityDecrease computes the decrease achieved by splitting node into left
// and right, weighted by the node's share of the training samples, and its
// percentage of origin, the root impurity. Percentage is nil when origin is 0.
func (s *TreeSerializer) ImpurityDecrease(node, left, right int, origin float64) ImpurityDecrease {
	t := s.tree
	n := float64(t.NNodeSamples[node])
	weighted := (n / float64(s.nTotal)) *
		(t.Impurity[node] -
			float64(t.NNodeSamples[right])/n*t.Impurity[right] -
			float64(t.NNodeSamples[left])/n*t.Impurity[left])

	d := ImpurityDecrease{Weighted: weighted}
	if origin != 0 {
		p := round(weighted/origin*100, percentagePlaces)
		d.Percentage = &p
	}
	return d
}

// frame is a pending node of the traversal.
type frame struct {
	node   int
	depth  int
	origin float64
	parent *InternalReport
	slot   int
}

// Serialize walks the tree depth-first from the root and returns the nested
// report. Each internal node's children are emitted right first, then left.
// The walk uses an explicit stack, so tree depth is not limited by the call
// stack. A malformed tree (dangling or shared child index, missing class
// counts, unknown feature) yields a ValueError instead of a partial report.
func (s *TreeSerializer) Serialize() (*SerializedTree, error) {
	start := time.Now()
	if err := s.check(); err != nil {
		return nil, err
	}

	t := s.tree
	origin := t.Impurity[0]
	out := &SerializedTree{UndefinedPercentage: origin == 0}
	visited := make([]bool, t.NodeCount())

	stack := []frame{{node: 0, depth: 0, origin: origin, slot: -1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.node < 0 || f.node >= t.NodeCount() {
			return nil, s.malformed("child index %d out of range", f.node)
		}
		if visited[f.node] {
			return nil, s.malformed("node %d is reachable twice", f.node)
		}
		visited[f.node] = true
		out.Visited++

		if err := s.checkNode(f.node); err != nil {
			return nil, err
		}

		var report NodeReport
		if t.IsLeaf(f.node) {
			report = &LeafReport{NodeData: s.NodeData(f.node, f.depth)}
			if f.depth > out.MaxDepth {
				out.MaxDepth = f.depth
			}
		} else {
			left, right := t.ChildrenLeft[f.node], t.ChildrenRight[f.node]
			if right == tree.TreeLeaf {
				return nil, s.malformed("node %d has a left child but no right child", f.node)
			}
			in := &InternalReport{
				NodeData: s.NodeData(f.node, f.depth),
				Decrease: s.ImpurityDecrease(f.node, left, right, f.origin),
			}
			report = in
			// left is pushed first so the right subtree is emitted first
			stack = append(stack,
				frame{node: left, depth: f.depth + 1, origin: f.origin, parent: in, slot: 1},
				frame{node: right, depth: f.depth + 1, origin: f.origin, parent: in, slot: 0},
			)
		}

		if f.parent == nil {
			out.Root = report
		} else {
			f.parent.Children[f.slot] = report
		}
	}

	if out.Visited != t.NodeCount() {
		return nil, s.malformed("%d of %d nodes are unreachable from the root", t.NodeCount()-out.Visited, t.NodeCount())
	}
	if out.UndefinedPercentage && out.Visited > 1 {
		errors.Warn(errors.NewUndefinedMetricWarning("percentage_impurity_decrease", "zero root impurity"))
	}

	log.GetLoggerWithName("trimmer").Debug("Tree serialized",
		log.OperationKey, log.OperationSerialize,
		log.NodeCountKey, out.Visited,
		log.DepthKey, out.MaxDepth,
		log.DurationMsKey, time.Since(start).Milliseconds())
	return out, nil
}

func (s *TreeSerializer) check() error {
	t := s.tree
	if t == nil || t.NodeCount() == 0 {
		return errors.NewValueError("TreeSerializer.Serialize", "tree has no nodes")
	}
	n := t.NodeCount()
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n ||
		len(t.Impurity) != n || len(t.NNodeSamples) != n || len(t.Value) != n {
		return s.malformed("node arrays have different lengths")
	}
	if s.nTotal <= 0 {
		return errors.NewValueError("TreeSerializer.Serialize", "total training samples must be positive")
	}
	return nil
}

func (s *TreeSerializer) checkNode(i int) error {
	t := s.tree
	if len(t.Value[i]) < len(s.labels) {
		return s.malformed("node %d has %d class counts for %d labels", i, len(t.Value[i]), len(s.labels))
	}
	if t.NNodeSamples[i] <= 0 {
		return s.malformed("node %d has no samples", i)
	}
	if !t.IsLeaf(i) && (t.Feature[i] < 0 || t.Feature[i] >= len(s.featureNames)) {
		return s.malformed("node %d splits on unknown feature %d", i, t.Feature[i])
	}
	return nil
}

func (s *TreeSerializer) malformed(format string, args ...interface{}) error {
	return errors.NewValueError("TreeSerializer.Serialize", "malformed tree: "+fmt.Sprintf(format, args...))
}
