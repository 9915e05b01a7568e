package trimmer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
)

// SplitDescriptor names the feature and threshold of an internal node.
// Samples with feature <= Threshold go to the left child.
type SplitDescriptor struct {
	Feature   string
	Threshold float64
}

// MarshalJSON encodes the descriptor as [feature, threshold].
func (s SplitDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{s.Feature, s.Threshold})
}

// ImpurityDescriptor pairs the criterion name with a node's impurity.
type ImpurityDescriptor struct {
	Criterion string
	Value     float64
}

// MarshalJSON encodes the descriptor as [criterion, value].
func (d ImpurityDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{d.Criterion, d.Value})
}

// ClassCount is the number of samples of one class at a node.
type ClassCount struct {
	Label Label
	Count int
}

// MarshalJSON encodes the pair as [label, count].
func (c ClassCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{c.Label, c.Count})
}

// NodeData is what every reported node carries.
type NodeData struct {
	Depth       int
	Split       *SplitDescriptor // nil for leaves
	Impurity    ImpurityDescriptor
	NSamples    int
	ClassCounts []ClassCount
}

// ImpurityDecrease describes the contribution of a split. Percentage is nil
// when the root impurity is zero and the ratio is undefined.
type ImpurityDecrease struct {
	Weighted   float64
	Percentage *float64
}

// NodeReport is either a *LeafReport or an *InternalReport.
type NodeReport interface {
	Data() NodeData
	isNodeReport()
}

// LeafReport is a terminal node.
type LeafReport struct {
	NodeData
}

// Data implements NodeReport.
func (r *LeafReport) Data() NodeData { return r.NodeData }

func (*LeafReport) isNodeReport() {}

// InternalReport is a split node.
//
// Children holds the RIGHT child at index 0 and the LEFT child at index 1.
// Consumers address children by position, so this order must not change.
type InternalReport struct {
	NodeData
	Decrease ImpurityDecrease
	Children [2]NodeReport
}

// Data implements NodeReport.
func (r *InternalReport) Data() NodeData { return r.NodeData }

func (*InternalReport) isNodeReport() {}

// Right returns the child for samples above the threshold.
func (r *InternalReport) Right() NodeReport { return r.Children[0] }

// Left returns the child for samples at or below the threshold.
func (r *InternalReport) Left() NodeReport { return r.Children[1] }

type leafJSON struct {
	NodeDepth   int                `json:"node_depth"`
	Impurity    ImpurityDescriptor `json:"impurity"`
	NNodeSample int                `json:"n_node_samples"`
	ClassCounts []ClassCount       `json:"node_class_counts"`
}

type internalJSON struct {
	NodeDepth   int                `json:"node_depth"`
	Split       *SplitDescriptor   `json:"split"`
	Impurity    ImpurityDescriptor `json:"impurity"`
	NNodeSample int                `json:"n_node_samples"`
	ClassCounts []ClassCount       `json:"node_class_counts"`
	Weighted    float64            `json:"weighted_impurity_decrease"`
	Percentage  *float64           `json:"percentage_impurity_decrease"`
	Children    []NodeReport       `json:"children"`
}

// MarshalJSON implements json.Marshaler.
func (r *LeafReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(leafJSON{
		NodeDepth:   r.Depth,
		Impurity:    r.Impurity,
		NNodeSample: r.NSamples,
		ClassCounts: r.ClassCounts,
	})
}

// MarshalJSON implements json.Marshaler.
func (r *InternalReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(internalJSON{
		NodeDepth:   r.Depth,
		Split:       r.Split,
		Impurity:    r.Impurity,
		NNodeSample: r.NSamples,
		ClassCounts: r.ClassCounts,
		Weighted:    r.Decrease.Weighted,
		Percentage:  r.Decrease.Percentage,
		Children:    r.Children[:],
	})
}

// Walk calls fn for root and every descendant in report order (node, then
// right subtree, then left subtree) without recursing.
func Walk(root NodeReport, fn func(n NodeReport)) {
	stack := []NodeReport{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(n)
		if in, ok := n.(*InternalReport); ok {
			stack = append(stack, in.Children[1], in.Children[0])
		}
	}
}

// Report is the merged output: the tree report plus the quality summary.
type Report struct {
	Root    NodeReport
	Summary *Summary
}

// MarshalJSON writes the root node's keys followed by the summary keys in a
// single object.
func (r *Report) MarshalJSON() ([]byte, error) {
	if r.Root == nil {
		return nil, errors.NewValueError("Report.MarshalJSON", "report has no root node")
	}
	node, err := json.Marshal(r.Root)
	if err != nil || r.Summary == nil {
		return node, err
	}
	summary, err := json.Marshal(r.Summary)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(node) + len(summary))
	buf.Write(node[:len(node)-1])
	buf.WriteByte(',')
	buf.Write(summary[1:])
	return buf.Bytes(), nil
}

// Find returns the node addressed by path, a sequence of 'L' and 'R' steps
// from the root. The empty path is the root.
func (r *Report) Find(path string) (NodeReport, error) {
	node := r.Root
	for i, step := range strings.ToUpper(path) {
		in, ok := node.(*InternalReport)
		if !ok {
			return nil, errors.NewValueError("Report.Find", fmt.Sprintf("path %q descends below a leaf at step %d", path, i))
		}
		switch step {
		case 'L':
			node = in.Left()
		case 'R':
			node = in.Right()
		default:
			return nil, errors.NewValueError("Report.Find", fmt.Sprintf("path steps must be L or R, got %q", step))
		}
	}
	return node, nil
}
