package trimmer

import (
	"github.com/YuminosukeSato/treetrim/pkg/errors"
)

// TrimReason is why a user wants a node removed from the tree.
type TrimReason string

// Trim reasons. Internal nodes accept the first three, leaves accept
// ReasonLimitDepth and ReasonLeafTooSmall.
const (
	ReasonNotEnoughSamplesToSplit TrimReason = "not enough samples to split"
	ReasonLimitDepth              TrimReason = "limit depth"
	ReasonInsufficientDecrease    TrimReason = "insufficient impurity decrease"
	ReasonLeafTooSmall            TrimReason = "not enough samples in leaf"
)

// ReasonsFor lists the reasons that apply to node.
func ReasonsFor(node NodeReport) []TrimReason {
	if node.Data().Depth == 0 {
		return nil
	}
	if _, ok := node.(*LeafReport); ok {
		return []TrimReason{ReasonLeafTooSmall, ReasonLimitDepth}
	}
	return []TrimReason{ReasonNotEnoughSamplesToSplit, ReasonLimitDepth, ReasonInsufficientDecrease}
}

// SuggestTrim returns the hyperparameter change that removes node when the
// tree is retrained:
//
//	not enough samples to split    -> min_samples_split = n_node_samples + 1
//	limit depth                    -> max_depth = node_depth
//	insufficient impurity decrease -> min_impurity_decrease = weighted decrease
//	not enough samples in leaf     -> min_samples_leaf = n_node_samples + 1
//
// The root cannot be trimmed.
func SuggestTrim(node NodeReport, reason TrimReason) (Update, error) {
	d := node.Data()
	allowed := false
	for _, r := range ReasonsFor(node) {
		if r == reason {
			allowed = true
			break
		}
	}
	if !allowed {
		if d.Depth == 0 {
			return Update{}, errors.NewValueError("SuggestTrim", "the root node cannot be trimmed")
		}
		return Update{}, errors.NewValueError("SuggestTrim", "reason \""+string(reason)+"\" does not apply to this node")
	}

	switch reason {
	case ReasonNotEnoughSamplesToSplit:
		return Update{Name: "min_samples_split", Value: float64(d.NSamples + 1)}, nil
	case ReasonLimitDepth:
		return Update{Name: "max_depth", Value: float64(d.Depth)}, nil
	case ReasonInsufficientDecrease:
		return Update{Name: "min_impurity_decrease", Value: node.(*InternalReport).Decrease.Weighted}, nil
	default:
		return Update{Name: "min_samples_leaf", Value: float64(d.NSamples + 1)}, nil
	}
}
