package tree

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
)

// Supported impurity criteria.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
)

// Criterion computes the impurity of a node from its per-class counts.
type Criterion func(counts []float64, n float64) float64

// Gini returns 1 - sum(p_k^2).
func Gini(counts []float64, n float64) float64 {
	if n <= 0 {
		return 0
	}
	sumSq := 0.0
	for _, c := range counts {
		p := c / n
		sumSq += p * p
	}
	return 1 - sumSq
}

// Entropy returns the Shannon entropy in bits.
func Entropy(counts []float64, n float64) float64 {
	if n <= 0 {
		return 0
	}
	p := make([]float64, len(counts))
	for i, c := range counts {
		p[i] = c / n
	}
	// stat.Entropy uses the natural log and skips zero probabilities.
	return stat.Entropy(p) / math.Ln2
}

// CriterionByName resolves a criterion identifier.
func CriterionByName(name string) (Criterion, error) {
	switch name {
	case CriterionGini:
		return Gini, nil
	case CriterionEntropy:
		return Entropy, nil
	default:
		return nil, errors.NewValidationError("criterion", "must be one of gini, entropy", name)
	}
}
