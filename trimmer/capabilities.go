package trimmer

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treetrim/core/model"
	"github.com/YuminosukeSato/treetrim/sklearn/model_selection"
	"github.com/YuminosukeSato/treetrim/sklearn/tree"
)

// InductionParams are the resolved parameters passed to external capabilities.
// MinImpurityDecrease already includes the inclusive-threshold bump.
type InductionParams struct {
	Criterion           string
	MaxDepth            int
	MinSamplesSplit     int
	MinSamplesLeaf      int
	MinImpurityDecrease float64
	Seed                int64 // < 0 means unseeded
}

// Inducer grows a tree from X and the class indices in y (n x 1, values
// 0..K-1). Value vectors of the returned tree must follow class index order.
type Inducer interface {
	Induce(X, y mat.Matrix, p InductionParams) (*tree.Tree, error)
}

// OutOfFoldPredictor returns one out-of-fold class index prediction per row
// of X using folds-fold cross-validation.
type OutOfFoldPredictor interface {
	PredictOutOfFold(X, y mat.Matrix, p InductionParams, folds int) (*mat.VecDense, error)
}

// CART induces trees with sklearn/tree.DecisionTreeClassifier.
type CART struct{}

// Induce implements Inducer.
func (CART) Induce(X, y mat.Matrix, p InductionParams) (*tree.Tree, error) {
	clf := newClassifier(p)
	if err := clf.Fit(X, y); err != nil {
		return nil, err
	}
	return clf.Tree(), nil
}

// StratifiedCV evaluates CART with stratified k-fold cross-validation.
type StratifiedCV struct{}

// PredictOutOfFold implements OutOfFoldPredictor. folds is capped at the
// number of samples.
func (StratifiedCV) PredictOutOfFold(X, y mat.Matrix, p InductionParams, folds int) (*mat.VecDense, error) {
	n, _ := X.Dims()
	if folds > n {
		folds = n
	}
	factory := func() model.Classifier { return newClassifier(p) }
	return model_selection.CrossValPredict(factory, X, y, model_selection.NewStratifiedKFold(folds, false, 0))
}

func newClassifier(p InductionParams) *tree.DecisionTreeClassifier {
	return tree.NewDecisionTreeClassifier(
		tree.WithCriterion(p.Criterion),
		tree.WithMaxDepth(p.MaxDepth),
		tree.WithMinSamplesSplit(p.MinSamplesSplit),
		tree.WithMinSamplesLeaf(p.MinSamplesLeaf),
		tree.WithMinImpurityDecrease(p.MinImpurityDecrease),
		tree.WithRandomState(p.Seed),
	)
}
