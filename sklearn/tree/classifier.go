package tree

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treetrim/core/model"
	"github.com/YuminosukeSato/treetrim/core/parallel"
	"github.com/YuminosukeSato/treetrim/pkg/errors"
	"github.com/YuminosukeSato/treetrim/pkg/log"
)

// DecisionTreeClassifier is a CART classifier compatible with scikit-learn's
// DecisionTreeClassifier for the parameters it supports.
type DecisionTreeClassifier struct {
	state *model.StateManager

	// Hyperparameters
	criterion           string
	maxDepth            int // <= 0 means unbounded
	minSamplesSplit     int
	minSamplesLeaf      int
	minImpurityDecrease float64
	randomState         int64 // < 0 means unseeded

	// Fitted attributes
	tree_               *Tree
	classes_            []float64
	nClasses_           int
	nFeatures_          int
	featureImportances_ []float64
}

// Option is a functional option for DecisionTreeClassifier
type Option func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates an unfitted classifier. Defaults match
// scikit-learn: gini, unbounded depth, min_samples_split=2, min_samples_leaf=1.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       CriterionGini,
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		randomState:     -1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// WithCriterion sets the impurity criterion ("gini" or "entropy")
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth sets the maximum depth; n <= 0 grows the tree until leaves are pure
func WithMaxDepth(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = n
	}
}

// WithMinSamplesSplit sets the minimum node size for a split
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in each child of a split
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMinImpurityDecrease blocks splits whose weighted impurity decrease is
// strictly below v
func WithMinImpurityDecrease(v float64) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minImpurityDecrease = v
	}
}

// WithRandomState sets the seed used to order candidate features; a negative
// seed draws a fresh one on every Fit
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

func (dt *DecisionTreeClassifier) validateParams() error {
	if _, err := CriterionByName(dt.criterion); err != nil {
		return err
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	if dt.minImpurityDecrease < 0 {
		return errors.NewValidationError("min_impurity_decrease", "must be non-negative", dt.minImpurityDecrease)
	}
	return nil
}

// Fit grows the tree from X (n_samples x n_features) and the column vector y
// of class labels. Re-fitting replaces the previous tree.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	if err := dt.validateParams(); err != nil {
		return err
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DecisionTreeClassifier.Fit")
	}
	if yRows != nSamples {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", 1, yCols, 1)
	}

	start := time.Now()
	dt.state.Reset()

	yIdx := dt.encodeClasses(y)

	columns := make([][]float64, nFeatures)
	for j := range columns {
		columns[j] = mat.Col(nil, j, X)
	}

	crit, _ := CriterionByName(dt.criterion)
	seed := dt.randomState
	if seed < 0 {
		seed = time.Now().UnixNano()
	}

	t := NewTree(nFeatures, dt.nClasses_)
	b := &builder{
		criterion:           crit,
		maxDepth:            dt.maxDepth,
		minSamplesSplit:     dt.minSamplesSplit,
		minSamplesLeaf:      dt.minSamplesLeaf,
		minImpurityDecrease: dt.minImpurityDecrease,
		rng:                 rand.New(rand.NewSource(seed)),
		columns:             columns,
		y:                   yIdx,
		nClasses:            dt.nClasses_,
	}
	b.build(t)

	dt.tree_ = t
	dt.nFeatures_ = nFeatures
	dt.featureImportances_ = t.FeatureImportances()
	dt.state.SetDimensions(nFeatures, nSamples)
	dt.state.SetFitted()

	logger := log.GetLoggerWithName("tree.classifier")
	logger.Debug("DecisionTreeClassifier fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, dt.nClasses_,
		log.NodeCountKey, t.NodeCount(),
		log.DepthKey, t.MaxDepth,
		log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

// encodeClasses stores the sorted unique labels of y and returns the class
// index of every sample.
func (dt *DecisionTreeClassifier) encodeClasses(y mat.Matrix) []int {
	n, _ := y.Dims()
	seen := make(map[float64]bool)
	dt.classes_ = dt.classes_[:0]
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		if !seen[v] {
			seen[v] = true
			dt.classes_ = append(dt.classes_, v)
		}
	}
	sort.Float64s(dt.classes_)
	dt.nClasses_ = len(dt.classes_)

	index := make(map[float64]int, dt.nClasses_)
	for i, c := range dt.classes_ {
		index[c] = i
	}
	yIdx := make([]int, n)
	for i := 0; i < n; i++ {
		yIdx[i] = index[y.At(i, 0)]
	}
	return yIdx
}

// PredictProba returns the class distribution of the leaf reached by each row.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if cols != dt.nFeatures_ {
		return nil, errors.NewDimensionError("DecisionTreeClassifier.PredictProba", dt.nFeatures_, cols, 1)
	}

	probas := mat.NewDense(rows, dt.nClasses_, nil)
	const parallelThreshold = 1000
	parallel.ParallelizeWithThreshold(rows, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			leaf := dt.tree_.Apply(mat.Row(nil, i, X))
			value := dt.tree_.Value[leaf]
			total := float64(dt.tree_.NNodeSamples[leaf])
			for k, c := range value {
				probas.Set(i, k, c/total)
			}
		}
	})
	return probas, nil
}

// Predict returns the most probable class label for each row as an
// (n_samples x 1) matrix. Ties go to the smallest label.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := probas.Dims()
	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for k := 1; k < dt.nClasses_; k++ {
			if probas.At(i, k) > probas.At(i, best) {
				best = k
			}
		}
		predictions.Set(i, 0, dt.classes_[best])
	}
	return predictions, nil
}

// Score returns the mean accuracy on X, y. It returns 0 when prediction fails.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	rows, _ := y.Dims()
	if rows == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < rows; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(rows)
}

// Tree returns the fitted node arrays, or nil before Fit.
func (dt *DecisionTreeClassifier) Tree() *Tree {
	return dt.tree_
}

// Classes returns the sorted class labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	out := make([]float64, len(dt.classes_))
	copy(out, dt.classes_)
	return out
}

// GetFeatureImportances returns the normalized impurity-based importances.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	out := make([]float64, len(dt.featureImportances_))
	copy(out, dt.featureImportances_)
	return out
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.MaxDepth
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.NLeaves()
}

// GetParams returns the hyperparameters using scikit-learn names.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             dt.criterion,
		"max_depth":             dt.maxDepth,
		"min_samples_split":     dt.minSamplesSplit,
		"min_samples_leaf":      dt.minSamplesLeaf,
		"min_impurity_decrease": dt.minImpurityDecrease,
		"random_state":          dt.randomState,
	}
}

// SetParams updates hyperparameters by scikit-learn name. Unknown names and
// values of the wrong type are rejected before anything changes.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	updated := *dt
	for name, value := range params {
		var err error
		switch name {
		case "criterion":
			s, ok := value.(string)
			if !ok {
				err = errors.NewValidationError(name, "must be a string", value)
			}
			updated.criterion = s
		case "max_depth":
			updated.maxDepth, err = toInt(name, value)
		case "min_samples_split":
			updated.minSamplesSplit, err = toInt(name, value)
		case "min_samples_leaf":
			updated.minSamplesLeaf, err = toInt(name, value)
		case "min_impurity_decrease":
			updated.minImpurityDecrease, err = toFloat(name, value)
		case "random_state":
			var seed int
			seed, err = toInt(name, value)
			updated.randomState = int64(seed)
		default:
			err = errors.NewValidationError(name, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	if err := updated.validateParams(); err != nil {
		return err
	}
	*dt = updated
	return nil
}

func toInt(name string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, errors.NewValidationError(name, "must be an integer", v)
		}
		return int(v), nil
	case nil:
		return -1, nil
	default:
		return 0, errors.NewValidationError(name, fmt.Sprintf("unsupported type %T", value), value)
	}
}

func toFloat(name string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, errors.NewValidationError(name, fmt.Sprintf("unsupported type %T", value), value)
	}
}
