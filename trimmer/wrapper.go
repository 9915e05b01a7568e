package trimmer

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treetrim/core/model"
	"github.com/YuminosukeSato/treetrim/pkg/errors"
	"github.com/YuminosukeSato/treetrim/pkg/log"
	"github.com/YuminosukeSato/treetrim/preprocessing"
	"github.com/YuminosukeSato/treetrim/sklearn/tree"
)

// TreeModel binds a dataset and hyperparameters to an induction capability
// and owns the resulting fitted tree.
//
// A TreeModel is not safe for concurrent use; see session.Registry for
// serialized access.
type TreeModel struct {
	state *model.StateManager

	dataset *Dataset
	params  Hyperparameters
	labels  []Label
	y       *mat.Dense // target encoded as vocabulary indices

	inducer   Inducer
	evaluator OutOfFoldPredictor

	tree *tree.Tree
}

// ModelOption configures a TreeModel.
type ModelOption func(*TreeModel)

// WithInducer replaces the default CART inducer.
func WithInducer(i Inducer) ModelOption {
	return func(m *TreeModel) {
		m.inducer = i
	}
}

// WithEvaluator replaces the default stratified cross-validation.
func WithEvaluator(e OutOfFoldPredictor) ModelOption {
	return func(m *TreeModel) {
		m.evaluator = e
	}
}

// NewTreeModel validates the inputs, removes the columns named in
// params.FilterFeature and computes the class vocabulary.
func NewTreeModel(ds *Dataset, params Hyperparameters, opts ...ModelOption) (*TreeModel, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	if len(params.FilterFeature) > 0 {
		features, names, err := preprocessing.NewFeatureFilter(params.FilterFeature...).Transform(ds.Features, ds.FeatureNames)
		if err != nil {
			return nil, err
		}
		ds = &Dataset{Features: features, FeatureNames: names, Target: ds.Target}
	}

	labels := Vocabulary(ds.Target)
	m := &TreeModel{
		state:     model.NewStateManager(),
		dataset:   ds,
		params:    params,
		labels:    labels,
		y:         encodeTarget(ds.Target, labels),
		inducer:   CART{},
		evaluator: StratifiedCV{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Fit induces a new tree, replacing any previous one. Errors and panics of
// the inducer are reported as a ModelError of kind KindInductionFailure that
// still wraps the original error.
func (m *TreeModel) Fit() error {
	start := time.Now()
	logger := log.GetLoggerWithName("trimmer").With(log.ModelNameKey, "TreeModel")

	t, err := m.induce()
	if err != nil {
		logger.Error("Tree induction failed", err,
			log.OperationKey, log.OperationFit,
			log.ErrorCodeKey, log.ErrorInduction)
		return err
	}

	m.tree = t
	m.state.SetDimensions(len(m.dataset.FeatureNames), m.dataset.NSamples())
	m.state.SetFitted()

	logger.Info("Tree fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, m.dataset.NSamples(),
		log.FeaturesKey, len(m.dataset.FeatureNames),
		log.ClassesKey, len(m.labels),
		log.CriterionKey, m.params.Criterion,
		log.NodeCountKey, t.NodeCount(),
		log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

func (m *TreeModel) induce() (t *tree.Tree, err error) {
	const op = "TreeModel.Fit"
	defer errors.RecoverAs(&err, op, errors.KindInductionFailure)

	t, err = m.inducer.Induce(m.dataset.Features, m.y, m.params.InductionParams())
	if err != nil {
		return nil, errors.NewModelError(op, errors.KindInductionFailure, err)
	}
	if t == nil || t.NodeCount() == 0 {
		return nil, errors.NewModelError(op, errors.KindInductionFailure, errors.New("inducer returned an empty tree"))
	}
	return t, nil
}

// Tree returns the fitted tree.
func (m *TreeModel) Tree() (*tree.Tree, error) {
	if err := m.state.RequireFitted("TreeModel", "Tree"); err != nil {
		return nil, err
	}
	return m.tree, nil
}

// IsFitted reports whether Fit has succeeded.
func (m *TreeModel) IsFitted() bool {
	return m.state.IsFitted()
}

// Labels returns the class vocabulary in the order used by the tree's
// per-class counts.
func (m *TreeModel) Labels() []Label {
	return append([]Label(nil), m.labels...)
}

// Dataset returns the training data after feature filtering.
func (m *TreeModel) Dataset() *Dataset {
	return m.dataset
}

// Hyperparameters returns the parameters as configured, without the
// internal impurity decrease bump.
func (m *TreeModel) Hyperparameters() Hyperparameters {
	return m.params
}

// outOfFold runs the evaluator and wraps its failures as KindEvaluationFailure.
func (m *TreeModel) outOfFold() (pred *mat.VecDense, err error) {
	const op = "TreeModel.CrossValidate"
	defer errors.RecoverAs(&err, op, errors.KindEvaluationFailure)

	pred, err = m.evaluator.PredictOutOfFold(m.dataset.Features, m.y, m.params.InductionParams(), m.params.CVFolds)
	if err != nil {
		return nil, errors.NewModelError(op, errors.KindEvaluationFailure, err)
	}
	if pred == nil || pred.Len() != m.dataset.NSamples() {
		got := 0
		if pred != nil {
			got = pred.Len()
		}
		return nil, errors.NewModelError(op, errors.KindEvaluationFailure,
			errors.NewDimensionError(op, m.dataset.NSamples(), got, 0))
	}
	return pred, nil
}
