package trimmer

import (
	"encoding/json"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treetrim/metrics"
	"github.com/YuminosukeSato/treetrim/pkg/errors"
	"github.com/YuminosukeSato/treetrim/pkg/log"
)

// DefaultTopFeatures is the number of ranked features in a summary.
const DefaultTopFeatures = 10

// FeatureImportance is a feature name with its rounded importance.
type FeatureImportance struct {
	Name       string
	Importance float64
}

// MarshalJSON encodes the pair as [name, importance].
func (f FeatureImportance) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{f.Name, f.Importance})
}

// Summary holds the model-quality figures merged into the top-level report.
type Summary struct {
	TotalDepth        int                 `json:"total_depth"`
	TotalNodes        int                 `json:"total_nodes"`
	ClassLabels       []Label             `json:"class_labels"`
	ImportantFeatures []FeatureImportance `json:"important_features"`
	// ConfusionMatrix rows are true labels and columns predicted labels, both
	// in ClassLabels order.
	ConfusionMatrix [][]int `json:"confusion_matrix"`
	Accuracy        float64 `json:"accuracy"`
}

// QualitySummary computes importances and cross-validated figures for a
// fitted TreeModel.
type QualitySummary struct {
	model *TreeModel
}

// NewQualitySummary creates a QualitySummary for m.
func NewQualitySummary(m *TreeModel) *QualitySummary {
	return &QualitySummary{model: m}
}

// TopFeatures returns up to limit features ordered by descending importance,
// importances rounded to 4 places. Equal importances are listed from the
// highest column index down.
func (q *QualitySummary) TopFeatures(limit int) ([]FeatureImportance, error) {
	t, err := q.model.Tree()
	if err != nil {
		return nil, err
	}
	importances := t.FeatureImportances()
	names := q.model.dataset.FeatureNames

	// descending order of a stable ascending argsort
	idx := make([]int, len(importances))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return importances[idx[a]] < importances[idx[b]] })

	if limit > len(idx) || limit < 0 {
		limit = len(idx)
	}
	out := make([]FeatureImportance, 0, limit)
	for k := len(idx) - 1; k >= 0 && len(out) < limit; k-- {
		i := idx[k]
		out = append(out, FeatureImportance{Name: names[i], Importance: round(importances[i], importancePlaces)})
	}
	return out, nil
}

// CrossValidatedConfusionMatrix builds the confusion matrix of out-of-fold
// predictions and returns it with the matching accuracy.
func (q *QualitySummary) CrossValidatedConfusionMatrix() ([][]int, float64, error) {
	if err := q.model.state.RequireFitted("TreeModel", "CrossValidatedConfusionMatrix"); err != nil {
		return nil, 0, err
	}
	start := time.Now()

	pred, err := q.model.outOfFold()
	if err != nil {
		return nil, 0, err
	}
	yTrue := mat.VecDenseCopyOf(q.model.y.ColView(0))

	classIdx := make([]float64, len(q.model.labels))
	for i := range classIdx {
		classIdx[i] = float64(i)
	}
	cm, err := metrics.ConfusionMatrix(yTrue, pred, classIdx)
	if err != nil {
		return nil, 0, errors.NewModelError("TreeModel.CrossValidate", errors.KindEvaluationFailure, err)
	}
	acc, err := metrics.Accuracy(yTrue, pred)
	if err != nil {
		return nil, 0, errors.NewModelError("TreeModel.CrossValidate", errors.KindEvaluationFailure, err)
	}

	rows, cols := cm.Dims()
	out := make([][]int, rows)
	for i := range out {
		out[i] = make([]int, cols)
		for j := range out[i] {
			out[i][j] = int(cm.At(i, j))
		}
	}

	log.GetLoggerWithName("trimmer").Debug("Cross-validated confusion matrix computed",
		log.OperationKey, log.OperationCrossVal,
		log.FoldsKey, q.model.params.CVFolds,
		log.AccuracyKey, acc,
		log.DurationMsKey, time.Since(start).Milliseconds())
	return out, acc, nil
}

// BuildSummary assembles the summary for a serialized tree of the model.
func (q *QualitySummary) BuildSummary(st *SerializedTree) (*Summary, error) {
	t, err := q.model.Tree()
	if err != nil {
		return nil, err
	}
	top, err := q.TopFeatures(DefaultTopFeatures)
	if err != nil {
		return nil, err
	}
	cm, acc, err := q.CrossValidatedConfusionMatrix()
	if err != nil {
		return nil, err
	}
	return &Summary{
		TotalDepth:        st.MaxDepth,
		TotalNodes:        t.NodeCount(),
		ClassLabels:       q.model.Labels(),
		ImportantFeatures: top,
		ConfusionMatrix:   cm,
		Accuracy:          acc,
	}, nil
}

// BuildReport serializes a fitted model and merges the tree report with its
// quality summary. Any failure aborts without a partial report.
func BuildReport(m *TreeModel) (*Report, error) {
	start := time.Now()
	s, err := NewModelSerializer(m)
	if err != nil {
		return nil, err
	}
	st, err := s.Serialize()
	if err != nil {
		return nil, err
	}
	summary, err := NewQualitySummary(m).BuildSummary(st)
	if err != nil {
		return nil, err
	}

	log.GetLoggerWithName("trimmer").Info("Report built",
		log.OperationKey, log.OperationSummary,
		log.NodeCountKey, summary.TotalNodes,
		log.DepthKey, summary.TotalDepth,
		log.AccuracyKey, summary.Accuracy,
		log.DurationMsKey, time.Since(start).Milliseconds())
	return &Report{Root: st.Root, Summary: summary}, nil
}
