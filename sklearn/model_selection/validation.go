package model_selection

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treetrim/core/model"
	"github.com/YuminosukeSato/treetrim/core/parallel"
	"github.com/YuminosukeSato/treetrim/pkg/errors"
	"github.com/YuminosukeSato/treetrim/pkg/log"
)

// CrossValPredict fits a fresh classifier from factory on every training fold
// and predicts the matching test fold, returning one out-of-fold prediction
// per sample. Folds are evaluated concurrently.
func CrossValPredict(factory model.ClassifierFactory, X, y mat.Matrix, splitter Splitter) (*mat.VecDense, error) {
	nSamples, nFeatures := X.Dims()
	if nSamples < 2 {
		return nil, errors.NewValueError("CrossValPredict", "cross-validation requires at least 2 samples")
	}
	if yRows, _ := y.Dims(); yRows != nSamples {
		return nil, errors.NewDimensionError("CrossValPredict", nSamples, yRows, 0)
	}

	start := time.Now()
	folds, err := splitter.Split(X, y)
	if err != nil {
		return nil, err
	}

	predictions := mat.NewVecDense(nSamples, nil)
	err = parallel.ForEach(len(folds), func(i int) error {
		fold := folds[i]
		if len(fold.TestIndices) == 0 {
			return nil
		}
		clf := factory()
		if err := clf.Fit(selectRows(X, fold.TrainIndices), selectRows(y, fold.TrainIndices)); err != nil {
			return errors.Wrapf(err, "fold %d", i)
		}
		pred, err := clf.Predict(selectRows(X, fold.TestIndices))
		if err != nil {
			return errors.Wrapf(err, "fold %d", i)
		}
		// Test indices are disjoint across folds.
		for j, idx := range fold.TestIndices {
			predictions.SetVec(idx, pred.At(j, 0))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.GetLoggerWithName("model_selection").Debug("Out-of-fold predictions computed",
		log.OperationKey, log.OperationCrossVal,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.FoldsKey, len(folds),
		log.DurationMsKey, time.Since(start).Milliseconds())
	return predictions, nil
}

func selectRows(m mat.Matrix, rows []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, r := range rows {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(r, j))
		}
	}
	return out
}
