// Package model_selection provides cross-validation splitters and out-of-fold
// prediction for classifiers.
package model_selection

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
)

// Splitter generates train/test index folds
type Splitter interface {
	Split(X, y mat.Matrix) ([]Fold, error)
	GetNSplits() int
}

// Fold represents a single fold in cross-validation
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed int) *KFold {
	if nSplits < 2 {
		nSplits = 5 // Default to 5-fold
	}
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates contiguous train/test folds. The first n_samples % n_splits
// folds get one extra sample.
func (kf *KFold) Split(X, _ mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if err := checkSplits("KFold.Split", kf.NSplits, nSamples); err != nil {
		return nil, err
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.RandomSeed), uint64(kf.RandomSeed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	testFold := make([]int, nSamples)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits
	current := 0
	for i := 0; i < kf.NSplits; i++ {
		size := foldSize
		if i < remainder {
			size++
		}
		for _, idx := range indices[current : current+size] {
			testFold[idx] = i
		}
		current += size
	}
	return foldsFromAssignment(testFold, kf.NSplits), nil
}

// StratifiedKFold implements stratified k-fold cross-validation. Without
// shuffling it assigns samples exactly like scikit-learn's StratifiedKFold.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed int) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates folds that preserve the class proportions of y.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if err := checkSplits("StratifiedKFold.Split", skf.NSplits, nSamples); err != nil {
		return nil, err
	}
	if yRows, _ := y.Dims(); yRows != nSamples {
		return nil, errors.NewDimensionError("StratifiedKFold.Split", nSamples, yRows, 0)
	}

	// Group indices by class, classes in ascending order
	classIndices := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		classIndices[label] = append(classIndices[label], i)
	}
	classes := make([]float64, 0, len(classIndices))
	for label := range classIndices {
		classes = append(classes, label)
	}
	sort.Float64s(classes)

	if skf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(skf.RandomSeed), uint64(skf.RandomSeed)))
		for _, label := range classes {
			indices := classIndices[label]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	// Dealing the class-sorted labels round-robin decides how many samples
	// of each class every fold receives.
	allocation := make([][]int, skf.NSplits)
	for i := range allocation {
		allocation[i] = make([]int, len(classes))
	}
	pos := 0
	for k, label := range classes {
		for range classIndices[label] {
			allocation[pos%skf.NSplits][k]++
			pos++
		}
	}

	// Within a class, samples fill fold 0 first, then fold 1, ...
	testFold := make([]int, nSamples)
	for k, label := range classes {
		indices := classIndices[label]
		next := 0
		for fold := 0; fold < skf.NSplits; fold++ {
			for c := 0; c < allocation[fold][k]; c++ {
				testFold[indices[next]] = fold
				next++
			}
		}
	}
	return foldsFromAssignment(testFold, skf.NSplits), nil
}

func checkSplits(op string, nSplits, nSamples int) error {
	if nSplits > nSamples {
		return errors.NewValueError(op, "n_splits cannot be greater than the number of samples")
	}
	return nil
}

// foldsFromAssignment turns a per-sample test fold index into folds whose
// index lists are in ascending order.
func foldsFromAssignment(testFold []int, nSplits int) []Fold {
	folds := make([]Fold, nSplits)
	for idx, f := range testFold {
		for i := range folds {
			if i == f {
				folds[i].TestIndices = append(folds[i].TestIndices, idx)
			} else {
				folds[i].TrainIndices = append(folds[i].TrainIndices, idx)
			}
		}
	}
	return folds
}
