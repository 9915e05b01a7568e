package trimmer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
)

// Label is a categorical target value. Labels that parse as numbers are
// encoded as JSON numbers and ordered numerically.
type Label string

// MarshalJSON implements json.Marshaler.
func (l Label) MarshalJSON() ([]byte, error) {
	if _, ok := l.number(); ok {
		return []byte(l), nil
	}
	return json.Marshal(string(l))
}

func (l Label) number() (float64, bool) {
	f, err := strconv.ParseFloat(string(l), 64)
	if err != nil {
		return 0, false
	}
	// reject forms JSON cannot carry verbatim, such as "NaN", "+1" or "0x10"
	if !json.Valid([]byte(l)) {
		return 0, false
	}
	return f, true
}

// Vocabulary returns the sorted unique labels of target. When every label is
// numeric they are ordered by value, otherwise lexicographically.
func Vocabulary(target []Label) []Label {
	seen := make(map[Label]bool, len(target))
	vocab := make([]Label, 0)
	numeric := true
	for _, l := range target {
		if seen[l] {
			continue
		}
		seen[l] = true
		vocab = append(vocab, l)
		if _, ok := l.number(); !ok {
			numeric = false
		}
	}
	if numeric {
		sort.SliceStable(vocab, func(i, j int) bool {
			a, _ := vocab[i].number()
			b, _ := vocab[j].number()
			return a < b
		})
	} else {
		sort.SliceStable(vocab, func(i, j int) bool { return vocab[i] < vocab[j] })
	}
	return vocab
}

// Dataset is a numeric feature matrix with named columns and one categorical
// label per row. A Dataset is never modified after construction.
type Dataset struct {
	Features     *mat.Dense
	FeatureNames []string
	Target       []Label
}

// NewDataset builds a Dataset from row-major feature values.
func NewDataset(rows [][]float64, featureNames []string, target []Label) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "NewDataset")
	}
	nCols := len(featureNames)
	data := make([]float64, 0, len(rows)*nCols)
	for i, row := range rows {
		if len(row) != nCols {
			return nil, errors.Wrapf(
				errors.NewDimensionError("NewDataset", nCols, len(row), 1), "row %d", i)
		}
		data = append(data, row...)
	}
	if nCols == 0 {
		return nil, errors.NewValueError("NewDataset", "at least one feature is required")
	}
	ds := &Dataset{
		Features:     mat.NewDense(len(rows), nCols, data),
		FeatureNames: append([]string(nil), featureNames...),
		Target:       append([]Label(nil), target...),
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate checks that names match columns and labels match rows.
func (d *Dataset) Validate() error {
	if d.Features == nil {
		return errors.Wrap(errors.ErrEmptyData, "Dataset.Validate")
	}
	r, c := d.Features.Dims()
	if len(d.FeatureNames) != c {
		return errors.NewDimensionError("Dataset.Validate", c, len(d.FeatureNames), 1)
	}
	if len(d.Target) != r {
		return errors.NewDimensionError("Dataset.Validate", r, len(d.Target), 0)
	}
	return checkNumericLabels(d.Target)
}

// checkNumericLabels rejects distinct labels that encode to the same JSON
// number, such as "1" and "1.0".
func checkNumericLabels(target []Label) error {
	byValue := make(map[float64]Label)
	for _, l := range target {
		v, ok := l.number()
		if !ok {
			continue
		}
		if prev, dup := byValue[v]; dup && prev != l {
			return errors.NewValueError("Dataset.Validate",
				fmt.Sprintf("labels %q and %q denote the same number", prev, l))
		}
		byValue[v] = l
	}
	return nil
}

// NSamples returns the number of rows.
func (d *Dataset) NSamples() int {
	r, _ := d.Features.Dims()
	return r
}

// encodeTarget maps every label to its index in vocab as an (n x 1) column.
func encodeTarget(target, vocab []Label) *mat.Dense {
	index := make(map[Label]int, len(vocab))
	for i, l := range vocab {
		index[l] = i
	}
	y := mat.NewDense(len(target), 1, nil)
	for i, l := range target {
		y.Set(i, 0, float64(index[l]))
	}
	return y
}
