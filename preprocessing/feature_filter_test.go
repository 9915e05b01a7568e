package preprocessing

import (
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
)

func sampleData() (*mat.Dense, []string) {
	X := mat.NewDense(2, 4, []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
	})
	return X, []string{"a", "b", "c", "d"}
}

func TestFeatureFilter_Transform(t *testing.T) {
	tests := []struct {
		name      string
		drop      []string
		wantNames []string
		wantRows  [][]float64
	}{
		{
			name:      "No names keeps everything",
			drop:      nil,
			wantNames: []string{"a", "b", "c", "d"},
			wantRows:  [][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}},
		},
		{
			name:      "Single column",
			drop:      []string{"b"},
			wantNames: []string{"a", "c", "d"},
			wantRows:  [][]float64{{1, 3, 4}, {5, 7, 8}},
		},
		{
			name:      "Order of drop list does not matter",
			drop:      []string{"d", "a"},
			wantNames: []string{"b", "c"},
			wantRows:  [][]float64{{2, 3}, {6, 7}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			X, names := sampleData()
			got, gotNames, err := NewFeatureFilter(tt.drop...).Transform(X, names)
			if err != nil {
				t.Fatalf("Transform() error = %v", err)
			}
			if !reflect.DeepEqual(gotNames, tt.wantNames) {
				t.Errorf("names = %v, want %v", gotNames, tt.wantNames)
			}
			for i, row := range tt.wantRows {
				if !reflect.DeepEqual(mat.Row(nil, i, got), row) {
					t.Errorf("row %d = %v, want %v", i, mat.Row(nil, i, got), row)
				}
			}
		})
	}
}

func TestFeatureFilter_MissingNameLeavesInputUntouched(t *testing.T) {
	X, names := sampleData()
	before := mat.DenseCopyOf(X)
	namesBefore := append([]string(nil), names...)

	_, _, err := NewFeatureFilter("a", "nope", "zzz").Transform(X, names)
	var nf *errors.FeatureNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected FeatureNotFoundError, got %v", err)
	}
	if !reflect.DeepEqual(nf.Features, []string{"nope", "zzz"}) {
		t.Errorf("missing features = %v", nf.Features)
	}
	if !mat.Equal(X, before) {
		t.Error("input matrix was modified")
	}
	if !reflect.DeepEqual(names, namesBefore) {
		t.Error("input names were modified")
	}
}

func TestFeatureFilter_SequentialEqualsUnion(t *testing.T) {
	X, names := sampleData()

	step1, names1, err := NewFeatureFilter("a").Transform(X, names)
	if err != nil {
		t.Fatal(err)
	}
	step2, names2, err := NewFeatureFilter("c").Transform(step1, names1)
	if err != nil {
		t.Fatal(err)
	}
	once, namesOnce, err := NewFeatureFilter("a", "c").Transform(X, names)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(names2, namesOnce) {
		t.Errorf("names differ: %v vs %v", names2, namesOnce)
	}
	if !mat.Equal(step2, once) {
		t.Errorf("matrices differ:\n%v\n%v", mat.Formatted(step2), mat.Formatted(once))
	}

	// Filtering an already removed name fails.
	_, _, err = NewFeatureFilter("a").Transform(step2, names2)
	var nf *errors.FeatureNotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected FeatureNotFoundError, got %v", err)
	}
}

func TestFeatureFilter_InvalidInput(t *testing.T) {
	X, _ := sampleData()

	var dimErr *errors.DimensionError
	if _, _, err := NewFeatureFilter().Transform(X, []string{"a"}); !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError, got %v", err)
	}

	var valErr *errors.ValueError
	if _, _, err := NewFeatureFilter("a", "b", "c", "d").Transform(X, []string{"a", "b", "c", "d"}); !errors.As(err, &valErr) {
		t.Errorf("expected ValueError when removing every feature, got %v", err)
	}
}
