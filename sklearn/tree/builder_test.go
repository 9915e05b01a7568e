package tree

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
)

func fourSamples() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	return X, y
}

func TestCriteria(t *testing.T) {
	tests := []struct {
		name   string
		crit   Criterion
		counts []float64
		want   float64
	}{
		{"gini balanced", Gini, []float64{2, 2}, 0.5},
		{"gini pure", Gini, []float64{4, 0}, 0},
		{"gini three classes", Gini, []float64{1, 1, 1}, 2.0 / 3.0},
		{"entropy balanced", Entropy, []float64{2, 2}, 1},
		{"entropy pure", Entropy, []float64{0, 3}, 0},
		{"entropy four classes", Entropy, []float64{1, 1, 1, 1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n float64
			for _, c := range tt.counts {
				n += c
			}
			got := tt.crit(tt.counts, n)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCriterionByName_Unknown(t *testing.T) {
	_, err := CriterionByName("log_loss")
	var valErr *errors.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestBuilder_MinImpurityDecreaseBoundary(t *testing.T) {
	X, y := fourSamples()

	// The perfect split decreases the weighted impurity by exactly 0.5.
	tests := []struct {
		name      string
		threshold float64
		wantNodes int
	}{
		{"below", 0.4, 3},
		{"equal still splits", 0.5, 3},
		{"above blocks", 0.5001, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt := NewDecisionTreeClassifier(
				WithMinImpurityDecrease(tt.threshold),
				WithRandomState(7),
			)
			if err := dt.Fit(X, y); err != nil {
				t.Fatalf("Fit: %v", err)
			}
			if got := dt.Tree().NodeCount(); got != tt.wantNodes {
				t.Errorf("node count = %d, want %d", got, tt.wantNodes)
			}
		})
	}
}

func TestBuilder_MidpointThresholdAndLayout(t *testing.T) {
	X, y := fourSamples()
	dt := NewDecisionTreeClassifier(WithRandomState(7))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	tr := dt.Tree()

	if tr.NodeCount() != 3 {
		t.Fatalf("node count = %d, want 3", tr.NodeCount())
	}
	if tr.Threshold[0] != 1.5 {
		t.Errorf("root threshold = %v, want 1.5", tr.Threshold[0])
	}
	if tr.ChildrenLeft[0] != 1 || tr.ChildrenRight[0] != 2 {
		t.Errorf("children of root = (%d, %d), want (1, 2)", tr.ChildrenLeft[0], tr.ChildrenRight[0])
	}
	if tr.Value[1][0] != 2 || tr.Value[2][1] != 2 {
		t.Errorf("unexpected child values: %v", tr.Value)
	}
	if tr.MaxDepth != 1 {
		t.Errorf("depth = %d, want 1", tr.MaxDepth)
	}
	if got := tr.Apply([]float64{2.5}); got != 2 {
		t.Errorf("Apply(2.5) = %d, want 2", got)
	}
}

func TestBuilder_StructuralInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n, d := 60, 4
	X := mat.NewDense(n, d, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			X.Set(i, j, math.Round(rng.Float64()*10))
		}
		y.Set(i, 0, float64(rng.Intn(3)))
	}

	dt := NewDecisionTreeClassifier(WithRandomState(3))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	tr := dt.Tree()

	if tr.NNodeSamples[0] != n {
		t.Errorf("root samples = %d, want %d", tr.NNodeSamples[0], n)
	}
	for i := 0; i < tr.NodeCount(); i++ {
		l, r := tr.ChildrenLeft[i], tr.ChildrenRight[i]
		if (l == TreeLeaf) != (r == TreeLeaf) {
			t.Fatalf("node %d has exactly one child", i)
		}
		var total float64
		for _, c := range tr.Value[i] {
			total += c
		}
		if int(total) != tr.NNodeSamples[i] {
			t.Errorf("node %d: class counts sum to %v, samples %d", i, total, tr.NNodeSamples[i])
		}
		if l == TreeLeaf {
			if tr.Feature[i] != TreeUndefined || tr.Threshold[i] != TreeUndefined {
				t.Errorf("leaf %d carries a split", i)
			}
			continue
		}
		if tr.NNodeSamples[l]+tr.NNodeSamples[r] != tr.NNodeSamples[i] {
			t.Errorf("node %d: children samples %d+%d != %d",
				i, tr.NNodeSamples[l], tr.NNodeSamples[r], tr.NNodeSamples[i])
		}
		if tr.Feature[i] < 0 || tr.Feature[i] >= d {
			t.Errorf("node %d: feature index %d out of range", i, tr.Feature[i])
		}
	}
}

func TestBuilder_DeterministicWithRandomState(t *testing.T) {
	// Both features separate the classes equally well, so the chosen feature
	// depends only on the visiting order.
	X := mat.NewDense(4, 2, []float64{
		0, 0,
		1, 1,
		2, 2,
		3, 3,
	})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	first := NewDecisionTreeClassifier(WithRandomState(11))
	second := NewDecisionTreeClassifier(WithRandomState(11))
	if err := first.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := second.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if first.Tree().Feature[0] != second.Tree().Feature[0] {
		t.Errorf("same seed chose features %d and %d", first.Tree().Feature[0], second.Tree().Feature[0])
	}
}

func TestBuilder_ConstantFeaturesGiveSingleLeaf(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 5,
		1, 5,
		1, 5,
		1, 5,
	})
	y := mat.NewDense(4, 1, []float64{0, 1, 0, 1})

	dt := NewDecisionTreeClassifier()
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if dt.Tree().NodeCount() != 1 {
		t.Errorf("node count = %d, want 1", dt.Tree().NodeCount())
	}
	for _, imp := range dt.GetFeatureImportances() {
		if imp != 0 {
			t.Errorf("importances should be zero without splits: %v", dt.GetFeatureImportances())
		}
	}
}

func TestDecisionTreeClassifier_InvalidInput(t *testing.T) {
	X, y := fourSamples()

	dt := NewDecisionTreeClassifier(WithCriterion("mse"))
	var valErr *errors.ValidationError
	if err := dt.Fit(X, y); !errors.As(err, &valErr) {
		t.Errorf("expected ValidationError for unknown criterion, got %v", err)
	}

	dt = NewDecisionTreeClassifier()
	short := mat.NewDense(3, 1, []float64{0, 1, 0})
	var dimErr *errors.DimensionError
	if err := dt.Fit(X, short); !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError for mismatched y, got %v", err)
	}

	if err := dt.SetParams(map[string]interface{}{"bogus": 1}); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if err := dt.SetParams(map[string]interface{}{"min_samples_split": 1}); err == nil {
		t.Error("expected error for min_samples_split < 2")
	}
	if dt.GetParams()["min_samples_split"].(int) != 2 {
		t.Error("rejected SetParams must leave parameters unchanged")
	}
}

func TestDecisionTreeClassifier_Classes(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{5, 5, -1, -1})

	dt := NewDecisionTreeClassifier(WithRandomState(7))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	classes := dt.Classes()
	if len(classes) != 2 || classes[0] != -1 || classes[1] != 5 {
		t.Errorf("Classes() = %v, want [-1 5]", classes)
	}
	pred, err := dt.Predict(mat.NewDense(1, 1, []float64{0.2}))
	if err != nil {
		t.Fatal(err)
	}
	if pred.At(0, 0) != 5 {
		t.Errorf("prediction = %v, want 5", pred.At(0, 0))
	}
}

func TestBuilder_EntropyImpurityDecreaseBoundary(t *testing.T) {
	X, y := fourSamples()

	// root entropy is 1 and both children are pure, so the split decreases
	// the weighted impurity by exactly 1
	tests := []struct {
		threshold float64
		wantNodes int
	}{
		{1, 3},
		{1.0001, 1},
	}
	for _, tt := range tests {
		dt := NewDecisionTreeClassifier(
			WithCriterion(CriterionEntropy),
			WithMinImpurityDecrease(tt.threshold),
			WithRandomState(7),
		)
		if err := dt.Fit(X, y); err != nil {
			t.Fatalf("Fit: %v", err)
		}
		if got := dt.Tree().NodeCount(); got != tt.wantNodes {
			t.Errorf("threshold %v: node count = %d, want %d", tt.threshold, got, tt.wantNodes)
		}
	}
}

func TestTree_ValueFollowsSortedClasses(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 3, 4, 5})
	y := mat.NewDense(6, 1, []float64{2, 0, 0, 1, 1, 1})

	dt := NewDecisionTreeClassifier(WithRandomState(7))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	want := []float64{2, 3, 1}
	root := dt.Tree().Value[0]
	for k := range want {
		if root[k] != want[k] {
			t.Fatalf("root value = %v, want %v (classes %v)", root, want, dt.Classes())
		}
	}
}

// depthOf recomputes the depth of every node from the child arrays.
func depthOf(tr *Tree) []int {
	depth := make([]int, tr.NodeCount())
	for i := 0; i < tr.NodeCount(); i++ {
		if tr.IsLeaf(i) {
			continue
		}
		depth[tr.ChildrenLeft[i]] = depth[i] + 1
		depth[tr.ChildrenRight[i]] = depth[i] + 1
	}
	return depth
}

func TestTree_NodeArraysMulticlass(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		3, 3,
		3, 4,
		4, 3,
		6, 6,
		6, 7,
		7, 6,
	})
	y := mat.NewDense(9, 1, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})

	for _, crit := range []string{CriterionGini, CriterionEntropy} {
		t.Run(crit, func(t *testing.T) {
			dt := NewDecisionTreeClassifier(WithCriterion(crit), WithRandomState(7))
			if err := dt.Fit(X, y); err != nil {
				t.Fatalf("Fit: %v", err)
			}
			tr := dt.Tree()
			n := tr.NodeCount()
			if len(tr.ChildrenRight) != n || len(tr.Feature) != n || len(tr.Threshold) != n ||
				len(tr.Impurity) != n || len(tr.NNodeSamples) != n || len(tr.Value) != n {
				t.Fatalf("node arrays disagree on length %d", n)
			}

			leaves, maxDepth := 0, 0
			depth := depthOf(tr)
			for i := 0; i < n; i++ {
				if tr.IsLeaf(i) {
					leaves++
					if tr.ChildrenRight[i] != TreeLeaf {
						t.Errorf("leaf %d has a right child", i)
					}
					if tr.Impurity[i] > 1e-12 {
						t.Errorf("leaf %d impurity = %v, want 0", i, tr.Impurity[i])
					}
				} else if tr.ChildrenLeft[i] <= i || tr.ChildrenRight[i] <= i {
					t.Errorf("children of %d must come after it", i)
				}
				if depth[i] > maxDepth {
					maxDepth = depth[i]
				}
			}
			if tr.MaxDepth != maxDepth || dt.GetDepth() != maxDepth {
				t.Errorf("MaxDepth = %d, GetDepth = %d, computed %d", tr.MaxDepth, dt.GetDepth(), maxDepth)
			}
			if dt.GetNLeaves() != leaves || tr.NLeaves() != leaves {
				t.Errorf("leaves = %d, want %d", dt.GetNLeaves(), leaves)
			}
			if n != 2*leaves-1 {
				t.Errorf("node count %d is not 2*leaves-1 for %d leaves", n, leaves)
			}

			if score := dt.Score(X, y); score != 1 {
				t.Errorf("training accuracy = %v, want 1", score)
			}
			probas, err := dt.PredictProba(X)
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < 9; i++ {
				if p := probas.At(i, int(y.At(i, 0))); p != 1 {
					t.Errorf("sample %d: probability of its class = %v, want 1", i, p)
				}
			}
		})
	}
}

func TestTree_MaxDepthLimit(t *testing.T) {
	X := mat.NewDense(16, 2, nil)
	y := mat.NewDense(16, 1, nil)
	for i := 0; i < 16; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%4))
		y.Set(i, 0, float64(i%2))
	}

	for _, limit := range []int{1, 2, 3} {
		dt := NewDecisionTreeClassifier(WithMaxDepth(limit), WithRandomState(7))
		if err := dt.Fit(X, y); err != nil {
			t.Fatalf("Fit: %v", err)
		}
		tr := dt.Tree()
		if tr.MaxDepth != limit {
			t.Errorf("max_depth=%d: tree depth %d", limit, tr.MaxDepth)
		}
		for i, d := range depthOf(tr) {
			if d == limit && !tr.IsLeaf(i) {
				t.Errorf("max_depth=%d: node %d at the limit was split", limit, i)
			}
		}
	}
}

func TestDecisionTreeClassifier_FeatureImportances(t *testing.T) {
	X := mat.NewDense(8, 3, []float64{
		0, 0, 0,
		0, 1, 1,
		0, 0, 1,
		0, 1, 0,
		1, 0, 0,
		1, 1, 1,
		1, 0, 1,
		1, 1, 0,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	dt := NewDecisionTreeClassifier(WithRandomState(7))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	got := dt.GetFeatureImportances()
	want := []float64{1, 0, 0}
	for j := range want {
		if math.Abs(got[j]-want[j]) > 1e-12 {
			t.Fatalf("importances = %v, want %v", got, want)
		}
	}
}

func TestDecisionTreeClassifier_GetSetParams(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	params := dt.GetParams()
	if params["criterion"] != CriterionGini || params["min_samples_split"] != 2 {
		t.Errorf("unexpected defaults: %v", params)
	}

	err := dt.SetParams(map[string]interface{}{
		"criterion":         CriterionEntropy,
		"max_depth":         5,
		"min_samples_split": 4,
		"min_samples_leaf":  2,
	})
	if err != nil {
		t.Fatalf("SetParams: %v", err)
	}
	params = dt.GetParams()
	if params["criterion"] != CriterionEntropy || params["max_depth"] != 5 ||
		params["min_samples_split"] != 4 || params["min_samples_leaf"] != 2 {
		t.Errorf("params after SetParams = %v", params)
	}
}

func TestDecisionTreeClassifier_NotFitted(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	X := mat.NewDense(1, 1, []float64{0})

	var nf *errors.NotFittedError
	if _, err := dt.Predict(X); !errors.As(err, &nf) {
		t.Errorf("Predict: expected NotFittedError, got %v", err)
	}
	if _, err := dt.PredictProba(X); !errors.As(err, &nf) {
		t.Errorf("PredictProba: expected NotFittedError, got %v", err)
	}
}
