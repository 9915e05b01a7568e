package session

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
	"github.com/YuminosukeSato/treetrim/trimmer"
)

func newDataset(t *testing.T) *trimmer.Dataset {
	t.Helper()
	rows := [][]float64{
		{0, 5}, {1, 3}, {2, 8}, {3, 1},
		{4, 9}, {5, 2}, {6, 7}, {7, 4},
	}
	ds, err := trimmer.NewDataset(rows, []string{"x", "y"},
		[]trimmer.Label{"a", "a", "a", "b", "b", "a", "b", "b"})
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	return ds
}

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry()
	id, err := r.Create(newDataset(t))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}

	var nf *errors.NotFittedError
	if _, err := r.Report(id); !errors.As(err, &nf) {
		t.Errorf("Report before Train: expected NotFittedError, got %v", err)
	}
	if _, err := r.Trim(id, "L", trimmer.ReasonLimitDepth); !errors.As(err, &nf) {
		t.Errorf("Trim before Train: expected NotFittedError, got %v", err)
	}

	report, err := r.Train(id, trimmer.DefaultHyperparameters())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	got, err := r.Report(id)
	if err != nil || got != report {
		t.Errorf("Report should return the latest report: %v", err)
	}

	status, err := r.Status(id)
	if err != nil {
		t.Fatal(err)
	}
	if status.State != StateTrained || status.ID != id {
		t.Errorf("status = %+v", status)
	}

	if err := r.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Report(id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after Delete, got %v", err)
	}
	if err := r.Delete(id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Delete: expected ErrSessionNotFound, got %v", err)
	}
}

func TestRegistry_TrimLimitsDepth(t *testing.T) {
	r := NewRegistry()
	id, err := r.Create(newDataset(t))
	if err != nil {
		t.Fatal(err)
	}
	report, err := r.Train(id, trimmer.DefaultHyperparameters())
	if err != nil {
		t.Fatal(err)
	}
	if report.Summary.TotalDepth < 2 {
		t.Skipf("tree too shallow to trim: depth %d", report.Summary.TotalDepth)
	}

	// find an internal node at depth 1 and cut the tree there
	path := "R"
	if _, ok := report.Root.(*trimmer.InternalReport).Right().(*trimmer.InternalReport); !ok {
		path = "L"
	}
	trimmed, err := r.Trim(id, path, trimmer.ReasonLimitDepth)
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if trimmed.Summary.TotalDepth != 1 {
		t.Errorf("depth after trim = %d, want 1", trimmed.Summary.TotalDepth)
	}

	status, _ := r.Status(id)
	if status.Parameters.MaxDepth != 1 {
		t.Errorf("max_depth = %d, want 1", status.Parameters.MaxDepth)
	}
	if len(status.Trims) != 1 || status.Trims[0].Name != "max_depth" {
		t.Errorf("trim history = %v", status.Trims)
	}
}

func TestRegistry_TrimRejectsRoot(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Create(newDataset(t))
	if _, err := r.Train(id, trimmer.DefaultHyperparameters()); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Trim(id, "", trimmer.ReasonLimitDepth); err == nil {
		t.Error("trimming the root should fail")
	}
	status, _ := r.Status(id)
	if len(status.Trims) != 0 {
		t.Error("failed trim must not be recorded")
	}
}

func TestRegistry_FailedTrainKeepsPreviousReport(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Create(newDataset(t))
	first, err := r.Train(id, trimmer.DefaultHyperparameters())
	if err != nil {
		t.Fatal(err)
	}

	bad := trimmer.DefaultHyperparameters()
	bad.FilterFeature = []string{"missing"}
	var fnf *errors.FeatureNotFoundError
	if _, err := r.Train(id, bad); !errors.As(err, &fnf) {
		t.Fatalf("expected FeatureNotFoundError, got %v", err)
	}
	got, err := r.Report(id)
	if err != nil || got != first {
		t.Error("previous report should survive a rejected Train")
	}
}

func TestRegistry_UnknownHandle(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()
	if _, err := r.Train(id, trimmer.DefaultHyperparameters()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Train: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := r.Status(id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Status: expected ErrSessionNotFound, got %v", err)
	}
}

func TestRegistry_ConcurrentSessionsAreIsolated(t *testing.T) {
	r := NewRegistry()
	const n = 8
	ids := make([]uuid.UUID, n)
	for i := range ids {
		id, err := r.Create(newDataset(t))
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = id
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			hp := trimmer.DefaultHyperparameters()
			hp.MaxDepth = 1 + i%3
			_, errs[i] = r.Train(id, hp)
		}(i, id)
	}
	wg.Wait()

	for i, id := range ids {
		if errs[i] != nil {
			t.Fatalf("session %d: %v", i, errs[i])
		}
		status, _ := r.Status(id)
		if status.Parameters.MaxDepth != 1+i%3 {
			t.Errorf("session %d has max_depth %d, want %d", i, status.Parameters.MaxDepth, 1+i%3)
		}
	}
}
