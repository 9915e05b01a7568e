package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
	"github.com/YuminosukeSato/treetrim/trimmer"
)

func sampleReport() *trimmer.Report {
	pct := 100.0
	leaf := func() *trimmer.LeafReport {
		return &trimmer.LeafReport{NodeData: trimmer.NodeData{
			Depth:       1,
			Impurity:    trimmer.ImpurityDescriptor{Criterion: "gini", Value: 0},
			NSamples:    2,
			ClassCounts: []trimmer.ClassCount{{Label: "0", Count: 0}, {Label: "1", Count: 0}},
		}}
	}
	right, left := leaf(), leaf()
	right.ClassCounts[1].Count = 2
	left.ClassCounts[0].Count = 2
	root := &trimmer.InternalReport{
		NodeData: trimmer.NodeData{
			Depth:       0,
			Split:       &trimmer.SplitDescriptor{Feature: "A", Threshold: 1.5},
			Impurity:    trimmer.ImpurityDescriptor{Criterion: "gini", Value: 0.5},
			NSamples:    4,
			ClassCounts: []trimmer.ClassCount{{Label: "0", Count: 2}, {Label: "1", Count: 2}},
		},
		Decrease: trimmer.ImpurityDecrease{Weighted: 0.5, Percentage: &pct},
		Children: [2]trimmer.NodeReport{right, left},
	}
	return &trimmer.Report{
		Root: root,
		Summary: &trimmer.Summary{
			TotalDepth:  1,
			TotalNodes:  3,
			ClassLabels: []trimmer.Label{"0", "1"},
			ImportantFeatures: []trimmer.FeatureImportance{
				{Name: "A", Importance: 1},
				{Name: "B", Importance: 0},
			},
			ConfusionMatrix: [][]int{{2, 0}, {0, 2}},
			Accuracy:        1,
		},
	}
}

func TestNodeLabel(t *testing.T) {
	r := sampleReport()
	root := r.Root.(*trimmer.InternalReport)

	tests := []struct {
		name string
		node trimmer.NodeReport
		want string
	}{
		{
			name: "internal",
			node: root,
			want: "A <= 1.5\ngini = 0.5\nsamples = 4\nvalue = [0: 2, 1: 2]\ndecrease = 100%",
		},
		{
			name: "leaf",
			node: root.Right(),
			want: "gini = 0\nsamples = 2\nvalue = [0: 0, 1: 2]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NodeLabel(tt.node); got != tt.want {
				t.Errorf("NodeLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeGraph_Dot(t *testing.T) {
	var buf bytes.Buffer
	if err := TreeGraph(sampleReport(), "dot", &buf); err != nil {
		t.Fatalf("TreeGraph: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"digraph", "n0", "n1", "n2", "->", "samples", "box"} {
		if !strings.Contains(out, want) {
			t.Errorf("dot output missing %q:\n%s", want, out)
		}
	}
}

func TestTreeGraph_InvalidInput(t *testing.T) {
	var buf bytes.Buffer
	var ve *errors.ValidationError
	if err := TreeGraph(sampleReport(), "bmp", &buf); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for unknown format, got %v", err)
	}
	var valErr *errors.ValueError
	if err := TreeGraph(nil, "dot", &buf); !errors.As(err, &valErr) {
		t.Errorf("expected ValueError for nil report, got %v", err)
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written on invalid input")
	}
}

func TestImportanceChart(t *testing.T) {
	tests := []struct {
		format string
		prefix []byte
	}{
		{format: "png", prefix: []byte("\x89PNG")},
		{format: "SVG", prefix: nil},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := ImportanceChart(sampleReport().Summary, tt.format, &buf); err != nil {
				t.Fatalf("ImportanceChart: %v", err)
			}
			if buf.Len() == 0 {
				t.Fatal("empty chart")
			}
			if tt.prefix != nil && !bytes.HasPrefix(buf.Bytes(), tt.prefix) {
				t.Errorf("output does not start with %q", tt.prefix)
			}
			if tt.prefix == nil && !strings.Contains(buf.String(), "<svg") {
				t.Error("svg output has no <svg element")
			}
		})
	}
}

func TestImportanceChart_InvalidInput(t *testing.T) {
	var buf bytes.Buffer
	var valErr *errors.ValueError
	if err := ImportanceChart(&trimmer.Summary{}, "png", &buf); !errors.As(err, &valErr) {
		t.Errorf("expected ValueError for empty ranking, got %v", err)
	}
	var ve *errors.ValidationError
	if err := ImportanceChart(sampleReport().Summary, "gif", &buf); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for unknown format, got %v", err)
	}
}

func TestCheckFormats(t *testing.T) {
	for _, f := range GraphFormats() {
		if err := CheckGraphFormat(strings.ToUpper(f)); err != nil {
			t.Errorf("CheckGraphFormat(%q): %v", f, err)
		}
	}
	for _, f := range ChartFormats() {
		if err := CheckChartFormat(f); err != nil {
			t.Errorf("CheckChartFormat(%q): %v", f, err)
		}
	}
	var ve *errors.ValidationError
	if err := CheckGraphFormat("pdf"); !errors.As(err, &ve) {
		t.Errorf("graphs do not support pdf, got %v", err)
	}
	if err := CheckChartFormat("dot"); !errors.As(err, &ve) {
		t.Errorf("charts do not support dot, got %v", err)
	}
	if err := CheckChartFormat(""); !errors.As(err, &ve) {
		t.Errorf("empty chart format: expected ValidationError, got %v", err)
	}
}
