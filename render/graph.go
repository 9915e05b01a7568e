// Package render draws trimmer reports: the tree itself with graphviz and the
// ranked feature importances as a bar chart.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
	"github.com/YuminosukeSato/treetrim/pkg/log"
	"github.com/YuminosukeSato/treetrim/trimmer"
)

var graphFormats = map[string]graphviz.Format{
	"dot": graphviz.XDOT,
	"svg": graphviz.SVG,
	"png": graphviz.PNG,
	"jpg": graphviz.JPG,
}

// GraphFormats lists the formats accepted by TreeGraph.
func GraphFormats() []string {
	return []string{"dot", "svg", "png", "jpg"}
}

// CheckGraphFormat returns a ValidationError unless TreeGraph can write format.
func CheckGraphFormat(format string) error {
	if _, ok := graphFormats[strings.ToLower(format)]; !ok {
		return errors.NewValidationError("format", "must be one of "+strings.Join(GraphFormats(), ", "), format)
	}
	return nil
}

type drawFrame struct {
	node   trimmer.NodeReport
	parent *cgraph.Node
	edge   string
}

// TreeGraph writes report.Root to w in the given format. Edges are created
// right child first, matching the order of the report's children.
func TreeGraph(report *trimmer.Report, format string, w io.Writer) (err error) {
	if report == nil || report.Root == nil {
		return errors.NewValueError("TreeGraph", "report has no tree")
	}
	if err := CheckGraphFormat(format); err != nil {
		return err
	}
	gvFormat := graphFormats[strings.ToLower(format)]

	gv := graphviz.New()
	defer func() {
		if cerr := gv.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close graphviz")
		}
	}()
	graph, err := gv.Graph()
	if err != nil {
		return errors.Wrap(err, "create graph")
	}
	defer func() {
		if cerr := graph.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close graph")
		}
	}()

	nodes := 0
	stack := []drawFrame{{node: report.Root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		current, err := graph.CreateNode(fmt.Sprintf("n%d", nodes))
		if err != nil {
			return errors.Wrap(err, "create node")
		}
		nodes++
		current.Set("label", NodeLabel(f.node))

		if f.parent != nil {
			edge, err := graph.CreateEdge("", f.parent, current)
			if err != nil {
				return errors.Wrap(err, "create edge")
			}
			edge.Set("label", f.edge)
		}

		in, ok := f.node.(*trimmer.InternalReport)
		if !ok {
			current.Set("shape", "box")
			continue
		}
		stack = append(stack,
			drawFrame{node: in.Left(), parent: current, edge: "<="},
			drawFrame{node: in.Right(), parent: current, edge: ">"},
		)
	}

	if err := gv.Render(graph, gvFormat, w); err != nil {
		return errors.Wrapf(err, "render %s", format)
	}
	log.GetLoggerWithName("render").Debug("Tree graph rendered",
		log.NodeCountKey, nodes,
		"render.format", format)
	return nil
}

// NodeLabel is the multi-line text drawn inside a node.
func NodeLabel(n trimmer.NodeReport) string {
	d := n.Data()
	var b strings.Builder
	if d.Split != nil {
		fmt.Fprintf(&b, "%s <= %g\n", d.Split.Feature, d.Split.Threshold)
	}
	fmt.Fprintf(&b, "%s = %g\n", d.Impurity.Criterion, d.Impurity.Value)
	fmt.Fprintf(&b, "samples = %d\n", d.NSamples)
	counts := make([]string, len(d.ClassCounts))
	for i, c := range d.ClassCounts {
		counts[i] = fmt.Sprintf("%s: %d", c.Label, c.Count)
	}
	fmt.Fprintf(&b, "value = [%s]", strings.Join(counts, ", "))
	if in, ok := n.(*trimmer.InternalReport); ok && in.Decrease.Percentage != nil {
		fmt.Fprintf(&b, "\ndecrease = %g%%", *in.Decrease.Percentage)
	}
	return b.String()
}
