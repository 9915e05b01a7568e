package render

import (
	"io"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
	"github.com/YuminosukeSato/treetrim/pkg/log"
	"github.com/YuminosukeSato/treetrim/trimmer"
)

// Chart dimensions.
const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 4 * vg.Inch
	barWidth    = vg.Length(20)
)

var chartFormats = map[string]bool{"png": true, "svg": true, "pdf": true, "jpg": true}

// ChartFormats lists the formats accepted by ImportanceChart.
func ChartFormats() []string {
	return []string{"png", "svg", "pdf", "jpg"}
}

// CheckChartFormat returns a ValidationError unless ImportanceChart can
// write format.
func CheckChartFormat(format string) error {
	if !chartFormats[strings.ToLower(format)] {
		return errors.NewValidationError("format", "must be one of "+strings.Join(ChartFormats(), ", "), format)
	}
	return nil
}

// ImportanceChart writes a bar chart of summary.ImportantFeatures to w, in
// ranking order.
func ImportanceChart(summary *trimmer.Summary, format string, w io.Writer) error {
	if summary == nil || len(summary.ImportantFeatures) == 0 {
		return errors.NewValueError("ImportanceChart", "summary has no ranked features")
	}
	if err := CheckChartFormat(format); err != nil {
		return err
	}
	format = strings.ToLower(format)

	values := make(plotter.Values, len(summary.ImportantFeatures))
	names := make([]string, len(summary.ImportantFeatures))
	for i, f := range summary.ImportantFeatures {
		values[i] = f.Importance
		names[i] = f.Name
	}

	p := plot.New()
	p.Title.Text = "Feature importances"
	p.Y.Label.Text = "importance"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, barWidth)
	if err != nil {
		return errors.Wrap(err, "build bar chart")
	}
	p.Add(bars)
	p.NominalX(names...)

	wt, err := p.WriterTo(chartWidth, chartHeight, format)
	if err != nil {
		return errors.Wrapf(err, "encode %s chart", format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write chart")
	}
	log.GetLoggerWithName("render").Debug("Importance chart rendered",
		log.FeaturesKey, len(names),
		"render.format", format)
	return nil
}
