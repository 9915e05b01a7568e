package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
	"github.com/YuminosukeSato/treetrim/pkg/log"
	"github.com/YuminosukeSato/treetrim/render"
	"github.com/YuminosukeSato/treetrim/session"
	"github.com/YuminosukeSato/treetrim/trimmer"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type reportOptions struct {
	jobPath   string
	outPath   string
	graphPath string
	chartPath string
	trims     []string
}

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:   "treetrim",
		Short: "Train a decision tree and describe it as a nested report",
		Long: `treetrim trains a classification tree from a YAML job file and writes a
self-describing JSON report of every node, together with feature importances
and a cross-validated confusion matrix.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.LevelWarn
			if verbose {
				level = log.LevelDebug
			}
			log.SetProvider(log.NewZerologProvider(cmd.ErrOrStderr(), level))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
	root.AddCommand(newReportCmd(), newVersionCmd())
	return root
}

func newReportCmd() *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Train the job's tree and write its report",
		Example: `  treetrim report --job job.yaml --out report.json --graph tree.svg
  treetrim report --job job.yaml --trim "R:limit depth" --trim "L:not enough samples in leaf"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.jobPath, "job", "", "YAML job file (required)")
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "write the JSON report here instead of stdout")
	cmd.Flags().StringVar(&opts.graphPath, "graph", "", "render the tree; format from the extension (.dot, .svg, .png, .jpg)")
	cmd.Flags().StringVar(&opts.chartPath, "chart", "", "render the importance chart; format from the extension (.png, .svg, .pdf, .jpg)")
	cmd.Flags().StringArrayVar(&opts.trims, "trim", nil, `trim a node and retrain, as "PATH:REASON" (PATH of L/R steps from the root)`)
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the treetrim version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "treetrim %s\n", version)
		},
	}
}

// validate rejects output paths with unsupported extensions before anything
// is trained or written.
func (o *reportOptions) validate() error {
	if o.graphPath != "" {
		if err := render.CheckGraphFormat(outputFormat(o.graphPath)); err != nil {
			return errors.Wrapf(err, "--graph %s", o.graphPath)
		}
	}
	if o.chartPath != "" {
		if err := render.CheckChartFormat(outputFormat(o.chartPath)); err != nil {
			return errors.Wrapf(err, "--chart %s", o.chartPath)
		}
	}
	for _, t := range o.trims {
		if _, _, err := parseTrim(t); err != nil {
			return err
		}
	}
	return nil
}

func runReport(cmd *cobra.Command, opts *reportOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	job, err := LoadJob(opts.jobPath)
	if err != nil {
		return err
	}
	ds, err := job.Dataset()
	if err != nil {
		return err
	}

	reg := session.NewRegistry()
	id, err := reg.Create(ds)
	if err != nil {
		return err
	}
	defer func() { _ = reg.Delete(id) }()

	report, err := reg.Train(id, job.Parameters)
	if err != nil {
		return err
	}
	for _, t := range opts.trims {
		path, reason, err := parseTrim(t)
		if err != nil {
			return err
		}
		if report, err = reg.Trim(id, path, reason); err != nil {
			return errors.Wrapf(err, "trim %q", t)
		}
	}

	if err := writeReport(cmd.OutOrStdout(), opts.outPath, report); err != nil {
		return err
	}
	if opts.graphPath != "" {
		if err := renderTo(opts.graphPath, func(w io.Writer, format string) error {
			return render.TreeGraph(report, format, w)
		}); err != nil {
			return err
		}
	}
	if opts.chartPath != "" {
		if err := renderTo(opts.chartPath, func(w io.Writer, format string) error {
			return render.ImportanceChart(report.Summary, format, w)
		}); err != nil {
			return err
		}
	}
	return nil
}

// parseTrim splits "PATH:REASON". The root path is empty, as in ":limit depth".
func parseTrim(s string) (string, trimmer.TrimReason, error) {
	path, reason, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(reason) == "" {
		return "", "", errors.NewValidationError("trim", `must look like "PATH:REASON"`, s)
	}
	return strings.TrimSpace(path), trimmer.TrimReason(strings.TrimSpace(reason)), nil
}

func writeReport(stdout io.Writer, path string, report *trimmer.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode report")
	}
	data = append(data, '\n')
	if path == "" {
		_, err = stdout.Write(data)
		return errors.WithStack(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write report %s", path)
	}
	return nil
}

// outputFormat derives a render format from a file extension.
func outputFormat(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func renderTo(path string, draw func(w io.Writer, format string) error) (err error) {
	format := outputFormat(path)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.WithStack(cerr)
		}
	}()
	return draw(f, format)
}
