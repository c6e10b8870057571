// Package report renders the elimination history of a stepwise fit as a
// text table and as a plot of the removed p-values against the exit
// threshold.
package report

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/stepwise/pkg/errors"
	"github.com/YuminosukeSato/stepwise/stepwise"
)

// WriteHistory writes one row per removal round.
func WriteHistory(w io.Writer, steps []stepwise.Step) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITERATION\tFEATURE\tP-VALUE\tREMAINING")
	for _, s := range steps {
		fmt.Fprintf(tw, "%d\t%s\t%.6g\t%d\n", s.Iteration, s.Feature, s.PValue, s.Remaining)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "report: write history")
	}
	return nil
}

// clampP は描画用に p 値を [0,1] に収める。NaN は 1 とみなす。
func clampP(p float64) float64 {
	if math.IsNaN(p) {
		return 1
	}
	return errors.ClipValue(p, 0, 1)
}

// HistoryPlot builds a plot of the removed feature's p-value per round with
// the threshold aout as a horizontal line.
func HistoryPlot(steps []stepwise.Step, aout float64) (*plot.Plot, error) {
	if len(steps) == 0 {
		return nil, errors.NewValueError("report.HistoryPlot", "history is empty")
	}

	pts := make(plotter.XYs, len(steps))
	labels := make([]string, len(steps))
	for i, s := range steps {
		pts[i].X = float64(s.Iteration)
		pts[i].Y = clampP(s.PValue)
		labels[i] = s.Feature
	}

	p := plot.New()
	p.Title.Text = "Backward elimination"
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "p-value of removed feature"
	p.Y.Min = 0
	p.Y.Max = 1

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, errors.Wrap(err, "report: history line")
	}
	p.Add(line, points)

	names, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: labels})
	if err != nil {
		return nil, errors.Wrap(err, "report: feature labels")
	}
	p.Add(names)

	threshold := plotter.NewFunction(func(float64) float64 { return aout })
	threshold.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(threshold)
	p.Legend.Add("removed", line, points)
	p.Legend.Add(fmt.Sprintf("aout = %g", aout), threshold)

	p.X.Min = pts[0].X - 0.5
	p.X.Max = pts[len(pts)-1].X + 0.5
	return p, nil
}

// SaveHistoryPlot writes the plot of HistoryPlot to path. The image format
// follows the file extension (png, svg, pdf, ...).
func SaveHistoryPlot(steps []stepwise.Step, aout float64, path string) error {
	p, err := HistoryPlot(steps, aout)
	if err != nil {
		return err
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "report: save %s", path)
	}
	return nil
}

// WriteHistoryPlot encodes the plot of HistoryPlot in format ("png", "svg",
// ...) to w.
func WriteHistoryPlot(w io.Writer, steps []stepwise.Step, aout float64, format string) error {
	p, err := HistoryPlot(steps, aout)
	if err != nil {
		return err
	}
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	if format == "" {
		return errors.NewValueError("report.WriteHistoryPlot", "format is required")
	}
	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, format)
	if err != nil {
		return errors.Wrapf(err, "report: encode %s", format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "report: write plot")
	}
	return nil
}

// FormatFor returns the plot format implied by path's extension.
func FormatFor(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
