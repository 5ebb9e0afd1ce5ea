/*
 *	Copyright 2024 The klasifikasijenisdaging Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package charts renders the experiment charts as PNG images: training curves per fold, the
// cross-validation summary and the comparison of metrics across batch sizes.
package charts

import (
	"fmt"
	"image/color"
	"os"
	"strconv"

	"github.com/anommahartha/klasifikasijenisdaging/pkg/scores"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	blue   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	green  = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	red    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	orange = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	purple = color.RGBA{R: 148, G: 103, B: 189, A: 255}
	violet = color.RGBA{R: 191, G: 0, B: 191, A: 255}

	// MetricColors for accuracy, precision, recall and F1, in the order of scores.Names.
	MetricColors = []color.Color{blue, green, orange, purple}
)

// saveGrid draws the plots in a grid and saves it as a PNG image to filePath.
func saveGrid(plots [][]*plot.Plot, width, height vg.Length, filePath string) error {
	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      len(plots[0]),
		PadX:      vg.Millimeter * 8,
		PadY:      vg.Millimeter * 8,
		PadTop:    vg.Millimeter * 3,
		PadBottom: vg.Millimeter * 3,
		PadLeft:   vg.Millimeter * 3,
		PadRight:  vg.Millimeter * 3,
	}
	canvases := plot.Align(plots, tiles, dc)
	for row := range plots {
		for col, p := range plots[row] {
			if p != nil {
				p.Draw(canvases[row][col])
			}
		}
	}
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create chart file %q", filePath)
	}
	if _, err = (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write chart to %q", filePath)
	}
	if err = f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close chart file %q", filePath)
	}
	return nil
}

// epochXYs returns the points (epoch, value), with epochs starting at 1.
func epochXYs(values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(values))
	for ii, v := range values {
		xys[ii] = plotter.XY{X: float64(ii + 1), Y: v}
	}
	return xys
}

// TrainingCurves saves to filePath a chart with two panels: training and validation accuracy
// (in %) per epoch, and training and validation loss per epoch.
func TrainingCurves(filePath string, trainAccuracy, valAccuracy, trainLoss, valLoss []float64) error {
	toPercent := func(values []float64) []float64 {
		out := make([]float64, len(values))
		for ii, v := range values {
			out[ii] = 100 * v
		}
		return out
	}
	accuracy := plot.New()
	accuracy.X.Label.Text = "Epoch"
	accuracy.Y.Label.Text = "Accuracy (%)"
	accuracy.Legend.Top = true
	err := plotutil.AddLines(accuracy,
		"Training Accuracy", epochXYs(toPercent(trainAccuracy)),
		"Validation Accuracy", epochXYs(toPercent(valAccuracy)))
	if err != nil {
		return errors.Wrap(err, "failed to plot accuracy curves")
	}

	loss := plot.New()
	loss.X.Label.Text = "Epoch"
	loss.Y.Label.Text = "Loss"
	loss.Legend.Top = true
	err = plotutil.AddLines(loss,
		"Training Loss", epochXYs(trainLoss),
		"Validation Loss", epochXYs(valLoss))
	if err != nil {
		return errors.Wrap(err, "failed to plot loss curves")
	}
	return saveGrid([][]*plot.Plot{{accuracy, loss}}, 12*vg.Inch, 4*vg.Inch, filePath)
}

// FoldSummary saves to filePath a 2x2 grid of bar charts, one per metric (accuracy, precision,
// recall and F1), with one bar per fold labeled with its percentage and a dashed line at the
// average over the folds.
func FoldSummary(filePath string, perFold []scores.Report) error {
	if len(perFold) == 0 {
		return errors.New("no folds to summarize")
	}
	average := scores.Mean(perFold).Values()
	foldNames := make([]string, len(perFold))
	for ii := range perFold {
		foldNames[ii] = strconv.Itoa(ii + 1)
	}

	grid := [][]*plot.Plot{make([]*plot.Plot, 2), make([]*plot.Plot, 2)}
	for metricIdx, name := range scores.Names {
		values := make(plotter.Values, len(perFold))
		xys := make(plotter.XYs, len(perFold))
		labels := make([]string, len(perFold))
		for foldIdx, report := range perFold {
			v := 100 * report.Values()[metricIdx]
			values[foldIdx] = v
			xys[foldIdx] = plotter.XY{X: float64(foldIdx), Y: v}
			labels[foldIdx] = fmt.Sprintf("%.2f%%", v)
		}

		p := plot.New()
		p.Title.Text = "K-Fold Cross Validation - " + name
		p.X.Label.Text = "Fold"
		p.Y.Label.Text = name + " (%)"
		p.Y.Min, p.Y.Max = 0, 110
		p.Legend.Top = true
		p.NominalX(foldNames...)

		bars, err := plotter.NewBarChart(values, vg.Points(30))
		if err != nil {
			return errors.Wrapf(err, "failed to create %s bars", name)
		}
		bars.Color = MetricColors[metricIdx]
		bars.LineStyle.Width = 0

		avg := 100 * average[metricIdx]
		avgLine := plotter.NewFunction(func(float64) float64 { return avg })
		avgLine.Color = red
		avgLine.Width = vg.Points(1.5)
		avgLine.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

		barLabels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
		if err != nil {
			return errors.Wrapf(err, "failed to create %s labels", name)
		}
		for ii := range barLabels.TextStyle {
			barLabels.TextStyle[ii].XAlign = draw.XCenter
		}
		barLabels.Offset = vg.Point{Y: vg.Points(3)}

		p.Add(bars, avgLine, barLabels)
		p.Legend.Add("Fold "+name, bars)
		p.Legend.Add(fmt.Sprintf("Average %s: %.2f%%", name, avg), avgLine)
		grid[metricIdx/2][metricIdx%2] = p
	}
	return saveGrid(grid, 14*vg.Inch, 8*vg.Inch, filePath)
}

// BatchSizeMetrics are the percentage metrics of experiments that differ by batch size.
type BatchSizeMetrics struct {
	BatchSizes                      []int
	Accuracy, Precision, Recall, F1 []float64
}

// MetricsByBatchSize saves to filePath a line chart with one line per metric over the batch
// sizes, each point labeled with its percentage.
func MetricsByBatchSize(filePath, title string, m BatchSizeMetrics) error {
	series := [][]float64{m.Accuracy, m.Precision, m.Recall, m.F1}
	for ii, values := range series {
		if len(values) != len(m.BatchSizes) {
			return errors.Errorf("%s has %d values for %d batch sizes", scores.Names[ii], len(values), len(m.BatchSizes))
		}
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Batch Size"
	p.Y.Label.Text = "Percentage"
	p.Add(plotter.NewGrid())
	ticks := make([]plot.Tick, len(m.BatchSizes))
	for ii, batchSize := range m.BatchSizes {
		ticks[ii] = plot.Tick{Value: float64(batchSize), Label: strconv.Itoa(batchSize)}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)

	lineColors := []color.Color{blue, green, red, violet}
	for ii, values := range series {
		xys := make(plotter.XYs, len(values))
		labels := make([]string, len(values))
		for jj, v := range values {
			xys[jj] = plotter.XY{X: float64(m.BatchSizes[jj]), Y: v}
			labels[jj] = fmt.Sprintf("%.2f%%", v)
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return errors.Wrapf(err, "failed to plot %s", scores.Names[ii])
		}
		line.Color = lineColors[ii]
		points.Color = lineColors[ii]
		points.Shape = draw.CircleGlyph{}

		pointLabels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
		if err != nil {
			return errors.Wrapf(err, "failed to label %s", scores.Names[ii])
		}
		for jj := range pointLabels.TextStyle {
			pointLabels.TextStyle[jj].Color = lineColors[ii]
			pointLabels.TextStyle[jj].XAlign = draw.XCenter
		}
		pointLabels.Offset = vg.Point{Y: vg.Points(4)}

		p.Add(line, points, pointLabels)
		p.Legend.Add(scores.Names[ii]+" (%)", line, points)
	}
	return saveGrid([][]*plot.Plot{{p}}, 10*vg.Inch, 6*vg.Inch, filePath)
}
