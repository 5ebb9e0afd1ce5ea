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

package experiment

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anommahartha/klasifikasijenisdaging/pkg/charts"
	"github.com/anommahartha/klasifikasijenisdaging/pkg/imageset"
	"github.com/anommahartha/klasifikasijenisdaging/pkg/scores"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
)

// writeFoldOutputs writes the training report, the metrics report, the test predictions and the
// training curves of the fold into fr.Dir.
func writeFoldOutputs(cfg *Config, result *Result, fr *FoldResult, testSet *imageset.SampleSet) error {
	outputs := []struct {
		prefix string
		write  func(w *bufio.Writer)
	}{
		{"training", func(w *bufio.Writer) { writeTrainingReport(w, cfg, result.RunID, fr) }},
		{"metrics", func(w *bufio.Writer) { writeMetricsReport(w, result.Classes, fr.Report) }},
		{"test", func(w *bufio.Writer) { writePredictions(w, result.Classes, testSet, fr.Predictions) }},
	}
	for _, output := range outputs {
		filePath := filepath.Join(fr.Dir, cfg.artifactName(output.prefix, fr.Fold, ".txt"))
		if err := writeTextFile(filePath, output.write); err != nil {
			return err
		}
	}
	h := fr.History
	return charts.TrainingCurves(filepath.Join(fr.Dir, cfg.artifactName("training_curves", fr.Fold, ".png")),
		h.Accuracy, h.ValAccuracy, h.Loss, h.ValLoss)
}

// writeTextFile creates filePath and fills it with write.
func writeTextFile(filePath string, write func(w *bufio.Writer)) error {
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", filePath)
	}
	w := bufio.NewWriter(f)
	write(w)
	err = w.Flush()
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return errors.Wrapf(err, "failed to write %q", filePath)
}

func writeTrainingReport(w *bufio.Writer, cfg *Config, runID string, fr *FoldResult) {
	h := fr.History
	_, _ = fmt.Fprintf(w, "Run ID: %s\n", runID)
	if cfg.CrossValidation() {
		_, _ = fmt.Fprintf(w, "Fold: %d of %d\n", fr.Fold, cfg.NumFolds)
	}
	_, _ = fmt.Fprintf(w, "History:\n")
	_, _ = fmt.Fprintf(w, "  %5s  %10s  %10s  %10s  %10s\n", "Epoch", "Loss", "Accuracy", "Val Loss", "Val Acc")
	for ii := range h.Loss {
		_, _ = fmt.Fprintf(w, "  %5d  %10.4f  %9.2f%%  %10.4f  %9.2f%%\n",
			ii+1, h.Loss[ii], 100*h.Accuracy[ii], h.ValLoss[ii], 100*h.ValAccuracy[ii])
	}
	_, _ = fmt.Fprintf(w, "Image Width: %d\n", cfg.ImageSize)
	_, _ = fmt.Fprintf(w, "Image Height: %d\n", cfg.ImageSize)
	_, _ = fmt.Fprintf(w, "Number of Epochs: %d\n", cfg.Epochs)
	_, _ = fmt.Fprintf(w, "Batch Size: %d\n", cfg.BatchSize)
	_, _ = fmt.Fprintf(w, "Training samples: %d\n", fr.TrainSize)
	_, _ = fmt.Fprintf(w, "Validation samples: %d\n", fr.ValidationSize)
	if last := len(h.Loss) - 1; last >= 0 {
		_, _ = fmt.Fprintf(w, "Training loss: %.4f\n", h.Loss[last])
		_, _ = fmt.Fprintf(w, "Training accuracy: %.2f%%\n", 100*h.Accuracy[last])
		_, _ = fmt.Fprintf(w, "Validation loss: %.4f\n", h.ValLoss[last])
		_, _ = fmt.Fprintf(w, "Validation accuracy: %.2f%%\n", 100*h.ValAccuracy[last])
	}
	_, _ = fmt.Fprintf(w, "Test loss: %.4f\n", fr.TestLoss)
	_, _ = fmt.Fprintf(w, "Test accuracy: %.2f%%\n", 100*fr.TestAccuracy)
}

func writeMetricsReport(w *bufio.Writer, classes imageset.ClassMap, r scores.Report) {
	_, _ = fmt.Fprintf(w, "Confusion Matrix:\n%s\n", r.Confusion)
	_, _ = fmt.Fprintf(w, "Accuracy: %.2f%%\n", 100*r.Accuracy)
	_, _ = fmt.Fprintf(w, "Precision: %.2f%%\n", 100*r.Precision)
	_, _ = fmt.Fprintf(w, "Recall: %.2f%%\n", 100*r.Recall)
	_, _ = fmt.Fprintf(w, "F1 Score: %.2f%%\n", 100*r.F1)
	_, _ = fmt.Fprintf(w, "True Predictions: %d\n", r.Confusion.Correct())
	for ii, name := range classes.Names {
		c := r.Confusion.PerClass(ii)
		_, _ = fmt.Fprintf(w, "%s:\n", name)
		_, _ = fmt.Fprintf(w, "  True Positives: %d\n", c.TP)
		_, _ = fmt.Fprintf(w, "  False Positives: %d\n", c.FP)
		_, _ = fmt.Fprintf(w, "  False Negatives: %d\n", c.FN)
		_, _ = fmt.Fprintf(w, "  True Negatives: %d\n", c.TN)
	}
}

func writePredictions(w *bufio.Writer, classes imageset.ClassMap, testSet *imageset.SampleSet, predictions []int32) {
	_, _ = fmt.Fprintln(w, "Image Name, True Class, Predicted Class")
	for ii, file := range testSet.Files {
		_, _ = fmt.Fprintf(w, "%s, %s, %s\n", filepath.Base(file),
			classes.Name(int(testSet.Labels[ii])), classes.Name(int(predictions[ii])))
	}
}

// writeSummaryReport writes the metrics averaged over the folds.
func writeSummaryReport(filePath string, result *Result) error {
	return writeTextFile(filePath, func(w *bufio.Writer) {
		_, _ = fmt.Fprintf(w, "Run ID: %s\n", result.RunID)
		_, _ = fmt.Fprintf(w, "Folds: %d\n", len(result.Folds))
		for ii, value := range result.Summary.Values() {
			_, _ = fmt.Fprintf(w, "Average %-9s: %.2f%%\n", scores.Names[ii], 100*value)
		}
	})
}

var (
	headerStyle  = lipgloss.NewStyle().Reverse(true).Padding(0, 2, 0, 2).Align(lipgloss.Center)
	cellStyle    = lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1).Align(lipgloss.Right)
	averageStyle = cellStyle.Bold(true)
)

// SummaryTable returns a table with the test metrics of each fold and, with more than one fold,
// their average.
func (r *Result) SummaryTable() string {
	table := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99")))
	headers := append([]string{"Fold", "Loss"}, scores.Names...)
	table.Headers(headers...)
	for _, fr := range r.Folds {
		row := []string{fmt.Sprintf("%d", fr.Fold), fmt.Sprintf("%.4f", fr.TestLoss)}
		table.Row(append(row, percentages(fr.Report.Values())...)...)
	}
	if len(r.Folds) > 1 {
		table.Row(append([]string{"Average", ""}, percentages(r.Summary.Values())...)...)
	}
	numFolds := len(r.Folds)
	table.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row < 0:
			return headerStyle
		case numFolds > 1 && row == numFolds:
			return averageStyle
		default:
			return cellStyle
		}
	})
	return table.String()
}

func percentages(values []float64) []string {
	parts := make([]string, len(values))
	for ii, v := range values {
		parts[ii] = fmt.Sprintf("%.2f%%", 100*v)
	}
	return parts
}

// String implements fmt.Stringer with a one-line summary of the run.
func (r *Result) String() string {
	parts := make([]string, len(scores.Names))
	for ii, v := range r.Summary.Values() {
		parts[ii] = fmt.Sprintf("%s=%.2f%%", scores.Names[ii], 100*v)
	}
	return fmt.Sprintf("run %s (%d folds) in %q: %s", r.RunID, len(r.Folds), r.RunDir, strings.Join(parts, ", "))
}
