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

// Package scores computes classification metrics from true and predicted labels: confusion
// matrix, per-class counts, accuracy and macro-averaged precision, recall and F1.
package scores

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Matrix is a confusion matrix: Matrix[i][j] counts samples of true class i predicted as class j.
type Matrix [][]int

// ClassCounts are the one-vs-rest counts of a class.
type ClassCounts struct {
	TP, FP, FN, TN int
}

// ConfusionMatrix builds the confusion matrix of numClasses classes.
func ConfusionMatrix(numClasses int, truth, predicted []int32) (Matrix, error) {
	if numClasses <= 0 {
		return nil, errors.Errorf("invalid number of classes %d", numClasses)
	}
	if len(truth) != len(predicted) {
		return nil, errors.Errorf("got %d true labels but %d predictions", len(truth), len(predicted))
	}
	m := make(Matrix, numClasses)
	for ii := range m {
		m[ii] = make([]int, numClasses)
	}
	for ii, label := range truth {
		pred := predicted[ii]
		if label < 0 || int(label) >= numClasses || pred < 0 || int(pred) >= numClasses {
			return nil, errors.Errorf("sample %d: label %d or prediction %d out of range [0, %d)", ii, label, pred, numClasses)
		}
		m[label][pred]++
	}
	return m, nil
}

// Total number of samples.
func (m Matrix) Total() (total int) {
	for _, row := range m {
		for _, v := range row {
			total += v
		}
	}
	return
}

// Correct returns the number of correct predictions, the trace of the matrix.
func (m Matrix) Correct() (correct int) {
	for ii := range m {
		correct += m[ii][ii]
	}
	return
}

// PerClass returns the one-vs-rest counts of class i: TP+FP+FN+TN always equals Total().
func (m Matrix) PerClass(i int) ClassCounts {
	var rowSum, colSum int
	for jj := range m {
		rowSum += m[i][jj]
		colSum += m[jj][i]
	}
	tp := m[i][i]
	c := ClassCounts{TP: tp, FP: colSum - tp, FN: rowSum - tp}
	c.TN = m.Total() - c.TP - c.FP - c.FN
	return c
}

// String formats the matrix as rows of right-aligned counts.
func (m Matrix) String() string {
	width := len(fmt.Sprint(m.Total()))
	var sb strings.Builder
	for ii, row := range m {
		if ii > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("[")
		for jj, v := range row {
			if jj > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "%*d", width, v)
		}
		sb.WriteString("]")
	}
	return sb.String()
}

// Report holds the metrics of one evaluation. Scalars are fractions in [0, 1].
type Report struct {
	Confusion Matrix
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Compute evaluates predicted against truth. Precision, recall and F1 are macro averages over the
// classes that appear in truth or predicted; within those, a metric with a zero denominator counts
// as 0. Classes absent from both are left out of the averages, but kept in the confusion matrix.
func Compute(numClasses int, truth, predicted []int32) (Report, error) {
	m, err := ConfusionMatrix(numClasses, truth, predicted)
	if err != nil {
		return Report{}, err
	}
	r := Report{Confusion: m, Accuracy: ratio(m.Correct(), m.Total())}
	var present int
	for class := range numClasses {
		c := m.PerClass(class)
		if c.TP+c.FP+c.FN == 0 {
			continue
		}
		present++
		r.Precision += ratio(c.TP, c.TP+c.FP)
		r.Recall += ratio(c.TP, c.TP+c.FN)
		r.F1 += ratio(2*c.TP, 2*c.TP+c.FP+c.FN)
	}
	if present == 0 {
		return r, nil
	}
	n := float64(present)
	r.Precision /= n
	r.Recall /= n
	r.F1 /= n
	return r, nil
}

// Summary averages the scalar metrics of several reports, e.g. over cross-validation folds.
type Summary struct {
	Accuracy, Precision, Recall, F1 float64
}

// Mean returns the arithmetic mean of each scalar metric over reports.
func Mean(reports []Report) Summary {
	var s Summary
	if len(reports) == 0 {
		return s
	}
	for _, r := range reports {
		s.Accuracy += r.Accuracy
		s.Precision += r.Precision
		s.Recall += r.Recall
		s.F1 += r.F1
	}
	n := float64(len(reports))
	s.Accuracy /= n
	s.Precision /= n
	s.Recall /= n
	s.F1 /= n
	return s
}

// Names of the four scalar metrics, in the order returned by Values.
var Names = []string{"Accuracy", "Precision", "Recall", "F1 Score"}

// Values returns accuracy, precision, recall and F1, in the order of Names.
func (r Report) Values() []float64 {
	return []float64{r.Accuracy, r.Precision, r.Recall, r.F1}
}

// Values returns accuracy, precision, recall and F1, in the order of Names.
func (s Summary) Values() []float64 {
	return []float64{s.Accuracy, s.Precision, s.Recall, s.F1}
}
