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

package scores

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	truth := []int32{0, 0, 1, 1, 2, 2}
	predicted := []int32{0, 1, 1, 1, 2, 0}
	r, err := Compute(3, truth, predicted)
	require.NoError(t, err)
	assert.Equal(t, Matrix{{1, 1, 0}, {0, 2, 0}, {1, 0, 1}}, r.Confusion)
	assert.Equal(t, ClassCounts{TP: 1, FP: 1, FN: 1, TN: 3}, r.Confusion.PerClass(0))
	assert.Equal(t, ClassCounts{TP: 2, FP: 1, FN: 0, TN: 3}, r.Confusion.PerClass(1))
	assert.Equal(t, ClassCounts{TP: 1, FP: 0, FN: 1, TN: 4}, r.Confusion.PerClass(2))
	assert.InDelta(t, 4.0/6.0, r.Accuracy, 1e-9)
	assert.InDelta(t, (0.5+2.0/3.0+1.0)/3.0, r.Precision, 1e-9)
	assert.InDelta(t, (0.5+1.0+0.5)/3.0, r.Recall, 1e-9)
	assert.InDelta(t, (0.5+0.8+2.0/3.0)/3.0, r.F1, 1e-9)
	assert.Equal(t, 4, r.Confusion.Correct())
	assert.Equal(t, "[1 1 0]\n[0 2 0]\n[1 0 1]", r.Confusion.String())
}

func TestComputeZeroDivision(t *testing.T) {
	// Class 2 is never predicted nor present: it is left out of the averages.
	r, err := Compute(3, []int32{0, 0, 1, 1}, []int32{0, 0, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Accuracy)
	assert.InDelta(t, 1.0, r.Precision, 1e-9)
	assert.InDelta(t, 1.0, r.Recall, 1e-9)
	assert.InDelta(t, 1.0, r.F1, 1e-9)
	assert.Equal(t, Matrix{{2, 0, 0}, {0, 2, 0}, {0, 0, 0}}, r.Confusion)

	// Class 2 is predicted but never present: its precision is 0, its recall 0, and it counts.
	r, err = Compute(3, []int32{0, 0, 1, 1}, []int32{0, 2, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, r.Accuracy, 1e-9)
	assert.InDelta(t, (1.0+1.0+0.0)/3.0, r.Precision, 1e-9)
	assert.InDelta(t, (0.5+1.0+0.0)/3.0, r.Recall, 1e-9)
	assert.InDelta(t, (2.0/3.0+1.0+0.0)/3.0, r.F1, 1e-9)

	// Class 1 is present but never predicted: precision 0 for it.
	r, err = Compute(2, []int32{0, 1}, []int32{0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, r.Precision, 1e-9)
	assert.InDelta(t, 0.5, r.Recall, 1e-9)
	assert.InDelta(t, (2.0/3.0)/2.0, r.F1, 1e-9)

	r, err = Compute(3, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.Accuracy)
	assert.Equal(t, 0.0, r.Precision)
}

func TestConfusionIdentity(t *testing.T) {
	rng := rand.New(rand.NewPCG(0, 42))
	const numClasses, numSamples = 4, 500
	truth := make([]int32, numSamples)
	predicted := make([]int32, numSamples)
	for ii := range numSamples {
		truth[ii] = int32(rng.IntN(numClasses))
		predicted[ii] = int32(rng.IntN(numClasses))
	}
	m, err := ConfusionMatrix(numClasses, truth, predicted)
	require.NoError(t, err)
	assert.Equal(t, numSamples, m.Total())
	for class := range numClasses {
		c := m.PerClass(class)
		assert.Equalf(t, numSamples, c.TP+c.FP+c.FN+c.TN, "class %d: %+v", class, c)
	}
}

func TestConfusionMatrixErrors(t *testing.T) {
	_, err := ConfusionMatrix(2, []int32{0, 1}, []int32{0})
	require.Error(t, err)
	_, err = ConfusionMatrix(2, []int32{0, 2}, []int32{0, 1})
	require.Error(t, err)
	_, err = ConfusionMatrix(0, nil, nil)
	require.Error(t, err)
}

func TestMean(t *testing.T) {
	s := Mean([]Report{
		{Accuracy: 0.5, Precision: 0.6, Recall: 0.7, F1: 0.8},
		{Accuracy: 1.0, Precision: 0.8, Recall: 0.5, F1: 0.6},
	})
	assert.InDeltaSlice(t, []float64{0.75, 0.7, 0.6, 0.7}, s.Values(), 1e-9)
	assert.Equal(t, Summary{}, Mean(nil))
	assert.Len(t, Names, 4)
}
