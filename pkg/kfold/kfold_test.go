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

package kfold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeLabels returns labels with counts[c] samples of class c, interleaved.
func makeLabels(counts ...int) []int32 {
	var labels []int32
	remaining := append([]int(nil), counts...)
	for {
		added := false
		for c := range remaining {
			if remaining[c] > 0 {
				labels = append(labels, int32(c))
				remaining[c]--
				added = true
			}
		}
		if !added {
			return labels
		}
	}
}

func TestStratified(t *testing.T) {
	counts := []int{23, 17, 40}
	labels := makeLabels(counts...)
	for _, k := range []int{2, 3, 5, 10} {
		folds, err := Stratified(labels, k, 42)
		require.NoError(t, err)
		require.Len(t, folds, k)

		seen := make([]int, len(labels))
		for ii, fold := range folds {
			assert.Equal(t, ii, fold.Index)
			assert.Equal(t, len(labels), len(fold.Train)+len(fold.Validation))
			inValidation := make(map[int]bool)
			perClass := make([]int, len(counts))
			for _, idx := range fold.Validation {
				seen[idx]++
				inValidation[idx] = true
				perClass[labels[idx]]++
			}
			for _, idx := range fold.Train {
				assert.Falsef(t, inValidation[idx], "fold %d: index %d in both train and validation", ii, idx)
			}
			for c, n := range counts {
				assert.GreaterOrEqualf(t, perClass[c], n/k, "k=%d fold %d class %d", k, ii, c)
				assert.LessOrEqualf(t, perClass[c], (n+k-1)/k, "k=%d fold %d class %d", k, ii, c)
			}
			assert.IsIncreasing(t, fold.Validation)
			assert.IsIncreasing(t, fold.Train)
		}
		for idx, count := range seen {
			assert.Equalf(t, 1, count, "k=%d: index %d validated %d times", k, idx, count)
		}
	}
}

func TestStratifiedReproducible(t *testing.T) {
	labels := makeLabels(10, 10)
	a, err := Stratified(labels, 5, 42)
	require.NoError(t, err)
	b, err := Stratified(labels, 5, 42)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	c, err := Stratified(labels, 5, 7)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestStratifiedErrors(t *testing.T) {
	_, err := Stratified(makeLabels(5, 5), 1, 0)
	require.Error(t, err)
	_, err = Stratified(makeLabels(1, 1), 3, 0)
	require.Error(t, err)
}

func TestHoldout(t *testing.T) {
	labels := makeLabels(50, 30, 2)
	fold, err := Holdout(labels, 0.2, 42)
	require.NoError(t, err)
	perClass := make([]int, 3)
	for _, idx := range fold.Validation {
		perClass[labels[idx]]++
	}
	assert.Equal(t, []int{10, 6, 1}, perClass)
	assert.Len(t, fold.Train, len(labels)-17)

	_, err = Holdout(labels, 0, 42)
	require.Error(t, err)
	_, err = Holdout(labels, 1, 42)
	require.Error(t, err)
	_, err = Holdout([]int32{0}, 0.5, 42)
	require.Error(t, err)
}
