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

// Package kfold generates stratified partitions of a labeled sample set: k-fold cross-validation
// folds and single train/validation hold-outs. Partitions are reproducible for a given seed.
package kfold

import (
	"math/rand/v2"
	"slices"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Fold is one partition of the sample indices into training and validation subsets.
type Fold struct {
	// Index of the fold, starting at 0.
	Index int

	// Train, Validation are disjoint sorted sample indices; together they cover all samples.
	Train, Validation []int
}

// shuffledByClass returns, for each distinct label in increasing order, the shuffled indices of
// the samples with that label.
func shuffledByClass(labels []int32, rng *rand.Rand) [][]int {
	byLabel := make(map[int32][]int)
	for idx, label := range labels {
		byLabel[label] = append(byLabel[label], idx)
	}
	classes := make([]int32, 0, len(byLabel))
	for label := range byLabel {
		classes = append(classes, label)
	}
	slices.Sort(classes)
	groups := make([][]int, 0, len(classes))
	for _, label := range classes {
		indices := byLabel[label]
		rng.Shuffle(len(indices), func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
		groups = append(groups, indices)
	}
	return groups
}

// complement returns the sorted indices in [0, n) not in subset.
func complement(n int, subset []int) []int {
	in := make([]bool, n)
	for _, idx := range subset {
		in[idx] = true
	}
	out := make([]int, 0, n-len(subset))
	for idx := range n {
		if !in[idx] {
			out = append(out, idx)
		}
	}
	return out
}

// Stratified splits the samples into k folds preserving class proportions: each class contributes
// ⌊n_c/k⌋ or ⌈n_c/k⌉ of its samples to the validation subset of every fold, and each sample is in
// exactly one validation subset.
func Stratified(labels []int32, k int, seed uint64) ([]Fold, error) {
	if k < 2 {
		return nil, errors.Errorf("stratified k-fold requires k >= 2, got %d", k)
	}
	if k > len(labels) {
		return nil, errors.Errorf("cannot split %d samples into %d folds", len(labels), k)
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	buckets := make([][]int, k)
	next := 0
	for _, indices := range shuffledByClass(labels, rng) {
		if len(indices) < k {
			klog.Warningf("Class %d has only %d samples, fewer than the %d folds", labels[indices[0]], len(indices), k)
		}
		for _, idx := range indices {
			buckets[next] = append(buckets[next], idx)
			next = (next + 1) % k
		}
	}
	folds := make([]Fold, k)
	for ii, validation := range buckets {
		slices.Sort(validation)
		folds[ii] = Fold{Index: ii, Train: complement(len(labels), validation), Validation: validation}
	}
	return folds, nil
}

// Holdout returns a single stratified train/validation split with ⌊fraction·n_c⌋ validation
// samples taken from each class of n_c samples. Classes with at least 2 samples contribute at
// least one validation sample and keep at least one training sample.
func Holdout(labels []int32, fraction float64, seed uint64) (Fold, error) {
	if !(fraction > 0 && fraction < 1) {
		return Fold{}, errors.Errorf("validation fraction must be in (0, 1), got %g", fraction)
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	var validation []int
	for _, indices := range shuffledByClass(labels, rng) {
		n := len(indices)
		numValidation := int(float64(n) * fraction)
		if n >= 2 {
			numValidation = min(max(numValidation, 1), n-1)
		}
		validation = append(validation, indices[:numValidation]...)
	}
	if len(validation) == 0 || len(validation) == len(labels) {
		return Fold{}, errors.Errorf("cannot hold out %g of %d samples for validation", fraction, len(labels))
	}
	slices.Sort(validation)
	return Fold{Train: complement(len(labels), validation), Validation: validation}, nil
}
