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

package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/anommahartha/klasifikasijenisdaging/pkg/charts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultMetrics(t *testing.T) {
	m, err := loadMetrics(strings.NewReader(defaultMetrics))
	require.NoError(t, err)
	assert.Equal(t, []int{32, 64, 128}, m.BatchSizes)
	assert.Equal(t, []float64{74.70, 74.70, 70.91}, m.Accuracy)
	assert.Equal(t, []float64{84.07, 82.36, 80.02}, m.Precision)
	assert.Equal(t, []float64{72.73, 72.81, 68.95}, m.Recall)
	assert.Equal(t, []float64{73.06, 72.40, 67.20}, m.F1)

	output := filepath.Join(t.TempDir(), "metrics.png")
	require.NoError(t, charts.MetricsByBatchSize(output, defaultTitle, m))
	assert.FileExists(t, output)
}

func TestLoadMetricsSorted(t *testing.T) {
	m, err := loadMetrics(strings.NewReader("batch_size,accuracy,precision,recall,f1\n128,1,2,3,4\n16,5,6,7,8\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{16, 128}, m.BatchSizes)
	assert.Equal(t, []float64{5, 1}, m.Accuracy)
	assert.Equal(t, []float64{8, 4}, m.F1)
}

func TestLoadMetricsErrors(t *testing.T) {
	_, err := loadMetrics(strings.NewReader("batch_size,accuracy,precision,recall\n32,1,2,3\n"))
	require.Error(t, err)
	_, err = loadMetrics(strings.NewReader("accuracy,precision,recall,f1\n1,2,3,4\n"))
	require.Error(t, err)
}
