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

package split

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectTest(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, tc := range []struct {
		n     int
		ratio float64
		want  int
	}{{100, 0.3, 30}, {10, 0.25, 2}, {1, 0.5, 0}, {0, 0.3, 0}, {7, 0.99, 6}} {
		mask := SelectTest(tc.n, tc.ratio, rng)
		require.Len(t, mask, tc.n)
		count := 0
		for _, selected := range mask {
			if selected {
				count++
			}
		}
		assert.Equalf(t, tc.want, count, "SelectTest(%d, %g)", tc.n, tc.ratio)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{DatasetDir: "a", TrainDir: "b", TestDir: "c", TestRatio: 0.3}
	require.NoError(t, cfg.Validate())
	for _, ratio := range []float64{0, 1, -0.1, 1.5} {
		bad := cfg
		bad.TestRatio = ratio
		require.Errorf(t, bad.Validate(), "ratio %g should be rejected", ratio)
	}
	bad := cfg
	bad.TestDir = "b"
	require.Error(t, bad.Validate())
	bad = cfg
	bad.DatasetDir = ""
	require.Error(t, bad.Validate())

	_, err := Run(context.Background(), Config{DatasetDir: "a", TrainDir: "b", TestDir: "c"})
	require.Error(t, err, "unset test ratio must be rejected")
}

func fileSet(t *testing.T, dir string) map[string]bool {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	set := make(map[string]bool, len(entries))
	for _, entry := range entries {
		set[entry.Name()] = true
	}
	return set
}

func TestRun(t *testing.T) {
	base := t.TempDir()
	dataset := filepath.Join(base, "augmented")
	classes := []string{"babi", "campuran", "sapi"}
	for _, class := range classes {
		dir := filepath.Join(dataset, class)
		require.NoError(t, os.MkdirAll(dir, 0755))
		for ii := range 100 {
			require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("%s_%03d.jpg", class, ii)),
				[]byte(fmt.Sprintf("%s-%d", class, ii)), 0644))
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte{0}, 0644))
	}
	cfg := Config{
		DatasetDir:  dataset,
		TrainDir:    filepath.Join(base, "train"),
		TestDir:     filepath.Join(base, "test"),
		TestRatio:   0.3,
		CopyWorkers: 3,
	}
	report, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, report.Dirs, 3)
	train, test := report.Totals()
	assert.Equal(t, 210, train)
	assert.Equal(t, 90, test)

	for _, class := range classes {
		trainFiles := fileSet(t, filepath.Join(cfg.TrainDir, class))
		testFiles := fileSet(t, filepath.Join(cfg.TestDir, class))
		assert.Len(t, trainFiles, 70)
		assert.Len(t, testFiles, 30)
		for name := range testFiles {
			assert.Falsef(t, trainFiles[name], "%q in both train and test", name)
		}
		// Copy, not move.
		assert.Len(t, fileSet(t, filepath.Join(dataset, class)), 101)
	}
	data, err := os.ReadFile(filepath.Join(cfg.TrainDir, "sapi", firstKey(fileSet(t, filepath.Join(cfg.TrainDir, "sapi")))))
	require.NoError(t, err)
	assert.Contains(t, string(data), "sapi-")
}

func firstKey(m map[string]bool) string {
	for k := range m {
		return k
	}
	return ""
}

func TestRunSeeded(t *testing.T) {
	base := t.TempDir()
	dataset := filepath.Join(base, "data")
	require.NoError(t, os.MkdirAll(filepath.Join(dataset, "sapi"), 0755))
	for ii := range 20 {
		require.NoError(t, os.WriteFile(filepath.Join(dataset, "sapi", fmt.Sprintf("%02d.png", ii)), nil, 0644))
	}
	run := func(name string) map[string]bool {
		cfg := Config{
			DatasetDir: dataset,
			TrainDir:   filepath.Join(base, name, "train"),
			TestDir:    filepath.Join(base, name, "test"),
			TestRatio:  0.5,
			Seed:       42,
			Seeded:     true,
		}
		_, err := Run(context.Background(), cfg)
		require.NoError(t, err)
		return fileSet(t, filepath.Join(cfg.TestDir, "sapi"))
	}
	first, second := run("first"), run("second")
	assert.Len(t, first, 10)
	assert.Equal(t, first, second)
}
