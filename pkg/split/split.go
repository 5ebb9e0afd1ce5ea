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

// Package split partitions a class-labeled dataset tree into train and test trees.
//
// For every directory, a random subset of ⌊TestRatio·n⌋ of its n files is copied to the test tree
// and the remaining files to the train tree. The source tree is left untouched.
package split

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/anommahartha/klasifikasijenisdaging/pkg/imageset"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Config for Run. There is no default TestRatio: it must be set explicitly.
type Config struct {
	// DatasetDir is the root of the tree to split.
	DatasetDir string

	// TrainDir, TestDir receive the mirrored train and test partitions.
	TrainDir, TestDir string

	// TestRatio is the fraction of each directory's files copied to TestDir, in (0, 1).
	TestRatio float64

	// Seed for the random selection, used only if Seeded is true. Otherwise every run
	// draws a different partition.
	Seed   uint64
	Seeded bool

	// CopyWorkers is the number of files copied concurrently. If <= 0, runtime.NumCPU() is used.
	CopyWorkers int

	// ShowProgress displays a progress bar per directory.
	ShowProgress bool
}

// Validate returns an error if the configuration is not usable.
func (cfg *Config) Validate() error {
	if cfg.DatasetDir == "" {
		return errors.New("dataset directory not given")
	}
	if cfg.TrainDir == "" || cfg.TestDir == "" {
		return errors.New("both train and test directories must be given")
	}
	if cfg.TrainDir == cfg.TestDir {
		return errors.Errorf("train and test directories must be different, got %q for both", cfg.TrainDir)
	}
	if !(cfg.TestRatio > 0 && cfg.TestRatio < 1) {
		return errors.Errorf("test ratio must be in the open interval (0, 1), got %g", cfg.TestRatio)
	}
	return nil
}

// DirReport is the outcome of splitting one directory.
type DirReport struct {
	// Dir is the path relative to the dataset root.
	Dir         string
	Train, Test int
}

// Report of a Run, one entry per directory with files.
type Report struct {
	Dirs []DirReport
}

// Totals returns the total number of train and test files copied.
func (r Report) Totals() (train, test int) {
	for _, d := range r.Dirs {
		train += d.Train
		test += d.Test
	}
	return
}

// SelectTest returns a mask over n items with exactly ⌊ratio·n⌋ entries set, chosen uniformly
// at random without replacement.
func SelectTest(n int, ratio float64, rng *rand.Rand) []bool {
	numTest := int(float64(n) * ratio)
	mask := make([]bool, n)
	for _, idx := range rng.Perm(n)[:numTest] {
		mask[idx] = true
	}
	return mask
}

type copyJob struct {
	src, dst string
}

// Run splits every directory below cfg.DatasetDir (the root itself excluded) into cfg.TrainDir and
// cfg.TestDir, mirroring the relative paths. Hidden files and directories are ignored.
func Run(ctx context.Context, cfg Config) (Report, error) {
	var report Report
	if err := cfg.Validate(); err != nil {
		return report, err
	}
	var rng *rand.Rand
	if cfg.Seeded {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	workers := cfg.CopyWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	err := filepath.WalkDir(cfg.DatasetDir, func(dirPath string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() || dirPath == cfg.DatasetDir {
			return nil
		}
		if imageset.IsHidden(entry.Name()) {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(cfg.DatasetDir, dirPath)
		if err != nil {
			return err
		}
		files, err := listFiles(dirPath)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return nil
		}
		mask := SelectTest(len(files), cfg.TestRatio, rng)
		dirReport := DirReport{Dir: rel}
		jobs := make([]copyJob, len(files))
		for ii, name := range files {
			target := cfg.TrainDir
			if mask[ii] {
				target = cfg.TestDir
				dirReport.Test++
			} else {
				dirReport.Train++
			}
			jobs[ii] = copyJob{src: filepath.Join(dirPath, name), dst: filepath.Join(target, rel, name)}
		}
		for _, root := range []string{cfg.TrainDir, cfg.TestDir} {
			if err := os.MkdirAll(filepath.Join(root, rel), 0755); err != nil {
				return errors.Wrapf(err, "failed to create directory for %q", rel)
			}
		}
		if err := copyAll(ctx, jobs, workers, rel, cfg.ShowProgress); err != nil {
			return err
		}
		klog.V(1).Infof("Split %q: %d train, %d test", rel, dirReport.Train, dirReport.Test)
		report.Dirs = append(report.Dirs, dirReport)
		return nil
	})
	if err != nil {
		return report, errors.WithMessagef(err, "failed to split %q", cfg.DatasetDir)
	}
	train, test := report.Totals()
	klog.Infof("Split %q into %d train files (%q) and %d test files (%q)",
		cfg.DatasetDir, train, cfg.TrainDir, test, cfg.TestDir)
	return report, nil
}

// listFiles returns the sorted names of the non-hidden regular files in dir.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory %q", dir)
	}
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && !imageset.IsHidden(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	slices.Sort(files)
	return files, nil
}

// copyAll copies the files of jobs using up to workers goroutines.
func copyAll(ctx context.Context, jobs []copyJob, workers int, description string, showProgress bool) error {
	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions(len(jobs),
			progressbar.OptionSetDescription(description),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionSetTheme(progressbar.ThemeUnicode),
		)
		defer func() { _ = bar.Finish() }()
	}
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range jobs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if err := imageset.CopyFile(job.src, job.dst); err != nil {
				return err
			}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
