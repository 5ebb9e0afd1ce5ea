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

package augment

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/anommahartha/klasifikasijenisdaging/pkg/imageset"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// Config for ProcessTree.
type Config struct {
	// InputDir is the root of the tree of original images.
	InputDir string

	// OutputDir receives the variants, under the same relative paths as in InputDir.
	OutputDir string

	// Angle of rotation, in degrees, counter-clockwise.
	Angle float64

	// ShiftX, ShiftY are the translation offsets, in pixels.
	ShiftX, ShiftY int

	// ZoomFactor is the fraction of the image kept by the zoom variant, in (0, 1].
	ZoomFactor float64

	// Quality of the JPEG encoding of the variants, from 1 to 100.
	Quality int

	// KeepOriginals copies each original image next to its variants.
	KeepOriginals bool

	// ShowProgress displays a progress bar per directory.
	ShowProgress bool
}

// DefaultConfig returns the default augmentation: rotation by 45°, shift by (10, 10), zoom by 0.8,
// keeping the originals.
func DefaultConfig() Config {
	return Config{
		Angle:         45,
		ShiftX:        10,
		ShiftY:        10,
		ZoomFactor:    0.8,
		Quality:       95,
		KeepOriginals: true,
	}
}

// Validate returns an error if the configuration is not usable.
func (cfg Config) Validate() error {
	if cfg.InputDir == "" || cfg.OutputDir == "" {
		return errors.New("both input and output directories must be given")
	}
	if cfg.ZoomFactor <= 0 || cfg.ZoomFactor > 1 {
		return errors.Errorf("zoom factor must be in (0, 1], got %g", cfg.ZoomFactor)
	}
	if cfg.Quality < 1 || cfg.Quality > 100 {
		return errors.Errorf("JPEG quality must be in [1, 100], got %d", cfg.Quality)
	}
	input, err := filepath.Abs(cfg.InputDir)
	if err != nil {
		return errors.Wrapf(err, "invalid input directory %q", cfg.InputDir)
	}
	output, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return errors.Wrapf(err, "invalid output directory %q", cfg.OutputDir)
	}
	if rel, err := filepath.Rel(input, output); err == nil && !strings.HasPrefix(rel, "..") {
		return errors.Errorf("output directory %q cannot be inside the input directory %q", cfg.OutputDir, cfg.InputDir)
	}
	return nil
}

// Stats of a ProcessTree run.
type Stats struct {
	// Images is the number of images processed successfully.
	Images int

	// Written is the number of files written, variants and originals.
	Written int

	// Skipped counts non-image files ignored.
	Skipped int

	// Failed counts images that could not be decoded or written.
	Failed int
}

// ProcessTree walks cfg.InputDir and writes the variants of every image to the mirrored path under
// cfg.OutputDir, named by VariantName.
//
// The index in the variant names is the position of the image among the non-hidden files of its
// directory. Hidden files and directories are skipped. An image that fails to decode or write is
// logged and counted in Stats.Failed, and processing continues with the next file.
func ProcessTree(ctx context.Context, cfg Config) (Stats, error) {
	var stats Stats
	if err := cfg.Validate(); err != nil {
		return stats, err
	}
	err := filepath.WalkDir(cfg.InputDir, func(dirPath string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if dirPath != cfg.InputDir && imageset.IsHidden(entry.Name()) {
			return filepath.SkipDir
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return processDir(ctx, cfg, dirPath, &stats)
	})
	if err != nil {
		return stats, errors.Wrapf(err, "augmentation of %q failed", cfg.InputDir)
	}
	klog.Infof("Augmented %d images from %q into %q: %d files written, %d skipped, %d failed",
		stats.Images, cfg.InputDir, cfg.OutputDir, stats.Written, stats.Skipped, stats.Failed)
	return stats, nil
}

// processDir writes the variants of the images directly under dirPath.
func processDir(ctx context.Context, cfg Config, dirPath string, stats *Stats) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read directory %q", dirPath)
	}
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && !imageset.IsHidden(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return nil
	}
	rel, err := filepath.Rel(cfg.InputDir, dirPath)
	if err != nil {
		return errors.Wrapf(err, "failed to find relative path of %q", dirPath)
	}
	targetDir := filepath.Join(cfg.OutputDir, rel)

	var bar *progressbar.ProgressBar
	if cfg.ShowProgress {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription(rel),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionSetTheme(progressbar.ThemeUnicode),
		)
		defer func() { _ = bar.Finish() }()
	}
	for index, name := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
		if !imageset.IsImageFile(name) {
			stats.Skipped++
			continue
		}
		if err := os.MkdirAll(targetDir, 0755); err != nil {
			return errors.Wrapf(err, "failed to create output directory %q", targetDir)
		}
		written, err := augmentFile(cfg, filepath.Join(dirPath, name), targetDir, index)
		stats.Written += written
		if err != nil {
			klog.Errorf("Failed to augment %q: %+v", filepath.Join(dirPath, name), err)
			stats.Failed++
			continue
		}
		stats.Images++
	}
	return nil
}

// augmentFile writes the variants of one image into targetDir, returning the number of files written.
func augmentFile(cfg Config, imagePath, targetDir string, index int) (written int, err error) {
	img, err := imageset.Decode(imagePath)
	if err != nil {
		return 0, err
	}
	for _, variant := range Variants(img, cfg) {
		outputPath := filepath.Join(targetDir, VariantName(imagePath, variant.Kind, index))
		if err = imaging.Save(variant.Image, outputPath, imaging.JPEGQuality(cfg.Quality)); err != nil {
			return written, errors.Wrapf(err, "failed to save %q", outputPath)
		}
		written++
	}
	if cfg.KeepOriginals {
		if err = imageset.CopyFile(imagePath, filepath.Join(targetDir, filepath.Base(imagePath))); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
