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

package imageset

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// LoadConfig configures Load.
type LoadConfig struct {
	// Width, Height every image is resized to.
	Width, Height int

	// Parallelism is the number of images decoded concurrently. If <= 0, runtime.NumCPU() is used.
	Parallelism int

	// ShowProgress displays a progress bar while decoding.
	ShowProgress bool
}

// SampleSet holds decoded images, resized to Width x Height, with their labels and source file names.
//
// Pixels are stored as RGB uint8 values, in the order [example, y, x, channel].
type SampleSet struct {
	Width, Height int
	Classes       ClassMap
	Pixels        []uint8
	Labels        []int32
	Files         []string
}

type sampleJob struct {
	path, file string
	label      int32
}

// Load decodes every image of the classes in the class map found as subdirectories of root.
//
// Samples are ordered by class index and then file name, independent of cfg.Parallelism.
// Images that fail to decode, and subdirectories not present in classes, are logged and skipped.
// It only returns an error if root cannot be read, or ctx is cancelled.
func Load(ctx context.Context, root string, classes ClassMap, cfg LoadConfig) (*SampleSet, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read dataset directory %q", root)
	}
	var jobs []sampleJob
	jobsPerClass := make([][]sampleJob, classes.Len())
	for _, entry := range entries {
		if !entry.IsDir() || IsHidden(entry.Name()) {
			continue
		}
		label, found := classes.Index(entry.Name())
		if !found {
			klog.Warningf("Skipping directory %q: class %q is not one of %q", filepath.Join(root, entry.Name()),
				entry.Name(), classes.Names)
			continue
		}
		classDir := filepath.Join(root, entry.Name())
		files, err := ListImages(classDir)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			jobsPerClass[label] = append(jobsPerClass[label], sampleJob{
				path: filepath.Join(classDir, file), file: file, label: int32(label)})
		}
	}
	for _, classJobs := range jobsPerClass {
		jobs = append(jobs, classJobs...)
	}

	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	var bar *progressbar.ProgressBar
	if cfg.ShowProgress {
		bar = progressbar.NewOptions(len(jobs),
			progressbar.OptionSetDescription("Reading "+filepath.Base(root)),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionSetTheme(progressbar.ThemeUnicode),
		)
	}

	imageSize := cfg.Width * cfg.Height * 3
	decoded := make([][]uint8, len(jobs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for jobIdx, job := range jobs {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			img, err := Decode(job.path)
			if err != nil {
				klog.Errorf("Skipping image: %v", err)
			} else {
				decoded[jobIdx] = toRGB(Resize(img, cfg.Width, cfg.Height).Pix)
			}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading images from %q interrupted", root)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	set := &SampleSet{Width: cfg.Width, Height: cfg.Height, Classes: classes}
	for jobIdx, pixels := range decoded {
		if pixels == nil {
			continue
		}
		set.Pixels = append(set.Pixels, pixels...)
		set.Labels = append(set.Labels, jobs[jobIdx].label)
		set.Files = append(set.Files, jobs[jobIdx].file)
	}
	klog.V(1).Infof("Loaded %s images from %q (%d skipped, %s)", humanize.Comma(int64(set.Len())), root,
		len(jobs)-set.Len(), humanize.Bytes(uint64(len(set.Pixels))))
	if set.Len() > 0 && len(set.Pixels) != set.Len()*imageSize {
		return nil, errors.Errorf("inconsistent pixel buffer: %d bytes for %d images of %dx%d",
			len(set.Pixels), set.Len(), cfg.Width, cfg.Height)
	}
	return set, nil
}

// toRGB drops the alpha channel of an NRGBA pixel buffer.
func toRGB(nrgba []uint8) []uint8 {
	rgb := make([]uint8, 0, len(nrgba)/4*3)
	for ii := 0; ii+3 < len(nrgba); ii += 4 {
		rgb = append(rgb, nrgba[ii], nrgba[ii+1], nrgba[ii+2])
	}
	return rgb
}

// Len returns the number of samples.
func (s *SampleSet) Len() int { return len(s.Labels) }

// Subset returns a new SampleSet with the samples at the given indices, in the given order.
func (s *SampleSet) Subset(indices []int) *SampleSet {
	imageSize := s.Width * s.Height * 3
	sub := &SampleSet{
		Width:   s.Width,
		Height:  s.Height,
		Classes: s.Classes,
		Pixels:  make([]uint8, 0, len(indices)*imageSize),
		Labels:  make([]int32, 0, len(indices)),
		Files:   make([]string, 0, len(indices)),
	}
	for _, idx := range indices {
		sub.Pixels = append(sub.Pixels, s.Pixels[idx*imageSize:(idx+1)*imageSize]...)
		sub.Labels = append(sub.Labels, s.Labels[idx])
		sub.Files = append(sub.Files, s.Files[idx])
	}
	return sub
}

// ClassCounts returns the number of samples of each class.
func (s *SampleSet) ClassCounts() []int {
	counts := make([]int, s.Classes.Len())
	for _, label := range s.Labels {
		counts[label]++
	}
	return counts
}

// ImagesTensor returns the images as a float32 tensor shaped [N, Height, Width, 3], with every
// pixel value divided by scale: use 255 to normalize to [0, 1], or 1 to keep the raw values.
func (s *SampleSet) ImagesTensor(scale float64) *tensors.Tensor {
	data := make([]float32, len(s.Pixels))
	inv := float32(1.0 / scale)
	for ii, v := range s.Pixels {
		data[ii] = float32(v) * inv
	}
	return tensors.FromFlatDataAndDimensions(data, s.Len(), s.Height, s.Width, 3)
}

// LabelsTensor returns the labels as an int32 tensor shaped [N, 1].
func (s *SampleSet) LabelsTensor() *tensors.Tensor {
	return tensors.FromFlatDataAndDimensions(s.Labels, s.Len(), 1)
}
