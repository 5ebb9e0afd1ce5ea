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

// augment creates rotated, shifted, flipped and zoomed variants of every image of a
// class-labeled tree, mirroring the tree into the output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/anommahartha/klasifikasijenisdaging/pkg/augment"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/pkg/support/fsutil"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	defaults = augment.DefaultConfig()

	flagInput    = flag.String("input", "", "Root directory of the original images, one sub-directory per class.")
	flagOutput   = flag.String("output", "", "Directory where to write the augmented tree. It must not be inside -input.")
	flagAngle    = flag.Float64("angle", defaults.Angle, "Rotation angle in degrees, counter-clockwise.")
	flagShiftX   = flag.Int("shift_x", defaults.ShiftX, "Horizontal translation in pixels.")
	flagShiftY   = flag.Int("shift_y", defaults.ShiftY, "Vertical translation in pixels.")
	flagZoom     = flag.Float64("zoom", defaults.ZoomFactor, "Fraction of the image kept by the centered zoom, in (0, 1].")
	flagQuality  = flag.Int("quality", defaults.Quality, "JPEG quality of the written variants.")
	flagOriginal = flag.Bool("keep_originals", defaults.KeepOriginals, "Copy each original image next to its variants.")
	flagProgress = flag.Bool("progress", true, "Display progress bars.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	cfg := defaults
	cfg.InputDir = must.M1(fsutil.ReplaceTildeInDir(*flagInput))
	cfg.OutputDir = must.M1(fsutil.ReplaceTildeInDir(*flagOutput))
	cfg.Angle = *flagAngle
	cfg.ShiftX, cfg.ShiftY = *flagShiftX, *flagShiftY
	cfg.ZoomFactor = *flagZoom
	cfg.Quality = *flagQuality
	cfg.KeepOriginals = *flagOriginal
	cfg.ShowProgress = *flagProgress
	if err := cfg.Validate(); err != nil {
		klog.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	stats, err := augment.ProcessTree(ctx, cfg)
	if err != nil {
		klog.Fatalf("Augmentation failed: %+v", err)
	}
	fmt.Printf("Augmented %s images into %q: %s files written, %s skipped, %s failed.\n",
		humanize.Comma(int64(stats.Images)), cfg.OutputDir, humanize.Comma(int64(stats.Written)),
		humanize.Comma(int64(stats.Skipped)), humanize.Comma(int64(stats.Failed)))
}
