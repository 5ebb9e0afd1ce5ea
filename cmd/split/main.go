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

// split copies each directory of a dataset tree into mirrored train and test trees, selecting a
// random fraction of every directory's files for the test tree.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/anommahartha/klasifikasijenisdaging/pkg/split"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/pkg/support/fsutil"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagDataset  = flag.String("dataset", "", "Root directory of the dataset to split.")
	flagTrain    = flag.String("train", "", "Directory where to copy the training files.")
	flagTest     = flag.String("test", "", "Directory where to copy the test files.")
	flagRatio    = flag.Float64("ratio", 0, "Fraction of each directory's files copied to -test, in (0, 1). Required.")
	flagSeed     = flag.Int64("seed", -1, "Seed for the random selection. If negative, every run draws a different split.")
	flagWorkers  = flag.Int("workers", 0, "Number of files copied concurrently. Defaults to the number of CPUs.")
	flagProgress = flag.Bool("progress", true, "Display progress bars.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	cfg := split.Config{
		DatasetDir:   must.M1(fsutil.ReplaceTildeInDir(*flagDataset)),
		TrainDir:     must.M1(fsutil.ReplaceTildeInDir(*flagTrain)),
		TestDir:      must.M1(fsutil.ReplaceTildeInDir(*flagTest)),
		TestRatio:    *flagRatio,
		CopyWorkers:  *flagWorkers,
		ShowProgress: *flagProgress,
	}
	if *flagSeed >= 0 {
		cfg.Seed, cfg.Seeded = uint64(*flagSeed), true
	}
	if err := cfg.Validate(); err != nil {
		klog.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	report, err := split.Run(ctx, cfg)
	if err != nil {
		klog.Fatalf("Split failed: %+v", err)
	}
	fmt.Println(reportTable(report))
}

func reportTable(report split.Report) string {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	headerStyle := cellStyle.Bold(true).Reverse(true)
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row < 0 {
				return headerStyle
			}
			if col > 0 {
				return cellStyle.Align(lipgloss.Right)
			}
			return cellStyle
		}).
		Headers("Directory", "Train", "Test")
	for _, d := range report.Dirs {
		table.Row(d.Dir, humanize.Comma(int64(d.Train)), humanize.Comma(int64(d.Test)))
	}
	train, test := report.Totals()
	table.Row("Total", humanize.Comma(int64(train)), humanize.Comma(int64(test)))
	return table.String()
}
