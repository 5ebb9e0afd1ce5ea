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

// plotmetrics draws the accuracy, precision, recall and F1 score of models trained with
// different batch sizes, as a line chart saved to a PNG file.
//
// The metrics are read from a CSV file with the columns batch_size, accuracy, precision, recall
// and f1 (in percent). Without -csv, the results of the 50x50 pixels, 50 epochs runs are used.
package main

import (
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anommahartha/klasifikasijenisdaging/pkg/charts"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/gomlx/gomlx/pkg/support/fsutil"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

//go:embed metrics_50x50.csv
var defaultMetrics string

const defaultTitle = "CNN Performance Metrics for 50 X 50 Pixel Image Size"

var (
	flagCSV    = flag.String("csv", "", "CSV file with columns batch_size,accuracy,precision,recall,f1. Defaults to the 50x50 pixels results.")
	flagTitle  = flag.String("title", defaultTitle, "Title of the chart.")
	flagOutput = flag.String("output", "metrics_by_batch_size.png", "Path of the PNG file to write.")
)

// Column names of the metrics table.
const (
	colBatchSize = "batch_size"
	colAccuracy  = "accuracy"
	colPrecision = "precision"
	colRecall    = "recall"
	colF1        = "f1"
)

var metricsColumnTypes = map[string]series.Type{
	colBatchSize: series.Int,
	colAccuracy:  series.Float,
	colPrecision: series.Float,
	colRecall:    series.Float,
	colF1:        series.Float,
}

// loadMetrics parses the metrics table, sorted by batch size.
func loadMetrics(r io.Reader) (m charts.BatchSizeMetrics, err error) {
	df := dataframe.ReadCSV(r, dataframe.HasHeader(true), dataframe.WithTypes(metricsColumnTypes))
	if df.Err != nil {
		return m, errors.Wrap(df.Err, "failed to parse metrics table")
	}
	df = df.Arrange(dataframe.Sort(colBatchSize))
	if df.Err != nil {
		return m, errors.Wrapf(df.Err, "metrics table requires a %q column", colBatchSize)
	}
	if df.Nrow() == 0 {
		return m, errors.New("metrics table is empty")
	}
	m.BatchSizes, err = df.Col(colBatchSize).Int()
	if err != nil {
		return m, errors.Wrapf(err, "invalid %q column", colBatchSize)
	}
	for _, col := range []struct {
		name   string
		values *[]float64
	}{
		{colAccuracy, &m.Accuracy},
		{colPrecision, &m.Precision},
		{colRecall, &m.Recall},
		{colF1, &m.F1},
	} {
		s := df.Col(col.name)
		if s.Err != nil {
			return m, errors.Wrapf(s.Err, "metrics table requires a %q column", col.name)
		}
		*col.values = s.Float()
	}
	return m, nil
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	var r io.Reader = strings.NewReader(defaultMetrics)
	if *flagCSV != "" {
		f := must.M1(os.Open(must.M1(fsutil.ReplaceTildeInDir(*flagCSV))))
		defer func() { _ = f.Close() }()
		r = f
	}
	m, err := loadMetrics(r)
	if err != nil {
		klog.Fatalf("%+v", err)
	}
	output := must.M1(fsutil.ReplaceTildeInDir(*flagOutput))
	must.M(charts.MetricsByBatchSize(output, *flagTitle, m))
	fmt.Printf("Chart with %d batch sizes saved to %q\n", len(m.BatchSizes), output)
}
