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

// train fits the meat type CNN classifier on a training image tree and evaluates it on a test
// image tree, with stratified k-fold cross-validation (-set="num_folds=5") or a single
// hold-out validation split (-set="num_folds=1").
//
// Training requires the XLA backend: the pure Go backend lacks the max-pool gradient. The backend
// is selected with the GOMLX_BACKEND environment variable, e.g. GOMLX_BACKEND=xla:cpu.
//
// Hyperparameters are set with -set, e.g.:
//
//	train -train=~/daging/train -test=~/daging/test -output=~/daging/runs \
//	    -set="image_size=75;epochs=100;batch_size=64;num_folds=5"
package main

import (
	"flag"
	"fmt"

	"github.com/anommahartha/klasifikasijenisdaging/pkg/cnn"
	"github.com/anommahartha/klasifikasijenisdaging/pkg/experiment"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagTrain       = flag.String("train", "", "Root of the training images, one sub-directory per class.")
	flagTest        = flag.String("test", "", "Root of the test images, one sub-directory per class.")
	flagOutput      = flag.String("output", "", "Directory where to create the run folder with reports, charts and models.")
	flagParallelism = flag.Int("parallelism", 0, "Number of images decoded concurrently. Defaults to the number of CPUs.")
	flagProgress    = flag.Bool("progress", true, "Display progress bars.")
)

func main() {
	ctx := cnn.CreateDefaultContext()
	settings := commandline.CreateContextSettingsFlag(ctx, "")
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()
	paramsSet := must.M1(commandline.ParseContextSettings(ctx, *settings))
	if len(paramsSet) > 0 {
		klog.Infof("Hyperparameters set: %s", commandline.SprintModifiedContextSettings(ctx, paramsSet))
	}
	if klog.V(2).Enabled() {
		fmt.Println(commandline.SprintContextSettings(ctx))
	}

	cfg, err := experiment.NewConfigFromContext(ctx, *flagTrain, *flagTest, *flagOutput)
	if err != nil {
		klog.Fatalf("Invalid configuration: %+v", err)
	}
	cfg.Parallelism = *flagParallelism
	cfg.ShowProgress = *flagProgress

	backend := backends.MustNew()
	klog.Infof("Backend: %s", backend.Description())
	if err := experiment.RequireTrainingBackend(backend); err != nil {
		klog.Fatalf("%v", err)
	}
	result, err := experiment.Run(ctx, backend, cfg)
	if result != nil && len(result.Folds) > 0 {
		fmt.Println(result.SummaryTable())
	}
	if err != nil {
		klog.Fatalf("Training failed: %+v", err)
	}
	fmt.Printf("Results saved in %q\n", result.RunDir)
	if result.SummaryReport != "" {
		fmt.Printf("Average metrics in %q\n", result.SummaryReport)
	}
}
