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

package experiment

import (
	"fmt"
	"os"

	"github.com/anommahartha/klasifikasijenisdaging/pkg/cnn"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/support/fsutil"
	"github.com/pkg/errors"
)

// Config of an experiment run. Build it with NewConfigFromContext.
type Config struct {
	// TrainDir, TestDir are the roots of the class-labeled training and test image trees.
	TrainDir, TestDir string

	// OutputDir receives the run folder with all the reports, charts and models.
	OutputDir string

	ImageSize, Epochs, BatchSize int

	// NumFolds of the cross-validation; 1 trains a single model on a stratified hold-out split.
	NumFolds int

	// ValidationFraction held out from the training set when NumFolds is 1.
	ValidationFraction float64

	// FoldSeed seeds the fold partition and the models' random initialization.
	FoldSeed int

	// NormalizeTest scales test pixels to [0, 1] like the training pixels. Otherwise they are
	// fed raw, in [0, 255].
	NormalizeTest bool

	// ShowProgress displays progress bars while loading and training.
	ShowProgress bool

	// Parallelism of the image decoding, see imageset.LoadConfig.
	Parallelism int
}

// NewConfigFromContext creates a Config with the hyperparameters in ctx (see cnn.CreateDefaultContext)
// and the given directories. A leading "~" in the directories is expanded to the home directory.
func NewConfigFromContext(ctx *context.Context, trainDir, testDir, outputDir string) (*Config, error) {
	cfg := &Config{
		ImageSize:          context.GetParamOr(ctx, cnn.ParamImageSize, 75),
		Epochs:             context.GetParamOr(ctx, cnn.ParamEpochs, 100),
		BatchSize:          context.GetParamOr(ctx, cnn.ParamBatchSize, 64),
		NumFolds:           context.GetParamOr(ctx, cnn.ParamNumFolds, 5),
		ValidationFraction: context.GetParamOr(ctx, cnn.ParamValidationFraction, 0.2),
		FoldSeed:           context.GetParamOr(ctx, cnn.ParamFoldSeed, 42),
		NormalizeTest:      context.GetParamOr(ctx, cnn.ParamNormalizeTest, true),
	}
	var err error
	for _, dir := range []struct {
		name  string
		value string
		field *string
	}{
		{"train", trainDir, &cfg.TrainDir},
		{"test", testDir, &cfg.TestDir},
		{"output", outputDir, &cfg.OutputDir},
	} {
		if dir.value == "" {
			return nil, errors.Errorf("%s directory not given", dir.name)
		}
		*dir.field, err = fsutil.ReplaceTildeInDir(dir.value)
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid %s directory %q", dir.name, dir.value)
		}
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns an error if the configuration is not usable.
func (cfg *Config) Validate() error {
	for _, dir := range []string{cfg.TrainDir, cfg.TestDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return errors.Wrapf(err, "invalid dataset directory")
		}
		if !info.IsDir() {
			return errors.Errorf("dataset path %q is not a directory", dir)
		}
	}
	if cfg.OutputDir == "" {
		return errors.New("output directory not given")
	}
	if cfg.ImageSize <= 0 || cfg.Epochs <= 0 || cfg.BatchSize <= 0 {
		return errors.Errorf("image size (%d), epochs (%d) and batch size (%d) must be positive",
			cfg.ImageSize, cfg.Epochs, cfg.BatchSize)
	}
	if cfg.NumFolds < 1 {
		return errors.Errorf("number of folds must be >= 1, got %d", cfg.NumFolds)
	}
	if cfg.NumFolds == 1 && !(cfg.ValidationFraction > 0 && cfg.ValidationFraction < 1) {
		return errors.Errorf("validation fraction must be in (0, 1), got %g", cfg.ValidationFraction)
	}
	return nil
}

// CrossValidation returns whether the run trains one model per fold.
func (cfg *Config) CrossValidation() bool { return cfg.NumFolds > 1 }

// RunDirName is the name of the folder, under OutputDir, with all the outputs of the run.
func (cfg *Config) RunDirName() string {
	name := fmt.Sprintf("%dx%d_%dEpoch_%d", cfg.ImageSize, cfg.ImageSize, cfg.Epochs, cfg.BatchSize)
	if cfg.CrossValidation() {
		name += fmt.Sprintf("_%d", cfg.NumFolds)
	}
	return name
}

// FoldDirName is the name of the folder, under the run folder, with the outputs of the fold
// (numbered from 1). Without cross-validation the outputs go directly in the run folder.
func (cfg *Config) FoldDirName(fold int) string {
	if !cfg.CrossValidation() {
		return ""
	}
	return fmt.Sprintf("%dx%d_%dEpoch_%d", cfg.ImageSize, cfg.ImageSize, cfg.Epochs, fold)
}

// artifactName returns the file name "<prefix>_<W>x<H>_<epochs>_Epoch[_Fold<k>]<ext>".
func (cfg *Config) artifactName(prefix string, fold int, ext string) string {
	name := fmt.Sprintf("%s_%dx%d_%d_Epoch", prefix, cfg.ImageSize, cfg.ImageSize, cfg.Epochs)
	if cfg.CrossValidation() {
		name += fmt.Sprintf("_Fold%d", fold)
	}
	return name + ext
}

// summaryName returns the file name of the cross-validation summaries "<prefix>_<W>x<H>_<epochs>_Epoch<ext>".
func (cfg *Config) summaryName(prefix, ext string) string {
	return fmt.Sprintf("%s_%dx%d_%d_Epoch%s", prefix, cfg.ImageSize, cfg.ImageSize, cfg.Epochs, ext)
}
