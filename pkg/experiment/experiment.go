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

// Package experiment trains and evaluates the CNN classifier on a train/test pair of image trees.
//
// With NumFolds > 1 it runs a stratified k-fold cross-validation over the training set, training
// one independent model per fold; with NumFolds == 1 it trains a single model against a stratified
// hold-out validation split. In both cases every model is evaluated on the untouched test set,
// and its reports, training curves and trained variables are written to the run folder.
package experiment

import (
	gocontext "context"
	"fmt"
	mathrand "math/rand"
	"os"
	"path/filepath"

	"github.com/anommahartha/klasifikasijenisdaging/pkg/charts"
	"github.com/anommahartha/klasifikasijenisdaging/pkg/cnn"
	"github.com/anommahartha/klasifikasijenisdaging/pkg/imageset"
	"github.com/anommahartha/klasifikasijenisdaging/pkg/kfold"
	"github.com/anommahartha/klasifikasijenisdaging/pkg/scores"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/backends/simplego"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/pkg/ml/datasets"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/metrics"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// History of the training of one model: loss and accuracy per epoch, measured on the training
// and validation partitions at the end of each epoch.
type History struct {
	Loss, Accuracy       []float64
	ValLoss, ValAccuracy []float64
}

// FoldResult holds the outcome of training and evaluating one model.
type FoldResult struct {
	// Fold number, starting at 1.
	Fold int

	// Dir where the fold's outputs were written.
	Dir string

	// ModelDir holds the trained variables (a GoMLX checkpoint) and the class map.
	ModelDir string

	History History

	// TrainSize, ValidationSize are the number of samples in each partition of the fold.
	TrainSize, ValidationSize int

	// TestLoss, TestAccuracy as measured by the trainer on the test set.
	TestLoss, TestAccuracy float64

	// Predictions for each test sample, and the Report computed from them.
	Predictions []int32
	Report      scores.Report
}

// Result of a Run.
type Result struct {
	// RunID uniquely identifies the run in the reports.
	RunID string

	// RunDir is the folder with all the outputs.
	RunDir  string
	Classes imageset.ClassMap
	Folds   []FoldResult

	// Summary averages the test metrics over the folds.
	Summary scores.Summary

	// SummaryReport and SummaryChart are the paths of the cross-validation summaries. They are
	// empty if NumFolds is 1.
	SummaryReport, SummaryChart string
}

// Accuracy metric short name, used to find its value among the evaluation results.
const accuracyShortName = "#acc"

// Run executes the experiment described by cfg, with the hyperparameters in ctx.
//
// Images that fail to decode are skipped. Any training or evaluation failure aborts the run: the
// returned Result holds the folds completed so far, and their outputs remain on disk.
func Run(ctx *context.Context, backend backends.Backend, cfg *Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := RequireTrainingBackend(backend); err != nil {
		return nil, err
	}
	classes, err := imageset.ListClasses(cfg.TrainDir)
	if err != nil {
		return nil, err
	}
	loadCfg := imageset.LoadConfig{
		Width:        cfg.ImageSize,
		Height:       cfg.ImageSize,
		Parallelism:  cfg.Parallelism,
		ShowProgress: cfg.ShowProgress,
	}
	trainSet, err := imageset.Load(gocontext.Background(), cfg.TrainDir, classes, loadCfg)
	if err != nil {
		return nil, err
	}
	testSet, err := imageset.Load(gocontext.Background(), cfg.TestDir, classes, loadCfg)
	if err != nil {
		return nil, err
	}
	if trainSet.Len() == 0 || testSet.Len() == 0 {
		return nil, errors.Errorf("no images found: %d training (%q) and %d test (%q)",
			trainSet.Len(), cfg.TrainDir, testSet.Len(), cfg.TestDir)
	}
	klog.Infof("Classes %q: %d training images %v, %d test images %v", classes.Names,
		trainSet.Len(), trainSet.ClassCounts(), testSet.Len(), testSet.ClassCounts())
	ctx.SetParam(cnn.ParamNumClasses, classes.Len())

	folds, err := partition(cfg, trainSet.Labels)
	if err != nil {
		return nil, err
	}
	result := &Result{
		RunID:   uuid.NewString(),
		RunDir:  filepath.Join(cfg.OutputDir, cfg.RunDirName()),
		Classes: classes,
	}
	if err = os.MkdirAll(result.RunDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create run directory %q", result.RunDir)
	}

	for _, fold := range folds {
		foldNum := fold.Index + 1
		if cfg.CrossValidation() {
			klog.Infof("Training fold %d of %d (%d training, %d validation images)",
				foldNum, len(folds), len(fold.Train), len(fold.Validation))
		}
		var foldResult FoldResult
		var foldErr error
		err = exceptions.TryCatch[error](func() {
			foldResult, foldErr = runFold(ctx, backend, cfg, fold, trainSet, testSet, result)
		})
		if err == nil {
			err = foldErr
		}
		if err != nil {
			return result, errors.WithMessagef(err, "fold %d of %d failed", foldNum, len(folds))
		}
		klog.Infof("Fold %d: test accuracy %.2f%%, precision %.2f%%, recall %.2f%%, F1 %.2f%%", foldNum,
			100*foldResult.Report.Accuracy, 100*foldResult.Report.Precision, 100*foldResult.Report.Recall,
			100*foldResult.Report.F1)
		result.Folds = append(result.Folds, foldResult)
	}

	reports := make([]scores.Report, len(result.Folds))
	for ii, fr := range result.Folds {
		reports[ii] = fr.Report
	}
	result.Summary = scores.Mean(reports)
	if cfg.CrossValidation() {
		result.SummaryReport = filepath.Join(result.RunDir, cfg.summaryName("average_metrics", ".txt"))
		if err = writeSummaryReport(result.SummaryReport, result); err != nil {
			return result, err
		}
		result.SummaryChart = filepath.Join(result.RunDir, cfg.summaryName("kfold_summary", ".png"))
		if err = charts.FoldSummary(result.SummaryChart, reports); err != nil {
			return result, err
		}
	}
	return result, nil
}

// RequireTrainingBackend returns an error if backend cannot train the CNN. The pure Go backend
// implements neither the max-pool gradient nor padding, so training requires XLA.
func RequireTrainingBackend(backend backends.Backend) error {
	if backend == nil {
		return errors.New("no backend given")
	}
	if backend.Name() == simplego.BackendName {
		return errors.Errorf("backend %q (%s) cannot train the CNN: it lacks the max-pool gradient, "+
			"use the XLA backend instead (e.g. GOMLX_BACKEND=xla:cpu)", backend.Name(), backend.Description())
	}
	return nil
}

// partition returns the folds of the training samples: k stratified folds, or a single stratified
// hold-out split if cfg.NumFolds is 1.
func partition(cfg *Config, labels []int32) ([]kfold.Fold, error) {
	if cfg.CrossValidation() {
		return kfold.Stratified(labels, cfg.NumFolds, uint64(cfg.FoldSeed))
	}
	fold, err := kfold.Holdout(labels, cfg.ValidationFraction, uint64(cfg.FoldSeed))
	if err != nil {
		return nil, err
	}
	return []kfold.Fold{fold}, nil
}

// newDataset creates an in-memory dataset with the samples of set, pixels divided by scale.
func newDataset(backend backends.Backend, name string, set *imageset.SampleSet, scale float64) (*datasets.InMemoryDataset, error) {
	ds, err := datasets.InMemoryFromData(backend, name,
		[]any{set.ImagesTensor(scale)}, []any{set.LabelsTensor()})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create dataset %q", name)
	}
	return ds, nil
}

// runFold trains a fresh model on the fold, evaluates it on the test set and writes its outputs.
func runFold(ctx *context.Context, backend backends.Backend, cfg *Config, fold kfold.Fold,
	trainSet, testSet *imageset.SampleSet, result *Result) (fr FoldResult, err error) {
	fr.Fold = fold.Index + 1
	fr.TrainSize, fr.ValidationSize = len(fold.Train), len(fold.Validation)
	seed := int64(cfg.FoldSeed + fr.Fold)
	foldCtx := cnn.FreshContext(ctx, seed)

	testScale := 1.0
	if cfg.NormalizeTest {
		testScale = 255.0
	}
	trainDS, err := newDataset(backend, fmt.Sprintf("train-fold%d", fr.Fold), trainSet.Subset(fold.Train), 255)
	if err != nil {
		return
	}
	defer trainDS.FinalizeAll()
	trainEvalDS := trainDS.Copy().BatchSize(cfg.BatchSize, false)
	trainDS.Shuffle().BatchSize(cfg.BatchSize, false).WithRand(mathrand.New(mathrand.NewSource(seed)))
	validationDS, err := newDataset(backend, fmt.Sprintf("validation-fold%d", fr.Fold), trainSet.Subset(fold.Validation), 255)
	if err != nil {
		return
	}
	defer validationDS.FinalizeAll()
	validationDS.BatchSize(cfg.BatchSize, false)
	testDS, err := newDataset(backend, "test", testSet, testScale)
	if err != nil {
		return
	}
	defer testDS.FinalizeAll()
	testDS.BatchSize(cfg.BatchSize, false)

	trainer := train.NewTrainer(backend, foldCtx, cnn.ModelGraph,
		losses.SparseCategoricalCrossEntropyLogits,
		optimizers.FromContext(foldCtx),
		[]metrics.Interface{metrics.NewMovingAverageSparseCategoricalAccuracy("Moving Average Accuracy", "~acc", 0.01)},
		[]metrics.Interface{metrics.NewSparseCategoricalAccuracy("Mean Accuracy", accuracyShortName)})
	loop := train.NewLoop(trainer)
	if cfg.ShowProgress {
		commandline.AttachProgressBar(loop)
	}

	h := &fr.History
	for epoch := range cfg.Epochs {
		if _, err = loop.RunEpochs(trainDS, 1); err != nil {
			return fr, errors.WithMessagef(err, "training epoch %d failed", epoch+1)
		}
		loss, accuracy, err := evaluate(trainer, trainEvalDS)
		if err != nil {
			return fr, err
		}
		valLoss, valAccuracy, err := evaluate(trainer, validationDS)
		if err != nil {
			return fr, err
		}
		h.Loss, h.Accuracy = append(h.Loss, loss), append(h.Accuracy, accuracy)
		h.ValLoss, h.ValAccuracy = append(h.ValLoss, valLoss), append(h.ValAccuracy, valAccuracy)
		klog.V(1).Infof("Fold %d, epoch %d/%d: loss=%.4f accuracy=%.2f%% val_loss=%.4f val_accuracy=%.2f%%",
			fr.Fold, epoch+1, cfg.Epochs, loss, 100*accuracy, valLoss, 100*valAccuracy)
	}

	if fr.TestLoss, fr.TestAccuracy, err = evaluate(trainer, testDS); err != nil {
		return fr, err
	}
	predictor, err := cnn.NewPredictor(backend, foldCtx)
	if err != nil {
		return fr, err
	}
	if fr.Predictions, err = predictor.PredictSet(testSet, testScale, cfg.BatchSize); err != nil {
		return fr, err
	}
	if fr.Report, err = scores.Compute(result.Classes.Len(), testSet.Labels, fr.Predictions); err != nil {
		return fr, err
	}

	fr.Dir = filepath.Join(result.RunDir, cfg.FoldDirName(fr.Fold))
	if err = os.MkdirAll(fr.Dir, 0755); err != nil {
		return fr, errors.Wrapf(err, "failed to create fold directory %q", fr.Dir)
	}
	if err = writeFoldOutputs(cfg, result, &fr, testSet); err != nil {
		return fr, err
	}
	fr.ModelDir = filepath.Join(fr.Dir, cfg.artifactName("model", fr.Fold, ""))
	if err = saveModel(foldCtx, fr.ModelDir, result.Classes); err != nil {
		return fr, err
	}
	return fr, nil
}

// evaluate returns the mean loss and accuracy of the trainer's model over ds.
func evaluate(trainer *train.Trainer, ds train.Dataset) (loss, accuracy float64, err error) {
	values, err := trainer.Eval(ds)
	ds.Reset()
	if err != nil {
		return 0, 0, errors.WithMessagef(err, "failed to evaluate on %q", ds.Name())
	}
	loss = scalar(values[0])
	for ii, metric := range trainer.EvalMetrics() {
		if metric.ShortName() == accuracyShortName {
			accuracy = scalar(values[ii])
		}
	}
	return loss, accuracy, nil
}

// scalar converts a scalar float tensor to float64.
func scalar(t *tensors.Tensor) float64 {
	switch v := t.Value().(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	default:
		exceptions.Panicf("expected a scalar float metric, got %s", t.Shape())
		return 0
	}
}

// saveModel writes the trained variables of ctx as a checkpoint in modelDir, along with the class map.
func saveModel(ctx *context.Context, modelDir string, classes imageset.ClassMap) error {
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create model directory %q", modelDir)
	}
	checkpoint, err := checkpoints.Build(ctx).Dir(modelDir).Keep(1).Done()
	if err != nil {
		return errors.WithMessagef(err, "failed to create checkpoint in %q", modelDir)
	}
	if err = checkpoint.Save(); err != nil {
		return errors.WithMessagef(err, "failed to save model to %q", modelDir)
	}
	return classes.Save(filepath.Join(modelDir, imageset.ClassMapFile))
}
