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

// Package cnn defines the convolutional image classifier and its hyperparameters.
//
// The model is three convolution + max-pool blocks of increasing width, followed by dense layers
// with L2-regularized kernels and dropout, and a final dense layer with one logit per class.
// All hyperparameters are GoMLX context parameters, see CreateDefaultContext.
package cnn

import (
	"github.com/anommahartha/klasifikasijenisdaging/pkg/imageset"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/ml/layers/regularizers"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/pkg/errors"
)

// Context hyperparameters.
const (
	// ParamImageSize is the width and height (in pixels) images are resized to.
	ParamImageSize = "image_size"

	// ParamEpochs is the number of training epochs per fold.
	ParamEpochs = "epochs"

	// ParamBatchSize is the training batch size.
	ParamBatchSize = "batch_size"

	// ParamNumFolds is the number of cross-validation folds. 1 trains a single model on a
	// stratified hold-out split, see ParamValidationFraction.
	ParamNumFolds = "num_folds"

	// ParamValidationFraction is the fraction of the training set held out for validation when
	// ParamNumFolds is 1.
	ParamValidationFraction = "validation_fraction"

	// ParamFoldSeed seeds the fold partition.
	ParamFoldSeed = "fold_seed"

	// ParamNormalizeTest scales test images to [0, 1] like training images. If false, test images
	// are fed with raw [0, 255] pixel values.
	ParamNormalizeTest = "normalize_test"

	// ParamNumClasses is the number of output classes. It is set from the dataset.
	ParamNumClasses = "num_classes"

	// ParamChannels lists the number of channels of each convolution block.
	ParamChannels = "cnn_channels"

	// ParamKernelSize is the size of the square convolution kernels.
	ParamKernelSize = "cnn_kernel_size"

	// ParamDenseNodes lists the number of nodes of each hidden dense layer.
	ParamDenseNodes = "dense_nodes"

	// ParamDenseL2 is the L2 regularization of the hidden dense layers' kernels.
	ParamDenseL2 = "dense_l2"

	// ParamDropoutRate is the dropout rate applied after each hidden dense layer.
	ParamDropoutRate = "dropout_rate"
)

// CreateDefaultContext returns a context with the default hyperparameters.
func CreateDefaultContext() *context.Context {
	ctx := context.New()
	ctx.SetRNGStateFromSeed(42)
	ctx.SetParams(map[string]any{
		ParamImageSize:          75,
		ParamEpochs:             100,
		ParamBatchSize:          64,
		ParamNumFolds:           5,
		ParamValidationFraction: 0.2,
		ParamFoldSeed:           42,
		ParamNormalizeTest:      true,
		ParamNumClasses:         0,

		ParamChannels:    []int{32, 64, 128},
		ParamKernelSize:  5,
		ParamDenseNodes:  []int{128, 64},
		ParamDenseL2:     0.01,
		ParamDropoutRate: 0.1,

		optimizers.ParamOptimizer:    "adam",
		optimizers.ParamLearningRate: 1e-3,
	})
	return ctx
}

// ModelGraph implements train.ModelFn: it returns the logits shaped [batch, num_classes] for the
// batch of images in inputs[0], shaped [batch, height, width, 3].
func ModelGraph(ctx *context.Context, spec any, inputs []*Node) []*Node {
	_ = spec
	images := inputs[0]
	g := images.Graph()
	dtype := images.DType()
	batchSize := images.Shape().Dimensions[0]
	numClasses := context.GetParamOr(ctx, ParamNumClasses, 0)
	if numClasses < 2 {
		exceptions.Panicf("cnn.ModelGraph requires %q >= 2, got %d", ParamNumClasses, numClasses)
	}
	kernelSize := context.GetParamOr(ctx, ParamKernelSize, 5)
	logits := images

	layerIdx := 0
	nextCtx := func(name string) *context.Context {
		newCtx := ctx.Inf("%03d_%s", layerIdx, name)
		layerIdx++
		return newCtx
	}

	for _, channels := range context.GetParamOr(ctx, ParamChannels, []int{32, 64, 128}) {
		logits = layers.Convolution(nextCtx("conv"), logits).Channels(channels).KernelSize(kernelSize).NoPadding().Done()
		logits = activations.Relu(logits)
		logits = MaxPool(logits).Window(2).Done()
	}
	logits = Reshape(logits, batchSize, -1)

	// Hidden dense layers share the L2 regularization, which doesn't apply to the convolutions.
	denseCtx := ctx.In("dense")
	denseCtx.SetParam(regularizers.ParamL2, context.GetParamOr(ctx, ParamDenseL2, 0.01))
	dropoutRate := context.GetParamOr(ctx, ParamDropoutRate, 0.1)
	for ii, nodes := range context.GetParamOr(ctx, ParamDenseNodes, []int{128, 64}) {
		layerCtx := denseCtx.Inf("%03d", ii)
		logits = layers.Dense(layerCtx, logits, true, nodes)
		logits = activations.Relu(logits)
		if dropoutRate > 0 {
			logits = layers.DropoutNormalize(layerCtx.In("dropout"), logits, Scalar(g, dtype, dropoutRate), true)
		}
	}
	logits = layers.Dense(nextCtx("logits"), logits, true, numClasses)
	logits.AssertDims(batchSize, numClasses)
	return []*Node{logits}
}

// Probabilities returns the softmax over the classes of the model logits for images.
func Probabilities(ctx *context.Context, images *Node) *Node {
	return Softmax(ModelGraph(ctx, nil, []*Node{images})[0], -1)
}

// Predictor predicts class labels with a trained model. It reuses the variables of the context.
type Predictor struct {
	exec *context.Exec
}

// NewPredictor creates a Predictor for the model trained in ctx.
func NewPredictor(backend backends.Backend, ctx *context.Context) (*Predictor, error) {
	exec, err := context.NewExec(backend, ctx.Reuse(), func(ctx *context.Context, images *Node) *Node {
		return ArgMax(Probabilities(ctx, images), -1, dtypes.Int32)
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create predictor")
	}
	return &Predictor{exec: exec}, nil
}

// Predict returns the arg-max class of each image in images, shaped [N, height, width, 3].
func (p *Predictor) Predict(images *tensors.Tensor) ([]int32, error) {
	output, err := p.exec.Exec1(images)
	if err != nil {
		return nil, errors.WithMessagef(err, "prediction failed")
	}
	defer output.MustFinalizeAll()
	return tensors.MustCopyFlatData[int32](output), nil
}

// PredictSet predicts the labels of all samples of set, in batches of batchSize.
// Pixel values are divided by scale, see imageset.SampleSet.ImagesTensor.
func (p *Predictor) PredictSet(set *imageset.SampleSet, scale float64, batchSize int) ([]int32, error) {
	predictions := make([]int32, 0, set.Len())
	for start := 0; start < set.Len(); start += batchSize {
		end := min(start+batchSize, set.Len())
		indices := make([]int, 0, end-start)
		for idx := start; idx < end; idx++ {
			indices = append(indices, idx)
		}
		images := set.Subset(indices).ImagesTensor(scale)
		batchPredictions, err := p.Predict(images)
		images.MustFinalizeAll()
		if err != nil {
			return nil, errors.WithMessagef(err, "batch starting at example %d", start)
		}
		predictions = append(predictions, batchPredictions...)
	}
	return predictions, nil
}

// FreshContext returns a new context with the hyperparameters of ctx but none of its variables,
// with the random number generator seeded with seed. It is used to train an independent model
// per cross-validation fold.
func FreshContext(ctx *context.Context, seed int64) *context.Context {
	fresh := context.New()
	fresh.SetRNGStateFromSeed(seed)
	ctx.EnumerateParams(func(scope, key string, value any) {
		fresh.InAbsPath(scope).SetParam(key, value)
	})
	return fresh
}
