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

package cnn

import (
	"testing"

	"github.com/anommahartha/klasifikasijenisdaging/pkg/imageset"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSet(n, size int) *imageset.SampleSet {
	set := &imageset.SampleSet{
		Width:   size,
		Height:  size,
		Classes: imageset.NewClassMap("babi", "campuran", "sapi"),
		Pixels:  make([]uint8, n*size*size*3),
		Labels:  make([]int32, n),
		Files:   make([]string, n),
	}
	for ii := range set.Pixels {
		set.Pixels[ii] = uint8(ii % 251)
	}
	return set
}

func TestFreshContext(t *testing.T) {
	ctx := CreateDefaultContext()
	ctx.SetParam(ParamNumClasses, 3)
	ctx.In("dense").SetParam(ParamDropoutRate, 0.5)
	fresh := FreshContext(ctx, 7)
	assert.Equal(t, 3, context.GetParamOr(fresh, ParamNumClasses, 0))
	assert.Equal(t, []int{32, 64, 128}, context.GetParamOr(fresh, ParamChannels, []int(nil)))
	assert.Equal(t, 0.5, context.GetParamOr(fresh.In("dense"), ParamDropoutRate, 0.0))
	assert.Equal(t, 0.1, context.GetParamOr(fresh, ParamDropoutRate, 0.0))
}

func TestModelGraph(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := CreateDefaultContext()
	ctx.SetParam(ParamNumClasses, 3)
	set := testSet(4, 75)
	images := set.ImagesTensor(255)
	probs := context.MustExecOnce(backend, ctx, func(ctx *context.Context, images *Node) *Node {
		return Probabilities(ctx, images)
	}, images)
	assert.Equal(t, []int{4, 3}, probs.Shape().Dimensions)
	values := tensors.MustCopyFlatData[float32](probs)
	for ii := range 4 {
		sum := values[3*ii] + values[3*ii+1] + values[3*ii+2]
		assert.InDelta(t, 1.0, sum, 1e-4)
	}

	// The predictor reuses the variables just created.
	predictor, err := NewPredictor(backend, ctx)
	require.NoError(t, err)
	predictions, err := predictor.PredictSet(set, 255, 3)
	require.NoError(t, err)
	require.Len(t, predictions, 4)
	for _, p := range predictions {
		assert.GreaterOrEqual(t, p, int32(0))
		assert.Less(t, p, int32(3))
	}
}

func TestModelGraphRequiresClasses(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := CreateDefaultContext()
	images := testSet(1, 40).ImagesTensor(255)
	_, err := context.ExecOnce(backend, ctx, func(ctx *context.Context, images *Node) *Node {
		return ModelGraph(ctx, nil, []*Node{images})[0]
	}, images)
	require.Error(t, err)
}
