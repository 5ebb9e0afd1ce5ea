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
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeImage writes a solid color PNG/JPEG image of the given size.
func writeImage(t *testing.T, filePath string, width, height int, c color.Color) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
	require.NoError(t, imaging.Save(imaging.New(width, height, c), filePath))
}

func TestListClasses(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"sapi", "babi", "campuran", ".DS_Store_dir"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, ".DS_Store"), []byte{0}, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.txt"), []byte("x"), 0644))

	classes, err := ListClasses(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"babi", "campuran", "sapi"}, classes.Names)
	idx, found := classes.Index("sapi")
	assert.True(t, found)
	assert.Equal(t, 2, idx)
	_, found = classes.Index("kambing")
	assert.False(t, found)
	assert.Equal(t, "campuran", classes.Name(1))
	assert.Equal(t, "<invalid:7>", classes.Name(7))

	_, err = ListClasses(t.TempDir())
	require.Error(t, err)
}

func TestClassMapPersistence(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), ClassMapFile)
	classes := NewClassMap("babi", "campuran", "sapi")
	require.NoError(t, classes.Save(filePath))
	loaded, err := LoadClassMap(filePath)
	require.NoError(t, err)
	assert.Equal(t, classes.Names, loaded.Names)
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.JPG", "a.png", "c.jpeg", ".DS_Store", "notes.txt", "._a.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte{0}, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0755))
	files, err := ListImages(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.JPG", "c.jpeg"}, files)
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	for ii := range 3 {
		writeImage(t, filepath.Join(root, "sapi", fmt.Sprintf("s%d.png", ii)), 20, 10, color.NRGBA{R: 200, A: 255})
		writeImage(t, filepath.Join(root, "babi", fmt.Sprintf("b%d.jpg", ii)), 7, 13, color.NRGBA{G: 200, A: 255})
	}
	// Corrupt image and a folder outside the class map are skipped.
	require.NoError(t, os.WriteFile(filepath.Join(root, "babi", "corrupt.jpg"), []byte("not an image"), 0644))
	writeImage(t, filepath.Join(root, "kambing", "k.png"), 8, 8, color.White)

	classes := NewClassMap("babi", "sapi")
	for _, parallelism := range []int{1, 4} {
		set, err := Load(context.Background(), root, classes, LoadConfig{Width: 5, Height: 4, Parallelism: parallelism})
		require.NoError(t, err)
		require.Equal(t, 6, set.Len())
		assert.Equal(t, []int32{0, 0, 0, 1, 1, 1}, set.Labels)
		assert.Equal(t, []string{"b0.jpg", "b1.jpg", "b2.jpg", "s0.png", "s1.png", "s2.png"}, set.Files)
		assert.Len(t, set.Pixels, 6*5*4*3)
		assert.Equal(t, []int{3, 3}, set.ClassCounts())

		// Last image is a solid red one.
		last := set.Pixels[5*5*4*3:]
		assert.InDelta(t, 200, int(last[0]), 1)
		assert.InDelta(t, 0, int(last[1]), 1)
		assert.InDelta(t, 0, int(last[2]), 1)

		sub := set.Subset([]int{4, 0})
		assert.Equal(t, []int32{1, 0}, sub.Labels)
		assert.Equal(t, []string{"s1.png", "b0.jpg"}, sub.Files)
		assert.Len(t, sub.Pixels, 2*5*4*3)
	}
}

func TestLoadCancelled(t *testing.T) {
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "sapi", "s.png"), 4, 4, color.Black)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, root, NewClassMap("sapi"), LoadConfig{Width: 4, Height: 4})
	require.Error(t, err)
}

func TestTensors(t *testing.T) {
	set := &SampleSet{
		Width:   2,
		Height:  1,
		Classes: NewClassMap("a", "b"),
		Pixels:  []uint8{0, 51, 255, 102, 0, 0},
		Labels:  []int32{1},
		Files:   []string{"x.png"},
	}
	images := set.ImagesTensor(255)
	assert.Equal(t, []int{1, 1, 2, 3}, images.Shape().Dimensions)
	values := tensors.MustCopyFlatData[float32](images)
	assert.InDeltaSlice(t, []float32{0, 0.2, 1, 0.4, 0, 0}, values, 1e-6)

	raw := tensors.MustCopyFlatData[float32](set.ImagesTensor(1))
	assert.Equal(t, float32(255), raw[2])

	labels := set.LabelsTensor()
	assert.Equal(t, []int{1, 1}, labels.Shape().Dimensions)
	assert.Equal(t, []int32{1}, tensors.MustCopyFlatData[int32](labels))
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	require.NoError(t, os.WriteFile(src, []byte("pixels"), 0600))
	dst := filepath.Join(dir, "a", "b", "dst.jpg")
	require.NoError(t, CopyFile(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))
	_, err = os.Stat(src)
	require.NoError(t, err, "source must remain in place")
	require.Error(t, CopyFile(filepath.Join(dir, "missing.jpg"), dst))
}
