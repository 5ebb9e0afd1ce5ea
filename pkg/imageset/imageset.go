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

// Package imageset reads class-labeled image trees: a root directory whose immediate
// subdirectories name the classes, each holding the images of that class.
//
// Class indices come from an explicit ClassMap (sorted by name), which is persisted next to
// trained models so predictions can be decoded later.
package imageset

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ClassMapFile is the file name used when persisting a ClassMap next to a model.
const ClassMapFile = "classes.json"

// ImageExtensions lists the (lower-case) extensions of the files considered images.
var ImageExtensions = []string{".png", ".jpg", ".jpeg"}

// ClassMap maps class names to label indices: the index of a class is its position in Names.
type ClassMap struct {
	Names []string `json:"classes"`
}

// NewClassMap creates a ClassMap from the given names, in the given order.
func NewClassMap(names ...string) ClassMap {
	return ClassMap{Names: slices.Clone(names)}
}

// Len returns the number of classes.
func (m ClassMap) Len() int { return len(m.Names) }

// Index returns the label index of the class name.
func (m ClassMap) Index(name string) (int, bool) {
	idx := slices.Index(m.Names, name)
	return idx, idx >= 0
}

// Name returns the class name for the label index, or "<invalid:idx>" if it is out of range.
func (m ClassMap) Name(idx int) string {
	if idx < 0 || idx >= len(m.Names) {
		return fmt.Sprintf("<invalid:%d>", idx)
	}
	return m.Names[idx]
}

// Save writes the ClassMap as JSON to filePath.
func (m ClassMap) Save(filePath string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to serialize class map")
	}
	if err = os.WriteFile(filePath, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write class map to %q", filePath)
	}
	return nil
}

// LoadClassMap reads a ClassMap previously written with ClassMap.Save.
func LoadClassMap(filePath string) (ClassMap, error) {
	var m ClassMap
	data, err := os.ReadFile(filePath)
	if err != nil {
		return m, errors.Wrapf(err, "failed to read class map from %q", filePath)
	}
	if err = json.Unmarshal(data, &m); err != nil {
		return m, errors.Wrapf(err, "failed to parse class map in %q", filePath)
	}
	return m, nil
}

// IsHidden returns whether the file or directory name is hidden platform metadata (e.g. ".DS_Store").
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// IsImageFile returns whether the file name has one of the ImageExtensions (case-insensitive)
// and is not hidden.
func IsImageFile(name string) bool {
	if IsHidden(name) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return slices.Contains(ImageExtensions, ext)
}

// ListClasses returns the ClassMap of the dataset under root: its non-hidden immediate
// subdirectories, sorted by name.
func ListClasses(root string) (ClassMap, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return ClassMap{}, errors.Wrapf(err, "failed to list classes in %q", root)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || IsHidden(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return ClassMap{}, errors.Errorf("no class subdirectories found in %q", root)
	}
	slices.Sort(names)
	return ClassMap{Names: names}, nil
}

// ListImages returns the names (not paths) of the image files in dir, sorted.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list images in %q", dir)
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && IsImageFile(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Decode reads and decodes the image at filePath, applying its EXIF orientation.
func Decode(filePath string) (image.Image, error) {
	img, err := imaging.Open(filePath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %q", filePath)
	}
	return img, nil
}

// Resize stretches img to exactly width x height pixels, not preserving the aspect ratio.
func Resize(img image.Image, width, height int) *image.NRGBA {
	bounds := img.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, width, height, imaging.Linear)
}

// CopyFile copies src to dst, creating dst's directory if needed and preserving the file mode.
// The original file is left in place.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %q", src)
	}
	if err = os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %q", dst)
	}
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q", src)
	}
	defer func() { _ = in.Close() }()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", dst)
	}
	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.Wrapf(err, "failed to copy %q to %q", src, dst)
	}
	if err = out.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %q", dst)
	}
	return nil
}
