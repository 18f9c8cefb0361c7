// Copyright (C) 2024 the niidenoise authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package nifti

import (
	"fmt"
	"strings"

	"github.com/elyz081/niidenoise/internal/stats"
	"gonum.org/v1/gonum/mat"
)

// A NIfTI-1 volume.
// Spec here: https://nifti.nimh.nih.gov/pub/dist/src/niftilib/nifti1.h
//
// Voxel values are held as float32 regardless of the on-disk datatype, with
// the scl_slope/scl_inter scaling folded into the data at load time. The
// affine and the voxel sizes are metadata copied from the source header and
// reused unchanged when writing results.
type Image struct {
	FileName string // Original file name, if any, for log output

	Naxisn []int32 // Axis dimensions, most quickly varying dimension first (i.e. X,Y,Z)
	Pixels int32   // Number of voxels, product of Naxisn[]

	Data []float32 // The voxel data, X fastest

	Affine *mat.Dense // 4x4 transform from voxel indices to physical mm coordinates
	PixDim [3]float32 // Physical voxel sizes per axis in mm

	Datatype int16 // On-disk datatype code of the source file

	Stats *stats.Stats // Basic statistics: min, max, mean, standard deviation
}

// NIfTI-1 datatype codes for the voxel formats this package decodes
const (
	DTUint8   int16 = 2
	DTInt16   int16 = 4
	DTInt32   int16 = 8
	DTFloat32 int16 = 16
	DTFloat64 int16 = 64
	DTInt8    int16 = 256
	DTUint16  int16 = 512
)

// Creates a volume of the given dimensions. Data is not copied, and is
// allocated if nil. naxisn is deep copied. The affine defaults to identity
// and the voxel sizes to 1mm isotropic.
func NewImageFromNaxisn(naxisn []int32, data []float32) *Image {
	pixels:=int32(1)
	for _, naxis:=range naxisn {
		pixels*=naxis
	}
	if data==nil {
		data=make([]float32, pixels)
	}
	return &Image{
		Naxisn:   append([]int32(nil), naxisn...), // clone slice
		Pixels:   pixels,
		Data:     data,
		Affine:   identityAffine(),
		PixDim:   [3]float32{1, 1, 1},
		Datatype: DTFloat32,
		Stats:    stats.NewStats(data),
	}
}

// Creates a volume with the same dimensions and metadata as the given one.
// A new data array is allocated.
func NewImageFromImage(img *Image) *Image {
	return &Image{
		FileName: img.FileName,
		Naxisn:   append([]int32(nil), img.Naxisn...), // clone slice
		Pixels:   img.Pixels,
		Data:     make([]float32, img.Pixels),
		Affine:   img.Affine,
		PixDim:   img.PixDim,
		Datatype: img.Datatype,
	}
}

func identityAffine() *mat.Dense {
	a:=mat.NewDense(4, 4, nil)
	for i:=0; i<4; i++ {
		a.Set(i, i, 1)
	}
	return a
}

func (img *Image) DimensionsToString() string {
	b:=strings.Builder{}
	for i, naxis:=range img.Naxisn {
		if i>0 {
			fmt.Fprintf(&b, "x%d", naxis)
		} else {
			fmt.Fprintf(&b, "%d", naxis)
		}
	}
	return b.String()
}

// Equal tells whether a and b contain the same elements.
// A nil argument is equivalent to an empty slice.
func EqualInt32Slice(a, b []int32) bool {
	if len(a)!=len(b) { return false }
	for i, v:=range a {
		if v!=b[i] { return false }
	}
	return true
}
