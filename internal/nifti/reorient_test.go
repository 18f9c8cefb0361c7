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
	"testing"

	"gonum.org/v1/gonum/mat"
)

// affine with one dominant world direction per data axis
func axisAffine(world [3]int, sign [3]float64) *mat.Dense {
	a:=mat.NewDense(4, 4, nil)
	a.Set(3, 3, 1)
	for j:=0; j<3; j++ {
		a.Set(world[j], j, sign[j])
	}
	return a
}

func TestReorientIdentityRSA(t *testing.T) {
	data:=make([]float32, 2*3*4)
	for i:=range data { data[i]=float32(i) }
	img:=NewImageFromNaxisn([]int32{2, 3, 4}, data)
	// data axes already map to world right, superior, anterior
	img.Affine=axisAffine([3]int{0, 2, 1}, [3]float64{1, 1, 1})

	out:=ReorientRSA(img)
	if !EqualInt32Slice(out.Naxisn, img.Naxisn) {
		t.Fatalf("dimensions got %v expect %v", out.Naxisn, img.Naxisn)
	}
	for i, v:=range img.Data {
		if out.Data[i]!=v {
			t.Fatalf("voxel %d got %f expect %f", i, out.Data[i], v)
		}
	}
}

func TestReorientPermutation(t *testing.T) {
	// native layout: axis 0 anterior, axis 1 right, axis 2 superior (RAS-like
	// file stored as A,R,S). Canonical RSA must become axes (1, 2, 0).
	naxisn:=[]int32{3, 4, 5}
	data:=make([]float32, 3*4*5)
	for i:=range data { data[i]=float32(i) }
	img:=NewImageFromNaxisn(naxisn, data)
	img.PixDim=[3]float32{0.5, 1, 2}
	img.Affine=axisAffine([3]int{1, 0, 2}, [3]float64{1, 1, 1})

	out:=ReorientRSA(img)
	expectDims:=[]int32{4, 5, 3}
	if !EqualInt32Slice(out.Naxisn, expectDims) {
		t.Fatalf("dimensions got %v expect %v", out.Naxisn, expectDims)
	}
	if out.PixDim!=[3]float32{1, 2, 0.5} {
		t.Fatalf("pixdim got %v expect [1 2 0.5]", out.PixDim)
	}
	// output (r,s,a) reads native (x=r? no: native x is anterior)
	// native coords: x0=a, x1=r, x2=s, so out[r,s,a]=in[a,r,s]
	for a:=int32(0); a<3; a++ {
		for s:=int32(0); s<5; s++ {
			for r:=int32(0); r<4; r++ {
				got:=out.Data[r+4*(s+5*a)]
				expect:=img.Data[a+3*(r+4*s)]
				if got!=expect {
					t.Fatalf("out(%d,%d,%d) got %f expect %f", r, s, a, got, expect)
				}
			}
		}
	}
	// the on-disk affine rides along unchanged
	if out.Affine!=img.Affine {
		t.Fatal("affine must be carried over unchanged")
	}
}

func TestReorientFlip(t *testing.T) {
	// native axis 0 points left, so canonical axis 0 must reverse it
	naxisn:=[]int32{4, 3, 2}
	data:=make([]float32, 4*3*2)
	for i:=range data { data[i]=float32(i) }
	img:=NewImageFromNaxisn(naxisn, data)
	img.Affine=axisAffine([3]int{0, 2, 1}, [3]float64{-1, 1, 1})

	out:=ReorientRSA(img)
	for z:=int32(0); z<2; z++ {
		for y:=int32(0); y<3; y++ {
			for x:=int32(0); x<4; x++ {
				got:=out.Data[x+4*(y+3*z)]
				expect:=img.Data[(3-x)+4*(y+3*z)]
				if got!=expect {
					t.Fatalf("out(%d,%d,%d) got %f expect %f", x, y, z, got, expect)
				}
			}
		}
	}
}

func TestReorientDegenerateAffine(t *testing.T) {
	// two data axes share the same dominant world direction, native layout
	// must be kept
	naxisn:=[]int32{2, 2, 2}
	data:=make([]float32, 8)
	for i:=range data { data[i]=float32(i) }
	img:=NewImageFromNaxisn(naxisn, data)
	img.Affine=axisAffine([3]int{0, 0, 2}, [3]float64{1, 1, 1})

	out:=ReorientRSA(img)
	for i, v:=range img.Data {
		if out.Data[i]!=v {
			t.Fatalf("voxel %d got %f expect %f", i, out.Data[i], v)
		}
	}
}
