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

// Reorients the voxel array into the canonical right-superior-anterior axis
// order: axis 0 grows towards the patient's right, axis 1 towards superior,
// axis 2 towards anterior. With that convention axis 0 slices are sagittal,
// axis 1 axial and axis 2 coronal, independent of the input file's native
// layout. Returns a new image; the input is left untouched.
//
// The on-disk affine is carried over unchanged, so results written to file
// keep the source spatial reference while the in-memory array is canonical.
func ReorientRSA(img *Image) *Image {
	// Dominant world direction of each data axis, from the affine columns.
	// World axes follow the NIfTI convention x=right, y=anterior, z=superior.
	var worldAxis [3]int
	var flip [3]bool
	for j:=0; j<3; j++ {
		best, bestAbs:=0, 0.0
		for i:=0; i<3; i++ {
			v:=img.Affine.At(i, j)
			if a:=abs64(v); a>bestAbs {
				best, bestAbs=i, a
			}
		}
		worldAxis[j]=best
		flip[j]=img.Affine.At(best, j)<0
	}

	// srcAxis[k] is the data axis that becomes canonical output axis k
	canonical:=[3]int{0, 2, 1} // R, S, A as world axes x, z, y
	var srcAxis [3]int
	seen:=[3]bool{}
	for k, want:=range canonical {
		found:=-1
		for j:=0; j<3; j++ {
			if worldAxis[j]==want {
				found=j
				break
			}
		}
		if found<0 || seen[found] {
			// degenerate affine, keep the native orientation
			out:=NewImageFromImage(img)
			copy(out.Data, img.Data)
			out.Stats=img.Stats
			return out
		}
		seen[found]=true
		srcAxis[k]=found
	}

	n:=img.Naxisn
	out:=&Image{
		FileName: img.FileName,
		Naxisn:   []int32{n[srcAxis[0]], n[srcAxis[1]], n[srcAxis[2]]},
		Pixels:   img.Pixels,
		Data:     make([]float32, img.Pixels),
		Affine:   img.Affine,
		PixDim:   [3]float32{img.PixDim[srcAxis[0]], img.PixDim[srcAxis[1]], img.PixDim[srcAxis[2]]},
		Datatype: img.Datatype,
		Stats:    img.Stats,
	}

	var src [3]int32
	di:=0
	for i2:=int32(0); i2<out.Naxisn[2]; i2++ {
		for i1:=int32(0); i1<out.Naxisn[1]; i1++ {
			for i0:=int32(0); i0<out.Naxisn[0]; i0++ {
				idx:=[3]int32{i0, i1, i2}
				for k:=0; k<3; k++ {
					v:=idx[k]
					if flip[srcAxis[k]] {
						v=out.Naxisn[k]-1-v
					}
					src[srcAxis[k]]=v
				}
				out.Data[di]=img.Data[src[0]+n[0]*(src[1]+n[1]*src[2])]
				di++
			}
		}
	}
	return out
}

func abs64(x float64) float64 {
	if x<0 { return -x }
	return x
}
