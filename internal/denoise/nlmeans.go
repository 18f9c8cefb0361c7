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


package denoise

import (
	"fmt"
	"math"
)

// Patchwise self-similarity averaging: each voxel is replaced by a weighted
// mean over the search window, with weights from mean squared patch distance
type NLMeansRequest struct {
	H             float32
	PatchSize     int
	PatchDistance int
}

func (op *NLMeansRequest) MethodName() string { return "nl_means" }

func (op *NLMeansRequest) Params() []string {
	return []string{
		formatParamFloat(op.H),
		formatParamInt(op.PatchSize),
		formatParamInt(op.PatchDistance),
	}
}

func (op *NLMeansRequest) run(c *Context, data []float32, naxisn []int32) []float32 {
	pr:=int32(op.PatchSize-1)/2
	if pr<0 { pr=0 }
	sr:=int32(op.PatchDistance)
	if sr<1 { sr=1 }
	h:=op.H
	if h<=0 { h=1 }
	invH2:=-1/(h*h)

	nx, ny, nz:=naxisn[0], naxisn[1], naxisn[2]
	patchLen:=float32((2*pr+1)*(2*pr+1)*(2*pr+1))

	workingMB:=(int64(len(data))*4*2)>>20
	fmt.Fprintf(c.Log, "NL-means patch radius %d search radius %d, working set %d MB of %d MB\n",
		pr, sr, workingMB, c.MemoryMB)

	res:=make([]float32, len(data))
	for z:=int32(0); z<nz; z++ {
		for y:=int32(0); y<ny; y++ {
			for x:=int32(0); x<nx; x++ {
				sum, weightSum:=float32(0), float32(0)
				for sz:=-sr; sz<=sr; sz++ {
					for sy:=-sr; sy<=sr; sy++ {
						for sx:=-sr; sx<=sr; sx++ {
							// mean squared distance between the patch at
							// (x,y,z) and the shifted patch
							var dist float32
							for pz:=-pr; pz<=pr; pz++ {
								za:=reflect(nz, z+pz)
								zb:=reflect(nz, z+sz+pz)
								for py:=-pr; py<=pr; py++ {
									ya:=reflect(ny, y+py)
									yb:=reflect(ny, y+sy+py)
									for px:=-pr; px<=pr; px++ {
										xa:=reflect(nx, x+px)
										xb:=reflect(nx, x+sx+px)
										d:=data[xa+nx*(ya+ny*za)]-data[xb+nx*(yb+ny*zb)]
										dist+=d*d
									}
								}
							}
							dist/=patchLen
							w:=float32(math.Exp(float64(dist*invH2)))
							v:=data[reflect(nx, x+sx)+nx*(reflect(ny, y+sy)+ny*reflect(nz, z+sz))]
							sum+=v*w
							weightSum+=w
						}
					}
				}
				res[x+nx*(y+ny*z)]=sum/weightSum
			}
		}
	}
	return res
}
