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

	"github.com/elyz081/niidenoise/internal/stats"
)

// Edge-preserving joint domain/range smoothing: neighbors contribute by
// spatial distance and by intensity difference
type BilateralRequest struct {
	PatchSize    int
	SigmaColor   float32 // 0 selects an estimate from the image noise scale
	SigmaSpatial float32
}

func (op *BilateralRequest) MethodName() string { return "bilateral" }

func (op *BilateralRequest) Params() []string {
	return []string{
		formatParamInt(op.PatchSize),
		formatParamFloat(op.SigmaColor),
		formatParamFloat(op.SigmaSpatial),
	}
}

func (op *BilateralRequest) run(c *Context, data []float32, naxisn []int32) []float32 {
	r:=int32(op.PatchSize)/2
	if r<1 { r=1 }

	sigmaColor:=op.SigmaColor
	if sigmaColor<=0 {
		// estimate the range sigma from the sampled noise scale, like the
		// upstream library does when the parameter is left unset
		location:=stats.FastApproxMedian(data, 16*1024)
		sigmaColor=stats.FastApproxMAD(data, location, 16*1024)
		if sigmaColor<=0 { sigmaColor=1 }
		fmt.Fprintf(c.Log, "Bilateral sigma_color unset, estimated %.4g from image\n", sigmaColor)
	}
	sigmaSpatial:=op.SigmaSpatial
	if sigmaSpatial<=0 { sigmaSpatial=1 }

	// precompute the spatial weight cube once
	side:=2*r+1
	spatial:=make([]float32, side*side*side)
	i:=0
	for dz:=-r; dz<=r; dz++ {
		for dy:=-r; dy<=r; dy++ {
			for dx:=-r; dx<=r; dx++ {
				d2:=float32(dx*dx+dy*dy+dz*dz)
				spatial[i]=float32(math.Exp(float64(-d2/(2*sigmaSpatial*sigmaSpatial))))
				i++
			}
		}
	}
	invColor:=-1/(2*sigmaColor*sigmaColor)

	nx, ny, nz:=naxisn[0], naxisn[1], naxisn[2]
	res:=make([]float32, len(data))
	for z:=int32(0); z<nz; z++ {
		for y:=int32(0); y<ny; y++ {
			for x:=int32(0); x<nx; x++ {
				center:=data[x+nx*(y+ny*z)]
				sum, weightSum:=float32(0), float32(0)
				i:=0
				for dz:=-r; dz<=r; dz++ {
					zz:=reflect(nz, z+dz)
					for dy:=-r; dy<=r; dy++ {
						yy:=reflect(ny, y+dy)
						for dx:=-r; dx<=r; dx++ {
							xx:=reflect(nx, x+dx)
							v:=data[xx+nx*(yy+ny*zz)]
							diff:=v-center
							w:=spatial[i]*float32(math.Exp(float64(diff*diff*invColor)))
							sum+=v*w
							weightSum+=w
							i++
						}
					}
				}
				res[x+nx*(y+ny*z)]=sum/weightSum
			}
		}
	}
	return res
}
