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

	"github.com/elyz081/niidenoise/internal/qsort"
)

// Order-statistic filter over a cubic window, edge-preserving for impulse
// noise
type MedianRequest struct {
	PatchSize int
}

func (op *MedianRequest) MethodName() string { return "median" }

func (op *MedianRequest) Params() []string {
	return []string{formatParamInt(op.PatchSize)}
}

func (op *MedianRequest) run(c *Context, data []float32, naxisn []int32) []float32 {
	r:=int32(op.PatchSize)/2
	if r<=0 {
		// a window of size 1 is the identity
		return append([]float32(nil), data...)
	}
	fmt.Fprintf(c.Log, "Median window %dx%dx%d\n", 2*r+1, 2*r+1, 2*r+1)

	nx, ny, nz:=naxisn[0], naxisn[1], naxisn[2]
	res:=make([]float32, len(data))
	window:=make([]float32, (2*r+1)*(2*r+1)*(2*r+1))

	for z:=int32(0); z<nz; z++ {
		for y:=int32(0); y<ny; y++ {
			for x:=int32(0); x<nx; x++ {
				n:=0
				for dz:=-r; dz<=r; dz++ {
					zz:=reflect(nz, z+dz)
					for dy:=-r; dy<=r; dy++ {
						yy:=reflect(ny, y+dy)
						for dx:=-r; dx<=r; dx++ {
							xx:=reflect(nx, x+dx)
							window[n]=data[xx+nx*(yy+ny*zz)]
							n++
						}
					}
				}
				res[x+nx*(y+ny*z)]=qsort.QSelectMedianFloat32(window[:n])
			}
		}
	}
	return res
}
