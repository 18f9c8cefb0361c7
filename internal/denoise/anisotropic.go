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

import "math"

// Perona-Malik diffusion over the 6-connected neighborhood. Conduction
// falls off with gradient magnitude so edges diffuse less than flat regions
type AnisotropicRequest struct {
	Iterations int
	Kappa      float32
	Gamma      float32
}

func (op *AnisotropicRequest) MethodName() string { return "anisotropic_diffusion" }

func (op *AnisotropicRequest) Params() []string {
	return []string{
		formatParamInt(op.Iterations),
		formatParamFloat(op.Kappa),
		formatParamFloat(op.Gamma),
	}
}

func (op *AnisotropicRequest) run(c *Context, data []float32, naxisn []int32) []float32 {
	nx, ny, nz:=naxisn[0], naxisn[1], naxisn[2]
	cur:=make([]float32, len(data))
	copy(cur, data)
	if op.Iterations<=0 { return cur }

	kappa:=op.Kappa
	if kappa<=0 { kappa=1 }
	invK2:=-1/(kappa*kappa)
	gamma:=op.Gamma

	next:=make([]float32, len(data))
	for it:=0; it<op.Iterations; it++ {
		for z:=int32(0); z<nz; z++ {
			for y:=int32(0); y<ny; y++ {
				for x:=int32(0); x<nx; x++ {
					center:=cur[x+nx*(y+ny*z)]
					var flux float32
					for _, n:=range [6][3]int32{
						{x-1, y, z}, {x+1, y, z},
						{x, y-1, z}, {x, y+1, z},
						{x, y, z-1}, {x, y, z+1},
					} {
						xx:=reflect(nx, n[0])
						yy:=reflect(ny, n[1])
						zz:=reflect(nz, n[2])
						g:=cur[xx+nx*(yy+ny*zz)]-center
						cond:=float32(math.Exp(float64(g*g*invK2)))
						flux+=cond*g
					}
					next[x+nx*(y+ny*z)]=center+gamma*flux
				}
			}
		}
		cur, next=next, cur
	}
	return cur
}
