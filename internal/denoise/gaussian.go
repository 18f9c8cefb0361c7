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

const sqrt2 = float32(1.41421356237309504880)

// Isotropic linear smoothing with a separable gaussian kernel
type GaussianRequest struct {
	Sigma float32
}

func (op *GaussianRequest) MethodName() string { return "gaussian" }

func (op *GaussianRequest) Params() []string {
	return []string{formatParamFloat(op.Sigma)}
}

func (op *GaussianRequest) run(c *Context, data []float32, naxisn []int32) []float32 {
	if op.Sigma<=0 {
		// identity case, smoothing with zero bandwidth is a no-op
		return append([]float32(nil), data...)
	}
	kernel:=GaussianKernel1D(op.Sigma)
	fmt.Fprintf(c.Log, "Gaussian kernel sigma %.2f size %d\n", op.Sigma, len(kernel))

	tmp:=make([]float32, len(data))
	res:=make([]float32, len(data))
	convolveAxis(tmp, data, naxisn, 0, kernel)
	convolveAxis(res, tmp, naxisn, 1, kernel)
	convolveAxis(tmp, res, naxisn, 2, kernel)
	copy(res, tmp)
	return res
}

// Returns the definite integral of the gaussian with midpoint mu and
// standard deviation sigma at x
func gaussianDefiniteIntegral(mu, sigma, x float32) float32 {
	return 0.5*(1+float32(math.Erf(float64((x-mu)/(sqrt2*sigma)))))
}

// Generates a 1D gaussian kernel for the given sigma via symbolic
// integration with the error function. The kernel is truncated where the
// tail area drops below 1% and renormalized to sum 1
func GaussianKernel1D(sigma float32) []float32 {
	acceptOut:=float32(0.01)
	radius:=0
	for {
		if gaussianDefiniteIntegral(0, sigma, -0.5-float32(radius))<acceptOut {
			radius--
			break
		}
		radius++
	}
	if radius<0 { radius=0 }

	kernel:=make([]float32, 2*radius+1)
	sum:=float32(0)
	lower:=gaussianDefiniteIntegral(0, sigma, -0.5-float32(radius))
	for i:=0; i<=radius; i++ {
		upper:=gaussianDefiniteIntegral(0, sigma, -0.5-float32(radius)+float32(i+1))
		kernel[i]=upper-lower
		sum+=kernel[i]
		lower=upper
	}
	for i:=1; i<=radius; i++ { // mirror the right half
		kernel[radius+i]=kernel[radius-i]
		sum+=kernel[radius+i]
	}
	factor:=1.0/sum
	for i:=range kernel {
		kernel[i]*=factor
	}
	return kernel
}

// Check if a coordinate is within [0, size-1], and if not, reflect it back
// into the value range. The mirror sequence has period 2*size, so offsets
// larger than the axis extent fold back correctly on thin volumes
func reflect(size, x int32) int32 {
	if size==1 { return 0 }
	period:=2*size
	x%=period
	if x<0 { x+=period }
	if x>=size { x=period-x-1 }
	return x
}

// Convolves the volume given by data and naxisn with the 1D kernel along
// the given axis, storing the result in res
func convolveAxis(res, data []float32, naxisn []int32, axis int, kernel []float32) {
	nx, ny, nz:=naxisn[0], naxisn[1], naxisn[2]
	k:=int32(len(kernel)/2)

	// index stride and extent of the convolved axis
	stride:=[3]int32{1, nx, nx*ny}[axis]
	size:=naxisn[axis]

	for z:=int32(0); z<nz; z++ {
		for y:=int32(0); y<ny; y++ {
			for x:=int32(0); x<nx; x++ {
				pos:=[3]int32{x, y, z}[axis]
				base:=x+nx*(y+ny*z)-pos*stride
				sum:=float32(0)
				for i:=-k; i<=k; i++ {
					sum+=data[base+reflect(size, pos+i)*stride]*kernel[i+k]
				}
				res[x+nx*(y+ny*z)]=sum
			}
		}
	}
}
