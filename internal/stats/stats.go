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


package stats

import (
	"fmt"
	"math"

	"github.com/elyz081/niidenoise/internal/qsort"
	"github.com/valyala/fastrand"
)

// Basic statistics on a voxel data array
type Stats struct {
	Min    float32 // Minimum
	Max    float32 // Maximum
	Mean   float32 // Mean (average)
	StdDev float32 // Standard deviation (norm 2, sigma)
}

// Calculates basic statistics for a data array in a single pass plus one
// variance pass
func NewStats(data []float32) *Stats {
	s:=&Stats{}
	if len(data)==0 { return s }

	min, max, sum:=data[0], data[0], float64(0)
	for _, v:=range data {
		if v<min { min=v }
		if v>max { max=v }
		sum+=float64(v)
	}
	s.Min, s.Max=min, max
	s.Mean=float32(sum/float64(len(data)))

	variance:=float64(0)
	for _, v:=range data {
		diff:=float64(v-s.Mean)
		variance+=diff*diff
	}
	s.StdDev=float32(math.Sqrt(variance/float64(len(data))))
	return s
}

// Pretty print basic stats to string
func (s *Stats) String() string {
	return fmt.Sprintf("Min %.6g Max %.6g Mean %.6g StdDev %.6g", s.Min, s.Max, s.Mean, s.StdDev)
}

// Calculates a fast approximate median of the (presumably large) data by
// subsampling numSamples values and taking the median of those.
// Falls back to the exact median for small inputs.
func FastApproxMedian(data []float32, numSamples int) float32 {
	if len(data)==0 { return 0 }
	if len(data)<=numSamples {
		tmp:=append([]float32(nil), data...)
		return qsort.QSelectMedianFloat32(tmp)
	}
	samples:=make([]float32, numSamples)
	max:=uint32(len(data))
	rng:=fastrand.RNG{}
	for i:=range samples {
		samples[i]=data[rng.Uint32n(max)]
	}
	return qsort.QSelectMedianFloat32(samples)
}

// Calculates a fast approximate scaled median absolute deviation of the data
// around the given location, by subsampling numSamples values.
// The result is normalized to the standard deviation of a Gaussian.
func FastApproxMAD(data []float32, location float32, numSamples int) float32 {
	if len(data)==0 { return 0 }
	n:=numSamples
	if len(data)<n { n=len(data) }
	samples:=make([]float32, n)
	max:=uint32(len(data))
	rng:=fastrand.RNG{}
	if len(data)<=numSamples {
		for i, d:=range data {
			samples[i]=float32(math.Abs(float64(d-location)))
		}
	} else {
		for i:=range samples {
			samples[i]=float32(math.Abs(float64(data[rng.Uint32n(max)]-location)))
		}
	}
	return qsort.QSelectMedianFloat32(samples)*1.4826 // normalize to Gaussian std dev
}
