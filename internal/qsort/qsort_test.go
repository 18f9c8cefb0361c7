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


package qsort

import (
	"testing"

	"github.com/valyala/fastrand"
)

// random permutation of 1..n
func permutation(rng *fastrand.RNG, n int) []float32 {
	arr:=make([]float32, n)
	for j:=0; j<n; j++ {
		arr[j]=float32(j+1)
	}
	for j:=0; j<n; j++ {
		k:=rng.Uint32n(uint32(n))
		arr[j], arr[k] = arr[k], arr[j]
	}
	return arr
}

func TestSort(t *testing.T) {
	rng:=fastrand.RNG{}
	for i:=1; i<200; i++ {
		arr:=permutation(&rng, i)
		QSortFloat32(arr)
		for j:=0; j<len(arr); j++ {
			if arr[j]!=float32(j+1) {
				t.Fatalf("sort(perm(1..%d)) position %d got %f expect %d", i, j, arr[j], j+1)
			}
		}
	}
}

func TestSelect(t *testing.T) {
	rng:=fastrand.RNG{}
	for i:=1; i<100; i++ {
		for k:=1; k<=i; k++ {
			arr:=permutation(&rng, i)
			res:=QSelectFloat32(arr, k)
			if res!=float32(k) {
				t.Fatalf("select(perm(1..%d), %d) got %f expect %d", i, k, res, k)
			}
		}
	}
}

func TestMedian(t *testing.T) {
	rng:=fastrand.RNG{}
	for i:=1; i<1000; i++ {
		arr:=permutation(&rng, i)

		// upper of the two middle elements for even lengths
		expect:=float32(i/2+1)
		res:=QSelectMedianFloat32(arr)
		if res!=expect {
			t.Logf("median(1..%d) got %f expect %f\n", i, res, expect)
			t.Fail()
		}
	}
}
