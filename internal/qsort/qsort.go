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

// Partitions a[left:right+1] around the middle element and returns the final
// pivot index. Values less than the pivot end up left of it, greater values right.
// Input must not contain IEEE NaN
func qPartitionFloat32(a []float32, left, right int) int {
	pivot:=a[(left+right)>>1]
	l, r:=left-1, right+1
	for {
		for {
			l++
			if a[l]>=pivot { break }
		}
		for {
			r--
			if a[r]<=pivot { break }
		}
		if l>=r { return r }
		a[l], a[r] = a[r], a[l]
	}
}

// Sort an array of float32 in ascending order.
// Input must not contain IEEE NaN
func QSortFloat32(a []float32) {
	if len(a)>1 {
		index:=qPartitionFloat32(a, 0, len(a)-1)
		QSortFloat32(a[:index+1])
		QSortFloat32(a[index+1:])
	}
}

// Select the kth lowest element (1-based) from an array of float32.
// Partially reorders the array.
// Input must not contain IEEE NaN
func QSelectFloat32(a []float32, k int) float32 {
	left, right:=0, len(a)-1
	for left<right {
		index:=qPartitionFloat32(a, left, right)
		offset:=index-left+1
		if k<=offset {
			right=index
		} else {
			left=index+1
			k-=offset
		}
	}
	return a[left]
}

// Select the median of an array of float32. Partially reorders the array.
// For even lengths, returns the upper of the two middle elements.
// Input must not contain IEEE NaN
func QSelectMedianFloat32(a []float32) float32 {
	return QSelectFloat32(a, (len(a)>>1)+1)
}
