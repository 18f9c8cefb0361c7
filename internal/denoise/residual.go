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

	"github.com/elyz081/niidenoise/internal/nifti"
)

// Residual returns original minus denoised as a new image sharing the
// original's geometry. The two inputs must have identical dimensions.
func Residual(original, denoised *nifti.Image) (*nifti.Image, error) {
	if !nifti.EqualInt32Slice(original.Naxisn, denoised.Naxisn) {
		return nil, fmt.Errorf("%w: original %v vs denoised %v", ErrShapeMismatch,
			original.Naxisn, denoised.Naxisn)
	}
	res:=nifti.NewImageFromImage(original)
	for i, v:=range original.Data {
		res.Data[i]=v-denoised.Data[i]
	}
	return res, nil
}
