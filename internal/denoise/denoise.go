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
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/elyz081/niidenoise/internal/nifti"
	"github.com/pbnjay/memory"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedMethod marks a method id outside the dispatch table.
var ErrUnsupportedMethod = errors.New("unsupported denoise method")

// ErrShapeMismatch marks a filter contract violation: an output volume whose
// shape differs from its input.
var ErrShapeMismatch = errors.New("volume shape mismatch")

// Method ids as accepted on the command line
const (
	MethodNLMeans     = 0
	MethodGaussian    = 1
	MethodMedian      = 3
	MethodBilateral   = 4
	MethodAnisotropic = 5
)

// An execution context for denoise requests
type Context struct {
	Log      io.Writer
	MemoryMB int // total physical memory, for working set estimates
}

func NewContext(log io.Writer) *Context {
	return &Context{
		Log:      log,
		MemoryMB: int(memory.TotalMemory()/1024/1024),
	}
}

// Tunable filter parameters, one immutable value constructed from the CLI
// (and optionally a YAML preset) before dispatch. Each request variant
// consumes only the fields it needs.
type Options struct {
	Sigma         float64 `yaml:"sigma"`         // gaussian standard deviation
	PatchSize     int     `yaml:"patchSize"`     // window size for nl_means, median, bilateral
	PatchDistance int     `yaml:"patchDistance"` // nl_means patch search distance
	H             float64 `yaml:"h"`             // nl_means filter strength
	SigmaColor    float64 `yaml:"sigmaColor"`    // bilateral intensity sigma, 0 = estimate from the image
	SigmaSpatial  float64 `yaml:"sigmaSpatial"`  // bilateral spatial sigma
	Iterations    int     `yaml:"iterations"`    // anisotropic diffusion iteration count
	Kappa         float64 `yaml:"kappa"`         // anisotropic diffusion conductance
	Gamma         float64 `yaml:"gamma"`         // anisotropic diffusion step size
}

func DefaultOptions() Options {
	return Options{
		Sigma:         1.0,
		PatchSize:     5,
		PatchDistance: 5,
		H:             30,
		SigmaColor:    0,
		SigmaSpatial:  1.0,
		Iterations:    10,
		Kappa:         50.0,
		Gamma:         0.1,
	}
}

// Loads filter parameter presets from a YAML file, over the defaults.
func LoadOptions(fileName string) (Options, error) {
	o:=DefaultOptions()
	data, err:=os.ReadFile(fileName)
	if err!=nil { return o, fmt.Errorf("reading preset file: %w", err) }
	if err:=yaml.Unmarshal(data, &o); err!=nil {
		return o, fmt.Errorf("parsing preset file: %w", err)
	}
	return o, nil
}

// A denoise request: one variant per filter, each carrying its own typed
// parameter set. Constructed once from CLI input and consumed once.
type Request interface {
	// Human-readable method name, used for logging and output naming
	MethodName() string
	// Ordered parameter values for output naming only, no numeric consequence
	Params() []string
	// Runs the filter over a voxel array of the given dimensions and
	// returns a newly allocated result of identical length
	run(c *Context, data []float32, naxisn []int32) []float32
}

// Builds the request variant for a method id, or fails with
// ErrUnsupportedMethod. Ids outside the table (including the historical 2)
// must error rather than silently skip denoising.
func NewRequest(method int, o Options) (Request, error) {
	switch method {
	case MethodNLMeans:
		return &NLMeansRequest{H: float32(o.H), PatchSize: o.PatchSize, PatchDistance: o.PatchDistance}, nil
	case MethodGaussian:
		return &GaussianRequest{Sigma: float32(o.Sigma)}, nil
	case MethodMedian:
		return &MedianRequest{PatchSize: o.PatchSize}, nil
	case MethodBilateral:
		return &BilateralRequest{PatchSize: o.PatchSize, SigmaColor: float32(o.SigmaColor), SigmaSpatial: float32(o.SigmaSpatial)}, nil
	case MethodAnisotropic:
		return &AnisotropicRequest{Iterations: o.Iterations, Kappa: float32(o.Kappa), Gamma: float32(o.Gamma)}, nil
	}
	return nil, fmt.Errorf("%w: id %d, want one of 0, 1, 3, 4, 5", ErrUnsupportedMethod, method)
}

// Applies the request to a volume and returns the denoised result as a new
// volume with the same shape, affine and voxel sizes.
func Apply(c *Context, req Request, img *nifti.Image) (*nifti.Image, error) {
	out:=nifti.NewImageFromImage(img)
	out.Data=req.run(c, img.Data, img.Naxisn)
	if int32(len(out.Data))!=img.Pixels {
		return nil, fmt.Errorf("%w: %s produced %d voxels, want %d",
			ErrShapeMismatch, req.MethodName(), len(out.Data), img.Pixels)
	}
	return out, nil
}

func formatParamInt(v int) string { return strconv.Itoa(v) }

func formatParamFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
