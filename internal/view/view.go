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


// Package view renders diagnostic PNGs: central slice views and intensity
// histograms. Rendering failures are reported to the caller and are not
// meant to abort a denoising run.
package view

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/elyz081/niidenoise/internal/nifti"
	"github.com/elyz081/niidenoise/internal/stats"
)

// sliceAxes maps the slicing axis to the two in-plane axes
var sliceAxes=[3][2]int{
	0: {1, 2},
	1: {0, 2},
	2: {0, 1},
}

// SaveSlicePNG writes the central slice along the given axis as a grayscale
// PNG, scaled by the in-plane voxel dimensions so anisotropic volumes keep
// their physical aspect ratio.
func SaveSlicePNG(img *nifti.Image, axe int, fileName string) error {
	if axe<0 || axe>2 {
		return fmt.Errorf("invalid slice axis %d, want 0, 1 or 2", axe)
	}
	plane, err:=extractSlice(img, axe)
	if err!=nil { return err }

	st:=img.Stats
	if st==nil { st=stats.NewStats(img.Data) }
	min, max:=st.Min, st.Max
	scale:=float32(0)
	if max>min { scale=1/(max-min) }

	w, h:=plane.w, plane.h
	gray:=image.NewGray16(image.Rect(0, 0, w, h))
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			v:=(plane.data[x+w*y]-min)*scale
			gray.SetGray16(x, h-1-y, color.Gray16{Y: uint16(v*65535)})
		}
	}
	return writePNG(scaleToAspect(gray, plane), fileName)
}

// SaveResidualSlicePNG writes the central slice of a residual volume with a
// diverging blue-white-red colormap symmetric about zero.
func SaveResidualSlicePNG(img *nifti.Image, axe int, fileName string) error {
	if axe<0 || axe>2 {
		return fmt.Errorf("invalid slice axis %d, want 0, 1 or 2", axe)
	}
	plane, err:=extractSlice(img, axe)
	if err!=nil { return err }

	st:=img.Stats
	if st==nil { st=stats.NewStats(img.Data) }
	limit:=st.Max
	if -st.Min>limit { limit=-st.Min }
	if limit<=0 { limit=1 }

	blue:=colorful.Color{R: 0.12, G: 0.23, B: 0.74}
	white:=colorful.Color{R: 1, G: 1, B: 1}
	red:=colorful.Color{R: 0.84, G: 0.12, B: 0.12}

	w, h:=plane.w, plane.h
	rgba:=image.NewRGBA(image.Rect(0, 0, w, h))
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			v:=plane.data[x+w*y]/limit // -1..1
			var c colorful.Color
			if v<0 {
				c=white.BlendLab(blue, float64(-v))
			} else {
				c=white.BlendLab(red, float64(v))
			}
			r, g, b:=c.Clamped().RGB255()
			rgba.Set(x, h-1-y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return writePNG(scaleToAspect(rgba, plane), fileName)
}

// SaveHistogramPNG writes an intensity histogram of the volume with the
// given number of bins as a bar chart.
func SaveHistogramPNG(img *nifti.Image, bins int, fileName string) error {
	if bins<2 {
		return fmt.Errorf("invalid histogram bin count %d", bins)
	}
	samples:=make([]float64, len(img.Data))
	for i, v:=range img.Data {
		samples[i]=float64(v)
	}
	min, max:=floats.Min(samples), floats.Max(samples)
	if max<=min { max=min+1 }

	// stat.Histogram requires sorted samples and explicit dividers
	sort.Float64s(samples) // hot path only for diagnostics, sorting is fine
	dividers:=make([]float64, bins+1)
	floats.Span(dividers, min, max)
	dividers[bins]=max+1e-9*(max-min) // include the maximum sample
	counts:=stat.Histogram(nil, dividers, samples, nil)

	peak:=floats.Max(counts)
	if peak<=0 { peak=1 }

	const width, height, margin=512, 384, 8
	rgba:=image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	low:=colorful.Color{R: 0.17, G: 0.35, B: 0.72}
	high:=colorful.Color{R: 0.88, G: 0.32, B: 0.12}
	barW:=float64(width-2*margin)/float64(bins)
	for b:=0; b<bins; b++ {
		frac:=counts[b]/peak
		barH:=int(frac*float64(height-2*margin))
		c:=low.BlendLab(high, float64(b)/float64(bins-1))
		r, g, bl:=c.Clamped().RGB255()
		col:=color.RGBA{R: r, G: g, B: bl, A: 255}
		x0:=margin+int(float64(b)*barW)
		x1:=margin+int(float64(b+1)*barW)
		if x1<=x0 { x1=x0+1 }
		for y:=height-margin-barH; y<height-margin; y++ {
			for x:=x0; x<x1; x++ {
				rgba.Set(x, y, col)
			}
		}
	}
	return writePNG(rgba, fileName)
}

// slice2D is a central slice with in-plane voxel sizes for aspect scaling
type slice2D struct {
	data     []float32
	w, h     int
	pixW, pixH float32
}

func extractSlice(img *nifti.Image, axe int) (*slice2D, error) {
	if len(img.Naxisn)<3 {
		return nil, fmt.Errorf("need a 3D volume, have %d dimensions", len(img.Naxisn))
	}
	ax:=sliceAxes[axe]
	nx, ny, nz:=img.Naxisn[0], img.Naxisn[1], img.Naxisn[2]
	dims:=[3]int32{nx, ny, nz}
	w, h:=int(dims[ax[0]]), int(dims[ax[1]])
	center:=dims[axe]/2

	s:=&slice2D{
		data: make([]float32, w*h),
		w:    w,
		h:    h,
		pixW: img.PixDim[ax[0]],
		pixH: img.PixDim[ax[1]],
	}
	var coord [3]int32
	coord[axe]=center
	for j:=0; j<h; j++ {
		coord[ax[1]]=int32(j)
		for i:=0; i<w; i++ {
			coord[ax[0]]=int32(i)
			s.data[i+w*j]=img.Data[coord[0]+nx*(coord[1]+ny*coord[2])]
		}
	}
	return s, nil
}

// scaleToAspect resamples the slice image so pixel extents match physical
// voxel extents. Returns the input unchanged for isotropic planes.
func scaleToAspect(src image.Image, s *slice2D) image.Image {
	pw, ph:=s.pixW, s.pixH
	if pw<=0 { pw=1 }
	if ph<=0 { ph=1 }
	if pw==ph { return src }

	w, h:=s.w, s.h
	if pw>ph {
		w=int(float32(w)*pw/ph+0.5)
	} else {
		h=int(float32(h)*ph/pw+0.5)
	}
	if w<1 { w=1 }
	if h<1 { h=1 }
	dst:=image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func writePNG(img image.Image, fileName string) error {
	f, err:=os.Create(fileName)
	if err!=nil { return err }
	defer f.Close()
	return png.Encode(f, img)
}
