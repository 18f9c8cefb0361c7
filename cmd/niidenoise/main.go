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


package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/elyz081/niidenoise/internal/denoise"
	"github.com/elyz081/niidenoise/internal/nifti"
	"github.com/elyz081/niidenoise/internal/stats"
	"github.com/elyz081/niidenoise/internal/view"
)

const version="1.0"

var outputDir=flag.String("output_dir", ".", "directory for denoised, residual and view outputs")
var axe=flag.Int("axe", 0, "slicing axis for view images (0=sagittal, 1=axial, 2=coronal)")
var sigma=flag.Float64("sigma", 1.0, "gaussian standard deviation in voxels")
var patchSize=flag.Int("patch_size", 5, "window size for nl_means, median and bilateral")
var patchDistance=flag.Int("patch_distance", 5, "nl_means search distance in voxels")
var h=flag.Float64("h", 30, "nl_means filter strength")
var sigmaColor=flag.Float64("sigma_color", 0, "bilateral intensity sigma (0 estimates from the image)")
var sigmaSpatial=flag.Float64("sigma_spatial", 1.0, "bilateral spatial sigma in voxels")
var n=flag.Int("n", 10, "anisotropic diffusion iterations")
var kappa=flag.Float64("kappa", 50, "anisotropic diffusion conductance threshold")
var gamma=flag.Float64("gamma", 0.1, "anisotropic diffusion integration step")
var preset=flag.String("preset", "", "YAML file with filter parameter presets")
var logFile=flag.String("log", "", "duplicate console output into this file")
var cpuprofile=flag.String("cpuprofile", "", "write CPU profile to file")

func main() {
	flag.Usage=func() {
		fmt.Fprintf(os.Stderr, `niidenoise v%s -- denoise 3D NIfTI volumes

Usage: niidenoise [-flags] in_image denoise_method

Denoise methods:
   0   nl_means              (h, patch_size, patch_distance)
   1   gaussian              (sigma)
   3   median                (patch_size)
   4   bilateral             (patch_size, sigma_color, sigma_spatial)
   5   anisotropic_diffusion (n, kappa, gamma)

The input is reoriented to canonical RSA before filtering. Outputs are the
denoised volume, the residual (original minus denoised) volume, and PNG
slice and histogram views.

Flags:
`, version)
		flag.PrintDefaults()
	}
	flag.Parse()

	logWriter:=io.Writer(os.Stdout)
	if *logFile!="" {
		f, err:=os.Create(*logFile)
		if err!=nil {
			fmt.Fprintf(os.Stderr, "Error creating log file: %s\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logWriter=io.MultiWriter(os.Stdout, f)
	}

	args:=flag.Args()
	if len(args)!=2 {
		flag.Usage()
		os.Exit(2)
	}
	inImage:=args[0]
	method, err:=strconv.Atoi(args[1])
	if err!=nil {
		fmt.Fprintf(logWriter, "Error: invalid denoise method %q: %s\n", args[1], err)
		os.Exit(2)
	}

	if *cpuprofile!="" {
		f, err:=os.Create(*cpuprofile)
		if err!=nil {
			fmt.Fprintf(logWriter, "Error creating CPU profile: %s\n", err)
			os.Exit(1)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	opts:=denoise.DefaultOptions()
	if *preset!="" {
		opts, err=denoise.LoadOptions(*preset)
		if err!=nil {
			fmt.Fprintf(logWriter, "Error: %s\n", err)
			os.Exit(1)
		}
	}
	applyFlagOverrides(&opts)

	req, err:=denoise.NewRequest(method, opts)
	if err!=nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err)
		os.Exit(1)
	}

	img, err:=nifti.NewImageFromFile(inImage, logWriter)
	if err!=nil {
		fmt.Fprintf(logWriter, "Error loading %s: %s\n", inImage, err)
		os.Exit(1)
	}
	img=nifti.ReorientRSA(img)
	img.Stats=stats.NewStats(img.Data)
	fmt.Fprintf(logWriter, "Loaded %s [%s] %s\n", inImage, img.DimensionsToString(), img.Stats)

	c:=denoise.NewContext(logWriter)
	start:=time.Now()
	denoised, err:=denoise.Apply(c, req, img)
	if err!=nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(logWriter, "Method: %s, Execution Time: %.4f seconds\n",
		req.MethodName(), time.Since(start).Seconds())

	residual, err:=denoise.Residual(img, denoised)
	if err!=nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err)
		os.Exit(1)
	}
	denoised.Stats=stats.NewStats(denoised.Data)
	residual.Stats=stats.NewStats(residual.Data)

	denoisedName:=nifti.OutputName(*outputDir, inImage, req.MethodName(), req.Params(), false)
	residualName:=nifti.OutputName(*outputDir, inImage, req.MethodName(), req.Params(), true)

	// diagnostic views are best effort, a failed render must not lose the run
	if err:=view.SaveSlicePNG(denoised, *axe, pngName(denoisedName, "slice")); err!=nil {
		fmt.Fprintf(logWriter, "Warning: slice view failed: %s\n", err)
	}
	if err:=view.SaveResidualSlicePNG(residual, *axe, pngName(residualName, "slice")); err!=nil {
		fmt.Fprintf(logWriter, "Warning: residual view failed: %s\n", err)
	}
	if err:=view.SaveHistogramPNG(denoised, 256, pngName(denoisedName, "hist")); err!=nil {
		fmt.Fprintf(logWriter, "Warning: histogram view failed: %s\n", err)
	}
	if err:=view.SaveHistogramPNG(residual, 256, pngName(residualName, "hist")); err!=nil {
		fmt.Fprintf(logWriter, "Warning: residual histogram view failed: %s\n", err)
	}

	if err:=denoised.WriteFile(denoisedName); err!=nil {
		fmt.Fprintf(logWriter, "Error writing %s: %s\n", denoisedName, err)
		os.Exit(1)
	}
	fmt.Fprintf(logWriter, "Wrote %s\n", denoisedName)
	if err:=residual.WriteFile(residualName); err!=nil {
		fmt.Fprintf(logWriter, "Error writing %s: %s\n", residualName, err)
		os.Exit(1)
	}
	fmt.Fprintf(logWriter, "Wrote %s\n", residualName)
}

// Command line flags the user actually set beat preset file values
func applyFlagOverrides(o *denoise.Options) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sigma":
			o.Sigma=*sigma
		case "patch_size":
			o.PatchSize=*patchSize
		case "patch_distance":
			o.PatchDistance=*patchDistance
		case "h":
			o.H=*h
		case "sigma_color":
			o.SigmaColor=*sigmaColor
		case "sigma_spatial":
			o.SigmaSpatial=*sigmaSpatial
		case "n":
			o.Iterations=*n
		case "kappa":
			o.Kappa=*kappa
		case "gamma":
			o.Gamma=*gamma
		}
	})
}

// pngName derives a view file name from a NIfTI output name, replacing the
// .nii or .nii.gz extension with _<kind>.png
func pngName(niiName, kind string) string {
	base:=strings.TrimSuffix(niiName, ".gz")
	base=strings.TrimSuffix(base, ".nii")
	return base+"_"+kind+".png"
}
