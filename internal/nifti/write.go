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


package nifti

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

const writeBufLen=16*1024 // output buffer length for voxel payload batches

// Writes an in-memory volume to a file with the given name, as float32
// NIfTI-1 with the image's affine stored as sform. Compresses with gzip if
// the name carries a .gz suffix. Creates/overwrites the file if necessary
func (img *Image) WriteFile(fileName string) error {
	f, err:=os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err!=nil { return err }
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(fileName), ".gz") {
		gz:=gzip.NewWriter(f)
		if err:=img.Write(gz); err!=nil {
			gz.Close()
			return err
		}
		return gz.Close()
	}
	return img.Write(f)
}

// Writes an in-memory volume to an io.Writer.
func (img *Image) Write(w io.Writer) error {
	h:=header{
		SizeofHdr: headerSize,
		Datatype:  DTFloat32,
		Bitpix:    32,
		VoxOffset: voxOffsetMin,
		SclSlope:  1,
		SformCode: 1,
		Magic:     [4]byte{'n', '+', '1', 0},
	}
	h.Dim[0]=3
	for i, naxis:=range img.Naxisn {
		h.Dim[i+1]=int16(naxis)
	}
	for i:=int16(4); i<8; i++ {
		h.Dim[i]=1
	}
	h.PixDim[0]=1
	for i, p:=range img.PixDim {
		h.PixDim[i+1]=p
	}
	for j:=0; j<4; j++ {
		h.SrowX[j]=float32(img.Affine.At(0, j))
		h.SrowY[j]=float32(img.Affine.At(1, j))
		h.SrowZ[j]=float32(img.Affine.At(2, j))
	}
	copy(h.Descrip[:], "niidenoise")

	bw:=bufio.NewWriter(w)
	if err:=binary.Write(bw, binary.LittleEndian, &h); err!=nil { return err }
	// pad the header block to vox_offset
	if _, err:=bw.Write(make([]byte, voxOffsetMin-headerSize)); err!=nil { return err }
	if err:=writeFloat32Array(bw, img.Data); err!=nil { return err }
	return bw.Flush()
}

// Writes voxel payload data in little-endian batches, replacing NaNs with
// zeros for compatibility with other software
func writeFloat32Array(w io.Writer, data []float32) error {
	buf:=make([]byte, writeBufLen)

	for block:=0; block<len(data); block+=writeBufLen>>2 {
		size:=len(data)-block
		if size>writeBufLen>>2 { size=writeBufLen>>2 }

		for offset:=0; offset<size; offset++ {
			d:=data[block+offset]
			if math.IsNaN(float64(d)) { d=0 }
			binary.LittleEndian.PutUint32(buf[offset<<2:], math.Float32bits(d))
		}
		if _, err:=w.Write(buf[:size<<2]); err!=nil { return err }
	}
	return nil
}

// Derives the output file name for a result volume: the input base name,
// the method name, its parameter values, and a residual marker when
// applicable, joined with underscores and keeping the input extension.
// E.g. OutputName("out", "t1.nii.gz", "gaussian", []string{"2"}, true)
// yields "out/t1_gaussian_2_residual.nii.gz".
func OutputName(outputDir, inPath, method string, params []string, residual bool) string {
	base:=filepath.Base(inPath)
	ext:=filepath.Ext(base)
	if strings.EqualFold(ext, ".gz") {
		ext=filepath.Ext(strings.TrimSuffix(base, ext))+ext
	}
	parts:=append([]string{strings.TrimSuffix(base, ext), method}, params...)
	if residual {
		parts=append(parts, "residual")
	}
	return filepath.Join(outputDir, strings.Join(parts, "_")+ext)
}
