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
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/elyz081/niidenoise/internal/stats"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidImage marks a missing, unreadable or malformed input volume.
var ErrInvalidImage = errors.New("invalid NIfTI image")

const (
	headerSize = 348 // sizeof_hdr as required by the NIfTI-1 standard
	voxOffsetMin = 352
)

// On-disk layout of the 348-byte NIfTI-1 header. Field order and sizes must
// not change; the struct is decoded directly with encoding/binary.
type header struct {
	SizeofHdr    int32
	DataTypeUnused [10]byte
	DBNameUnused   [18]byte
	ExtentsUnused  int32
	SessionErrorUnused int16
	RegularUnused  byte
	DimInfo      byte
	Dim          [8]int16
	IntentP1     float32
	IntentP2     float32
	IntentP3     float32
	IntentCode   int16
	Datatype     int16
	Bitpix       int16
	SliceStart   int16
	PixDim       [8]float32
	VoxOffset    float32
	SclSlope     float32
	SclInter     float32
	SliceEnd     int16
	SliceCode    byte
	XyztUnits    byte
	CalMax       float32
	CalMin       float32
	SliceDuration float32
	TOffset      float32
	GlmaxUnused  int32
	GlminUnused  int32
	Descrip      [80]byte
	AuxFile      [24]byte
	QformCode    int16
	SformCode    int16
	QuaternB     float32
	QuaternC     float32
	QuaternD     float32
	QoffsetX     float32
	QoffsetY     float32
	QoffsetZ     float32
	SrowX        [4]float32
	SrowY        [4]float32
	SrowZ        [4]float32
	IntentName   [16]byte
	Magic        [4]byte
}

// Reads and validates a NIfTI volume from the file with the given name.
// Decompresses gzip if a .gz suffix is present.
func NewImageFromFile(fileName string, logWriter io.Writer) (*Image, error) {
	f, err:=os.Open(fileName)
	if err!=nil { return nil, fmt.Errorf("%w: %s", ErrInvalidImage, err.Error()) }
	defer f.Close()

	var r io.Reader=f
	if strings.HasSuffix(strings.ToLower(fileName), ".gz") {
		gz, err:=gzip.NewReader(f)
		if err!=nil { return nil, fmt.Errorf("%w: %s: %s", ErrInvalidImage, fileName, err.Error()) }
		defer gz.Close()
		r=gz
	}

	img, err:=Read(r, logWriter)
	if err!=nil { return nil, err }
	img.FileName=fileName
	return img, nil
}

// Reads and validates a NIfTI volume from the given reader.
func Read(r io.Reader, logWriter io.Writer) (*Image, error) {
	buf:=make([]byte, headerSize)
	if _, err:=io.ReadFull(r, buf); err!=nil {
		return nil, fmt.Errorf("%w: reading header: %s", ErrInvalidImage, err.Error())
	}

	// Infer the byte order from dim[0], which must be in 1..7
	var h header
	var order binary.ByteOrder=binary.LittleEndian
	if err:=binary.Read(bytes.NewReader(buf), order, &h); err!=nil {
		return nil, fmt.Errorf("%w: decoding header: %s", ErrInvalidImage, err.Error())
	}
	if h.Dim[0]<1 || h.Dim[0]>7 {
		order=binary.BigEndian
		if err:=binary.Read(bytes.NewReader(buf), order, &h); err!=nil {
			return nil, fmt.Errorf("%w: decoding header: %s", ErrInvalidImage, err.Error())
		}
	}

	if err:=h.validate(); err!=nil { return nil, err }

	// Accept trailing singleton dimensions, e.g. a 4D file with one timepoint
	naxisn:=make([]int32, 3)
	pixels:=int32(1)
	for i:=0; i<3; i++ {
		naxisn[i]=int32(h.Dim[i+1])
		pixels*=naxisn[i]
	}

	// Skip any header extensions up to the start of the voxel data
	voxOffset:=int64(h.VoxOffset)
	if voxOffset<voxOffsetMin { voxOffset=voxOffsetMin }
	if _, err:=io.CopyN(io.Discard, r, voxOffset-headerSize); err!=nil {
		return nil, fmt.Errorf("%w: skipping to voxel data: %s", ErrInvalidImage, err.Error())
	}

	data, err:=readData(r, order, &h, pixels)
	if err!=nil { return nil, err }

	img:=&Image{
		Naxisn:   naxisn,
		Pixels:   pixels,
		Data:     data,
		Affine:   affineFromHeader(&h),
		PixDim:   [3]float32{absf(h.PixDim[1]), absf(h.PixDim[2]), absf(h.PixDim[3])},
		Datatype: h.Datatype,
		Stats:    stats.NewStats(data),
	}

	fmt.Fprintf(logWriter, "Loaded %s voxel volume, datatype %d, %v\n",
		img.DimensionsToString(), img.Datatype, img.Stats)
	return img, nil
}

func (h *header) validate() error {
	if h.SizeofHdr!=headerSize {
		return fmt.Errorf("%w: header size %d, want %d", ErrInvalidImage, h.SizeofHdr, headerSize)
	}
	switch {
	case h.Magic==[4]byte{'n', '+', '1', 0}:
		// header and data in one file, the only layout this tool reads
	case h.Magic==[4]byte{'n', 'i', '1', 0}:
		return fmt.Errorf("%w: detached .hdr/.img pairs are not supported", ErrInvalidImage)
	default:
		return fmt.Errorf("%w: bad magic %q", ErrInvalidImage, h.Magic[:3])
	}
	if h.Dim[0]<3 {
		return fmt.Errorf("%w: %d-dimensional data, want a 3D volume", ErrInvalidImage, h.Dim[0])
	}
	for i:=int16(4); i<=h.Dim[0]; i++ {
		if h.Dim[i]>1 {
			return fmt.Errorf("%w: non-singleton dimension %d of size %d, want a 3D volume", ErrInvalidImage, i, h.Dim[i])
		}
	}
	pixels:=int64(1)
	for i:=1; i<=3; i++ {
		if h.Dim[i]<1 {
			return fmt.Errorf("%w: invalid dimension %d of size %d", ErrInvalidImage, i, h.Dim[i])
		}
		pixels*=int64(h.Dim[i])
	}
	if pixels>math.MaxInt32 {
		return fmt.Errorf("%w: volume of %d voxels exceeds the supported size", ErrInvalidImage, pixels)
	}
	var bits int16
	switch h.Datatype {
	case DTUint8, DTInt8:
		bits=8
	case DTInt16, DTUint16:
		bits=16
	case DTInt32, DTFloat32:
		bits=32
	case DTFloat64:
		bits=64
	default:
		return fmt.Errorf("%w: unsupported datatype code %d", ErrInvalidImage, h.Datatype)
	}
	if h.Bitpix!=bits {
		return fmt.Errorf("%w: bitpix %d inconsistent with datatype %d, want %d",
			ErrInvalidImage, h.Bitpix, h.Datatype, bits)
	}
	return nil
}

// Decodes voxel data into float32, folding the scl_slope/scl_inter scaling
// into the values so later stages see calibrated intensities.
func readData(r io.Reader, order binary.ByteOrder, h *header, pixels int32) ([]float32, error) {
	slope, inter:=h.SclSlope, h.SclInter
	if slope==0 { slope, inter=1, 0 } // per standard: slope 0 means unscaled

	bytesPerVoxel:=int(h.Bitpix)/8
	raw:=make([]byte, int(pixels)*bytesPerVoxel)
	if _, err:=io.ReadFull(r, raw); err!=nil {
		return nil, fmt.Errorf("%w: reading voxel data: %s", ErrInvalidImage, err.Error())
	}

	data:=make([]float32, pixels)
	switch h.Datatype {
	case DTUint8:
		for i:=range data {
			data[i]=float32(raw[i])*slope+inter
		}
	case DTInt8:
		for i:=range data {
			data[i]=float32(int8(raw[i]))*slope+inter
		}
	case DTInt16:
		for i:=range data {
			data[i]=float32(int16(order.Uint16(raw[i*2:])))*slope+inter
		}
	case DTUint16:
		for i:=range data {
			data[i]=float32(order.Uint16(raw[i*2:]))*slope+inter
		}
	case DTInt32:
		for i:=range data {
			data[i]=float32(int32(order.Uint32(raw[i*4:])))*slope+inter
		}
	case DTFloat32:
		for i:=range data {
			data[i]=math.Float32frombits(order.Uint32(raw[i*4:]))*slope+inter
		}
	case DTFloat64:
		for i:=range data {
			data[i]=float32(math.Float64frombits(order.Uint64(raw[i*8:])))*slope+inter
		}
	}
	return data, nil
}

// Derives the voxel-to-mm affine: sform when present, else the qform
// quaternion, else a pixdim diagonal.
func affineFromHeader(h *header) *mat.Dense {
	a:=mat.NewDense(4, 4, nil)
	a.Set(3, 3, 1)

	if h.SformCode>0 {
		for j:=0; j<4; j++ {
			a.Set(0, j, float64(h.SrowX[j]))
			a.Set(1, j, float64(h.SrowY[j]))
			a.Set(2, j, float64(h.SrowZ[j]))
		}
		return a
	}

	if h.QformCode>0 {
		b, c, d:=float64(h.QuaternB), float64(h.QuaternC), float64(h.QuaternD)
		aa:=1-b*b-c*c-d*d
		if aa<0 { aa=0 }
		q:=math.Sqrt(aa)
		qfac:=float64(h.PixDim[0])
		if qfac==0 { qfac=1 }
		dx, dy, dz:=float64(h.PixDim[1]), float64(h.PixDim[2]), float64(h.PixDim[3])*qfac

		a.Set(0, 0, (q*q+b*b-c*c-d*d)*dx)
		a.Set(0, 1, (2*b*c-2*q*d)*dy)
		a.Set(0, 2, (2*b*d+2*q*c)*dz)
		a.Set(1, 0, (2*b*c+2*q*d)*dx)
		a.Set(1, 1, (q*q+c*c-b*b-d*d)*dy)
		a.Set(1, 2, (2*c*d-2*q*b)*dz)
		a.Set(2, 0, (2*b*d-2*q*c)*dx)
		a.Set(2, 1, (2*c*d+2*q*b)*dy)
		a.Set(2, 2, (q*q+d*d-b*b-c*c)*dz)
		a.Set(0, 3, float64(h.QoffsetX))
		a.Set(1, 3, float64(h.QoffsetY))
		a.Set(2, 3, float64(h.QoffsetZ))
		return a
	}

	for i:=0; i<3; i++ {
		p:=float64(h.PixDim[i+1])
		if p==0 { p=1 }
		a.Set(i, i, p)
	}
	return a
}

func absf(x float32) float32 {
	if x<0 { return -x }
	return x
}
