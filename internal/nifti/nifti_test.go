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
	"encoding/binary"
	"errors"
	"io"
	"path/filepath"
	"testing"
)

func testVolume() *Image {
	naxisn:=[]int32{4, 3, 2}
	data:=make([]float32, 4*3*2)
	for i:=range data {
		data[i]=float32(i)*0.5-3
	}
	img:=NewImageFromNaxisn(naxisn, data)
	img.Affine.Set(0, 3, -10)
	img.Affine.Set(1, 3, 20)
	img.Affine.Set(2, 3, 5.5)
	return img
}

func TestRoundTrip(t *testing.T) {
	for _, name:=range []string{"vol.nii", "vol.nii.gz"} {
		img:=testVolume()
		fileName:=filepath.Join(t.TempDir(), name)
		if err:=img.WriteFile(fileName); err!=nil {
			t.Fatalf("%s: write: %s", name, err)
		}
		got, err:=NewImageFromFile(fileName, io.Discard)
		if err!=nil {
			t.Fatalf("%s: read: %s", name, err)
		}
		if !EqualInt32Slice(got.Naxisn, img.Naxisn) {
			t.Fatalf("%s: dimensions got %v expect %v", name, got.Naxisn, img.Naxisn)
		}
		// float32 in, float32 out: values must survive exactly
		for i, v:=range img.Data {
			if got.Data[i]!=v {
				t.Fatalf("%s: voxel %d got %f expect %f", name, i, got.Data[i], v)
			}
		}
		for i:=0; i<4; i++ {
			for j:=0; j<4; j++ {
				if got.Affine.At(i, j)!=img.Affine.At(i, j) {
					t.Fatalf("%s: affine (%d,%d) got %f expect %f",
						name, i, j, got.Affine.At(i, j), img.Affine.At(i, j))
				}
			}
		}
	}
}

func TestReadScaledInt16(t *testing.T) {
	// build the raw file by round-tripping the written header and patching
	// datatype, scaling and payload
	img:=testVolume()
	var buf bytes.Buffer
	if err:=img.Write(&buf); err!=nil { t.Fatal(err) }
	raw:=buf.Bytes()

	binary.LittleEndian.PutUint16(raw[70:], uint16(DTInt16)) // datatype
	binary.LittleEndian.PutUint16(raw[72:], 16)              // bitpix
	binary.LittleEndian.PutUint32(raw[112:], 0x40000000)     // scl_slope 2.0
	binary.LittleEndian.PutUint32(raw[116:], 0x3f800000)     // scl_inter 1.0
	payload:=make([]byte, int(img.Pixels)*2)
	for i:=int32(0); i<img.Pixels; i++ {
		binary.LittleEndian.PutUint16(payload[i*2:], uint16(int16(i)))
	}
	raw=append(raw[:voxOffsetMin], payload...)

	got, err:=Read(bytes.NewReader(raw), io.Discard)
	if err!=nil { t.Fatal(err) }
	for i:=int32(0); i<img.Pixels; i++ {
		expect:=float32(i)*2+1
		if got.Data[i]!=expect {
			t.Fatalf("voxel %d got %f expect %f", i, got.Data[i], expect)
		}
	}
}

func TestReadBigEndian(t *testing.T) {
	img:=testVolume()
	h:=header{
		SizeofHdr: headerSize,
		Datatype:  DTFloat32,
		Bitpix:    32,
		VoxOffset: voxOffsetMin,
		SclSlope:  1,
		Magic:     [4]byte{'n', '+', '1', 0},
	}
	h.Dim[0]=3
	for i, naxis:=range img.Naxisn {
		h.Dim[i+1]=int16(naxis)
	}
	for i:=int16(4); i<8; i++ { h.Dim[i]=1 }
	h.PixDim=[8]float32{1, 1, 1, 1, 0, 0, 0, 0}

	var buf bytes.Buffer
	if err:=binary.Write(&buf, binary.BigEndian, &h); err!=nil { t.Fatal(err) }
	buf.Write(make([]byte, voxOffsetMin-headerSize))
	for _, v:=range img.Data {
		if err:=binary.Write(&buf, binary.BigEndian, v); err!=nil { t.Fatal(err) }
	}

	got, err:=Read(bytes.NewReader(buf.Bytes()), io.Discard)
	if err!=nil { t.Fatal(err) }
	if !EqualInt32Slice(got.Naxisn, img.Naxisn) {
		t.Fatalf("dimensions got %v expect %v", got.Naxisn, img.Naxisn)
	}
	for i, v:=range img.Data {
		if got.Data[i]!=v {
			t.Fatalf("voxel %d got %f expect %f", i, got.Data[i], v)
		}
	}
}

func TestReadBadMagic(t *testing.T) {
	img:=testVolume()
	var buf bytes.Buffer
	if err:=img.Write(&buf); err!=nil { t.Fatal(err) }
	raw:=buf.Bytes()
	copy(raw[344:], "xyz\x00")

	if _, err:=Read(bytes.NewReader(raw), io.Discard); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("got %v expect ErrInvalidImage", err)
	}
}

func TestReadDetachedHeader(t *testing.T) {
	img:=testVolume()
	var buf bytes.Buffer
	if err:=img.Write(&buf); err!=nil { t.Fatal(err) }
	raw:=buf.Bytes()
	copy(raw[344:], "ni1\x00")

	if _, err:=Read(bytes.NewReader(raw), io.Discard); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("got %v expect ErrInvalidImage", err)
	}
}

func TestReadInconsistentBitpix(t *testing.T) {
	// bitpix must match the width implied by the datatype code, a
	// contradictory header is malformed and must not be decoded
	img:=testVolume()
	var buf bytes.Buffer
	if err:=img.Write(&buf); err!=nil { t.Fatal(err) }
	raw:=buf.Bytes()

	for _, bitpix:=range []uint16{0, 8, 16} { // anything but 32 for float32
		bad:=append([]byte(nil), raw...)
		binary.LittleEndian.PutUint16(bad[72:], bitpix)
		if _, err:=Read(bytes.NewReader(bad), io.Discard); !errors.Is(err, ErrInvalidImage) {
			t.Fatalf("bitpix %d got %v expect ErrInvalidImage", bitpix, err)
		}
	}

	// same with a datatype narrower than the declared bitpix
	bad:=append([]byte(nil), raw...)
	binary.LittleEndian.PutUint16(bad[70:], uint16(DTInt16))
	if _, err:=Read(bytes.NewReader(bad), io.Discard); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("datatype int16 with bitpix 32 got %v expect ErrInvalidImage", err)
	}
}

func TestReadMissingFile(t *testing.T) {
	fileName:=filepath.Join(t.TempDir(), "nope.nii")
	if _, err:=NewImageFromFile(fileName, io.Discard); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("got %v expect ErrInvalidImage", err)
	}
}

func TestReadTruncatedPayload(t *testing.T) {
	img:=testVolume()
	var buf bytes.Buffer
	if err:=img.Write(&buf); err!=nil { t.Fatal(err) }
	raw:=buf.Bytes()

	if _, err:=Read(bytes.NewReader(raw[:len(raw)-8]), io.Discard); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("got %v expect ErrInvalidImage", err)
	}
}

func TestOutputName(t *testing.T) {
	tests:=[]struct{
		inPath   string
		method   string
		params   []string
		residual bool
		expect   string
	}{
		{"t1.nii", "gaussian", []string{"2"}, false, "t1_gaussian_2.nii"},
		{"t1.nii", "gaussian", []string{"2"}, true, "t1_gaussian_2_residual.nii"},
		{"data/t1.nii.gz", "nl_means", []string{"30", "5", "5"}, false, "t1_nl_means_30_5_5.nii.gz"},
		{"t1.NII.GZ", "median", []string{"3"}, true, "t1_median_3_residual.NII.GZ"},
	}
	for _, tc:=range tests {
		got:=OutputName("out", tc.inPath, tc.method, tc.params, tc.residual)
		expect:=filepath.Join("out", tc.expect)
		if got!=expect {
			t.Errorf("OutputName(%q) got %q expect %q", tc.inPath, got, expect)
		}
	}
}
