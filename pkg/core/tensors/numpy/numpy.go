// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package numpy reads and writes tensors in NumPy's npy and npz file formats, so pooling inputs and results can
// be exchanged with Python tooling.
//
// Only little-endian data is supported. BFloat16 has no standard npy dtype and is not supported.
package numpy

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pooling/pkg/core/shapes"
	"github.com/gomlx/pooling/pkg/core/tensors"
	"github.com/pkg/errors"
)

const magic = "\x93NUMPY"

var (
	reDescr   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	reFortran = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	reShape   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// npyDTypes maps the npy descr (without the byte order) to the dtype.
var npyDTypes = map[string]dtypes.DType{
	"b1":  dtypes.Bool,
	"i1":  dtypes.Int8,
	"u1":  dtypes.Uint8,
	"i2":  dtypes.Int16,
	"u2":  dtypes.Uint16,
	"i4":  dtypes.Int32,
	"u4":  dtypes.Uint32,
	"i8":  dtypes.Int64,
	"u8":  dtypes.Uint64,
	"f2":  dtypes.Float16,
	"f4":  dtypes.Float32,
	"f8":  dtypes.Float64,
	"c8":  dtypes.C64,
	"c16": dtypes.C128,
}

// FromNpyFile reads a .npy file.
func FromNpyFile(filePath string) (*tensors.Tensor, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open .npy file %q", filePath)
	}
	defer func() { _ = file.Close() }()
	t, err := FromNpyReader(file)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %q", filePath)
	}
	return t, nil
}

// FromNpyReader reads a tensor in .npy format from r.
func FromNpyReader(r io.Reader) (*tensors.Tensor, error) {
	preamble := make([]byte, len(magic)+2)
	if _, err := io.ReadFull(r, preamble); err != nil {
		return nil, errors.Wrapf(err, "failed to read .npy preamble")
	}
	if string(preamble[:len(magic)]) != magic {
		return nil, errors.Errorf("invalid .npy file format: magic string mismatch")
	}
	var headerLen int
	switch major := preamble[len(magic)]; major {
	case 1:
		var lenBytes [2]byte
		if _, err := io.ReadFull(r, lenBytes[:]); err != nil {
			return nil, errors.Wrapf(err, "failed to read header length")
		}
		headerLen = int(binary.LittleEndian.Uint16(lenBytes[:]))
	case 2, 3:
		var lenBytes [4]byte
		if _, err := io.ReadFull(r, lenBytes[:]); err != nil {
			return nil, errors.Wrapf(err, "failed to read header length")
		}
		headerLen = int(binary.LittleEndian.Uint32(lenBytes[:]))
	default:
		return nil, errors.Errorf("unsupported .npy version %d.%d", major, preamble[len(magic)+1])
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errors.Wrapf(err, "failed to read header")
	}
	descr, dims, fortranOrder, err := parseHeader(string(header))
	if err != nil {
		return nil, err
	}
	dtype, err := fromDescr(descr)
	if err != nil {
		return nil, err
	}
	for _, dim := range dims {
		if dim <= 0 {
			return nil, errors.Errorf("empty .npy arrays (shape %v) are not supported", dims)
		}
	}

	t := tensors.FromShape(shapes.Make(dtype, dims...))
	accessErr := t.MutableBytes(func(data []byte) {
		if !fortranOrder || len(dims) <= 1 {
			_, err = io.ReadFull(r, data)
			return
		}
		fortranData := make([]byte, len(data))
		if _, err = io.ReadFull(r, fortranData); err != nil {
			return
		}
		fortranToC(t.Shape(), fortranData, data)
	})
	if accessErr != nil {
		return nil, accessErr
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s data", t.Shape())
	}
	return t, nil
}

// fortranToC copies column-major (Fortran order) data to row-major (C order).
func fortranToC(shape shapes.Shape, fortranData, cData []byte) {
	elementSize := int(shape.DType.Memory())
	dims := shape.Dimensions
	fortranStrides := make([]int, len(dims))
	stride := 1
	for axis, dim := range dims {
		fortranStrides[axis] = stride
		stride *= dim
	}
	for cIdx, indices := range shape.Iter() {
		fortranIdx := 0
		for axis, idx := range indices {
			fortranIdx += idx * fortranStrides[axis]
		}
		copy(cData[cIdx*elementSize:(cIdx+1)*elementSize], fortranData[fortranIdx*elementSize:(fortranIdx+1)*elementSize])
	}
}

// parseHeader extracts the dtype description, the shape and the order from the .npy header, a Python dict
// literal like "{'descr': '<f4', 'fortran_order': False, 'shape': (1, 2, 3), }".
func parseHeader(header string) (descr string, dims []int, fortranOrder bool, err error) {
	m := reDescr.FindStringSubmatch(header)
	if m == nil {
		err = errors.Errorf("'descr' not found in .npy header %q", header)
		return
	}
	descr = m[1]
	m = reFortran.FindStringSubmatch(header)
	if m == nil {
		err = errors.Errorf("'fortran_order' not found in .npy header %q", header)
		return
	}
	fortranOrder = m[1] == "True"
	m = reShape.FindStringSubmatch(header)
	if m == nil {
		err = errors.Errorf("'shape' not found in .npy header %q", header)
		return
	}
	dims = []int{}
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			// Trailing comma, as in "(10,)", or a scalar "()".
			continue
		}
		var dim int
		dim, err = strconv.Atoi(part)
		if err != nil {
			err = errors.Wrapf(err, "invalid dimension %q in .npy header %q", part, header)
			return
		}
		dims = append(dims, dim)
	}
	return
}

func fromDescr(descr string) (dtypes.DType, error) {
	if descr == "?" {
		return dtypes.Bool, nil
	}
	if strings.HasPrefix(descr, ">") {
		return dtypes.InvalidDType, errors.Errorf("big-endian .npy dtype %q is not supported", descr)
	}
	dtype, found := npyDTypes[strings.TrimLeft(descr, "<=|")]
	if !found {
		return dtypes.InvalidDType, errors.Errorf("unsupported .npy dtype %q", descr)
	}
	return dtype, nil
}

func toDescr(dtype dtypes.DType) (string, error) {
	if dtype == dtypes.Bool {
		return "|b1", nil
	}
	for descr, npyDType := range npyDTypes {
		if npyDType == dtype {
			if descr[1:] == "1" {
				return "|" + descr, nil
			}
			return "<" + descr, nil
		}
	}
	return "", errors.Errorf("dtype %s can't be stored in .npy format", dtype)
}

// ToNpyWriter writes the tensor to w in .npy (version 1.0) format.
func ToNpyWriter(t *tensors.Tensor, w io.Writer) error {
	shape := t.Shape()
	descr, err := toDescr(shape.DType)
	if err != nil {
		return err
	}
	dimsStr := make([]string, shape.Rank())
	for axis, dim := range shape.Dimensions {
		dimsStr[axis] = strconv.Itoa(dim)
	}
	shapeTuple := "(" + strings.Join(dimsStr, ", ") + ")"
	if shape.Rank() == 1 {
		shapeTuple = fmt.Sprintf("(%d,)", shape.Dimensions[0])
	}

	// The preamble (magic, version and header length: 10 bytes) plus the header must be a multiple of 64 bytes,
	// and the header ends with a newline.
	var header bytes.Buffer
	_, _ = fmt.Fprintf(&header, "{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, shapeTuple)
	for (10+header.Len()+1)%64 != 0 {
		header.WriteByte(' ')
	}
	header.WriteByte('\n')

	var preamble bytes.Buffer
	preamble.WriteString(magic)
	preamble.Write([]byte{1, 0})
	_ = binary.Write(&preamble, binary.LittleEndian, uint16(header.Len()))
	if _, err = w.Write(preamble.Bytes()); err != nil {
		return errors.Wrapf(err, "failed to write .npy preamble")
	}
	if _, err = w.Write(header.Bytes()); err != nil {
		return errors.Wrapf(err, "failed to write .npy header")
	}
	var writeErr error
	err = t.ConstBytes(func(data []byte) {
		_, writeErr = w.Write(data)
	})
	if err != nil {
		return err
	}
	return errors.Wrapf(writeErr, "failed to write %s data", shape)
}

// ToNpyFile writes the tensor to a .npy file.
func ToNpyFile(t *tensors.Tensor, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create .npy file %q", filePath)
	}
	if err = ToNpyWriter(t, file); err != nil {
		_ = file.Close()
		return err
	}
	return errors.Wrapf(file.Close(), "failed to close %q", filePath)
}

// ToNpzWriter writes the named tensors as a .npz (zip) archive to w. Nil tensors are skipped.
func ToNpzWriter(namedTensors map[string]*tensors.Tensor, w io.Writer) error {
	zipWriter := zip.NewWriter(w)
	for name, t := range namedTensors {
		if t == nil {
			continue
		}
		fileWriter, err := zipWriter.Create(name + ".npy")
		if err != nil {
			return errors.Wrapf(err, "failed to create %q in .npz archive", name+".npy")
		}
		if err = ToNpyWriter(t, fileWriter); err != nil {
			return errors.WithMessagef(err, "writing tensor %q to .npz archive", name)
		}
	}
	return errors.Wrapf(zipWriter.Close(), "failed to close .npz archive")
}

// ToNpzFile writes the named tensors to a .npz file.
func ToNpzFile(namedTensors map[string]*tensors.Tensor, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create .npz file %q", filePath)
	}
	if err = ToNpzWriter(namedTensors, file); err != nil {
		_ = file.Close()
		return err
	}
	return errors.Wrapf(file.Close(), "failed to close %q", filePath)
}

// FromNpzFile reads all tensors of a .npz file, indexed by their names.
func FromNpzFile(filePath string) (map[string]*tensors.Tensor, error) {
	zipReader, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open .npz file %q", filePath)
	}
	defer func() { _ = zipReader.Close() }()
	return fromNpzReader(&zipReader.Reader)
}

// FromNpzReader reads all tensors of a .npz archive, indexed by their names.
func FromNpzReader(r io.ReaderAt, size int64) (map[string]*tensors.Tensor, error) {
	zipReader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read .npz archive")
	}
	return fromNpzReader(zipReader)
}

func fromNpzReader(zipReader *zip.Reader) (map[string]*tensors.Tensor, error) {
	results := make(map[string]*tensors.Tensor)
	for _, f := range zipReader.File {
		cleanPath := path.Clean(f.Name)
		if path.IsAbs(cleanPath) || strings.HasPrefix(cleanPath, "..") {
			return nil, errors.Errorf("invalid path %q in .npz archive", f.Name)
		}
		if !strings.HasSuffix(f.Name, ".npy") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %q in .npz archive", f.Name)
		}
		t, err := FromNpyReader(rc)
		_ = rc.Close()
		if err != nil {
			return nil, errors.WithMessagef(err, "reading %q from .npz archive", f.Name)
		}
		results[strings.TrimSuffix(cleanPath, ".npy")] = t
	}
	return results, nil
}
