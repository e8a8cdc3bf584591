package ftdc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// BlockCompressor is the narrow buffer-to-buffer compression capability
// the core depends on. Compress's output is opaque: framing or
// concatenating it is the caller's job. Decompress fails with ErrCorrupt
// on a decoder error or when the decoded length does not equal
// expectedLen.
type BlockCompressor interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte, expectedLen int) ([]byte, error)
}

// zlibBlockCompressor implements BlockCompressor over ZLIB via
// klauspost/compress, a drop-in, allocation-lean reimplementation of the
// standard library's zlib codec.
type zlibBlockCompressor struct{}

// NewZlibBlockCompressor returns the default BlockCompressor.
func NewZlibBlockCompressor() BlockCompressor {
	return zlibBlockCompressor{}
}

func (zlibBlockCompressor) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("ftdc: zlib compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("ftdc: zlib compress: %w", err)
	}
	return buf.Bytes(), nil
}

func (zlibBlockCompressor) Decompress(src []byte, expectedLen int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("ftdc: %w: opening zlib stream: %v", ErrCorrupt, err)
	}
	defer zr.Close()

	dst := make([]byte, expectedLen)
	n, err := io.ReadFull(zr, dst)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("ftdc: %w: zlib decompress: %v", ErrCorrupt, err)
	}
	if n != expectedLen {
		return nil, fmt.Errorf("ftdc: %w: decompressed %d bytes, expected %d", ErrCorrupt, n, expectedLen)
	}

	// Confirm there is no trailing data beyond expectedLen bytes: reading
	// even one more byte means the declared uncompressed length was wrong.
	var extra [1]byte
	if m, _ := zr.Read(extra[:]); m > 0 {
		return nil, fmt.Errorf("ftdc: %w: decompressed data exceeds declared length", ErrCorrupt)
	}

	return dst, nil
}
