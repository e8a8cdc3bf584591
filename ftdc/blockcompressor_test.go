package ftdc

import (
	"bytes"
	"errors"
	"testing"

	"go.viam.com/test"
)

func TestZlibBlockCompressorRoundTrip(t *testing.T) {
	bc := NewZlibBlockCompressor()
	src := bytes.Repeat([]byte("ftdc-metric-payload"), 50)

	compressed, err := bc.Compress(src)
	test.That(t, err, test.ShouldBeNil)

	decompressed, err := bc.Decompress(compressed, len(src))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decompressed, test.ShouldResemble, src)
}

func TestZlibBlockCompressorEmptyInput(t *testing.T) {
	bc := NewZlibBlockCompressor()
	compressed, err := bc.Compress(nil)
	test.That(t, err, test.ShouldBeNil)

	decompressed, err := bc.Decompress(compressed, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(decompressed), test.ShouldEqual, 0)
}

func TestZlibBlockCompressorWrongExpectedLength(t *testing.T) {
	bc := NewZlibBlockCompressor()
	src := []byte("some payload bytes")

	compressed, err := bc.Compress(src)
	test.That(t, err, test.ShouldBeNil)

	_, err = bc.Decompress(compressed, len(src)+10)
	test.That(t, errors.Is(err, ErrCorrupt), test.ShouldBeTrue)

	_, err = bc.Decompress(compressed, len(src)-1)
	test.That(t, errors.Is(err, ErrCorrupt), test.ShouldBeTrue)
}

func TestZlibBlockCompressorMalformedStream(t *testing.T) {
	bc := NewZlibBlockCompressor()
	_, err := bc.Decompress([]byte{0x00, 0x01, 0x02}, 10)
	test.That(t, errors.Is(err, ErrCorrupt), test.ShouldBeTrue)
}
