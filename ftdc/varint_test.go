package ftdc

import (
	"bytes"
	"errors"
	"testing"

	"go.viam.com/test"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 2, 127, 128, 129, 16383, 16384, 1 << 33, ^uint64(0)}
	for _, v := range values {
		buf := appendVarint(nil, v)
		got, err := readVarint(bytes.NewReader(buf))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, v)
	}
}

func TestVarintSingleByteForSmallValues(t *testing.T) {
	buf := appendVarint(nil, 42)
	test.That(t, len(buf), test.ShouldEqual, 1)
}

func TestVarintMaxLength(t *testing.T) {
	buf := appendVarint(nil, ^uint64(0))
	test.That(t, len(buf) <= maxVarintBytes, test.ShouldBeTrue)
}

func TestVarintTruncatedStream(t *testing.T) {
	buf := appendVarint(nil, 1<<40)
	_, err := readVarint(bytes.NewReader(buf[:len(buf)-1]))
	test.That(t, errors.Is(err, ErrMalformed), test.ShouldBeTrue)
}

func TestVarintTooManyContinuationBytes(t *testing.T) {
	buf := bytes.Repeat([]byte{0x80}, maxVarintBytes+1)
	_, err := readVarint(bytes.NewReader(buf))
	test.That(t, errors.Is(err, ErrMalformed), test.ShouldBeTrue)
}

func TestVarintAppendsToExistingBuffer(t *testing.T) {
	buf := []byte{0xff}
	buf = appendVarint(buf, 5)
	test.That(t, buf[0], test.ShouldEqual, byte(0xff))
	test.That(t, buf[1], test.ShouldEqual, byte(5))
}
