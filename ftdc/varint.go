package ftdc

import (
	"fmt"
	"io"
)

// maxVarintBytes is the longest an encoded VarInt can legally be: ten
// 7-bit groups cover all 64 bits.
const maxVarintBytes = 10

// appendVarint appends the unsigned 64-bit little-endian variable-length
// encoding of v to buf and returns the extended slice. Seven bits are
// emitted per byte, low-order first; the high bit of each byte but the
// last is set to signal that another byte follows.
func appendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// readVarint decodes one VarInt from r. It fails with ErrMalformed if the
// stream ends before a terminating byte is seen, or if the tenth byte
// still has its continuation bit set (the encoding is never longer than
// ten bytes).
func readVarint(r io.ByteReader) (uint64, error) {
	var v uint64
	for i := 0; i < maxVarintBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("ftdc: %w: stream ended mid-integer: %v", ErrMalformed, err)
		}
		v |= uint64(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("ftdc: %w: encoding longer than %d bytes", ErrMalformed, maxVarintBytes)
}
