package leb128

import (
	"io"
)

// Reader is an io.ByteReader that also knows how many bytes are left.
// bytes.Buffer and bytes.Reader both satisfy it.
type Reader interface {
	io.ByteReader
	io.Reader
	Len() int
}

// DecodeUnsigned reads one ULEB128 number from buf and returns it with the
// number of bytes consumed. Empty input returns length 0.
func DecodeUnsigned(buf Reader) (uint64, uint32) {
	var (
		result uint64
		shift  uint64
		length uint32
	)

	if buf.Len() == 0 {
		return 0, 0
	}

	for {
		b, err := buf.ReadByte()
		if err != nil {
			panic("truncated ULEB128 number")
		}
		length++

		result |= uint64((uint(b) & 0x7f) << shift)

		// the high bit marks a continuation byte
		if b&0x80 == 0 {
			break
		}

		shift += 7
	}

	return result, length
}

// DecodeSigned reads one SLEB128 number from buf and returns it with the
// number of bytes consumed. Empty input returns length 0.
func DecodeSigned(buf Reader) (int64, uint32) {
	var (
		b      byte
		err    error
		result int64
		shift  uint64
		length uint32
	)

	if buf.Len() == 0 {
		return 0, 0
	}

	for {
		b, err = buf.ReadByte()
		if err != nil {
			panic("truncated SLEB128 number")
		}
		length++

		result |= (int64(b) & 0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}

	if (shift < 8*uint64(length)) && (b&0x40 > 0) {
		result |= -(1 << shift)
	}

	return result, length
}
