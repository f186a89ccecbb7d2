package leb128

import (
	"bytes"
	"testing"
)

func TestDecodeUnsigned(t *testing.T) {
	for _, tc := range []struct {
		in   []byte
		want uint64
		len  uint32
	}{
		{[]byte{0x00}, 0, 1},
		{[]byte{0x7f}, 0x7f, 1},
		{[]byte{0x80, 0x01}, 0x80, 2},
		{[]byte{0xe5, 0x8e, 0x26}, 624485, 3},
	} {
		got, n := DecodeUnsigned(bytes.NewBuffer(tc.in))
		if got != tc.want || n != tc.len {
			t.Errorf("DecodeUnsigned(% x) = %d (%d bytes), want %d (%d bytes)", tc.in, got, n, tc.want, tc.len)
		}
	}
}

func TestDecodeSigned(t *testing.T) {
	for _, tc := range []struct {
		in   []byte
		want int64
		len  uint32
	}{
		{[]byte{0x02}, 2, 1},
		{[]byte{0x7e}, -2, 1},
		{[]byte{0x7b}, -5, 1},
		{[]byte{0x9b, 0xf1, 0x59}, -624485, 3},
	} {
		got, n := DecodeSigned(bytes.NewBuffer(tc.in))
		if got != tc.want || n != tc.len {
			t.Errorf("DecodeSigned(% x) = %d (%d bytes), want %d (%d bytes)", tc.in, got, n, tc.want, tc.len)
		}
	}
}

func TestDecodeEmpty(t *testing.T) {
	if _, n := DecodeUnsigned(bytes.NewBuffer(nil)); n != 0 {
		t.Errorf("ULEB length on empty input = %d", n)
	}
	if _, n := DecodeSigned(bytes.NewBuffer(nil)); n != 0 {
		t.Errorf("SLEB length on empty input = %d", n)
	}
}
