package dwarfbuilder

import "testing"

// The line base is negative and must round-trip through the unsigned
// prologue field as its two's complement byte.
func TestLineProgramPrologue(t *testing.T) {
	lp := NewLineProgram([]string{"/tmp"}, []string{"a.c"})
	lp.SetAddress(0x10)
	lp.EndSequence()
	unit := lp.Build(4)

	// skip unit length, version and header length
	hdr := unit[4+2+4:]
	want := []byte{MinInstrLen, 1, 1, 0xfb, LineRange, OpcodeBase}
	for i := range want {
		if hdr[i] != want[i] {
			t.Errorf("prologue byte %d = %#x, want %#x", i, hdr[i], want[i])
		}
	}
	if int8(hdr[3]) != LineBase {
		t.Errorf("line base = %d, want %d", int8(hdr[3]), LineBase)
	}
}

func TestSpecialOpcodeEncoding(t *testing.T) {
	lp := NewLineProgram(nil, nil)
	lp.Special(0x08, 1)
	unit := lp.Build(4)

	opcode := unit[len(unit)-1]
	// lineAdvance - lineBase + lineRange*addrAdvance + opcodeBase
	if want := byte(1 + 5 + 14*8 + 13); opcode != want {
		t.Errorf("special opcode = %#x, want %#x", opcode, want)
	}
}
