package line

import (
	"bytes"
	"testing"

	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/dwarfbuilder"
)

func testProgram() *dwarfbuilder.LineProgram {
	return dwarfbuilder.NewLineProgram([]string{"/tmp/src"}, []string{"main.c", "util.c"})
}

func TestParsePrologue(t *testing.T) {
	p := testProgram()
	p.SetAddress(0x10)
	p.Special(0, 1)
	p.EndSequence()

	dbl, err := Parse("/tmp", bytes.NewBuffer(p.Build(4)), nil, 4)
	if err != nil {
		t.Fatal(err)
	}

	if dbl.Prologue.Version != 4 {
		t.Errorf("version = %d", dbl.Prologue.Version)
	}
	if dbl.Prologue.LineBase != dwarfbuilder.LineBase ||
		dbl.Prologue.LineRange != dwarfbuilder.LineRange ||
		dbl.Prologue.OpcodeBase != dwarfbuilder.OpcodeBase {
		t.Errorf("wrong prologue: %+v", dbl.Prologue)
	}
	if len(dbl.FileNames) != 2 {
		t.Fatalf("file table has %d entries", len(dbl.FileNames))
	}
	if dbl.FileNames[0].Path != "/tmp/src/main.c" {
		t.Errorf("file 0 path = %q", dbl.FileNames[0].Path)
	}
	if len(dbl.Instructions) != p.ProgramLen() {
		t.Errorf("instructions length = %d, want %d", len(dbl.Instructions), p.ProgramLen())
	}
}

func TestParseVersion2(t *testing.T) {
	p := testProgram()
	p.SetAddress(0x10)
	p.EndSequence()

	dbl, err := Parse("", bytes.NewBuffer(p.Build(2)), nil, 4)
	if err != nil {
		t.Fatal(err)
	}
	if dbl.Prologue.MaxOpPerInstr != 1 {
		t.Errorf("MaxOpPerInstr = %d", dbl.Prologue.MaxOpPerInstr)
	}
}

func TestParseRejectsVersion5(t *testing.T) {
	p := testProgram()
	p.EndSequence()

	if _, err := Parse("", bytes.NewBuffer(p.Build(5)), nil, 4); err != ErrMalformedLineProgram {
		t.Fatalf("expected ErrMalformedLineProgram, got %v", err)
	}
}

func TestParseTruncated(t *testing.T) {
	if _, err := Parse("", bytes.NewBuffer([]byte{0x1, 0x2}), nil, 4); err != ErrMalformedLineProgram {
		t.Fatalf("expected ErrMalformedLineProgram, got %v", err)
	}
}
