package line

import (
	"bytes"
	"testing"
)

func TestRows(t *testing.T) {
	p := testProgram()
	p.SetAddress(0x100)
	p.Special(0, 4) // line 5, addr 0x100
	p.Special(2, 1) // line 6, addr 0x102
	p.SetColumn(7)
	p.NegateStmt()
	p.Special(3, 2) // line 8, addr 0x105
	p.SetFile(2)
	p.AdvanceLine(-1)
	p.Copy()
	p.EndSequence()

	dbl, err := Parse("/tmp", bytes.NewBuffer(p.Build(4)), nil, 4)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := dbl.Rows()
	if err != nil {
		t.Fatal(err)
	}

	want := []Row{
		{Address: 0x100, File: "/tmp/src/main.c", Line: 5, Column: 0, IsStmt: true},
		{Address: 0x102, File: "/tmp/src/main.c", Line: 6, Column: 0, IsStmt: true},
		{Address: 0x105, File: "/tmp/src/main.c", Line: 8, Column: 7, IsStmt: false},
		{Address: 0x105, File: "/tmp/src/util.c", Line: 7, Column: 7, IsStmt: false},
		{Address: 0x105, File: "/tmp/src/util.c", Line: 7, Column: 7, IsStmt: false, EndSeq: true},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(rows), len(want), rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestRowsMultipleSequences(t *testing.T) {
	p := testProgram()
	p.SetAddress(0x200)
	p.Special(0, 0)
	p.EndSequence()
	p.SetAddress(0x100)
	p.Special(0, 0) // state is reset between sequences
	p.EndSequence()

	dbl, err := Parse("", bytes.NewBuffer(p.Build(4)), nil, 4)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := dbl.Rows()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows: %+v", len(rows), rows)
	}
	if rows[2].Address != 0x100 || rows[2].Line != 1 || !rows[2].IsStmt {
		t.Errorf("state not reset after end of sequence: %+v", rows[2])
	}
}

func TestRowsUndeclaredFileIndex(t *testing.T) {
	p := testProgram()
	p.SetAddress(0x100)
	p.SetFile(9)
	p.Copy()
	p.EndSequence()

	dbl, err := Parse("", bytes.NewBuffer(p.Build(4)), nil, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dbl.Rows(); err != ErrMalformedLineProgram {
		t.Fatalf("expected ErrMalformedLineProgram, got %v", err)
	}
}

func TestRowsDeterministic(t *testing.T) {
	p := testProgram()
	p.SetAddress(0x40)
	p.Special(1, 1)
	p.Special(1, 1)
	p.EndSequence()

	dbl, err := Parse("", bytes.NewBuffer(p.Build(4)), nil, 4)
	if err != nil {
		t.Fatal(err)
	}
	first, err := dbl.Rows()
	if err != nil {
		t.Fatal(err)
	}
	second, err := dbl.Rows()
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("row counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("row %d differs between runs", i)
		}
	}
}
