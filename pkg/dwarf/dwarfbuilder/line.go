package dwarfbuilder

import (
	"bytes"
	"encoding/binary"

	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/leb128"
)

// Prologue constants used by every line program this builder emits.
const (
	LineRange   = 14
	OpcodeBase  = 13
	MinInstrLen = 1
)

// LineBase is negative, so it is declared as a typed variable: the
// conversion to the unsigned prologue field must happen at run time.
var LineBase int8 = -5

// LineProgram assembles a single synthetic .debug_line unit.
type LineProgram struct {
	IncludeDirs []string
	Files       []string
	program     bytes.Buffer
}

// NewLineProgram returns a line program builder with the given include
// directory and file name tables.
func NewLineProgram(includeDirs, files []string) *LineProgram {
	return &LineProgram{IncludeDirs: includeDirs, Files: files}
}

// Special emits a special opcode advancing the address by addrAdvance and
// the line by lineAdvance, and appending a row to the matrix.
func (p *LineProgram) Special(addrAdvance, lineAdvance int) {
	p.program.WriteByte(byte(lineAdvance - int(LineBase) + LineRange*addrAdvance + OpcodeBase))
}

// Std emits a standard opcode with raw operand bytes.
func (p *LineProgram) Std(opcode byte, operands ...byte) {
	p.program.WriteByte(opcode)
	p.program.Write(operands)
}

// Copy emits DW_LNS_copy.
func (p *LineProgram) Copy() { p.Std(1) }

// AdvanceLine emits DW_LNS_advance_line with a signed delta.
func (p *LineProgram) AdvanceLine(delta int64) {
	p.program.WriteByte(3)
	leb128.EncodeSigned(&p.program, delta)
}

// SetFile emits DW_LNS_set_file with a 1-based file index.
func (p *LineProgram) SetFile(index uint64) {
	p.program.WriteByte(4)
	leb128.EncodeUnsigned(&p.program, index)
}

// SetColumn emits DW_LNS_set_column.
func (p *LineProgram) SetColumn(col uint64) {
	p.program.WriteByte(5)
	leb128.EncodeUnsigned(&p.program, col)
}

// NegateStmt emits DW_LNS_negate_stmt.
func (p *LineProgram) NegateStmt() { p.Std(6) }

// SetAddress emits the DW_LINE_set_address extended opcode with a wasm32
// address.
func (p *LineProgram) SetAddress(addr uint32) {
	p.program.WriteByte(0)
	leb128.EncodeUnsigned(&p.program, 5) // opcode + 4 address bytes
	p.program.WriteByte(2)
	binary.Write(&p.program, binary.LittleEndian, addr)
}

// EndSequence emits the DW_LINE_end_sequence extended opcode.
func (p *LineProgram) EndSequence() {
	p.program.WriteByte(0)
	leb128.EncodeUnsigned(&p.program, 1)
	p.program.WriteByte(1)
}

// ProgramLen returns the length in bytes of the program emitted so far.
func (p *LineProgram) ProgramLen() int {
	return p.program.Len()
}

// Build assembles the complete unit, prologue included, for the given
// DWARF version.
func (p *LineProgram) Build(version uint16) []byte {
	var hdr bytes.Buffer
	hdr.WriteByte(MinInstrLen)
	if version >= 4 {
		hdr.WriteByte(1) // max operations per instruction
	}
	hdr.WriteByte(1)              // default is_stmt
	hdr.WriteByte(byte(LineBase)) // line base
	hdr.WriteByte(LineRange)      // line range
	hdr.WriteByte(OpcodeBase)     // opcode base
	stdOpLengths := []byte{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1}
	hdr.Write(stdOpLengths[:OpcodeBase-1])
	for _, dir := range p.IncludeDirs {
		hdr.WriteString(dir)
		hdr.WriteByte(0)
	}
	hdr.WriteByte(0)
	for _, f := range p.Files {
		hdr.WriteString(f)
		hdr.WriteByte(0)
		leb128.EncodeUnsigned(&hdr, 1) // dir index
		leb128.EncodeUnsigned(&hdr, 0) // mtime
		leb128.EncodeUnsigned(&hdr, 0) // length
	}
	hdr.WriteByte(0)

	var unit bytes.Buffer
	binary.Write(&unit, binary.LittleEndian, uint32(2+4+hdr.Len()+p.program.Len()))
	binary.Write(&unit, binary.LittleEndian, version)
	binary.Write(&unit, binary.LittleEndian, uint32(hdr.Len()))
	unit.Write(hdr.Bytes())
	unit.Write(p.program.Bytes())
	return unit.Bytes()
}
