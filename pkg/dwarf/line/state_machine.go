package line

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/leb128"
	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/util"
)

// Row is one row of the line number matrix. EndSeq rows close the address
// range of the preceding rows of the sequence and are not queryable targets
// themselves.
type Row struct {
	Address uint64
	File    string
	Line    int
	Column  uint
	IsStmt  bool
	EndSeq  bool
}

type stateMachine struct {
	dbl     *DebugLineInfo
	file    string
	line    int
	address uint64
	column  uint
	isStmt  bool
	isa     uint64
	endSeq  bool
	// valid is true if the current value of the state machine should be
	// appended to the matrix (set by special opcodes, DW_LNS_copy and
	// DW_LINE_end_sequence)
	valid bool

	badFile bool

	buf     *bytes.Buffer
	opcodes []opcodefn

	definedFiles []*FileEntry // files defined with DW_LINE_define_file
}

type opcodefn func(*stateMachine, *bytes.Buffer)

// Standard opcodes
const (
	_DW_LNS_copy             = 1
	_DW_LNS_advance_pc       = 2
	_DW_LNS_advance_line     = 3
	_DW_LNS_set_file         = 4
	_DW_LNS_set_column       = 5
	_DW_LNS_negate_stmt      = 6
	_DW_LNS_set_basic_block  = 7
	_DW_LNS_const_add_pc     = 8
	_DW_LNS_fixed_advance_pc = 9
	_DW_LNS_prologue_end     = 10
	_DW_LNS_epilogue_begin   = 11
	_DW_LNS_set_isa          = 12
)

// Extended opcodes
const (
	_DW_LINE_end_sequence = 1
	_DW_LINE_set_address  = 2
	_DW_LINE_define_file  = 3
)

var standardopcodes = map[byte]opcodefn{
	_DW_LNS_copy:             copyfn,
	_DW_LNS_advance_pc:       advancepc,
	_DW_LNS_advance_line:     advanceline,
	_DW_LNS_set_file:         setfile,
	_DW_LNS_set_column:       setcolumn,
	_DW_LNS_negate_stmt:      negatestmt,
	_DW_LNS_set_basic_block:  setbasicblock,
	_DW_LNS_const_add_pc:     constaddpc,
	_DW_LNS_fixed_advance_pc: fixedadvancepc,
	_DW_LNS_prologue_end:     prologueend,
	_DW_LNS_epilogue_begin:   epiloguebegin,
	_DW_LNS_set_isa:          setisa,
}

var extendedopcodes = map[byte]opcodefn{
	_DW_LINE_end_sequence: endsequence,
	_DW_LINE_set_address:  setaddress,
	_DW_LINE_define_file:  definefile,
}

func newStateMachine(dbl *DebugLineInfo, instructions []byte) *stateMachine {
	opcodes := make([]opcodefn, len(standardopcodes)+1)
	opcodes[0] = execExtendedOpcode
	for op := range standardopcodes {
		opcodes[op] = standardopcodes[op]
	}
	sm := &stateMachine{
		dbl:     dbl,
		line:    1,
		buf:     bytes.NewBuffer(instructions),
		opcodes: opcodes,
		isStmt:  dbl.Prologue.InitialIsStmt == uint8(1),
	}
	if len(dbl.FileNames) > 0 {
		sm.file = dbl.FileNames[0].Path
	}
	return sm
}

// Rows executes the line number program to completion and returns every row
// of the resulting matrix, in program order. A reference to an undeclared
// file index aborts with ErrMalformedLineProgram.
func (dbl *DebugLineInfo) Rows() ([]Row, error) {
	var (
		rows []Row
		sm   = newStateMachine(dbl, dbl.Instructions)
	)

	for {
		if err := sm.next(); err != nil {
			if err != io.EOF {
				dbl.Logf("line program error: %v", err)
				return nil, ErrMalformedLineProgram
			}
			break
		}
		if sm.badFile {
			return nil, ErrMalformedLineProgram
		}
		if sm.valid {
			rows = append(rows, Row{
				Address: sm.address,
				File:    sm.file,
				Line:    sm.line,
				Column:  sm.column,
				IsStmt:  sm.isStmt,
				EndSeq:  sm.endSeq,
			})
		}
	}
	return rows, nil
}

func (sm *stateMachine) next() error {
	sm.valid = false
	if sm.endSeq {
		// reset to the initial state for the next sequence
		sm.endSeq = false
		sm.address = 0
		if len(sm.dbl.FileNames) > 0 {
			sm.file = sm.dbl.FileNames[0].Path
		}
		sm.line = 1
		sm.column = 0
		sm.isa = 0
		sm.isStmt = sm.dbl.Prologue.InitialIsStmt == uint8(1)
	}
	b, err := sm.buf.ReadByte()
	if err != nil {
		return err
	}
	if b < sm.dbl.Prologue.OpcodeBase {
		if int(b) < len(sm.opcodes) {
			sm.opcodes[b](sm, sm.buf)
		} else {
			// unimplemented standard opcode, read the number of arguments
			// specified in the prologue and do nothing with them
			opnum := sm.dbl.Prologue.StdOpLengths[b-1]
			for i := 0; i < int(opnum); i++ {
				leb128.DecodeSigned(sm.buf)
			}
			sm.dbl.Logf("unknown opcode %d(0x%x), %d arguments, file %s, line %d, address 0x%x", b, b, opnum, sm.file, sm.line, sm.address)
		}
	} else {
		execSpecialOpcode(sm, b)
	}
	return nil
}

func execSpecialOpcode(sm *stateMachine, instr byte) {
	decoded := instr - sm.dbl.Prologue.OpcodeBase

	sm.line += int(sm.dbl.Prologue.LineBase + int8(decoded%sm.dbl.Prologue.LineRange))
	sm.address += uint64(decoded/sm.dbl.Prologue.LineRange) * uint64(sm.dbl.Prologue.MinInstrLength)
	sm.valid = true
}

func execExtendedOpcode(sm *stateMachine, buf *bytes.Buffer) {
	_, _ = leb128.DecodeUnsigned(buf)
	b, _ := buf.ReadByte()
	if fn, ok := extendedopcodes[b]; ok {
		fn(sm, buf)
	}
}

func copyfn(sm *stateMachine, buf *bytes.Buffer) {
	sm.valid = true
}

func advancepc(sm *stateMachine, buf *bytes.Buffer) {
	addr, _ := leb128.DecodeUnsigned(buf)
	sm.address += addr * uint64(sm.dbl.Prologue.MinInstrLength)
}

func advanceline(sm *stateMachine, buf *bytes.Buffer) {
	line, _ := leb128.DecodeSigned(buf)
	sm.line += int(line)
}

func setfile(sm *stateMachine, buf *bytes.Buffer) {
	i, _ := leb128.DecodeUnsigned(buf)
	if i-1 < uint64(len(sm.dbl.FileNames)) {
		sm.file = sm.dbl.FileNames[i-1].Path
	} else {
		j := (i - 1) - uint64(len(sm.dbl.FileNames))
		if j < uint64(len(sm.definedFiles)) {
			sm.file = sm.definedFiles[j].Path
		} else {
			sm.badFile = true
		}
	}
}

func setcolumn(sm *stateMachine, buf *bytes.Buffer) {
	c, _ := leb128.DecodeUnsigned(buf)
	sm.column = uint(c)
}

func negatestmt(sm *stateMachine, buf *bytes.Buffer) {
	sm.isStmt = !sm.isStmt
}

func setbasicblock(sm *stateMachine, buf *bytes.Buffer) {
}

func constaddpc(sm *stateMachine, buf *bytes.Buffer) {
	sm.address += uint64((255-sm.dbl.Prologue.OpcodeBase)/sm.dbl.Prologue.LineRange) * uint64(sm.dbl.Prologue.MinInstrLength)
}

func fixedadvancepc(sm *stateMachine, buf *bytes.Buffer) {
	var operand uint16
	binary.Read(buf, binary.LittleEndian, &operand)

	sm.address += uint64(operand)
}

func endsequence(sm *stateMachine, buf *bytes.Buffer) {
	sm.endSeq = true
	sm.valid = true
}

func setaddress(sm *stateMachine, buf *bytes.Buffer) {
	addr, err := util.ReadUintRaw(buf, binary.LittleEndian, sm.dbl.ptrSize)
	if err != nil {
		return
	}
	sm.address = addr
}

func definefile(sm *stateMachine, buf *bytes.Buffer) {
	entry := readFileEntry(sm.dbl, sm.buf, false)
	if entry != nil {
		sm.definedFiles = append(sm.definedFiles, entry)
	}
}

func prologueend(sm *stateMachine, buf *bytes.Buffer) {
}

func epiloguebegin(sm *stateMachine, buf *bytes.Buffer) {
}

func setisa(sm *stateMachine, buf *bytes.Buffer) {
	c, _ := leb128.DecodeUnsigned(buf)
	sm.isa = c
}
