// Package line parses the .debug_line section and executes the line number
// programs it contains, producing the instruction-offset to source-location
// row tables consumed by the source map.
package line

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path"

	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/leb128"
	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/util"
)

// ErrMalformedLineProgram is returned when a line number program cannot be
// decoded, for example when it references an undeclared file index. The rows
// of the offending compilation unit are dropped, other units are unaffected.
var ErrMalformedLineProgram = errors.New("malformed line number program")

// DebugLinePrologue is the prologue of a single .debug_line unit.
type DebugLinePrologue struct {
	UnitLength     uint32
	Version        uint16
	Length         uint32
	MinInstrLength uint8
	MaxOpPerInstr  uint8
	InitialIsStmt  uint8
	LineBase       int8
	LineRange      uint8
	OpcodeBase     uint8
	StdOpLengths   []uint8
}

// DebugLineInfo is a single .debug_line unit: its prologue, file tables and
// the undecoded line number program.
type DebugLineInfo struct {
	Prologue     *DebugLinePrologue
	IncludeDirs  []string
	FileNames    []*FileEntry
	Instructions []byte
	Lookup       map[string]*FileEntry

	Logf func(string, ...interface{})

	ptrSize int
}

// FileEntry is an entry of the file name table.
type FileEntry struct {
	Path        string
	DirIdx      uint64
	LastModTime uint64
	Length      uint64
}

// Parse parses a single debug_line unit from buf. Compdir is the
// DW_AT_comp_dir attribute of the associated compilation unit, ptrSize the
// byte width of a target address (4 on wasm32).
// Only DWARF versions 2 through 4 are supported, anything else returns
// ErrMalformedLineProgram.
func Parse(compdir string, buf *bytes.Buffer, logfn func(string, ...interface{}), ptrSize int) (*DebugLineInfo, error) {
	dbl := new(DebugLineInfo)
	dbl.Logf = logfn
	if logfn == nil {
		dbl.Logf = func(string, ...interface{}) {}
	}
	dbl.ptrSize = ptrSize
	dbl.Lookup = make(map[string]*FileEntry)
	dbl.IncludeDirs = append(dbl.IncludeDirs, compdir)

	if buf.Len() < 15 {
		return nil, ErrMalformedLineProgram
	}

	parseDebugLinePrologue(dbl, buf)
	if dbl.Prologue.Version < 2 || dbl.Prologue.Version > 4 {
		dbl.Logf("unsupported .debug_line version %d", dbl.Prologue.Version)
		return nil, ErrMalformedLineProgram
	}
	if dbl.Prologue.LineRange == 0 || dbl.Prologue.OpcodeBase == 0 {
		return nil, ErrMalformedLineProgram
	}
	if !parseIncludeDirs(dbl, buf) {
		return nil, ErrMalformedLineProgram
	}
	if !parseFileEntries(dbl, buf) {
		return nil, ErrMalformedLineProgram
	}

	// Instructions size breakdown:
	//   - UnitLength is the length of the entire unit, not including the 4
	//     bytes representing the length itself.
	//   - Length is the length of the prologue, not including unit length,
	//     version or prologue length.
	// So the program is UnitLength - Length - (version(2) + length(4)) bytes.
	ilen := int(dbl.Prologue.UnitLength) - int(dbl.Prologue.Length) - 6
	if ilen < 0 || ilen > buf.Len() {
		return nil, ErrMalformedLineProgram
	}
	dbl.Instructions = buf.Next(ilen)

	return dbl, nil
}

func parseDebugLinePrologue(dbl *DebugLineInfo, buf *bytes.Buffer) {
	p := new(DebugLinePrologue)

	p.UnitLength = binary.LittleEndian.Uint32(buf.Next(4))
	p.Version = binary.LittleEndian.Uint16(buf.Next(2))
	p.Length = binary.LittleEndian.Uint32(buf.Next(4))
	p.MinInstrLength = buf.Next(1)[0]
	if p.Version >= 4 {
		p.MaxOpPerInstr = buf.Next(1)[0]
	} else {
		p.MaxOpPerInstr = 1
	}
	p.InitialIsStmt = buf.Next(1)[0]
	p.LineBase = int8(buf.Next(1)[0])
	p.LineRange = buf.Next(1)[0]
	p.OpcodeBase = buf.Next(1)[0]

	if p.OpcodeBase > 0 {
		p.StdOpLengths = make([]uint8, p.OpcodeBase-1)
		binary.Read(buf, binary.LittleEndian, &p.StdOpLengths)
	}

	dbl.Prologue = p
}

func parseIncludeDirs(info *DebugLineInfo, buf *bytes.Buffer) bool {
	for {
		str, err := util.ParseString(buf)
		if err != nil {
			info.Logf("error reading include directory: %v", err)
			return false
		}
		if str == "" {
			break
		}

		info.IncludeDirs = append(info.IncludeDirs, str)
	}
	return true
}

func parseFileEntries(info *DebugLineInfo, buf *bytes.Buffer) bool {
	for {
		entry := readFileEntry(info, buf, true)
		if entry == nil {
			return false
		}
		if entry.Path == "" {
			break
		}

		info.FileNames = append(info.FileNames, entry)
		info.Lookup[entry.Path] = entry
	}
	return true
}

func readFileEntry(info *DebugLineInfo, buf *bytes.Buffer, exitOnEmptyPath bool) *FileEntry {
	entry := new(FileEntry)

	var err error
	entry.Path, err = util.ParseString(buf)
	if err != nil {
		info.Logf("error reading file entry: %v", err)
		return nil
	}
	if entry.Path == "" && exitOnEmptyPath {
		return entry
	}

	entry.DirIdx, _ = leb128.DecodeUnsigned(buf)
	entry.LastModTime, _ = leb128.DecodeUnsigned(buf)
	entry.Length, _ = leb128.DecodeUnsigned(buf)
	if !pathIsAbs(entry.Path) {
		if entry.DirIdx < uint64(len(info.IncludeDirs)) {
			entry.Path = path.Join(info.IncludeDirs[entry.DirIdx], entry.Path)
		}
	}

	return entry
}

// pathIsAbs returns true if this is an absolute path. We can not use
// path.IsAbs because it will not recognize windows paths as absolute, and
// this processing must be independent of the host operating system (the
// module could have been compiled on windows and inspected on unix or vice
// versa).
func pathIsAbs(s string) bool {
	if len(s) >= 1 && s[0] == '/' {
		return true
	}
	if len(s) >= 2 && s[1] == ':' && (('a' <= s[0] && s[0] <= 'z') || ('A' <= s[0] && s[0] <= 'Z')) {
		return true
	}
	return false
}
