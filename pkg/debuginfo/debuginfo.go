// Package debuginfo extracts DWARF debug information from a compiled
// WebAssembly module: instruction offset to source line mapping, the scope
// tree with its variables, and typed decoding of variable values against a
// runtime snapshot.
package debuginfo

import (
	"bytes"
	"debug/dwarf"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/godwarf"
	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/line"
	"github.com/wasmdbg/wasmdwarf/pkg/logflags"
	"github.com/wasmdbg/wasmdwarf/pkg/wasm"
)

const ptrSizeWasm32 = 4

// typeCacheSize bounds the memoized type descriptors per module.
const typeCacheSize = 128

// unit is one compilation unit of the module's debug info.
type unit struct {
	offset  dwarf.Offset
	name    string
	compDir string
	tree    *godwarf.Tree
	globals []*godwarf.Tree
}

// DebugInfo is the debug information of one WebAssembly module. All lookup
// methods are safe for concurrent use once New returns.
type DebugInfo struct {
	sections    *wasm.Sections
	dwarf       *dwarf.Data
	sourceMap   *SourceMap
	units       []*unit
	subroutines []*Subroutine
	typeCache   *lru.Cache
	logger      *logrus.Entry
}

// New parses the debug sections of the module image in data. A module
// without debug information yields an empty DebugInfo (every lookup misses),
// not an error. A unit with corrupt entries or a corrupt line program is
// skipped with a log entry; the remaining units still load.
func New(data []byte) (*DebugInfo, error) {
	sections, err := wasm.Load(data)
	if err != nil {
		return nil, err
	}

	typeCache, _ := lru.New(typeCacheSize)
	di := &DebugInfo{
		sections:  sections,
		typeCache: typeCache,
		logger:    logflags.DebugInfoLogger(),
	}

	info := sections.Debug("info")
	if len(info) == 0 {
		di.sourceMap = newSourceMap(nil)
		return di, nil
	}

	dw, err := dwarf.New(sections.Debug("abbrev"), nil, nil, info, nil, nil, sections.Debug("ranges"), sections.Debug("str"))
	if err != nil {
		return nil, fmt.Errorf("loading debug info: %v", err)
	}
	di.dwarf = dw

	debugLine := sections.Debug("line")
	var logfn func(string, ...interface{})
	if logflags.DebugLineErrors() {
		logfn = di.logger.Printf
	}

	var unitRows [][]line.Row

	rdr := dw.Reader()
	for {
		entry, err := rdr.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEntryTreeCorrupt, err)
		}
		if entry == nil {
			break
		}
		if entry.Tag != dwarf.TagCompileUnit {
			continue
		}

		tree, err := godwarf.LoadTree(entry.Offset, dw)
		if err != nil {
			di.logger.Warnf("skipping unit at %#x: %v", entry.Offset, err)
			rdr.SkipChildren()
			continue
		}
		rdr.SkipChildren()

		u := &unit{offset: entry.Offset, tree: tree}
		u.name, _ = tree.Val(dwarf.AttrName).(string)
		u.compDir, _ = tree.Val(dwarf.AttrCompDir).(string)
		for _, child := range tree.Children {
			if child.Tag == dwarf.TagVariable {
				u.globals = append(u.globals, child)
			}
		}
		di.units = append(di.units, u)
		di.subroutines = collectSubroutines(tree, entry.Offset, di.subroutines)

		rows, err := unitLineRows(u, debugLine, entry, logfn)
		if err != nil {
			di.logger.Warnf("line program of unit %q unusable: %v", u.name, err)
			continue
		}
		if rows != nil {
			unitRows = append(unitRows, rows)
		}
	}

	di.sourceMap = newSourceMap(unitRows)
	if logflags.DebugInfo() {
		di.logger.Debugf("loaded %d units, %d subroutines, %d line rows", len(di.units), len(di.subroutines), len(di.sourceMap.Rows()))
	}
	return di, nil
}

// unitLineRows parses and runs the line number program referenced by a
// compilation unit, nil when the unit references none.
func unitLineRows(u *unit, debugLine []byte, entry *dwarf.Entry, logfn func(string, ...interface{})) ([]line.Row, error) {
	stmtList, ok := entry.Val(dwarf.AttrStmtList).(int64)
	if !ok {
		return nil, nil
	}
	if stmtList < 0 || stmtList >= int64(len(debugLine)) {
		return nil, fmt.Errorf("statement list offset %#x outside .debug_line", stmtList)
	}
	dli, err := line.Parse(u.compDir, bytes.NewBuffer(debugLine[stmtList:]), logfn, ptrSizeWasm32)
	if err != nil {
		return nil, err
	}
	return dli.Rows()
}

// CodeBase returns the file offset of the code section payload. Runtimes
// report instruction offsets relative to the file start, while the debug
// info encodes them relative to the code section.
func (di *DebugInfo) CodeBase() uint64 { return di.sections.CodeBase }

// DataBase returns the linear memory address of the first active data
// segment. Location expressions for globals are relative to it.
func (di *DebugInfo) DataBase() uint64 { return di.sections.DataBase }

// SourceMap returns the merged line table of every unit.
func (di *DebugInfo) SourceMap() *SourceMap { return di.sourceMap }

// FindLineInfo maps an instruction offset to its source location, nil when
// no line table row covers the offset.
func (di *DebugInfo) FindLineInfo(off uint64) *LineInfo {
	return di.sourceMap.FindLineInfo(off)
}

// FindAddress maps a source position to the lowest instruction offset of a
// statement at exactly file:line.
func (di *DebugInfo) FindAddress(file string, lineno int) (uint64, bool) {
	return di.sourceMap.FindAddress(file, lineno)
}

// Sources returns every source file named by the line tables, sorted.
func (di *DebugInfo) Sources() []string { return di.sourceMap.Files() }

// Subroutines returns every function described by the debug info, in unit
// order.
func (di *DebugInfo) Subroutines() []*Subroutine { return di.subroutines }
