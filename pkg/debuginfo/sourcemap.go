package debuginfo

import (
	"sort"

	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/line"
)

// LineInfo is a resolved source location.
type LineInfo struct {
	File   string
	Line   int
	Column uint
}

// SourceMap is the bidirectional instruction-offset to source-location
// table, merged across every compilation unit and immutable once built.
type SourceMap struct {
	rows  []line.Row
	files []string
}

func newSourceMap(unitRows [][]line.Row) *SourceMap {
	sm := &SourceMap{}
	seen := make(map[string]bool)
	for _, rows := range unitRows {
		sm.rows = append(sm.rows, rows...)
		for i := range rows {
			if !rows[i].EndSeq && !seen[rows[i].File] {
				seen[rows[i].File] = true
				sm.files = append(sm.files, rows[i].File)
			}
		}
	}
	// stable: rows of earlier units win ties, which keeps the merge
	// deterministic
	sort.SliceStable(sm.rows, func(i, j int) bool {
		return sm.rows[i].Address < sm.rows[j].Address
	})
	sort.Strings(sm.files)
	return sm
}

// FindLineInfo returns the source location of the row with the greatest
// address not above off, or nil when off falls before the first row or past
// the end of its sequence.
func (sm *SourceMap) FindLineInfo(off uint64) *LineInfo {
	i := sort.Search(len(sm.rows), func(i int) bool {
		return sm.rows[i].Address > off
	})
	if i == 0 {
		return nil
	}
	row := sm.rows[i-1]
	if row.EndSeq {
		// between sequences: the preceding range was closed below off
		return nil
	}
	return &LineInfo{File: row.File, Line: row.Line, Column: row.Column}
}

// FindAddress returns the lowest instruction offset of a statement row
// matching file:line exactly, ties broken by unit order.
func (sm *SourceMap) FindAddress(file string, lineno int) (uint64, bool) {
	for i := range sm.rows {
		row := &sm.rows[i]
		if row.EndSeq || !row.IsStmt {
			continue
		}
		if row.Line == lineno && row.File == file {
			return row.Address, true
		}
	}
	return 0, false
}

// Files returns the source files referenced by any row, sorted.
func (sm *SourceMap) Files() []string {
	return sm.files
}

// Rows returns the merged row table, sorted by address.
func (sm *SourceMap) Rows() []line.Row {
	return sm.rows
}
