// Package dwarfbuilder provides a way to build DWARF sections with
// arbitrary contents, used to construct synthetic debug info in tests.
package dwarfbuilder

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Builder assembles .debug_info and .debug_abbrev sections.
type Builder struct {
	info     bytes.Buffer
	abbrevs  []tagDescr
	tagStack []*tagState
}

// New creates a new DWARF builder. The caller is responsible for opening a
// compile unit before adding entries.
func New() *Builder {
	b := &Builder{}

	b.info.Write([]byte{
		0x0, 0x0, 0x0, 0x0, // length
		0x4, 0x0, // version
		0x0, 0x0, 0x0, 0x0, // debug_abbrev_offset
		0x4, // address_size (wasm32)
	})

	return b
}

// Build closes b and returns the debug_abbrev and debug_info sections.
func (b *Builder) Build() (abbrev, info []byte, err error) {
	if len(b.tagStack) > 0 {
		return nil, nil, fmt.Errorf("unbalanced TagOpen/TagClose %d", len(b.tagStack))
	}

	abbrev = b.makeAbbrevTable()
	info = b.info.Bytes()
	binary.LittleEndian.PutUint32(info, uint32(len(info)-4))

	return abbrev, info, nil
}
