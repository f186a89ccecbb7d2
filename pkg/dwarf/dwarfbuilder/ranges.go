package dwarfbuilder

import (
	"bytes"
	"debug/dwarf"
	"encoding/binary"
)

// RangesSection assembles a synthetic .debug_ranges section of wasm32
// address pairs.
type RangesSection struct {
	buf bytes.Buffer
}

// Add appends a range list and returns its offset within the section.
// Entries are relative to the base address of the referencing unit.
func (r *RangesSection) Add(rngs [][2]uint32) SecOffset {
	off := SecOffset(r.buf.Len())
	for _, rng := range rngs {
		binary.Write(&r.buf, binary.LittleEndian, rng[0])
		binary.Write(&r.buf, binary.LittleEndian, rng[1])
	}
	binary.Write(&r.buf, binary.LittleEndian, uint32(0))
	binary.Write(&r.buf, binary.LittleEndian, uint32(0))
	return off
}

// Build returns the assembled section.
func (r *RangesSection) Build() []byte {
	return r.buf.Bytes()
}

// AddSubprogramRanges adds a subprogram whose code is discontiguous,
// described by the range list at rangesOff of .debug_ranges. Must call
// TagClose after adding all local variables and parameters.
func (b *Builder) AddSubprogramRanges(fnname string, rangesOff SecOffset) dwarf.Offset {
	r := b.TagOpen(dwarf.TagSubprogram, fnname)
	b.Attr(dwarf.AttrRanges, rangesOff)
	return r
}
