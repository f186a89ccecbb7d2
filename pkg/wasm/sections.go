// Package wasm locates the DWARF debug sections embedded in a WebAssembly
// module. DWARF sections are stored as custom sections whose name is the
// usual section name (".debug_info", ".debug_line", etc).
package wasm

import (
	"bytes"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/leb128"
	"github.com/wasmdbg/wasmdwarf/pkg/logflags"
)

// ErrNotWasm is returned when the buffer does not start with the
// WebAssembly magic number and version.
var ErrNotWasm = errors.New("not a WebAssembly module")

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

const (
	sectionCustom = 0
	sectionCode   = 10
	sectionData   = 11
)

// Sections holds byte views into a module for every custom section, plus
// the load-time base offsets of the code and data sections. The views alias
// the module buffer, they are never copied.
type Sections struct {
	custom map[string][]byte

	// CodeBase is the file offset of the code section payload. Instruction
	// offsets reported by runtimes are relative to the start of the file, so
	// callers subtract CodeBase before querying the debug info.
	CodeBase uint64

	// DataBase is the linear memory placement of the first active data
	// segment, 0 if the module has none.
	DataBase uint64
}

// Load scans the section table of a WebAssembly module.
// Malformed or truncated sections terminate the scan but do not fail the
// load; only a missing magic number does.
func Load(data []byte) (*Sections, error) {
	if len(data) < len(wasmMagic) || !bytes.Equal(data[:len(wasmMagic)], wasmMagic) {
		return nil, ErrNotWasm
	}

	s := &Sections{custom: make(map[string][]byte)}

	var logger *logrus.Entry
	if logflags.WasmLoad() {
		logger = logflags.WasmLoadLogger()
	}

	i := len(wasmMagic)
	for i < len(data) {
		id := data[i]
		i++

		size, n := varuint(data[i:])
		if n == 0 {
			break
		}
		i += n
		end := i + int(size)
		if end > len(data) || end < i {
			break
		}

		switch id {
		case sectionCustom:
			nameLen, n := varuint(data[i:])
			if n == 0 || i+n+int(nameLen) > end {
				break
			}
			name := string(data[i+n : i+n+int(nameLen)])
			s.custom[name] = data[i+n+int(nameLen) : end]
			if logger != nil {
				logger.Debugf("custom section %q, %d bytes", name, len(s.custom[name]))
			}
		case sectionCode:
			s.CodeBase = uint64(i)
			if logger != nil {
				logger.Debugf("code section payload at %#x", i)
			}
		case sectionData:
			s.DataBase = dataSegmentBase(data[i:end])
			if logger != nil {
				logger.Debugf("data segment base %#x", s.DataBase)
			}
		}

		i = end
	}

	return s, nil
}

// Debug returns the contents of the named debug section, e.g. Debug("line")
// returns the contents of the ".debug_line" custom section. A missing
// section yields an empty view.
func (s *Sections) Debug(name string) []byte {
	return s.custom[".debug_"+name]
}

// Custom returns the contents of an arbitrary custom section.
func (s *Sections) Custom(name string) []byte {
	return s.custom[name]
}

// dataSegmentBase extracts the placement offset of the first active data
// segment: flags 0, followed by an `i32.const n; end` init expression.
func dataSegmentBase(payload []byte) uint64 {
	buf := bytes.NewBuffer(payload)

	count, n := leb128.DecodeUnsigned(buf)
	if n == 0 || count == 0 {
		return 0
	}
	flags, n := leb128.DecodeUnsigned(buf)
	if n == 0 || flags != 0 {
		return 0
	}
	opcode, err := buf.ReadByte()
	if err != nil || opcode != 0x41 { // i32.const
		return 0
	}
	base, n := leb128.DecodeSigned(buf)
	if n == 0 || base < 0 {
		return 0
	}
	return uint64(base)
}

func varuint(data []byte) (uint64, int) {
	var (
		result uint64
		shift  uint
	)
	for i, b := range data {
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
	}
	return 0, 0
}
