package debuginfo

import (
	"debug/dwarf"
	"fmt"
	"strings"

	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/godwarf"
	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/op"
)

// VariableInfo is the resolved value of a single variable at a given
// instruction offset, decoded against a runtime snapshot.
type VariableInfo struct {
	Name     string
	Address  uint64
	ByteSize int64
	Bytes    []byte
	Tag      dwarf.Tag
	Encoding int64

	// LocationExpr is the variable's location expression in readable form.
	LocationExpr string

	typ godwarf.Type
}

// Type returns the variable's type descriptor.
func (vi *VariableInfo) Type() godwarf.Type { return vi.typ }

// FindSubroutine returns the subroutine whose range covers off.
func (di *DebugInfo) FindSubroutine(off uint64) (*Subroutine, error) {
	for _, fn := range di.subroutines {
		if fn.ContainsPC(off) {
			return fn, nil
		}
	}
	return nil, ErrSubroutineNotFound
}

// VariableNameList returns the names of the variables and parameters in
// scope at off, innermost scope first. A name shadowed by an inner scope
// appears once per declaring scope.
func (di *DebugInfo) VariableNameList(off uint64) ([]string, error) {
	fn, err := di.FindSubroutine(off)
	if err != nil {
		return nil, err
	}
	entries := fn.scopeVariables(off)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := e.Val(dwarf.AttrName).(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// GlobalVariableNameList returns the names of the globals declared by the
// compilation unit covering off. When no unit covers off the globals of
// every unit are returned.
func (di *DebugInfo) GlobalVariableNameList(off uint64) ([]string, error) {
	var names []string
	for _, u := range di.unitFor(off) {
		for _, e := range u.globals {
			if name, ok := e.Val(dwarf.AttrName).(string); ok {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// unitFor returns the units whose ranges cover off, or every unit when none
// does.
func (di *DebugInfo) unitFor(off uint64) []*unit {
	for _, u := range di.units {
		if u.tree.ContainsPC(off) {
			return []*unit{u}
		}
	}
	return di.units
}

// GetVariableInfo resolves the variable called name at instruction offset
// off and decodes its value against snap. Subroutine scopes are searched
// innermost first, then the globals of the enclosing compilation unit.
func (di *DebugInfo) GetVariableInfo(name string, snap *RuntimeSnapshot, off uint64) (*VariableInfo, error) {
	var entry *godwarf.Tree

	fn, err := di.FindSubroutine(off)
	if err == nil {
		for _, e := range fn.scopeVariables(off) {
			if n, _ := e.Val(dwarf.AttrName).(string); n == name {
				entry = e
				break
			}
		}
	}
	if entry == nil {
		for _, u := range di.unitFor(off) {
			for _, e := range u.globals {
				if n, _ := e.Val(dwarf.AttrName).(string); n == name {
					entry = e
					break
				}
			}
			if entry != nil {
				break
			}
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %q", ErrVariableNotFound, name)
	}

	return di.resolveVariable(entry, name, fn, snap, off)
}

func (di *DebugInfo) resolveVariable(entry *godwarf.Tree, name string, fn *Subroutine, snap *RuntimeSnapshot, off uint64) (*VariableInfo, error) {
	loc, ok := entry.Val(dwarf.AttrLocation).([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: variable %q has no location", ErrVariableNotFound, name)
	}

	typOff, ok := entry.Val(dwarf.AttrType).(dwarf.Offset)
	if !ok {
		return nil, fmt.Errorf("%w: variable %q has no type", ErrTypeMismatch, name)
	}
	typ, err := godwarf.ReadType(di.dwarf, typOff, di.typeCache)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}

	frameBase, err := di.frameBase(fn, snap)
	if err != nil {
		return nil, err
	}

	result, isValue, err := op.ExecuteStackProgram(snap, frameBase, di.sections.DataBase, loc, ptrSizeWasm32)
	if err != nil {
		return nil, err
	}

	sz := typeByteSize(typ)
	vi := &VariableInfo{
		Name:         name,
		ByteSize:     sz,
		Tag:          entry.Tag,
		LocationExpr: locationExprString(loc),
		typ:          typ,
	}
	if base, ok := godwarf.ResolveTypedef(typ).(*godwarf.BaseType); ok {
		vi.Encoding = base.Encoding
	}

	if isValue {
		vi.Bytes = encodeScalar(uint64(result), sz)
		return vi, nil
	}

	vi.Address = uint64(result)
	vi.Bytes = make([]byte, sz)
	if _, err := snap.ReadMemory(vi.Bytes, vi.Address); err != nil {
		return nil, fmt.Errorf("reading %d bytes at %#x: %v", sz, vi.Address, err)
	}
	return vi, nil
}

// frameBase evaluates the frame base for fn, preferring the value recorded
// in the snapshot when the runtime supplies one.
func (di *DebugInfo) frameBase(fn *Subroutine, snap *RuntimeSnapshot) (int64, error) {
	if snap.FrameBase != 0 {
		return snap.FrameBase, nil
	}
	if fn == nil || len(fn.FrameBase) == 0 {
		return 0, nil
	}
	fb, _, err := op.ExecuteStackProgram(snap, 0, di.sections.DataBase, fn.FrameBase, ptrSizeWasm32)
	if err != nil {
		return 0, fmt.Errorf("evaluating frame base: %v", err)
	}
	return fb, nil
}

func typeByteSize(typ godwarf.Type) int64 {
	if typ == nil {
		return 0
	}
	sz := godwarf.ResolveTypedef(typ).Common().ByteSize
	if sz < 0 {
		return 0
	}
	return sz
}

func locationExprString(loc []byte) string {
	var sb strings.Builder
	op.PrettyPrint(&sb, loc)
	return strings.TrimSpace(sb.String())
}

// encodeScalar renders a stack-machine result as the little endian byte
// image the variable would have in memory.
func encodeScalar(v uint64, size int64) []byte {
	if size <= 0 || size > 8 {
		size = ptrSizeWasm32
	}
	out := make([]byte, size)
	for i := range out {
		out[i] = byte(v >> (8 * uint(i)))
	}
	return out
}
