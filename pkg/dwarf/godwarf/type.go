package godwarf

import (
	"bytes"
	"debug/dwarf"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/leb128"
)

// DWARF base type encodings (DWARF v4, section 7.8).
const (
	AteAddress      = 0x01
	AteBoolean      = 0x02
	AteComplexFloat = 0x03
	AteFloat        = 0x04
	AteSigned       = 0x05
	AteSignedChar   = 0x06
	AteUnsigned     = 0x07
	AteUnsignedChar = 0x08
)

// maxTypeDepth bounds the type chase: references can legitimately nest
// (pointer to array of struct) but never this deep in real debug info.
const maxTypeDepth = 64

// Type is the descriptor of a variable's type, resolved on demand from a
// type reference in the entry tree.
type Type interface {
	Common() *CommonType
	String() string
}

// CommonType holds the fields common to all type descriptors.
type CommonType struct {
	ByteSize int64
	Name     string
}

func (c *CommonType) Common() *CommonType { return c }

func (c *CommonType) String() string {
	if c.Name != "" {
		return c.Name
	}
	return "?"
}

// BaseType is a fundamental type described by an encoding and a byte size.
type BaseType struct {
	CommonType
	Encoding int64
}

// PtrType is a pointer to Type.
type PtrType struct {
	CommonType
	Type Type
}

func (t *PtrType) String() string {
	if t.Name != "" {
		return t.Name
	}
	return "*" + t.Type.String()
}

// ArrayType is a fixed-size sequence of Type elements. Count is -1 when
// the entry declares no length.
type ArrayType struct {
	CommonType
	Type  Type
	Count int64
}

func (t *ArrayType) String() string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("[%d]%s", t.Count, t.Type.String())
}

// StructType is a structure or union with ordered fields.
type StructType struct {
	CommonType
	Kind  string // "struct" or "union"
	Field []*StructField
}

func (t *StructType) String() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Kind
}

// StructField is a member of a structure type, located at ByteOffset
// within the structure's storage.
type StructField struct {
	Name       string
	Type       Type
	ByteOffset int64
}

// TypedefType is a name alias for Type; const and volatile qualifiers are
// represented the same way.
type TypedefType struct {
	CommonType
	Type Type
}

// VoidType stands for an absent type reference.
type VoidType struct {
	CommonType
}

func (t *VoidType) String() string { return "void" }

// ReadType resolves the type descriptor rooted at offset off, chasing
// nested references depth-first. The chase is depth bounded and rejects
// reference cycles rather than looping. Resolved descriptors are memoized
// in cache (keyed by offset) when one is supplied.
func ReadType(dw *dwarf.Data, off dwarf.Offset, cache *lru.Cache) (Type, error) {
	if cache != nil {
		if typ, ok := cache.Get(off); ok {
			return typ.(Type), nil
		}
	}
	typ, err := readType(dw, off, make(map[dwarf.Offset]bool), 0)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.Add(off, typ)
	}
	return typ, nil
}

func readType(dw *dwarf.Data, off dwarf.Offset, visiting map[dwarf.Offset]bool, depth int) (Type, error) {
	if depth > maxTypeDepth {
		return nil, fmt.Errorf("type at %#x nests too deep", off)
	}
	if visiting[off] {
		return nil, fmt.Errorf("type reference cycle at %#x", off)
	}
	visiting[off] = true
	defer delete(visiting, off)

	rdr := dw.Reader()
	rdr.Seek(off)
	e, err := rdr.Next()
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("no type entry at %#x", off)
	}

	common := CommonType{}
	if name, ok := e.Val(dwarf.AttrName).(string); ok {
		common.Name = name
	}
	if sz, ok := e.Val(dwarf.AttrByteSize).(int64); ok {
		common.ByteSize = sz
	}

	switch e.Tag {
	case dwarf.TagBaseType:
		enc, ok := e.Val(dwarf.AttrEncoding).(int64)
		if !ok {
			return nil, fmt.Errorf("base type at %#x has no encoding", off)
		}
		return &BaseType{CommonType: common, Encoding: enc}, nil

	case dwarf.TagPointerType:
		target, err := readTypeRef(dw, e, visiting, depth)
		if err != nil {
			return nil, err
		}
		if common.ByteSize == 0 {
			common.ByteSize = 4 // wasm32
		}
		return &PtrType{CommonType: common, Type: target}, nil

	case dwarf.TagArrayType:
		elem, err := readTypeRef(dw, e, visiting, depth)
		if err != nil {
			return nil, err
		}
		count := arrayCount(dw, e)
		if common.ByteSize == 0 && count > 0 {
			if esz := elem.Common().ByteSize; esz > 0 {
				common.ByteSize = count * esz
			}
		}
		return &ArrayType{CommonType: common, Type: elem, Count: count}, nil

	case dwarf.TagStructType, dwarf.TagUnionType:
		kind := "struct"
		if e.Tag == dwarf.TagUnionType {
			kind = "union"
		}
		st := &StructType{CommonType: common, Kind: kind}
		if !e.Children {
			return st, nil
		}
		for {
			child, err := rdr.Next()
			if err != nil {
				return nil, err
			}
			if child == nil || child.Tag == 0 {
				break
			}
			if child.Tag != dwarf.TagMember {
				rdr.SkipChildren()
				continue
			}
			field := &StructField{}
			if name, ok := child.Val(dwarf.AttrName).(string); ok {
				field.Name = name
			}
			switch o := child.Val(dwarf.AttrDataMemberLoc).(type) {
			case int64:
				field.ByteOffset = o
			case []byte:
				// older producers encode the member offset as a
				// DW_OP_plus_uconst block
				if len(o) >= 2 && o[0] == 0x23 {
					off, _ := leb128.DecodeUnsigned(bytes.NewBuffer(o[1:]))
					field.ByteOffset = int64(off)
				}
			}
			tref, ok := child.Val(dwarf.AttrType).(dwarf.Offset)
			if !ok {
				return nil, fmt.Errorf("member %q at %#x has no type", field.Name, child.Offset)
			}
			field.Type, err = readType(dw, tref, visiting, depth+1)
			if err != nil {
				return nil, err
			}
			st.Field = append(st.Field, field)
		}
		return st, nil

	case dwarf.TagTypedef, dwarf.TagConstType, dwarf.TagVolatileType, dwarf.TagRestrictType:
		real, err := readTypeRef(dw, e, visiting, depth)
		if err != nil {
			return nil, err
		}
		if common.ByteSize == 0 {
			common.ByteSize = real.Common().ByteSize
		}
		return &TypedefType{CommonType: common, Type: real}, nil

	default:
		return nil, fmt.Errorf("unsupported type tag %s at %#x", e.Tag, off)
	}
}

// readTypeRef chases the DW_AT_type attribute of e; entries without one
// reference the void type.
func readTypeRef(dw *dwarf.Data, e *dwarf.Entry, visiting map[dwarf.Offset]bool, depth int) (Type, error) {
	off, ok := e.Val(dwarf.AttrType).(dwarf.Offset)
	if !ok {
		return &VoidType{}, nil
	}
	return readType(dw, off, visiting, depth+1)
}

// arrayCount reads the element count from the subrange child of an array
// type entry, -1 if the array has no declared length.
func arrayCount(dw *dwarf.Data, e *dwarf.Entry) int64 {
	if !e.Children {
		return -1
	}
	rdr := dw.Reader()
	rdr.Seek(e.Offset)
	if _, err := rdr.Next(); err != nil {
		return -1
	}
	for {
		child, err := rdr.Next()
		if err != nil || child == nil || child.Tag == 0 {
			return -1
		}
		if child.Tag != dwarf.TagSubrangeType {
			rdr.SkipChildren()
			continue
		}
		if count, ok := child.Val(dwarf.AttrCount).(int64); ok {
			return count
		}
		if ub, ok := child.Val(dwarf.AttrUpperBound).(int64); ok {
			return ub + 1
		}
		return -1
	}
}

// ResolveTypedef returns the underlying type of t, skipping typedefs and
// qualifiers.
func ResolveTypedef(t Type) Type {
	for {
		td, ok := t.(*TypedefType)
		if !ok {
			return t
		}
		t = td.Type
	}
}
