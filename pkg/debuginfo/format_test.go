package debuginfo

import (
	"testing"

	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/godwarf"
)

func baseType(name string, encoding, size int64) *godwarf.BaseType {
	return &godwarf.BaseType{
		CommonType: godwarf.CommonType{ByteSize: size, Name: name},
		Encoding:   encoding,
	}
}

func TestFormatScalars(t *testing.T) {
	for _, tc := range []struct {
		name string
		typ  godwarf.Type
		data []byte
		want string
	}{
		{"int -1", baseType("int", godwarf.AteSigned, 4), []byte{0xff, 0xff, 0xff, 0xff}, "-1"},
		{"int max", baseType("int", godwarf.AteSigned, 4), []byte{0xff, 0xff, 0xff, 0x7f}, "2147483647"},
		{"uint max", baseType("unsigned int", godwarf.AteUnsigned, 4), []byte{0xff, 0xff, 0xff, 0xff}, "4294967295"},
		{"short", baseType("short", godwarf.AteSigned, 2), []byte{0xfe, 0xff}, "-2"},
		{"char", baseType("char", godwarf.AteSignedChar, 1), []byte{0x9c}, "-100"},
		{"bool true", baseType("_Bool", godwarf.AteBoolean, 1), []byte{0x01}, "true"},
		{"bool false", baseType("_Bool", godwarf.AteBoolean, 1), []byte{0x00}, "false"},
		{"float", baseType("float", godwarf.AteFloat, 4), []byte{0x00, 0x00, 0xc0, 0x3f}, "1.5"},
		{"double", baseType("double", godwarf.AteFloat, 8), []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xf8, 0x3f}, "1.5"},
	} {
		got, ok := formatValue(tc.typ, tc.data, formatLimits{})
		if !ok || got != tc.want {
			t.Errorf("%s: formatValue = %q, %v, want %q", tc.name, got, ok, tc.want)
		}
	}
}

func TestFormatPointerUnfollowed(t *testing.T) {
	typ := &godwarf.PtrType{
		CommonType: godwarf.CommonType{ByteSize: 4},
		Type:       baseType("int", godwarf.AteSigned, 4),
	}
	got, ok := formatValue(typ, []byte{0x10, 0x04, 0x00, 0x00}, formatLimits{})
	if !ok || got != "0x410" {
		t.Errorf("formatValue = %q, %v, want 0x410", got, ok)
	}
}

func TestFormatArray(t *testing.T) {
	typ := &godwarf.ArrayType{
		CommonType: godwarf.CommonType{ByteSize: 12},
		Type:       baseType("int", godwarf.AteSigned, 4),
		Count:      3,
	}
	data := []byte{1, 0, 0, 0, 2, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}
	got, ok := formatValue(typ, data, formatLimits{})
	if !ok || got != "[1, 2, -1]" {
		t.Errorf("formatValue = %q, %v", got, ok)
	}
}

func TestFormatNestedStruct(t *testing.T) {
	inner := &godwarf.StructType{
		CommonType: godwarf.CommonType{ByteSize: 8, Name: "point"},
		Kind:       "struct",
		Field: []*godwarf.StructField{
			{Name: "x", Type: baseType("int", godwarf.AteSigned, 4), ByteOffset: 0},
			{Name: "y", Type: baseType("int", godwarf.AteSigned, 4), ByteOffset: 4},
		},
	}
	outer := &godwarf.StructType{
		CommonType: godwarf.CommonType{ByteSize: 12, Name: "segment"},
		Kind:       "struct",
		Field: []*godwarf.StructField{
			{Name: "p", Type: inner, ByteOffset: 0},
			{Name: "id", Type: baseType("int", godwarf.AteSigned, 4), ByteOffset: 8},
		},
	}
	data := []byte{1, 0, 0, 0, 2, 0, 0, 0, 9, 0, 0, 0}
	got, ok := formatValue(outer, data, formatLimits{})
	if !ok || got != "{p: {x: 1, y: 2}, id: 9}" {
		t.Errorf("formatValue = %q, %v", got, ok)
	}
}

func TestFormatCharArrayAsString(t *testing.T) {
	typ := &godwarf.ArrayType{
		CommonType: godwarf.CommonType{ByteSize: 8},
		Type:       baseType("char", godwarf.AteSignedChar, 1),
		Count:      8,
	}
	data := []byte{'h', 'e', 'l', 'l', 'o', 0, 0, 0}
	got, ok := formatValue(typ, data, formatLimits{})
	if !ok || got != `"hello"` {
		t.Errorf("formatValue = %q, %v", got, ok)
	}

	got, ok = formatValue(typ, data, formatLimits{maxStringLen: 3})
	if !ok || got != `"hel"...` {
		t.Errorf("truncated formatValue = %q, %v", got, ok)
	}
}

func TestFormatArrayTruncated(t *testing.T) {
	typ := &godwarf.ArrayType{
		CommonType: godwarf.CommonType{ByteSize: 16},
		Type:       baseType("int", godwarf.AteSigned, 4),
		Count:      4,
	}
	data := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0, 4, 0, 0, 0}
	got, ok := formatValue(typ, data, formatLimits{maxArrayValues: 2})
	if !ok || got != "[1, 2, ...]" {
		t.Errorf("formatValue = %q, %v", got, ok)
	}
}

func TestFormatTypedefResolved(t *testing.T) {
	typ := &godwarf.TypedefType{
		CommonType: godwarf.CommonType{ByteSize: 4, Name: "myint"},
		Type:       baseType("int", godwarf.AteSigned, 4),
	}
	got, ok := formatValue(typ, []byte{5, 0, 0, 0}, formatLimits{})
	if !ok || got != "5" {
		t.Errorf("formatValue = %q, %v", got, ok)
	}
}

func TestFormatUnprintable(t *testing.T) {
	if _, ok := formatValue(&godwarf.VoidType{}, nil, formatLimits{}); ok {
		t.Error("void formatted")
	}
	if _, ok := formatValue(baseType("int", godwarf.AteSigned, 4), []byte{1, 2}, formatLimits{}); ok {
		t.Error("short data formatted")
	}
	if _, ok := formatValue(nil, []byte{1}, formatLimits{}); ok {
		t.Error("nil type formatted")
	}
}
