package debuginfo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/godwarf"
)

// formatLimits bounds the output of composite values, zero means unlimited.
type formatLimits struct {
	maxArrayValues int
	maxStringLen   int
}

// Format renders the decoded value as source-level text. The second return
// value is false when the type has no printable rendering or the byte image
// is too short for it.
func (vi *VariableInfo) Format() (string, bool) {
	return formatValue(vi.typ, vi.Bytes, formatLimits{})
}

// FormatLimited is Format with at most maxArrayValues array elements and
// maxStringLen characters of character arrays, zero meaning unlimited.
func (vi *VariableInfo) FormatLimited(maxArrayValues, maxStringLen int) (string, bool) {
	return formatValue(vi.typ, vi.Bytes, formatLimits{maxArrayValues, maxStringLen})
}

func formatValue(typ godwarf.Type, data []byte, lim formatLimits) (string, bool) {
	switch t := godwarf.ResolveTypedef(typ).(type) {
	case *godwarf.BaseType:
		return formatBase(t, data)
	case *godwarf.PtrType:
		if len(data) < int(t.ByteSize) {
			return "", false
		}
		return fmt.Sprintf("0x%x", readUintLE(data[:t.ByteSize])), true
	case *godwarf.ArrayType:
		return formatArray(t, data, lim)
	case *godwarf.StructType:
		return formatStruct(t, data, lim)
	default:
		return "", false
	}
}

func formatBase(t *godwarf.BaseType, data []byte) (string, bool) {
	sz := t.ByteSize
	if sz <= 0 || sz > 8 || len(data) < int(sz) {
		return "", false
	}
	raw := readUintLE(data[:sz])
	switch t.Encoding {
	case godwarf.AteSigned, godwarf.AteSignedChar:
		return strconv.FormatInt(signExtend(raw, sz), 10), true
	case godwarf.AteUnsigned, godwarf.AteUnsignedChar, godwarf.AteAddress:
		return strconv.FormatUint(raw, 10), true
	case godwarf.AteBoolean:
		return strconv.FormatBool(raw != 0), true
	case godwarf.AteFloat:
		switch sz {
		case 4:
			return strconv.FormatFloat(float64(math.Float32frombits(uint32(raw))), 'g', -1, 32), true
		case 8:
			return strconv.FormatFloat(math.Float64frombits(raw), 'g', -1, 64), true
		}
	}
	return "", false
}

func formatArray(t *godwarf.ArrayType, data []byte, lim formatLimits) (string, bool) {
	elemSz := t.Type.Common().ByteSize
	if elemSz <= 0 || t.Count < 0 || int64(len(data)) < t.Count*elemSz {
		return "", false
	}
	if isCharType(t.Type) {
		return formatCharArray(data[:t.Count], lim.maxStringLen), true
	}
	count := t.Count
	truncated := false
	if lim.maxArrayValues > 0 && count > int64(lim.maxArrayValues) {
		count = int64(lim.maxArrayValues)
		truncated = true
	}
	elems := make([]string, 0, count)
	for i := int64(0); i < count; i++ {
		s, ok := formatValue(t.Type, data[i*elemSz:(i+1)*elemSz], lim)
		if !ok {
			return "", false
		}
		elems = append(elems, s)
	}
	if truncated {
		elems = append(elems, "...")
	}
	return "[" + strings.Join(elems, ", ") + "]", true
}

func isCharType(typ godwarf.Type) bool {
	base, ok := godwarf.ResolveTypedef(typ).(*godwarf.BaseType)
	if !ok || base.ByteSize != 1 {
		return false
	}
	return base.Encoding == godwarf.AteSignedChar || base.Encoding == godwarf.AteUnsignedChar
}

// formatCharArray renders a character array as a quoted string, stopping at
// the first NUL.
func formatCharArray(data []byte, maxLen int) string {
	if i := strings.IndexByte(string(data), 0); i >= 0 {
		data = data[:i]
	}
	truncated := maxLen > 0 && len(data) > maxLen
	if truncated {
		data = data[:maxLen]
	}
	s := strconv.Quote(string(data))
	if truncated {
		s += "..."
	}
	return s
}

func formatStruct(t *godwarf.StructType, data []byte, lim formatLimits) (string, bool) {
	fields := make([]string, 0, len(t.Field))
	for _, f := range t.Field {
		fsz := f.Type.Common().ByteSize
		if f.ByteOffset < 0 || fsz <= 0 || int64(len(data)) < f.ByteOffset+fsz {
			return "", false
		}
		s, ok := formatValue(f.Type, data[f.ByteOffset:f.ByteOffset+fsz], lim)
		if !ok {
			return "", false
		}
		fields = append(fields, f.Name+": "+s)
	}
	return "{" + strings.Join(fields, ", ") + "}", true
}

func readUintLE(data []byte) uint64 {
	var v uint64
	for i, b := range data {
		v |= uint64(b) << (8 * uint(i))
	}
	return v
}

func signExtend(v uint64, size int64) int64 {
	shift := uint(64 - 8*size)
	return int64(v<<shift) >> shift
}
