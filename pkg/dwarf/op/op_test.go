package op

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/leb128"
)

// fakeSnapshot is an in-memory runtime state for evaluator tests.
type fakeSnapshot struct {
	locals  []uint64
	globals []uint64
	stack   []uint64
	memory  []byte
}

func (s *fakeSnapshot) Local(i uint64) (uint64, bool) {
	if i >= uint64(len(s.locals)) {
		return 0, false
	}
	return s.locals[i], true
}

func (s *fakeSnapshot) Global(i uint64) (uint64, bool) {
	if i >= uint64(len(s.globals)) {
		return 0, false
	}
	return s.globals[i], true
}

func (s *fakeSnapshot) StackValue(i uint64) (uint64, bool) {
	if i >= uint64(len(s.stack)) {
		return 0, false
	}
	return s.stack[i], true
}

func (s *fakeSnapshot) ReadMemory(buf []byte, addr uint64) (int, error) {
	if addr+uint64(len(buf)) > uint64(len(s.memory)) {
		return 0, fmt.Errorf("read out of bounds at %#x", addr)
	}
	return copy(buf, s.memory[addr:]), nil
}

func wasmLocOp(class byte, idx uint64) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(DW_OP_WASM_location))
	buf.WriteByte(class)
	leb128.EncodeUnsigned(&buf, idx)
	return buf.Bytes()
}

func fbregOp(off int64) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(DW_OP_fbreg))
	leb128.EncodeSigned(&buf, off)
	return buf.Bytes()
}

func TestExecuteStackProgram(t *testing.T) {
	snap := &fakeSnapshot{
		locals:  []uint64{7, 0x1000},
		globals: []uint64{0x2000},
		stack:   []uint64{42},
		memory:  make([]byte, 0x3000),
	}
	binary.LittleEndian.PutUint32(snap.memory[0x1000:], 0xcafe)

	for _, tc := range []struct {
		name      string
		expr      []byte
		frameBase int64
		want      int64
		wantValue bool
	}{
		{"local value", wasmLocOp(wasmLocal, 0), 0, 7, true},
		{"global value", wasmLocOp(wasmGlobal, 0), 0, 0x2000, true},
		{"operand stack value", wasmLocOp(wasmStack, 0), 0, 42, true},
		{"local with stack_value", append(wasmLocOp(wasmLocal, 0), byte(DW_OP_stack_value)), 0, 7, true},
		{"local plus offset is an address", append(wasmLocOp(wasmLocal, 1), byte(DW_OP_plus_uconst), 8), 0, 0x1008, false},
		{"frame base offset", fbregOp(12), 0x100, 0x10c, false},
		{"negative frame base offset", fbregOp(-4), 0x100, 0xfc, false},
		{"address", []byte{byte(DW_OP_addr), 0x34, 0x12, 0x00, 0x00}, 0, 0x1234, false},
		{"literal", []byte{byte(DW_OP_lit0) + 5}, 0, 5, false},
		{"constu", append([]byte{byte(DW_OP_constu)}, 0x90, 0x3), 0, 400, false},
		{"consts negative", append([]byte{byte(DW_OP_consts)}, 0x7f), 0, -1, false},
		{"const2u", []byte{byte(DW_OP_const2u), 0xff, 0xff}, 0, 0xffff, false},
		{"const1s sign extension", []byte{byte(DW_OP_const1s), 0xff}, 0, -1, false},
		{"plus", []byte{byte(DW_OP_lit0) + 3, byte(DW_OP_lit0) + 4, byte(DW_OP_plus)}, 0, 7, false},
		{"minus", []byte{byte(DW_OP_lit0) + 9, byte(DW_OP_lit0) + 4, byte(DW_OP_minus)}, 0, 5, false},
		{"dup drop", []byte{byte(DW_OP_lit0) + 2, byte(DW_OP_dup), byte(DW_OP_drop)}, 0, 2, false},
		{"deref", append(wasmLocOp(wasmLocal, 1), byte(DW_OP_deref)), 0, 0xcafe, false},
	} {
		v, isValue, err := ExecuteStackProgram(snap, tc.frameBase, 0, tc.expr, 4)
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if v != tc.want || isValue != tc.wantValue {
			t.Errorf("%s: got (%#x, %v), want (%#x, %v)", tc.name, v, isValue, tc.want, tc.wantValue)
		}
	}
}

func TestExecuteStackProgramDataBase(t *testing.T) {
	expr := []byte{byte(DW_OP_addr), 0x10, 0x00, 0x00, 0x00}
	v, _, err := ExecuteStackProgram(&fakeSnapshot{}, 0, 0x400, expr, 4)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x410 {
		t.Errorf("got %#x, want 0x410", v)
	}
}

func TestExecuteStackProgramErrors(t *testing.T) {
	snap := &fakeSnapshot{}

	_, _, err := ExecuteStackProgram(snap, 0, 0, []byte{0xe0}, 4)
	if !errors.Is(err, ErrUnsupportedOp) {
		t.Errorf("unknown opcode: got %v, want ErrUnsupportedOp", err)
	}

	_, _, err = ExecuteStackProgram(snap, 0, 0, nil, 4)
	if err == nil {
		t.Error("empty program should fail")
	}

	_, _, err = ExecuteStackProgram(snap, 0, 0, wasmLocOp(wasmLocal, 3), 4)
	if err == nil {
		t.Error("missing local slot should fail")
	}

	_, _, err = ExecuteStackProgram(snap, 0, 0, wasmLocOp(0x7, 0), 4)
	if !errors.Is(err, ErrUnsupportedOp) {
		t.Errorf("unknown storage class: got %v, want ErrUnsupportedOp", err)
	}
}

func TestPrettyPrint(t *testing.T) {
	var out bytes.Buffer
	PrettyPrint(&out, append(wasmLocOp(wasmLocal, 2), byte(DW_OP_stack_value)))
	want := "DW_OP_WASM_location 0x0 2 DW_OP_stack_value "
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}
