// Package op implements an evaluator for DWARF location expressions
// against a WebAssembly runtime state.
//
// Expressions are straight-line stack programs: every operation pushes
// constants or runtime slot values and combines them through arithmetic or
// memory dereference. The result is either an address in linear memory or,
// when the program ends in DW_OP_stack_value or a bare DW_OP_WASM_location,
// the value itself.
package op

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/leb128"
	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/util"
	"github.com/wasmdbg/wasmdwarf/pkg/logflags"
)

// Opcode represents a DWARF location expression instruction.
type Opcode byte

// ErrUnsupportedOp is returned when the expression uses an operation the
// evaluator does not recognize. Callers report the variable as unavailable
// instead of guessing.
var ErrUnsupportedOp = errors.New("unsupported location expression operation")

// Snapshot gives a location expression read access to the runtime state of
// the target. Implementations never get mutated through this interface.
type Snapshot interface {
	// Local returns the value of the i-th function local.
	Local(i uint64) (uint64, bool)
	// Global returns the value of the i-th module global.
	Global(i uint64) (uint64, bool)
	// StackValue returns the i-th value of the operand stack.
	StackValue(i uint64) (uint64, bool)
	// ReadMemory reads len(buf) bytes of linear memory at addr.
	ReadMemory(buf []byte, addr uint64) (int, error)
}

type stackfn func(Opcode, *context) error

type context struct {
	buf     *bytes.Buffer
	stack   []int64
	reg     bool // top of stack is a runtime slot value, not an address
	isValue bool // DW_OP_stack_value seen
	ptrSize int

	snapshot  Snapshot
	frameBase int64
	dataBase  uint64
}

// ExecuteStackProgram executes the location expression in instructions.
// It returns the value left on top of the operand stack and whether that
// value is the variable's value itself (true) or an address in linear
// memory where the value lives (false).
//
// frameBase is the resolved DW_AT_frame_base of the enclosing subprogram,
// dataBase the load offset of the data segment, added to DW_OP_addr
// operands.
func ExecuteStackProgram(snap Snapshot, frameBase int64, dataBase uint64, instructions []byte, ptrSize int) (int64, bool, error) {
	ctxt := &context{
		buf:       bytes.NewBuffer(instructions),
		stack:     make([]int64, 0, 3),
		ptrSize:   ptrSize,
		snapshot:  snap,
		frameBase: frameBase,
		dataBase:  dataBase,
	}

	for {
		opcodeByte, err := ctxt.buf.ReadByte()
		if err != nil {
			break
		}
		opcode := Opcode(opcodeByte)
		fn, ok := oplut[opcode]
		if !ok {
			if opcode >= DW_OP_lit0 && opcode <= DW_OP_lit31 {
				fn = literal
			} else {
				return 0, false, fmt.Errorf("%w: %#x", ErrUnsupportedOp, opcodeByte)
			}
		}
		if opcode != DW_OP_WASM_location && opcode != DW_OP_stack_value {
			ctxt.reg = false
		}

		if err := fn(opcode, ctxt); err != nil {
			return 0, false, err
		}
	}

	if len(ctxt.stack) == 0 {
		return 0, false, errors.New("empty location expression stack")
	}

	result := ctxt.stack[len(ctxt.stack)-1]
	if logflags.Locate() {
		logflags.LocateLogger().Debugf("%x => %#x (isValue %v)", instructions, result, ctxt.isValue || ctxt.reg)
	}
	return result, ctxt.isValue || ctxt.reg, nil
}

// PrettyPrint writes a human readable rendering of the location expression
// to out.
func PrettyPrint(out io.Writer, instructions []byte) {
	in := bytes.NewBuffer(instructions)

	for {
		opcode, err := in.ReadByte()
		if err != nil {
			break
		}
		op := Opcode(opcode)
		if op >= DW_OP_lit0 && op <= DW_OP_lit31 {
			fmt.Fprintf(out, "DW_OP_lit%d ", op-DW_OP_lit0)
			continue
		}
		if name, hasname := opcodeName[op]; hasname {
			io.WriteString(out, name)
			out.Write([]byte{' '})
		} else {
			fmt.Fprintf(out, "%#x ", opcode)
		}
		for _, arg := range opcodeArgs[op] {
			switch arg {
			case 's':
				n, _ := leb128.DecodeSigned(in)
				fmt.Fprintf(out, "%#x ", n)
			case 'u':
				n, _ := leb128.DecodeUnsigned(in)
				fmt.Fprintf(out, "%#x ", n)
			case '1':
				var x uint8
				binary.Read(in, binary.LittleEndian, &x)
				fmt.Fprintf(out, "%#x ", x)
			case '2':
				var x uint16
				binary.Read(in, binary.LittleEndian, &x)
				fmt.Fprintf(out, "%#x ", x)
			case '4':
				var x uint32
				binary.Read(in, binary.LittleEndian, &x)
				fmt.Fprintf(out, "%#x ", x)
			case '8':
				var x uint64
				binary.Read(in, binary.LittleEndian, &x)
				fmt.Fprintf(out, "%#x ", x)
			case 'a':
				var x uint32
				binary.Read(in, binary.LittleEndian, &x)
				fmt.Fprintf(out, "%#x ", x)
			case 'w':
				class, _ := leb128.DecodeUnsigned(in)
				var idx uint64
				if class == wasmGlobalU32 {
					var x uint32
					binary.Read(in, binary.LittleEndian, &x)
					idx = uint64(x)
				} else {
					idx, _ = leb128.DecodeUnsigned(in)
				}
				fmt.Fprintf(out, "%#x %d ", class, idx)
			}
		}
	}
}

func addr(opcode Opcode, ctxt *context) error {
	buf := ctxt.buf.Next(ctxt.ptrSize)
	stack, err := util.ReadUintRaw(bytes.NewReader(buf), binary.LittleEndian, ctxt.ptrSize)
	if err != nil {
		return err
	}
	ctxt.stack = append(ctxt.stack, int64(stack+ctxt.dataBase))
	return nil
}

func deref(opcode Opcode, ctxt *context) error {
	if len(ctxt.stack) == 0 {
		return errors.New("empty location expression stack")
	}
	address := ctxt.stack[len(ctxt.stack)-1]

	buf := make([]byte, ctxt.ptrSize)
	if _, err := ctxt.snapshot.ReadMemory(buf, uint64(address)); err != nil {
		return err
	}
	val, err := util.ReadUintRaw(bytes.NewReader(buf), binary.LittleEndian, ctxt.ptrSize)
	if err != nil {
		return err
	}
	ctxt.stack[len(ctxt.stack)-1] = int64(val)
	return nil
}

func constnu(opcode Opcode, ctxt *context) error {
	width := 1 << ((opcode - DW_OP_const1u) / 2)
	n, err := util.ReadUintRaw(ctxt.buf, binary.LittleEndian, int(width))
	if err != nil {
		return err
	}
	ctxt.stack = append(ctxt.stack, int64(n))
	return nil
}

func constns(opcode Opcode, ctxt *context) error {
	width := 1 << ((opcode - DW_OP_const1s) / 2)
	n, err := util.ReadUintRaw(ctxt.buf, binary.LittleEndian, int(width))
	if err != nil {
		return err
	}
	// sign extend
	shift := uint(64 - width*8)
	ctxt.stack = append(ctxt.stack, int64(n)<<shift>>shift)
	return nil
}

func constu(opcode Opcode, ctxt *context) error {
	num, _ := leb128.DecodeUnsigned(ctxt.buf)
	ctxt.stack = append(ctxt.stack, int64(num))
	return nil
}

func consts(opcode Opcode, ctxt *context) error {
	num, _ := leb128.DecodeSigned(ctxt.buf)
	ctxt.stack = append(ctxt.stack, num)
	return nil
}

func literal(opcode Opcode, ctxt *context) error {
	ctxt.stack = append(ctxt.stack, int64(opcode-DW_OP_lit0))
	return nil
}

func dup(opcode Opcode, ctxt *context) error {
	if len(ctxt.stack) == 0 {
		return errors.New("empty location expression stack")
	}
	ctxt.stack = append(ctxt.stack, ctxt.stack[len(ctxt.stack)-1])
	return nil
}

func drop(opcode Opcode, ctxt *context) error {
	if len(ctxt.stack) == 0 {
		return errors.New("empty location expression stack")
	}
	ctxt.stack = ctxt.stack[:len(ctxt.stack)-1]
	return nil
}

func plus(opcode Opcode, ctxt *context) error {
	if len(ctxt.stack) < 2 {
		return errors.New("not enough operands on location expression stack")
	}
	var (
		slen   = len(ctxt.stack)
		digits = ctxt.stack[slen-2 : slen]
		st     = ctxt.stack[:slen-2]
	)

	ctxt.stack = append(st, digits[0]+digits[1])
	return nil
}

func minus(opcode Opcode, ctxt *context) error {
	if len(ctxt.stack) < 2 {
		return errors.New("not enough operands on location expression stack")
	}
	var (
		slen   = len(ctxt.stack)
		digits = ctxt.stack[slen-2 : slen]
		st     = ctxt.stack[:slen-2]
	)

	ctxt.stack = append(st, digits[0]-digits[1])
	return nil
}

func plusuconsts(opcode Opcode, ctxt *context) error {
	if len(ctxt.stack) == 0 {
		return errors.New("empty location expression stack")
	}
	slen := len(ctxt.stack)
	num, _ := leb128.DecodeUnsigned(ctxt.buf)
	ctxt.stack[slen-1] = ctxt.stack[slen-1] + int64(num)
	return nil
}

func framebase(opcode Opcode, ctxt *context) error {
	num, _ := leb128.DecodeSigned(ctxt.buf)
	ctxt.stack = append(ctxt.stack, ctxt.frameBase+num)
	return nil
}

func stackvalue(opcode Opcode, ctxt *context) error {
	ctxt.isValue = true
	return nil
}

func wasmloc(opcode Opcode, ctxt *context) error {
	class, n := leb128.DecodeUnsigned(ctxt.buf)
	if n == 0 {
		return fmt.Errorf("%w: truncated DW_OP_WASM_location", ErrUnsupportedOp)
	}

	var (
		val uint64
		ok  bool
	)
	switch class {
	case wasmLocal:
		idx, _ := leb128.DecodeUnsigned(ctxt.buf)
		val, ok = ctxt.snapshot.Local(idx)
	case wasmGlobal:
		idx, _ := leb128.DecodeUnsigned(ctxt.buf)
		val, ok = ctxt.snapshot.Global(idx)
	case wasmStack:
		idx, _ := leb128.DecodeUnsigned(ctxt.buf)
		val, ok = ctxt.snapshot.StackValue(idx)
	case wasmGlobalU32:
		var idx uint32
		if err := binary.Read(ctxt.buf, binary.LittleEndian, &idx); err != nil {
			return err
		}
		val, ok = ctxt.snapshot.Global(uint64(idx))
	default:
		return fmt.Errorf("%w: DW_OP_WASM_location class %#x", ErrUnsupportedOp, class)
	}
	if !ok {
		return fmt.Errorf("runtime state has no slot for DW_OP_WASM_location class %#x", class)
	}

	ctxt.stack = append(ctxt.stack, int64(val))
	ctxt.reg = true
	return nil
}
