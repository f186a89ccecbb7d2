package debuginfo

import "fmt"

// RuntimeSnapshot is the runtime state of a paused wasm instance, supplied
// by the host per query. The engine only reads through it, and the snapshot
// has no lifetime tie to the DebugInfo beyond the call.
type RuntimeSnapshot struct {
	// Locals are the current function's local slots (parameters included),
	// Globals the module globals, Stack the operand stack. Values are the
	// raw 64-bit representation of each slot.
	Locals  []uint64
	Globals []uint64
	Stack   []uint64

	// Memory is the linear memory of the instance, or the prefix of it the
	// host chose to expose.
	Memory []byte

	// FrameBase is the resolved frame base address, 0 when the engine
	// should derive it from the subprogram's frame base expression.
	FrameBase int64
}

// Local implements op.Snapshot.
func (s *RuntimeSnapshot) Local(i uint64) (uint64, bool) {
	if i >= uint64(len(s.Locals)) {
		return 0, false
	}
	return s.Locals[i], true
}

// Global implements op.Snapshot.
func (s *RuntimeSnapshot) Global(i uint64) (uint64, bool) {
	if i >= uint64(len(s.Globals)) {
		return 0, false
	}
	return s.Globals[i], true
}

// StackValue implements op.Snapshot.
func (s *RuntimeSnapshot) StackValue(i uint64) (uint64, bool) {
	if i >= uint64(len(s.Stack)) {
		return 0, false
	}
	return s.Stack[i], true
}

// ReadMemory implements op.Snapshot.
func (s *RuntimeSnapshot) ReadMemory(buf []byte, addr uint64) (int, error) {
	if addr >= uint64(len(s.Memory)) || addr+uint64(len(buf)) > uint64(len(s.Memory)) {
		return 0, fmt.Errorf("memory read of %d bytes at %#x is out of bounds", len(buf), addr)
	}
	return copy(buf, s.Memory[addr:]), nil
}
