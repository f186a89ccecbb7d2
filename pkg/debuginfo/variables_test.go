package debuginfo

import (
	"encoding/binary"
	"errors"
	"testing"
)

func testSnapshot() *RuntimeSnapshot {
	snap := &RuntimeSnapshot{
		Locals:    []uint64{3, 0xffffffff, 0xffffffff},
		Globals:   []uint64{11},
		Stack:     []uint64{0},
		Memory:    make([]byte, 2048),
		FrameBase: 100,
	}
	// g_count at data base 1024 + 0x10
	binary.LittleEndian.PutUint32(snap.Memory[1024+0x10:], 7)
	// helper's p at frame base 100 + 8
	binary.LittleEndian.PutUint32(snap.Memory[108:], 1)
	binary.LittleEndian.PutUint32(snap.Memory[112:], 2)
	return snap
}

func TestGetVariableInfoLocal(t *testing.T) {
	di := load(t)
	snap := testSnapshot()

	vi, err := di.GetVariableInfo("argc", snap, 0x15)
	if err != nil {
		t.Fatal(err)
	}
	if vi.ByteSize != 4 {
		t.Errorf("ByteSize = %d", vi.ByteSize)
	}
	if s, ok := vi.Format(); !ok || s != "3" {
		t.Errorf("Format = %q, %v", s, ok)
	}
}

func TestGetVariableInfoSignedDecode(t *testing.T) {
	di := load(t)
	snap := testSnapshot()

	// local 1 holds 0xffffffff, typed int
	vi, err := di.GetVariableInfo("x", snap, 0x15)
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := vi.Format(); !ok || s != "-1" {
		t.Errorf("Format = %q, %v, want -1", s, ok)
	}
}

func TestGetVariableInfoShadowing(t *testing.T) {
	di := load(t)
	snap := testSnapshot()

	// inside the block the unsigned x from local 2 shadows the signed one
	vi, err := di.GetVariableInfo("x", snap, 0x20)
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := vi.Format(); !ok || s != "4294967295" {
		t.Errorf("Format = %q, %v, want 4294967295", s, ok)
	}
}

func TestGetVariableInfoStruct(t *testing.T) {
	di := load(t)
	snap := testSnapshot()

	vi, err := di.GetVariableInfo("p", snap, 0x45)
	if err != nil {
		t.Fatal(err)
	}
	if vi.Address != 108 {
		t.Errorf("Address = %d, want 108", vi.Address)
	}
	if vi.ByteSize != 8 {
		t.Errorf("ByteSize = %d, want 8", vi.ByteSize)
	}
	if s, ok := vi.Format(); !ok || s != "{x: 1, y: 2}" {
		t.Errorf("Format = %q, %v", s, ok)
	}
}

func TestGetVariableInfoGlobal(t *testing.T) {
	di := load(t)
	snap := testSnapshot()

	vi, err := di.GetVariableInfo("g_count", snap, 0x15)
	if err != nil {
		t.Fatal(err)
	}
	if vi.Address != 1024+0x10 {
		t.Errorf("Address = %d, want %d", vi.Address, 1024+0x10)
	}
	if s, ok := vi.Format(); !ok || s != "7" {
		t.Errorf("Format = %q, %v", s, ok)
	}
}

func TestGetVariableInfoNotFound(t *testing.T) {
	di := load(t)
	snap := testSnapshot()

	if _, err := di.GetVariableInfo("nope", snap, 0x15); !errors.Is(err, ErrVariableNotFound) {
		t.Errorf("err = %v, want ErrVariableNotFound", err)
	}
	// out of the block, the inner x's local is never consulted
	if _, err := di.GetVariableInfo("p", snap, 0x15); !errors.Is(err, ErrVariableNotFound) {
		t.Errorf("err = %v, want ErrVariableNotFound", err)
	}
}

func TestGetVariableInfoShortMemory(t *testing.T) {
	di := load(t)
	snap := testSnapshot()
	snap.Memory = snap.Memory[:64]

	if _, err := di.GetVariableInfo("g_count", snap, 0x15); err == nil {
		t.Error("expected read failure for truncated memory")
	}
}
