package godwarf

import (
	"debug/dwarf"
	"testing"

	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/dwarfbuilder"
)

func loadTestData(t *testing.T, abbrev, info []byte) *dwarf.Data {
	t.Helper()
	dw, err := dwarf.New(abbrev, nil, nil, info, nil, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return dw
}

func TestLoadTree(t *testing.T) {
	b := dwarfbuilder.New()
	b.AddCompileUnit("main.c", "/tmp", 0x100, 0x200, 0)
	intOff := b.AddBaseType("int", AteSigned, 4)
	fnOff := b.AddSubprogram("fn", 0x100, 0x150)
	b.AddFormalParameter("a", intOff, []byte{0x30})
	b.AddLexicalBlock(0x110, 0x130)
	b.AddVariable("v", intOff, []byte{0x30})
	b.TagClose() // lexical block
	b.TagClose() // subprogram
	b.TagClose() // compile unit

	abbrev, info, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	dw := loadTestData(t, abbrev, info)

	tree, err := LoadTree(fnOff, dw)
	if err != nil {
		t.Fatal(err)
	}

	if tree.Tag != dwarf.TagSubprogram {
		t.Fatalf("root tag = %s", tree.Tag)
	}
	if name, _ := tree.Val(dwarf.AttrName).(string); name != "fn" {
		t.Errorf("root name = %q", name)
	}
	if tree.LowPC() != 0x100 || tree.HighPC() != 0x150 {
		t.Errorf("root range = [%#x, %#x)", tree.LowPC(), tree.HighPC())
	}
	if len(tree.Children) != 2 {
		t.Fatalf("got %d children", len(tree.Children))
	}
	if tree.Children[0].Tag != dwarf.TagFormalParameter {
		t.Errorf("child 0 tag = %s", tree.Children[0].Tag)
	}
	block := tree.Children[1]
	if block.Tag != dwarf.TagLexDwarfBlock {
		t.Fatalf("child 1 tag = %s", block.Tag)
	}
	if !block.ContainsPC(0x110) || !block.ContainsPC(0x12f) || block.ContainsPC(0x130) {
		t.Errorf("block range wrong: %v", block.Ranges)
	}
	if len(block.Children) != 1 || block.Children[0].Tag != dwarf.TagVariable {
		t.Errorf("block children wrong")
	}
}

func TestContainsPCEmptyRange(t *testing.T) {
	tree := &Tree{}
	if tree.ContainsPC(0) {
		t.Error("zero-width tree should contain no pc")
	}
	if tree.LowPC() != 0 || tree.HighPC() != 0 {
		t.Error("zero-width tree should report zero bounds")
	}
}

func TestNormalizeRanges(t *testing.T) {
	for _, tc := range []struct {
		in, want [][2]uint64
	}{
		{nil, nil},
		{[][2]uint64{{0x10, 0x20}}, [][2]uint64{{0x10, 0x20}}},
		// overlapping entries are fused
		{[][2]uint64{{0x10, 0x20}, {0x18, 0x30}}, [][2]uint64{{0x10, 0x30}}},
		// out of order entries are sorted
		{[][2]uint64{{0x30, 0x40}, {0x10, 0x20}}, [][2]uint64{{0x10, 0x20}, {0x30, 0x40}}},
		// invalid entries are dropped
		{[][2]uint64{{0x20, 0x10}}, nil},
	} {
		got := normalizeRanges(tc.in)
		if len(got) != len(tc.want) {
			t.Errorf("normalizeRanges(%v) = %v, want %v", tc.in, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("normalizeRanges(%v) = %v, want %v", tc.in, got, tc.want)
			}
		}
	}
}
