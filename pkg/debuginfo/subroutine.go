package debuginfo

import (
	"debug/dwarf"

	"github.com/wasmdbg/wasmdwarf/pkg/dwarf/godwarf"
)

// Subroutine describes one function in the module.
type Subroutine struct {
	Name       string
	Tree       *godwarf.Tree
	UnitOffset dwarf.Offset
	FrameBase  []byte
}

// LowPC returns the subroutine entry offset.
func (fn *Subroutine) LowPC() uint64 { return fn.Tree.LowPC() }

// HighPC returns the first offset past the subroutine.
func (fn *Subroutine) HighPC() uint64 { return fn.Tree.HighPC() }

// ContainsPC reports whether off falls inside the subroutine.
func (fn *Subroutine) ContainsPC(off uint64) bool { return fn.Tree.ContainsPC(off) }

func collectSubroutines(unit *godwarf.Tree, unitOffset dwarf.Offset, out []*Subroutine) []*Subroutine {
	for _, child := range unit.Children {
		if child.Tag != dwarf.TagSubprogram {
			continue
		}
		name, _ := child.Val(dwarf.AttrName).(string)
		fn := &Subroutine{
			Name:       name,
			Tree:       child,
			UnitOffset: unitOffset,
		}
		if fb, ok := child.Val(dwarf.AttrFrameBase).([]byte); ok {
			fn.FrameBase = fb
		}
		out = append(out, fn)
	}
	return out
}

// scopeVariables returns the variable and formal parameter entries visible at
// off, innermost scope first. A shadowed name appears once per declaring
// scope.
func (fn *Subroutine) scopeVariables(off uint64) []*godwarf.Tree {
	var vars []*godwarf.Tree
	collectScope(fn.Tree, off, &vars)
	return vars
}

func collectScope(node *godwarf.Tree, off uint64, vars *[]*godwarf.Tree) {
	for _, child := range node.Children {
		switch child.Tag {
		case dwarf.TagLexDwarfBlock, dwarf.TagSubprogram:
			// a block with no address range covers nothing
			if child.ContainsPC(off) {
				collectScope(child, off, vars)
			}
		}
	}
	for _, child := range node.Children {
		switch child.Tag {
		case dwarf.TagVariable, dwarf.TagFormalParameter:
			*vars = append(*vars, child)
		}
	}
}
