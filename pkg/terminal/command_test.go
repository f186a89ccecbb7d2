package terminal

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wasmdbg/wasmdwarf/pkg/config"
	"github.com/wasmdbg/wasmdwarf/pkg/debuginfo"
)

func emptyTerm(t *testing.T) (*Term, *bytes.Buffer) {
	t.Helper()
	di, err := debuginfo.New([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	term := &Term{
		di:     di,
		conf:   &config.Config{},
		cmds:   DebugCommands(di),
		dumb:   true,
		stdout: &buf,
	}
	return term, &buf
}

func TestCommandDefault(t *testing.T) {
	term, _ := emptyTerm(t)
	if err := term.cmds.Call("doesnotexist", term); err != errNoCmd {
		t.Fatalf("err = %v, want errNoCmd", err)
	}
}

func TestCommandMatch(t *testing.T) {
	cmds := DebugCommands(nil)
	for _, alias := range []string{"print", "p", "help", "h", "quit"} {
		found := false
		for _, cmd := range cmds.cmds {
			if cmd.match(alias) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no command matches %q", alias)
		}
	}
}

func TestCommandMerge(t *testing.T) {
	cmds := DebugCommands(nil)
	cmds.Merge(map[string][]string{"line": {"whereami"}})
	found := false
	for _, cmd := range cmds.cmds {
		if cmd.match("whereami") {
			found = true
		}
	}
	if !found {
		t.Error("merged alias not registered")
	}
}

func TestHelpListsEveryCommand(t *testing.T) {
	term, buf := emptyTerm(t)
	if err := term.cmds.Call("help", term); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, cmd := range term.cmds.cmds {
		if !strings.Contains(out, cmd.aliases[0]) {
			t.Errorf("help does not mention %q", cmd.aliases[0])
		}
	}
}

func TestEmptyCommandIsNoop(t *testing.T) {
	term, _ := emptyTerm(t)
	if err := term.cmds.Call("   ", term); err != nil {
		t.Fatalf("blank command returned %v", err)
	}
}

func TestExitRequest(t *testing.T) {
	term, _ := emptyTerm(t)
	err := term.cmds.Call("quit", term)
	if _, ok := err.(ExitRequestError); !ok {
		t.Fatalf("err = %v, want ExitRequestError", err)
	}
}

func TestLineCmdNoDebugInfo(t *testing.T) {
	term, _ := emptyTerm(t)
	if err := term.cmds.Call("line 0x20", term); err == nil {
		t.Fatal("expected error on module without debug info")
	}
}

func TestPrintRequiresSnapshot(t *testing.T) {
	term, _ := emptyTerm(t)
	err := term.cmds.Call("print x 0x20", term)
	if err == nil || !strings.Contains(err.Error(), "snapshot") {
		t.Fatalf("err = %v, want snapshot hint", err)
	}
}

func TestConfigSet(t *testing.T) {
	term, _ := emptyTerm(t)
	if err := term.cmds.Call("config max-string-len 10", term); err != nil {
		t.Fatal(err)
	}
	if term.conf.MaxStringLen == nil || *term.conf.MaxStringLen != 10 {
		t.Errorf("MaxStringLen = %v", term.conf.MaxStringLen)
	}
	if err := term.cmds.Call("config show-location-expr true", term); err != nil {
		t.Fatal(err)
	}
	if !term.conf.ShowLocationExpr {
		t.Error("ShowLocationExpr not set")
	}
	if err := term.cmds.Call("config no-such-parameter 1", term); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestConfigList(t *testing.T) {
	term, buf := emptyTerm(t)
	if err := term.cmds.Call("config -list", term); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, param := range []string{"max-string-len", "max-array-values", "show-location-expr", "source-list-line-color"} {
		if !strings.Contains(out, param) {
			t.Errorf("config -list does not mention %q", param)
		}
	}
}

func TestConfigAlias(t *testing.T) {
	term, _ := emptyTerm(t)
	if err := term.cmds.Call("config alias line ll", term); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, cmd := range term.cmds.cmds {
		if cmd.match("ll") {
			found = true
		}
	}
	if !found {
		t.Error("alias ll not registered for line")
	}
}

func TestLoadSnapshotInlineMemory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.yml")
	body := `locals: [1, 4294967295]
globals: [7]
stack: []
frame-base: 64
memory: "0102 03ff"
`
	if err := ioutil.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	snap, err := LoadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Locals) != 2 || snap.Locals[1] != 4294967295 {
		t.Errorf("Locals = %v", snap.Locals)
	}
	if snap.FrameBase != 64 {
		t.Errorf("FrameBase = %d", snap.FrameBase)
	}
	if !bytes.Equal(snap.Memory, []byte{0x01, 0x02, 0x03, 0xff}) {
		t.Errorf("Memory = %x", snap.Memory)
	}
}

func TestLoadSnapshotMemoryFile(t *testing.T) {
	dir := t.TempDir()
	memPath := filepath.Join(dir, "mem.bin")
	if err := ioutil.WriteFile(memPath, []byte{9, 8, 7}, 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "snap.yml")
	body := "locals: [3]\nmemory-file: " + memPath + "\n"
	if err := ioutil.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	snap, err := LoadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(snap.Memory, []byte{9, 8, 7}) {
		t.Errorf("Memory = %x", snap.Memory)
	}
}

func TestLoadSnapshotConflictingMemory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.yml")
	body := "memory: \"00\"\nmemory-file: also.bin\n"
	if err := ioutil.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Fatal("expected error for conflicting memory sources")
	}
}
