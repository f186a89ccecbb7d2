package terminal

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/wasmdbg/wasmdwarf/pkg/debuginfo"
)

// snapshotFile is the on-disk form of a runtime snapshot. Memory is either
// inline hex or a path to a raw dump, not both.
type snapshotFile struct {
	Locals     []uint64 `yaml:"locals"`
	Globals    []uint64 `yaml:"globals"`
	Stack      []uint64 `yaml:"stack"`
	FrameBase  int64    `yaml:"frame-base"`
	Memory     string   `yaml:"memory,omitempty"`
	MemoryFile string   `yaml:"memory-file,omitempty"`
}

// LoadSnapshot reads a runtime snapshot description from a YAML file.
func LoadSnapshot(path string) (*debuginfo.RuntimeSnapshot, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sf snapshotFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %v", path, err)
	}

	snap := &debuginfo.RuntimeSnapshot{
		Locals:    sf.Locals,
		Globals:   sf.Globals,
		Stack:     sf.Stack,
		FrameBase: sf.FrameBase,
	}

	switch {
	case sf.Memory != "" && sf.MemoryFile != "":
		return nil, fmt.Errorf("snapshot %s: memory and memory-file are mutually exclusive", path)
	case sf.Memory != "":
		mem, err := hex.DecodeString(strings.Map(dropSpace, sf.Memory))
		if err != nil {
			return nil, fmt.Errorf("decoding snapshot memory: %v", err)
		}
		snap.Memory = mem
	case sf.MemoryFile != "":
		mem, err := ioutil.ReadFile(sf.MemoryFile)
		if err != nil {
			return nil, fmt.Errorf("reading snapshot memory: %v", err)
		}
		snap.Memory = mem
	}

	return snap, nil
}

func dropSpace(r rune) rune {
	switch r {
	case ' ', '\t', '\n', '\r':
		return -1
	}
	return r
}
