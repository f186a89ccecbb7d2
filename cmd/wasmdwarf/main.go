package main

import (
	"os"

	"github.com/wasmdbg/wasmdwarf/cmd/wasmdwarf/cmds"
)

func main() {
	if err := cmds.New().Execute(); err != nil {
		os.Exit(1)
	}
}
