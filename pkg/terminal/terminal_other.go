//go:build !windows

package terminal

import (
	"io"
	"os"
)

// getColorableWriter returns stdout, which handles ANSI escape codes by
// itself everywhere but on Windows.
func getColorableWriter() io.Writer {
	return os.Stdout
}
