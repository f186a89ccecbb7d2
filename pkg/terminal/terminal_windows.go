//go:build windows

package terminal

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
)

// getColorableWriter returns a stdout writer that understands ANSI escape
// codes. ConEmu interprets them natively, the stock console needs the
// colorable translation layer.
func getColorableWriter() io.Writer {
	if strings.ToLower(os.Getenv("ConEmuANSI")) == "on" {
		return os.Stdout
	}
	return colorable.NewColorableStdout()
}
