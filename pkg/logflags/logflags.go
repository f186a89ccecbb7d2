package logflags

import (
	"errors"
	"io/ioutil"
	"log"
	"strings"

	"github.com/sirupsen/logrus"
)

var debugInfo = false
var debugLineErrors = false
var locate = false
var wasmLoad = false

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New().WithFields(fields)
	logger.Logger.Level = logrus.DebugLevel
	if !flag {
		logger.Logger.Level = logrus.PanicLevel
	}
	return logger
}

// DebugInfo returns true if the debuginfo package should log.
func DebugInfo() bool {
	return debugInfo
}

// DebugInfoLogger returns a logger for the debuginfo package.
func DebugInfoLogger() *logrus.Entry {
	return makeLogger(debugInfo, logrus.Fields{"layer": "debuginfo"})
}

// DebugLineErrors returns true if pkg/dwarf/line should log its recoverable
// errors.
func DebugLineErrors() bool {
	return debugLineErrors
}

// Locate returns true if location expression evaluation should be logged.
func Locate() bool {
	return locate
}

// LocateLogger returns a logger for location expression evaluation.
func LocateLogger() *logrus.Entry {
	return makeLogger(locate, logrus.Fields{"layer": "locate"})
}

// WasmLoad returns true if the module section loader should log.
func WasmLoad() bool {
	return wasmLoad
}

// WasmLoadLogger returns a logger for the module section loader.
func WasmLoadLogger() *logrus.Entry {
	return makeLogger(wasmLoad, logrus.Fields{"layer": "wasm"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets logging flags based on the contents of logstr.
func Setup(logFlag bool, logstr string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "debuginfo"
	}
	v := strings.Split(logstr, ",")
	for _, logcmd := range v {
		switch logcmd {
		case "debuginfo":
			debugInfo = true
		case "debuglineerr":
			debugLineErrors = true
		case "locate":
			locate = true
		case "wasm":
			wasmLoad = true
		}
	}
	return nil
}
