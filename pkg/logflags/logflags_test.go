package logflags

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func resetFlags() {
	debugInfo = false
	debugLineErrors = false
	locate = false
	wasmLoad = false
}

func TestSetup(t *testing.T) {
	defer resetFlags()

	if err := Setup(true, "debuginfo,locate"); err != nil {
		t.Fatal(err)
	}
	if !DebugInfo() {
		t.Error("debuginfo flag not set")
	}
	if !Locate() {
		t.Error("locate flag not set")
	}
	if DebugLineErrors() {
		t.Error("debuglineerr flag set unexpectedly")
	}
}

func TestSetupAllComponents(t *testing.T) {
	defer resetFlags()

	if err := Setup(true, "debuglineerr,wasm"); err != nil {
		t.Fatal(err)
	}
	if !DebugLineErrors() {
		t.Error("debuglineerr flag not set")
	}
	if !WasmLoad() {
		t.Error("wasm flag not set")
	}
	if DebugInfo() || Locate() {
		t.Error("unrequested components enabled")
	}
}

func TestSetupDefaultComponent(t *testing.T) {
	defer resetFlags()

	if err := Setup(true, ""); err != nil {
		t.Fatal(err)
	}
	if !DebugInfo() {
		t.Error("empty --log-output should enable debuginfo")
	}
}

func TestSetupLogstrWithoutLog(t *testing.T) {
	defer resetFlags()

	if err := Setup(false, "debuginfo"); err == nil {
		t.Fatal("expected error for --log-output without --log")
	}
}

func TestMakeLoggerLevels(t *testing.T) {
	on := makeLogger(true, logrus.Fields{"layer": "debuginfo"})
	if on.Logger.Level != logrus.DebugLevel {
		t.Errorf("enabled logger level = %v", on.Logger.Level)
	}
	off := makeLogger(false, logrus.Fields{"layer": "debuginfo"})
	if off.Logger.Level != logrus.PanicLevel {
		t.Errorf("disabled logger level = %v", off.Logger.Level)
	}
}
