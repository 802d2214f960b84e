//go:build js && wasm
// +build js,wasm

// Package debug routes the library debug hooks to the browser console
package debug

import (
	"fmt"
	"strings"
	"syscall/js"

	"github.com/recera/patchview/pkg/drag"
	"github.com/recera/patchview/pkg/reactive"
	"github.com/recera/patchview/pkg/refresh"
	"github.com/recera/patchview/pkg/scheduler"
)

// EnableLogging sends debug output of every instrumented package to the console
func EnableLogging() {
	scheduler.SetDebugLog(Log)
	reactive.SetDebugLog(Log)
	drag.SetDebugLog(Log)
	refresh.SetDebugLog(Log)
}

// DisableLogging clears the hooks set by EnableLogging
func DisableLogging() {
	scheduler.SetDebugLog(nil)
	reactive.SetDebugLog(nil)
	drag.SetDebugLog(nil)
	refresh.SetDebugLog(nil)
}

// Log logs a message to the console. Arguments are formatted on the Go side
// since js.ValueOf only accepts primitive values.
func Log(args ...interface{}) {
	js.Global().Get("console").Call("log", strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

// Logf logs a formatted message to the console
func Logf(format string, args ...interface{}) {
	js.Global().Get("console").Call("log", fmt.Sprintf(format, args...))
}
