//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

// System hotkey registration must happen on the main OS thread.
func main() {
	mainthread.Init(run)
}
