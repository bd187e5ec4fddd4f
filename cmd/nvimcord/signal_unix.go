//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals are the signals that stop serve. Process managers send
// SIGTERM; Neovim sends it to jobs on exit.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
