//go:build windows

package main

import "os"

// shutdownSignals are the signals that stop serve. Windows has no SIGTERM;
// the runtime maps CTRL_BREAK_EVENT and console close to os.Interrupt.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
