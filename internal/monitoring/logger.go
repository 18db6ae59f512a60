// Package monitoring holds the diagnostic logging hook shared by the
// mapping engine and the LED driver.
package monitoring

import "log"

// Logf is the package-level diagnostic logger used for non-fatal conditions
// inside the engine (trim clamps, unclaimed LEDs, dropped frames). It
// defaults to log.Printf; callers embedding the engine can redirect or mute
// it with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
