// Package monitoring holds the process-wide diagnostic logger used by the
// pipeline packages. Keeping it behind an indirection lets tests mute the
// output and lets binaries redirect it without threading a logger through
// every constructor.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}
