// Package rlog provides the leveled logging used across the build driver.
//
// It wraps the standard library's log package rather than pulling in a
// structured logging framework. Only warnings and errors
// carry a level prefix; informational build progress is unprefixed to stay
// script-friendly.
package rlog

import (
	"log"
	"os"
)

var std = log.New(os.Stderr, "", 0)

// Info prints an unprefixed progress line.
func Info(format string, args ...interface{}) {
	std.Printf(format, args...)
}

// Warn prints a recoverable-failure line: persistence, scanner, and
// resolution-miss failures that must never abort a build.
func Warn(format string, args ...interface{}) {
	std.Printf("[warn] "+format, args...)
}

// Error prints a line for a condition that will abort the run.
func Error(format string, args ...interface{}) {
	std.Printf("[error] "+format, args...)
}
