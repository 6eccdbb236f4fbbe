// Package log holds the package-level logger used across temporalcol,
// mirroring the convention of a single shared go-kit logger that every
// package logs through rather than constructing its own.
package log

import (
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Logger is the process-wide logger. Tests may swap it out to capture
// output; production callers may replace it at process start to route
// temporalcol's (sparse) structural logs into their own logging pipeline.
var Logger = newDefaultLogger()

func newDefaultLogger() log.Logger {
	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	l = level.NewFilter(l, level.AllowInfo())
	l = log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return l
}

// Debug, Info, Warn and Error are re-exported so call sites write
// log.Debug(log.Logger), the same shape as go-kit's level.Debug(logger),
// without importing go-kit/log/level everywhere.
var (
	Debug = level.Debug
	Info  = level.Info
	Warn  = level.Warn
	Error = level.Error
)
