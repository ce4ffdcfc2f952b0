package otel

import (
	"os"
	"sync/atomic"
)

// TraceEnv turns on per-tick tracing: tick events reach the disk log and
// the TUI logs every message it receives.
const TraceEnv = "EMOGRAPH_TRACE"

var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv(TraceEnv) != "")
}

// TraceEnabled reports whether TraceEnv was set at startup.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

func setTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
