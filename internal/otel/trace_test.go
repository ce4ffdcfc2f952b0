package otel

import "testing"

func TestTraceToggle(t *testing.T) {
	orig := TraceEnabled()
	defer setTraceEnabled(orig)

	for _, on := range []bool{true, false} {
		setTraceEnabled(on)
		if TraceEnabled() != on {
			t.Fatalf("TraceEnabled() = %v after set(%v)", TraceEnabled(), on)
		}
	}
}
