// Package otel records structured playback events for emograph.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional RingBuffer keeps recent events in memory for the debug overlay
// and the HTTP API.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Dataset events
	KindIndexLoad    EventKind = "dataset.index"
	KindDatasetLoad  EventKind = "dataset.load"
	KindDatasetError EventKind = "dataset.error"

	// Accumulator events
	KindAnimReset EventKind = "anim.reset"
	KindAnimEpoch EventKind = "anim.epoch"
	KindAnimTick  EventKind = "anim.tick"

	// Playback control
	KindPlay     EventKind = "playback.play"
	KindPause    EventKind = "playback.pause"
	KindInterval EventKind = "playback.interval"
	KindParams   EventKind = "force.params"

	// HTTP API
	KindRequest EventKind = "http.request"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	// Trace events
	KindMsgReceived EventKind = "trace.msg_received"
	KindMsgHandled  EventKind = "trace.msg_handled"
)

// Event is the universal record. Every field except Kind and Time is
// optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // component: "player", "ui", "server", "main"
	SessionID string         `json:"session_id,omitempty"` // uuid, same for entire app run
	Dur       time.Duration  `json:"-"`                    // not serialized directly
	DurMs     float64        `json:"dur_ms,omitempty"`     // computed from Dur at marshal time
	DataType  string         `json:"data_type,omitempty"`
	Dataset   string         `json:"dataset,omitempty"`
	Frame     int            `json:"frame,omitempty"`
	Epoch     int            `json:"epoch,omitempty"`
	Count     int            `json:"count,omitempty"` // links, nodes or names depending on kind
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
