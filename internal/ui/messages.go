// Package ui provides the Bubble Tea TUI for emograph.
package ui

import (
	"time"

	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/dataset"
)

// SnapshotMsg delivers a snapshot emitted by the player.
type SnapshotMsg struct {
	Snapshot anim.Snapshot
}

// IndexLoaded is sent when the dataset index has been fetched.
type IndexLoaded struct {
	Index dataset.Index
	Err   error
}

// DatasetLoaded is sent once a dataset has been handed to the player.
// Graph is the empty graph when Err is set.
type DatasetLoaded struct {
	DataType string
	Name     string
	Graph    *dataset.Graph
	Err      error
}

// PlaybackChanged reports the player's state after a play/pause or interval change.
type PlaybackChanged struct {
	Playing  bool
	Interval time.Duration
}

// StepDone is sent after a single step. Ok is false with no frames loaded.
type StepDone struct {
	Ok bool
}

// LayoutTick advances the layout simulation and the camera.
type LayoutTick struct{}
