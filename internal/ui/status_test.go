package ui

import (
	"testing"

	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/dataset"
)

func TestFrameCounter(t *testing.T) {
	tests := []struct {
		snap anim.Snapshot
		want string
	}{
		{anim.Snapshot{Index: -1, Frames: 3}, "-/3"},
		{anim.Snapshot{Index: 2, Frames: 3}, "0/3"},
		{anim.Snapshot{Index: 0, Frames: 3}, "2/3"},
		{anim.Snapshot{Index: -1}, "-/0"},
	}
	for _, tt := range tests {
		if got := frameCounter(tt.snap); got != tt.want {
			t.Errorf("frameCounter(index=%d frames=%d) = %q, want %q", tt.snap.Index, tt.snap.Frames, got, tt.want)
		}
	}
}

func TestProgressFraction(t *testing.T) {
	tests := []struct {
		snap anim.Snapshot
		want float64
	}{
		{anim.Snapshot{Index: -1, Frames: 4}, 0},
		{anim.Snapshot{Index: 0, Frames: 4}, 0.25},
		{anim.Snapshot{Index: 3, Frames: 4}, 0.5},
		{anim.Snapshot{Index: 1, Frames: 4}, 1},
		{anim.Snapshot{Index: 0, Frames: 0}, 0},
	}
	for _, tt := range tests {
		if got := progressFraction(tt.snap); got != tt.want {
			t.Errorf("progressFraction(%d/%d) = %v, want %v", tt.snap.Index, tt.snap.Frames, got, tt.want)
		}
	}
}

func TestDaysAgo(t *testing.T) {
	frames := []dataset.Frame{{Timestamp: 1}, {Timestamp: 14}}
	tests := []struct {
		index int
		want  string
	}{
		{-1, ""},
		{0, "1 day ago"},
		{1, "14 days ago"},
		{2, ""},
	}
	for _, tt := range tests {
		if got := daysAgo(anim.Snapshot{Index: tt.index, Frames: 2}, frames); got != tt.want {
			t.Errorf("daysAgo(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"hello world", 8, "hello..."},
		{"기쁨과 슬픔", 4, "기..."},
		{"abcdef", 2, "ab"},
		{"line\nbreak", 20, "line break"},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
