package otel

import (
	"sync"
	"testing"
	"time"
)

func counts(events []Event) []int {
	out := make([]int, len(events))
	for i, e := range events {
		out[i] = e.Count
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ticks fills a ring of size with n tick events whose Count is their push order.
func ticks(size, n int) *RingBuffer {
	r := NewRingBuffer(size)
	for i := 0; i < n; i++ {
		r.Push(Event{Kind: KindAnimTick, Count: i})
	}
	return r
}

func TestRingSnapshotAndLast(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		pushed   int
		last     int
		wantSnap []int
		wantLast []int
	}{
		{"empty", 8, 0, 3, nil, nil},
		{"partial", 8, 5, 3, []int{0, 1, 2, 3, 4}, []int{2, 3, 4}},
		{"full", 8, 8, 3, []int{0, 1, 2, 3, 4, 5, 6, 7}, []int{5, 6, 7}},
		{"wrapped once", 4, 6, 2, []int{2, 3, 4, 5}, []int{4, 5}},
		{"wrapped twice", 4, 8, 4, []int{4, 5, 6, 7}, []int{4, 5, 6, 7}},
		{"last beyond count", 8, 2, 100, []int{0, 1}, []int{0, 1}},
		{"last zero", 8, 2, 0, []int{0, 1}, nil},
		{"last negative", 8, 2, -1, []int{0, 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ticks(tt.size, tt.pushed)
			snap := r.Snapshot()
			if tt.wantSnap == nil && snap != nil {
				t.Errorf("Snapshot() = %v, want nil", snap)
			}
			if got := counts(snap); !equalInts(got, tt.wantSnap) {
				t.Errorf("Snapshot() counts = %v, want %v", got, tt.wantSnap)
			}
			last := r.Last(tt.last)
			if tt.wantLast == nil && last != nil {
				t.Errorf("Last(%d) = %v, want nil", tt.last, last)
			}
			if got := counts(last); !equalInts(got, tt.wantLast) {
				t.Errorf("Last(%d) counts = %v, want %v", tt.last, got, tt.wantLast)
			}
		})
	}
}

func TestRingLenAndCap(t *testing.T) {
	if r := NewRingBuffer(0); r.Cap() != DefaultRingSize || r.Len() != 0 {
		t.Errorf("zero size ring: cap=%d len=%d, want %d/0", r.Cap(), r.Len(), DefaultRingSize)
	}
	r := ticks(4, 1)
	if r.Len() != 1 || r.Cap() != 4 {
		t.Errorf("after one push: len=%d cap=%d", r.Len(), r.Cap())
	}
	r = ticks(4, 11)
	if r.Len() != 4 {
		t.Errorf("len = %d, want capped at 4", r.Len())
	}
}

func TestStats(t *testing.T) {
	r := NewRingBuffer(16)
	for _, k := range []EventKind{KindAnimTick, KindAnimTick, KindAnimEpoch, KindDatasetError, KindDatasetError, KindDatasetError} {
		r.Push(Event{Kind: k})
	}

	stats := r.Stats()
	want := map[EventKind]int{KindAnimTick: 2, KindAnimEpoch: 1, KindDatasetError: 3}
	for k, n := range want {
		if stats[k] != n {
			t.Errorf("%s = %d, want %d", k, stats[k], n)
		}
	}
}

func TestConcurrentPushSnapshot(t *testing.T) {
	r := NewRingBuffer(256)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Push(Event{Kind: KindAnimTick, Frame: j})
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = r.Snapshot()
				_ = r.LastOf(10, "anim.")
				_ = r.Rate(KindAnimTick, time.Second, time.Now())
			}
		}()
	}
	wg.Wait()

	if r.Len() != 256 {
		t.Errorf("len = %d, want 256", r.Len())
	}
}

func TestPushCopiesExtra(t *testing.T) {
	r := NewRingBuffer(4)
	extra := map[string]any{"charge": -30.0}
	r.Push(Event{Kind: KindParams, Extra: extra})
	extra["charge"] = -200.0

	if got := r.Snapshot()[0].Extra["charge"]; got != -30.0 {
		t.Errorf("extra was aliased: charge = %v", got)
	}
}

func TestRingBufferWithLogger(t *testing.T) {
	r := NewRingBuffer(16)
	l := NewNullLogger()
	l.SetRingBuffer(r)

	l.Emit(Event{Kind: KindDatasetLoad, Dataset: "d1"})
	l.Emit(Event{Kind: KindPlay})
	l.Close()

	last := r.Last(2)
	if len(last) != 2 || last[0].Kind != KindDatasetLoad || last[1].Kind != KindPlay {
		t.Errorf("ring = %+v", last)
	}
}

func TestLastOf(t *testing.T) {
	r := NewRingBuffer(16)
	r.Push(Event{Kind: KindAnimTick, Frame: 1})
	r.Push(Event{Kind: KindDatasetLoad})
	r.Push(Event{Kind: KindAnimTick, Frame: 2})
	r.Push(Event{Kind: KindAnimEpoch})
	r.Push(Event{Kind: KindAnimTick, Frame: 3})

	got := r.LastOf(2, "anim.tick")
	if len(got) != 2 || got[0].Frame != 2 || got[1].Frame != 3 {
		t.Errorf("LastOf(2, anim.tick) = %+v", got)
	}
	if got := r.LastOf(10, "anim."); len(got) != 4 {
		t.Errorf("LastOf(10, anim.) returned %d events, want 4", len(got))
	}
	if r.LastOf(0, "") != nil {
		t.Error("LastOf(0) should be nil")
	}
}

func TestSortedStats(t *testing.T) {
	r := NewRingBuffer(16)
	r.Push(Event{Kind: KindPlay})
	r.Push(Event{Kind: KindAnimTick})
	r.Push(Event{Kind: KindAnimTick})
	r.Push(Event{Kind: KindAnimReset})

	got := r.SortedStats()
	want := []KindCount{{KindAnimTick, 2}, {KindAnimReset, 1}, {KindPlay, 1}}
	if len(got) != len(want) {
		t.Fatalf("SortedStats = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRingBufferRate(t *testing.T) {
	rb := NewRingBuffer(64)
	now := time.Now()
	for i := 0; i < 10; i++ {
		rb.Push(Event{Kind: KindAnimTick, Time: now.Add(-time.Duration(i) * 500 * time.Millisecond)})
	}
	rb.Push(Event{Kind: KindAnimEpoch, Time: now})
	rb.Push(Event{Kind: KindAnimTick, Time: now.Add(-time.Minute)})

	// Ticks at 0, -0.5s, ... -4.5s fall inside a 5s window
	if got := rb.Rate(KindAnimTick, 5*time.Second, now); got != 2 {
		t.Errorf("Rate(5s) = %v, want 2", got)
	}
	if got := rb.Rate(KindAnimTick, time.Second, now); got != 2 {
		t.Errorf("Rate(1s) = %v, want 2", got)
	}
	if got := rb.Rate(KindAnimEpoch, 5*time.Second, now); got != 0.2 {
		t.Errorf("epoch Rate = %v, want 0.2", got)
	}
	if got := rb.Rate(KindAnimTick, 0, now); got != 0 {
		t.Errorf("zero window Rate = %v, want 0", got)
	}
}
