package anim

import (
	"sync"
	"testing"
	"time"

	"github.com/abelbrown/emograph/internal/dataset"
)

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) sink(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

func newTestPlayer(interval time.Duration) (*Player, *ManualClock, *recorder) {
	clock := NewManualClock()
	rec := &recorder{}
	p := NewPlayer(PlayerConfig{Clock: clock, Interval: interval, Sink: rec.sink})
	return p, clock, rec
}

var threeFrames = []dataset.Frame{
	{Timestamp: 30, Events: []dataset.Event{{Source: "A", Target: "B"}}},
	{Timestamp: 20, Events: []dataset.Event{{Source: "B", Target: "C"}}},
	{Timestamp: 10, Events: []dataset.Event{{Source: "A", Target: "B"}}},
}

func TestPlayerTicksOnInterval(t *testing.T) {
	p, clock, rec := newTestPlayer(200 * time.Millisecond)
	defer p.Close()

	p.Load(nil, threeFrames)
	if rec.len() != 1 {
		t.Fatalf("expected reset snapshot, got %d emissions", rec.len())
	}

	p.Play()
	clock.Advance(199 * time.Millisecond)
	if rec.len() != 1 {
		t.Fatalf("ticked early: %d emissions", rec.len())
	}
	clock.Advance(time.Millisecond)
	if rec.len() != 2 {
		t.Fatalf("expected first tick, got %d emissions", rec.len())
	}
	clock.Advance(400 * time.Millisecond)
	if rec.len() != 4 {
		t.Fatalf("expected 3 ticks total, got %d emissions", rec.len()-1)
	}
	if got := rec.last(); got.Index != 1 {
		t.Errorf("third tick merged frame %d, want 1", got.Index)
	}
	if clock.Pending() != 1 {
		t.Errorf("pending timers = %d, want exactly 1", clock.Pending())
	}
}

func TestPlayerPauseStopsTicks(t *testing.T) {
	p, clock, rec := newTestPlayer(100 * time.Millisecond)
	defer p.Close()

	p.Load(nil, threeFrames)
	p.Play()
	clock.Advance(100 * time.Millisecond)
	before := p.Snapshot()

	p.Pause()
	if clock.Pending() != 0 {
		t.Fatalf("pause left %d pending timers", clock.Pending())
	}
	n := rec.len()
	clock.Advance(time.Second)
	if rec.len() != n {
		t.Fatalf("ticked while paused: %d -> %d", n, rec.len())
	}

	// Resume continues from the same index without resetting counts.
	p.Play()
	clock.Advance(100 * time.Millisecond)
	after := rec.last()
	if after.Index != 2 {
		t.Errorf("resumed at frame %d, want 2", after.Index)
	}
	if after.Epoch != before.Epoch {
		t.Errorf("resume changed epoch %d -> %d", before.Epoch, after.Epoch)
	}
	ab := linkMap(after)["A|B"]
	if ab.Count != 2 {
		t.Errorf("A|B count after resume = %d, want 2", ab.Count)
	}
}

func TestPlayerStaleCallbackIgnored(t *testing.T) {
	clock := NewManualClock()
	rec := &recorder{}
	p := NewPlayer(PlayerConfig{Clock: clock, Interval: 100 * time.Millisecond, Sink: rec.sink})
	p.Load(nil, threeFrames)
	p.Play()

	// Simulate a callback that already started when Pause ran.
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()
	p.Pause()
	p.fire(gen)

	if rec.len() != 1 {
		t.Errorf("stale callback emitted: %d emissions", rec.len())
	}
	if p.Ticks() != 0 {
		t.Errorf("stale callback merged a frame")
	}
}

func TestPlayerLoadCancelsPending(t *testing.T) {
	p, clock, rec := newTestPlayer(100 * time.Millisecond)
	defer p.Close()

	p.Load(nil, threeFrames)
	p.Play()
	clock.Advance(100 * time.Millisecond)

	other := []dataset.Frame{{Timestamp: 1, Events: []dataset.Event{{Source: "X", Target: "Y"}}}}
	snap := p.Load(nil, other)
	if len(snap.Links) != 0 {
		t.Fatalf("load snapshot has links: %+v", snap.Links)
	}
	if clock.Pending() != 1 {
		t.Fatalf("pending timers after load = %d, want 1", clock.Pending())
	}

	clock.Advance(100 * time.Millisecond)
	got := rec.last()
	if len(got.Links) != 1 || got.Links[0].Source != "X" {
		t.Errorf("first tick after load = %+v, want only X->Y", got.Links)
	}
}

func TestPlayerZeroFramesNeverTicks(t *testing.T) {
	p, clock, rec := newTestPlayer(100 * time.Millisecond)
	defer p.Close()

	p.Load([]dataset.Node{{ID: "A"}}, nil)
	p.Play()
	if !p.Playing() {
		t.Error("Play should set the playing flag even with no frames")
	}
	clock.Advance(time.Second)
	if rec.len() != 1 {
		t.Errorf("emissions = %d, want only the reset snapshot", rec.len())
	}
	if clock.Pending() != 0 {
		t.Errorf("pending timers = %d, want 0", clock.Pending())
	}
}

func TestPlayerSetIntervalAppliesToNextTick(t *testing.T) {
	p, clock, rec := newTestPlayer(500 * time.Millisecond)
	defer p.Close()

	p.Load(nil, threeFrames)
	p.Play()
	if got := p.SetInterval(150 * time.Millisecond); got != 150*time.Millisecond {
		t.Fatalf("SetInterval = %v", got)
	}

	clock.Advance(150 * time.Millisecond)
	if rec.len() != 1 {
		t.Fatalf("pending tick should keep its 500ms deadline")
	}
	clock.Advance(350 * time.Millisecond)
	if rec.len() != 2 {
		t.Fatalf("expected tick at 500ms, got %d emissions", rec.len())
	}
	clock.Advance(150 * time.Millisecond)
	if rec.len() != 3 {
		t.Fatalf("expected tick at 650ms, got %d emissions", rec.len())
	}
}

func TestClampInterval(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{0, MinInterval},
		{50 * time.Millisecond, MinInterval},
		{600 * time.Millisecond, 600 * time.Millisecond},
		{5 * time.Second, MaxInterval},
	}
	for _, tt := range tests {
		if got := ClampInterval(tt.in); got != tt.want {
			t.Errorf("ClampInterval(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPlayerStepWhilePaused(t *testing.T) {
	p, _, rec := newTestPlayer(100 * time.Millisecond)
	defer p.Close()

	p.Load(nil, threeFrames)
	snap, ok := p.Step()
	if !ok || snap.Index != 0 {
		t.Fatalf("Step = (%+v, %v)", snap, ok)
	}
	if rec.len() != 2 {
		t.Errorf("emissions = %d, want 2", rec.len())
	}
	if p.Playing() {
		t.Error("Step should not start playback")
	}
}

func TestPlayerCloseIdempotent(t *testing.T) {
	p, clock, rec := newTestPlayer(100 * time.Millisecond)
	p.Load(nil, threeFrames)
	p.Play()

	p.Close()
	p.Close()
	clock.Advance(time.Second)

	if rec.len() != 1 {
		t.Errorf("ticked after Close: %d emissions", rec.len())
	}
	p.Play()
	if p.Playing() {
		t.Error("Play after Close should be ignored")
	}
}

func TestPlayerRealClock(t *testing.T) {
	done := make(chan Snapshot, 8)
	p := NewPlayer(PlayerConfig{Interval: MinInterval, Sink: func(s Snapshot) {
		if s.Index >= 0 {
			select {
			case done <- s:
			default:
			}
		}
	}})
	defer p.Close()

	p.Load(nil, threeFrames)
	p.Play()

	select {
	case s := <-done:
		if s.Index != 0 {
			t.Errorf("first tick merged frame %d, want 0", s.Index)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no tick within 2s")
	}
}
