package anim

import (
	"sync"
	"time"

	"github.com/abelbrown/emograph/internal/dataset"
)

// Tick period bounds and default.
const (
	MinInterval     = 100 * time.Millisecond
	MaxInterval     = 2000 * time.Millisecond
	DefaultInterval = 600 * time.Millisecond
)

// ClampInterval bounds d to [MinInterval, MaxInterval].
func ClampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}

// PlayerConfig configures a Player.
type PlayerConfig struct {
	Clock    Clock          // defaults to RealClock
	Interval time.Duration  // defaults to DefaultInterval
	Sink     func(Snapshot) // receives every reset and tick snapshot
}

// Player drives an Accumulator from a single pending timer.
//
// Goroutine safety: mu guards all state. emitMu serialises state change plus
// sink delivery so snapshots reach the sink in the order they were produced.
// The sink must not call Load, Step or Close. Every cancel bumps gen; a timer
// callback that lost the race with a cancel sees a stale gen and returns
// without touching the accumulator.
type Player struct {
	emitMu sync.Mutex
	mu     sync.Mutex

	acc      *Accumulator
	clock    Clock
	sink     func(Snapshot)
	interval time.Duration
	playing  bool
	closed   bool

	timer Timer
	gen   uint64
	last  Snapshot
	ticks uint64
}

// NewPlayer creates a paused player with no dataset.
func NewPlayer(cfg PlayerConfig) *Player {
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	acc := NewAccumulator()
	p := &Player{
		acc:      acc,
		clock:    cfg.Clock,
		sink:     cfg.Sink,
		interval: ClampInterval(cfg.Interval),
	}
	p.last = acc.Reset(nil, nil)
	return p
}

// Load cancels any pending tick, then resets the accumulator to a new dataset
// and emits the empty reset snapshot. Playback state is kept: a playing player
// starts ticking the new dataset after one interval.
func (p *Player) Load(nodes []dataset.Node, frames []dataset.Frame) Snapshot {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Snapshot{}
	}
	p.cancelLocked()
	snap := p.acc.Reset(nodes, frames)
	p.last = snap
	p.scheduleLocked()
	p.mu.Unlock()

	p.emit(snap)
	return snap
}

// Play starts periodic ticking from the current index and link state.
// No-op if already playing. With no frames the flag is set but nothing is
// scheduled.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.playing {
		return
	}
	p.playing = true
	p.scheduleLocked()
}

// Pause stops ticking. The pending timer is cancelled before Pause returns.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	p.cancelLocked()
}

// Toggle flips playback and returns the new state.
func (p *Player) Toggle() bool {
	if p.Playing() {
		p.Pause()
		return false
	}
	p.Play()
	return p.Playing()
}

// Playing reports whether the player is ticking.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// SetInterval changes the tick period, clamped to [MinInterval, MaxInterval].
// The pending tick keeps its deadline; the new period applies from the next
// one. Returns the effective interval.
func (p *Player) SetInterval(d time.Duration) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = ClampInterval(d)
	return p.interval
}

// Interval returns the current tick period.
func (p *Player) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// Step merges one frame immediately, independent of playback. A pending tick
// keeps its deadline.
func (p *Player) Step() (Snapshot, bool) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Snapshot{}, false
	}
	snap, ok := p.acc.Tick()
	if ok {
		p.last = snap
		p.ticks++
	}
	p.mu.Unlock()

	if ok {
		p.emit(snap)
	}
	return snap, ok
}

// Snapshot returns the most recently emitted snapshot.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Position returns the display position of the next frame to merge.
func (p *Player) Position() Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acc.Position()
}

// Frames returns the loaded frames.
func (p *Player) Frames() []dataset.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acc.Frames()
}

// Ticks returns the number of frames merged since the player was created.
func (p *Player) Ticks() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ticks
}

// Close stops playback for good. Safe to call more than once; no tick runs
// after Close returns.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.playing = false
	p.cancelLocked()
}

// cancelLocked stops the pending timer and invalidates any callback that
// already started. Caller must hold p.mu.
func (p *Player) cancelLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.gen++
}

// scheduleLocked arms the single timer slot if playback should continue.
// Caller must hold p.mu.
func (p *Player) scheduleLocked() {
	if !p.playing || p.closed || len(p.acc.Frames()) == 0 || p.timer != nil {
		return
	}
	gen := p.gen
	p.timer = p.clock.AfterFunc(p.interval, func() { p.fire(gen) })
}

func (p *Player) fire(gen uint64) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	if gen != p.gen || !p.playing || p.closed {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	snap, ok := p.acc.Tick()
	if ok {
		p.last = snap
		p.ticks++
	}
	p.scheduleLocked()
	p.mu.Unlock()

	if ok {
		p.emit(snap)
	}
}

func (p *Player) emit(s Snapshot) {
	if p.sink != nil {
		p.sink(s)
	}
}
