// Package coord connects the dataset source and the player to the TUI.
package coord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/dataset"
	"github.com/abelbrown/emograph/internal/force"
	"github.com/abelbrown/emograph/internal/metrics"
	"github.com/abelbrown/emograph/internal/otel"
	"github.com/abelbrown/emograph/internal/ui"
)

// loadTimeout bounds each dataset or index fetch.
const loadTimeout = 30 * time.Second

// maxConcurrentFetches limits parallel prefetch loads.
const maxConcurrentFetches = 4

// Sender receives messages for the UI. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Config configures a Coordinator.
type Config struct {
	Source   dataset.Source
	Clock    anim.Clock    // defaults to the real clock
	Interval time.Duration // initial tick period
	Autoplay bool
	Prefetch string       // dataset type to warm on Start, "" to skip
	Events   *otel.Logger // optional
	Logger   *log.Logger  // optional
}

// Coordinator owns the player and runs every blocking call the UI asks for
// inside a tea.Cmd. Player snapshots are forwarded to the attached Sender.
// Uses context cancellation as the ONLY stop mechanism for background work.
type Coordinator struct {
	source   dataset.Source
	player   *anim.Player
	events   *otel.Logger
	log      *log.Logger
	prefetch string

	mu     sync.Mutex
	ctx    context.Context
	sender Sender
	wg     sync.WaitGroup

	// loadMu orders dataset changes: only the newest load reaches the player.
	loadMu     sync.Mutex
	loadGen    uint64
	loadCancel context.CancelFunc
}

// New creates a Coordinator and its player.
func New(cfg Config) *Coordinator {
	if cfg.Events == nil {
		cfg.Events = otel.NewNullLogger()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	c := &Coordinator{
		source:   cfg.Source,
		events:   cfg.Events,
		log:      cfg.Logger,
		prefetch: cfg.Prefetch,
		ctx:      context.Background(),
	}
	c.player = anim.NewPlayer(anim.PlayerConfig{
		Clock:    cfg.Clock,
		Interval: cfg.Interval,
		Sink:     c.sink,
	})
	if cfg.Autoplay {
		c.player.Play()
	}
	metrics.SetPlaying(cfg.Autoplay)
	return c
}

// Player returns the coordinator's player.
func (c *Coordinator) Player() *anim.Player {
	return c.player
}

// Start attaches the program and, when configured, warms the cache in the
// background. Call with a cancellable context.
func (c *Coordinator) Start(ctx context.Context, sender Sender) {
	c.mu.Lock()
	c.ctx = ctx
	c.sender = sender
	c.mu.Unlock()

	if c.prefetch == "" {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		idx, err := c.source.Index(ctx)
		if err != nil {
			c.log.Warn("prefetch: index", "err", err)
			return
		}
		n, err := c.Prefetch(ctx, c.prefetch, idx.Names(c.prefetch))
		c.log.Info("prefetch done", "type", c.prefetch, "loaded", n, "err", err)
	}()
}

// Wait blocks until background goroutines exit.
// Call after canceling the context passed to Start.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close cancels any load in flight and stops the player for good.
func (c *Coordinator) Close() {
	c.loadMu.Lock()
	if c.loadCancel != nil {
		c.loadCancel()
	}
	c.loadMu.Unlock()
	c.player.Close()
}

func (c *Coordinator) context() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

// sink runs under the player's emit lock and must not call back into it.
func (c *Coordinator) sink(s anim.Snapshot) {
	metrics.RecordSnapshot(s)
	switch {
	case s.Index < 0:
		c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindAnimReset, Comp: "coord",
			Count: len(s.Nodes), Frame: s.Frames})
	default:
		if s.Index == 0 {
			c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindAnimEpoch, Comp: "coord",
				Epoch: s.Epoch, Frame: s.Index})
		}
		c.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindAnimTick, Comp: "coord",
			Frame: s.Index, Epoch: s.Epoch, Count: len(s.Links)})
	}

	c.mu.Lock()
	sender := c.sender
	c.mu.Unlock()
	if sender != nil {
		sender.Send(ui.SnapshotMsg{Snapshot: s})
	}
}

// beginLoad cancels any load in flight and returns the context and
// generation of the new one.
func (c *Coordinator) beginLoad(parent context.Context) (context.Context, uint64) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if c.loadCancel != nil {
		c.loadCancel()
	}
	ctx, cancel := context.WithTimeout(parent, loadTimeout)
	c.loadGen++
	c.loadCancel = cancel
	return ctx, c.loadGen
}

// commit hands g to the player unless a newer load has started.
func (c *Coordinator) commit(gen uint64, g *dataset.Graph) bool {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if gen != c.loadGen {
		return false
	}
	c.player.Load(g.Nodes, g.Frames)
	return true
}

// Load fetches a dataset and hands it to the player. On failure the player
// gets an empty graph so playback idles, and the error is returned with it.
// A load overtaken by a later one returns dataset.ErrSuperseded and leaves the
// player alone.
func (c *Coordinator) Load(ctx context.Context, dataType, name string) (*dataset.Graph, error) {
	ctx, gen := c.beginLoad(ctx)

	start := time.Now()
	g, err := c.source.Load(ctx, dataType, name)
	dur := time.Since(start)
	if err != nil {
		g = &dataset.Graph{Nodes: []dataset.Node{}, Frames: []dataset.Frame{}}
	}
	if !c.commit(gen, g) {
		c.log.Debug("dataset load superseded", "type", dataType, "name", name)
		return nil, dataset.ErrSuperseded
	}

	metrics.RecordLoad(dataType, dur, err)
	if err != nil {
		c.events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindDatasetError, Comp: "coord",
			DataType: dataType, Dataset: name, Err: err.Error(), Dur: dur})
		c.log.Error("dataset load failed", "type", dataType, "name", name, "err", err)
	} else {
		c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDatasetLoad, Comp: "coord",
			DataType: dataType, Dataset: name, Count: g.EventCount(), Dur: dur})
		c.log.Info("dataset loaded", "type", dataType, "name", name,
			"nodes", len(g.Nodes), "frames", len(g.Frames), "dur", dur)
	}
	return g, err
}

// Prefetch loads names concurrently so a caching source stores them. It
// never touches the player. Returns the number loaded and every failure.
func (c *Coordinator) Prefetch(ctx context.Context, dataType string, names []string) (int, error) {
	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)

	var loaded atomic.Int32
	var mu sync.Mutex
	var errs []error

	for _, name := range names {
		g.Go(func() error {
			// Early exit if context cancelled
			if ctx.Err() != nil {
				return nil
			}
			loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
			defer cancel()
			if _, err := c.source.Load(loadCtx, dataType, name); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s/%s: %w", dataType, name, err))
				mu.Unlock()
				return nil // never fail the group - errors reported per-dataset
			}
			loaded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(loaded.Load()), errors.Join(errs...)
}

// LoadIndex returns a Cmd fetching the dataset index.
func (c *Coordinator) LoadIndex() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(c.context(), loadTimeout)
		defer cancel()
		idx, err := c.source.Index(ctx)
		if err != nil {
			c.events.Error(otel.KindDatasetError, "coord", err)
			return ui.IndexLoaded{Err: err}
		}
		c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindIndexLoad, Comp: "coord",
			Count: len(idx)})
		return ui.IndexLoaded{Index: idx}
	}
}

// LoadDataset returns a Cmd that loads a dataset into the player. A load
// superseded by a later one produces no message.
func (c *Coordinator) LoadDataset(dataType, name string) tea.Cmd {
	return func() tea.Msg {
		g, err := c.Load(c.context(), dataType, name)
		if errors.Is(err, dataset.ErrSuperseded) {
			return nil
		}
		return ui.DatasetLoaded{DataType: dataType, Name: name, Graph: g, Err: err}
	}
}

// TogglePlay returns a Cmd flipping playback.
func (c *Coordinator) TogglePlay() tea.Cmd {
	return func() tea.Msg {
		playing := c.player.Toggle()
		metrics.SetPlaying(playing)
		if playing {
			c.events.Info(otel.KindPlay, "coord", "")
		} else {
			c.events.Info(otel.KindPause, "coord", "")
		}
		return ui.PlaybackChanged{Playing: playing, Interval: c.player.Interval()}
	}
}

// Step returns a Cmd merging one frame.
func (c *Coordinator) Step() tea.Cmd {
	return func() tea.Msg {
		_, ok := c.player.Step()
		return ui.StepDone{Ok: ok}
	}
}

// SetInterval returns a Cmd changing the tick period.
func (c *Coordinator) SetInterval(d time.Duration) tea.Cmd {
	return func() tea.Msg {
		eff := c.player.SetInterval(d)
		c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindInterval, Comp: "coord", Dur: eff})
		return ui.PlaybackChanged{Playing: c.player.Playing(), Interval: eff}
	}
}

// SetParams returns a Cmd recording a force tuning change.
func (c *Coordinator) SetParams(p force.Params) tea.Cmd {
	return func() tea.Msg {
		c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindParams, Comp: "coord",
			Extra: map[string]any{"charge": p.Charge, "link_strength": p.LinkStrengthBase, "normalize": p.Normalize}})
		c.log.Debug("force params", "charge", p.Charge, "link_strength", p.LinkStrengthBase, "normalize", p.Normalize)
		return nil
	}
}
