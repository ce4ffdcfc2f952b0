// Package anim turns a dataset's event frames into an accumulating graph.
//
// Frames are replayed backwards, from the newest index toward 0 and around
// again. Every pass that starts at index 0 begins a new epoch with an empty
// link set. Each tick merges one frame and emits an immutable Snapshot.
package anim

import (
	"github.com/abelbrown/emograph/internal/dataset"
)

// Link is the running aggregate of all events seen for one source -> target
// pair in the current epoch.
type Link struct {
	Source    string  `json:"source" yaml:"source"`
	Target    string  `json:"target" yaml:"target"`
	Value     float64 `json:"value" yaml:"value"` // last seen time_diff_days
	IsCurrent bool    `json:"isCurrent" yaml:"is_current"`
	Count     int     `json:"count" yaml:"count"`
}

// Key returns the link's "source|target" key.
func (l Link) Key() string {
	return dataset.LinkKey(l.Source, l.Target)
}

// SelfLoop reports whether the link starts and ends at the same node.
func (l Link) SelfLoop() bool {
	return l.Source == l.Target
}

// Snapshot is a moment-in-time view of the accumulated graph.
//
// Nodes is shared by reference across every snapshot of one dataset so the
// layout engine can keep positions. Links is freshly allocated per snapshot
// and never modified after emission.
type Snapshot struct {
	Nodes  []dataset.Node `json:"nodes" yaml:"nodes"`
	Links  []Link         `json:"links" yaml:"links"`
	Index  int            `json:"index" yaml:"index"`   // frame merged by this tick, -1 for a reset
	Frames int            `json:"frames" yaml:"frames"` // total frames in the dataset
	Epoch  int            `json:"epoch" yaml:"epoch"`
}

// Accumulator owns the running link set. It is not safe for concurrent use;
// Player serialises access for timer-driven playback.
type Accumulator struct {
	nodes  []dataset.Node
	frames []dataset.Frame
	index  int
	epoch  int

	links map[string]*Link
	order []string // keys in first-seen order within the epoch
}

// NewAccumulator returns an empty accumulator. Call Reset to load a dataset.
func NewAccumulator() *Accumulator {
	return &Accumulator{links: make(map[string]*Link)}
}

// Reset replaces the dataset, clears all accumulated links and rewinds the
// index to 0 so the next tick opens a fresh epoch. It returns the initial
// snapshot with no links.
func (a *Accumulator) Reset(nodes []dataset.Node, frames []dataset.Frame) Snapshot {
	a.nodes = nodes
	a.frames = frames
	a.index = 0
	a.epoch = 0
	a.clear()

	return Snapshot{
		Nodes:  a.nodes,
		Links:  []Link{},
		Index:  -1,
		Frames: len(a.frames),
		Epoch:  a.epoch,
	}
}

func (a *Accumulator) clear() {
	a.links = make(map[string]*Link)
	a.order = a.order[:0]
}

// Tick merges the frame at the current index and steps the index backwards.
// Returns false without doing anything when there are no frames.
func (a *Accumulator) Tick() (Snapshot, bool) {
	n := len(a.frames)
	if n == 0 {
		return Snapshot{}, false
	}

	// Epoch boundary: a new backward sweep starts from scratch. With a
	// single frame this fires every tick.
	if a.index == 0 {
		a.clear()
		a.epoch++
	}

	i := a.index
	frame := a.frames[i]

	current := make(map[string]struct{}, len(frame.Events))
	for _, e := range frame.Events {
		key := e.Key()
		link, ok := a.links[key]
		if !ok {
			link = &Link{Source: e.Source, Target: e.Target}
			a.links[key] = link
			a.order = append(a.order, key)
		}
		link.Count++
		link.Value = e.TimeDiffDays
		current[key] = struct{}{}
	}

	links := make([]Link, 0, len(a.order))
	for _, key := range a.order {
		link := a.links[key]
		_, link.IsCurrent = current[key]
		links = append(links, *link)
	}

	a.index = (i - 1 + n) % n

	return Snapshot{
		Nodes:  a.nodes,
		Links:  links,
		Index:  i,
		Frames: n,
		Epoch:  a.epoch,
	}, true
}

// Index returns the frame that the next tick will merge.
func (a *Accumulator) Index() int {
	return a.index
}

// Epoch returns the number of epoch boundaries crossed since Reset.
func (a *Accumulator) Epoch() int {
	return a.epoch
}

// Nodes returns the node slice passed to Reset.
func (a *Accumulator) Nodes() []dataset.Node {
	return a.nodes
}

// Frames returns the frame slice passed to Reset.
func (a *Accumulator) Frames() []dataset.Frame {
	return a.frames
}

// Len returns the number of accumulated links.
func (a *Accumulator) Len() int {
	return len(a.order)
}

// Links returns a copy of the accumulated links in first-seen order.
func (a *Accumulator) Links() []Link {
	links := make([]Link, 0, len(a.order))
	for _, key := range a.order {
		links = append(links, *a.links[key])
	}
	return links
}

// Link returns the accumulated link for source -> target.
func (a *Accumulator) Link(source, target string) (Link, bool) {
	l, ok := a.links[dataset.LinkKey(source, target)]
	if !ok {
		return Link{}, false
	}
	return *l, true
}

// Position describes where playback is, in the terms the UI shows: a counter
// that climbs as playback moves back in time, and the day offset of the frame
// at the current index.
type Position struct {
	Frame     int // total - index - 1, or 0 when there are no frames
	Total     int
	Timestamp int
	HasFrame  bool
}

// Position returns the display position for the current index.
func (a *Accumulator) Position() Position {
	total := len(a.frames)
	if total == 0 || a.index < 0 || a.index >= total {
		return Position{Total: total}
	}
	return Position{
		Frame:     total - a.index - 1,
		Total:     total,
		Timestamp: a.frames[a.index].Timestamp,
		HasFrame:  true,
	}
}
