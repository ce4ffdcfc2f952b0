package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/dataset"
	"github.com/abelbrown/emograph/internal/force"
	"github.com/abelbrown/emograph/internal/layout"
	"github.com/abelbrown/emograph/internal/otel"
	"github.com/abelbrown/emograph/internal/ui/picker"
)

// Tuning steps for the playback and force keys.
const (
	intervalStep = 50 * time.Millisecond
	chargeStep   = 50.0
	strengthStep = 0.001
)

var errNoFrames = errors.New("no frames loaded")

// AppConfig wires the App to the player and dataset source. Every hook
// returns a Cmd so blocking work runs off the Update goroutine. Nil hooks
// disable the matching key.
type AppConfig struct {
	LoadIndex   func() tea.Cmd
	LoadDataset func(dataType, name string) tea.Cmd
	TogglePlay  func() tea.Cmd
	Step        func() tea.Cmd
	SetInterval func(d time.Duration) tea.Cmd
	SetParams   func(p force.Params) tea.Cmd

	DataType string // initial type; the first type in the index when empty
	Name     string // initial dataset; the first of DataType when empty
	Interval time.Duration
	Playing  bool
	Params   force.Params
	Weights  force.Weights
	FPS      int
	ShowHelp bool

	Ring   *otel.RingBuffer // debug overlay source, optional
	Events *otel.Logger     // message tracing and log counters, optional
}

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT hold the player or the source. It receives
// snapshots and load results via messages.
type App struct {
	loadIndex   func() tea.Cmd
	loadDataset func(dataType, name string) tea.Cmd
	togglePlay  func() tea.Cmd
	step        func() tea.Cmd
	setInterval func(d time.Duration) tea.Cmd
	setParams   func(p force.Params) tea.Cmd

	ring   *otel.RingBuffer
	events *otel.Logger

	params  force.Params
	weights force.Weights
	policy  *force.Policy
	sim     *layout.Sim
	cam     camera
	fps     int
	frame   int

	index    dataset.Index
	dataType string
	name     string
	graph    *dataset.Graph
	snap     anim.Snapshot
	playing  bool
	interval time.Duration
	selected string // key of the inspected link

	help     help.Model
	progress progress.Model
	spinner  spinner.Model
	picker   picker.Picker

	showDebug bool
	loading   bool
	err       error
	width     int
	height    int
	ready     bool
}

// NewApp creates an App from cfg.
func NewApp(cfg AppConfig) App {
	if cfg.Weights == nil {
		cfg.Weights = force.DefaultWeights()
	}
	if cfg.Interval == 0 {
		cfg.Interval = anim.DefaultInterval
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.Params == (force.Params{}) {
		cfg.Params = force.DefaultParams()
	}

	h := help.New()
	h.ShowAll = cfg.ShowHelp

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorHighlight)

	p := progress.New(
		progress.WithGradient("#0076ff", "#ff7800"),
		progress.WithoutPercentage(),
	)

	params := cfg.Params.Clamped()
	return App{
		loadIndex:   cfg.LoadIndex,
		loadDataset: cfg.LoadDataset,
		togglePlay:  cfg.TogglePlay,
		step:        cfg.Step,
		setInterval: cfg.SetInterval,
		setParams:   cfg.SetParams,
		ring:        cfg.Ring,
		events:      cfg.Events,
		params:      params,
		weights:     cfg.Weights,
		policy:      force.NewPolicy(params, cfg.Weights, anim.Snapshot{Index: -1}),
		sim:         layout.NewSim(),
		cam:         newCamera(cfg.FPS),
		fps:         cfg.FPS,
		dataType:    cfg.DataType,
		name:        cfg.Name,
		graph:       &dataset.Graph{},
		snap:        anim.Snapshot{Index: -1},
		playing:     cfg.Playing,
		interval:    anim.ClampInterval(cfg.Interval),
		help:        h,
		progress:    p,
		spinner:     s,
		picker:      picker.New(),
	}
}

// Init loads the index and starts the layout loop.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.layoutTick(), a.spinner.Tick}
	if a.loadIndex != nil {
		cmds = append(cmds, a.loadIndex())
	}
	return tea.Batch(cmds...)
}

func (a App) layoutTick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(a.fps), func(time.Time) tea.Msg {
		return LayoutTick{}
	})
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if otel.TraceEnabled() && a.events != nil {
		if _, tick := msg.(LayoutTick); !tick {
			a.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgReceived, Comp: "ui",
				Msg: fmt.Sprintf("%T", msg)})
		}
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.picker.IsActive() {
			var cmd tea.Cmd
			var it *picker.Item
			a.picker, cmd, it = a.picker.Update(msg)
			if it != nil {
				return a.load(it.DataType, it.Name)
			}
			return a, cmd
		}
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.progress.Width = max(msg.Width-4, 10)
		a.picker.SetWidth(msg.Width)
		a.ready = true
		return a, nil

	case IndexLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.index = msg.Index
		a.picker.SetIndex(a.index)
		if len(a.index.Names(a.dataType)) == 0 {
			if types := a.index.Types(); len(types) > 0 {
				a.dataType = types[0]
			}
			a.name = ""
		}
		if a.name == "" {
			a.name = a.index.First(a.dataType)
		}
		if a.name == "" {
			a.err = fmt.Errorf("no datasets for type %q", a.dataType)
			return a, nil
		}
		return a.load(a.dataType, a.name)

	case DatasetLoaded:
		// Only the most recent request counts.
		if msg.DataType != a.dataType || msg.Name != a.name {
			return a, nil
		}
		a.loading = false
		a.graph = msg.Graph
		if a.graph == nil {
			a.graph = &dataset.Graph{}
		}
		a.err = msg.Err
		a.selected = ""
		a.cam.recenter()
		return a, nil

	case SnapshotMsg:
		a.snap = msg.Snapshot
		a.policy = force.NewPolicy(a.params, a.weights, a.snap)
		a.sim.SetGraph(a.snap, a.policy)
		if a.selected != "" && !a.hasLink(a.selected) {
			a.selected = ""
		}
		return a, nil

	case PlaybackChanged:
		a.playing = msg.Playing
		a.interval = msg.Interval
		return a, nil

	case StepDone:
		if !msg.Ok {
			a.err = errNoFrames
		}
		return a, nil

	case LayoutTick:
		a.sim.Step()
		if a.sim.Len() > 0 {
			lo, hi := a.sim.Bounds()
			a.cam.fit(lo, hi, a.width, a.canvasHeight())
		}
		a.cam.update()
		a.frame++
		return a, a.layoutTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	// Cursor blink and friends
	if a.picker.IsActive() {
		var cmd tea.Cmd
		a.picker, cmd, _ = a.picker.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) load(dataType, name string) (tea.Model, tea.Cmd) {
	if a.loadDataset == nil || name == "" {
		return a, nil
	}
	a.loading = true
	a.dataType, a.name = dataType, name
	return a, a.loadDataset(dataType, name)
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Clear any existing error on key press
	if a.err != nil {
		a.err = nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, keys.Debug):
		a.showDebug = !a.showDebug
		return a, nil

	case key.Matches(msg, keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		return a, nil

	case key.Matches(msg, keys.Jump):
		if len(a.index) == 0 {
			return a, nil
		}
		return a, a.picker.Activate()

	case key.Matches(msg, keys.Play):
		if a.togglePlay != nil {
			return a, a.togglePlay()
		}
		return a, nil

	case key.Matches(msg, keys.Step):
		if a.step != nil {
			return a, a.step()
		}
		return a, nil

	case key.Matches(msg, keys.Slower):
		return a.changeInterval(intervalStep)

	case key.Matches(msg, keys.Faster):
		return a.changeInterval(-intervalStep)

	case key.Matches(msg, keys.Normalize):
		a.params.Normalize = !a.params.Normalize
		return a.applyParams()

	case key.Matches(msg, keys.ChargeDown):
		a.params.Charge -= chargeStep
		return a.applyParams()

	case key.Matches(msg, keys.ChargeUp):
		a.params.Charge += chargeStep
		return a.applyParams()

	case key.Matches(msg, keys.StrengthDown):
		a.params.LinkStrengthBase -= strengthStep
		return a.applyParams()

	case key.Matches(msg, keys.StrengthUp):
		a.params.LinkStrengthBase += strengthStep
		return a.applyParams()

	case key.Matches(msg, keys.NextDataset):
		return a.load(a.dataType, a.index.Next(a.dataType, a.name, 1))

	case key.Matches(msg, keys.PrevDataset):
		return a.load(a.dataType, a.index.Next(a.dataType, a.name, -1))

	case key.Matches(msg, keys.NextType):
		types := a.index.Types()
		if len(types) < 2 {
			return a, nil
		}
		next := types[0]
		for i, t := range types {
			if t == a.dataType {
				next = types[(i+1)%len(types)]
				break
			}
		}
		return a.load(next, a.index.First(next))

	case key.Matches(msg, keys.NextLink):
		a.selected = a.nextLink()
		return a, nil
	}

	return a, nil
}

func (a App) changeInterval(delta time.Duration) (tea.Model, tea.Cmd) {
	a.interval = anim.ClampInterval(a.interval + delta)
	if a.setInterval != nil {
		return a, a.setInterval(a.interval)
	}
	return a, nil
}

// applyParams clamps the tuning, rebuilds the policy and reheats the layout.
func (a App) applyParams() (tea.Model, tea.Cmd) {
	a.params = a.params.Clamped()
	a.policy = force.NewPolicy(a.params, a.weights, a.snap)
	a.sim.SetPolicy(a.policy, a.snap.Links)
	if a.setParams != nil {
		return a, a.setParams(a.params)
	}
	return a, nil
}

// nextLink cycles the inspected link through the non-loop links in
// first-seen order, ending with none.
func (a App) nextLink() string {
	var ks []string
	for _, l := range a.snap.Links {
		if !l.SelfLoop() {
			ks = append(ks, l.Key())
		}
	}
	if len(ks) == 0 {
		return ""
	}
	if a.selected == "" {
		return ks[0]
	}
	for i, k := range ks {
		if k == a.selected {
			if i+1 < len(ks) {
				return ks[i+1]
			}
			return ""
		}
	}
	return ks[0]
}

func (a App) hasLink(k string) bool {
	for _, l := range a.snap.Links {
		if l.Key() == k {
			return true
		}
	}
	return false
}

func (a App) selectedLink() (anim.Link, bool) {
	for _, l := range a.snap.Links {
		if l.Key() == a.selected {
			return l, true
		}
	}
	return anim.Link{}, false
}

// View renders the App.
func (a App) View() string {
	if !a.ready {
		return "Initializing..."
	}

	if a.showDebug {
		overlay := debugOverlay(a.ring, a.events, a.width, a.height-1)
		return lipgloss.JoinVertical(lipgloss.Left, overlay, debugStatusBar(a.width))
	}

	sections := []string{a.renderHeader()}
	sections = append(sections, a.renderGraph())
	if panel := a.renderPanel(); panel != "" {
		sections = append(sections, panel)
	}
	sections = append(sections, " "+a.progress.ViewAs(progressFraction(a.snap)))
	sections = append(sections, a.renderStatusBar())
	if a.err != nil {
		sections = append(sections, ErrorStyle.Render("Error: "+a.err.Error()))
	}
	sections = append(sections, HelpStyle.Render(a.help.View(keys)))
	return strings.Join(sections, "\n")
}

// chromeHeight is the lines View spends outside the canvas.
func (a App) chromeHeight() int {
	h := 3 // header, progress, status
	h += lipgloss.Height(HelpStyle.Render(a.help.View(keys)))
	if a.err != nil {
		h++
	}
	if panel := a.renderPanel(); panel != "" {
		h += lipgloss.Height(panel)
	}
	return h
}

// renderPanel is the dataset picker while it is open, else the link tooltip.
func (a App) renderPanel() string {
	if a.picker.IsActive() {
		return a.picker.View()
	}
	return a.renderTooltip()
}

func (a App) canvasHeight() int {
	return max(a.height-a.chromeHeight(), 3)
}

func (a App) renderGraph() string {
	nodes := make([]force.NodeAttrs, 0, len(a.snap.Nodes))
	for _, n := range a.snap.Nodes {
		nodes = append(nodes, a.policy.Node(n))
	}
	links := make([]force.LinkAttrs, 0, len(a.snap.Links))
	for _, l := range a.snap.Links {
		links = append(links, a.policy.Link(l))
	}
	return renderCanvas(scene{
		nodes:    nodes,
		links:    links,
		pos:      a.sim.Position,
		selected: a.selected,
		frame:    a.frame,
		fps:      a.fps,
	}, a.cam, a.width, a.canvasHeight())
}

// progressFraction is how far playback is through the current epoch. A pass
// merges frame 0 first, then walks down from the newest frame to 1.
func progressFraction(s anim.Snapshot) float64 {
	if s.Index < 0 || s.Frames == 0 {
		return 0
	}
	if s.Index == 0 {
		return 1 / float64(s.Frames)
	}
	return float64(s.Frames-s.Index+1) / float64(s.Frames)
}
