package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/abelbrown/emograph/internal/force"
	"github.com/abelbrown/emograph/internal/palette"
)

// Terminal cells are roughly twice as tall as they are wide, so world y is
// squashed by cellAspect when projected.
const (
	cellAspect  = 0.5
	minSpan     = 60.0
	canvasInset = 2
	maxZoom     = 1.5
)

// camera eases the viewport toward the layout's bounding box.
type camera struct {
	spring  harmonica.Spring
	settled bool

	x, vx       float64
	y, vy       float64
	zoom, vzoom float64

	tx, ty, tzoom float64
}

func newCamera(fps int) camera {
	if fps <= 0 {
		fps = 30
	}
	return camera{
		spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 0.8),
		zoom:   1,
		tzoom:  1,
	}
}

// fit sets the target so the box [min,max] fills a width x height canvas.
// The first fit after a recenter jumps straight to the target.
func (c *camera) fit(min, max r2.Vec, width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	center := r2.Scale(0.5, r2.Add(min, max))
	span := r2.Sub(max, min)
	dx := math.Max(span.X, minSpan)
	dy := math.Max(span.Y, minSpan)

	usableW := math.Max(float64(width-2*canvasInset), 1)
	usableH := math.Max(float64(height-canvasInset), 1)
	zoom := math.Min(usableW/dx, usableH/(dy*cellAspect))

	c.tx, c.ty, c.tzoom = center.X, center.Y, math.Min(zoom, maxZoom)
	if !c.settled {
		c.x, c.y, c.zoom = c.tx, c.ty, c.tzoom
		c.vx, c.vy, c.vzoom = 0, 0, 0
		c.settled = true
	}
}

// recenter makes the next fit jump instead of easing.
func (c *camera) recenter() {
	c.settled = false
}

// update advances the springs by one frame.
func (c *camera) update() {
	c.x, c.vx = c.spring.Update(c.x, c.vx, c.tx)
	c.y, c.vy = c.spring.Update(c.y, c.vy, c.ty)
	c.zoom, c.vzoom = c.spring.Update(c.zoom, c.vzoom, c.tzoom)
}

// project maps a world position to a cell.
func (c camera) project(p r2.Vec, width, height int) (col, row int) {
	col = int(math.Round(float64(width)/2 + (p.X-c.x)*c.zoom))
	row = int(math.Round(float64(height)/2 + (p.Y-c.y)*c.zoom*cellAspect))
	return col, row
}

// cellKind selects the style a cell is drawn with.
type cellKind uint8

const (
	cellEmpty cellKind = iota
	cellLink
	cellCurrent
	cellSelected
	cellParticle
	cellNode
)

type cell struct {
	ch    rune
	kind  cellKind
	color string // node color, cellNode only
	cont  bool   // right half of a wide rune
}

// grid is a fixed-size character raster.
type grid struct {
	w, h  int
	cells []cell
}

func newGrid(w, h int) *grid {
	g := &grid{w: w, h: h, cells: make([]cell, w*h)}
	for i := range g.cells {
		g.cells[i].ch = ' '
	}
	return g
}

func (g *grid) in(col, row int) bool {
	return col >= 0 && row >= 0 && col < g.w && row < g.h
}

func (g *grid) set(col, row int, ch rune, kind cellKind) {
	if !g.in(col, row) {
		return
	}
	c := &g.cells[row*g.w+col]
	if c.kind == cellNode || c.cont {
		return
	}
	c.ch, c.kind = ch, kind
}

// text writes s starting at (col,row) as node text, handling wide runes.
func (g *grid) text(col, row int, s, color string) {
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if g.in(col, row) && g.in(col+rw-1, row) {
			for k := 0; k < rw; k++ {
				g.clear(col+k, row)
			}
			g.cells[row*g.w+col] = cell{ch: r, kind: cellNode, color: color}
			for k := 1; k < rw; k++ {
				g.cells[row*g.w+col+k] = cell{kind: cellNode, cont: true}
			}
		}
		col += rw
	}
}

// clear blanks a cell along with the other half of a wide rune it belongs to.
func (g *grid) clear(col, row int) {
	i := row*g.w + col
	if g.cells[i].cont && col > 0 {
		g.cells[i-1] = cell{ch: ' '}
	}
	if col+1 < g.w && g.cells[i+1].cont {
		g.cells[i+1] = cell{ch: ' '}
	}
	g.cells[i] = cell{ch: ' '}
}

// line draws a Bresenham line, skipping both endpoints.
func (g *grid) line(c0, r0, c1, r1 int, ch rune, kind cellKind) {
	dc := abs(c1 - c0)
	dr := -abs(r1 - r0)
	sc, sr := sign(c1-c0), sign(r1-r0)
	err := dc + dr
	c, r := c0, r0
	for {
		if (c != c0 || r != r0) && (c != c1 || r != r1) {
			g.set(c, r, ch, kind)
		}
		if c == c1 && r == r1 {
			return
		}
		e2 := 2 * err
		if e2 >= dr {
			err += dr
			c += sc
		}
		if e2 <= dc {
			err += dc
			r += sr
		}
	}
}

func (g *grid) render() string {
	var b strings.Builder
	for row := 0; row < g.h; row++ {
		var run strings.Builder
		var runKind cellKind
		var runColor string
		flush := func() {
			if run.Len() > 0 {
				b.WriteString(styleFor(runKind, runColor).Render(run.String()))
				run.Reset()
			}
		}
		for col := 0; col < g.w; col++ {
			c := g.cells[row*g.w+col]
			if c.cont {
				continue
			}
			if c.kind != runKind || c.color != runColor {
				flush()
				runKind, runColor = c.kind, c.color
			}
			run.WriteRune(c.ch)
		}
		flush()
		if row < g.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func styleFor(kind cellKind, color string) lipgloss.Style {
	switch kind {
	case cellLink:
		return LinkStyle
	case cellCurrent:
		return CurrentLinkStyle
	case cellSelected:
		return SelectedLink
	case cellParticle:
		return ParticleStyle
	case cellNode:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
	}
	return lipgloss.NewStyle()
}

// scene is everything one canvas frame draws.
type scene struct {
	nodes    []force.NodeAttrs
	links    []force.LinkAttrs
	pos      func(id string) (r2.Vec, bool)
	selected string // link key, "" for none
	frame    int    // layout ticks since start, drives particles
	fps      int
}

// renderCanvas rasterises the scene. Links go first, then particles and
// arrow heads, then nodes on top.
func renderCanvas(sc scene, cam camera, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	g := newGrid(width, height)
	type proj struct{ col, row int }
	at := make(map[string]proj, len(sc.nodes))
	for _, n := range sc.nodes {
		p, ok := sc.pos(n.ID)
		if !ok {
			continue
		}
		c, r := cam.project(p, width, height)
		at[n.ID] = proj{c, r}
	}

	for _, l := range sc.links {
		if l.SelfLoop() {
			continue
		}
		s, ok1 := at[l.Source]
		t, ok2 := at[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		kind, ch := cellLink, '·'
		switch {
		case l.Key() == sc.selected:
			kind, ch = cellSelected, '•'
		case l.IsCurrent:
			kind, ch = cellCurrent, '•'
		}
		g.line(s.col, s.row, t.col, t.row, ch, kind)
	}

	speedScale := 60.0 / float64(max(sc.fps, 1))
	for _, l := range sc.links {
		if l.SelfLoop() {
			continue
		}
		s, ok1 := at[l.Source]
		t, ok2 := at[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		for i := 0; i < l.Particles; i++ {
			f := math.Mod(float64(sc.frame)*l.ParticleSpeed*speedScale+float64(i)/float64(l.Particles), 1)
			c := int(math.Round(float64(s.col) + f*float64(t.col-s.col)))
			r := int(math.Round(float64(s.row) + f*float64(t.row-s.row)))
			g.set(c, r, '∘', cellParticle)
		}
		ac, ar := arrowCell(s.col, s.row, t.col, t.row)
		kind := cellLink
		if l.IsCurrent {
			kind = cellCurrent
		}
		if l.Key() == sc.selected {
			kind = cellSelected
		}
		g.set(ac, ar, arrowGlyph(t.col-s.col, t.row-s.row), kind)
	}

	for _, n := range sc.nodes {
		p, ok := at[n.ID]
		if !ok {
			continue
		}
		label := nodeLabel(n)
		g.text(p.col, p.row, "●"+label, n.Hex)
	}
	return g.render()
}

// arrowCell is the last cell before the target on the source -> target line.
func arrowCell(c0, r0, c1, r1 int) (int, int) {
	dc, dr := float64(c1-c0), float64(r1-r0)
	d := math.Hypot(dc, dr)
	if d < 2 {
		return c1, r1
	}
	return c1 - int(math.Round(dc/d)), r1 - int(math.Round(dr/d))
}

var arrowGlyphs = []rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}

func arrowGlyph(dc, dr int) rune {
	a := math.Atan2(float64(dr)/cellAspect, float64(dc))
	i := int(math.Round(a/(math.Pi/4))+8) % 8
	return arrowGlyphs[i]
}

// nodeLabel prefers the English category name, then the label, then the id.
func nodeLabel(n force.NodeAttrs) string {
	label := n.Label
	if label == "" {
		label = n.ID
	}
	if en := palette.English(label); en != label {
		return en
	}
	return label
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
