// Package layout runs a small force-directed simulation over accumulator
// snapshots so the terminal renderer has positions to draw.
package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/force"
)

// Simulation constants.
const (
	LinkDistance  = 30.0
	VelocityDecay = 0.4
	AlphaMin      = 0.001
	collideIters  = 1
	seedRadius    = 10.0
)

var (
	alphaDecay  = 1 - math.Pow(AlphaMin, 1.0/force.CooldownTicks)
	goldenAngle = math.Pi * (3 - math.Sqrt(5))
)

// Body is one simulated node.
type Body struct {
	ID     string
	Pos    r2.Vec
	Vel    r2.Vec
	Pinned bool
}

type spring struct {
	source, target int
	strength       float64
	bias           float64
}

// Sim is a velocity-Verlet style simulation with many-body charge, link
// springs and collision. It has no centering force. A Sim is owned by one
// goroutine.
type Sim struct {
	bodies  []Body
	index   map[string]int
	springs []spring
	radii   []float64
	policy  *force.Policy
	linkSet map[string]struct{}
	alpha   float64
	ticks   int
}

// NewSim returns an empty, cooled simulation.
func NewSim() *Sim {
	return &Sim{index: make(map[string]int)}
}

// SetGraph adopts the nodes and links of snap. Surviving node ids keep their
// position and velocity; new ids are seeded on a phyllotaxis spiral. The
// simulation is reheated when the set of link keys changed.
func (s *Sim) SetGraph(snap anim.Snapshot, policy *force.Policy) {
	if policy == nil {
		policy = force.NewPolicy(force.DefaultParams(), nil, snap)
	}
	old := s.index
	oldBodies := s.bodies

	s.bodies = make([]Body, 0, len(snap.Nodes))
	s.index = make(map[string]int, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if _, dup := s.index[n.ID]; dup {
			continue
		}
		i := len(s.bodies)
		b := Body{ID: n.ID}
		if j, ok := old[n.ID]; ok {
			b = oldBodies[j]
		} else {
			b.Pos = seed(i)
		}
		b.Pinned = false
		if n.FX != nil && n.FY != nil {
			b.Pos = r2.Vec{X: *n.FX, Y: *n.FY}
			b.Vel = r2.Vec{}
			b.Pinned = true
		}
		s.index[n.ID] = i
		s.bodies = append(s.bodies, b)
	}

	keys := make(map[string]struct{}, len(snap.Links))
	for _, l := range snap.Links {
		keys[l.Key()] = struct{}{}
	}
	changed := len(keys) != len(s.linkSet)
	if !changed {
		for k := range keys {
			if _, ok := s.linkSet[k]; !ok {
				changed = true
				break
			}
		}
	}
	s.linkSet = keys

	s.policy = policy
	s.rebuild(snap.Links)
	if changed || len(old) != len(s.index) {
		s.Reheat()
	}
}

// SetPolicy swaps force parameters without changing the graph and reheats.
func (s *Sim) SetPolicy(policy *force.Policy, links []anim.Link) {
	s.policy = policy
	s.rebuild(links)
	s.Reheat()
}

func (s *Sim) rebuild(links []anim.Link) {
	s.springs = s.springs[:0]
	degree := make([]int, len(s.bodies))
	for _, l := range links {
		si, ok1 := s.index[l.Source]
		ti, ok2 := s.index[l.Target]
		if !ok1 || !ok2 || si == ti {
			continue
		}
		degree[si]++
		degree[ti]++
		s.springs = append(s.springs, spring{source: si, target: ti, strength: s.policy.LinkStrength(l)})
	}
	for i := range s.springs {
		sp := &s.springs[i]
		sp.bias = float64(degree[sp.source]) / float64(degree[sp.source]+degree[sp.target])
	}

	s.radii = make([]float64, len(s.bodies))
	for i, b := range s.bodies {
		s.radii[i] = s.policy.CollideRadius(b.ID)
	}
}

// Reheat restarts the cooling schedule.
func (s *Sim) Reheat() {
	s.alpha = 1
	s.ticks = 0
}

// Alpha is the current simulation temperature.
func (s *Sim) Alpha() float64 {
	return s.alpha
}

// Cooled reports whether the simulation has come to rest.
func (s *Sim) Cooled() bool {
	return s.alpha < AlphaMin
}

// Step advances the simulation by one tick. It returns false once cooled.
func (s *Sim) Step() bool {
	if s.Cooled() || s.policy == nil {
		return false
	}
	s.alpha += (0 - s.alpha) * alphaDecay
	s.ticks++

	s.applyLinks()
	s.applyCharge()
	for i := 0; i < collideIters; i++ {
		s.applyCollide()
	}

	for i := range s.bodies {
		b := &s.bodies[i]
		if b.Pinned {
			b.Vel = r2.Vec{}
			continue
		}
		b.Vel = r2.Scale(1-VelocityDecay, b.Vel)
		b.Pos = r2.Add(b.Pos, b.Vel)
	}
	return true
}

func (s *Sim) applyLinks() {
	for _, sp := range s.springs {
		src, tgt := &s.bodies[sp.source], &s.bodies[sp.target]
		d := r2.Sub(r2.Add(tgt.Pos, tgt.Vel), r2.Add(src.Pos, src.Vel))
		if d.X == 0 && d.Y == 0 {
			d = jiggle(sp.source + sp.target)
		}
		l := r2.Norm(d)
		k := (l - LinkDistance) / l * s.alpha * sp.strength
		d = r2.Scale(k, d)
		tgt.Vel = r2.Sub(tgt.Vel, r2.Scale(sp.bias, d))
		src.Vel = r2.Add(src.Vel, r2.Scale(1-sp.bias, d))
	}
}

func (s *Sim) applyCharge() {
	strength := s.policy.Charge()
	for i := range s.bodies {
		for j := range s.bodies {
			if i == j {
				continue
			}
			d := r2.Sub(s.bodies[j].Pos, s.bodies[i].Pos)
			if d.X == 0 && d.Y == 0 {
				d = jiggle(i*31 + j)
			}
			l2 := math.Max(r2.Norm2(d), 1)
			s.bodies[i].Vel = r2.Add(s.bodies[i].Vel, r2.Scale(strength*s.alpha/l2, d))
		}
	}
}

func (s *Sim) applyCollide() {
	for i := range s.bodies {
		for j := i + 1; j < len(s.bodies); j++ {
			a, b := &s.bodies[i], &s.bodies[j]
			d := r2.Sub(r2.Add(b.Pos, b.Vel), r2.Add(a.Pos, a.Vel))
			if d.X == 0 && d.Y == 0 {
				d = jiggle(i*17 + j)
			}
			r := s.radii[i] + s.radii[j]
			l := r2.Norm(d)
			if l >= r {
				continue
			}
			push := r2.Scale((r-l)/l*0.5, d)
			ri2, rj2 := s.radii[i]*s.radii[i], s.radii[j]*s.radii[j]
			share := rj2 / (ri2 + rj2)
			b.Vel = r2.Add(b.Vel, r2.Scale(1-share, push))
			a.Vel = r2.Sub(a.Vel, r2.Scale(share, push))
		}
	}
}

// Len is the number of simulated bodies.
func (s *Sim) Len() int {
	return len(s.bodies)
}

// Bodies returns a copy of the simulated bodies in node order.
func (s *Sim) Bodies() []Body {
	out := make([]Body, len(s.bodies))
	copy(out, s.bodies)
	return out
}

// Position returns the position of id.
func (s *Sim) Position(id string) (r2.Vec, bool) {
	i, ok := s.index[id]
	if !ok {
		return r2.Vec{}, false
	}
	return s.bodies[i].Pos, true
}

// Bounds returns the bounding box of all bodies. An empty simulation
// returns a zero box.
func (s *Sim) Bounds() (min, max r2.Vec) {
	if len(s.bodies) == 0 {
		return
	}
	min, max = s.bodies[0].Pos, s.bodies[0].Pos
	for _, b := range s.bodies[1:] {
		min.X = math.Min(min.X, b.Pos.X)
		min.Y = math.Min(min.Y, b.Pos.Y)
		max.X = math.Max(max.X, b.Pos.X)
		max.Y = math.Max(max.Y, b.Pos.Y)
	}
	return min, max
}

// seed places the i-th new node on a phyllotaxis spiral.
func seed(i int) r2.Vec {
	r := seedRadius * math.Sqrt(0.5+float64(i))
	a := float64(i) * goldenAngle
	return r2.Vec{X: r * math.Cos(a), Y: r * math.Sin(a)}
}

// jiggle is a tiny deterministic offset for coincident points.
func jiggle(n int) r2.Vec {
	a := float64(n) * goldenAngle
	return r2.Vec{X: 1e-6 * math.Cos(a), Y: 1e-6 * math.Sin(a)}
}
