package force

import (
	"math"

	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/dataset"
	"github.com/abelbrown/emograph/internal/palette"
)

// Parameter defaults and bounds for the tunable forces.
const (
	DefaultCharge       = -600.0
	MinCharge           = -2000.0
	MaxCharge           = 0.0
	DefaultLinkStrength = 0.007
	MinLinkStrength     = 0.001
	MaxLinkStrength     = 0.05
)

// Visual constants shared with the renderers.
const (
	CurrentLinkWidth   = 9.0
	CurrentArrowLength = 22.0
	ArrowRelPos        = 0.99
	ParticleWidth      = 6.0
	ParticleColor      = "rgba(255, 120, 0, 0.9)"
	CurrentLinkColor   = "rgba(0, 118, 255, 0.7)"
	LinkColorDefault   = "rgba(90,90,90,0.2)"
	CooldownTicks      = 400
)

// Params are the externally tunable force settings.
type Params struct {
	Charge           float64 `json:"charge" yaml:"charge"`
	LinkStrengthBase float64 `json:"link_strength" yaml:"link_strength"`
	Normalize        bool    `json:"normalize" yaml:"normalize"`
}

// DefaultParams returns the initial tuning.
func DefaultParams() Params {
	return Params{
		Charge:           DefaultCharge,
		LinkStrengthBase: DefaultLinkStrength,
		Normalize:        true,
	}
}

// Clamped bounds Charge and LinkStrengthBase to their slider ranges.
func (p Params) Clamped() Params {
	p.Charge = math.Max(MinCharge, math.Min(MaxCharge, p.Charge))
	p.LinkStrengthBase = math.Max(MinLinkStrength, math.Min(MaxLinkStrength, p.LinkStrengthBase))
	return p
}

// Policy evaluates per-node and per-link parameters for one snapshot.
// Build a new Policy per snapshot; it is a pure function of its inputs.
type Policy struct {
	params  Params
	weights Weights
	nodes   map[string]string // id -> label
	links   []anim.Link
}

// NewPolicy builds a policy over a snapshot. A nil weights table means
// DefaultWeights.
func NewPolicy(params Params, weights Weights, snap anim.Snapshot) *Policy {
	if weights == nil {
		weights = DefaultWeights()
	}
	nodes := make(map[string]string, len(snap.Nodes))
	for _, n := range snap.Nodes {
		nodes[n.ID] = n.Label
	}
	return &Policy{params: params, weights: weights, nodes: nodes, links: snap.Links}
}

// Params returns the tuning the policy was built with.
func (p *Policy) Params() Params {
	return p.params
}

// Weight is the category multiplier for id, or 1.0 when normalization is off.
// An id missing from the table resolves through its node's label.
func (p *Policy) Weight(id string) float64 {
	if !p.params.Normalize {
		return 1.0
	}
	if w, ok := p.weights[id]; ok {
		return w
	}
	return p.weights.Of(p.nodes[id])
}

// endpointWeight resolves a link endpoint through the node set first; an id
// with no node falls back to 1.0.
func (p *Policy) endpointWeight(id string) float64 {
	if _, ok := p.nodes[id]; !ok {
		return 1.0
	}
	return p.Weight(id)
}

// Charge is the many-body strength applied uniformly to every node.
func (p *Policy) Charge() float64 {
	return p.params.Charge
}

// Degree returns the node degree over the snapshot links (floor 1).
func (p *Policy) Degree(id string) int {
	return palette.NodeDegree(id, p.links)
}

// CollideRadius is the collision radius of a node.
func (p *Policy) CollideRadius(id string) float64 {
	return CollideRadius(p.Degree(id))
}

// CollideRadius grows superlinearly with degree, with a floor of 28.
func CollideRadius(degree int) float64 {
	return math.Max(28, math.Pow(float64(degree), 1.2)*18)
}

// LinkStrength is the spring strength of a link.
func (p *Policy) LinkStrength(l anim.Link) float64 {
	return p.params.LinkStrengthBase * p.Weight(l.Source) * p.Weight(l.Target)
}

func logCount(count int) float64 {
	return math.Log2(float64(count) + 1)
}

// LinkWidth is the drawn width. Current links use a fixed maximum emphasis.
func (p *Policy) LinkWidth(l anim.Link) float64 {
	weight := math.Sqrt(p.endpointWeight(l.Source) * p.endpointWeight(l.Target))
	base := CurrentLinkWidth
	if !l.IsCurrent {
		base = math.Max(2, math.Min(16, logCount(l.Count)*4))
	}
	return base * weight
}

// Particles is the number of directional particles on a link.
func Particles(l anim.Link) int {
	return int(math.Ceil(logCount(l.Count)))
}

// ParticleSpeed grows with the square root of traffic.
func ParticleSpeed(l anim.Link) float64 {
	return 0.0005 * math.Sqrt(float64(l.Count))
}

// ArrowLength is the arrow head length. Current links use a fixed maximum.
func ArrowLength(l anim.Link) float64 {
	if l.IsCurrent {
		return CurrentArrowLength
	}
	return math.Max(5, logCount(l.Count)*6)
}

// LinkColor is the stroke color of a link.
func LinkColor(l anim.Link) string {
	if l.IsCurrent {
		return CurrentLinkColor
	}
	return LinkColorDefault
}

// NodeRadius is the drawn radius of a node.
func (p *Policy) NodeRadius(id string) float64 {
	return p.radius(id, p.Degree(id))
}

func (p *Policy) radius(id string, degree int) float64 {
	return math.Max(12, math.Pow(float64(degree)*p.Weight(id), 0.8)*6.5)
}

// LinkAttrs are the render attributes of one link.
type LinkAttrs struct {
	anim.Link     `yaml:",inline"`
	Color         string  `json:"color" yaml:"color"`
	Width         float64 `json:"width" yaml:"width"`
	Strength      float64 `json:"strength" yaml:"strength"`
	Particles     int     `json:"particles" yaml:"particles"`
	ParticleSpeed float64 `json:"particleSpeed" yaml:"particle_speed"`
	ArrowLength   float64 `json:"arrowLength" yaml:"arrow_length"`
}

// NodeAttrs are the render attributes of one node.
type NodeAttrs struct {
	ID            string  `json:"id" yaml:"id"`
	Label         string  `json:"label,omitempty" yaml:"label,omitempty"`
	Group         string  `json:"group,omitempty" yaml:"group,omitempty"`
	Color         string  `json:"color" yaml:"color"`
	Hex           string  `json:"hex" yaml:"hex"`
	Degree        int     `json:"degree" yaml:"degree"`
	Radius        float64 `json:"radius" yaml:"radius"`
	CollideRadius float64 `json:"collideRadius" yaml:"collide_radius"`
	SelfLoops     int     `json:"selfLoops" yaml:"self_loops"`
}

// Link evaluates every attribute of l.
func (p *Policy) Link(l anim.Link) LinkAttrs {
	return LinkAttrs{
		Link:          l,
		Color:         LinkColor(l),
		Width:         p.LinkWidth(l),
		Strength:      p.LinkStrength(l),
		Particles:     Particles(l),
		ParticleSpeed: ParticleSpeed(l),
		ArrowLength:   ArrowLength(l),
	}
}

// Node evaluates every attribute of n.
func (p *Policy) Node(n dataset.Node) NodeAttrs {
	degree := p.Degree(n.ID)
	color := palette.NodeColor(n, p.links)
	return NodeAttrs{
		ID:            n.ID,
		Label:         n.Label,
		Group:         n.Group,
		Color:         color.CSS(),
		Hex:           color.Hex(),
		Degree:        degree,
		Radius:        p.radius(n.ID, degree),
		CollideRadius: CollideRadius(degree),
		SelfLoops:     palette.SelfLoopCount(n.ID, p.links),
	}
}
