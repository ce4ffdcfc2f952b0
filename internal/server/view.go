package server

import (
	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/force"
)

// SnapshotView is the JSON form of a snapshot plus everything a renderer
// needs to draw it.
type SnapshotView struct {
	Index      int               `json:"index"`
	Frames     int               `json:"frames"`
	Epoch      int               `json:"epoch"`
	Ticks      uint64            `json:"ticks"` // frames merged since startup
	Counter    int               `json:"counter"` // total - index - 1
	DaysAgo    *int              `json:"days_ago,omitempty"`
	Playing    bool              `json:"playing"`
	IntervalMS int64             `json:"interval_ms"`
	Params     force.Params      `json:"params"`
	Nodes      []force.NodeAttrs `json:"nodes"`
	Links      []force.LinkAttrs `json:"links"`
	Dataset    DatasetRef        `json:"dataset"`
}

// DatasetRef names the loaded dataset.
type DatasetRef struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// PlaybackRequest is the body of POST /api/playback. Absent fields are left
// unchanged.
type PlaybackRequest struct {
	Playing    *bool `json:"playing,omitempty"`
	IntervalMS *int  `json:"interval_ms,omitempty"`
}

// LoadResponse summarises a loaded dataset.
type LoadResponse struct {
	DatasetRef
	Nodes  int `json:"nodes"`
	Frames int `json:"frames"`
	Events int `json:"events"`
}

func (s *Server) view(snap anim.Snapshot) SnapshotView {
	s.mu.RLock()
	params := s.params
	ref := DatasetRef{Type: s.dataType, Name: s.name}
	s.mu.RUnlock()

	policy := force.NewPolicy(params, s.weights, snap)
	v := SnapshotView{
		Index:      snap.Index,
		Frames:     snap.Frames,
		Epoch:      snap.Epoch,
		Ticks:      s.player.Ticks(),
		Playing:    s.player.Playing(),
		IntervalMS: s.player.Interval().Milliseconds(),
		Params:     params,
		Nodes:      make([]force.NodeAttrs, 0, len(snap.Nodes)),
		Links:      make([]force.LinkAttrs, 0, len(snap.Links)),
		Dataset:    ref,
	}
	if snap.Index >= 0 && snap.Index < snap.Frames {
		v.Counter = snap.Frames - snap.Index - 1
		if frames := s.player.Frames(); snap.Index < len(frames) {
			days := frames[snap.Index].Timestamp
			v.DaysAgo = &days
		}
	}
	for _, n := range snap.Nodes {
		v.Nodes = append(v.Nodes, policy.Node(n))
	}
	for _, l := range snap.Links {
		v.Links = append(v.Links, policy.Link(l))
	}
	return v
}
