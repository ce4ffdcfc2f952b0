// Package dataset defines the emotion-propagation dataset documents and the
// sources that load them.
//
// A dataset is a node list plus an ordered list of frames. Each frame groups the
// comment -> reply events observed on one day. Frames are stored oldest-first;
// playback walks them backwards.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Node is a graph vertex. ID is usually the emotion category label.
// Position fields belong to the layout engine once a node has been emitted.
type Node struct {
	ID    string   `json:"id"`
	Label string   `json:"label,omitempty"`
	Group string   `json:"group,omitempty"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	VX    *float64 `json:"vx,omitempty"`
	VY    *float64 `json:"vy,omitempty"`
	FX    *float64 `json:"fx,omitempty"` // pinned x
	FY    *float64 `json:"fy,omitempty"` // pinned y
}

// UnmarshalJSON accepts both string and numeric ids. Numeric ids are kept as
// their decimal text so every id compares as a string.
func (n *Node) UnmarshalJSON(data []byte) error {
	type nodeAlias Node
	var raw struct {
		nodeAlias
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = Node(raw.nodeAlias)

	id, err := decodeID(raw.ID)
	if err != nil {
		return err
	}
	n.ID = id
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("node id: %w", err)
		}
		return s, nil
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return "", fmt.Errorf("node id must be string or number: %s", raw)
	}
	if i, err := num.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return num.String(), nil
}

// Event is one observed comment -> reply interaction.
type Event struct {
	Timestamp    int     `json:"timestamp"`
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	TimeDiffDays float64 `json:"time_diff_days"`
	Comment      string  `json:"comment"`
	Reply        string  `json:"reply"`
	CommentTime  string  `json:"comment_time"`
	ReplyTime    string  `json:"reply_time"`
}

// Key returns the aggregation key for the event's edge.
func (e Event) Key() string {
	return LinkKey(e.Source, e.Target)
}

// LinkKey builds the "source|target" key shared by events and accumulated links.
func LinkKey(source, target string) string {
	return source + "|" + target
}

// Frame is the bucket of events sharing one timestamp (a day index).
type Frame struct {
	Timestamp int     `json:"timestamp"`
	Events    []Event `json:"events"`
}

// Graph is a full dataset document.
type Graph struct {
	Nodes  []Node  `json:"nodes"`
	Frames []Frame `json:"frames"`
}

// Empty reports whether the graph has nothing to animate.
func (g *Graph) Empty() bool {
	return g == nil || len(g.Frames) == 0
}

// EventCount returns the total number of events across all frames.
func (g *Graph) EventCount() int {
	if g == nil {
		return 0
	}
	n := 0
	for _, f := range g.Frames {
		n += len(f.Events)
	}
	return n
}

// NodeByID returns the node with the given id.
func (g *Graph) NodeByID(id string) (Node, bool) {
	if g == nil {
		return Node{}, false
	}
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Decode parses a dataset document. Missing arrays decode as empty slices.
func Decode(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if g.Nodes == nil {
		g.Nodes = []Node{}
	}
	if g.Frames == nil {
		g.Frames = []Frame{}
	}
	return &g, nil
}
