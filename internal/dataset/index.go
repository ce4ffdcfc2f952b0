package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
)

// LegacyType is the dataset type assigned to entries of a flat index document.
const LegacyType = "emotion"

// Index maps a dataset type ("content", "theme", ...) to its dataset names.
type Index map[string][]string

// DecodeIndex parses index.json. Both the keyed form
// {"content": ["a", "b"]} and the legacy flat form ["a", "b"] are accepted;
// the flat form is filed under LegacyType.
func DecodeIndex(data []byte) (Index, error) {
	var keyed map[string][]string
	if err := json.Unmarshal(data, &keyed); err == nil {
		idx := Index{}
		for k, v := range keyed {
			if v == nil {
				v = []string{}
			}
			idx[k] = v
		}
		return idx, nil
	}

	var flat []string
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return Index{LegacyType: flat}, nil
}

// Types returns the dataset types in sorted order.
func (idx Index) Types() []string {
	types := make([]string, 0, len(idx))
	for k := range idx {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

// Names returns the datasets listed for a type, in document order.
func (idx Index) Names(dataType string) []string {
	return idx[dataType]
}

// First returns the first dataset of a type, or "" if there is none.
func (idx Index) First(dataType string) string {
	names := idx[dataType]
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// Next returns the dataset after name (wrapping). delta may be negative.
func (idx Index) Next(dataType, name string, delta int) string {
	names := idx[dataType]
	if len(names) == 0 {
		return ""
	}
	pos := 0
	for i, n := range names {
		if n == name {
			pos = i
			break
		}
	}
	pos = ((pos+delta)%len(names) + len(names)) % len(names)
	return names[pos]
}
