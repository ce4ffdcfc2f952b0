package dataset

// LatestEvent returns the most recent example event for a source -> target
// edge. Frames are scanned from the highest index down, so the first match in
// the newest frame wins. Returns nil when the edge never occurs.
func LatestEvent(source, target string, frames []Frame) *Event {
	for i := len(frames) - 1; i >= 0; i-- {
		events := frames[i].Events
		for j := range events {
			if events[j].Source == source && events[j].Target == target {
				ev := events[j]
				return &ev
			}
		}
	}
	return nil
}
