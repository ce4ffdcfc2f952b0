package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/emograph/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// rateWindow is the span the tick rate is averaged over.
const rateWindow = 5 * time.Second

// debugOverlay renders the debug panel showing playback stats and recent events.
// Pure function with no side effects. Returns empty string if ring is nil.
// events is optional and adds the event log's write counters.
func debugOverlay(ring *otel.RingBuffer, events *otel.Logger, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	recent := ring.Last(20)

	// --- Stats section (keyed lookups, not map iteration) ---
	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Playback Stats"))
	lines = append(lines, fmt.Sprintf("  Datasets:   %d loaded, %d errors",
		stats[otel.KindDatasetLoad], stats[otel.KindDatasetError]))
	lines = append(lines, fmt.Sprintf("  Frames:     %d ticks, %d epochs, %d resets",
		stats[otel.KindAnimTick], stats[otel.KindAnimEpoch], stats[otel.KindAnimReset]))
	lines = append(lines, fmt.Sprintf("  Rate:       %.1f ticks/s over %s",
		ring.Rate(otel.KindAnimTick, rateWindow, time.Now()), rateWindow))
	lines = append(lines, fmt.Sprintf("  Playback:   %d play, %d pause, %d interval",
		stats[otel.KindPlay], stats[otel.KindPause], stats[otel.KindInterval]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	if events != nil {
		lines = append(lines, fmt.Sprintf("  Log:        %d written, %d dropped", events.Emitted(), events.Dropped()))
	}
	lines = append(lines, "")

	lines = append(lines, DebugHeaderStyle.Render("Top Kinds"))
	for i, kc := range ring.SortedStats() {
		if i == 4 {
			break
		}
		lines = append(lines, fmt.Sprintf("  %-22s %d", string(kc.Kind), kc.Count))
	}
	lines = append(lines, "")

	lines = append(lines, DebugHeaderStyle.Render("Loads"))
	for _, e := range ring.LastOf(3, "dataset.") {
		line := fmt.Sprintf("  %6s  %s/%s  %d events", formatAge(time.Since(e.Time)), e.DataType, e.Dataset, e.Count)
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		lines = append(lines, line)
	}
	lines = append(lines, "")

	// --- Recent events section ---
	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		age := time.Since(e.Time)
		ageStr := formatAge(age)

		line := fmt.Sprintf("  %6s  %-18s", ageStr, string(e.Kind))
		if e.Dataset != "" {
			line += "  " + e.DataType + "/" + e.Dataset
		}
		if e.Kind == otel.KindAnimTick || e.Kind == otel.KindAnimEpoch {
			line += fmt.Sprintf("  frame:%d epoch:%d", e.Frame, e.Epoch)
		}
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 40)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		lines = append(lines, line)
	}

	// Truncate to fit terminal height (subtract chrome added by DebugPanel border/padding)
	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 76
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	content := strings.Join(lines, "\n")
	return DebugPanel.Width(panelWidth).Render(content)
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	hint := StatusBarKey.Render("D") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + hint)
}
