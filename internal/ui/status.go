package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/dataset"
	"github.com/abelbrown/emograph/internal/palette"
)

const noExample = "no example for this branch"

// frameCounter is the "counter / total" display: how many frames of the
// current pass have played before this one.
func frameCounter(s anim.Snapshot) string {
	if s.Index < 0 || s.Frames == 0 {
		return fmt.Sprintf("-/%d", s.Frames)
	}
	return fmt.Sprintf("%d/%d", s.Frames-s.Index-1, s.Frames)
}

// daysAgo returns the timestamp label of the frame merged by s.
func daysAgo(s anim.Snapshot, frames []dataset.Frame) string {
	if s.Index < 0 || s.Index >= len(frames) {
		return ""
	}
	d := frames[s.Index].Timestamp
	if d == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", d)
}

func (a App) renderHeader() string {
	title := DatasetBadge.Render("emograph")
	ref := a.dataType
	if a.name != "" {
		ref += "/" + a.name
	}
	header := title + StatusBarText.Render(ref)
	if a.loading {
		header += "  " + a.spinner.View() + StatusBarText.Render(" loading")
	}
	return header
}

func (a App) renderStatusBar() string {
	state := PausedBadge.Render("❚❚ paused")
	if a.playing {
		state = PlayingBadge.Render("▶ playing")
	}
	norm := "off"
	if a.params.Normalize {
		norm = "on"
	}

	parts := []string{
		state,
		StatusBarKey.Render("frame ") + StatusBarText.Render(frameCounter(a.snap)),
	}
	if days := daysAgo(a.snap, a.graph.Frames); days != "" {
		parts = append(parts, StatusBarText.Render(days))
	}
	parts = append(parts,
		StatusBarKey.Render("every ")+StatusBarText.Render(fmt.Sprintf("%dms", a.interval.Milliseconds())),
		StatusBarKey.Render("charge ")+StatusBarText.Render(fmt.Sprintf("%.0f", a.params.Charge)),
		StatusBarKey.Render("link ")+StatusBarText.Render(fmt.Sprintf("%.3f", a.params.LinkStrengthBase)),
		StatusBarKey.Render("norm ")+StatusBarText.Render(norm),
		StatusBarKey.Render("links ")+StatusBarText.Render(fmt.Sprintf("%d", len(a.snap.Links))),
	)
	return StatusBar.Width(a.width).Render(strings.Join(parts, "  "))
}

// renderTooltip shows the latest example event for the inspected link.
func (a App) renderTooltip() string {
	if a.selected == "" {
		return ""
	}
	l, ok := a.selectedLink()
	if !ok {
		return ""
	}
	src, tgt := l.Source, l.Target
	if n, ok := a.graph.NodeByID(src); ok && n.Label != "" {
		src = palette.English(n.Label)
	}
	if n, ok := a.graph.NodeByID(tgt); ok && n.Label != "" {
		tgt = palette.English(n.Label)
	}

	lines := []string{TooltipHeader.Render(fmt.Sprintf("%s -> %s", src, tgt)) +
		StatusBarText.Render(fmt.Sprintf("  x%d", l.Count))}
	ev := dataset.LatestEvent(l.Source, l.Target, a.graph.Frames)
	if ev == nil {
		lines = append(lines, StatusBarText.Render(noExample))
	} else {
		width := max(a.width-10, 20)
		lines = append(lines,
			TooltipLabel.Render("comment ")+truncateRunes(ev.Comment, width),
			TooltipLabel.Render("reply   ")+truncateRunes(ev.Reply, width),
		)
		if ev.CommentTime != "" || ev.ReplyTime != "" {
			lines = append(lines, TooltipLabel.Render(fmt.Sprintf("%s -> %s", ev.CommentTime, ev.ReplyTime)))
		}
	}
	return Tooltip.Width(max(a.width-2, 20)).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// truncateRunes shortens s to at most n runes, marking the cut with "...".
func truncateRunes(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
