// Package picker is a searchable dataset list for jumping across types.
package picker

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/emograph/internal/dataset"
)

// maxVisible is the number of rows shown at once.
const maxVisible = 8

// Item is one dataset in the index.
type Item struct {
	DataType string
	Name     string
}

// Picker filters the index by substring as the user types.
type Picker struct {
	input    textinput.Model
	items    []Item
	filtered []Item
	cursor   int
	width    int
	active   bool
}

// New creates an empty picker.
func New() Picker {
	ti := textinput.New()
	ti.Placeholder = "dataset name or type..."
	ti.Prompt = "/ "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0076ff")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#c9d1d9"))
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#0076ff"))
	ti.CharLimit = 64

	return Picker{input: ti}
}

// SetIndex replaces the items with every dataset in idx, grouped by type.
func (p *Picker) SetIndex(idx dataset.Index) {
	p.items = nil
	for _, t := range idx.Types() {
		for _, name := range idx.Names(t) {
			p.items = append(p.items, Item{DataType: t, Name: name})
		}
	}
	p.filter()
}

// Len returns the number of items matching the current query.
func (p Picker) Len() int {
	return len(p.filtered)
}

// Activate shows the picker with an empty query.
func (p *Picker) Activate() tea.Cmd {
	p.active = true
	p.input.SetValue("")
	p.input.Focus()
	p.filter()
	return textinput.Blink
}

// Deactivate hides the picker.
func (p *Picker) Deactivate() {
	p.active = false
	p.input.Blur()
}

// IsActive reports whether the picker is showing.
func (p Picker) IsActive() bool {
	return p.active
}

// SetWidth sets the rendered width.
func (p *Picker) SetWidth(w int) {
	p.width = w
	p.input.Width = max(1, w-10)
}

// Selected returns the item under the cursor.
func (p Picker) Selected() (Item, bool) {
	if p.cursor >= 0 && p.cursor < len(p.filtered) {
		return p.filtered[p.cursor], true
	}
	return Item{}, false
}

// Update handles input. The returned item is non-nil when the user picked one.
func (p Picker) Update(msg tea.Msg) (Picker, tea.Cmd, *Item) {
	if !p.active {
		return p, nil, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			p.Deactivate()
			return p, nil, nil

		case "enter":
			it, ok := p.Selected()
			p.Deactivate()
			if !ok {
				return p, nil, nil
			}
			return p, nil, &it

		case "up", "ctrl+p":
			if p.cursor > 0 {
				p.cursor--
			}
			return p, nil, nil

		case "down", "ctrl+n":
			if p.cursor < len(p.filtered)-1 {
				p.cursor++
			}
			return p, nil, nil

		case "tab":
			if it, ok := p.Selected(); ok {
				p.input.SetValue(it.Name)
				p.input.CursorEnd()
				p.filter()
			}
			return p, nil, nil
		}
	}

	old := p.input.Value()
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != old {
		p.filter()
	}
	return p, cmd, nil
}

func (p *Picker) filter() {
	query := strings.ToLower(strings.TrimSpace(p.input.Value()))
	if query == "" {
		p.filtered = p.items
		p.cursor = 0
		return
	}

	var matches []Item
	for _, it := range p.items {
		if match(it, query) {
			matches = append(matches, it)
		}
	}
	p.filtered = matches
	if p.cursor >= len(p.filtered) {
		p.cursor = max(0, len(p.filtered)-1)
	}
}

// match accepts a plain substring of the name or type, or "type/name".
func match(it Item, query string) bool {
	if t, n, ok := strings.Cut(query, "/"); ok {
		return strings.Contains(strings.ToLower(it.DataType), t) &&
			strings.Contains(strings.ToLower(it.Name), n)
	}
	return strings.Contains(strings.ToLower(it.Name), query) ||
		strings.Contains(strings.ToLower(it.DataType), query)
}

// View renders the picker, or "" when inactive.
func (p Picker) View() string {
	if !p.active {
		return ""
	}

	container := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#30363d")).
		Padding(0, 1).
		Width(max(10, p.width-4))
	item := lipgloss.NewStyle().Foreground(lipgloss.Color("#c9d1d9")).Padding(0, 1)
	selected := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#0076ff")).
		Background(lipgloss.Color("#21262d")).
		Bold(true).
		Padding(0, 1)
	desc := lipgloss.NewStyle().Foreground(lipgloss.Color("#8b949e"))

	var b strings.Builder
	b.WriteString(p.input.View())
	b.WriteString("\n")
	b.WriteString(desc.Render(strings.Repeat("─", max(0, p.width-8))))
	b.WriteString("\n")

	start := 0
	if p.cursor >= maxVisible {
		start = p.cursor - maxVisible + 1
	}
	end := min(start+maxVisible, len(p.filtered))
	if start > 0 {
		b.WriteString(desc.Render("  ↑ more above"))
		b.WriteString("\n")
	}

	for i := start; i < end; i++ {
		it := p.filtered[i]
		if i == p.cursor {
			b.WriteString(selected.Render("› " + it.Name))
		} else {
			b.WriteString(item.Render("  " + it.Name))
		}
		b.WriteString(desc.Render(" " + it.DataType))
		b.WriteString("\n")
	}

	if end < len(p.filtered) {
		b.WriteString(desc.Render("  ↓ more below"))
		b.WriteString("\n")
	}
	if len(p.filtered) == 0 {
		b.WriteString(desc.Render("  no matching datasets"))
		b.WriteString("\n")
	}

	b.WriteString(desc.Render("↑↓ navigate  enter load  tab complete  esc cancel"))
	return container.Render(b.String())
}
