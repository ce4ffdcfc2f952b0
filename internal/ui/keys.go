package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the TUI bindings. It satisfies help.KeyMap.
type keyMap struct {
	Play         key.Binding
	Step         key.Binding
	Faster       key.Binding
	Slower       key.Binding
	Normalize    key.Binding
	ChargeDown   key.Binding
	ChargeUp     key.Binding
	StrengthDown key.Binding
	StrengthUp   key.Binding
	NextDataset  key.Binding
	PrevDataset  key.Binding
	NextType     key.Binding
	NextLink     key.Binding
	Jump         key.Binding
	Debug        key.Binding
	Help         key.Binding
	Quit         key.Binding
}

var keys = keyMap{
	Play:         key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
	Step:         key.NewBinding(key.WithKeys("."), key.WithHelp(".", "step")),
	Faster:       key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "faster")),
	Slower:       key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "slower")),
	Normalize:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "normalize")),
	ChargeDown:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "charge -50")),
	ChargeUp:     key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "charge +50")),
	StrengthDown: key.NewBinding(key.WithKeys("{"), key.WithHelp("{", "strength -")),
	StrengthUp:   key.NewBinding(key.WithKeys("}"), key.WithHelp("}", "strength +")),
	NextDataset:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next dataset")),
	PrevDataset:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev dataset")),
	NextType:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "next type")),
	NextLink:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "inspect link")),
	Jump:         key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "find dataset")),
	Debug:        key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "debug")),
	Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Step, k.NextDataset, k.NextLink, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Step, k.Slower, k.Faster},
		{k.ChargeDown, k.ChargeUp, k.StrengthDown, k.StrengthUp, k.Normalize},
		{k.NextDataset, k.PrevDataset, k.NextType, k.Jump, k.NextLink},
		{k.Debug, k.Help, k.Quit},
	}
}
