package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorCurrent   = lipgloss.Color("#0076ff")
	colorLink      = lipgloss.Color("238")
	colorParticle  = lipgloss.Color("#ff7800")
)

// Canvas styles for link glyphs.
var (
	LinkStyle        = lipgloss.NewStyle().Foreground(colorLink)
	CurrentLinkStyle = lipgloss.NewStyle().Foreground(colorCurrent).Bold(true)
	SelectedLink     = lipgloss.NewStyle().Foreground(colorHighlight).Bold(true)
	ParticleStyle    = lipgloss.NewStyle().Foreground(colorParticle)
)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// PlayingBadge and PausedBadge mark playback state.
var (
	PlayingBadge = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	PausedBadge  = lipgloss.NewStyle().Foreground(colorMuted).Bold(true)
)

// DatasetBadge shows the loaded dataset.
var DatasetBadge = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Background(lipgloss.Color("236")).
	Padding(0, 1).
	MarginRight(1)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// HelpStyle for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(0, 1)

// Tooltip styles the branch example panel.
var Tooltip = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(0, 1)

// TooltipHeader is the "source -> target" line.
var TooltipHeader = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// TooltipLabel prefixes comment/reply lines.
var TooltipLabel = lipgloss.NewStyle().
	Foreground(colorSecondary)

// DebugPanel frames the debug overlay. Border plus padding is debugPanelChrome lines.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	BorderForeground(colorMuted).
	Padding(1, 1)

// DebugHeaderStyle for section headers inside the debug overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)
