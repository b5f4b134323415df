package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/runoshun/tokenscope/internal/domain"
)

// Colors defines the color palette for the TUI.
var Colors = struct {
	// Base colors
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Error      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Background lipgloss.Color

	// Text colors
	TitleNormal   lipgloss.Color
	TitleSelected lipgloss.Color
	WordText      lipgloss.Color

	// Role colors
	System    lipgloss.Color
	User      lipgloss.Color
	Assistant lipgloss.Color
}{
	Primary:    lipgloss.Color("#6C5CE7"), // Purple
	Secondary:  lipgloss.Color("#A29BFE"), // Lavender
	Muted:      lipgloss.Color("#636E72"), // Gray
	Error:      lipgloss.Color("#D63031"), // Red
	Success:    lipgloss.Color("#00B894"), // Green
	Warning:    lipgloss.Color("#FDCB6E"), // Yellow
	Background: lipgloss.Color("#2D3436"), // Dark gray

	TitleNormal:   lipgloss.Color("#DFE6E9"),
	TitleSelected: lipgloss.Color("#FFEAA7"),
	WordText:      lipgloss.Color("#1E1E2E"),

	System:    lipgloss.Color("#FAB1A0"), // Peach
	User:      lipgloss.Color("#74B9FF"), // Light blue
	Assistant: lipgloss.Color("#55EFC4"), // Mint
}

// Styles contains all the lipgloss styles for the TUI.
type Styles struct {
	// App
	App lipgloss.Style

	// Header
	Header     lipgloss.Style
	HeaderText lipgloss.Style

	// Operation list
	Pane               lipgloss.Style
	PaneFocused        lipgloss.Style
	OpID               lipgloss.Style
	OpKind             lipgloss.Style
	OpText             lipgloss.Style
	OpTextSelected     lipgloss.Style
	OpPlaceholder      lipgloss.Style
	SelectionIndicator lipgloss.Style
	OptionTab          lipgloss.Style
	OptionTabActive    lipgloss.Style

	// Operation status
	StatusPending lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusInvalid lipgloss.Style

	// Results
	Word        lipgloss.Style
	WordCursor  lipgloss.Style
	ResultLabel lipgloss.Style

	// Candidate popup
	Bar       lipgloss.Style
	BarEmpty  lipgloss.Style
	Checked   lipgloss.Style
	Unchecked lipgloss.Style

	// Help
	Help lipgloss.Style

	// Footer
	Footer    lipgloss.Style
	FooterKey lipgloss.Style

	// Dialog
	Dialog       lipgloss.Style
	DialogTitle  lipgloss.Style
	DialogPrompt lipgloss.Style

	// Input
	Input       lipgloss.Style
	InputPrompt lipgloss.Style

	// Error
	ErrorMsg lipgloss.Style
	Warning  lipgloss.Style
}

// DefaultStyles returns the default styles for the TUI.
func DefaultStyles() Styles {
	return Styles{
		App: lipgloss.NewStyle().
			Padding(0, 1),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(Colors.Primary),

		HeaderText: lipgloss.NewStyle().
			Foreground(Colors.Muted),

		Pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Colors.Muted),

		PaneFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Colors.Primary),

		OpID: lipgloss.NewStyle().
			Foreground(Colors.Muted),

		OpKind: lipgloss.NewStyle().
			Foreground(Colors.Secondary).
			Italic(true),

		OpText: lipgloss.NewStyle().
			Foreground(Colors.TitleNormal),

		OpTextSelected: lipgloss.NewStyle().
			Foreground(Colors.TitleSelected).
			Bold(true),

		OpPlaceholder: lipgloss.NewStyle().
			Foreground(Colors.Muted).
			Italic(true),

		SelectionIndicator: lipgloss.NewStyle().
			Foreground(Colors.TitleSelected),

		OptionTab: lipgloss.NewStyle().
			Foreground(Colors.Muted),

		OptionTabActive: lipgloss.NewStyle().
			Foreground(Colors.TitleSelected).
			Underline(true),

		StatusPending: lipgloss.NewStyle().
			Foreground(Colors.Warning),

		StatusFailed: lipgloss.NewStyle().
			Foreground(Colors.Error).
			Bold(true),

		StatusInvalid: lipgloss.NewStyle().
			Foreground(Colors.Error),

		Word: lipgloss.NewStyle().
			Foreground(Colors.WordText),

		WordCursor: lipgloss.NewStyle().
			Foreground(Colors.WordText).
			Underline(true).
			Bold(true),

		ResultLabel: lipgloss.NewStyle().
			Foreground(Colors.Muted).
			Faint(true),

		Bar: lipgloss.NewStyle().
			Foreground(Colors.Secondary),

		BarEmpty: lipgloss.NewStyle().
			Foreground(Colors.Background),

		Checked: lipgloss.NewStyle().
			Foreground(Colors.Success).
			Bold(true),

		Unchecked: lipgloss.NewStyle().
			Foreground(Colors.Muted),

		Help: lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Colors.Muted),

		Footer: lipgloss.NewStyle().
			Foreground(Colors.Muted),

		FooterKey: lipgloss.NewStyle().
			Foreground(Colors.Primary).
			Bold(true),

		Dialog: lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Colors.Primary),

		DialogTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(Colors.Primary),

		DialogPrompt: lipgloss.NewStyle(),

		Input: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Colors.Primary),

		InputPrompt: lipgloss.NewStyle().
			Foreground(Colors.Primary).
			Bold(true),

		ErrorMsg: lipgloss.NewStyle().
			Foreground(Colors.Error).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Colors.Warning),
	}
}

// RoleStyle returns the style for the role label of an operation.
func (s Styles) RoleStyle(role domain.Role) lipgloss.Style {
	switch role {
	case domain.RoleSystem:
		return lipgloss.NewStyle().Foreground(Colors.System)
	case domain.RoleUser:
		return lipgloss.NewStyle().Foreground(Colors.User)
	case domain.RoleAssistant:
		return lipgloss.NewStyle().Foreground(Colors.Assistant)
	default:
		return s.OpID
	}
}

// KindIcon returns an icon for an operation kind.
func KindIcon(kind domain.Kind) string {
	switch kind {
	case domain.KindText:
		return "¶"
	case domain.KindCompletion:
		return "…"
	case domain.KindBranch:
		return "⑂"
	default:
		return "?"
	}
}
