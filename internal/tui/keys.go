package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the TUI.
type KeyMap struct {
	// Navigation
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Focus key.Binding // Switch between operations and results

	// Operations
	Edit          key.Binding // Edit text in place
	ExternalEdit  key.Binding // Edit text in $EDITOR
	AddText       key.Binding
	AddCompletion key.Binding
	AddBranch     key.Binding
	Delete        key.Binding
	Role          key.Binding // Cycle role
	MoreTokens    key.Binding
	FewerTokens   key.Binding
	Tokenize      key.Binding // Retry tokenize

	// Branches
	AddOption    key.Binding
	RemoveOption key.Binding
	PrevOption   key.Binding
	NextOption   key.Binding

	// Run
	Run key.Binding

	// Word popup
	Toggle key.Binding // Toggle a candidate
	Custom key.Binding // Add custom text
	Apply  key.Binding // Rewrite the script

	// Library
	SaveAs key.Binding

	// General
	Help    key.Binding
	Quit    key.Binding
	Escape  key.Binding
	Enter   key.Binding
	Confirm key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev word"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next word"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e", "enter"),
			key.WithHelp("e", "edit text"),
		),
		ExternalEdit: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "edit in $EDITOR"),
		),
		AddText: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add text"),
		),
		AddCompletion: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "add completion"),
		),
		AddBranch: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "add branch"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Role: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "cycle role"),
		),
		MoreTokens: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "more tokens"),
		),
		FewerTokens: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "fewer tokens"),
		),
		Tokenize: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "tokenize"),
		),
		AddOption: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "add option"),
		),
		RemoveOption: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "remove option"),
		),
		PrevOption: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev option"),
		),
		NextOption: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next option"),
		),
		Run: key.NewBinding(
			key.WithKeys("ctrl+r", "R"),
			key.WithHelp("R", "run"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "toggle"),
		),
		Custom: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "custom text"),
		),
		Apply: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply"),
		),
		SaveAs: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "save as"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "confirm"),
		),
	}
}

// ShortHelp returns keybindings to show in the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Edit, k.AddText, k.AddCompletion, k.Run, k.Focus, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Focus},                                  // Navigation
		{k.Edit, k.ExternalEdit, k.Role, k.MoreTokens, k.FewerTokens, k.Tokenize}, // Operation
		{k.AddText, k.AddCompletion, k.AddBranch, k.Delete},                       // Structure
		{k.AddOption, k.RemoveOption, k.PrevOption, k.NextOption},                 // Branches
		{k.Run, k.Enter, k.Toggle, k.Custom, k.Apply},                             // Results
		{k.SaveAs, k.Help, k.Quit},                                                // General
	}
}
