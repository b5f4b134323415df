// Package tui provides the terminal editor for tokenscope scripts.
package tui

// Mode represents the current UI mode.
type Mode int

const (
	ModeNormal  Mode = iota // Navigate the operation list
	ModeEdit                // Edit the selected text operation
	ModeResults             // Move across result words
	ModeWord                // Candidate popup of one word
	ModeCustom              // Custom text input inside the popup
	ModeSaveAs              // Library name input
	ModeConfirm             // Confirmation dialog
	ModeHelp                // Help overlay
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeEdit:
		return "edit"
	case ModeResults:
		return "results"
	case ModeWord:
		return "word"
	case ModeCustom:
		return "custom"
	case ModeSaveAs:
		return "save_as"
	case ModeConfirm:
		return "confirm"
	case ModeHelp:
		return "help"
	default:
		return "unknown"
	}
}

// IsInputMode returns true if the mode accepts text input.
func (m Mode) IsInputMode() bool {
	switch m {
	case ModeEdit, ModeCustom, ModeSaveAs:
		return true
	case ModeNormal, ModeResults, ModeWord, ModeConfirm, ModeHelp:
		return false
	}
	return false
}

// ConfirmAction represents the type of action requiring confirmation.
type ConfirmAction int

const (
	ConfirmNone         ConfirmAction = iota
	ConfirmDelete                     // Remove operation
	ConfirmRemoveOption               // Remove the displayed branch option
)

// String returns a human-readable description of the action.
func (a ConfirmAction) String() string {
	switch a {
	case ConfirmNone:
		return ""
	case ConfirmDelete:
		return "delete"
	case ConfirmRemoveOption:
		return "remove option"
	}
	return ""
}
