// Package editor launches the user's text editor.
package editor

import (
	"fmt"
	"os"
	"os/exec"
)

// fallback is used when neither EDITOR nor VISUAL is set.
const fallback = "vi"

// Name returns the user's preferred editor: EDITOR, then VISUAL, then vi.
func Name() string {
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	if e := os.Getenv("VISUAL"); e != "" {
		return e
	}
	return fallback
}

// Command returns the command that opens path in the user's editor, with no
// standard streams attached.
func Command(path string) *exec.Cmd {
	// #nosec G204 - editor is chosen by the user
	return exec.Command(Name(), path)
}

// Open edits path in the terminal and waits for the editor to exit.
// It returns an error if the editor cannot be started or exits with a non-zero status.
func Open(path string) error {
	cmd := Command(path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor %s: %w", cmd.Args[0], err)
	}
	return nil
}
