// Package cli provides the command-line interface for tokenscope.
package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/runoshun/tokenscope/internal/app"
	"github.com/runoshun/tokenscope/internal/tui"
)

// Command group IDs.
const (
	groupSetup  = "setup"
	groupScript = "script"
)

// launchTUIFunc is a function variable for launching the TUI, allowing it to be mocked in tests.
var launchTUIFunc = launchTUI

// NewRootCommand creates the root command for tokenscope.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "tokenscope",
		Short: "Token-level prompt script editor",
		Long: `tokenscope edits prompt scripts made of text, completion and branch
operations, runs them on an inference server and shows every generated
token colored by its logit. Any generated word can be turned into a branch
of alternatives and the script run again.

Run without arguments to open the editor.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip if container is nil (e.g. in tests)
			if c == nil || c.AppConfig == nil {
				return nil
			}
			for _, w := range c.AppConfig.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return launchTUIFunc(c)
		},
	}

	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupScript, Title: "Script Commands:"},
	)

	configCmd := newConfigCommand(c)
	configCmd.GroupID = groupSetup

	runCmd := newRunCommand(c)
	runCmd.GroupID = groupScript

	tokenizeCmd := newTokenizeCommand(c)
	tokenizeCmd.GroupID = groupScript

	scriptCmd := newScriptCommand(c)
	scriptCmd.GroupID = groupScript

	tuiCmd := newTUICommand(c)
	tuiCmd.GroupID = groupScript

	root.AddCommand(
		configCmd,
		runCmd,
		tokenizeCmd,
		scriptCmd,
		tuiCmd,
	)

	return root
}

// launchTUI runs the editor until the user quits.
func launchTUI(c *app.Container) error {
	if c == nil {
		return fmt.Errorf("editor needs a project directory")
	}
	model, err := tui.New(c)
	if err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	model.SetProgram(p)
	_, err = p.Run()
	return err
}
