package cli

import (
	"github.com/spf13/cobra"

	"github.com/runoshun/tokenscope/internal/app"
)

// newTUICommand creates the tui command for launching the interactive editor.
// It is the same as running tokenscope without arguments.
func newTUICommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the script editor",
		Long:  `Open the interactive editor on the working script of the current project.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return launchTUIFunc(c)
		},
	}
	return cmd
}
