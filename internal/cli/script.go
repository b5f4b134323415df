package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/runoshun/tokenscope/internal/app"
	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/runoshun/tokenscope/internal/infra/editor"
	"github.com/runoshun/tokenscope/internal/usecase"
)

// newScriptCommand creates the script command.
func newScriptCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Manage the script library",
		Long: `Manage named scripts. The library lives under .tokenscope/scripts, or in
git refs when [store].backend is "git".`,
	}

	cmd.AddCommand(
		newScriptListCommand(c),
		newScriptShowCommand(c),
		newScriptSaveCommand(c),
		newScriptLoadCommand(c),
		newScriptRmCommand(c),
		newScriptImportCommand(c),
	)
	return cmd
}

func newScriptListCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved scripts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.ListScriptsUseCase().Execute(cmd.Context(), usecase.ListScriptsInput{})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(out.Scripts) == 0 {
				_, _ = fmt.Fprintln(w, "No scripts saved.")
				return nil
			}
			tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(tw, "NAME\tOPS\tUPDATED")
			for _, s := range out.Scripts {
				_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name, s.Operations, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func newScriptShowCommand(c *app.Container) *cobra.Command {
	var asYAML bool
	var color string

	cmd := &cobra.Command{
		Use:   "show [NAME]",
		Short: "Print a script",
		Long: `Print a saved script, or the working script when NAME is omitted, in its
persisted JSON form (or YAML with --yaml).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var script *domain.Script
			if len(args) == 1 {
				out, err := c.LoadScriptUseCase().Execute(cmd.Context(), usecase.LoadScriptInput{Name: args[0]})
				if err != nil {
					return err
				}
				script = out.Script
			} else {
				out, err := c.LoadStateUseCase().Execute(cmd.Context(), usecase.LoadStateInput{})
				if err != nil {
					return err
				}
				script = out.Script
			}

			data, lexer, err := encodeScript(script.Triples(), asYAML)
			if err != nil {
				return err
			}
			return writeHighlighted(cmd.OutOrStdout(), data, lexer, color)
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print as YAML")
	cmd.Flags().StringVar(&color, "color", colorAuto, "Color output: auto, always or never")
	return cmd
}

// encodeScript returns the triples as indented JSON, or as YAML built from
// the same JSON tree, with the matching lexer name.
func encodeScript(triples []domain.Triple, asYAML bool) (string, string, error) {
	data, err := json.MarshalIndent(triples, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode script: %w", err)
	}
	if !asYAML {
		return string(data) + "\n", "json", nil
	}

	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return "", "", fmt.Errorf("encode script: %w", err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return "", "", fmt.Errorf("encode script: %w", err)
	}
	_ = enc.Close()
	return buf.String(), "yaml", nil
}

// writeHighlighted writes source, syntax highlighted unless color is off.
func writeHighlighted(w io.Writer, source, lexer, color string) error {
	r, err := newRenderer(w, color)
	if err != nil {
		return err
	}
	if r.ColorProfile() == termenv.Ascii {
		_, err := io.WriteString(w, source)
		return err
	}
	return quick.Highlight(w, source, lexer, "terminal16m", scriptStyle)
}

func newScriptSaveCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "save NAME",
		Short: "Save the working script under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := c.LoadStateUseCase().Execute(cmd.Context(), usecase.LoadStateInput{})
			if err != nil {
				return err
			}
			out, err := c.SaveScriptUseCase().Execute(cmd.Context(), usecase.SaveScriptInput{
				Name:   args[0],
				Script: state.Script,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d operations)\n", out.Name, out.Operations)
			return nil
		},
	}
}

func newScriptLoadCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "load NAME",
		Short: "Replace the working script with a saved one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.LoadScriptUseCase().Execute(cmd.Context(), usecase.LoadScriptInput{
				Name:     args[0],
				Activate: true,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s (%d operations)\n", args[0], out.Script.Len())
			return nil
		},
	}
}

func newScriptRmCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "rm NAME...",
		Aliases: []string{"delete"},
		Short:   "Delete saved scripts",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, name := range args {
				if _, err := c.DeleteScriptUseCase().Execute(cmd.Context(), usecase.DeleteScriptInput{Name: name}); err != nil {
					errs = append(errs, err)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", name)
			}
			return errors.Join(errs...)
		},
	}
}

// importTemplate seeds the file opened by 'script import --edit'.
const importTemplate = `---
role: system
---
You are a helpful assistant.

---
role: user
---


---
type: completion
max_tokens: 300
---
`

func newScriptImportCommand(c *app.Container) *cobra.Command {
	var opts struct {
		name     string
		edit     bool
		tokenize bool
		dryRun   bool
	}

	cmd := &cobra.Command{
		Use:   "import [FILE]",
		Short: "Build a script from a text file",
		Long: `Build a script from a file of operations, each introduced by a frontmatter
block. Use "-" to read stdin, or --edit to write the file in $EDITOR.

  ---
  role: system
  ---
  You are a helpful assistant.

  ---
  type: branch
  options: 2
  ---

  ---
  parent: 2.2
  ---
  Text placed in the second option of operation 2.

Keys: type (text, completion, branch), role, max_tokens, options, parent.
Without --name the result replaces the working script.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readImportContent(cmd, args, opts.edit)
			if err != nil {
				return err
			}

			out, err := c.ImportScriptUseCase().Execute(cmd.Context(), usecase.ImportScriptInput{
				Content:  content,
				Name:     opts.name,
				Tokenize: opts.tokenize,
				DryRun:   opts.dryRun,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch {
			case opts.dryRun:
				_, _ = fmt.Fprintf(w, "Parsed %d operations (dry run)\n", out.Script.Len())
			case opts.name != "":
				_, _ = fmt.Fprintf(w, "Imported %d operations as %s\n", out.Script.Len(), opts.name)
			default:
				_, _ = fmt.Fprintf(w, "Imported %d operations into the working script\n", out.Script.Len())
			}
			for _, id := range out.Failed {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: tokenize failed for #%d\n", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "Save into the library under this name")
	cmd.Flags().BoolVarP(&opts.edit, "edit", "e", false, "Write the file in $EDITOR")
	cmd.Flags().BoolVar(&opts.tokenize, "tokenize", true, "Tokenize text operations")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Parse and validate without saving")
	return cmd
}

func readImportContent(cmd *cobra.Command, args []string, edit bool) (string, error) {
	switch {
	case edit:
		if len(args) > 0 {
			return "", errors.New("--edit does not take a file")
		}
		dir, err := os.MkdirTemp("", "tokenscope-import-")
		if err != nil {
			return "", err
		}
		defer func() { _ = os.RemoveAll(dir) }()
		path := filepath.Join(dir, "script.md")
		if err := os.WriteFile(path, []byte(importTemplate), 0o600); err != nil {
			return "", err
		}
		if err := editor.Open(path); err != nil {
			return "", err
		}
		data, err := os.ReadFile(path)
		return string(data), err
	case len(args) == 0 || args[0] == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read %s: %w", args[0], err)
		}
		return string(data), nil
	}
}
