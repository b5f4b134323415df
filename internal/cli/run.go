package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/runoshun/tokenscope/internal/app"
	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/runoshun/tokenscope/internal/usecase"
)

// newRunCommand creates the run command.
func newRunCommand(c *app.Container) *cobra.Command {
	var opts struct {
		script string
		color  string
		stream bool
		bulk   bool
	}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a script and print the result",
		Long: `Run the working script, or a saved one with --script, and print every
token colored by its logit.

Text operations without tokens are tokenized first. With --stream (or
[editor].stream in the config) tokens are printed as they arrive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			r, err := newRenderer(cmd.OutOrStdout(), opts.color)
			if err != nil {
				return err
			}

			script, err := loadRunScript(cmd, c, opts.script)
			if err != nil {
				return err
			}

			if _, err := c.TokenizeScriptUseCase().Execute(ctx, usecase.TokenizeScriptInput{Script: script}); err != nil {
				return err
			}
			if opts.script == "" {
				if _, err := c.SaveStateUseCase().Execute(ctx, usecase.SaveStateInput{Triples: script.Triples()}); err != nil {
					return err
				}
			}

			sub, err := c.SubmitScriptUseCase().Prepare(script)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printer := newResultPrinter(r, script)
			stream := (opts.stream || c.AppConfig.Editor.Stream) && !opts.bulk
			if !stream {
				out, err := c.SubmitScriptUseCase().Execute(ctx, usecase.SubmitScriptInput{Submission: sub})
				if err != nil {
					return err
				}
				printer.Print(w, out.Results)
				return nil
			}

			out, err := c.StreamScriptUseCase().Execute(ctx, usecase.StreamScriptInput{
				Submission: sub,
				OnUpdate: func(_ *domain.Results, a domain.Assembly) {
					for _, word := range a.Rendered {
						if word.Editable {
							_, _ = fmt.Fprint(w, printer.Word(word))
						}
					}
				},
			})
			_, _ = fmt.Fprintln(w)
			if err != nil {
				return err
			}
			// Colors printed while streaming used the scale known at the time.
			_, _ = fmt.Fprintln(w)
			printer.Print(w, out.Results)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.script, "script", "", "Run a saved script instead of the working script")
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "Print generated tokens as they arrive")
	cmd.Flags().BoolVar(&opts.bulk, "no-stream", false, "Wait for the whole response even if streaming is configured")
	cmd.Flags().StringVar(&opts.color, "color", colorAuto, "Color output: auto, always or never")
	cmd.MarkFlagsMutuallyExclusive("stream", "no-stream")

	return cmd
}

// loadRunScript returns the named library script, or the working script.
func loadRunScript(cmd *cobra.Command, c *app.Container, name string) (*domain.Script, error) {
	if name != "" {
		out, err := c.LoadScriptUseCase().Execute(cmd.Context(), usecase.LoadScriptInput{Name: name})
		if err != nil {
			return nil, err
		}
		return out.Script, nil
	}
	out, err := c.LoadStateUseCase().Execute(cmd.Context(), usecase.LoadStateInput{})
	if err != nil {
		return nil, err
	}
	if out.Default {
		return nil, errors.New("no working script yet: open the editor or import one with 'tokenscope script import'")
	}
	return out.Script, nil
}
