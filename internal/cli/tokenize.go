package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runoshun/tokenscope/internal/app"
	"github.com/runoshun/tokenscope/internal/domain"
	"github.com/runoshun/tokenscope/internal/usecase"
)

// newTokenizeCommand creates the tokenize command.
func newTokenizeCommand(c *app.Container) *cobra.Command {
	var role string
	var raw, asJSON bool

	cmd := &cobra.Command{
		Use:   "tokenize [TEXT...]",
		Short: "Tokenize text with the inference server",
		Long: `Tokenize text the way a text operation is tokenized: wrapped in the
chat markers of its role. The text is read from stdin when no argument is
given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}

			if !raw {
				r, err := domain.ParseRole(role)
				if err != nil {
					return err
				}
				text = domain.RoleWrap(r, text)
			}

			out, err := c.TokenizeTextUseCase().Execute(cmd.Context(), usecase.TokenizeTextInput{
				Request: domain.TokenizeRequest{OperationKey: "cli", Text: text},
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(w).Encode(out.Tokens)
			}
			parts := make([]string, len(out.Tokens))
			for i, t := range out.Tokens {
				parts[i] = fmt.Sprint(int(t))
			}
			_, _ = fmt.Fprintln(w, strings.Join(parts, " "))
			return nil
		},
	}

	cmd.Flags().StringVarP(&role, "role", "r", string(domain.RoleUser), "Role whose markers wrap the text")
	cmd.Flags().BoolVar(&raw, "raw", false, "Send the text without role markers")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print tokens as a JSON array")

	return cmd
}
