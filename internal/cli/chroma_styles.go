package cli

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// scriptStyle is the chroma style used by 'script show'.
const scriptStyle = "tokenscope"

func init() {
	// Catppuccin Mocha colors, limited to what JSON and YAML lexers emit.
	styles.Register(chroma.MustNewStyle(scriptStyle, chroma.StyleEntries{
		chroma.Text:                "#cdd6f4",
		chroma.Error:               "#f38ba8",
		chroma.Comment:             "#6c7086 italic",
		chroma.Keyword:             "#cba6f7",
		chroma.KeywordConstant:     "#fab387",
		chroma.Punctuation:         "#9399b2",
		chroma.NameTag:             "#89b4fa",
		chroma.NameAttribute:       "#89b4fa",
		chroma.LiteralNumber:       "#fab387",
		chroma.LiteralString:       "#a6e3a1",
		chroma.LiteralStringEscape: "#f5e0dc",
		chroma.Background:          "",
	}))
}
