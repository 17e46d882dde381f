// Package highlight provides the default Highlighter built on chroma. It
// tokenizes classified literal blocks into inline nodes the renderer styles
// by token class; coloring itself stays with the renderer.
package highlight

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"pdc/compose"
	"pdc/doctree"
)

// Chroma implements compose.Highlighter using chroma lexers.
type Chroma struct{}

// Tokens tokenizes the content lines with the lexer registered for lang.
// Unknown or empty languages produce a single plain text node, a block we
// cannot tokenize is still a valid block.
func (Chroma) Tokens(lang string, lines []string, _ compose.HighlightOptions) ([]*doctree.Node, error) {
	source := strings.Join(lines, "\n")

	lexer := lexers.Get(lang)
	if lexer == nil {
		return []*doctree.Node{doctree.NewText(source)}, nil
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, source)
	if err != nil {
		return nil, fmt.Errorf("unable to tokenize %q block: %w", lang, err)
	}

	var out []*doctree.Node
	for _, token := range it.Tokens() {
		if token.Value == "" {
			continue
		}
		n := doctree.New(doctree.KindInline, doctree.NewText(token.Value))
		n.AddClass(strings.ToLower(token.Type.String()))
		out = append(out, n)
	}
	if len(out) == 0 {
		out = append(out, doctree.NewText(source))
	}
	return out, nil
}
