package pipeline

import (
	"fmt"
	"io"

	"pdc/doctree"
)

// DebugRenderer writes the composite tree as an indented text dump. The
// real paginated renderer is an external collaborator; this one exists so
// the pipeline can be exercised and its output inspected end to end.
type DebugRenderer struct{}

// Render implements Renderer.
func (DebugRenderer) Render(tree *doctree.Node, out io.Writer, opts Options) error {
	if _, err := fmt.Fprintf(out, "# language=%s page-template=%s toc=%v index=%v\n",
		opts.Language, opts.PageTemplate, opts.UseTOC, opts.UseIndex); err != nil {
		return err
	}
	_, err := io.WriteString(out, doctree.Dump(tree))
	return err
}
