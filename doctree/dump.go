package doctree

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Human readable tree dump used by the debug renderer and in test failures.

type treeWriter struct {
	w *strings.Builder
}

func (tw treeWriter) line(depth int, format string, args ...any) {
	for range depth {
		tw.w.WriteString("  ")
	}
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// Dump renders the subtree as indented text, one node per line.
func Dump(n *Node) string {
	tw := treeWriter{w: &strings.Builder{}}
	dumpNode(tw, n, 0)
	return tw.w.String()
}

func dumpNode(tw treeWriter, n *Node, depth int) {
	label := string(n.Kind)
	if n.Kind == KindText {
		tw.line(depth, "%s %s", label, strconv.Quote(n.Text))
		return
	}
	if attrs := formatAttrs(n.Attrs); attrs != "" {
		label += " " + attrs
	}
	tw.line(depth, "%s", label)
	for _, c := range n.Children {
		dumpNode(tw, c, depth+1)
	}
}

func formatAttrs(attrs Attributes) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, attrs[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
