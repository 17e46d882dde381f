package doctree

// Deep copy for document trees. Every toctree inclusion gets an independent
// value copy, later in-place mutation (footnote renumbering, id rewriting)
// must never leak into the shared source tree cache or into sibling
// inclusions of the same document.

// Clone creates a deep copy of the subtree rooted at n. The copy has no
// parent.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Kind:  n.Kind,
		Text:  n.Text,
		Attrs: cloneAttributes(n.Attrs),
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, 0, len(n.Children))
		for _, child := range n.Children {
			cc := child.Clone()
			cc.parent = c
			c.Children = append(c.Children, cc)
		}
	}
	return c
}

func cloneAttributes(attrs Attributes) Attributes {
	result := make(Attributes, len(attrs))
	for k, v := range attrs {
		switch vv := v.(type) {
		case []string:
			result[k] = append([]string(nil), vv...)
		case []any:
			result[k] = append([]any(nil), vv...)
		default:
			result[k] = v
		}
	}
	return result
}
