package doctree

// Visitor-style traversal. Node specific logic lives in dispatch tables
// keyed by kind, the walker owns the traversal order and performs any
// substitutions the hooks request, so transforms stay decoupled from the
// walk itself.

// EnterFunc inspects a node before its children are visited. A non-nil
// replacement substitutes the node in its parent (an empty slice removes
// it); the walker then descends into the replacement nodes instead. When
// skip is true children are not visited and leave hooks do not fire.
type EnterFunc func(n *Node) (replacement []*Node, skip bool, err error)

// LeaveFunc runs after a node's children have been visited.
type LeaveFunc func(n *Node) error

// Visitor holds per-kind enter and leave hooks for a tree walk.
type Visitor struct {
	Enter map[Kind]EnterFunc
	Leave map[Kind]LeaveFunc
}

// Walk traverses the subtree rooted at root depth first, left to right,
// dispatching hooks by node kind. Replacements requested for the root
// itself are ignored, a document root is never substituted.
func Walk(root *Node, v *Visitor) error {
	if enter, ok := v.Enter[root.Kind]; ok {
		if _, skip, err := enter(root); err != nil {
			return err
		} else if skip {
			return nil
		}
	}
	if err := walkChildren(root, v); err != nil {
		return err
	}
	if leave, ok := v.Leave[root.Kind]; ok {
		return leave(root)
	}
	return nil
}

func walkChildren(n *Node, v *Visitor) error {
	// Children may be spliced while walking, index into the live slice and
	// account for replacements explicitly.
	for i := 0; i < len(n.Children); i++ {
		child := n.Children[i]

		var (
			replacement []*Node
			skip        bool
			err         error
		)
		if enter, ok := v.Enter[child.Kind]; ok {
			replacement, skip, err = enter(child)
			if err != nil {
				return err
			}
		}

		if replacement != nil {
			child.ReplaceWith(replacement...)
			if skip {
				i += len(replacement) - 1
				continue
			}
			for _, r := range replacement {
				if err := walkChildren(r, v); err != nil {
					return err
				}
				if leave, ok := v.Leave[r.Kind]; ok {
					if err := leave(r); err != nil {
						return err
					}
				}
			}
			i += len(replacement) - 1
			continue
		}

		if skip {
			continue
		}
		if err := walkChildren(child, v); err != nil {
			return err
		}
		if leave, ok := v.Leave[child.Kind]; ok {
			if err := leave(child); err != nil {
				return err
			}
		}
	}
	return nil
}
