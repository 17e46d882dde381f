package doctree

// Attributes is the string-keyed attribute mapping attached to every node.
// Values are kept loosely typed so trees survive a JSON round trip, the
// accessors below normalize what comes back.
type Attributes map[string]any

func (a Attributes) String(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

func (a Attributes) Bool(key string) bool {
	if v, ok := a[key].(bool); ok {
		return v
	}
	return false
}

func (a Attributes) Int(key string) int {
	switch v := a[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		// JSON numbers decode as float64
		return int(v)
	}
	return 0
}

// Strings returns a string slice value, accepting both []string and the
// []any shape produced by JSON decoding.
func (a Attributes) Strings(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// IDs returns the node's anchor identifiers.
func (n *Node) IDs() []string {
	return n.Attrs.Strings(AttrIDs)
}

// SetIDs replaces the node's anchor identifiers.
func (n *Node) SetIDs(ids []string) {
	n.SetAttr(AttrIDs, ids)
}

// Classes returns the node's style classes.
func (n *Node) Classes() []string {
	return n.Attrs.Strings(AttrClasses)
}

// HasClass reports whether the node carries the given class.
func (n *Node) HasClass(class string) bool {
	for _, c := range n.Classes() {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends a style class when not already present.
func (n *Node) AddClass(class string) {
	if n.HasClass(class) {
		return
	}
	n.SetAttr(AttrClasses, append(n.Classes(), class))
}
