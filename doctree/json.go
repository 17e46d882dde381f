package doctree

import (
	"encoding/json"
)

// JSON codec for trees handed over by a host toolchain. This is transport
// for an already parsed representation, not markup parsing.

type nodeJSON struct {
	Kind     Kind       `json:"kind"`
	Text     string     `json:"text,omitempty"`
	Attrs    Attributes `json:"attrs,omitempty"`
	Children []*Node    `json:"children,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{
		Kind:     n.Kind,
		Text:     n.Text,
		Attrs:    n.Attrs,
		Children: n.Children,
	})
}

// UnmarshalJSON implements json.Unmarshaler restoring parent links.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Kind = raw.Kind
	n.Text = raw.Text
	n.Attrs = raw.Attrs
	if n.Attrs == nil {
		n.Attrs = make(Attributes)
	}
	n.Children = nil
	for _, c := range raw.Children {
		if c == nil {
			continue
		}
		c.parent = n
		n.Children = append(n.Children, c)
	}
	return nil
}
