// Package doctree defines the document tree representation shared by the
// whole pipeline: typed nodes with string-keyed attributes, the navigation
// graph linking source units, and traversal helpers.
package doctree

import (
	"strings"
)

// DocumentID is an opaque identifier of one source unit. It doubles as a
// navigation graph key and as a renderer target fragment.
type DocumentID string

// NavigationGraph maps a document to the ordered documents it includes.
// It may contain cycles or dangling references, consumers must cope.
type NavigationGraph map[DocumentID][]DocumentID

// Kind distinguishes the different node types.
type Kind string

const (
	KindDocument       Kind = "document"
	KindSection        Kind = "section"
	KindTitle          Kind = "title"
	KindParagraph      Kind = "paragraph"
	KindText           Kind = "text"
	KindEmphasis       Kind = "emphasis"
	KindStrong         Kind = "strong"
	KindInline         Kind = "inline"
	KindReference      Kind = "reference"
	KindTarget         Kind = "target"
	KindTopic          Kind = "topic"
	KindRubric         Kind = "rubric"
	KindBulletList     Kind = "bullet-list"
	KindListItem       Kind = "list-item"
	KindLiteralBlock   Kind = "literal-block"
	KindFootnote       Kind = "footnote"
	KindFootnoteRef    Kind = "footnote-reference"
	KindLabel          Kind = "label"
	KindPendingRef     Kind = "pending-reference"
	KindToctree        Kind = "toctree-placeholder"
	KindStartOfFile    Kind = "start-of-file"
	KindRaw            Kind = "raw"
	KindProductionList Kind = "production-list"
	KindProduction     Kind = "production"
	KindVersionChange  Kind = "version-modified"
	KindHighlightLang  Kind = "highlight-directive"
	KindCompound       Kind = "compound"
)

// Well known attribute keys.
const (
	AttrIDs       = "ids"
	AttrClasses   = "classes"
	AttrRefTarget = "reftarget"
	AttrRefID     = "refid"
	AttrRefURI    = "refuri"
	AttrDocName   = "docname"
	AttrTokenName = "tokenname"
	AttrBackrefs  = "backrefs"
	AttrLanguage  = "language"
	AttrLinenos   = "linenos"
	AttrAuto      = "auto"
	AttrFormat    = "format"
	AttrIncludes  = "includefiles"
	AttrCollapse  = "collapse"
)

// Node is a single typed tree element. Children are owned, the parent link
// is a back-reference only. A node has exactly one owning parent except the
// forest roots.
type Node struct {
	Kind     Kind
	Text     string
	Attrs    Attributes
	Children []*Node

	parent *Node
}

// New creates a node of the given kind adopting the children.
func New(kind Kind, children ...*Node) *Node {
	n := &Node{Kind: kind, Attrs: make(Attributes)}
	n.Append(children...)
	return n
}

// NewText creates a text leaf.
func NewText(text string) *Node {
	return &Node{Kind: KindText, Text: text, Attrs: make(Attributes)}
}

// Parent returns the owning parent, nil for forest roots.
func (n *Node) Parent() *Node {
	return n.parent
}

// Append adopts children at the end preserving order.
func (n *Node) Append(children ...*Node) *Node {
	for _, c := range children {
		if c == nil {
			continue
		}
		c.parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

// Insert adopts a child at the given position shifting later siblings.
func (n *Node) Insert(at int, child *Node) {
	if child == nil {
		return
	}
	if at < 0 {
		at = 0
	}
	if at > len(n.Children) {
		at = len(n.Children)
	}
	child.parent = n
	n.Children = append(n.Children, nil)
	copy(n.Children[at+1:], n.Children[at:])
	n.Children[at] = child
}

// ReplaceWith substitutes this node in its parent with the given nodes,
// preserving sibling order. Passing no nodes removes it. It is a no-op for
// a node without a parent.
func (n *Node) ReplaceWith(nodes ...*Node) {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.Children {
		if c != n {
			continue
		}
		rest := append([]*Node{}, p.Children[i+1:]...)
		p.Children = p.Children[:i]
		for _, nn := range nodes {
			if nn == nil {
				continue
			}
			nn.parent = p
			p.Children = append(p.Children, nn)
		}
		p.Children = append(p.Children, rest...)
		n.parent = nil
		return
	}
}

// AsPlainText extracts the concatenated text of the subtree.
func (n *Node) AsPlainText() string {
	var buf strings.Builder
	n.appendText(&buf)
	return buf.String()
}

func (n *Node) appendText(buf *strings.Builder) {
	if n.Kind == KindText {
		buf.WriteString(n.Text)
		return
	}
	for _, c := range n.Children {
		c.appendText(buf)
	}
}

// FindAll returns all descendants of the given kind in document order,
// including the node itself.
func (n *Node) FindAll(kind Kind) []*Node {
	var out []*Node
	var rec func(*Node)
	rec = func(cur *Node) {
		if cur.Kind == kind {
			out = append(out, cur)
		}
		for _, c := range cur.Children {
			rec(c)
		}
	}
	rec(n)
	return out
}

// FirstChild returns the first child of the given kind, nil when absent.
func (n *Node) FirstChild(kind Kind) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// SetAttr sets a single attribute value.
func (n *Node) SetAttr(key string, value any) *Node {
	if n.Attrs == nil {
		n.Attrs = make(Attributes)
	}
	n.Attrs[key] = value
	return n
}
