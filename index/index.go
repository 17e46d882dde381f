// Package index renders pre-grouped, pre-sorted index entries into document
// tree nodes: the general term index and per-domain indices. Grouping and
// sorting belong to the host toolchain's index adapter, this package only
// shapes the result.
package index

import (
	"fmt"

	"github.com/gosimple/slug"

	"pdc/doctree"
)

// GeneralIndexID is the reserved anchor of the general index topic.
const GeneralIndexID = "genindex"

// Entry is one raw index tuple as recorded per document by the host
// toolchain.
type Entry struct {
	Term        string
	GroupKind   string
	Page        string
	Anchor      string
	Extra       string
	Qualifier   string
	Description string
}

// Table maps a document to its ordered index entries. It is shared read
// state for a whole build, see WithScopedEntries for the single sanctioned
// mutation.
type Table map[doctree.DocumentID][]Entry

// SubEntry is a nested term under a general index entry.
type SubEntry struct {
	Term  string
	Links []string
}

// TermEntry ties an index term to its anchor targets and sub-entries. The
// first link is the primary occurrence, the rest render as bracketed
// mini-links.
type TermEntry struct {
	Term     string
	Links    []string
	Subitems []SubEntry
}

// Group is one letter group of the general index, entries keep input order.
type Group struct {
	Key     string
	Entries []TermEntry
}

// DomainGroup is one letter group of a domain index.
type DomainGroup struct {
	Key     string
	Entries []Entry
}

// BuildGeneralIndex renders grouped entries into a topic node anchored at
// GeneralIndexID. Returns nil when every group is empty, empty indexes have
// no place in the output.
func BuildGeneralIndex(title string, groups []Group) *doctree.Node {
	topic := doctree.New(doctree.KindSection,
		doctree.New(doctree.KindTitle, doctree.NewText(title)))
	topic.SetIDs([]string{GeneralIndexID})

	empty := true
	for _, group := range groups {
		if len(group.Entries) == 0 {
			continue
		}
		empty = false

		heading := doctree.New(doctree.KindRubric, doctree.NewText(group.Key))
		heading.AddClass("heading4")
		topic.Append(heading)

		for _, entry := range group.Entries {
			topic.Append(termParagraph(entry.Term, entry.Links, true))
			if len(entry.Subitems) == 0 {
				continue
			}
			sub := doctree.New(doctree.KindBulletList)
			for _, si := range entry.Subitems {
				sub.Append(doctree.New(doctree.KindListItem, termParagraph(si.Term, si.Links, false)))
			}
			topic.Append(sub)
		}
	}
	if empty {
		return nil
	}
	return topic
}

// termParagraph renders a term with its primary link and numbered extra
// occurrence links, or plain text when no links exist. Primary entries
// address anchors inside the composite document, sub-entry links are used
// verbatim.
func termParagraph(term string, links []string, anchored bool) *doctree.Node {
	p := doctree.New(doctree.KindParagraph)
	if len(links) == 0 {
		p.Append(doctree.NewText(term))
		return p
	}
	p.Append(linkNode(term, links[0], anchored))
	for i, link := range links[1:] {
		p.Append(doctree.NewText(" "))
		p.Append(linkNode(fmt.Sprintf("[%d]", i+1), link, anchored))
	}
	return p
}

func linkNode(text, target string, anchored bool) *doctree.Node {
	ref := doctree.New(doctree.KindReference, doctree.NewText(text))
	if anchored {
		ref.SetAttr(doctree.AttrRefID, MakeID(target))
	} else {
		ref.SetAttr(doctree.AttrRefURI, target)
	}
	return ref
}

// MakeID normalizes an anchor the way generated references address it.
func MakeID(anchor string) string {
	if anchor == "" {
		return ""
	}
	return slug.Make(anchor)
}

// BuildDomainIndex renders one domain index (e.g. a module index) into a
// section node. indexName anchors it, localName becomes the heading. Rows
// carry name, bracketed qualifier, parenthesized extra and an indented
// description. Returns nil when there is no content.
func BuildDomainIndex(indexName, localName string, groups []DomainGroup, collapse bool) *doctree.Node {
	content := false
	section := doctree.New(doctree.KindSection,
		doctree.New(doctree.KindTitle, doctree.NewText(localName)))
	section.SetIDs([]string{MakeID(indexName)})
	section.SetAttr(doctree.AttrCollapse, collapse)

	for _, group := range groups {
		if len(group.Entries) == 0 {
			continue
		}
		content = true

		heading := doctree.New(doctree.KindRubric, doctree.NewText(group.Key))
		heading.AddClass("heading4")
		section.Append(heading)

		for _, e := range group.Entries {
			row := doctree.New(doctree.KindParagraph, linkNode(e.Term, e.Anchor, true))
			if e.Extra != "" {
				row.Append(doctree.NewText(fmt.Sprintf(" (%s)", e.Extra)))
			}
			if e.Qualifier != "" {
				row.Append(doctree.NewText(fmt.Sprintf(" [%s]", e.Qualifier)))
			}
			section.Append(row)
			if e.Description != "" {
				desc := doctree.New(doctree.KindParagraph, doctree.NewText(e.Description))
				desc.AddClass("index-description")
				section.Append(desc)
			}
		}
	}
	if !content {
		return nil
	}
	return section
}
