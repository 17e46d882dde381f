package compose

import (
	"fmt"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"pdc/doctree"
)

// Table of contents generation over the assembled composite tree.

// BacklinkPolicy selects where generated section headings link back to.
type BacklinkPolicy string

const (
	BacklinkNone  BacklinkPolicy = "none"
	BacklinkEntry BacklinkPolicy = "entry" // heading links to its own TOC entry
	BacklinkTop   BacklinkPolicy = "top"   // heading links to the top of the TOC
)

// ContentsOptions controls TOC generation.
type ContentsOptions struct {
	MaxDepth  int
	Backlinks BacklinkPolicy
	TocID     string // anchor of the contents topic, target of the "top" policy
}

// BuildContents collects the section structure of the composite tree into a
// nested bullet list. Sections of inlined sub-documents sit behind
// start-of-included-file wrappers, those are looked through, a scan over
// direct children only would silently drop every included document.
// Returns nil when the tree has no sections.
func BuildContents(tree *doctree.Node, opts ContentsOptions, log *zap.Logger) *doctree.Node {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 9999
	}
	b := &contentsBuilder{opts: opts, log: log}
	toc := b.build(tree, 0)
	if toc == nil {
		log.Debug("No sections found, contents list is empty")
	}
	return toc
}

type contentsBuilder struct {
	opts ContentsOptions
	log  *zap.Logger
	seq  int
}

func (b *contentsBuilder) build(node *doctree.Node, level int) *doctree.Node {
	level++
	sections := collectSections(node)

	var entries []*doctree.Node
	auto := false
	for _, section := range sections {
		title := section.FirstChild(doctree.KindTitle)
		if title == nil {
			continue
		}
		if title.Attrs.Bool(doctree.AttrAuto) {
			auto = true
		}

		ids := section.IDs()
		if len(ids) == 0 {
			b.log.Debug("Section without anchor skipped in contents", zap.String("title", title.AsPlainText()))
			continue
		}

		ref := doctree.New(doctree.KindReference, doctree.NewText(title.AsPlainText()))
		ref.SetAttr(doctree.AttrRefID, ids[0])
		refID := b.entryID(title.AsPlainText())
		ref.SetIDs([]string{refID})

		item := doctree.New(doctree.KindListItem, doctree.New(doctree.KindParagraph, ref))

		// Only touch headings that do not already carry an explicit
		// reference of their own.
		if (b.opts.Backlinks == BacklinkEntry || b.opts.Backlinks == BacklinkTop) &&
			len(title.FindAll(doctree.KindReference)) == 0 {
			if b.opts.Backlinks == BacklinkEntry {
				title.SetAttr(doctree.AttrRefID, refID)
			} else {
				title.SetAttr(doctree.AttrRefID, b.opts.TocID)
			}
		}

		if level < b.opts.MaxDepth {
			if sub := b.build(section, level); sub != nil {
				item.Append(sub)
			}
		}
		entries = append(entries, item)
	}

	if len(entries) == 0 {
		return nil
	}
	contents := doctree.New(doctree.KindBulletList, entries...)
	if auto {
		// generated top level tables are styled differently by the renderer
		contents.AddClass("auto-toc")
	}
	return contents
}

// collectSections returns the sections below node, unwrapping compound and
// start-of-included-file wrapper nodes at any nesting.
func collectSections(node *doctree.Node) []*doctree.Node {
	var sections []*doctree.Node
	for _, child := range node.Children {
		switch child.Kind {
		case doctree.KindSection:
			sections = append(sections, child)
		case doctree.KindCompound, doctree.KindStartOfFile:
			sections = append(sections, collectSections(child)...)
		}
	}
	return sections
}

func (b *contentsBuilder) entryID(title string) string {
	b.seq++
	s := slug.Make(title)
	if s == "" {
		s = "entry"
	}
	return fmt.Sprintf("toc-%s-%d", s, b.seq)
}
