package compose

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"pdc/doctree"
	"pdc/index"
)

// Cross-reference resolution. After this pass no pending-reference node may
// survive anywhere in the tree, a renderer meeting one is a programming
// defect, not bad input.

// ErrNoURI is returned by a URIResolver when a document belongs to no
// output document of the run.
var ErrNoURI = errors.New("no target URI for document")

// URIResolver maps a document to the synthetic URI of the output document
// containing it. An empty URI means "local to the current output document".
type URIResolver func(doc doctree.DocumentID) (string, error)

// TitlePair annotates external references: documents whose ID starts with
// Prefix belong to the output document named Title.
type TitlePair struct {
	Prefix doctree.DocumentID
	Title  string
}

// TitleIndex is the ordered list of per-output-document title prefixes.
type TitleIndex []TitlePair

// ResolveOptions controls reference resolution for one output document.
type ResolveOptions struct {
	UseIndex bool   // general index enabled, genindex target resolvable
	InLabel  string // localized " (in " joiner for external citations
}

// ResolveReferences replaces every pending-reference node in the composite
// tree with renderable content: a concrete reference for the reserved index
// target and for anchors present in the tree, an emphasized "(in <Title>)"
// citation for targets living in other output documents, and a plain
// emphasis when nothing better is known.
func ResolveReferences(tree *doctree.Node, consumed map[doctree.DocumentID]struct{}, titles TitleIndex, uriFor URIResolver, opts ResolveOptions, log *zap.Logger) {
	anchors := collectAnchors(tree)
	inLabel := opts.InLabel
	if inLabel == "" {
		inLabel = " (in "
	}

	for _, pending := range tree.FindAll(doctree.KindPendingRef) {
		target := pending.Attrs.String(doctree.AttrRefTarget)

		if pending.Attrs.String("reftype") == "token" {
			// grammar token cross-reference, addressed by name
			ref := doctree.New(doctree.KindReference, doctree.NewText(pending.AsPlainText()))
			ref.SetAttr(doctree.AttrRefURI, "@"+target)
			pending.ReplaceWith(ref)
			continue
		}

		if target == index.GeneralIndexID && opts.UseIndex {
			ref := doctree.New(doctree.KindReference, doctree.NewText(pending.AsPlainText()))
			ref.SetAttr(doctree.AttrRefID, index.GeneralIndexID)
			pending.ReplaceWith(ref)
			continue
		}

		if target != "" && anchors[target] {
			ref := doctree.New(doctree.KindReference, doctree.NewText(pending.AsPlainText()))
			ref.SetAttr(doctree.AttrRefID, target)
			pending.ReplaceWith(ref)
			continue
		}

		// Target is not in this composite document. Cite the section name
		// and, when the target document belongs to another output document
		// of the run, annotate with that document's title and link to it.
		docname := doctree.DocumentID(pending.Attrs.String(doctree.AttrDocName))
		sectname := pending.Attrs.String("refsectname")
		if sectname == "" {
			sectname = pending.AsPlainText()
		}

		replacement := []*doctree.Node{
			doctree.New(doctree.KindEmphasis, doctree.NewText(sectname)),
		}
		if title, ok := titleFor(titles, docname); ok {
			replacement = append(replacement,
				doctree.NewText(inLabel),
				doctree.New(doctree.KindEmphasis, doctree.NewText(title)),
				doctree.NewText(")"))
		}
		if docname != "" {
			if _, local := consumed[docname]; !local && uriFor != nil {
				if uri, err := uriFor(docname); err == nil && uri != "" {
					replacement[0].SetAttr(doctree.AttrRefURI, uri)
				} else if err != nil && !errors.Is(err, ErrNoURI) {
					log.Warn("Unable to resolve target URI",
						zap.String("document", string(docname)), zap.Error(err))
				}
			}
		}
		log.Debug("Replacing dangling reference with citation",
			zap.String("target", target), zap.String("document", string(docname)))
		pending.ReplaceWith(replacement...)
	}
}

// collectAnchors gathers every anchor id defined in the tree.
func collectAnchors(tree *doctree.Node) map[string]bool {
	anchors := make(map[string]bool)
	var rec func(*doctree.Node)
	rec = func(n *doctree.Node) {
		for _, id := range n.IDs() {
			anchors[id] = true
		}
		for _, c := range n.Children {
			rec(c)
		}
	}
	rec(tree)
	return anchors
}

func titleFor(titles TitleIndex, docname doctree.DocumentID) (string, bool) {
	if docname == "" {
		return "", false
	}
	for _, pair := range titles {
		if strings.HasPrefix(string(docname), string(pair.Prefix)) {
			return pair.Title, true
		}
	}
	return "", false
}
