// Package compose builds one linear composite tree per output document:
// inlining included trees, resolving cross-references, generating the table
// of contents and running the final stateful translation pass.
package compose

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pdc/doctree"
)

// ErrUnknownDocument must be returned (possibly wrapped) by tree sources
// when asked for a document they do not know.
var ErrUnknownDocument = errors.New("unknown document")

// ErrNavigationCycle fails assembly of a single output document whose
// navigation graph loops back on itself.
var ErrNavigationCycle = errors.New("navigation graph cycle")

// TreeSource supplies parsed source trees by document.
type TreeSource interface {
	Tree(id doctree.DocumentID) (*doctree.Node, error)
}

// Assemble deep-copies the root document's tree and recursively splices the
// trees its toctree placeholders reference, wrapping each inclusion in a
// start-of-file marker carrying the included DocumentID. Trees coming from
// src are never mutated, every inclusion is an independent copy. Returns the
// composite tree and the set of consumed document IDs.
//
// A placeholder referencing an unknown document is logged once and omitted.
// A cycle in the navigation graph fails this document only.
func Assemble(root doctree.DocumentID, src TreeSource, nav doctree.NavigationGraph, log *zap.Logger) (*doctree.Node, map[doctree.DocumentID]struct{}, error) {
	tree, err := src.Tree(root)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to load root document %q: %w", root, err)
	}

	a := &assembler{
		src:      src,
		nav:      nav,
		log:      log,
		consumed: map[doctree.DocumentID]struct{}{root: {}},
		visiting: map[doctree.DocumentID]bool{root: true},
		warned:   map[doctree.DocumentID]bool{},
	}
	out, err := a.inline(root, tree.Clone())
	if err != nil {
		return nil, nil, err
	}
	return out, a.consumed, nil
}

type assembler struct {
	src      TreeSource
	nav      doctree.NavigationGraph
	log      *zap.Logger
	consumed map[doctree.DocumentID]struct{}
	visiting map[doctree.DocumentID]bool // current inclusion path, cycle guard
	warned   map[doctree.DocumentID]bool // one warning per missing entry
}

// inline replaces every toctree placeholder in tree (an already private
// copy) with start-of-file wrappers around freshly assembled sub-documents.
func (a *assembler) inline(doc doctree.DocumentID, tree *doctree.Node) (*doctree.Node, error) {
	for _, placeholder := range tree.FindAll(doctree.KindToctree) {
		includes := placeholder.Attrs.Strings(doctree.AttrIncludes)
		if len(includes) == 0 {
			includes = a.includesFromGraph(doc)
		}

		var replacements []*doctree.Node
		for _, name := range includes {
			id := doctree.DocumentID(name)

			if a.visiting[id] {
				return nil, fmt.Errorf("%w: %q includes %q which is already on the inclusion path", ErrNavigationCycle, doc, id)
			}

			sub, err := a.src.Tree(id)
			if err != nil {
				if errors.Is(err, ErrUnknownDocument) {
					if !a.warned[id] {
						a.warned[id] = true
						a.log.Warn("Toctree contains reference to nonexisting document",
							zap.String("document", string(doc)), zap.String("target", string(id)))
					}
					continue
				}
				return nil, fmt.Errorf("unable to load included document %q: %w", id, err)
			}

			a.visiting[id] = true
			inlined, err := a.inline(id, sub.Clone())
			delete(a.visiting, id)
			if err != nil {
				return nil, err
			}
			a.consumed[id] = struct{}{}

			sof := doctree.New(doctree.KindStartOfFile, inlined.Children...)
			sof.SetAttr(doctree.AttrDocName, string(id))
			replacements = append(replacements, sof)
		}
		placeholder.ReplaceWith(replacements...)
	}
	return tree, nil
}

// includesFromGraph falls back to the navigation graph when a placeholder
// does not name its include files itself.
func (a *assembler) includesFromGraph(doc doctree.DocumentID) []string {
	ids := a.nav[doc]
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
