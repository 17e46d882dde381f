// Package pipeline orchestrates the per-document build: assemble, resolve,
// index and contents insertion, translation, and the hand-off to the
// external renderer. Everything below the tree level (markup parsing, page
// layout, glyphs) lives behind the interfaces defined here.
package pipeline

import (
	"io"

	"pdc/compose"
	"pdc/doctree"
	"pdc/index"
)

// TreeProvider supplies parsed source trees and the navigation graph
// computed by the host toolchain. Tree must return an error wrapping
// compose.ErrUnknownDocument for unknown IDs.
type TreeProvider interface {
	compose.TreeSource
	AllDocuments() map[doctree.DocumentID]struct{}
	Navigation() doctree.NavigationGraph
}

// FragmentParser is optionally implemented by providers that can parse a
// small piece of source markup, used for cover pages authored as templates.
type FragmentParser interface {
	ParseFragment(markup string) (*doctree.Node, error)
}

// IndexAdapter exposes the host toolchain's index entries. Entries returns
// the shared table (mutated only through index.WithScopedEntries),
// GeneralIndex the grouped and sorted general index content for the
// currently scoped table state.
type IndexAdapter interface {
	Entries() index.Table
	GeneralIndex() []index.Group
}

// DomainIndexProvider generates one specialized secondary index, e.g. a
// module index.
type DomainIndexProvider interface {
	Name() string      // index identifier, e.g. "py-modindex"
	LocalName() string // heading text
	Generate() (groups []index.DomainGroup, collapse bool)
}

// Renderer lays out the final composite tree and emits output bytes.
type Renderer interface {
	Render(tree *doctree.Node, out io.Writer, opts Options) error
}

// SinkFactory opens the output sink for one target name.
type SinkFactory func(target string) (io.WriteCloser, error)
