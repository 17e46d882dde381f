// Package forest loads a directory of pre-parsed document trees, the shape
// a host toolchain hands over, and serves them to the pipeline. Trees are
// stored one JSON file per document; the navigation graph is derived from
// the toctree placeholders inside the trees themselves.
package forest

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"pdc/compose"
	"pdc/doctree"
	"pdc/index"
)

// Provider implements pipeline.TreeProvider over a directory of tree dumps.
type Provider struct {
	trees   map[doctree.DocumentID]*doctree.Node
	nav     doctree.NavigationGraph
	entries index.Table
}

// Load reads every "*.json" file under dir (recursively) as a document
// tree. The document ID is the slash separated path relative to dir without
// the extension; files starting with "_" are skipped.
func Load(dir string, log *zap.Logger) (*Provider, error) {
	p := &Provider{
		trees: make(map[doctree.DocumentID]*doctree.Node),
		nav:   make(doctree.NavigationGraph),
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") || strings.HasPrefix(d.Name(), "_") {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		id := doctree.DocumentID(filepath.ToSlash(strings.TrimSuffix(rel, ".json")))

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to read tree for %q: %w", id, err)
		}
		tree := &doctree.Node{}
		if err := json.Unmarshal(data, tree); err != nil {
			return fmt.Errorf("unable to decode tree for %q: %w", id, err)
		}
		if tree.Kind != doctree.KindDocument {
			log.Warn("Tree root is not a document node", zap.String("document", string(id)), zap.String("kind", string(tree.Kind)))
		}
		p.trees[id] = tree
		return nil
	})
	if err != nil {
		return nil, err
	}

	for id, tree := range p.trees {
		for _, toctree := range tree.FindAll(doctree.KindToctree) {
			for _, inc := range toctree.Attrs.Strings(doctree.AttrIncludes) {
				p.nav[id] = append(p.nav[id], doctree.DocumentID(inc))
			}
		}
	}

	if p.entries, err = loadEntries(dir); err != nil {
		return nil, err
	}

	log.Debug("Forest loaded", zap.Int("documents", len(p.trees)), zap.Int("indexed", len(p.entries)))
	return p, nil
}

// Tree returns the cached tree for a document. Callers own no part of the
// result, the assembler deep-copies before any mutation.
func (p *Provider) Tree(id doctree.DocumentID) (*doctree.Node, error) {
	tree, ok := p.trees[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", compose.ErrUnknownDocument, id)
	}
	return tree, nil
}

// AllDocuments returns the set of known document IDs.
func (p *Provider) AllDocuments() map[doctree.DocumentID]struct{} {
	out := make(map[doctree.DocumentID]struct{}, len(p.trees))
	for id := range p.trees {
		out[id] = struct{}{}
	}
	return out
}

// Navigation returns the derived navigation graph.
func (p *Provider) Navigation() doctree.NavigationGraph {
	return p.nav
}
