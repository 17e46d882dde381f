package forest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"pdc/doctree"
	"pdc/index"
)

// indexFileName is the optional per-forest index entry dump. Underscore
// names are invisible to the tree walk.
const indexFileName = "_index.json"

// IndexAdapter groups raw per-document index entries into the letter groups
// the general index renders. It reads whatever table the provider loaded,
// so narrowing the table narrows the generated index too.
type IndexAdapter struct {
	table index.Table
}

// NewIndexAdapter returns an adapter over the provider's entry table.
func NewIndexAdapter(p *Provider) *IndexAdapter {
	return &IndexAdapter{table: p.entries}
}

// Entries implements pipeline.IndexAdapter.
func (a *IndexAdapter) Entries() index.Table {
	return a.table
}

// GeneralIndex implements pipeline.IndexAdapter. Terms are sorted without
// case, terms not starting with a letter collect under "Symbols". A term of
// the form "main; sub" becomes a sub-entry of "main".
func (a *IndexAdapter) GeneralIndex() []index.Group {
	type termLinks struct {
		links []string
		subs  []string          // sub-term order
		sub   map[string][]string
	}

	terms := make(map[string]*termLinks)
	var order []string
	for _, entries := range a.table {
		for _, e := range entries {
			main, sub := splitTerm(e.Term)
			tl, ok := terms[main]
			if !ok {
				tl = &termLinks{sub: make(map[string][]string)}
				terms[main] = tl
				order = append(order, main)
			}
			if sub == "" {
				tl.links = append(tl.links, e.Anchor)
			} else {
				if _, ok := tl.sub[sub]; !ok {
					tl.subs = append(tl.subs, sub)
				}
				tl.sub[sub] = append(tl.sub[sub], e.Anchor)
			}
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return strings.ToLower(order[i]) < strings.ToLower(order[j])
	})

	var groups []index.Group
	for _, term := range order {
		key := groupKey(term)
		if len(groups) == 0 || groups[len(groups)-1].Key != key {
			groups = append(groups, index.Group{Key: key})
		}
		g := &groups[len(groups)-1]

		tl := terms[term]
		te := index.TermEntry{Term: term, Links: tl.links}
		for _, sub := range tl.subs {
			te.Subitems = append(te.Subitems, index.SubEntry{Term: sub, Links: tl.sub[sub]})
		}
		g.Entries = append(g.Entries, te)
	}
	return groups
}

func splitTerm(term string) (main, sub string) {
	if i := strings.Index(term, "; "); i >= 0 {
		return strings.TrimSpace(term[:i]), strings.TrimSpace(term[i+2:])
	}
	return term, ""
}

func groupKey(term string) string {
	for _, r := range term {
		if unicode.IsLetter(r) {
			return strings.ToUpper(string(r))
		}
		break
	}
	return "Symbols"
}

// loadEntries reads the optional index entry dump next to the trees.
func loadEntries(dir string) (index.Table, error) {
	data, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return make(index.Table), nil
		}
		return nil, fmt.Errorf("unable to read index entries: %w", err)
	}
	raw := make(map[string][]index.Entry)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unable to decode index entries: %w", err)
	}
	table := make(index.Table, len(raw))
	for id, entries := range raw {
		table[doctree.DocumentID(id)] = entries
	}
	return table, nil
}
