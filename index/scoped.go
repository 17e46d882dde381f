package index

import (
	"sync"

	"pdc/doctree"
)

// The entry table is shared read state for every output document in a run,
// but composing a single document's index must only see that document's
// entries. The host adapter reads the table it was given, so the narrowing
// has to happen in place and be undone before anyone else looks.

var scopeMu sync.Mutex

// WithScopedEntries narrows table to the entries relevant for one composite
// document, runs fn, and restores the table to its prior contents even when
// fn fails. A derived "<root>-gen" bucket holding auto-generated entries is
// preferred when present, otherwise the raw buckets of all consumed
// documents are kept. Callers building documents in parallel are serialized
// here, the table is shared.
func WithScopedEntries(table Table, root doctree.DocumentID, consumed map[doctree.DocumentID]struct{}, fn func() error) error {
	scopeMu.Lock()
	defer scopeMu.Unlock()

	saved := make(Table, len(table))
	for k, v := range table {
		saved[k] = v
	}
	defer func() {
		for k := range table {
			delete(table, k)
		}
		for k, v := range saved {
			table[k] = v
		}
	}()

	for k := range table {
		delete(table, k)
	}
	if gen, ok := saved[root+"-gen"]; ok {
		table[root] = gen
	} else {
		for id := range consumed {
			table[id] = saved[id]
		}
	}
	return fn()
}
