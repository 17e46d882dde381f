package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"pdc/compose"
	"pdc/doctree"
	"pdc/index"
)

// fakeProvider is an in-memory TreeProvider.
type fakeProvider struct {
	trees map[doctree.DocumentID]*doctree.Node
	nav   doctree.NavigationGraph
}

func (p *fakeProvider) Tree(id doctree.DocumentID) (*doctree.Node, error) {
	tree, ok := p.trees[id]
	if !ok {
		return nil, compose.ErrUnknownDocument
	}
	return tree, nil
}

func (p *fakeProvider) AllDocuments() map[doctree.DocumentID]struct{} {
	out := make(map[doctree.DocumentID]struct{}, len(p.trees))
	for id := range p.trees {
		out[id] = struct{}{}
	}
	return out
}

func (p *fakeProvider) Navigation() doctree.NavigationGraph {
	return p.nav
}

// fakeIndex serves a fixed entry table.
type fakeIndex struct {
	table index.Table
}

func (f *fakeIndex) Entries() index.Table {
	return f.table
}

func (f *fakeIndex) GeneralIndex() []index.Group {
	var entries []index.TermEntry
	for _, docEntries := range f.table {
		for _, e := range docEntries {
			entries = append(entries, index.TermEntry{Term: e.Term, Links: []string{e.Anchor}})
		}
	}
	if len(entries) == 0 {
		return nil
	}
	return []index.Group{{Key: "A", Entries: entries}}
}

// captureRenderer keeps the rendered trees keyed by the header title.
type captureRenderer struct {
	trees []*doctree.Node
	opts  []Options
}

func (c *captureRenderer) Render(tree *doctree.Node, _ io.Writer, opts Options) error {
	c.trees = append(c.trees, tree)
	c.opts = append(c.opts, opts)
	return nil
}

type nopSink struct{ bytes.Buffer }

func (*nopSink) Close() error { return nil }

func discardSinks(target string) (io.WriteCloser, error) {
	return &nopSink{}, nil
}

func document(name string, children ...*doctree.Node) *doctree.Node {
	d := doctree.New(doctree.KindDocument, children...)
	d.SetAttr(doctree.AttrDocName, name)
	return d
}

func titledSection(title, id string, children ...*doctree.Node) *doctree.Node {
	s := doctree.New(doctree.KindSection,
		doctree.New(doctree.KindTitle, doctree.NewText(title)))
	s.SetIDs([]string{id})
	s.Append(children...)
	return s
}

func inclusion(includes ...string) *doctree.Node {
	tt := doctree.New(doctree.KindToctree)
	tt.SetAttr(doctree.AttrIncludes, includes)
	return tt
}

func testDriver(t *testing.T, p *fakeProvider, r Renderer) *Driver {
	t.Helper()
	return &Driver{
		Provider: p,
		Renderer: r,
		MakeSink: discardSinks,
		Options:  DefaultOptions(),
		Log:      zaptest.NewLogger(t),
	}
}

func TestDriverRun(t *testing.T) {
	t.Run("composite document", func(t *testing.T) {
		fnRef := doctree.New(doctree.KindFootnoteRef, doctree.NewText("x"))
		fnRef.SetIDs([]string{"r1"})
		fnRef.SetAttr(doctree.AttrRefID, "f1")
		fn := doctree.New(doctree.KindFootnote,
			doctree.New(doctree.KindParagraph, doctree.NewText("note body")))
		fn.SetIDs([]string{"f1"})
		fn.SetAttr(doctree.AttrBackrefs, []string{"r1"})

		p := &fakeProvider{
			trees: map[doctree.DocumentID]*doctree.Node{
				"index": document("index",
					titledSection("Manual", "manual", inclusion("intro")),
				),
				"intro": document("intro",
					titledSection("Intro", "intro-sec",
						doctree.New(doctree.KindParagraph, fnRef),
						fn,
					),
				),
			},
			nav: doctree.NavigationGraph{"index": {"intro"}},
		}

		r := &captureRenderer{}
		d := testDriver(t, p, r)
		err := d.Run(context.Background(), []DocumentSpec{
			{Root: "index", Target: "manual", Title: "The Manual", Author: "First Author\\Second Author"},
		})
		if err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		if len(r.trees) != 1 {
			t.Fatalf("rendered %d documents, expected 1", len(r.trees))
		}
		tree := r.trees[0]

		// the included section must appear exactly once in the contents
		topics := tree.FindAll(doctree.KindTopic)
		if len(topics) != 1 {
			t.Fatalf("found %d topics, expected the contents topic", len(topics))
		}
		toc := topics[0]
		if !toc.HasClass("contents") {
			t.Error("contents topic misses its class")
		}
		entries := toc.FindAll(doctree.KindReference)
		intro := 0
		for _, e := range entries {
			if e.AsPlainText() == "Intro" {
				intro++
			}
		}
		if intro != 1 {
			t.Errorf("Intro appears %d times in contents, expected once", intro)
		}

		// footnote pair renumbered from 1
		ref := tree.FindAll(doctree.KindFootnoteRef)[0]
		if got := ref.AsPlainText(); got != "1" {
			t.Errorf("footnote reference shows %q, expected 1", got)
		}
		note := tree.FindAll(doctree.KindFootnote)[0]
		if got := note.FirstChild(doctree.KindLabel).AsPlainText(); got != "1" {
			t.Errorf("footnote labeled %q, expected 1", got)
		}
		if got := note.IDs()[0]; got != "intro_f1" {
			t.Errorf("footnote id %q, expected file namespacing", got)
		}

		// cover page first, built from the document metadata
		cover := tree.Children[0]
		if !cover.HasClass("cover-page") {
			t.Errorf("first child is %s, expected the cover page", cover.Kind)
		}
		if got := cover.AsPlainText(); !strings.Contains(got, "The Manual") ||
			!strings.Contains(got, "Second Author") {
			t.Errorf("cover content %q", got)
		}

		// page counter markers around the contents topic
		raws := tree.FindAll(doctree.KindRaw)
		var markers []string
		for _, raw := range raws {
			markers = append(markers, raw.Text)
		}
		joined := strings.Join(markers, ";")
		if !strings.Contains(joined, "SetPageCounter 1 lowerroman") ||
			!strings.Contains(joined, "SetPageCounter 1 arabic") {
			t.Errorf("page counter markers missing: %v", markers)
		}
	})

	t.Run("ghost include warned and skipped", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		p := &fakeProvider{
			trees: map[doctree.DocumentID]*doctree.Node{
				"index": document("index", titledSection("Top", "top", inclusion("ghost"))),
			},
		}
		r := &captureRenderer{}
		d := testDriver(t, p, r)
		d.Log = zap.New(core)

		err := d.Run(context.Background(), []DocumentSpec{{Root: "index", Target: "out"}})
		if err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		found := false
		for _, entry := range logs.All() {
			if strings.Contains(entry.Message, "nonexisting document") {
				found = true
			}
		}
		if !found {
			t.Error("missing include produced no warning")
		}
	})

	t.Run("unknown root dropped, others still build", func(t *testing.T) {
		p := &fakeProvider{
			trees: map[doctree.DocumentID]*doctree.Node{
				"real": document("real", titledSection("Real", "real-sec")),
			},
		}
		r := &captureRenderer{}
		d := testDriver(t, p, r)

		err := d.Run(context.Background(), []DocumentSpec{
			{Root: "missing", Target: "bad"},
			{Root: "real", Target: "good"},
		})
		if err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		if len(r.trees) != 1 {
			t.Errorf("rendered %d documents, expected only the real one", len(r.trees))
		}
	})

	t.Run("per-document overrides", func(t *testing.T) {
		p := &fakeProvider{
			trees: map[doctree.DocumentID]*doctree.Node{
				"index": document("index", titledSection("Top", "top")),
			},
		}
		r := &captureRenderer{}
		d := testDriver(t, p, r)

		err := d.Run(context.Background(), []DocumentSpec{
			{Root: "index", Target: "out", Overrides: map[string]any{
				"use_toc":       false,
				"use_coverpage": false,
				"language":      "de",
			}},
		})
		if err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		tree := r.trees[0]
		if len(tree.FindAll(doctree.KindTopic)) != 0 {
			t.Error("contents generated despite use_toc=false")
		}
		if tree.Children[0].HasClass("cover-page") {
			t.Error("cover generated despite use_coverpage=false")
		}
		if got := r.opts[0].Language; got != "de" {
			t.Errorf("override language %q not applied", got)
		}
	})

	t.Run("failures are collected per document", func(t *testing.T) {
		p := &fakeProvider{
			trees: map[doctree.DocumentID]*doctree.Node{
				"a": document("a", inclusion("b")),
				"b": document("b", inclusion("a")),
				"c": document("c", titledSection("C", "c-sec")),
			},
		}
		r := &captureRenderer{}
		d := testDriver(t, p, r)
		d.Log = zap.NewNop()

		err := d.Run(context.Background(), []DocumentSpec{
			{Root: "a", Target: "cyclic"},
			{Root: "c", Target: "fine"},
		})
		if !errors.Is(err, compose.ErrNavigationCycle) {
			t.Errorf("Run() = %v, expected the cycle error surfaced", err)
		}
		if len(r.trees) != 1 {
			t.Errorf("rendered %d documents, the healthy one must still build", len(r.trees))
		}
	})

	t.Run("general index appended and scoped", func(t *testing.T) {
		p := &fakeProvider{
			trees: map[doctree.DocumentID]*doctree.Node{
				"index": document("index", titledSection("Top", "top")),
			},
		}
		r := &captureRenderer{}
		d := testDriver(t, p, r)
		d.Index = &fakeIndex{table: index.Table{
			"index": {{Term: "alpha", Anchor: "alpha"}},
			"other": {{Term: "omega", Anchor: "omega"}},
		}}

		err := d.Run(context.Background(), []DocumentSpec{{Root: "index", Target: "out"}})
		if err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		tree := r.trees[0]

		var genindex *doctree.Node
		for _, s := range tree.FindAll(doctree.KindSection) {
			for _, id := range s.IDs() {
				if id == index.GeneralIndexID {
					genindex = s
				}
			}
		}
		if genindex == nil {
			t.Fatal("general index not appended")
		}
		text := genindex.AsPlainText()
		if !strings.Contains(text, "alpha") {
			t.Errorf("index misses the in-scope term: %q", text)
		}
		if strings.Contains(text, "omega") {
			t.Errorf("index leaked an out-of-scope term: %q", text)
		}
	})
}

func TestTargetURIs(t *testing.T) {
	p := &fakeProvider{
		trees: map[doctree.DocumentID]*doctree.Node{
			"manual/index": document("manual/index"),
			"guide/index":  document("guide/index"),
			"guide/setup":  document("guide/setup"),
		},
		nav: doctree.NavigationGraph{"guide/index": {"guide/setup"}},
	}
	d := testDriver(t, p, &captureRenderer{})

	specs := []DocumentSpec{
		{Root: "manual/index", Target: "manual"},
		{Root: "guide/index", Target: "guide"},
	}
	consumed := map[doctree.DocumentID]struct{}{"manual/index": {}}
	uriFor := d.uriResolver(specs, consumed)

	tests := []struct {
		name string
		doc  doctree.DocumentID
		uri  string
		err  error
	}{
		{"local document", "manual/index", "", nil},
		{"other output root", "guide/index", "pdf:guide.pdf", nil},
		{"member of other output", "guide/setup", "pdf:guide.pdf", nil},
		{"unreachable document", "orphan", "", compose.ErrNoURI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, err := uriFor(tt.doc)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("uriFor(%s) error = %v, expected %v", tt.doc, err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("uriFor(%s) failed: %v", tt.doc, err)
			}
			if uri != tt.uri {
				t.Errorf("uriFor(%s) = %q, expected %q", tt.doc, uri, tt.uri)
			}
		})
	}
}

func TestBuildTitleIndex(t *testing.T) {
	titles := buildTitleIndex([]DocumentSpec{
		{Root: "guide/index", Target: "guide", Title: "User Guide"},
		{Root: "readme", Target: "readme", Title: "Readme"},
	})

	if got, ok := titleLookup(titles, "guide/setup"); !ok || got != "User Guide" {
		t.Errorf("guide/setup resolved to %q, expected the directory prefix match", got)
	}
	if got, ok := titleLookup(titles, "readme"); !ok || got != "Readme" {
		t.Errorf("readme resolved to %q", got)
	}
	if _, ok := titleLookup(titles, "elsewhere"); ok {
		t.Error("unrelated document matched a title prefix")
	}
}

func titleLookup(titles compose.TitleIndex, doc doctree.DocumentID) (string, bool) {
	for _, pair := range titles {
		if strings.HasPrefix(string(doc), string(pair.Prefix)) {
			return pair.Title, true
		}
	}
	return "", false
}
