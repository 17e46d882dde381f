package compose

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"pdc/doctree"
)

func footnote(id, backref, text string) *doctree.Node {
	fn := doctree.New(doctree.KindFootnote, para(text))
	fn.SetIDs([]string{id})
	fn.SetAttr(doctree.AttrBackrefs, []string{backref})
	return fn
}

func footnoteRef(id, refid, visible string) *doctree.Node {
	ref := doctree.New(doctree.KindFootnoteRef, doctree.NewText(visible))
	ref.SetIDs([]string{id})
	ref.SetAttr(doctree.AttrRefID, refid)
	return ref
}

func fileScope(name string, children ...*doctree.Node) *doctree.Node {
	sof := doctree.New(doctree.KindStartOfFile, children...)
	sof.SetAttr(doctree.AttrDocName, name)
	return sof
}

func translate(t *testing.T, tree *doctree.Node, opts TranslateOptions) {
	t.Helper()
	if err := Translate(tree, opts, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Translate() failed: %v", err)
	}
}

func TestTranslateFootnotes(t *testing.T) {
	t.Run("numbering is global and ids are namespaced", func(t *testing.T) {
		tree := doc("index",
			fileScope("a",
				para("a"), footnoteRef("r1", "f1", "x"), footnote("f1", "r1", "first"),
			),
			fileScope("b",
				para("b"), footnoteRef("r1", "f1", "x"), footnote("f1", "r1", "second"),
			),
		)
		translate(t, tree, TranslateOptions{})

		notes := tree.FindAll(doctree.KindFootnote)
		if len(notes) != 2 {
			t.Fatalf("found %d footnotes, expected 2", len(notes))
		}
		if got := notes[0].IDs()[0]; got != "a_f1" {
			t.Errorf("first footnote id %q, expected a_f1", got)
		}
		if got := notes[1].IDs()[0]; got != "b_f1" {
			t.Errorf("second footnote id %q, expected b_f1", got)
		}

		// same raw id in two files must still number 1 and 2
		if got := notes[0].FirstChild(doctree.KindLabel).AsPlainText(); got != "1" {
			t.Errorf("first footnote labeled %q, expected 1", got)
		}
		if got := notes[1].FirstChild(doctree.KindLabel).AsPlainText(); got != "2" {
			t.Errorf("second footnote labeled %q, expected 2", got)
		}
	})

	t.Run("reference before footnote gets patched", func(t *testing.T) {
		tree := doc("index",
			fileScope("a",
				footnoteRef("r1", "f1", "x"),
				footnote("f1", "r1", "body"),
			),
		)
		translate(t, tree, TranslateOptions{})

		ref := tree.FindAll(doctree.KindFootnoteRef)[0]
		if got := ref.AsPlainText(); got != "1" {
			t.Errorf("reference shows %q, expected the assigned number", got)
		}
		if got := ref.Attrs.String(doctree.AttrRefID); got != "a_f1" {
			t.Errorf("reference targets %q, expected the namespaced id", got)
		}
	})

	t.Run("footnote before reference", func(t *testing.T) {
		tree := doc("index",
			fileScope("a",
				footnote("f1", "r1", "body"),
				footnoteRef("r1", "f1", "x"),
			),
		)
		translate(t, tree, TranslateOptions{})

		ref := tree.FindAll(doctree.KindFootnoteRef)[0]
		if got := ref.AsPlainText(); got != "1" {
			t.Errorf("reference shows %q, expected the assigned number", got)
		}
	})

	t.Run("unmatched reference keeps authored text", func(t *testing.T) {
		tree := doc("index", fileScope("a", footnoteRef("r1", "gone", "*")))
		translate(t, tree, TranslateOptions{})

		ref := tree.FindAll(doctree.KindFootnoteRef)[0]
		if got := ref.AsPlainText(); got != "*" {
			t.Errorf("reference shows %q, expected authored text", got)
		}
	})
}

// staticHighlighter records calls and emits a single marker node.
type staticHighlighter struct {
	lang    string
	linenos bool
	calls   int
	err     error
}

func (s *staticHighlighter) Tokens(lang string, lines []string, opts HighlightOptions) ([]*doctree.Node, error) {
	s.calls++
	s.lang = lang
	s.linenos = opts.Linenos
	if s.err != nil {
		return nil, s.err
	}
	return []*doctree.Node{doctree.NewText(strings.Join(lines, "\n"))}, nil
}

func TestTranslateLiteralBlocks(t *testing.T) {
	block := func(text string) *doctree.Node {
		return doctree.New(doctree.KindLiteralBlock, doctree.NewText(text))
	}

	t.Run("classification and tab expansion", func(t *testing.T) {
		hl := &staticHighlighter{}
		tree := doc("index", block("def f():\n\treturn 1"))
		translate(t, tree, TranslateOptions{DefaultLanguage: "python", TabWidth: 4, Highlighter: hl})

		got := tree.FindAll(doctree.KindLiteralBlock)[0]
		if !got.HasClass("code") {
			t.Error("block not classified as code")
		}
		if lang := got.Attrs.String(doctree.AttrLanguage); lang != "python" {
			t.Errorf("block language %q, expected python", lang)
		}
		if text := got.AsPlainText(); strings.Contains(text, "\t") {
			t.Errorf("tabs survived expansion: %q", text)
		}
		if hl.calls != 1 {
			t.Errorf("highlighter called %d times, expected 1", hl.calls)
		}
	})

	t.Run("interactive session detected", func(t *testing.T) {
		hl := &staticHighlighter{}
		tree := doc("index", block(">>> 1 + 1\n2"))
		translate(t, tree, TranslateOptions{DefaultLanguage: "python", Highlighter: hl})

		if hl.lang != "pycon" {
			t.Errorf("session highlighted as %q, expected pycon", hl.lang)
		}
	})

	t.Run("lineno threshold", func(t *testing.T) {
		hl := &staticHighlighter{}
		tree := doc("index", block("a\nb\nc\nd"))
		translate(t, tree, TranslateOptions{DefaultLanguage: "text", LinenoThreshold: 3, Highlighter: hl})

		got := tree.FindAll(doctree.KindLiteralBlock)[0]
		if !got.Attrs.Bool(doctree.AttrLinenos) {
			t.Error("long block did not get line numbers")
		}
		if !hl.linenos {
			t.Error("highlighter not told about line numbers")
		}
	})

	t.Run("processed blocks are left alone", func(t *testing.T) {
		hl := &staticHighlighter{}
		done := block("done")
		done.AddClass("code")
		tree := doc("index", done)
		translate(t, tree, TranslateOptions{Highlighter: hl})

		if hl.calls != 0 {
			t.Errorf("highlighter called %d times on a processed block", hl.calls)
		}
	})

	t.Run("highlighter failure degrades to plain text", func(t *testing.T) {
		hl := &staticHighlighter{err: errors.New("no lexer")}
		tree := doc("index", block("body"))
		translate(t, tree, TranslateOptions{DefaultLanguage: "text", Highlighter: hl})

		got := tree.FindAll(doctree.KindLiteralBlock)[0]
		if !got.HasClass("code") {
			t.Error("failed block lost its classification")
		}
		if text := got.AsPlainText(); text != "body" {
			t.Errorf("failed block renders %q, expected plain content", text)
		}
	})

	t.Run("highlight directive switches language and vanishes", func(t *testing.T) {
		directive := doctree.New(doctree.KindHighlightLang)
		directive.SetAttr(doctree.AttrLanguage, "go")

		hl := &staticHighlighter{}
		tree := doc("index", directive, block("package main"))
		translate(t, tree, TranslateOptions{DefaultLanguage: "text", Highlighter: hl})

		if hl.lang != "go" {
			t.Errorf("block highlighted as %q, expected the directive language", hl.lang)
		}
		if len(tree.FindAll(doctree.KindHighlightLang)) != 0 {
			t.Error("directive survived translation")
		}
	})
}

func TestTranslateProductionList(t *testing.T) {
	production := func(name, body string) *doctree.Node {
		p := doctree.New(doctree.KindProduction, doctree.NewText(body))
		if name != "" {
			p.SetAttr(doctree.AttrTokenName, name)
		}
		return p
	}

	tree := doc("index",
		doctree.New(doctree.KindProductionList,
			production("expr", "term (op term)*"),
			production("op", `"+" | "-"`),
			production("", "continuation"),
		),
	)
	translate(t, tree, TranslateOptions{})

	blocks := tree.FindAll(doctree.KindLiteralBlock)
	if len(blocks) != 1 {
		t.Fatalf("production list produced %d blocks, expected 1", len(blocks))
	}
	lines := strings.Split(strings.TrimRight(blocks[0].AsPlainText(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("block has %d lines, expected 3", len(lines))
	}
	if lines[0] != "expr ::= term (op term)*" {
		t.Errorf("first production renders %q", lines[0])
	}
	if lines[1] != `op   ::= "+" | "-"` {
		t.Errorf("short name not padded: %q", lines[1])
	}
	if want := strings.Repeat(" ", len("expr")+5) + "continuation"; lines[2] != want {
		t.Errorf("continuation not aligned: %q, expected %q", lines[2], want)
	}
}

func TestTranslateVersionModified(t *testing.T) {
	vc := doctree.New(doctree.KindVersionChange, doctree.NewText("Changed in 3.2: behavior"))
	tree := doc("index", vc)
	translate(t, tree, TranslateOptions{})

	if len(tree.FindAll(doctree.KindVersionChange)) != 0 {
		t.Error("version admonition survived translation")
	}
	paras := tree.FindAll(doctree.KindParagraph)
	if len(paras) != 1 || paras[0].AsPlainText() != "Changed in 3.2: behavior" {
		t.Errorf("admonition not flattened to paragraph: %v", paras)
	}
}

type panickyHighlighter struct{}

func (panickyHighlighter) Tokens(string, []string, HighlightOptions) ([]*doctree.Node, error) {
	panic("lexer blew up")
}

func TestTranslateSafety(t *testing.T) {
	// a panicking transform must degrade the node to plain text and leave
	// the rest of the document alone
	block := doctree.New(doctree.KindLiteralBlock, doctree.NewText("content"))
	tree := doc("index", block, para("after"))

	if err := Translate(tree, TranslateOptions{DefaultLanguage: "text", Highlighter: panickyHighlighter{}}, zap.NewNop()); err != nil {
		t.Fatalf("Translate() failed: %v", err)
	}
	if got := tree.Children[0].AsPlainText(); got != "content" {
		t.Errorf("broken node lost its content: %q", got)
	}
	if got := tree.Children[1].AsPlainText(); got != "after" {
		t.Errorf("later content disturbed: %q", got)
	}
}
