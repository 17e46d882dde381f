package compose

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"pdc/doctree"
	"pdc/locale"
)

// The translation pass: one stateful walk over the fully assembled and
// reference-resolved composite tree. File scope tracking, footnote
// renumbering, literal block classification, production list layout and
// structural cleanups all happen here, exactly once, left to right.

// HighlightOptions selects rendering options for one classified block.
type HighlightOptions struct {
	Linenos bool
}

// Highlighter turns classified content lines into inline token nodes.
// Tokenizing and coloring rules are the highlighter's business, the
// translation pass only selects the language and options.
type Highlighter interface {
	Tokens(lang string, lines []string, opts HighlightOptions) ([]*doctree.Node, error)
}

// TranslateOptions configures the translation pass for one document.
type TranslateOptions struct {
	DefaultLanguage string // initial highlight language
	LinenoThreshold int    // line count beyond which blocks get line numbers
	TabWidth        int    // literal tab expansion width, 8 when zero
	Highlighter     Highlighter
}

// Translate runs the translation pass over the composite tree. A failing
// node transform never aborts the document, the offending node is replaced
// with a plain text equivalent and the walk continues.
func Translate(tree *doctree.Node, opts TranslateOptions, log *zap.Logger) error {
	if opts.LinenoThreshold <= 0 {
		opts.LinenoThreshold = 999999
	}
	if opts.TabWidth <= 0 {
		opts.TabWidth = 8
	}

	t := &translator{
		log:       log,
		opts:      opts,
		counter:   1,
		lang:      opts.DefaultLanguage,
		threshold: opts.LinenoThreshold,
		notes:     make(map[string]*doctree.Node),
	}

	v := &doctree.Visitor{
		Enter: map[doctree.Kind]doctree.EnterFunc{
			doctree.KindDocument:       t.safe(t.enterDocument),
			doctree.KindStartOfFile:    t.safe(t.enterStartOfFile),
			doctree.KindHighlightLang:  t.safe(t.enterHighlightLang),
			doctree.KindVersionChange:  t.safe(t.enterVersionModified),
			doctree.KindLiteralBlock:   t.safe(t.enterLiteralBlock),
			doctree.KindFootnote:       t.safe(t.enterFootnote),
			doctree.KindFootnoteRef:    t.safe(t.enterFootnoteRef),
			doctree.KindProductionList: t.safe(t.enterProductionList),
		},
		Leave: map[doctree.Kind]doctree.LeaveFunc{
			doctree.KindStartOfFile: t.leaveStartOfFile,
		},
	}
	return doctree.Walk(tree, v)
}

type translator struct {
	log  *zap.Logger
	opts TranslateOptions

	counter   int                      // footnote numbers, shared across the whole document
	files     []doctree.DocumentID     // current file scope stack, top is the footnote namespace
	notes     map[string]*doctree.Node // namespaced id -> footnote or reference node
	lang      string                   // current default highlight language
	threshold int                      // current lineno threshold
}

// safe wraps a hook so a single bad node degrades to plain text instead of
// killing the whole document.
func (t *translator) safe(fn doctree.EnterFunc) doctree.EnterFunc {
	return func(n *doctree.Node) (rep []*doctree.Node, skip bool, err error) {
		defer func() {
			if r := recover(); r != nil {
				t.log.Warn("Node transform panicked, substituting plain text",
					zap.String("kind", string(n.Kind)), zap.Any("panic", r))
				rep, skip, err = []*doctree.Node{fallbackNode(n)}, true, nil
			}
		}()
		rep, skip, err = fn(n)
		if err != nil {
			t.log.Warn("Node transform failed, substituting plain text",
				zap.String("kind", string(n.Kind)), zap.Error(err))
			return []*doctree.Node{fallbackNode(n)}, true, nil
		}
		return rep, skip, err
	}
}

func fallbackNode(n *doctree.Node) *doctree.Node {
	return doctree.New(doctree.KindParagraph, doctree.NewText(n.AsPlainText()))
}

func (t *translator) enterDocument(n *doctree.Node) ([]*doctree.Node, bool, error) {
	// the root document opens the outermost file scope and never pops it
	t.files = append(t.files, doctree.DocumentID(n.Attrs.String(doctree.AttrDocName)))
	return nil, false, nil
}

func (t *translator) enterStartOfFile(n *doctree.Node) ([]*doctree.Node, bool, error) {
	t.files = append(t.files, doctree.DocumentID(n.Attrs.String(doctree.AttrDocName)))
	return nil, false, nil
}

func (t *translator) leaveStartOfFile(*doctree.Node) error {
	if len(t.files) > 0 {
		t.files = t.files[:len(t.files)-1]
	}
	return nil
}

// namespace prefixes an id with the owning file so identical raw ids from
// different source files never collide in the merged tree.
func (t *translator) namespace(id string) string {
	var cur doctree.DocumentID
	if len(t.files) > 0 {
		cur = t.files[len(t.files)-1]
	}
	return fmt.Sprintf("%s_%s", cur, id)
}

// enterHighlightLang records the new per-document default language and
// lineno threshold, the directive itself is invisible to the renderer.
func (t *translator) enterHighlightLang(n *doctree.Node) ([]*doctree.Node, bool, error) {
	if lang := n.Attrs.String(doctree.AttrLanguage); lang != "" {
		t.lang = lang
	}
	if th := n.Attrs.Int("linenothreshold"); th > 0 {
		t.threshold = th
	}
	return []*doctree.Node{}, true, nil
}

// enterVersionModified flattens versionadded/versionchanged admonitions to
// plain paragraphs.
func (t *translator) enterVersionModified(n *doctree.Node) ([]*doctree.Node, bool, error) {
	replacement := doctree.New(doctree.KindParagraph, n.Children...)
	return []*doctree.Node{replacement}, false, nil
}

func (t *translator) enterLiteralBlock(n *doctree.Node) ([]*doctree.Node, bool, error) {
	if n.HasClass("code") {
		// already processed
		return nil, true, nil
	}

	source := n.AsPlainText()
	lang := n.Attrs.String(doctree.AttrLanguage)
	if lang == "" {
		lang = t.lang
	}
	lang = locale.ForBlock(source, lang)

	lines := strings.Split(source, "\n")
	linenos := len(lines) > t.threshold || n.Attrs.Bool(doctree.AttrLinenos)
	tab := strings.Repeat(" ", t.opts.TabWidth)
	for i := range lines {
		lines[i] = strings.ReplaceAll(lines[i], "\t", tab)
	}

	replacement := doctree.New(doctree.KindLiteralBlock)
	replacement.AddClass("code")
	if lang != "" {
		replacement.SetAttr(doctree.AttrLanguage, lang)
	}
	replacement.SetAttr(doctree.AttrLinenos, linenos)

	if t.opts.Highlighter == nil {
		replacement.Append(doctree.NewText(strings.Join(lines, "\n")))
		return []*doctree.Node{replacement}, true, nil
	}
	tokens, err := t.opts.Highlighter.Tokens(lang, lines, HighlightOptions{Linenos: linenos})
	if err != nil {
		t.log.Warn("Highlighter failed, rendering block plain",
			zap.String("language", lang), zap.Error(err))
		replacement.Append(doctree.NewText(strings.Join(lines, "\n")))
		return []*doctree.Node{replacement}, true, nil
	}
	replacement.Append(tokens...)
	return []*doctree.Node{replacement}, true, nil
}

func (t *translator) enterFootnote(n *doctree.Node) ([]*doctree.Node, bool, error) {
	ids := n.IDs()
	for i := range ids {
		ids[i] = t.namespace(ids[i])
	}
	n.SetIDs(ids)

	backrefs := n.Attrs.Strings(doctree.AttrBackrefs)
	for i := range backrefs {
		backrefs[i] = t.namespace(backrefs[i])
	}
	n.SetAttr(doctree.AttrBackrefs, backrefs)

	number := strconv.Itoa(t.counter)
	setLabel(n, number)

	// a reference may already have been visited, patch its visible number
	for _, id := range backrefs {
		if ref, ok := t.notes[id]; ok && ref.Kind == doctree.KindFootnoteRef {
			setVisibleText(ref, number)
		}
	}
	if len(ids) > 0 {
		t.notes[ids[0]] = n
	}
	t.counter++
	return nil, false, nil
}

func (t *translator) enterFootnoteRef(n *doctree.Node) ([]*doctree.Node, bool, error) {
	ids := n.IDs()
	for i := range ids {
		ids[i] = t.namespace(ids[i])
	}
	n.SetIDs(ids)

	refid := t.namespace(n.Attrs.String(doctree.AttrRefID))
	n.SetAttr(doctree.AttrRefID, refid)

	if len(ids) > 0 {
		t.notes[ids[0]] = n
	}
	// the footnote may have been visited already, in either order the pair
	// must display the same number; unresolved matches stay as authored
	if fn, ok := t.notes[refid]; ok && fn.Kind == doctree.KindFootnote {
		if label := fn.FirstChild(doctree.KindLabel); label != nil {
			setVisibleText(n, label.AsPlainText())
		}
	}
	return nil, false, nil
}

// enterProductionList renders a grammar production list as an aligned code
// block: token names left-padded to the longest name, "name ::= body",
// continuation lines get blank padding of the same width instead of a name.
func (t *translator) enterProductionList(n *doctree.Node) ([]*doctree.Node, bool, error) {
	var productions []*doctree.Node
	maxlen := 0
	for _, p := range n.Children {
		if p.Kind != doctree.KindProduction {
			continue
		}
		productions = append(productions, p)
		if l := len(p.Attrs.String(doctree.AttrTokenName)); l > maxlen {
			maxlen = l
		}
	}
	if len(productions) == 0 {
		return []*doctree.Node{}, true, nil
	}

	block := doctree.New(doctree.KindLiteralBlock)
	block.AddClass("code")
	for _, p := range productions {
		if name := p.Attrs.String(doctree.AttrTokenName); name != "" {
			strong := doctree.New(doctree.KindStrong, doctree.NewText(padRight(name, maxlen)))
			block.Append(strong, doctree.NewText(" ::= "))
		} else {
			block.Append(doctree.NewText(strings.Repeat(" ", maxlen+5)))
		}
		block.Append(p.Children...)
		block.Append(doctree.NewText("\n"))
	}
	return []*doctree.Node{block}, true, nil
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// setLabel sets the footnote's visible number, creating the label child
// when the source had none.
func setLabel(footnote *doctree.Node, number string) {
	label := footnote.FirstChild(doctree.KindLabel)
	if label == nil {
		label = doctree.New(doctree.KindLabel)
		footnote.Insert(0, label)
	}
	label.Children = nil
	label.Append(doctree.NewText(number))
}

// setVisibleText sets the displayed text of a footnote reference.
func setVisibleText(n *doctree.Node, text string) {
	if len(n.Children) > 0 && n.Children[0].Kind == doctree.KindText {
		n.Children[0].Text = text
		return
	}
	n.Insert(0, doctree.NewText(text))
}
