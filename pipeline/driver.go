package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"pdc/compose"
	"pdc/doctree"
	"pdc/index"
	"pdc/locale"
)

const (
	// OutSuffix is the extension of produced output documents.
	OutSuffix = ".pdf"
	// Scheme prefixes synthetic URIs addressing other output documents.
	Scheme = "pdf"
	// tocAnchor is the anchor of the generated contents topic.
	tocAnchor = "Contents"
)

// Driver runs the whole pipeline for every output document of a build.
// Documents are built strictly one after another; a failure or panic while
// building one document abandons that document only.
type Driver struct {
	Provider    TreeProvider
	Index       IndexAdapter
	Domains     []DomainIndexProvider
	Renderer    Renderer
	Highlighter compose.Highlighter
	Cover       *CoverBuilder
	MakeSink    SinkFactory
	Options     Options
	Log         *zap.Logger
}

// Run builds and renders every requested output document. Per-document
// failures are collected, the run itself never aborts early except on
// context cancellation.
func (d *Driver) Run(ctx context.Context, docs []DocumentSpec) error {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	specs := d.validateSpecs(docs, log)
	if len(specs) == 0 {
		log.Warn("No output documents to build")
		return nil
	}
	titles := buildTitleIndex(specs)

	var errs error
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		if err := d.buildOne(ctx, spec, specs, titles, log); err != nil {
			log.Error("Failed to build document", zap.String("target", spec.Target), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("document %q: %w", spec.Target, err))
		}
	}
	return errs
}

// validateSpecs drops specs whose root document is unknown, with a warning,
// matching the behavior for a misconfigured document list.
func (d *Driver) validateSpecs(docs []DocumentSpec, log *zap.Logger) []DocumentSpec {
	known := d.Provider.AllDocuments()
	out := make([]DocumentSpec, 0, len(docs))
	for _, spec := range docs {
		if _, ok := known[spec.Root]; !ok {
			log.Warn("Document list references unknown document, skipping",
				zap.String("document", string(spec.Root)))
			continue
		}
		out = append(out, spec)
	}
	return out
}

// buildOne builds and renders a single output document, converting panics
// into errors so one bad document never stops the run.
func (d *Driver) buildOne(ctx context.Context, spec DocumentSpec, all []DocumentSpec, titles compose.TitleIndex, log *zap.Logger) (rerr error) {
	buildID := uuid.NewString()
	log = log.With(zap.String("target", spec.Target))
	log.Info("Processing starting", zap.String("root", string(spec.Root)), zap.String("ref_id", buildID))

	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Build ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("build panic: %v", r)
			return
		}
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	opts := d.Options.Override(spec.Overrides)

	tree, err := d.buildDocument(ctx, spec, all, titles, opts, log)
	if err != nil {
		return err
	}

	sink, err := d.MakeSink(spec.Target + OutSuffix)
	if err != nil {
		return fmt.Errorf("unable to open output sink: %w", err)
	}
	defer sink.Close()

	if err := d.Renderer.Render(tree, sink, opts); err != nil {
		return fmt.Errorf("unable to render output: %w", err)
	}
	return sink.Close()
}

// buildDocument assembles the composite tree for one output document:
// toctree inlining, index and appendix attachment, reference resolution,
// the translation pass, and finally contents and cover page insertion.
func (d *Driver) buildDocument(ctx context.Context, spec DocumentSpec, all []DocumentSpec, titles compose.TitleIndex, opts Options, log *zap.Logger) (*doctree.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	labels := locale.ForName(opts.Language)

	tree, consumed, err := compose.Assemble(spec.Root, d.Provider, d.Provider.Navigation(), log.Named("assemble"))
	if err != nil {
		return nil, fmt.Errorf("unable to assemble document tree: %w", err)
	}

	if opts.UseIndex && d.Index != nil {
		d.appendGeneralIndex(tree, spec.Root, consumed, labels, log)
	}
	d.appendDomainIndices(tree, opts, log)
	d.appendAppendices(tree, spec.Appendices, opts, log)

	compose.ResolveReferences(tree, consumed, titles, d.uriResolver(all, consumed), compose.ResolveOptions{
		UseIndex: opts.UseIndex,
		InLabel:  labels.In,
	}, log.Named("resolve"))

	if err := compose.Translate(tree, compose.TranslateOptions{
		DefaultLanguage: opts.HighlightLanguage,
		LinenoThreshold: opts.LinenoThreshold,
		Highlighter:     d.Highlighter,
	}, log.Named("translate")); err != nil {
		return nil, fmt.Errorf("unable to translate document tree: %w", err)
	}

	if opts.UseTOC {
		d.insertContents(tree, opts, labels, log)
	}
	if opts.UseCoverpage {
		d.insertCover(tree, spec, opts, log)
	}
	return tree, nil
}

// appendGeneralIndex narrows the shared entry table to this document's
// scope, renders the general index and attaches it behind a page break.
func (d *Driver) appendGeneralIndex(tree *doctree.Node, root doctree.DocumentID, consumed map[doctree.DocumentID]struct{}, labels locale.Labels, log *zap.Logger) {
	var groups []index.Group
	err := index.WithScopedEntries(d.Index.Entries(), root, consumed, func() error {
		groups = d.Index.GeneralIndex()
		return nil
	})
	if err != nil {
		log.Warn("Unable to collect index entries", zap.Error(err))
		return
	}

	topic := index.BuildGeneralIndex(labels.Index, groups)
	if topic == nil {
		// no point in attaching an empty index
		return
	}
	tree.Append(rawMarker("OddPageBreak twoColumn"), topic)
}

func (d *Driver) appendDomainIndices(tree *doctree.Node, opts Options, log *zap.Logger) {
	for _, domain := range d.Domains {
		if !opts.domainIndexEnabled(domain.Name()) {
			continue
		}
		groups, collapse := domain.Generate()
		section := index.BuildDomainIndex(domain.Name(), domain.LocalName(), groups, collapse)
		if section == nil {
			continue
		}
		log.Info("Adding domain index", zap.String("index", domain.Name()))
		tree.Append(rawMarker("OddPageBreak twoColumn"), section)
	}
}

func (d *Driver) appendAppendices(tree *doctree.Node, appendices []doctree.DocumentID, opts Options, log *zap.Logger) {
	if len(appendices) == 0 {
		return
	}
	log.Info("Adding appendices", zap.Int("count", len(appendices)))
	tree.Append(rawMarker("OddPageBreak " + opts.PageTemplate))
	for _, id := range appendices {
		sub, err := d.Provider.Tree(id)
		if err != nil {
			log.Warn("Appendix references unknown document, skipping",
				zap.String("document", string(id)), zap.Error(err))
			continue
		}
		appendix := sub.Clone()
		appendix.SetAttr(doctree.AttrDocName, string(id))
		tree.Append(appendix)
	}
}

// insertContents builds the contents topic and the page counter markers
// around it. Insertion order keeps the cover page, when present, above it.
func (d *Driver) insertContents(tree *doctree.Node, opts Options, labels locale.Labels, log *zap.Logger) {
	topic := doctree.New(doctree.KindTopic,
		doctree.New(doctree.KindTitle, doctree.NewText(labels.Contents)))
	topic.AddClass("contents")
	topic.SetIDs([]string{tocAnchor})

	toc := compose.BuildContents(tree, compose.ContentsOptions{
		MaxDepth:  opts.TOCDepth,
		Backlinks: opts.Backlinks,
		TocID:     tocAnchor,
	}, log.Named("contents"))
	if toc != nil {
		topic.Append(toc)
	}

	tree.Insert(0, rawMarker("SetPageCounter 1 arabic"))
	tree.Insert(0, rawMarker("OddPageBreak "+opts.PageTemplate))
	tree.Insert(0, topic)
	tree.Insert(0, rawMarker("SetPageCounter 1 lowerroman"))
}

func (d *Driver) insertCover(tree *doctree.Node, spec DocumentSpec, opts Options, log *zap.Logger) {
	title := spec.Title
	if title == "" {
		if t := tree.FirstChild(doctree.KindTitle); t != nil {
			title = t.AsPlainText()
		}
	}
	data := CoverData{
		Title:    title,
		Subtitle: spec.Subtitle,
		Authors:  splitAuthors(spec.Author),
	}

	cb := d.Cover
	if cb == nil {
		cb = &CoverBuilder{}
	}

	if parser, ok := d.Provider.(FragmentParser); ok {
		markup, err := cb.Render(opts.CoverTemplate, data, log)
		if err == nil {
			cover, perr := parser.ParseFragment(markup)
			if perr == nil {
				tree.Insert(0, cover)
				return
			}
			err = perr
		}
		log.Warn("Unable to build templated cover page, using plain cover", zap.Error(err))
	}
	tree.Insert(0, coverTree(data))
}

// uriResolver maps documents outside the current composite set to the
// output document containing them: pdf:<target>.pdf for a root of another
// output document or a member of its toctree, empty for local targets.
func (d *Driver) uriResolver(all []DocumentSpec, consumed map[doctree.DocumentID]struct{}) compose.URIResolver {
	return func(id doctree.DocumentID) (string, error) {
		if _, ok := consumed[id]; ok {
			return "", nil
		}
		for _, spec := range all {
			if spec.Root == id {
				return Scheme + ":" + spec.Target + OutSuffix, nil
			}
		}
		for owner, includes := range d.Provider.Navigation() {
			for _, inc := range includes {
				if inc != id {
					continue
				}
				for _, spec := range all {
					if spec.Root == owner {
						return Scheme + ":" + spec.Target + OutSuffix, nil
					}
				}
			}
		}
		return "", fmt.Errorf("%w: %q", compose.ErrNoURI, id)
	}
}

// buildTitleIndex pairs each output document's root prefix with its title
// so external references can cite "(in <Title>)". A root named
// "<dir>/index" registers the whole directory as its prefix.
func buildTitleIndex(specs []DocumentSpec) compose.TitleIndex {
	titles := make(compose.TitleIndex, 0, len(specs))
	for _, spec := range specs {
		prefix := string(spec.Root)
		if strings.HasSuffix(prefix, "/index") {
			prefix = strings.TrimSuffix(prefix, "index")
		}
		titles = append(titles, compose.TitlePair{Prefix: doctree.DocumentID(prefix), Title: spec.Title})
	}
	return titles
}

func rawMarker(text string) *doctree.Node {
	raw := doctree.New(doctree.KindRaw)
	raw.Text = text
	raw.SetAttr(doctree.AttrFormat, "pdf")
	return raw
}

// IsUnknownDocument reports whether err denotes a document the provider
// does not know.
func IsUnknownDocument(err error) bool {
	return errors.Is(err, compose.ErrUnknownDocument)
}
