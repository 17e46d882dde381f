package pipeline

import (
	"pdc/compose"
	"pdc/doctree"
)

// Options is the full renderer option set. Any of these may be overridden
// per output document through DocumentSpec.Overrides, keys match the yaml
// tags.
type Options struct {
	Stylesheets        []string               `yaml:"stylesheets"`
	StylePath          []string               `yaml:"style_path"`
	Language           string                 `yaml:"language"`
	FontPath           []string               `yaml:"font_path"`
	BreakLevel         int                    `yaml:"break_level"`
	BreakSide          string                 `yaml:"break_side"`
	FitMode            string                 `yaml:"fit_mode"`
	Compressed         bool                   `yaml:"compressed"`
	InlineFootnotes    bool                   `yaml:"inline_footnotes"`
	RealFootnotes      bool                   `yaml:"real_footnotes"`
	SplitTables        bool                   `yaml:"split_tables"`
	RepeatTableRows    bool                   `yaml:"repeat_table_rows"`
	DefaultDPI         int                    `yaml:"default_dpi"`
	PageTemplate       string                 `yaml:"page_template"`
	Invariant          bool                   `yaml:"invariant"`
	UseTOC             bool                   `yaml:"use_toc"`
	TOCDepth           int                    `yaml:"toc_depth"`
	Backlinks          compose.BacklinkPolicy `yaml:"backlinks"`
	UseCoverpage       bool                   `yaml:"use_coverpage"`
	CoverTemplate      string                 `yaml:"cover_template"`
	UseIndex           bool                   `yaml:"use_index"`
	DomainIndices      []string               `yaml:"domain_indices"` // nil enables all
	UseNumberedLinks   bool                   `yaml:"use_numbered_links"`
	FitBackgroundMode  string                 `yaml:"fit_background_mode"`
	BaseURL            string                 `yaml:"base_url"`
	SectionHeaderDepth int                    `yaml:"section_header_depth"`
	SmartQuotes        string                 `yaml:"smart_quotes"`
	HighlightLanguage  string                 `yaml:"highlight_language"`
	LinenoThreshold    int                    `yaml:"lineno_threshold"`
}

// DefaultOptions mirrors the host toolchain defaults.
func DefaultOptions() Options {
	return Options{
		Stylesheets:        []string{"default"},
		Language:           "en_US",
		BreakSide:          "odd",
		FitMode:            "shrink",
		InlineFootnotes:    true,
		SplitTables:        true,
		DefaultDPI:         300,
		PageTemplate:       "decoratedPage",
		UseTOC:             true,
		TOCDepth:           9999,
		Backlinks:          compose.BacklinkNone,
		UseCoverpage:       true,
		CoverTemplate:      defaultCoverTemplateName,
		UseIndex:           true,
		FitBackgroundMode:  "scale",
		SectionHeaderDepth: 2,
		SmartQuotes:        "0",
	}
}

// Override returns a copy of the options with per-document overrides
// applied. Unknown keys are ignored, the host may carry options this
// pipeline does not interpret.
func (o Options) Override(overrides map[string]any) Options {
	for key, value := range overrides {
		switch key {
		case "stylesheets":
			o.Stylesheets = toStrings(value)
		case "style_path":
			o.StylePath = toStrings(value)
		case "language":
			o.Language = toString(value, o.Language)
		case "font_path":
			o.FontPath = toStrings(value)
		case "break_level":
			o.BreakLevel = toInt(value, o.BreakLevel)
		case "break_side":
			o.BreakSide = toString(value, o.BreakSide)
		case "fit_mode":
			o.FitMode = toString(value, o.FitMode)
		case "compressed":
			o.Compressed = toBool(value, o.Compressed)
		case "inline_footnotes":
			o.InlineFootnotes = toBool(value, o.InlineFootnotes)
		case "real_footnotes":
			o.RealFootnotes = toBool(value, o.RealFootnotes)
		case "split_tables":
			o.SplitTables = toBool(value, o.SplitTables)
		case "repeat_table_rows":
			o.RepeatTableRows = toBool(value, o.RepeatTableRows)
		case "default_dpi":
			o.DefaultDPI = toInt(value, o.DefaultDPI)
		case "page_template":
			o.PageTemplate = toString(value, o.PageTemplate)
		case "invariant":
			o.Invariant = toBool(value, o.Invariant)
		case "use_toc":
			o.UseTOC = toBool(value, o.UseTOC)
		case "toc_depth":
			o.TOCDepth = toInt(value, o.TOCDepth)
		case "backlinks":
			o.Backlinks = compose.BacklinkPolicy(toString(value, string(o.Backlinks)))
		case "use_coverpage":
			o.UseCoverpage = toBool(value, o.UseCoverpage)
		case "cover_template":
			o.CoverTemplate = toString(value, o.CoverTemplate)
		case "use_index":
			o.UseIndex = toBool(value, o.UseIndex)
		case "domain_indices":
			o.DomainIndices = toStrings(value)
		case "use_numbered_links":
			o.UseNumberedLinks = toBool(value, o.UseNumberedLinks)
		case "fit_background_mode":
			o.FitBackgroundMode = toString(value, o.FitBackgroundMode)
		case "base_url":
			o.BaseURL = toString(value, o.BaseURL)
		case "section_header_depth":
			o.SectionHeaderDepth = toInt(value, o.SectionHeaderDepth)
		case "smart_quotes":
			o.SmartQuotes = toString(value, o.SmartQuotes)
		case "highlight_language":
			o.HighlightLanguage = toString(value, o.HighlightLanguage)
		case "lineno_threshold":
			o.LinenoThreshold = toInt(value, o.LinenoThreshold)
		}
	}
	return o
}

// domainIndexEnabled reports whether the named domain index should be
// generated under these options.
func (o Options) domainIndexEnabled(name string) bool {
	if o.DomainIndices == nil {
		return true
	}
	for _, n := range o.DomainIndices {
		if n == name {
			return true
		}
	}
	return false
}

// DocumentSpec describes one output document of a run.
type DocumentSpec struct {
	Root       doctree.DocumentID // source root, start of the toctree walk
	Target     string             // output target name without extension
	Title      string
	Subtitle   string
	Author     string
	Overrides  map[string]any     // per-document renderer option overrides
	Appendices []doctree.DocumentID
}

func toString(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

func toBool(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func toInt(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

func toStrings(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case string:
		return []string{s}
	}
	return nil
}
