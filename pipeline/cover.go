package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"go.uber.org/zap"

	"pdc/doctree"
)

// Cover page generation. A cover is authored as a markup template expanded
// with document metadata; when the requested template is missing the
// built-in default takes over with a warning, a missing cover never fails a
// document.

const defaultCoverTemplateName = "cover.tmpl"

// The built-in cover, used when no template of the requested name can be
// found on the search path.
const defaultCoverTemplate = `{{ .Title }}
{{ repeat (len .Title | int) "#" }}

{{ if .Subtitle }}{{ .Subtitle }}
{{ end }}{{ range .Authors }}{{ . }}
{{ end }}
{{ .Date }}
`

// CoverData is the value set made available to cover templates.
type CoverData struct {
	Title    string
	Subtitle string
	Authors  []string
	Date     string
}

// CoverBuilder locates and expands cover page templates.
type CoverBuilder struct {
	SearchPath []string // directories checked for templates, in order
	Today      string   // fixed date text, time.Now when empty
}

// Render expands the named cover template with the given metadata and
// returns markup text. Falls back to the built-in default template when the
// requested one does not exist.
func (cb *CoverBuilder) Render(name string, data CoverData, log *zap.Logger) (string, error) {
	if data.Date == "" {
		if cb.Today != "" {
			data.Date = cb.Today
		} else {
			data.Date = time.Now().Format("January 2, 2006")
		}
	}

	text, err := cb.load(name)
	if err != nil {
		log.Warn("Unable to find cover template, using default",
			zap.String("template", name), zap.Error(err))
		text = defaultCoverTemplate
	}

	tmpl, err := template.New("cover").Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		return "", fmt.Errorf("unable to parse cover template %q: %w", name, err)
	}
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, data); err != nil {
		return "", fmt.Errorf("unable to expand cover template %q: %w", name, err)
	}
	return buf.String(), nil
}

func (cb *CoverBuilder) load(name string) (string, error) {
	if name == "" || name == defaultCoverTemplateName {
		return defaultCoverTemplate, nil
	}
	for _, dir := range cb.SearchPath {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return string(data), nil
		}
	}
	return "", fmt.Errorf("cover template %q not found in %v", name, cb.SearchPath)
}

// coverTree turns cover metadata into a node tree directly, used when the
// provider cannot parse markup fragments.
func coverTree(data CoverData) *doctree.Node {
	section := doctree.New(doctree.KindSection,
		doctree.New(doctree.KindTitle, doctree.NewText(data.Title)))
	section.SetIDs([]string{"cover"})
	section.AddClass("cover-page")
	if data.Subtitle != "" {
		section.Append(doctree.New(doctree.KindParagraph, doctree.NewText(data.Subtitle)))
	}
	for _, author := range data.Authors {
		section.Append(doctree.New(doctree.KindParagraph, doctree.NewText(author)))
	}
	section.Append(doctree.New(doctree.KindParagraph, doctree.NewText(data.Date)))
	return section
}

// splitAuthors separates the author field on the manual line break marker
// the host toolchain uses.
func splitAuthors(author string) []string {
	parts := strings.Split(author, `\`)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
