// Package locale maps locale tags to the UI strings generated content needs
// ("Contents", "Index", ...) and detects the language of source snippets.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

// Labels holds the translatable strings used by generated document parts.
type Labels struct {
	Contents string
	Index    string
	In       string // joins external citations: "<title> (in <Title>)"
	Untitled string
}

var tables = map[language.Tag]Labels{
	language.English: {Contents: "Contents", Index: "Index", In: " (in ", Untitled: "<untitled>"},
	language.German:  {Contents: "Inhalt", Index: "Stichwortverzeichnis", In: " (in ", Untitled: "<ohne Titel>"},
	language.Spanish: {Contents: "Contenido", Index: "Índice", In: " (en ", Untitled: "<sin título>"},
	language.French:  {Contents: "Table des matières", Index: "Index", In: " (dans ", Untitled: "<sans titre>"},
	language.Russian: {Contents: "Содержание", Index: "Алфавитный указатель", In: " (в ", Untitled: "<без названия>"},
}

var (
	supported []language.Tag
	matcher   language.Matcher
)

func init() {
	// English first so it wins as the fallback
	supported = append(supported, language.English)
	for tag := range tables {
		if tag != language.English {
			supported = append(supported, tag)
		}
	}
	matcher = language.NewMatcher(supported)
}

// For returns the label table for a locale, falling back to English for
// anything unknown.
func For(tag language.Tag) Labels {
	_, idx, _ := matcher.Match(tag)
	return tables[supported[idx]]
}

// ForName parses a locale name like "en_US" or "de" and returns its labels.
func ForName(name string) Labels {
	tag, err := language.Parse(strings.ReplaceAll(name, "_", "-"))
	if err != nil {
		return tables[language.English]
	}
	return For(tag)
}
