// internal/browser/shim/shim.go
package shim

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrEmptyTemplate is returned when there is nothing to fill.
	ErrEmptyTemplate = errors.New("template is empty")
	// ErrMissingPlaceholder is returned when a named placeholder is absent from the template.
	ErrMissingPlaceholder = errors.New("template does not contain the required placeholder")
)

// Placeholder returns the marker for name as it appears in a JS template.
// The comment form keeps templates parseable before they are filled.
func Placeholder(name string) string {
	return "/*{{" + name + "}}*/"
}

// Fill replaces every named placeholder in the template with its value. All
// markers are substituted in a single pass, so inserted values are never
// scanned for further markers.
func Fill(template string, values map[string]string) (string, error) {
	if template == "" {
		return "", ErrEmptyTemplate
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names)*2)
	for _, name := range names {
		marker := Placeholder(name)
		if !strings.Contains(template, marker) {
			return "", fmt.Errorf("%w: %s", ErrMissingPlaceholder, marker)
		}
		pairs = append(pairs, marker, values[name])
	}

	return strings.NewReplacer(pairs...).Replace(template), nil
}

// InjectJSON fills a single placeholder with a JSON document. An empty
// document is replaced by fallback so the script still evaluates.
func InjectJSON(template, name, document, fallback string) (string, error) {
	if strings.TrimSpace(document) == "" {
		document = fallback
	}
	return Fill(template, map[string]string{name: document})
}
