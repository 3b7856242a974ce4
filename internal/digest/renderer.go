// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package digest

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// Renderer renders release digests from the built-in HTML template.
// All item content passes through html/template, so user-supplied titles and
// genres are escaped automatically.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the built-in digest template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("digest").Funcs(templateFuncs()).Parse(digestTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse digest template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// templateData is the root context handed to the digest template.
type templateData struct {
	Date  string
	Items []Item
}

// Render produces the HTML digest document for the given items.
// The today argument supplies the date shown in the header; it should be the
// run time in the scheduler's reference timezone.
func (r *Renderer) Render(items []Item, today time.Time) (string, error) {
	data := templateData{
		Date:  today.Format("January 2, 2006"),
		Items: items,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render digest: %w", err)
	}
	return buf.String(), nil
}

// templateFuncs returns the helper functions available to the template.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// Optional item fields arrive as pointers; nil never reaches these
		// because the template guards each row with an if.
		"formatPercent": func(f *float64) string {
			if f == nil {
				return ""
			}
			return fmt.Sprintf("%.1f%%", *f)
		},
		"formatDate": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("January 2, 2006")
		},
		"joinGenres": func(genres []string) string {
			return strings.Join(genres, ", ")
		},
	}
}
