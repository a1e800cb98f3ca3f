// Package ui provides the embedded web page for the download form.
//
// The page is an html/template rendered once per request with the selected
// theme; everything after the first paint is driven by the JSON API and the
// per-form SSE stream.
package ui

import (
	_ "embed"
	"html/template"
	"io"
)

//go:embed form.html
var formHTML string

// FormTemplate is the parsed form page.
var FormTemplate = template.Must(template.New("form.html").Parse(formHTML))

// Option is one entry of a select box on the page.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// ThemeData is the slice of a theme the page renders.
type ThemeData struct {
	Name            string
	Title           string
	Tagline         string
	CardTitle       string
	CardDescription string
	URLLabel        string
	Placeholder     string
	SubmitLabel     string
	BusyLabel       string
	Palette         PaletteData
}

// PaletteData holds the page colours as #rrggbb strings.
type PaletteData struct {
	Background string
	Surface    string
	Text       string
	Muted      string
	Accent     string
	Secondary  string
	Error      string
	Success    string
}

// PageData is everything FormTemplate needs.
type PageData struct {
	Theme     ThemeData
	Themes    []string
	Formats   []Option
	Qualities []Option
}

// RenderForm writes the form page for data to w.
func RenderForm(w io.Writer, data PageData) error {
	return FormTemplate.Execute(w, data)
}
