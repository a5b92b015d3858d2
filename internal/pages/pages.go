// Package pages provides the embedded dashboard templates.
package pages

import (
	"embed"
	"html/template"
)

//go:embed *.html
var fs embed.FS

// Templates parses every embedded page template.
func Templates() (*template.Template, error) {
	return template.ParseFS(fs, "*.html")
}
