// Package web serves the dashboard shell: server-rendered pages and their
// embedded assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed assets/templates/*.html assets/static/*
var files embed.FS

// GetFileSystem returns the embedded static assets with the static folder
// as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(files, "assets/static")
}

// parseTemplates parses the embedded page templates.
func parseTemplates() (*template.Template, error) {
	return template.ParseFS(files, "assets/templates/*.html")
}
