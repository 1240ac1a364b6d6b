// Package documents validates uploaded files and extracts their text.
package documents

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Document is an uploaded file: the name the user gave it and where it lives on disk.
type Document struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// BaseName is the file name without directories, falling back to Path.
func (d Document) BaseName() string {
	name := d.Name
	if name == "" {
		name = d.Path
	}
	return filepath.Base(name)
}

// Extension is the lowercased extension including the dot.
func (d Document) Extension() string {
	return strings.ToLower(filepath.Ext(d.BaseName()))
}

// UnsupportedFormatError reports a document whose extension has no extractor.
type UnsupportedFormatError struct {
	Filename  string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("Unsupported file type: '%s' in file '%s'.", e.Extension, e.Filename)
}
