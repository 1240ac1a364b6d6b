package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"doc-investigator/internal/investigation"
)

// saveUploads writes every uploaded file into a fresh directory under root.
// The returned cleanup removes that directory.
func saveUploads(root string, files []*multipart.FileHeader) ([]investigation.Document, func(), error) {
	dir, err := os.MkdirTemp(root, "upload-*")
	if err != nil {
		return nil, func() {}, fmt.Errorf("create upload dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	docs := make([]investigation.Document, 0, len(files))
	for i, fh := range files {
		name := filepath.Base(fh.Filename)
		if name == "." || name == string(filepath.Separator) {
			name = fmt.Sprintf("upload-%d", i)
		}
		// index prefix keeps two uploads with the same name apart
		path := filepath.Join(dir, fmt.Sprintf("%03d-%s", i, name))
		if err := copyUpload(fh, path); err != nil {
			cleanup()
			return nil, func() {}, err
		}
		docs = append(docs, investigation.Document{Name: name, Path: path})
	}
	return docs, cleanup, nil
}

func copyUpload(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return dst.Close()
}
