// Package ingest loads local documents and extracts their text for
// submission to the knowledge-graph service's batch insert.
package ingest

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

var allowedExt = []string{".txt", ".md", ".pdf"}

// Document is one extracted file ready for indexing.
type Document struct {
	Path string
	Text string
}

// LoadDir walks root, extracts text from every supported file and returns
// the readable ones. Files that fail extraction are skipped, not fatal;
// their paths come back in the second return for reporting.
func LoadDir(root string) ([]Document, []string, error) {
	var docs []Document
	var skipped []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supported(path) {
			return nil
		}
		text, err := ExtractText(path)
		if err != nil || strings.TrimSpace(text) == "" {
			skipped = append(skipped, path)
			return nil
		}
		docs = append(docs, Document{Path: path, Text: text})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return docs, skipped, nil
}

func supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range allowedExt {
		if ext == a {
			return true
		}
	}
	return false
}

// ExtractText returns the plain text of a supported file.
func ExtractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case ".pdf":
		return extractPDF(path)
	default:
		return "", errors.New("unsupported file type")
	}
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	b, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
