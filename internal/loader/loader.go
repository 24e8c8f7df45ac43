package loader

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageDocument is one page of source text with its provenance.
type PageDocument struct {
	Text      string
	Source    string
	Page      int
	PageLabel string
}

// supportedExts are the file types the loader knows how to read.
// PDFs produce one document per page; plain text and markdown files
// produce a single page-0 document.
var supportedExts = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

// LoadDir walks root and loads every supported file into page documents.
// Unreadable or corrupt files are logged and skipped; only a failure to
// walk the directory itself is returned as an error.
func LoadDir(root string) ([]PageDocument, error) {
	var pages []PageDocument

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !supportedExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		docs, err := LoadFile(path)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			return nil
		}
		pages = append(pages, docs...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return pages, nil
}

// LoadFile loads a single supported file into page documents.
func LoadFile(path string) ([]PageDocument, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	case ".txt", ".md":
		return loadText(path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
}

// loadPDF extracts plain text per page. Pages are numbered from 0 to
// match the persisted record schema; the label keeps the printed
// 1-based page number.
func loadPDF(path string) ([]PageDocument, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var pages []PageDocument
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// A single bad page shouldn't discard the rest of the book.
			log.Printf("skipping page %d of %s: %v", i, path, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, PageDocument{
			Text:      text,
			Source:    path,
			Page:      i - 1,
			PageLabel: strconv.Itoa(i),
		})
	}
	return pages, nil
}

func loadText(path string) ([]PageDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	return []PageDocument{{
		Text:      string(data),
		Source:    path,
		Page:      0,
		PageLabel: "1",
	}}, nil
}
