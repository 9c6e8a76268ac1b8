// Package extract turns uploaded documents into plain text.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"careerbot/internal/apperr"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"
)

// EmptyPlaceholder stands in for uploads with no readable text.
const EmptyPlaceholder = "The file appears to be empty or cannot be properly read."

var allowedExtensions = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

// Extractor spools uploads to disk and reads them back through an eino loader.
type Extractor struct {
	loader    document.Loader
	uploadDir string
	maxBytes  int64
}

func NewExtractor(ctx context.Context, uploadDir string, maxBytes int64) (*Extractor, error) {
	ext, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		Parsers: map[string]parser.Parser{
			".txt": strictTextParser{},
			".pdf": pdfParser{},
		},
		FallbackParser: lenientTextParser{},
	})
	if err != nil {
		return nil, fmt.Errorf("init parser: %w", err)
	}
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      ext,
	})
	if err != nil {
		return nil, fmt.Errorf("init loader: %w", err)
	}
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	return &Extractor{loader: loader, uploadDir: uploadDir, maxBytes: maxBytes}, nil
}

// Extract returns the text of the upload, or EmptyPlaceholder when none could be read.
func (e *Extractor) Extract(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", &apperr.FileProcessingError{Message: fmt.Sprintf("unsupported file type %q, allowed: txt, pdf, doc, docx", ext)}
	}

	path, err := e.spool(ext, r)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	docs, err := e.loader.Load(ctx, document.Source{URI: path})
	if err != nil {
		return "", &apperr.FileProcessingError{Message: "could not read " + filepath.Base(filename), Err: err}
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc != nil && strings.TrimSpace(doc.Content) != "" {
			parts = append(parts, doc.Content)
		}
	}
	text := strings.Join(parts, "\n")
	if strings.TrimSpace(text) == "" {
		return EmptyPlaceholder, nil
	}
	return text, nil
}

func (e *Extractor) spool(ext string, r io.Reader) (string, error) {
	if err := os.MkdirAll(e.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.CreateTemp(e.uploadDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	src := r
	if e.maxBytes > 0 {
		src = io.LimitReader(r, e.maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(f.Name())
		return "", &apperr.FileProcessingError{Message: "could not store upload", Err: copyErr}
	}
	if e.maxBytes > 0 && n > e.maxBytes {
		os.Remove(f.Name())
		return "", &apperr.FileProcessingError{Message: fmt.Sprintf("file exceeds %d bytes", e.maxBytes)}
	}
	return f.Name(), nil
}
