// Package extractor routes raw file bytes to a format-specific text
// extractor by MIME type, falling back to the file extension.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/clearledger/taxintake/internal/core/ports"
)

type Router struct {
	pdf         ports.TextExtractor
	spreadsheet ports.TextExtractor
	plain       ports.TextExtractor
}

func NewRouter(pdf, spreadsheet, plain ports.TextExtractor) *Router {
	return &Router{pdf: pdf, spreadsheet: spreadsheet, plain: plain}
}

func (r *Router) Extract(ctx context.Context, fileName, mimeType string, data []byte) (string, error) {
	target := r.pick(fileName, mimeType)
	if target == nil {
		return "", fmt.Errorf("unsupported file format: %s (%s)", fileName, mimeType)
	}
	return target.Extract(ctx, fileName, mimeType, data)
}

func (r *Router) pick(fileName, mimeType string) ports.TextExtractor {
	switch strings.ToLower(mimeType) {
	case "application/pdf":
		return r.pdf
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return r.spreadsheet
	case "text/plain", "text/csv":
		return r.plain
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return r.pdf
	case ".xlsx":
		return r.spreadsheet
	case ".txt", ".csv", ".md":
		return r.plain
	}
	return nil
}
