package plaintext

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, fileName, _ string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file %s is not valid utf-8 text", fileName)
	}
	return strings.TrimSpace(string(data)), nil
}
