// Package output renders a pipeline report as JSONL findings, a styled
// console summary or a standalone HTML page.
package output

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/Akotliar/sitemap-qa-sub000/pkg/risk"
)

// JSONLWriter appends findings as one JSON object per line.
type JSONLWriter struct {
	path    string
	file    *os.File
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONLWriter creates a writer (use "-" for stdout).
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	var file *os.File
	var err error

	if path == "-" {
		file = os.Stdout
	} else {
		file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, err
		}
	}

	return &JSONLWriter{
		path:    path,
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// WriteFinding writes one finding.
func (w *JSONLWriter) WriteFinding(finding risk.Finding) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.encoder.Encode(finding)
}

// WriteAll writes every finding of a summary.
func (w *JSONLWriter) WriteAll(findings []risk.Finding) error {
	for _, f := range findings {
		if err := w.WriteFinding(f); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the writer (does not close stdout).
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.path == "-" {
		return nil
	}
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
