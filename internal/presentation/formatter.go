package presentation

import (
	"encoding/json"
	"io"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// Format writes v as indented JSON
func (f *Formatter) Format(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// FormatLines writes one compact JSON document per line, as expected by
// line-oriented consumers of serve.
func (f *Formatter) FormatLines(v any) error {
	return json.NewEncoder(f.writer).Encode(v)
}
