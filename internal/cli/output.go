package cli

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// OutputFormatter writes command results as text or YAML.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Write renders data. Text output uses the text function; YAML output
// encodes data itself.
func (f *OutputFormatter) Write(data any, text func(io.Writer) error) error {
	if f.Format != "yaml" {
		return text(f.Writer)
	}

	enc := yaml.NewEncoder(f.Writer)
	enc.SetIndent(2)

	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return enc.Close()
}
