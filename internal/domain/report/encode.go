package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Encode writes r to w as JSON or YAML.
func Encode(w io.Writer, r *Report, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("%w: %w", ErrEncode, err)
		}
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("%w: %w", ErrEncode, err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("%w: %w", ErrEncode, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return nil
}
