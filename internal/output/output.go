// Package output serializes extraction results for the CLI.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format represents output format types.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatYAML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

// Write serializes v to w in the given format.
func Write(w io.Writer, format Format, v any) error {
	bw := bufio.NewWriter(w)

	switch format {
	case FormatYAML:
		encoder := yaml.NewEncoder(bw)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		if err := encoder.Close(); err != nil {
			return err
		}
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		if _, err := bw.Write(data); err != nil {
			return err
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}

	return bw.Flush()
}
