package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJson OutputFormat = "json"
	OutputFormatYaml OutputFormat = "yaml"
)

var OutputFormats = []string{
	string(OutputFormatText),
	string(OutputFormatJson),
	string(OutputFormatYaml),
}

// PrintStructured writes data to out as json or yaml, text output is
// left to the caller since it is usually a table
func PrintStructured(out io.Writer, format OutputFormat, data any) error {
	switch format {
	case OutputFormatJson:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
	case OutputFormatYaml:
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		defer encoder.Close()
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
	default:
		return fmt.Errorf("output format[%s] is not structured: %w", format, ErrorInvalidOutput)
	}
	return nil
}
