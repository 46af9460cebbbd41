package output

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/loadline/barrage/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, rep Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, rep Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return err
	}
	return enc.Close()
}

// Render writes rep in the requested format. Colors only apply to text and
// only when useColor is set.
func Render(w io.Writer, format config.OutputFormat, rep Report, useColor bool) error {
	switch format {
	case config.OutputJSON:
		return PrintJSONReport(w, rep)
	case config.OutputYAML:
		return PrintYAMLReport(w, rep)
	case config.OutputText, "":
		PrintReport(w, rep, NewPalette(useColor))
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
