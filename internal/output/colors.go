package output

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Palette holds the colors used by the text report.
type Palette struct {
	Heading *color.Color
	Label   *color.Color
	OK      *color.Color
	Warn    *color.Color
	Error   *color.Color
	Bar     *color.Color
}

// NewPalette returns the report colors, all disabled when enabled is false.
func NewPalette(enabled bool) *Palette {
	p := &Palette{
		Heading: color.New(color.Bold),
		Label:   color.New(color.FgCyan),
		OK:      color.New(color.FgGreen),
		Warn:    color.New(color.FgYellow),
		Error:   color.New(color.FgRed, color.Bold),
		Bar:     color.New(color.FgBlue),
	}
	for _, c := range []*color.Color{p.Heading, p.Label, p.OK, p.Warn, p.Error, p.Bar} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// ColorEnabled reports whether w is a terminal that should get colors.
func ColorEnabled(w io.Writer, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Palette) status(code int) *color.Color {
	switch {
	case code >= 500:
		return p.Error
	case code >= 300:
		return p.Warn
	default:
		return p.OK
	}
}
