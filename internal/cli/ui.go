package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/calostack/pkg/assembly"
	"github.com/matzehuels/calostack/pkg/report"
)

var (
	colorAccent  = lipgloss.Color("36")  // teal
	colorOK      = lipgloss.Color("35")  // green
	colorWarn    = lipgloss.Color("220") // amber
	colorCommand = lipgloss.Color("75")  // light blue
	colorValue   = lipgloss.Color("255")
	colorLabel   = lipgloss.Color("245")
	colorMuted   = lipgloss.Color("240")
)

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorAccent)
	StyleDim       = lipgloss.NewStyle().Foreground(colorMuted)
	StyleValue     = lipgloss.NewStyle().Foreground(colorValue)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorAccent)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorWarn)

	styleLabel   = lipgloss.NewStyle().Foreground(colorLabel)
	styleHeader  = lipgloss.NewStyle().Foreground(colorLabel).Bold(true)
	styleBorder  = lipgloss.NewStyle().Foreground(colorMuted)
	styleCommand = lipgloss.NewStyle().Foreground(colorCommand)
)

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// kindColors tints layer rows by sub-assembly kind in tables and the layer
// browser.
var kindColors = map[assembly.Kind]lipgloss.Color{
	assembly.KindWideBar:     lipgloss.Color("75"),
	assembly.KindThinBar:     lipgloss.Color("115"),
	assembly.KindBarLayer:    lipgloss.Color("75"),
	assembly.KindFibreModule: lipgloss.Color("176"),
	assembly.KindPassive:     lipgloss.Color("245"),
	assembly.KindSplit:       lipgloss.Color("180"),
}

// kindStyle returns the style for a layer of the given kind.
func kindStyle(kind assembly.Kind) lipgloss.Style {
	if c, ok := kindColors[kind]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return StyleValue
}

// console writes styled status lines for one command invocation.
type console struct {
	w io.Writer
}

func newConsole(w io.Writer) console {
	if w == nil {
		w = io.Discard
	}
	return console{w: w}
}

func (c console) status(icon lipgloss.Style, glyph, msg string) {
	fmt.Fprintln(c.w, icon.Render(glyph)+" "+msg)
}

func (c console) success(format string, args ...any) {
	c.status(lipgloss.NewStyle().Foreground(colorOK), iconSuccess, fmt.Sprintf(format, args...))
}

func (c console) info(format string, args ...any) {
	c.status(styleLabel, iconInfo, fmt.Sprintf(format, args...))
}

// warnings prints the build warnings of every detector in g, such as stacks
// overflowing their envelope in permissive mode.
func (c console) warnings(g *report.Geometry) {
	for _, d := range g.Detectors {
		for _, w := range d.Warnings {
			c.status(StyleWarning, iconWarning, StyleWarning.Render(d.Name+": "+w))
		}
	}
}

func (c console) detail(format string, args ...any) {
	fmt.Fprintln(c.w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func (c console) files(paths []string) {
	for _, p := range paths {
		fmt.Fprintln(c.w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(p))
	}
}

// stats prints the size of a build on one line, ending with whether the
// report came from the cache.
func (c console) stats(s report.Stats, cached bool) {
	var parts []string
	for _, p := range []struct {
		n    int
		noun string
	}{
		{s.Detectors, "detector"},
		{s.Layers, "layer"},
		{s.Volumes, "volume"},
	} {
		if p.n > 0 {
			parts = append(parts, StyleDim.Render(plural(p.n, p.noun)))
		}
	}
	if s.Sensitive > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d sensitive", s.Sensitive)))
	}
	if cached {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorOK).Render("cached"))
	} else {
		parts = append(parts, styleLabel.Render("fresh"))
	}
	fmt.Fprintln(c.w, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}

func (c console) hint(description, cmd string) {
	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// plural formats a count with a naive English plural.
func plural(n int, noun string) string {
	switch {
	case n == 1:
		return fmt.Sprintf("%d %s", n, noun)
	case strings.HasSuffix(noun, "y"):
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(noun, "y"))
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
