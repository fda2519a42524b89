package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/calostack/pkg/report"
	"github.com/matzehuels/calostack/pkg/stack"
)

var listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

// =============================================================================
// LayerBrowserModel - Interactive layer browser
// =============================================================================

// LayerBrowserModel is the bubbletea model for browsing the layers of each
// detector in a report.
type LayerBrowserModel struct {
	Detectors []report.Detector
	Current   int // selected detector
	Cursor    int // selected layer
	Offset    int
	Height    int
	Detail    bool
}

// NewLayerBrowserModel creates a browser positioned on the first layer of
// the first detector.
func NewLayerBrowserModel(g *report.Geometry) LayerBrowserModel {
	return LayerBrowserModel{
		Detectors: g.Detectors,
		Height:    15,
	}
}

func (m LayerBrowserModel) Init() tea.Cmd {
	return nil
}

func (m LayerBrowserModel) layers() []stack.Layer {
	if len(m.Detectors) == 0 {
		return nil
	}
	return m.Detectors[m.Current].Layers
}

func (m LayerBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.layers())-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "tab", "right", "l":
			if len(m.Detectors) > 0 {
				m = m.selectDetector((m.Current + 1) % len(m.Detectors))
			}
		case "shift+tab", "left", "h":
			if len(m.Detectors) > 0 {
				m = m.selectDetector((m.Current + len(m.Detectors) - 1) % len(m.Detectors))
			}
		case "enter":
			m.Detail = !m.Detail
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 10
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m LayerBrowserModel) selectDetector(i int) LayerBrowserModel {
	m.Current = i
	m.Cursor = 0
	m.Offset = 0
	return m
}

func (m LayerBrowserModel) View() string {
	var b strings.Builder
	if len(m.Detectors) == 0 {
		b.WriteString(StyleDim.Render("no detectors"))
		b.WriteString("\n")
		return b.String()
	}
	d := m.Detectors[m.Current]

	b.WriteString(StyleTitle.Render(fmt.Sprintf("%s  %s", d.Name, StyleDim.Render(d.Type))))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d/%d]", m.Current+1, len(m.Detectors))))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ layer  ←/→ detector  ⏎ details  q quit"))
	b.WriteString("\n\n")
	b.WriteString(layerTable(d, m.Cursor, m.Offset, m.Height))
	b.WriteString("\n\n")
	if len(d.Layers) > 0 {
		b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d/%d]  thickness %s mm", m.Cursor+1, len(d.Layers), formatMM(d.Thickness))))
	} else {
		b.WriteString(StyleDim.Render("  empty stack"))
	}
	if m.Detail && len(d.Layers) > 0 {
		b.WriteString("\n\n")
		b.WriteString(layerDetail(d, d.Layers[m.Cursor]))
	}
	return b.String()
}

// =============================================================================
// Rendering Helpers
// =============================================================================

// layerTable renders rows [offset, offset+height) of d's stack. A cursor
// outside that window highlights nothing.
func layerTable(d report.Detector, cursor, offset, height int) string {
	end := offset + height
	if end > len(d.Layers) {
		end = len(d.Layers)
	}

	rows := [][]string{}
	for i := offset; i < end; i++ {
		l := d.Layers[i]
		mark := "  "
		if i == cursor {
			mark = "▸ "
		}
		rows = append(rows, []string{
			mark,
			strconv.Itoa(l.Index),
			l.Code,
			string(l.Kind),
			strconv.Itoa(l.Orientation) + "°",
			formatMM(l.Center.Z),
			formatMM(2 * l.Half),
			fmt.Sprintf("%s=%d", l.Field, l.ID),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers("", "#", "Code", "Kind", "Rot", "z (mm)", "Thick", "Identifier").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if offset+row == cursor {
				return listSelectedStyle
			}
			switch col {
			case 3:
				return kindStyle(d.Layers[offset+row].Kind)
			case 7:
				return StyleDim
			}
			return lipgloss.NewStyle()
		})
	return t.Render()
}

// layerDetail describes the sub-assembly a layer places.
func layerDetail(d report.Detector, l stack.Layer) string {
	var b strings.Builder
	b.WriteString(StyleHighlight.Render(fmt.Sprintf("layer %d: code %s", l.Index, l.Code)))
	b.WriteString("\n")
	printTo := func(k, v string) {
		b.WriteString(styleLabel.Width(12).Render(k))
		b.WriteString(" ")
		b.WriteString(StyleValue.Render(v))
		b.WriteString("\n")
	}
	printTo("centre", l.Center.String())
	printTo("thickness", formatMM(2*l.Half)+" mm")
	for _, a := range d.Assemblies {
		if a.Kind != l.Kind {
			continue
		}
		printTo("volume", a.Name)
		if len(a.IDs) > 0 {
			printTo("elements", fmt.Sprintf("%d (%s %d..%d)", len(a.IDs), a.Field, a.IDs[0], a.IDs[len(a.IDs)-1]))
		}
		for _, child := range a.Children {
			printTo("row", fmt.Sprintf("%s, %d elements", child.Name, len(child.IDs)))
		}
	}
	return b.String()
}

func formatMM(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
