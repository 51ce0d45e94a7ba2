package ux

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders static rows with aligned columns.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// NewTable creates a table with the given title and headers.
func NewTable(title string, headers ...string) *Table {
	return &Table{Title: title, Headers: headers}
}

// AddRow appends a row. Extra cells beyond the headers are ignored.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table to w, styled for w's color profile.
func (t *Table) Render(w io.Writer, theme Theme) error {
	_, err := io.WriteString(w, t.String(lipgloss.NewRenderer(w), theme))
	return err
}

// String renders the table with the given lipgloss renderer.
func (t *Table) String(r *lipgloss.Renderer, theme Theme) string {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	title := r.NewStyle().Bold(true).Foreground(theme.Foreground)
	header := r.NewStyle().Bold(true).Foreground(theme.System)
	sep := r.NewStyle().Foreground(theme.Muted)
	cell := r.NewStyle()

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i := range widths {
			v := ""
			if i < len(cells) {
				v = cells[i]
			}
			parts[i] = style.Render(v + strings.Repeat(" ", widths[i]-lipgloss.Width(v)))
		}
		return strings.TrimRight(strings.Join(parts, sep.Render(" | ")), " ")
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(title.Render(t.Title))
		b.WriteByte('\n')
	}
	b.WriteString(line(t.Headers, header))
	b.WriteByte('\n')
	total := 0
	for _, w := range widths {
		total += w
	}
	if len(widths) > 1 {
		total += 3 * (len(widths) - 1)
	}
	b.WriteString(sep.Render(strings.Repeat("-", total)))
	b.WriteByte('\n')
	if len(t.Rows) == 0 {
		b.WriteString(sep.Render("(none)"))
		b.WriteByte('\n')
	}
	for _, row := range t.Rows {
		b.WriteString(line(row, cell))
		b.WriteByte('\n')
	}
	return b.String()
}
