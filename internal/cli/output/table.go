package output

import (
	"io"
	"strings"
	"text/tabwriter"
)

// Tabular is implemented by values with a table layout.
type Tabular interface {
	Table() *Table
}

// TableFormatter formats data as an aligned table.
type TableFormatter struct {
	NoHeaders bool
}

// Format renders a *Table or Tabular value. Other data is written as JSON.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch t := data.(type) {
	case nil:
		return nil
	case *Table:
		return t.RenderWithOptions(w, f.NoHeaders)
	case Tabular:
		return t.Table().RenderWithOptions(w, f.NoHeaders)
	}
	return (&JSONFormatter{}).Format(w, data)
}

// Table represents tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render renders the table to the writer.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions renders the table with options. Empty cells print
// as "-".
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !noHeaders && len(t.Headers) > 0 {
		if _, err := io.WriteString(tw, strings.Join(t.Headers, "\t")+"\n"); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if cell == "" {
				cell = "-"
			}
			cells[i] = cell
		}
		if _, err := io.WriteString(tw, strings.Join(cells, "\t")+"\n"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}
