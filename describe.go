package xltag

import (
	"fmt"
	"strings"
)

// TagInfo is a tag together with the cell it was found in.
type TagInfo struct {
	Cell CellRef
	Tag  Tag
}

// ListTags returns every tag in the document in row-major order. Cells hidden
// under a merge are included; the engine ignores them, Validate reports them.
func ListTags(doc Document) []TagInfo {
	var out []TagInfo
	for row := 1; row <= doc.RowCount(); row++ {
		for col := 1; col <= doc.ColCount(row); col++ {
			c := doc.Cell(row, col)
			if c.Value == "" {
				continue
			}
			for _, t := range FindAllTags(c.Value) {
				out = append(out, TagInfo{Cell: NewCellRef(doc.Name(), row, col), Tag: t})
			}
		}
	}
	return out
}

// Describe opens a template and returns a human-readable listing of its tags
// per sheet. Useful for debugging templates during development.
func Describe(templatePath string, opts ...Option) (string, error) {
	allOpts := append([]Option{WithTemplate(templatePath)}, opts...)
	return NewTemplater(allOpts...).Describe()
}

// Describe opens the template and lists the tags of the selected sheets
// (every sheet when none were selected).
func (t *Templater) Describe() (string, error) {
	wb, err := t.openTemplate()
	if err != nil {
		return "", err
	}
	defer wb.Close()

	names := t.opts.sheets
	if len(names) == 0 {
		names = wb.SheetNames()
	}

	var b strings.Builder
	b.WriteString("Template: ")
	if t.opts.templatePath != "" {
		b.WriteString(t.opts.templatePath)
	} else {
		b.WriteString("<reader>")
	}
	b.WriteByte('\n')

	for _, name := range names {
		ws, err := wb.Sheet(name)
		if err != nil {
			return "", err
		}
		describeSheet(&b, ws)
	}
	return b.String(), nil
}

// describeSheet writes one line per tag, annotating loops with their extent.
func describeSheet(b *strings.Builder, doc Document) {
	tags := ListTags(doc)
	fmt.Fprintf(b, "Sheet %q (%d rows, %d tags)\n", doc.Name(), doc.RowCount(), len(tags))
	for _, info := range tags {
		if info.Tag.Kind == TagClose {
			continue
		}
		fmt.Fprintf(b, "  %-6s %-11s %s", info.Cell.CellName(), info.Tag.Kind, info.Tag.Match)
		switch info.Tag.Kind {
		case TagLoopOpen:
			b.WriteString(describeLoopExtent(doc, info))
		case TagScopeOpen:
			if end, ok := findCloseCell(doc, info.Cell, info.Tag.Name); ok {
				fmt.Fprintf(b, " -> %s", end.CellName())
			} else {
				b.WriteString(" (unclosed)")
			}
		}
		b.WriteByte('\n')
	}
}

func describeLoopExtent(doc Document, info TagInfo) string {
	end, ok := findCloseCell(doc, info.Cell, info.Tag.Name)
	switch {
	case !ok:
		return " (unclosed)"
	case end.Row == info.Cell.Row:
		return fmt.Sprintf(" -> row %d, columns %s-%s", end.Row, ColToName(info.Cell.Col), ColToName(end.Col))
	default:
		return fmt.Sprintf(" -> rows %d-%d", info.Cell.Row, end.Row)
	}
}

// findCloseCell returns the first cell at or after from (row-major) that holds {/name}.
func findCloseCell(doc Document, from CellRef, name string) (CellRef, bool) {
	for row := from.Row; row <= doc.RowCount(); row++ {
		first := 1
		if row == from.Row {
			first = from.Col
		}
		for col := first; col <= doc.ColCount(row); col++ {
			if _, ok := FindCloseTag(doc.Cell(row, col).Value, name); ok {
				return NewCellRef(doc.Name(), row, col), true
			}
		}
	}
	return CellRef{}, false
}
