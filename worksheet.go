package xltag

import (
	"fmt"
	"slices"
)

// DefaultRowHeight is the height in points Excel uses for rows without an explicit height.
const DefaultRowHeight = 15.0

// DefaultColWidth is the width in characters Excel uses for columns without an explicit width.
const DefaultColWidth = 9.140625

// Worksheet is an in-memory Document. The Workbook adapter loads one per sheet
// and writes it back after rendering; tests build them directly.
type Worksheet struct {
	name      string
	rows      []*rowData // rows[i] holds row i+1
	colWidths map[int]float64
	merges    []MergeRange
	condFmts  []ConditionalFormat
	images    []imageBlob
	placed    []PlacedImage
}

// rowData holds the cells of one row. A zero height means "not set".
type rowData struct {
	height float64
	cells  []*Cell // cells[i] holds column i+1, nil when never touched
}

type imageBlob struct {
	data []byte
	ext  string
}

// PlacedImage is an image positioned on the grid.
type PlacedImage struct {
	Data   []byte
	Ext    string
	Anchor ImageAnchor
}

// NewWorksheet creates an empty worksheet.
func NewWorksheet(name string) *Worksheet {
	return &Worksheet{
		name:      name,
		colWidths: make(map[int]float64),
	}
}

// Name returns the worksheet name.
func (ws *Worksheet) Name() string { return ws.name }

// RowCount returns the number of rows that hold data, including blank ones in between.
func (ws *Worksheet) RowCount() int { return len(ws.rows) }

// ColCount returns the number of cells in the given row.
func (ws *Worksheet) ColCount(row int) int {
	if row < 1 || row > len(ws.rows) {
		return 0
	}
	return len(ws.rows[row-1].cells)
}

// Cell returns the cell at (row, col), creating it and any missing rows on demand.
func (ws *Worksheet) Cell(row, col int) *Cell {
	if row < 1 || col < 1 {
		return &Cell{Row: row, Col: col}
	}
	rd := ws.ensureRow(row)
	for len(rd.cells) < col {
		rd.cells = append(rd.cells, nil)
	}
	c := rd.cells[col-1]
	if c == nil {
		c = &Cell{Row: row, Col: col}
		rd.cells[col-1] = c
	}
	return c
}

// lookup returns the cell if it exists, without creating it.
func (ws *Worksheet) lookup(row, col int) *Cell {
	if row < 1 || row > len(ws.rows) || col < 1 {
		return nil
	}
	cells := ws.rows[row-1].cells
	if col > len(cells) {
		return nil
	}
	return cells[col-1]
}

// SetValue is a convenience setter for building worksheets in code.
func (ws *Worksheet) SetValue(row, col int, value string) *Cell {
	c := ws.Cell(row, col)
	c.SetText(value)
	return c
}

// SetFormula sets a formula (without leading '=') on the cell.
func (ws *Worksheet) SetFormula(row, col int, formula string) *Cell {
	c := ws.Cell(row, col)
	c.Formula = formula
	c.Type = CellFormula
	return c
}

func (ws *Worksheet) ensureRow(row int) *rowData {
	for len(ws.rows) < row {
		ws.rows = append(ws.rows, &rowData{})
	}
	return ws.rows[row-1]
}

// IsMergedSlave reports whether the cell is covered by a merge but is not its top-left cell.
func (ws *Worksheet) IsMergedSlave(row, col int) bool {
	for _, m := range ws.merges {
		if m.Contains(row, col) && (row != m.Top || col != m.Left) {
			return true
		}
	}
	return false
}

// RowHeight returns the explicit row height, or DefaultRowHeight.
func (ws *Worksheet) RowHeight(row int) float64 {
	if row < 1 || row > len(ws.rows) || ws.rows[row-1].height == 0 {
		return DefaultRowHeight
	}
	return ws.rows[row-1].height
}

// SetRowHeight sets an explicit row height.
func (ws *Worksheet) SetRowHeight(row int, h float64) {
	if row < 1 {
		return
	}
	ws.ensureRow(row).height = h
}

// hasHeight reports whether the row carries an explicit height.
func (ws *Worksheet) hasHeight(row int) bool {
	return row >= 1 && row <= len(ws.rows) && ws.rows[row-1].height != 0
}

// ColWidth returns the column width in characters.
func (ws *Worksheet) ColWidth(col int) float64 {
	if w, ok := ws.colWidths[col]; ok && w > 0 {
		return w
	}
	return DefaultColWidth
}

// SetColWidth sets the column width in characters.
func (ws *Worksheet) SetColWidth(col int, w float64) {
	ws.colWidths[col] = w
}

// SpliceRows removes deleteCount rows starting at `at` and inserts insertCount blank rows there.
func (ws *Worksheet) SpliceRows(at, deleteCount, insertCount int) {
	if at < 1 || deleteCount < 0 || insertCount < 0 || (deleteCount == 0 && insertCount == 0) {
		return
	}
	if at > len(ws.rows) {
		if insertCount == 0 {
			return
		}
		ws.ensureRow(at - 1)
	}

	idx := at - 1
	end := min(idx+deleteCount, len(ws.rows))
	blank := make([]*rowData, insertCount)
	for i := range blank {
		blank[i] = &rowData{}
	}
	ws.rows = slices.Concat(ws.rows[:idx], blank, ws.rows[end:])
	ws.renumber(at)

	delta := insertCount - deleteCount
	lastDeleted := at + deleteCount - 1
	merges := ws.merges[:0]
	for _, m := range ws.merges {
		switch {
		case deleteCount > 0 && m.Top <= lastDeleted && m.Bottom >= at:
			continue
		case m.Top >= at+deleteCount:
			m = m.ShiftRows(delta)
		case m.Top < at && m.Bottom >= at:
			m.Bottom += delta
		}
		merges = append(merges, m)
	}
	ws.merges = merges

	for i := range ws.placed {
		a := &ws.placed[i].Anchor
		if a.TopLeft.Row >= float64(at-1) {
			a.TopLeft.Row += float64(delta)
			a.BottomRight.Row += float64(delta)
		}
	}
}

// renumber rewrites Row on every cell from row `from` downward.
func (ws *Worksheet) renumber(from int) {
	for r := max(from, 1); r <= len(ws.rows); r++ {
		for _, c := range ws.rows[r-1].cells {
			if c != nil {
				c.Row = r
			}
		}
	}
}

// MergeCells adds a merge. Overlapping an existing merge returns ErrMergeOverlap.
func (ws *Worksheet) MergeCells(r MergeRange) error {
	if r.Top < 1 || r.Left < 1 || r.Bottom < r.Top || r.Right < r.Left {
		return fmt.Errorf("merge %s: invalid range", r)
	}
	for _, m := range ws.merges {
		if m.Overlaps(r) {
			return fmt.Errorf("merge %s with %s: %w", r, m, ErrMergeOverlap)
		}
	}
	ws.merges = append(ws.merges, r)
	return nil
}

// UnmergeCells removes exactly the given merge. Unknown ranges return ErrNotMerged.
func (ws *Worksheet) UnmergeCells(r MergeRange) error {
	i := slices.Index(ws.merges, r)
	if i < 0 {
		return fmt.Errorf("unmerge %s: %w", r, ErrNotMerged)
	}
	ws.merges = slices.Delete(ws.merges, i, i+1)
	return nil
}

// Merges returns a copy of the current merge ranges.
func (ws *Worksheet) Merges() []MergeRange {
	return slices.Clone(ws.merges)
}

// ConditionalFormats returns the current conditional formats.
func (ws *Worksheet) ConditionalFormats() []ConditionalFormat {
	return slices.Clone(ws.condFmts)
}

// SetConditionalFormats replaces the conditional format list.
func (ws *Worksheet) SetConditionalFormats(cfs []ConditionalFormat) {
	ws.condFmts = slices.Clone(cfs)
}

// AddImage registers image bytes and returns their id.
func (ws *Worksheet) AddImage(data []byte, ext string) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("add image: empty data")
	}
	ws.images = append(ws.images, imageBlob{data: data, ext: ext})
	return len(ws.images) - 1, nil
}

// PlaceImage anchors a registered image on the grid.
func (ws *Worksheet) PlaceImage(id int, at ImageAnchor) error {
	if id < 0 || id >= len(ws.images) {
		return fmt.Errorf("place image %d: unknown image id", id)
	}
	img := ws.images[id]
	ws.placed = append(ws.placed, PlacedImage{Data: img.data, Ext: img.ext, Anchor: at})
	return nil
}

// Images returns every placed image in placement order.
func (ws *Worksheet) Images() []PlacedImage {
	return slices.Clone(ws.placed)
}

// Values returns the textual values as a dense grid, mostly useful in tests and the CLI.
func (ws *Worksheet) Values() [][]string {
	out := make([][]string, len(ws.rows))
	for i, rd := range ws.rows {
		row := make([]string, len(rd.cells))
		for j, c := range rd.cells {
			if c != nil {
				row[j] = c.Value
			}
		}
		out[i] = row
	}
	return out
}
