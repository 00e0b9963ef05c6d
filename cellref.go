package xltag

import (
	"fmt"
	"strconv"
	"strings"
)

// CellRef represents a single cell reference in a worksheet.
type CellRef struct {
	Sheet string // sheet name (empty = current sheet)
	Row   int    // 1-based row index
	Col   int    // 1-based column index
}

// NewCellRef creates a CellRef with explicit sheet, row, col.
func NewCellRef(sheet string, row, col int) CellRef {
	return CellRef{Sheet: sheet, Row: row, Col: col}
}

// ParseCellRef parses a cell reference string like "A1", "Sheet1!B5", or "$A$1".
func ParseCellRef(s string) (CellRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CellRef{}, fmt.Errorf("empty cell reference")
	}

	var sheet string
	cellPart := s

	if idx := strings.LastIndex(s, "!"); idx >= 0 {
		sheet = strings.Trim(s[:idx], "'")
		cellPart = s[idx+1:]
	}

	cellPart = strings.ReplaceAll(cellPart, "$", "")
	if cellPart == "" {
		return CellRef{}, fmt.Errorf("invalid cell reference: %q", s)
	}

	col, row, err := parseCellName(cellPart)
	if err != nil {
		return CellRef{}, fmt.Errorf("invalid cell reference %q: %w", s, err)
	}

	return CellRef{Sheet: sheet, Row: row, Col: col}, nil
}

// parseCellName parses "A1" into col=1, row=1.
func parseCellName(name string) (col, row int, err error) {
	i := 0
	for i < len(name) && isAlpha(name[i]) {
		i++
	}
	if i == 0 || i == len(name) {
		return 0, 0, fmt.Errorf("invalid cell name: %q", name)
	}

	col, err = NameToCol(name[:i])
	if err != nil {
		return 0, 0, err
	}

	row, err = strconv.Atoi(name[i:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("invalid row in cell name: %q", name)
	}
	return col, row, nil
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// String formats the CellRef as "Sheet1!A1" or "A1" if no sheet.
func (c CellRef) String() string {
	name := c.CellName()
	if c.Sheet != "" {
		return c.Sheet + "!" + name
	}
	return name
}

// CellName returns just the cell part like "A1" without sheet name.
func (c CellRef) CellName() string {
	return ColToName(c.Col) + strconv.Itoa(c.Row)
}

// ColToName converts a 1-based column index to a column name.
// 1→"A", 26→"Z", 27→"AA", 703→"AAA"
func ColToName(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

// NameToCol converts a column name to a 1-based column index.
// "A"→1, "Z"→26, "AA"→27
func NameToCol(name string) (int, error) {
	name = strings.ToUpper(name)
	if name == "" {
		return 0, fmt.Errorf("empty column name")
	}
	col := 0
	for _, ch := range name {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid column name: %q", name)
		}
		col = col*26 + int(ch-'A') + 1
	}
	return col, nil
}

// MergeRange is a rectangular block of merged cells, inclusive on all sides.
type MergeRange struct {
	Top    int
	Left   int
	Bottom int
	Right  int
}

// ParseMergeRange parses a range like "A1:C2". A single cell "B4" yields a 1x1 range.
func ParseMergeRange(s string) (MergeRange, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	first, err := ParseCellRef(parts[0])
	if err != nil {
		return MergeRange{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	last := first
	if len(parts) == 2 {
		if last, err = ParseCellRef(parts[1]); err != nil {
			return MergeRange{}, fmt.Errorf("invalid range %q: %w", s, err)
		}
	}
	return MergeRange{
		Top:    min(first.Row, last.Row),
		Left:   min(first.Col, last.Col),
		Bottom: max(first.Row, last.Row),
		Right:  max(first.Col, last.Col),
	}, nil
}

// String formats the range as "A1:C2".
func (m MergeRange) String() string {
	return m.TopLeft() + ":" + m.BottomRight()
}

// TopLeft returns the master cell name.
func (m MergeRange) TopLeft() string {
	return NewCellRef("", m.Top, m.Left).CellName()
}

// BottomRight returns the bottom-right cell name.
func (m MergeRange) BottomRight() string {
	return NewCellRef("", m.Bottom, m.Right).CellName()
}

// Contains reports whether the cell lies inside the range.
func (m MergeRange) Contains(row, col int) bool {
	return row >= m.Top && row <= m.Bottom && col >= m.Left && col <= m.Right
}

// Overlaps reports whether two ranges share at least one cell.
func (m MergeRange) Overlaps(o MergeRange) bool {
	return m.Top <= o.Bottom && o.Top <= m.Bottom && m.Left <= o.Right && o.Left <= m.Right
}

// ShiftRows returns the range moved down by n rows (up when n < 0).
func (m MergeRange) ShiftRows(n int) MergeRange {
	m.Top += n
	m.Bottom += n
	return m
}
