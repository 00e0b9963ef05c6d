package xltag

import (
	"errors"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrInvalidImageURL is returned by HTTPFetcher for anything that is not an absolute http(s) URL.
	ErrInvalidImageURL = errors.New("invalid image url")
	// ErrSheetNotFound is returned when a requested sheet does not exist in the workbook.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrNotMerged is returned when unmerging a range that is not merged.
	ErrNotMerged = errors.New("range is not merged")
	// ErrMergeOverlap is returned when a new merge would overlap an existing one.
	ErrMergeOverlap = errors.New("merge overlaps an existing merge")
	// ErrNoTemplate is returned when neither a template path nor a reader was given.
	ErrNoTemplate = errors.New("no template specified")
)

// CellType represents the type of data in a cell.
type CellType int

const (
	CellBlank CellType = iota
	CellString
	CellNumber
	CellBoolean
	CellDate
	CellFormula
	CellError
)

// String returns a human-readable name for the CellType.
func (ct CellType) String() string {
	switch ct {
	case CellBlank:
		return "Blank"
	case CellString:
		return "String"
	case CellNumber:
		return "Number"
	case CellBoolean:
		return "Boolean"
	case CellDate:
		return "Date"
	case CellFormula:
		return "Formula"
	case CellError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Cell is a single worksheet cell. Row and Col are 1-based and only valid
// until the next structural edit of the owning Document.
type Cell struct {
	Row     int
	Col     int
	Value   string   // textual value, tags live here
	Formula string   // formula without the leading '='
	Style   int      // excelize style ID
	Type    CellType // type the value is written back as
	Typed   any      // typed value set by a whole-cell substitution, nil otherwise
}

// Ref returns the cell position as a CellRef.
func (c *Cell) Ref(sheet string) CellRef {
	return NewCellRef(sheet, c.Row, c.Col)
}

// SetText replaces the textual value and drops any typed value.
func (c *Cell) SetText(s string) {
	c.Value = s
	c.Typed = nil
	if c.Type != CellFormula {
		if s == "" {
			c.Type = CellBlank
		} else {
			c.Type = CellString
		}
	}
}

// ConditionalRule is one rule of a conditional format. Formulae holds the rule's
// formula operands; Options carries everything else (type, style, priority, ...).
type ConditionalRule struct {
	Formulae []string
	Options  excelize.ConditionalFormatOptions
}

// ConditionalFormat is a set of rules applied to a space-separated list of ranges.
type ConditionalFormat struct {
	Ref   string
	Rules []ConditionalRule
}

// ImagePoint is a 0-based fractional grid position (column, row).
type ImagePoint struct {
	Col float64
	Row float64
}

// ImageAnchor places an image between two grid points.
type ImageAnchor struct {
	TopLeft     ImagePoint
	BottomRight ImagePoint
}

// Document is the worksheet abstraction the engine renders into.
// Implementations are not safe for concurrent use.
type Document interface {
	// Name returns the worksheet name.
	Name() string

	// Cell data access
	RowCount() int
	ColCount(row int) int
	Cell(row, col int) *Cell
	IsMergedSlave(row, col int) bool

	// Row geometry
	RowHeight(row int) float64
	SetRowHeight(row int, h float64)

	// SpliceRows removes deleteCount rows at row `at` and inserts insertCount blank
	// rows in their place. Rows and merges below move; merges touching deleted rows
	// are dropped. Formulas and conditional formats are left untouched.
	SpliceRows(at, deleteCount, insertCount int)

	// Merges
	MergeCells(r MergeRange) error
	UnmergeCells(r MergeRange) error
	Merges() []MergeRange

	// Conditional formatting
	ConditionalFormats() []ConditionalFormat
	SetConditionalFormats(cfs []ConditionalFormat)

	// Images
	AddImage(data []byte, ext string) (int, error)
	PlaceImage(id int, at ImageAnchor) error
}
