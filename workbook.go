package xltag

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook adapts an excelize file to the engine. Sheets are read into
// in-memory Worksheets on first access and written back by Commit.
type Workbook struct {
	file   *excelize.File
	sheets map[string]*Worksheet
	origin map[string]sheetOrigin
}

// sheetOrigin remembers what was read so Commit can clear it.
type sheetOrigin struct {
	rows   int
	cols   int
	merges []MergeRange
	cfRefs []string
}

// NewWorkbook wraps an open excelize file.
func NewWorkbook(f *excelize.File) *Workbook {
	return &Workbook{
		file:   f,
		sheets: make(map[string]*Worksheet),
		origin: make(map[string]sheetOrigin),
	}
}

// OpenWorkbook opens an xlsx file.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open template %q: %w", path, err)
	}
	return NewWorkbook(f), nil
}

// OpenWorkbookReader opens an xlsx document from r.
func OpenWorkbookReader(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open template reader: %w", err)
	}
	return NewWorkbook(f), nil
}

// SheetNames returns the sheet names in workbook order.
func (wb *Workbook) SheetNames() []string {
	return wb.file.GetSheetList()
}

// Sheet returns the in-memory worksheet for name, loading it on first use.
func (wb *Workbook) Sheet(name string) (*Worksheet, error) {
	if ws, ok := wb.sheets[name]; ok {
		return ws, nil
	}
	if idx, err := wb.file.GetSheetIndex(name); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q: %w", name, ErrSheetNotFound)
	}
	ws, origin, err := wb.readSheet(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	wb.sheets[name] = ws
	wb.origin[name] = origin
	return ws, nil
}

// readSheet reads all cell data, geometry, merges and conditional formats.
func (wb *Workbook) readSheet(name string) (*Worksheet, sheetOrigin, error) {
	f := wb.file
	ws := NewWorksheet(name)
	var origin sheetOrigin

	maxRow, maxCol := 0, 0
	if dim, err := f.GetSheetDimension(name); err == nil && dim != "" {
		if r, err := ParseMergeRange(dim); err == nil {
			maxRow, maxCol = r.Bottom, r.Right
		}
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, origin, fmt.Errorf("read rows: %w", err)
	}
	maxRow = max(maxRow, len(rows))
	for _, row := range rows {
		maxCol = max(maxCol, len(row))
	}

	// Read column widths
	for col := 1; col <= maxCol; col++ {
		if w, err := f.GetColWidth(name, ColToName(col)); err == nil {
			ws.SetColWidth(col, w)
		}
	}

	for row := 1; row <= maxRow; row++ {
		if h, err := f.GetRowHeight(name, row); err == nil && h != DefaultRowHeight {
			ws.SetRowHeight(row, h)
		}
		for col := 1; col <= maxCol; col++ {
			cellName := NewCellRef("", row, col).CellName()
			value, err := f.GetCellValue(name, cellName, excelize.Options{RawCellValue: true})
			if err != nil {
				return nil, origin, fmt.Errorf("read cell %s: %w", cellName, err)
			}
			formula, _ := f.GetCellFormula(name, cellName)
			style, _ := f.GetCellStyle(name, cellName)
			if value == "" && formula == "" && style == 0 {
				continue
			}
			ct, _ := f.GetCellType(name, cellName)

			c := ws.Cell(row, col)
			c.Value = value
			c.Formula = formula
			c.Style = style
			c.Type = cellTypeOf(ct, value, formula)
		}
	}

	mcs, err := f.GetMergeCells(name)
	if err != nil {
		return nil, origin, fmt.Errorf("read merges: %w", err)
	}
	for _, mc := range mcs {
		r, err := ParseMergeRange(mc.GetStartAxis() + ":" + mc.GetEndAxis())
		if err != nil {
			continue
		}
		ws.merges = append(ws.merges, r)
	}

	cfMap, err := f.GetConditionalFormats(name)
	if err != nil {
		return nil, origin, fmt.Errorf("read conditional formats: %w", err)
	}
	refs := make([]string, 0, len(cfMap))
	for ref := range cfMap {
		refs = append(refs, ref)
	}
	slices.Sort(refs)
	for _, ref := range refs {
		cf := ConditionalFormat{Ref: ref}
		for _, opts := range cfMap[ref] {
			cf.Rules = append(cf.Rules, ConditionalRule{Formulae: ruleFormulae(opts), Options: opts})
		}
		ws.condFmts = append(ws.condFmts, cf)
	}

	origin = sheetOrigin{
		rows:   maxRow,
		cols:   maxCol,
		merges: ws.Merges(),
		cfRefs: refs,
	}
	return ws, origin, nil
}

func cellTypeOf(ct excelize.CellType, value, formula string) CellType {
	if formula != "" {
		return CellFormula
	}
	switch ct {
	case excelize.CellTypeBool:
		return CellBoolean
	case excelize.CellTypeDate:
		return CellDate
	case excelize.CellTypeError:
		return CellError
	case excelize.CellTypeNumber:
		return CellNumber
	case excelize.CellTypeUnset:
		// Numbers without an explicit type attribute
		if _, err := strconv.ParseFloat(value, 64); err == nil && value != "" {
			return CellNumber
		}
	}
	if value == "" {
		return CellBlank
	}
	return CellString
}

// ruleFormulae lifts the formula operands out of excelize rule options.
func ruleFormulae(o excelize.ConditionalFormatOptions) []string {
	switch o.Type {
	case "formula":
		return []string{o.Criteria}
	case "cell":
		if o.MinValue != "" || o.MaxValue != "" {
			return []string{o.MinValue, o.MaxValue}
		}
		return []string{o.Value}
	}
	return nil
}

// ruleOptions writes the formula operands back into the excelize options.
func ruleOptions(rule ConditionalRule) excelize.ConditionalFormatOptions {
	o := rule.Options
	switch o.Type {
	case "formula":
		if len(rule.Formulae) > 0 {
			o.Criteria = rule.Formulae[0]
		}
	case "cell":
		if len(rule.Formulae) == 2 {
			o.MinValue, o.MaxValue = rule.Formulae[0], rule.Formulae[1]
		} else if len(rule.Formulae) == 1 {
			o.Value = rule.Formulae[0]
		}
	}
	return o
}

// Commit writes a rendered worksheet back into the excelize file.
func (wb *Workbook) Commit(ws *Worksheet) error {
	f := wb.file
	name := ws.Name()
	origin := wb.origin[name]

	for _, m := range origin.merges {
		if err := f.UnmergeCell(name, m.TopLeft(), m.BottomRight()); err != nil {
			return fmt.Errorf("unmerge %s: %w", m, err)
		}
	}
	for _, ref := range origin.cfRefs {
		if err := f.UnsetConditionalFormat(name, ref); err != nil {
			return fmt.Errorf("unset conditional format %s: %w", ref, err)
		}
	}

	maxRow := max(origin.rows, ws.RowCount())
	for row := 1; row <= maxRow; row++ {
		maxCol := max(origin.cols, ws.ColCount(row))
		for col := 1; col <= maxCol; col++ {
			if err := wb.writeCell(name, row, col, ws.lookup(row, col)); err != nil {
				return err
			}
		}
		if ws.hasHeight(row) || row <= origin.rows {
			if err := f.SetRowHeight(name, row, ws.RowHeight(row)); err != nil {
				return fmt.Errorf("set row %d height: %w", row, err)
			}
		}
	}

	for _, m := range ws.Merges() {
		if err := f.MergeCell(name, m.TopLeft(), m.BottomRight()); err != nil {
			return fmt.Errorf("merge %s: %w", m, err)
		}
	}

	for _, cf := range ws.ConditionalFormats() {
		opts := make([]excelize.ConditionalFormatOptions, 0, len(cf.Rules))
		for _, rule := range cf.Rules {
			opts = append(opts, ruleOptions(rule))
		}
		if len(opts) == 0 {
			continue
		}
		if err := f.SetConditionalFormat(name, cf.Ref, opts); err != nil {
			return fmt.Errorf("set conditional format %s: %w", cf.Ref, err)
		}
	}

	for _, img := range ws.Images() {
		if err := wb.addPicture(ws, img); err != nil {
			return err
		}
	}
	return nil
}

// writeCell writes one cell, clearing the position when c is nil.
func (wb *Workbook) writeCell(sheet string, row, col int, c *Cell) error {
	f := wb.file
	cellName := NewCellRef("", row, col).CellName()

	var (
		err  error
		link *HyperlinkValue
	)
	switch {
	case c == nil:
		err = f.SetCellValue(sheet, cellName, nil)
	case isHyperlink(c.Typed):
		h := c.Typed.(HyperlinkValue)
		link = &h
		err = f.SetCellStr(sheet, cellName, h.String())
	case c.Typed != nil:
		err = f.SetCellValue(sheet, cellName, c.Typed)
	case c.Type == CellNumber || c.Type == CellDate:
		if n, perr := strconv.ParseFloat(c.Value, 64); perr == nil {
			err = f.SetCellFloat(sheet, cellName, n, -1, 64)
		} else {
			err = f.SetCellStr(sheet, cellName, c.Value)
		}
	case c.Type == CellBoolean:
		err = f.SetCellBool(sheet, cellName, c.Value == "1" || strings.EqualFold(c.Value, "true"))
	case c.Value == "":
		err = f.SetCellValue(sheet, cellName, nil)
	default:
		err = f.SetCellStr(sheet, cellName, c.Value)
	}
	if err != nil {
		return fmt.Errorf("write cell %s: %w", cellName, err)
	}

	formula, style := "", 0
	if c != nil {
		formula, style = c.Formula, c.Style
	}
	if err := f.SetCellFormula(sheet, cellName, formula); err != nil {
		return fmt.Errorf("write formula %s: %w", cellName, err)
	}
	if err := f.SetCellStyle(sheet, cellName, cellName, style); err != nil {
		return fmt.Errorf("write style %s: %w", cellName, err)
	}
	if link != nil {
		display := link.String()
		if err := f.SetCellHyperLink(sheet, cellName, link.URL, link.linkType(), excelize.HyperlinkOpts{Display: &display}); err != nil {
			return fmt.Errorf("write hyperlink %s: %w", cellName, err)
		}
	}
	return nil
}

func isHyperlink(v any) bool {
	_, ok := v.(HyperlinkValue)
	return ok
}

// addPicture converts a fractional grid anchor to a cell, pixel offset and scale.
func (wb *Workbook) addPicture(ws *Worksheet, img PlacedImage) error {
	tl, br := img.Anchor.TopLeft, img.Anchor.BottomRight
	col := int(math.Floor(tl.Col)) + 1
	row := int(math.Floor(tl.Row)) + 1
	cellName := NewCellRef("", row, col).CellName()

	opts := &excelize.GraphicOptions{
		OffsetX:         int(math.Round((tl.Col - math.Floor(tl.Col)) * colPixels(ws.ColWidth(col)))),
		OffsetY:         int(math.Round((tl.Row - math.Floor(tl.Row)) * rowPixels(ws.RowHeight(row)))),
		ScaleX:          1,
		ScaleY:          1,
		LockAspectRatio: false,
		Positioning:     "oneCell",
	}

	targetW := gridX(ws, br.Col) - gridX(ws, tl.Col)
	targetH := gridY(ws, br.Row) - gridY(ws, tl.Row)
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
		if targetW > 0 {
			opts.ScaleX = targetW / float64(cfg.Width)
		}
		if targetH > 0 {
			opts.ScaleY = targetH / float64(cfg.Height)
		}
	}

	err := wb.file.AddPictureFromBytes(ws.Name(), cellName, &excelize.Picture{
		Extension: "." + img.Ext,
		File:      img.Data,
		Format:    opts,
	})
	if err != nil {
		return fmt.Errorf("add picture at %s: %w", cellName, err)
	}
	return nil
}

// colPixels converts a column width in characters to pixels.
func colPixels(width float64) float64 {
	return float64(int(width*8 + 0.5))
}

// rowPixels converts a row height in points to pixels.
func rowPixels(height float64) float64 {
	return math.Ceil(4.0 / 3.4 * height)
}

// gridX returns the pixel x position of a fractional 0-based column coordinate.
func gridX(ws *Worksheet, x float64) float64 {
	whole := int(math.Floor(x))
	px := 0.0
	for c := 1; c <= whole; c++ {
		px += colPixels(ws.ColWidth(c))
	}
	return px + (x-float64(whole))*colPixels(ws.ColWidth(whole+1))
}

// gridY returns the pixel y position of a fractional 0-based row coordinate.
func gridY(ws *Worksheet, y float64) float64 {
	whole := int(math.Floor(y))
	px := 0.0
	for r := 1; r <= whole; r++ {
		px += rowPixels(ws.RowHeight(r))
	}
	return px + (y-float64(whole))*rowPixels(ws.RowHeight(whole+1))
}

// SetRecalculateOnOpen tells Excel to recalculate all formulas on open.
func (wb *Workbook) SetRecalculateOnOpen(recalc bool) error {
	return wb.file.SetCalcProps(&excelize.CalcPropsOptions{FullCalcOnLoad: &recalc})
}

// Write writes the workbook to w.
func (wb *Workbook) Write(w io.Writer) error {
	return wb.file.Write(w)
}

// SaveAs writes the workbook to path.
func (wb *Workbook) SaveAs(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file %q: %w", path, err)
	}
	defer out.Close()
	if err := wb.Write(out); err != nil {
		os.Remove(path)
		return fmt.Errorf("write output file %q: %w", path, err)
	}
	return nil
}

// Close closes the underlying excelize file.
func (wb *Workbook) Close() error {
	return wb.file.Close()
}

// File returns the underlying excelize file for advanced operations.
func (wb *Workbook) File() *excelize.File {
	return wb.file
}
