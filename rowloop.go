package xltag

import "fmt"

// rowLoop is a {#tag}...{/tag} loop confined to one row.
type rowLoop struct {
	Row      int
	StartCol int
	EndCol   int
	Tag      string
}

// rowLoopHandler expands single-row loops: the row is repeated once per
// element and the cells between the tags are resolved against that element.
type rowLoopHandler struct {
	r          *resolver
	copier     *rowCopier
	scopeLimit int
}

func newRowLoopHandler(r *resolver, copier *rowCopier, scopeLimit int) *rowLoopHandler {
	return &rowLoopHandler{r: r, copier: copier, scopeLimit: scopeLimit}
}

// run handles every row in [first, last] and returns the new last row.
func (h *rowLoopHandler) run(first, last int, data any) (int, error) {
	for row := first; row <= last; {
		advance, looped, err := h.handle(row, data)
		if err != nil {
			return last, err
		}
		if looped {
			last += advance - 1
		}
		row += advance
	}
	return last, nil
}

// detect finds the loop on a row: the first {#tag} with a {/tag} after it in
// the same row. Inline loops close with {/} and are never picked.
func (h *rowLoopHandler) detect(row int) (rowLoop, bool) {
	doc := h.r.doc
	for col := 1; col <= doc.ColCount(row); col++ {
		if doc.IsMergedSlave(row, col) {
			continue
		}
		value := doc.Cell(row, col).Value
		for _, open := range FindLoopOpens(value) {
			if end, ok := h.closeCol(row, col, open); ok {
				return rowLoop{Row: row, StartCol: col, EndCol: end, Tag: open.Name}, true
			}
		}
	}
	return rowLoop{}, false
}

// closeCol returns the column of the first {/tag} after open, which sits in
// the cell at col.
func (h *rowLoopHandler) closeCol(row, col int, open Tag) (int, bool) {
	doc := h.r.doc
	if _, ok := FindCloseTag(doc.Cell(row, col).Value[open.End:], open.Name); ok {
		return col, true
	}
	for c := col + 1; c <= doc.ColCount(row); c++ {
		if doc.IsMergedSlave(row, c) {
			continue
		}
		if _, ok := FindCloseTag(doc.Cell(row, c).Value, open.Name); ok {
			return c, true
		}
	}
	return 0, false
}

// handle processes one row. It returns how many rows to advance: 1 for a
// plain row, N for a loop with N elements, 0 when the loop row was removed.
func (h *rowLoopHandler) handle(row int, data any) (advance int, looped bool, err error) {
	loop, ok := h.detect(row)
	if !ok {
		return 1, false, nil
	}

	v, _ := lookup(data, loop.Tag)
	items := toSlice(v)
	doc := h.r.doc

	switch n := len(items); {
	case n == 0:
		h.copier.RemoveRows(row, 1)
		offsetConditionalFormats(doc, row, -1)
		h.r.logger.Debug("row loop removed", "sheet", doc.Name(), "row", row, "tag", loop.Tag)
		return 0, true, nil
	case n > 1:
		if err := h.copier.DuplicateRow(row, n-1); err != nil {
			return 0, true, fmt.Errorf("expand row loop %q at row %d: %w", loop.Tag, row, err)
		}
		offsetConditionalFormats(doc, row, n-1)
		h.r.logger.Debug("row loop expanded", "sheet", doc.Name(), "row", row, "tag", loop.Tag, "count", n)
	}

	for i, item := range items {
		h.resolveRow(loop, row+i, item)
	}
	return len(items), true, nil
}

// resolveRow strips the loop tags of one materialized row and resolves its cells.
func (h *rowLoopHandler) resolveRow(loop rowLoop, row int, item any) {
	doc := h.r.doc
	start := doc.Cell(row, loop.StartCol)
	start.SetText(stripFirst(start.Value, "{#"+loop.Tag+"}"))
	end := doc.Cell(row, loop.EndCol)
	end.SetText(stripFirst(end.Value, CloseTag(loop.Tag)))

	cells := make([]*Cell, 0, loop.EndCol-loop.StartCol+1)
	for col := loop.StartCol; col <= loop.EndCol; col++ {
		cells = append(cells, doc.Cell(row, col))
	}

	scopes := newScopeHandler(h.r, item, 0, h.scopeLimit)
	for _, c := range cells {
		scopes.visit(c)
	}
	h.r.resolveCells(cells, item)
}
