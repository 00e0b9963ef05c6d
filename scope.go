package xltag

// scopeHandler narrows the data context for the cells between {@name} and
// {/name}. Cells are fed one at a time in row-major order through visit.
// Nested scopes are resolved by a fresh handler over the collected span.
type scopeHandler struct {
	r     *resolver
	data  any
	depth int
	limit int

	open *Tag    // nil while searching for an open tag
	span []*Cell // cells collected since the open tag
}

func newScopeHandler(r *resolver, data any, depth, limit int) *scopeHandler {
	return &scopeHandler{r: r, data: data, depth: depth, limit: limit}
}

// visit advances the state machine by one cell.
func (h *scopeHandler) visit(cell *Cell) {
	if h.r.doc.IsMergedSlave(cell.Row, cell.Col) {
		return
	}

	if h.open == nil {
		tag, ok := FindScopeOpen(cell.Value)
		if !ok {
			return
		}
		cell.SetText(stripFirst(cell.Value, tag.Match))
		h.open = &tag
	}

	closeTag, closed := FindCloseTag(cell.Value, h.open.Name)
	if closed {
		cell.SetText(stripFirst(cell.Value, closeTag.Match))
	}
	h.span = append(h.span, cell)
	if closed {
		h.resolve()
		h.reset()
	}
}

func (h *scopeHandler) reset() {
	h.open = nil
	h.span = nil
}

// resolve substitutes the collected span against the narrowed context.
func (h *scopeHandler) resolve() {
	inner, _ := lookup(h.data, h.open.Name)

	if spanHasScopeOpen(h.span) {
		if h.depth+1 > h.limit {
			h.r.logger.Warn("scope nesting too deep, inner scope left unresolved",
				"sheet", h.r.doc.Name(),
				"scope", h.open.Name,
				"limit", h.limit)
		} else {
			nested := newScopeHandler(h.r, inner, h.depth+1, h.limit)
			for _, c := range h.span {
				nested.visit(c)
			}
		}
	}

	h.r.resolveCells(h.span, inner)
}

func spanHasScopeOpen(cells []*Cell) bool {
	for _, c := range cells {
		if _, ok := FindScopeOpen(c.Value); ok {
			return true
		}
	}
	return false
}

// walkScopes feeds every cell of the given rows and columns to a scope handler.
// A col range of 0..0 means every cell of each row.
func walkScopes(h *scopeHandler, doc Document, firstRow, lastRow, firstCol, lastCol int) {
	for row := firstRow; row <= lastRow; row++ {
		from, to := firstCol, lastCol
		if from == 0 && to == 0 {
			from, to = 1, doc.ColCount(row)
		}
		for col := from; col <= to; col++ {
			h.visit(doc.Cell(row, col))
		}
	}
}
