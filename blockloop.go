package xltag

import (
	"fmt"
	"strings"
)

// blockLoop is a {#tag} ... {/tag} loop whose tags sit on different rows.
type blockLoop struct {
	StartRow int
	EndRow   int
	Tag      string
}

// Height returns the number of rows in one block.
func (l blockLoop) Height() int { return l.EndRow - l.StartRow + 1 }

// blockLoopHandler expands multi-row loops: the whole row block is repeated
// once per element. Sibling blocks are expanded top to bottom.
type blockLoopHandler struct {
	r        *resolver
	copier   *rowCopier
	rowLoops *rowLoopHandler
	limit    int
}

func newBlockLoopHandler(r *resolver, copier *rowCopier, rowLoops *rowLoopHandler, scopeLimit int) *blockLoopHandler {
	return &blockLoopHandler{r: r, copier: copier, rowLoops: rowLoops, limit: scopeLimit}
}

// run expands every multi-row loop in the document against data.
func (h *blockLoopHandler) run(data any) error {
	cursor := 1
	for {
		loop, ok := h.find(cursor)
		if !ok {
			return nil
		}
		next, err := h.expand(loop, data)
		if err != nil {
			return err
		}
		cursor = next
	}
}

// find scans rows from `from` for the next loop whose close tag is on a later
// row. Single-row loops, inline loops and loops without a close tag are skipped.
func (h *blockLoopHandler) find(from int) (blockLoop, bool) {
	doc := h.r.doc
	for row := from; row <= doc.RowCount(); row++ {
		for _, tag := range h.openTagsOnRow(row) {
			if end := h.closeRow(row, tag); end > row {
				return blockLoop{StartRow: row, EndRow: end, Tag: tag}, true
			}
		}
	}
	return blockLoop{}, false
}

// openTagsOnRow lists the names of every {#name} tag on row, left to right.
func (h *blockLoopHandler) openTagsOnRow(row int) []string {
	doc := h.r.doc
	var names []string
	for col := 1; col <= doc.ColCount(row); col++ {
		if doc.IsMergedSlave(row, col) {
			continue
		}
		for _, open := range FindLoopOpens(doc.Cell(row, col).Value) {
			names = append(names, open.Name)
		}
	}
	return names
}

// closeRow returns the first row at or after start holding {/tag}, or 0.
func (h *blockLoopHandler) closeRow(start int, tag string) int {
	doc := h.r.doc
	for row := start; row <= doc.RowCount(); row++ {
		for col := 1; col <= doc.ColCount(row); col++ {
			if _, ok := FindCloseTag(doc.Cell(row, col).Value, tag); ok {
				return row
			}
		}
	}
	return 0
}

// expand materializes one loop and returns the row at which scanning resumes.
func (h *blockLoopHandler) expand(loop blockLoop, data any) (int, error) {
	doc := h.r.doc
	v, _ := lookup(data, loop.Tag)
	items := toSlice(v)
	height := loop.Height()

	if len(items) == 0 {
		h.copier.RemoveRows(loop.StartRow, height)
		offsetConditionalFormats(doc, loop.StartRow, -height)
		h.r.logger.Debug("block loop removed", "sheet", doc.Name(), "rows", height, "tag", loop.Tag)
		return loop.StartRow, nil
	}

	for k := 1; k < len(items); k++ {
		if err := h.copier.CopyRows(loop.StartRow, loop.EndRow, loop.EndRow+1); err != nil {
			return 0, fmt.Errorf("expand block loop %q at row %d: %w", loop.Tag, loop.StartRow, err)
		}
	}
	if len(items) > 1 {
		h.r.logger.Debug("block loop expanded", "sheet", doc.Name(), "row", loop.StartRow, "rows", height, "tag", loop.Tag, "count", len(items))
	}

	start := loop.StartRow
	for _, item := range items {
		end, err := h.resolveBlock(loop.Tag, start, start+height-1, item)
		if err != nil {
			return 0, err
		}
		start = end + 1
	}
	return start, nil
}

// resolveBlock strips the loop tags from one copy, expands single-row loops
// inside it against item, then resolves scopes and tags. It returns the last
// row of the block, which moves when nested row loops grow or shrink.
func (h *blockLoopHandler) resolveBlock(tag string, first, last int, item any) (int, error) {
	h.stripTag(first, "{#"+tag+"}")
	h.stripTag(last, CloseTag(tag))

	last, err := h.rowLoops.run(first, last, item)
	if err != nil {
		return last, err
	}
	if last < first {
		return first - 1, nil
	}

	scopes := newScopeHandler(h.r, item, 0, h.limit)
	walkScopes(scopes, h.r.doc, first, last, 0, 0)

	doc := h.r.doc
	for row := first; row <= last; row++ {
		for col := 1; col <= doc.ColCount(row); col++ {
			h.r.resolveCell(doc.Cell(row, col), item)
		}
	}
	return last, nil
}

// stripTag removes lit from the first cell of row that contains it.
func (h *blockLoopHandler) stripTag(row int, lit string) {
	doc := h.r.doc
	for col := 1; col <= doc.ColCount(row); col++ {
		c := doc.Cell(row, col)
		if strings.Contains(c.Value, lit) {
			c.SetText(stripFirst(c.Value, lit))
			return
		}
	}
}
