package xltag

import (
	"context"
	"fmt"
)

// Templater renders tag templates. It holds configuration only, so one
// Templater may serve many renders; each render owns its Document exclusively.
type Templater struct {
	opts *Options
}

// NewTemplater creates a Templater with the given options.
func NewTemplater(opts ...Option) *Templater {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Templater{opts: o}
}

// Render fills one worksheet with data using a Templater built from opts.
func Render(ctx context.Context, doc Document, data any, opts ...Option) error {
	return NewTemplater(opts...).Render(ctx, doc, data)
}

// Render fills doc in place. Passes run in a fixed order: multi-row loops,
// single-row loops, scopes, inline loops, scalars, images. Each pass only
// sees the tags the previous passes left behind.
func (t *Templater) Render(ctx context.Context, doc Document, data any) error {
	r := newResolver(ctx, doc, t.opts)
	copier := newRowCopier(doc, t.opts.logger)
	rowLoops := newRowLoopHandler(r, copier, t.opts.maxScopeDepth)
	blockLoops := newBlockLoopHandler(r, copier, rowLoops, t.opts.maxScopeDepth)

	if err := blockLoops.run(data); err != nil {
		return fmt.Errorf("render %q: %w", doc.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := rowLoops.run(1, doc.RowCount(), data); err != nil {
		return fmt.Errorf("render %q: %w", doc.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	scopes := newScopeHandler(r, data, 0, t.opts.maxScopeDepth)
	walkScopes(scopes, doc, 1, doc.RowCount(), 0, 0)

	eachCell(doc, func(c *Cell) { r.resolveInlineLoop(c, data) })
	eachCell(doc, func(c *Cell) { r.resolveScalars(c, data) })
	if err := ctx.Err(); err != nil {
		return err
	}
	eachCell(doc, func(c *Cell) { r.resolveImages(c, data, 0) })

	t.opts.logger.Debug("sheet rendered", "sheet", doc.Name(), "rows", doc.RowCount())
	return nil
}

// eachCell calls fn for every non-slave, non-formula cell in row-major order.
func eachCell(doc Document, fn func(*Cell)) {
	for row := 1; row <= doc.RowCount(); row++ {
		for col := 1; col <= doc.ColCount(row); col++ {
			if doc.IsMergedSlave(row, col) {
				continue
			}
			c := doc.Cell(row, col)
			if c.Formula != "" {
				continue
			}
			fn(c)
		}
	}
}

// RenderWorkbook renders the sheets selected with WithSheets (default: the
// first sheet) and writes them back into the workbook.
func (t *Templater) RenderWorkbook(ctx context.Context, wb *Workbook, data any) error {
	names := t.opts.sheets
	if len(names) == 0 {
		list := wb.SheetNames()
		if len(list) == 0 {
			return fmt.Errorf("render workbook: %w", ErrSheetNotFound)
		}
		names = list[:1]
	}

	for _, name := range names {
		ws, err := wb.Sheet(name)
		if err != nil {
			return err
		}
		if err := t.Render(ctx, ws, data); err != nil {
			return err
		}
		if err := wb.Commit(ws); err != nil {
			return err
		}
	}
	if t.opts.recalculateOnOpen {
		if err := wb.SetRecalculateOnOpen(true); err != nil {
			return err
		}
	}
	return nil
}
