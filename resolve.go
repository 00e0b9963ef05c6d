package xltag

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// resolver substitutes inline-loop, scalar and image tags inside single cells.
// It holds no per-cell state; one resolver serves a whole render.
type resolver struct {
	ctx          context.Context
	doc          Document
	fetcher      ImageFetcher
	imageTimeout time.Duration
	logger       *slog.Logger
}

func newResolver(ctx context.Context, doc Document, opts *Options) *resolver {
	return &resolver{
		ctx:          ctx,
		doc:          doc,
		fetcher:      opts.imageFetcher(),
		imageTimeout: opts.imageTimeout,
		logger:       opts.logger,
	}
}

// resolveCell runs inline-loop, scalar and image resolution on one cell, in that
// order. The inline loop goes first so its body tags are not consumed by the
// scalar pass against the outer context.
func (r *resolver) resolveCell(cell *Cell, data any) {
	if r.doc.IsMergedSlave(cell.Row, cell.Col) || cell.Formula != "" {
		return
	}
	r.resolveInlineLoop(cell, data)
	r.resolveScalars(cell, data)
	r.resolveImages(cell, data, 0)
}

// resolveCells runs resolveCell over a list of cells.
func (r *resolver) resolveCells(cells []*Cell, data any) {
	for _, c := range cells {
		r.resolveCell(c, data)
	}
}

// resolveScalars replaces every {name} tag whose key is present in data. A cell
// that consists of exactly one tag with a numeric or boolean value keeps that
// type when written back; a HyperlinkValue keeps its link.
func (r *resolver) resolveScalars(cell *Cell, data any) {
	tags := FindScalarTags(cell.Value)
	if len(tags) == 0 {
		return
	}
	if len(tags) == 1 && tags[0].Match == cell.Value {
		v, ok := lookup(data, tags[0].Name)
		if !ok {
			return
		}
		cell.SetText(stringify(v))
		if link, ok := v.(HyperlinkValue); ok {
			cell.Typed = link
		} else if t := inferCellType(v); t == CellNumber || t == CellBoolean {
			cell.Typed = v
			cell.Type = t
		}
		return
	}
	cell.SetText(substituteScalars(cell.Value, data))
}

// substituteScalars is the string-level scalar pass.
func substituteScalars(text string, data any) string {
	for _, tag := range FindScalarTags(text) {
		v, ok := lookup(data, tag.Name)
		if !ok {
			continue
		}
		text = strings.Replace(text, tag.Match, stringify(v), 1)
	}
	return text
}

// resolveInlineLoop expands the first {#name}body{/} construct in the cell. The
// concatenated iterations become the whole cell value.
func (r *resolver) resolveInlineLoop(cell *Cell, data any) {
	if r.doc.IsMergedSlave(cell.Row, cell.Col) {
		return
	}
	loop, ok := FindInlineLoop(cell.Value)
	if !ok {
		return
	}
	v, ok := lookup(data, loop.Name)
	if !ok {
		return
	}

	items := toSlice(v)
	var b strings.Builder
	for i, item := range items {
		body := substituteScalars(loop.Body, item)
		body = r.substituteImages(body, item, cell.Row, cell.Col, i)
		b.WriteString(body)
	}
	cell.SetText(b.String())
}

// resolveImages embeds every {%name} tag whose key is present in data. index is
// the position of the image among the cell's images and shrinks its anchor.
func (r *resolver) resolveImages(cell *Cell, data any, index int) {
	if len(FindImageTags(cell.Value)) == 0 {
		return
	}
	text := r.substituteImages(cell.Value, data, cell.Row, cell.Col, index)
	if text != cell.Value {
		cell.SetText(text)
	}
}

// substituteImages places images for image tags found in text and removes the
// tags that were placed. Failures are logged and leave the tag text in place.
func (r *resolver) substituteImages(text string, data any, row, col, index int) string {
	for _, tag := range FindImageTags(text) {
		v, ok := lookup(data, tag.Name)
		if !ok {
			continue
		}
		if err := r.placeImage(v, row, col, index); err != nil {
			r.logger.Warn("image substitution skipped",
				"sheet", r.doc.Name(),
				"cell", NewCellRef("", row, col).CellName(),
				"tag", tag.Match,
				"err", err)
			continue
		}
		text = strings.Replace(text, tag.Match, "", 1)
	}
	return text
}

// placeImage obtains image bytes for v and anchors them at the cell. A []byte
// value is embedded directly; anything else is treated as a URL.
func (r *resolver) placeImage(v any, row, col, index int) error {
	var (
		data []byte
		ext  string
	)
	if raw, ok := v.([]byte); ok {
		data, ext = raw, imageExtFromBytes(raw)
	} else {
		url := stringify(v)
		ctx := r.ctx
		if r.imageTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.imageTimeout)
			defer cancel()
		}
		var err error
		if data, err = r.fetcher.Fetch(ctx, url); err != nil {
			return err
		}
		ext = imageExt(url, data)
	}

	id, err := r.doc.AddImage(data, ext)
	if err != nil {
		return err
	}
	return r.doc.PlaceImage(id, imageAnchor(row, col, index))
}
