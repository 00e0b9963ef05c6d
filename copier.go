package xltag

import (
	"fmt"
	"log/slog"
	"strings"
)

// rowCopier performs the structural row edits of the loop handlers: it copies
// row ranges with their values, formulas, styles, heights, merges and
// conditional formats, and removes rows while keeping formulas consistent.
type rowCopier struct {
	doc    Document
	logger *slog.Logger
}

func newRowCopier(doc Document, logger *slog.Logger) *rowCopier {
	return &rowCopier{doc: doc, logger: logger}
}

// CopyRows inserts a copy of rows [srcStart, srcEnd] at target. Everything at or
// below target moves down by the height of the range. target must not fall
// strictly inside the source range.
func (rc *rowCopier) CopyRows(srcStart, srcEnd, target int) error {
	return rc.copyRows(srcStart, srcEnd, target, true)
}

// DuplicateRow inserts count copies of row directly below it. Conditional
// formats are left to the offsetter.
func (rc *rowCopier) DuplicateRow(row, count int) error {
	for k := 1; k <= count; k++ {
		if err := rc.copyRows(row, row, row+k, false); err != nil {
			return err
		}
	}
	return nil
}

// RemoveRows deletes count rows starting at start. Merges touching them are
// dropped; formulas referencing rows below are moved up.
func (rc *rowCopier) RemoveRows(start, count int) {
	if count <= 0 {
		return
	}
	rc.doc.SpliceRows(start, count, 0)
	reindexFormulas(rc.doc, 1, start+count, -count)
}

func (rc *rowCopier) copyRows(srcStart, srcEnd, target int, withCondFmt bool) error {
	if srcStart < 1 || srcEnd < srcStart || target < 1 {
		return fmt.Errorf("copy rows %d-%d to %d: invalid range", srcStart, srcEnd, target)
	}
	if target > srcStart && target <= srcEnd {
		return fmt.Errorf("copy rows %d-%d to %d: target inside source", srcStart, srcEnd, target)
	}
	height := srcEnd - srcStart + 1
	delta := target - srcStart

	// Source rows at or after target are read from their shifted position.
	srcShift := 0
	if srcStart >= target {
		srcShift = height
	}

	rc.doc.SpliceRows(target, 0, height)

	for i := 0; i < height; i++ {
		src := srcStart + i + srcShift
		dst := target + i
		rc.doc.SetRowHeight(dst, rc.doc.RowHeight(src))
		for col := 1; col <= rc.doc.ColCount(src); col++ {
			from := rc.doc.Cell(src, col)
			to := rc.doc.Cell(dst, col)
			to.Value = from.Value
			to.Type = from.Type
			to.Typed = from.Typed
			to.Style = from.Style
			to.Formula = offsetFormula(from.Formula, delta)
		}
	}

	if err := rc.copyMerges(srcStart+srcShift, srcEnd+srcShift, target); err != nil {
		return err
	}

	// Formulas outside the new rows: references at or below target move down.
	for row := 1; row <= rc.doc.RowCount(); row++ {
		if row >= target && row < target+height {
			continue
		}
		for col := 1; col <= rc.doc.ColCount(row); col++ {
			cell := rc.doc.Cell(row, col)
			if cell.Formula != "" {
				cell.Formula = shiftFormulaFrom(cell.Formula, target, height)
			}
		}
	}

	if withCondFmt {
		rc.copyConditionalFormats(srcStart, srcEnd, target)
	}
	rc.logger.Debug("rows copied", "sheet", rc.doc.Name(), "first", srcStart, "last", srcEnd, "target", target)
	return nil
}

// copyMerges clones every merge lying wholly inside [first, last] (current row
// numbers) to the same offset below target. Merges in the way are unmerged.
func (rc *rowCopier) copyMerges(first, last, target int) error {
	shift := target - first
	var clones []MergeRange
	for _, m := range rc.doc.Merges() {
		if m.Top >= first && m.Bottom <= last {
			clones = append(clones, m.ShiftRows(shift))
		}
	}
	for _, clone := range clones {
		for _, existing := range rc.doc.Merges() {
			if existing.Overlaps(clone) {
				// A failed unmerge means there was nothing to remove.
				_ = rc.doc.UnmergeCells(existing)
			}
		}
		if err := rc.doc.MergeCells(clone); err != nil {
			return fmt.Errorf("copy merge %s: %w", clone, err)
		}
	}
	return nil
}

// copyConditionalFormats rebuilds the conditional format list after rows
// [srcStart, srcEnd] (pre-insert numbering) were copied to target. Ranges inside
// the source get a shifted clone; ranges at or below target move down.
func (rc *rowCopier) copyConditionalFormats(srcStart, srcEnd, target int) {
	cfs := rc.doc.ConditionalFormats()
	if len(cfs) == 0 {
		return
	}
	height := srcEnd - srcStart + 1
	delta := target - srcStart

	out := make([]ConditionalFormat, 0, len(cfs))
	for _, cf := range cfs {
		var cloned []string
		for _, part := range strings.Fields(cf.Ref) {
			r, err := ParseMergeRange(part)
			if err == nil && r.Top >= srcStart && r.Bottom <= srcEnd {
				cloned = append(cloned, formatRange(r.ShiftRows(delta)))
			}
		}

		moved := cf
		moved.Ref = mapRanges(cf.Ref, func(r MergeRange) MergeRange {
			switch {
			case r.Top >= target:
				return r.ShiftRows(height)
			case r.Bottom >= target:
				r.Bottom += height
			}
			return r
		})
		moved.Rules = mapRuleFormulae(cf.Rules, func(f string) string {
			f = mapDollarRows(f, func(row int) int {
				if row >= target {
					return row + height
				}
				return row
			})
			return shiftFormulaFrom(f, target, height)
		})
		out = append(out, moved)

		if len(cloned) > 0 {
			clone := cloneConditionalFormat(cf)
			clone.Ref = strings.Join(cloned, " ")
			clone.Rules = mapRuleFormulae(clone.Rules, func(f string) string {
				f = mapDollarRows(f, func(row int) int {
					if row >= srcStart && row <= srcEnd {
						return row + delta
					}
					return row
				})
				return offsetFormula(f, delta)
			})
			out = append(out, clone)
		}
	}
	rc.doc.SetConditionalFormats(out)
}

// mapRuleFormulae returns a copy of rules with fn applied to every formula.
func mapRuleFormulae(rules []ConditionalRule, fn func(string) string) []ConditionalRule {
	out := make([]ConditionalRule, len(rules))
	for i, rule := range rules {
		formulae := make([]string, len(rule.Formulae))
		for j, f := range rule.Formulae {
			formulae[j] = fn(f)
		}
		rule.Formulae = formulae
		out[i] = rule
	}
	return out
}
