package xltag

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tiendc/go-deepcopy"
)

// dollarRowRegex matches the absolute row part of a reference ($5 in E$5 or $E$5).
var dollarRowRegex = regexp.MustCompile(`\$(\d+)`)

// offsetConditionalFormats keeps conditional formats aligned after a single-row
// loop grew (count > 0) or removed (count < 0) rows at rowIndex.
//
// Rules are assumed to cover one row: a rule's row is the row of the first cell
// of its first range, and its formulae only reference that row. Rules spanning
// several rows are moved as a block by their first row.
func offsetConditionalFormats(doc Document, rowIndex, count int) {
	cfs := doc.ConditionalFormats()
	if len(cfs) == 0 || count == 0 {
		return
	}

	out := make([]ConditionalFormat, 0, len(cfs))
	if count < 0 {
		last := rowIndex - count - 1
		for _, cf := range cfs {
			row, ok := conditionalFormatRow(cf)
			switch {
			case !ok:
				out = append(out, cf)
			case row >= rowIndex && row <= last:
				// dropped with its rows
			case row > last:
				out = append(out, offsetConditionalFormat(cf, count))
			default:
				out = append(out, cf)
			}
		}
		doc.SetConditionalFormats(out)
		return
	}

	var clones []ConditionalFormat
	for _, cf := range cfs {
		row, ok := conditionalFormatRow(cf)
		switch {
		case !ok:
			out = append(out, cf)
		case row > rowIndex:
			out = append(out, offsetConditionalFormat(cf, count))
		case row == rowIndex:
			out = append(out, cf)
			for k := 1; k <= count; k++ {
				clones = append(clones, offsetConditionalFormat(cloneConditionalFormat(cf), k))
			}
		default:
			out = append(out, cf)
		}
	}
	doc.SetConditionalFormats(append(out, clones...))
}

// conditionalFormatRow returns the row of the first cell of the first range.
func conditionalFormatRow(cf ConditionalFormat) (int, bool) {
	first, _, _ := strings.Cut(strings.TrimSpace(cf.Ref), " ")
	r, err := ParseMergeRange(first)
	if err != nil {
		return 0, false
	}
	return r.Top, true
}

// offsetConditionalFormat moves every range of cf and every row reference in
// its formulae, absolute ($5) or relative, by delta rows.
func offsetConditionalFormat(cf ConditionalFormat, delta int) ConditionalFormat {
	cf.Ref = mapRanges(cf.Ref, func(r MergeRange) MergeRange { return r.ShiftRows(delta) })
	rules := make([]ConditionalRule, len(cf.Rules))
	for i, rule := range cf.Rules {
		formulae := make([]string, len(rule.Formulae))
		for j, f := range rule.Formulae {
			formulae[j] = offsetFormula(offsetDollarRows(f, delta), delta)
		}
		rule.Formulae = formulae
		rules[i] = rule
	}
	cf.Rules = rules
	return cf
}

// offsetDollarRows adds delta to every $<digits> token.
func offsetDollarRows(formula string, delta int) string {
	return mapDollarRows(formula, func(row int) int { return row + delta })
}

// mapDollarRows rewrites every $<digits> token with fn. Results below 1 keep
// the original token.
func mapDollarRows(formula string, fn func(row int) int) string {
	return dollarRowRegex.ReplaceAllStringFunc(formula, func(tok string) string {
		row, err := strconv.Atoi(tok[1:])
		if err != nil {
			return tok
		}
		next := fn(row)
		if next < 1 {
			return tok
		}
		return "$" + strconv.Itoa(next)
	})
}

// cloneConditionalFormat deep-copies cf so clones never share rule options.
func cloneConditionalFormat(cf ConditionalFormat) ConditionalFormat {
	var out ConditionalFormat
	if err := deepcopy.Copy(&out, cf); err != nil {
		out = ConditionalFormat{Ref: cf.Ref, Rules: append([]ConditionalRule(nil), cf.Rules...)}
	}
	return out
}

// mapRanges applies fn to every space-separated range of ref. Unparseable
// parts are kept verbatim.
func mapRanges(ref string, fn func(MergeRange) MergeRange) string {
	parts := strings.Fields(ref)
	for i, p := range parts {
		r, err := ParseMergeRange(p)
		if err != nil {
			continue
		}
		parts[i] = formatRange(fn(r))
	}
	return strings.Join(parts, " ")
}

// formatRange prints a 1x1 range as a single cell name.
func formatRange(r MergeRange) string {
	if r.Top == r.Bottom && r.Left == r.Right {
		return r.TopLeft()
	}
	return r.String()
}
