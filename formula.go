package xltag

import (
	"regexp"
	"strconv"
	"strings"
)

// cellRefRegex matches A1-style references in formulas (A1, $A1, A$1, $A$1).
// Context checks that RE2 cannot express (no lookbehind) happen in shiftFormulaRows.
var cellRefRegex = regexp.MustCompile(`(\$?)([A-Z]{1,3})(\$?)(\d+)`)

// shiftFormulaRows rewrites the row number of every relative, unqualified cell
// reference in formula through fn. Column letters are kept verbatim. Tokens that
// are part of a longer identifier, function names (LOG10(), sheet-qualified
// references and anything inside a string literal are left alone, as are
// absolute rows (A$1).
func shiftFormulaRows(formula string, fn func(row int) int) string {
	matches := cellRefRegex.FindAllStringSubmatchIndex(formula, -1)
	if len(matches) == 0 {
		return formula
	}
	quoted := quotedSpans(formula)

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if inSpans(quoted, start) || !isStandaloneRef(formula, start, end) {
			continue
		}
		if m[7] > m[6] { // absolute row
			continue
		}
		row, err := strconv.Atoi(formula[m[8]:m[9]])
		if err != nil {
			continue
		}
		newRow := fn(row)
		if newRow == row || newRow < 1 {
			continue
		}
		b.WriteString(formula[last:m[8]])
		b.WriteString(strconv.Itoa(newRow))
		last = end
	}
	if last == 0 {
		return formula
	}
	b.WriteString(formula[last:])
	return b.String()
}

// isStandaloneRef checks the characters around a regex match.
func isStandaloneRef(s string, start, end int) bool {
	if start > 0 {
		prev := s[start-1]
		if isIdentChar(prev) || prev == '!' || prev == '$' {
			return false
		}
	}
	if end < len(s) {
		next := s[end]
		if isIdentChar(next) || next == '(' || next == '!' {
			return false
		}
	}
	return true
}

func isIdentChar(b byte) bool {
	return isAlpha(b) || (b >= '0' && b <= '9') || b == '_' || b == '.'
}

// quotedSpans returns [start, end) byte ranges of double-quoted string literals.
func quotedSpans(s string) [][2]int {
	var spans [][2]int
	open := -1
	for i := 0; i < len(s); i++ {
		if s[i] != '"' {
			continue
		}
		if open < 0 {
			open = i
			continue
		}
		if i+1 < len(s) && s[i+1] == '"' { // escaped quote
			i++
			continue
		}
		spans = append(spans, [2]int{open, i + 1})
		open = -1
	}
	if open >= 0 {
		spans = append(spans, [2]int{open, len(s)})
	}
	return spans
}

func inSpans(spans [][2]int, pos int) bool {
	for _, sp := range spans {
		if pos >= sp[0] && pos < sp[1] {
			return true
		}
	}
	return false
}

// offsetFormula moves every relative row reference by delta. Used when a
// formula cell is copied delta rows away from its source.
func offsetFormula(formula string, delta int) string {
	if delta == 0 || formula == "" {
		return formula
	}
	return shiftFormulaRows(formula, func(row int) int { return row + delta })
}

// shiftFormulaFrom moves row references at or below `from` by delta. Used after
// rows are inserted (delta > 0) or removed (delta < 0) at `from`.
func shiftFormulaFrom(formula string, from, delta int) string {
	if delta == 0 || formula == "" {
		return formula
	}
	return shiftFormulaRows(formula, func(row int) int {
		if row >= from {
			return row + delta
		}
		return row
	})
}

// reindexFormulas applies shiftFormulaFrom to every formula cell in rows >= firstRow.
func reindexFormulas(doc Document, firstRow, from, delta int) {
	for r := max(firstRow, 1); r <= doc.RowCount(); r++ {
		for c := 1; c <= doc.ColCount(r); c++ {
			cell := doc.Cell(r, c)
			if cell.Formula != "" {
				cell.Formula = shiftFormulaFrom(cell.Formula, from, delta)
			}
		}
	}
}
