package xltag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func formulaRule(formula string) ConditionalRule {
	return ConditionalRule{
		Formulae: []string{formula},
		Options:  excelize.ConditionalFormatOptions{Type: "formula", Criteria: formula},
	}
}

func TestRowCopier_CopyRows(t *testing.T) {
	ws := newSheet(
		[]string{"hdr"},
		[]string{"{#items}"},
		[]string{"{/items}"},
		[]string{"total"},
	)
	ws.SetFormula(2, 2, "A2*2")
	ws.Cell(2, 1).Style = 7
	ws.SetRowHeight(3, 22)
	ws.SetFormula(4, 2, `A4&"!"`)
	require.NoError(t, ws.MergeCells(MergeRange{Top: 2, Left: 3, Bottom: 3, Right: 4}))
	ws.SetConditionalFormats([]ConditionalFormat{
		{Ref: "A2:B2", Rules: []ConditionalRule{formulaRule("$A2>0")}},
	})

	rc := newRowCopier(ws, quietLogger())
	require.NoError(t, rc.CopyRows(2, 3, 4))

	assert.Equal(t, 6, ws.RowCount())
	assert.Equal(t, "{#items}", cellValue(ws, 4, 1))
	assert.Equal(t, "{/items}", cellValue(ws, 5, 1))
	assert.Equal(t, "total", cellValue(ws, 6, 1))
	assert.Equal(t, 7, ws.Cell(4, 1).Style)
	assert.Equal(t, 22.0, ws.RowHeight(5))

	assert.Equal(t, "A2*2", ws.Cell(2, 2).Formula)
	assert.Equal(t, "A4*2", ws.Cell(4, 2).Formula)
	assert.Equal(t, `A6&"!"`, ws.Cell(6, 2).Formula)

	assert.ElementsMatch(t, []MergeRange{
		{Top: 2, Left: 3, Bottom: 3, Right: 4},
		{Top: 4, Left: 3, Bottom: 5, Right: 4},
	}, ws.Merges())

	cfs := ws.ConditionalFormats()
	require.Len(t, cfs, 2)
	assert.Equal(t, "A2:B2", cfs[0].Ref)
	assert.Equal(t, []string{"$A2>0"}, cfs[0].Rules[0].Formulae)
	assert.Equal(t, "A4:B4", cfs[1].Ref)
	assert.Equal(t, []string{"$A4>0"}, cfs[1].Rules[0].Formulae)
}

func TestRowCopier_CopyRowsMovesFormatsBelow(t *testing.T) {
	ws := newSheet([]string{"a"}, []string{"b"}, []string{"c"})
	ws.SetConditionalFormats([]ConditionalFormat{
		{Ref: "A3", Rules: []ConditionalRule{formulaRule("A3>1")}},
		{Ref: "B1:B3", Rules: []ConditionalRule{formulaRule("B1>0")}},
	})

	rc := newRowCopier(ws, quietLogger())
	require.NoError(t, rc.CopyRows(1, 1, 2))

	cfs := ws.ConditionalFormats()
	require.Len(t, cfs, 2)
	assert.Equal(t, "A4", cfs[0].Ref)
	assert.Equal(t, []string{"A4>1"}, cfs[0].Rules[0].Formulae)
	assert.Equal(t, "B1:B4", cfs[1].Ref, "ranges straddling the insertion grow")
	assert.Equal(t, []string{"B1>0"}, cfs[1].Rules[0].Formulae)
}

func TestRowCopier_CopyRowsShiftsAbsoluteRows(t *testing.T) {
	ws := newSheet([]string{"h"}, []string{"a"}, []string{"b"}, []string{"c"}, []string{"d"})
	ws.SetConditionalFormats([]ConditionalFormat{
		{Ref: "A2", Rules: []ConditionalRule{formulaRule("$A$2>1")}},
		{Ref: "A5", Rules: []ConditionalRule{formulaRule("$A$5>1")}},
	})

	rc := newRowCopier(ws, quietLogger())
	require.NoError(t, rc.CopyRows(2, 3, 4))

	cfs := ws.ConditionalFormats()
	require.Len(t, cfs, 3)
	assert.Equal(t, "A2", cfs[0].Ref)
	assert.Equal(t, []string{"$A$2>1"}, cfs[0].Rules[0].Formulae)
	assert.Equal(t, "A4", cfs[1].Ref)
	assert.Equal(t, []string{"$A$4>1"}, cfs[1].Rules[0].Formulae)
	assert.Equal(t, "A7", cfs[2].Ref)
	assert.Equal(t, []string{"$A$7>1"}, cfs[2].Rules[0].Formulae)
}

func TestRowCopier_TargetInsideSource(t *testing.T) {
	ws := newSheet([]string{"a"}, []string{"b"}, []string{"c"})
	rc := newRowCopier(ws, quietLogger())
	assert.Error(t, rc.CopyRows(1, 3, 2))
	assert.Error(t, rc.CopyRows(0, 1, 2))
	assert.Equal(t, 3, ws.RowCount())
}

func TestRowCopier_CopyRowsAbove(t *testing.T) {
	ws := newSheet([]string{"a"}, []string{"b"})
	ws.SetFormula(2, 2, "A2+1")

	rc := newRowCopier(ws, quietLogger())
	require.NoError(t, rc.CopyRows(2, 2, 1))

	assert.Equal(t, [][]string{{"b", ""}, {"a"}, {"b", ""}}, ws.Values())
	assert.Equal(t, "A1+1", ws.Cell(1, 2).Formula)
	assert.Equal(t, "A3+1", ws.Cell(3, 2).Formula)
}

func TestRowCopier_DuplicateRow(t *testing.T) {
	ws := newSheet([]string{"{#x}"}, []string{"after"})
	require.NoError(t, ws.MergeCells(MergeRange{Top: 1, Left: 2, Bottom: 1, Right: 3}))
	ws.SetRowHeight(1, 20)
	ws.SetConditionalFormats([]ConditionalFormat{
		{Ref: "A1", Rules: []ConditionalRule{formulaRule("A1>0")}},
	})

	rc := newRowCopier(ws, quietLogger())
	require.NoError(t, rc.DuplicateRow(1, 2))

	assert.Equal(t, 4, ws.RowCount())
	for row := 1; row <= 3; row++ {
		assert.Equal(t, "{#x}", cellValue(ws, row, 1))
		assert.Equal(t, 20.0, ws.RowHeight(row))
	}
	assert.Equal(t, "after", cellValue(ws, 4, 1))
	assert.ElementsMatch(t, []MergeRange{
		{Top: 1, Left: 2, Bottom: 1, Right: 3},
		{Top: 2, Left: 2, Bottom: 2, Right: 3},
		{Top: 3, Left: 2, Bottom: 3, Right: 3},
	}, ws.Merges())

	// conditional formats are left to the offsetter
	cfs := ws.ConditionalFormats()
	require.Len(t, cfs, 1)
	assert.Equal(t, "A1", cfs[0].Ref)
}

func TestRowCopier_RemoveRows(t *testing.T) {
	ws := newSheet([]string{"1"}, []string{"2"}, []string{"3"}, []string{"4"})
	ws.SetFormula(4, 2, "A3+A1")
	require.NoError(t, ws.MergeCells(MergeRange{Top: 2, Left: 2, Bottom: 2, Right: 3}))

	rc := newRowCopier(ws, quietLogger())
	rc.RemoveRows(2, 1)

	assert.Equal(t, 3, ws.RowCount())
	assert.Equal(t, "3", cellValue(ws, 2, 1))
	assert.Equal(t, "A2+A1", ws.Cell(3, 2).Formula)
	assert.Empty(t, ws.Merges())

	rc.RemoveRows(1, 0)
	assert.Equal(t, 3, ws.RowCount())
}
