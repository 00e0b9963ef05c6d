package xltag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func people() []any {
	return []any{
		map[string]any{"name": "alice", "age": 30.0},
		map[string]any{"name": "bob", "age": 40.0},
	}
}

func TestBlockLoop_Expands(t *testing.T) {
	ws := newSheet(
		[]string{"H"},
		[]string{"{#people}{name}"},
		[]string{"{age}{/people}"},
		[]string{"F"},
	)

	renderSheet(t, ws, map[string]any{"people": people()})

	assert.Equal(t, [][]string{{"H"}, {"alice"}, {"30"}, {"bob"}, {"40"}, {"F"}}, ws.Values())
	assert.Equal(t, CellNumber, ws.Cell(5, 1).Type)
}

func TestBlockLoop_RowDelta(t *testing.T) {
	for n := 0; n <= 4; n++ {
		items := make([]any, n)
		for i := range items {
			items[i] = map[string]any{"v": float64(i)}
		}
		ws := newSheet(
			[]string{"top"},
			[]string{"{#l}{v}"},
			[]string{""},
			[]string{"{/l}"},
			[]string{"bottom"},
		)

		renderSheet(t, ws, map[string]any{"l": items})

		assert.Equal(t, 5+3*(n-1), ws.RowCount(), "n=%d", n)
		assert.Equal(t, "bottom", cellValue(ws, ws.RowCount(), 1), "n=%d", n)
	}
}

func TestBlockLoop_Empty(t *testing.T) {
	ws := newSheet(
		[]string{"H"},
		[]string{"{#people}{name}"},
		[]string{"{age}{/people}"},
		[]string{"F"},
	)
	ws.SetFormula(4, 2, "A4")
	require.NoError(t, ws.MergeCells(MergeRange{Top: 2, Left: 2, Bottom: 3, Right: 2}))
	ws.SetConditionalFormats([]ConditionalFormat{
		{Ref: "A2", Rules: []ConditionalRule{formulaRule("A2>0")}},
		{Ref: "A4", Rules: []ConditionalRule{formulaRule("A4>0")}},
	})

	renderSheet(t, ws, map[string]any{"people": []any{}})

	assert.Equal(t, 2, ws.RowCount())
	assert.Equal(t, "F", cellValue(ws, 2, 1))
	assert.Equal(t, "A2", ws.Cell(2, 2).Formula)
	assert.Empty(t, ws.Merges())
	assert.Equal(t, []string{"A2"}, refsOf(ws.ConditionalFormats()))
}

func TestBlockLoop_MergesAndFormulas(t *testing.T) {
	ws := newSheet(
		[]string{"{#people}{name}", "{age}"},
		[]string{"{/people}"},
		[]string{"F"},
	)
	require.NoError(t, ws.MergeCells(MergeRange{Top: 1, Left: 3, Bottom: 2, Right: 3}))
	ws.SetFormula(1, 4, "B1*2")
	ws.SetFormula(3, 2, "A3")

	renderSheet(t, ws, map[string]any{"people": people()})

	assert.ElementsMatch(t, []MergeRange{
		{Top: 1, Left: 3, Bottom: 2, Right: 3},
		{Top: 3, Left: 3, Bottom: 4, Right: 3},
	}, ws.Merges())
	assert.Equal(t, "B1*2", ws.Cell(1, 4).Formula)
	assert.Equal(t, "B3*2", ws.Cell(3, 4).Formula)
	assert.Equal(t, "A5", ws.Cell(5, 2).Formula)
	assert.Equal(t, "bob", cellValue(ws, 3, 1))
}

func TestBlockLoop_Siblings(t *testing.T) {
	ws := newSheet(
		[]string{"{#a}{v}"},
		[]string{"{/a}"},
		[]string{"{#b}{w}"},
		[]string{"{/b}"},
	)

	renderSheet(t, ws, map[string]any{
		"a": []any{map[string]any{"v": "1"}, map[string]any{"v": "2"}},
		"b": []any{map[string]any{"w": "x"}},
	})

	assert.Equal(t, [][]string{{"1"}, {""}, {"2"}, {""}, {"x"}, {""}}, ws.Values())
}

func TestBlockLoop_NestedRowLoop(t *testing.T) {
	ws := newSheet(
		[]string{"{#groups}{name}"},
		[]string{"{#members}{m}{/members}"},
		[]string{"{/groups}"},
	)

	renderSheet(t, ws, map[string]any{"groups": []any{
		map[string]any{"name": "g1", "members": []any{
			map[string]any{"m": "a"},
			map[string]any{"m": "b"},
		}},
		map[string]any{"name": "g2", "members": []any{}},
	}})

	assert.Equal(t, [][]string{{"g1"}, {"a"}, {"b"}, {""}, {"g2"}, {""}}, ws.Values())
}

func TestBlockLoop_RootTagsInsideBlock(t *testing.T) {
	ws := newSheet(
		[]string{"{#people}{name}", "{company}"},
		[]string{"{/people}"},
	)

	renderSheet(t, ws, map[string]any{"company": "ACME", "people": people()})

	assert.Equal(t, "ACME", cellValue(ws, 1, 2))
	assert.Equal(t, "ACME", cellValue(ws, 3, 2))
	assert.Equal(t, "bob", cellValue(ws, 3, 1))
}

func TestBlockLoop_Unclosed(t *testing.T) {
	ws := newSheet([]string{"{#people}{name}"}, []string{"x"})

	renderSheet(t, ws, map[string]any{"people": people()})

	assert.Equal(t, 2, ws.RowCount())
	assert.Equal(t, "{#people}{name}", cellValue(ws, 1, 1))
}

func TestBlockLoop_OpenCellWithInlineLoop(t *testing.T) {
	ws := newSheet(
		[]string{"{#people}{#tags}{t},{/}"},
		[]string{"{name}{/people}"},
	)

	renderSheet(t, ws, map[string]any{"people": taggedPeople()})

	assert.Equal(t, [][]string{{"x,y,"}, {"Ann"}, {"z,"}, {"Bo"}}, ws.Values())
}
