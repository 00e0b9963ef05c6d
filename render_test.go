package xltag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoice struct {
	Number   string     `json:"number"`
	Customer invoiceTo  `json:"customer"`
	Lines    []lineItem `json:"lines"`
	Tags     []string   `json:"tags"`
}

type invoiceTo struct {
	Name string `json:"name"`
	City string `json:"city"`
}

type lineItem struct {
	Product string  `json:"product"`
	Qty     int     `json:"qty"`
	Price   float64 `json:"price"`
}

func TestRender_AllPasses(t *testing.T) {
	img := tinyPNG(t, 8, 8)
	ws := newSheet(
		[]string{"Invoice {number}", "{%logo}"},
		[]string{"{@customer}{name}", "{city}{/customer}"},
		[]string{"{#lines}{product}", "{qty}", "{price}{/lines}"},
		[]string{"{#tags}{t}|{/}"},
	)

	data := map[string]any{
		"number":   "INV-7",
		"logo":     "http://example.com/logo.png",
		"customer": map[string]any{"name": "Ada", "city": "London"},
		"lines": []any{
			map[string]any{"product": "pen", "qty": 2, "price": 1.5},
			map[string]any{"product": "ink", "qty": 1, "price": 7.0},
		},
		"tags": []any{map[string]any{"t": "a"}, map[string]any{"t": "b"}},
	}
	renderSheet(t, ws, data, WithImageFetcher(staticFetcher(img, nil)))

	assert.Equal(t, [][]string{
		{"Invoice INV-7", ""},
		{"Ada", "London"},
		{"pen", "2", "1.5"},
		{"ink", "1", "7"},
		{"a|b|"},
	}, ws.Values())
	assert.Equal(t, 2, ws.Cell(3, 2).Typed)
	require.Len(t, ws.Images(), 1)
}

func TestRender_StructData(t *testing.T) {
	ws := newSheet(
		[]string{"{number}", "{@customer}{name}{/customer}"},
		[]string{"{#lines}{product}", "{qty}{/lines}"},
	)

	renderSheet(t, ws, invoice{
		Number:   "INV-8",
		Customer: invoiceTo{Name: "Grace"},
		Lines:    []lineItem{{Product: "a", Qty: 1}, {Product: "b", Qty: 2}},
	})

	assert.Equal(t, [][]string{{"INV-8", "Grace"}, {"a", "1"}, {"b", "2"}}, ws.Values())
}

func TestRender_NoTags(t *testing.T) {
	ws := newSheet([]string{"plain", "text"}, []string{"", "more"})
	before := ws.Values()

	renderSheet(t, ws, map[string]any{"x": 1})

	assert.Equal(t, before, ws.Values())
}

func TestRender_MissingKeysLeaveTags(t *testing.T) {
	ws := newSheet([]string{"{a}", "{%b}", "x{c}y"})

	renderSheet(t, ws, map[string]any{})

	assert.Equal(t, [][]string{{"{a}", "{%b}", "x{c}y"}}, ws.Values())
}

func TestRender_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ws := newSheet([]string{"{a}"})
	err := Render(ctx, ws, map[string]any{"a": 1}, WithLogger(quietLogger()))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "{a}", cellValue(ws, 1, 1))
}

func TestTemplater_Reusable(t *testing.T) {
	tpl := NewTemplater(WithLogger(quietLogger()))
	for _, name := range []string{"one", "two"} {
		ws := newSheet([]string{"{#l}{n}{/l}"})
		require.NoError(t, tpl.Render(context.Background(), ws, map[string]any{
			"l": []any{map[string]any{"n": name}, map[string]any{"n": name}},
		}))
		assert.Equal(t, [][]string{{name}, {name}}, ws.Values())
	}
}
