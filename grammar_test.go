package xltag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagNames(tags []Tag) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names
}

func TestFindScalarTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, tagNames(FindScalarTags("{a}-{b}")))
	assert.Equal(t, []string{"x"}, tagNames(FindScalarTags("{x}")))
	assert.Equal(t, []string{"first name"}, tagNames(FindScalarTags("Hi {first name}!")))
	assert.Empty(t, FindScalarTags("{#a}{/a}{%p}{@s}{/}"))
	assert.Empty(t, FindScalarTags("no tags, {} either"))
}

func TestFindScalarTags_Offsets(t *testing.T) {
	tags := FindScalarTags("ab{c}d")
	require.Len(t, tags, 1)
	assert.Equal(t, TagScalar, tags[0].Kind)
	assert.Equal(t, "{c}", tags[0].Match)
	assert.Equal(t, 2, tags[0].Start)
	assert.Equal(t, 5, tags[0].End)
}

func TestFindImageTags(t *testing.T) {
	tags := FindImageTags("{%logo} and {%photo}")
	assert.Equal(t, []string{"logo", "photo"}, tagNames(tags))
	assert.Equal(t, TagImage, tags[0].Kind)
}

func TestFindOpenTags(t *testing.T) {
	scope, ok := FindScopeOpen("x{@customer}{name}{@other}")
	require.True(t, ok)
	assert.Equal(t, "customer", scope.Name)
	assert.Equal(t, "{@customer}", scope.Match)

	loop, ok := FindLoopOpen("{#rows}{#cols}")
	require.True(t, ok)
	assert.Equal(t, "rows", loop.Name)
	assert.Equal(t, 0, loop.Start)

	_, ok = FindLoopOpen("{rows}")
	assert.False(t, ok)
}

func TestFindInlineLoop(t *testing.T) {
	loop, ok := FindInlineLoop("{@outer}{#list}{a}--{b};{/}{/outer}")
	require.True(t, ok)
	assert.Equal(t, TagInlineLoop, loop.Kind)
	assert.Equal(t, "list", loop.Name)
	assert.Equal(t, "{a}--{b};", loop.Body)
	assert.Equal(t, "{#list}{a}--{b};{/}", loop.Match)
	assert.Equal(t, len("{@outer}"), loop.Start)

	_, ok = FindInlineLoop("{#list}{a}{/list}")
	assert.False(t, ok)
}

func TestFindInlineLoop_SkipsEnclosingLoopOpen(t *testing.T) {
	loop, ok := FindInlineLoop("{#people}{#tags}{t},{/}")
	require.True(t, ok)
	assert.Equal(t, "tags", loop.Name)
	assert.Equal(t, "{t},", loop.Body)
	assert.Equal(t, len("{#people}"), loop.Start)
}

func TestFindLoopOpens(t *testing.T) {
	opens := FindLoopOpens("{#people}{#tags}{t},{/}")
	require.Len(t, opens, 2)
	assert.Equal(t, "people", opens[0].Name)
	assert.Equal(t, "tags", opens[1].Name)
}

func TestFindInlineLoop_Greedy(t *testing.T) {
	loop, ok := FindInlineLoop("{#a}x{/}y{/}")
	require.True(t, ok)
	assert.Equal(t, "x{/}y", loop.Body)
}

func TestFindCloseTag(t *testing.T) {
	tag, ok := FindCloseTag("x{/items}", "items")
	require.True(t, ok)
	assert.Equal(t, 1, tag.Start)
	assert.Equal(t, "{/items}", tag.Match)

	_, ok = FindCloseTag("x{/Items}", "items")
	assert.False(t, ok, "close tags are case-sensitive")

	_, ok = FindCloseTag("{/items2}", "items")
	assert.False(t, ok)
}

func TestFindAllTags(t *testing.T) {
	tags := FindAllTags("{@a}{x}{/a}")
	require.Len(t, tags, 3)
	assert.Equal(t, []TagKind{TagScopeOpen, TagScalar, TagClose},
		[]TagKind{tags[0].Kind, tags[1].Kind, tags[2].Kind})

	tags = FindAllTags("{t}: {#l}{n},{/} {%img}")
	require.Len(t, tags, 3)
	assert.Equal(t, TagScalar, tags[0].Kind)
	assert.Equal(t, TagInlineLoop, tags[1].Kind)
	assert.Equal(t, TagImage, tags[2].Kind)
	assert.Equal(t, "img", tags[2].Name)
}

func TestTagKind_String(t *testing.T) {
	assert.Equal(t, "scalar", TagScalar.String())
	assert.Equal(t, "inline-loop", TagInlineLoop.String())
	assert.Equal(t, "close", TagClose.String())
}

func TestCloseTag(t *testing.T) {
	assert.Equal(t, "{/orders}", CloseTag("orders"))
	assert.Equal(t, "{/}", CloseTag(""))
}
