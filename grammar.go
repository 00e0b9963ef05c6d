package xltag

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
)

// TagKind identifies the syntactic form of a tag.
type TagKind int

const (
	TagScalar TagKind = iota
	TagImage
	TagScopeOpen
	TagLoopOpen
	TagInlineLoop
	TagClose
)

// String returns the tag kind name used in Describe output.
func (k TagKind) String() string {
	switch k {
	case TagScalar:
		return "scalar"
	case TagImage:
		return "image"
	case TagScopeOpen:
		return "scope"
	case TagLoopOpen:
		return "loop"
	case TagInlineLoop:
		return "inline-loop"
	case TagClose:
		return "close"
	default:
		return "unknown"
	}
}

// Tag is one tag occurrence inside a cell value.
type Tag struct {
	Kind  TagKind
	Name  string // tag name without braces and sigil
	Match string // literal text of the tag, e.g. "{#items}"
	Start int    // byte offset of Match in the value
	End   int    // byte offset just past Match
	Body  string // inline loop body, empty for other kinds
}

// Patterns are compiled once; regexp.Regexp is safe for concurrent use and
// holds no match state between calls.
var (
	scalarTagRegex     = regexp.MustCompile(`\{([^#/%@{}][^{}]*)\}`)
	imageTagRegex      = regexp.MustCompile(`\{%([^{}]+)\}`)
	scopeOpenRegex     = regexp.MustCompile(`\{@([^{}]+)\}`)
	loopOpenRegex      = regexp.MustCompile(`\{#([^{}]+)\}`)
	inlineLoopTagRegex = regexp.MustCompile(`(?s)(\{#([^{}]+)\})((?:[^{]|\{[^#])+)(\{/\})`)
	closeTagRegex      = regexp.MustCompile(`\{/([^{}]*)\}`)
)

// FindScalarTags returns every {name} tag in value, left to right.
func FindScalarTags(value string) []Tag {
	return findAll(scalarTagRegex, TagScalar, value)
}

// FindImageTags returns every {%name} tag in value, left to right.
func FindImageTags(value string) []Tag {
	return findAll(imageTagRegex, TagImage, value)
}

// FindScopeOpen returns the first {@name} tag in value.
func FindScopeOpen(value string) (Tag, bool) {
	return findFirst(scopeOpenRegex, TagScopeOpen, value)
}

// FindLoopOpen returns the first {#name} tag in value.
func FindLoopOpen(value string) (Tag, bool) {
	return findFirst(loopOpenRegex, TagLoopOpen, value)
}

// FindInlineLoop returns the first {#name}body{/} construct in value. The body
// is greedy, so it runs up to the last {/} in the value, and never contains a
// {# tag: in "{#rows}{#tags}{t}{/}" the inline loop is {#tags}.
func FindInlineLoop(value string) (Tag, bool) {
	m := inlineLoopTagRegex.FindStringSubmatchIndex(value)
	if m == nil {
		return Tag{}, false
	}
	return Tag{
		Kind:  TagInlineLoop,
		Name:  value[m[4]:m[5]],
		Match: value[m[0]:m[1]],
		Start: m[0],
		End:   m[1],
		Body:  value[m[6]:m[7]],
	}, true
}

// FindCloseTag returns the first literal {/name} in value. Matching is case-sensitive.
func FindCloseTag(value, name string) (Tag, bool) {
	lit := CloseTag(name)
	i := strings.Index(value, lit)
	if i < 0 {
		return Tag{}, false
	}
	return Tag{Kind: TagClose, Name: name, Match: lit, Start: i, End: i + len(lit)}, true
}

// FindAllTags lists every tag in value ordered by position. An inline loop is
// reported as one TagInlineLoop; its body is not scanned. A bare {/} outside an
// inline loop is reported as a TagClose with an empty name.
func FindAllTags(value string) []Tag {
	var tags []Tag
	scan := func(s string, base int) {
		for _, group := range [][]Tag{
			FindScalarTags(s),
			FindImageTags(s),
			findAll(scopeOpenRegex, TagScopeOpen, s),
			findAll(loopOpenRegex, TagLoopOpen, s),
			findAll(closeTagRegex, TagClose, s),
		} {
			for _, t := range group {
				t.Start += base
				t.End += base
				tags = append(tags, t)
			}
		}
	}

	if inline, ok := FindInlineLoop(value); ok {
		scan(value[:inline.Start], 0)
		tags = append(tags, inline)
		scan(value[inline.End:], inline.End)
	} else {
		scan(value, 0)
	}
	slices.SortFunc(tags, func(a, b Tag) int { return cmp.Compare(a.Start, b.Start) })
	return tags
}

// CloseTag returns the closing tag text for name.
func CloseTag(name string) string {
	return "{/" + name + "}"
}

// FindLoopOpens returns every {#name} tag in value, left to right.
func FindLoopOpens(value string) []Tag {
	return findAll(loopOpenRegex, TagLoopOpen, value)
}

// stripFirst removes the first occurrence of lit from value.
func stripFirst(value, lit string) string {
	return strings.Replace(value, lit, "", 1)
}

func findAll(re *regexp.Regexp, kind TagKind, value string) []Tag {
	matches := re.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return nil
	}
	tags := make([]Tag, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, Tag{
			Kind:  kind,
			Name:  value[m[2]:m[3]],
			Match: value[m[0]:m[1]],
			Start: m[0],
			End:   m[1],
		})
	}
	return tags
}

func findFirst(re *regexp.Regexp, kind TagKind, value string) (Tag, bool) {
	m := re.FindStringSubmatchIndex(value)
	if m == nil {
		return Tag{}, false
	}
	return Tag{
		Kind:  kind,
		Name:  value[m[2]:m[3]],
		Match: value[m[0]:m[1]],
		Start: m[0],
		End:   m[1],
	}, true
}
