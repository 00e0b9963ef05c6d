package xltag

import "strings"

// HyperlinkValue represents a clickable hyperlink in a cell.
// When a cell consisting of a single scalar tag resolves to this type, the
// workbook writer stores the display text and attaches the link.
type HyperlinkValue struct {
	URL     string
	Display string
}

// String returns the display text for the hyperlink.
func (h HyperlinkValue) String() string {
	if h.Display != "" {
		return h.Display
	}
	return h.URL
}

// Hyperlink creates a HyperlinkValue for use as template data.
// Usage: data["site"] = xltag.Hyperlink("https://example.com", "Example")
func Hyperlink(url, display string) HyperlinkValue {
	return HyperlinkValue{URL: url, Display: display}
}

// linkType returns the excelize link type: "Location" for in-workbook
// targets like "Sheet2!A1", "External" for everything else.
func (h HyperlinkValue) linkType() string {
	if strings.Contains(h.URL, "!") && !strings.Contains(h.URL, "://") {
		return "Location"
	}
	return "External"
}
