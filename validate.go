package xltag

import (
	"fmt"
)

// Severity indicates the severity of a validation issue.
type Severity int

const (
	SeverityError   Severity = iota // Tag structure the engine cannot resolve
	SeverityWarning                 // Template may produce unexpected results
)

// ValidationIssue represents a single problem found during template validation.
type ValidationIssue struct {
	Severity Severity
	CellRef  CellRef
	Message  string
}

// String formats the issue as "[ERROR] Sheet1!A2: message" or "[WARN] ...".
func (v ValidationIssue) String() string {
	sev := "ERROR"
	if v.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s", sev, v.CellRef, v.Message)
}

// Validate checks a template for tag structure problems without requiring
// data. A non-nil error indicates the template could not be opened at all.
func Validate(templatePath string, opts ...Option) ([]ValidationIssue, error) {
	allOpts := append([]Option{WithTemplate(templatePath)}, opts...)
	return NewTemplater(allOpts...).Validate()
}

// Validate opens the template and checks the selected sheets (every sheet
// when none were selected).
func (t *Templater) Validate() ([]ValidationIssue, error) {
	wb, err := t.openTemplate()
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	names := t.opts.sheets
	if len(names) == 0 {
		names = wb.SheetNames()
	}
	var issues []ValidationIssue
	for _, name := range names {
		ws, err := wb.Sheet(name)
		if err != nil {
			return nil, err
		}
		issues = append(issues, ValidateDocument(ws)...)
	}
	return issues, nil
}

// pendingOpen is an open tag waiting for its close tag.
type pendingOpen struct {
	info TagInfo
}

// ValidateDocument checks the tag structure of one worksheet: every scope and
// loop must be closed, close tags must match an open tag, and loops must not
// share a row with another loop.
func ValidateDocument(doc Document) []ValidationIssue {
	var (
		issues  []ValidationIssue
		pending []pendingOpen
	)
	loopsPerRow := make(map[int]int)

	for _, info := range ListTags(doc) {
		ref := info.Cell
		tag := info.Tag

		if doc.IsMergedSlave(ref.Row, ref.Col) {
			issues = append(issues, ValidationIssue{
				Severity: SeverityWarning,
				CellRef:  ref,
				Message:  fmt.Sprintf("tag %s sits in a merged cell that is not the top-left cell and is ignored", tag.Match),
			})
			continue
		}

		switch tag.Kind {
		case TagScopeOpen:
			pending = append(pending, pendingOpen{info: info})
		case TagLoopOpen:
			pending = append(pending, pendingOpen{info: info})
			loopsPerRow[ref.Row]++
			if loopsPerRow[ref.Row] == 2 {
				issues = append(issues, ValidationIssue{
					Severity: SeverityWarning,
					CellRef:  ref,
					Message:  fmt.Sprintf("row %d has more than one loop; only the first is expanded", ref.Row),
				})
			}
		case TagClose:
			if tag.Name == "" {
				issues = append(issues, ValidationIssue{
					Severity: SeverityWarning,
					CellRef:  ref,
					Message:  "{/} closes an inline loop but no {#name} precedes it in this cell",
				})
				continue
			}
			i := lastPending(pending, tag.Name)
			if i < 0 {
				issues = append(issues, ValidationIssue{
					Severity: SeverityWarning,
					CellRef:  ref,
					Message:  fmt.Sprintf("close tag %s has no matching open tag", tag.Match),
				})
				continue
			}
			pending = append(pending[:i], pending[i+1:]...)
		}
	}

	for _, p := range pending {
		kind := "scope"
		if p.info.Tag.Kind == TagLoopOpen {
			kind = "loop"
		}
		issues = append(issues, ValidationIssue{
			Severity: SeverityError,
			CellRef:  p.info.Cell,
			Message:  fmt.Sprintf("%s %s is never closed with %s", kind, p.info.Tag.Match, CloseTag(p.info.Tag.Name)),
		})
	}
	return issues
}

func lastPending(pending []pendingOpen, name string) int {
	for i := len(pending) - 1; i >= 0; i-- {
		if pending[i].info.Tag.Name == name {
			return i
		}
	}
	return -1
}
