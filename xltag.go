// Package xltag fills xlsx templates that carry textual tags ({name},
// {#list}...{/list}, {@object}...{/object}, {%image}) with values from a
// JSON-like data tree, growing and shrinking rows to match list data while
// keeping merges, conditional formats and formulas consistent.
package xltag

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
)

// Fill processes a template file and writes the populated output to outputPath.
func Fill(templatePath, outputPath string, data any, opts ...Option) error {
	allOpts := append([]Option{WithTemplate(templatePath)}, opts...)
	return NewTemplater(allOpts...).Fill(context.Background(), data, outputPath)
}

// FillBytes processes a template file and returns the populated output as bytes.
func FillBytes(templatePath string, data any, opts ...Option) ([]byte, error) {
	allOpts := append([]Option{WithTemplate(templatePath)}, opts...)
	return NewTemplater(allOpts...).FillBytes(context.Background(), data)
}

// FillReader processes a template from an io.Reader and writes to an io.Writer.
func FillReader(template io.Reader, output io.Writer, data any, opts ...Option) error {
	allOpts := append([]Option{WithTemplateReader(template)}, opts...)
	return NewTemplater(allOpts...).FillWriter(context.Background(), data, output)
}

// Fill processes the template with data and writes to outputPath.
func (t *Templater) Fill(ctx context.Context, data any, outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file %q: %w", outputPath, err)
	}
	defer out.Close()

	if err := t.FillWriter(ctx, data, out); err != nil {
		os.Remove(outputPath)
		return err
	}
	return nil
}

// FillBytes processes the template with data and returns the output as bytes.
func (t *Templater) FillBytes(ctx context.Context, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.FillWriter(ctx, data, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FillWriter processes the template with data and writes to w.
func (t *Templater) FillWriter(ctx context.Context, data any, w io.Writer) error {
	wb, err := t.openTemplate()
	if err != nil {
		return err
	}
	defer wb.Close()

	if err := t.RenderWorkbook(ctx, wb, data); err != nil {
		return err
	}
	if err := wb.Write(w); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// openTemplate opens the template from file path or reader.
func (t *Templater) openTemplate() (*Workbook, error) {
	if t.opts.templateReader != nil {
		return OpenWorkbookReader(t.opts.templateReader)
	}
	if t.opts.templatePath != "" {
		return OpenWorkbook(t.opts.templatePath)
	}
	return nil, fmt.Errorf("%w: use WithTemplate or WithTemplateReader", ErrNoTemplate)
}
