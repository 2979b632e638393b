// Package view renders command output as tables, JSON or tab-separated text.
package view

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Format is an --output value.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatPlain Format = "plain"
)

// ValidFormats returns the accepted --output values.
func ValidFormats() []string {
	return []string{string(FormatTable), string(FormatJSON), string(FormatPlain)}
}

// ValidateFormat rejects unknown output formats. Empty means table.
func ValidateFormat(format string) error {
	if format == "" {
		return nil
	}
	for _, f := range ValidFormats() {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid output format %q (valid: %s)", format, strings.Join(ValidFormats(), ", "))
}

// Renderer writes command output in one format.
type Renderer struct {
	w      io.Writer
	format Format
}

// NewRenderer returns a renderer writing to w, or stdout when w is nil.
// noColor disables color globally, which also covers --no-color for
// messages printed outside the renderer.
func NewRenderer(w io.Writer, format Format, noColor bool) *Renderer {
	if noColor {
		color.NoColor = true
	}
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = FormatTable
	}
	return &Renderer{w: w, format: format}
}

// Format returns the renderer's output format.
func (r *Renderer) Format() Format {
	return r.format
}

// RenderTable prints rows under headers. JSON output becomes an array of
// objects keyed by the lowercased header; plain output drops the headers
// and joins cells with tabs.
func (r *Renderer) RenderTable(headers []string, rows [][]string) error {
	switch r.format {
	case FormatJSON:
		items := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			item := make(map[string]string, len(headers))
			for i, h := range headers {
				if i < len(row) {
					item[strings.ToLower(h)] = row[i]
				}
			}
			items = append(items, item)
		}
		return r.RenderJSON(items)
	case FormatPlain:
		for _, row := range rows {
			fmt.Fprintln(r.w, strings.Join(row, "\t"))
		}
		return nil
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], utf8.RuneCountInString(row[i]))
		}
	}

	color.New(color.Bold).Fprintln(r.w, padRow(headers, widths))
	for _, row := range rows {
		fmt.Fprintln(r.w, padRow(row, widths))
	}
	return nil
}

// padRow joins cells with two spaces, padding all but the last cell.
func padRow(cells []string, widths []int) string {
	var sb strings.Builder
	for i, cell := range cells {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(cell)
		if i < len(cells)-1 && i < len(widths) {
			sb.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)))
		}
	}
	return sb.String()
}

// RenderJSON prints v as indented JSON.
func (r *Renderer) RenderJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(r.w, string(data))
	return nil
}

// RenderText prints text followed by a newline.
func (r *Renderer) RenderText(text string) {
	fmt.Fprintln(r.w, text)
}

// Notice prints a dimmed hint for humans. It is silent for json and plain
// output so scripts never see it.
func (r *Renderer) Notice(format string, args ...any) {
	if r.format != FormatTable {
		return
	}
	color.New(color.Faint).Fprintf(r.w, format+"\n", args...)
}

// Success prints a green check line.
func (r *Renderer) Success(msg string) {
	color.New(color.FgGreen).Fprintln(r.w, "✓ "+msg)
}

// Warning prints a yellow bang line.
func (r *Renderer) Warning(msg string) {
	color.New(color.FgYellow).Fprintln(r.w, "! "+msg)
}

// Error prints a red cross line.
func (r *Renderer) Error(msg string) {
	color.New(color.FgRed).Fprintln(r.w, "✗ "+msg)
}

// Truncate shortens s to at most maxLen runes, ending in "..." when cut.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
