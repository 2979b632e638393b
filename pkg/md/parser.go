// parser.go defines shared types for storage-format macro parsing.
package md

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// MacroParser turns a storage-format document into segments of text and macros.
type MacroParser interface {
	Parse(storage string) (*ParseResult, error)
}

// SegmentType indicates whether a segment is text or a macro.
type SegmentType int

const (
	SegmentText  SegmentType = iota // plain text/HTML content
	SegmentMacro                    // parsed macro occurrence
)

// Segment represents either text content or a parsed macro.
type Segment struct {
	Type  SegmentType
	Text  string           // set when Type == SegmentText
	Macro *MacroOccurrence // set when Type == SegmentMacro
}

// ParseResult contains the parsed output: a sequence of segments
// that alternate between text content and top-level macros.
// Concatenating every segment's text (macros contribute their Span)
// reproduces the input byte for byte.
type ParseResult struct {
	Segments []Segment
	Warnings []string // any warnings generated during parsing

	logger *log.Logger
}

func newParseResult(logger *log.Logger) *ParseResult {
	return &ParseResult{logger: loggerOrDiscard(logger)}
}

// AddTextSegment appends a text segment, merging with previous text if possible.
func (pr *ParseResult) AddTextSegment(text string) {
	if text == "" {
		return
	}
	// Merge adjacent text segments
	if len(pr.Segments) > 0 && pr.Segments[len(pr.Segments)-1].Type == SegmentText {
		pr.Segments[len(pr.Segments)-1].Text += text
		return
	}
	pr.Segments = append(pr.Segments, Segment{
		Type: SegmentText,
		Text: text,
	})
}

// AddMacroSegment appends a macro segment.
func (pr *ParseResult) AddMacroSegment(macro *MacroOccurrence) {
	pr.Segments = append(pr.Segments, Segment{
		Type:  SegmentMacro,
		Macro: macro,
	})
}

// AddWarning logs a warning and stores it in the result.
func (pr *ParseResult) AddWarning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	pr.Warnings = append(pr.Warnings, msg)
	if pr.logger != nil {
		pr.logger.Printf("WARN: %s", msg)
	}
}

// GetMacros returns the top-level macros in document order.
func (pr *ParseResult) GetMacros() []*MacroOccurrence {
	var macros []*MacroOccurrence
	for _, seg := range pr.Segments {
		if seg.Type == SegmentMacro && seg.Macro != nil {
			macros = append(macros, seg.Macro)
		}
	}
	return macros
}

// AllMacros returns every macro, nested ones included, in document order.
func (pr *ParseResult) AllMacros() []*MacroOccurrence {
	var all []*MacroOccurrence
	var walk func(list []*MacroOccurrence)
	walk = func(list []*MacroOccurrence) {
		for _, m := range list {
			all = append(all, m)
			walk(m.Children)
		}
	}
	walk(pr.GetMacros())
	return all
}

// ResolvableMacros returns the outermost recognised macros in document order.
// Recognised macros are not descended into; their nested macros are handled
// by the extractor. Unrecognised macros (layouts, sections, columns) are
// descended into so the macros they wrap are still found.
func (pr *ParseResult) ResolvableMacros() []*MacroOccurrence {
	return outermostRecognised(pr.GetMacros())
}

// Len returns the total number of macros, nested ones included.
func (pr *ParseResult) Len() int {
	return len(pr.AllMacros())
}

// ReplaceMacros rebuilds the storage document, asking replace for the
// substitute of every macro. Replacement is by position in the parse tree,
// so identical spans are never confused. When replace returns false for an
// unrecognised wrapper macro, its children are offered in turn and the
// wrapper's own markup is kept around them.
func (pr *ParseResult) ReplaceMacros(replace func(m *MacroOccurrence) (string, bool)) string {
	var sb strings.Builder
	for _, seg := range pr.Segments {
		if seg.Type == SegmentText {
			sb.WriteString(seg.Text)
			continue
		}
		sb.WriteString(replaceInSpan(seg.Macro, replace))
	}
	return sb.String()
}

func replaceInSpan(m *MacroOccurrence, replace func(m *MacroOccurrence) (string, bool)) string {
	if out, ok := replace(m); ok {
		return out
	}
	if len(m.Children) == 0 {
		return m.Span
	}

	var sb strings.Builder
	cursor := 0
	for _, child := range m.Children {
		start := child.Offset - m.Offset
		if start < cursor || start+len(child.Span) > len(m.Span) {
			continue
		}
		sb.WriteString(m.Span[cursor:start])
		sb.WriteString(replaceInSpan(child, replace))
		cursor = start + len(child.Span)
	}
	sb.WriteString(m.Span[cursor:])
	return sb.String()
}

// finalize assigns document-order indexes to every macro.
func (pr *ParseResult) finalize() *ParseResult {
	for i, m := range pr.AllMacros() {
		m.Index = i
	}
	return pr
}

// AutoParser parses with the structural strategy and falls back to the
// pattern strategy when the structural parse fails outright.
type AutoParser struct {
	Primary  MacroParser
	Fallback MacroParser
}

// NewAutoParser returns the default DOM-then-pattern parser.
func NewAutoParser(logger *log.Logger) *AutoParser {
	return &AutoParser{
		Primary:  &DOMParser{Logger: logger},
		Fallback: &PatternParser{Logger: logger},
	}
}

// Parse implements MacroParser.
func (a *AutoParser) Parse(storage string) (*ParseResult, error) {
	result, err := a.Primary.Parse(storage)
	if err == nil {
		return result, nil
	}
	if a.Fallback == nil {
		return nil, err
	}

	result, fallbackErr := a.Fallback.Parse(storage)
	if fallbackErr != nil {
		return nil, fmt.Errorf("failed to parse storage format: %w", fallbackErr)
	}
	result.AddWarning("structural parse failed, used pattern parser: %v", err)
	return result, nil
}

func loggerOrDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return logger
}
