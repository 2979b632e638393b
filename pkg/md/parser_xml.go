// parser_xml.go parses Confluence storage XML into macro trees using the
// pattern tokenizer. It needs no XML parser and tolerates markup that a
// structural parse rejects.
package md

import (
	"html"
	"log"
	"strings"
)

// PatternParser is the regex-based MacroParser strategy.
type PatternParser struct {
	Logger *log.Logger
}

// Parse implements MacroParser.
func (p *PatternParser) Parse(storage string) (*ParseResult, error) {
	return ParseConfluenceXML(storage, p.Logger), nil
}

// xmlStackFrame tracks parsing state for nested XML macros.
type xmlStackFrame struct {
	node       *MacroOccurrence
	tokenIndex int // index of the open token, for recovery
	openEnd    int
	inBody     bool
	bodyKind   BodyKind
	bodyStart  int
	plain      strings.Builder
	skip       bool
}

// xmlParseState is the state of one ParseConfluenceXML call.
type xmlParseState struct {
	input  string
	tokens []XMLToken
	stack  []*xmlStackFrame
	last   int // end of the last top-level segment written
	result *ParseResult
}

// ParseConfluenceXML parses Confluence storage format XML and returns a ParseResult.
// Input: XHTML with <ac:structured-macro> elements (or legacy macro elements)
// Output: segments of text/HTML and macro trees
func ParseConfluenceXML(input string, logger *log.Logger) *ParseResult {
	st := &xmlParseState{
		input:  input,
		tokens: TokenizeConfluenceXML(input, MacroTagNames(input)),
		result: newParseResult(logger),
	}

	for from := 0; from < len(st.tokens); {
		st.stack = nil
		st.run(from)
		if len(st.stack) == 0 {
			break
		}

		// Unclosed macros: keep the outermost open tag as text and rescan
		// everything after it, so valid macros inside are still found.
		bottom := st.stack[0]
		st.result.AddWarning("unclosed macro %q at position %d", bottom.node.Name, bottom.node.Offset)
		st.result.AddTextSegment(input[st.last:bottom.openEnd])
		st.last = bottom.openEnd
		from = bottom.tokenIndex + 1
	}

	if st.last < len(input) {
		st.result.AddTextSegment(input[st.last:])
	}

	return st.result.finalize()
}

// run consumes tokens from index from. Frames still open at the end are
// left on the stack.
func (st *xmlParseState) run(from int) {
	input, result := st.input, st.result

	for i := from; i < len(st.tokens); i++ {
		token := st.tokens[i]
		var top *xmlStackFrame
		if len(st.stack) > 0 {
			top = st.stack[len(st.stack)-1]
		}
		switch token.Type {
		case XMLTokenText:
			if top != nil && top.inBody && top.bodyKind == BodyPlainText {
				top.plain.WriteString(html.UnescapeString(token.Text))
			}

		case XMLTokenCDATA:
			if top != nil && top.inBody && top.bodyKind == BodyPlainText {
				top.plain.WriteString(token.Text)
			}

		case XMLTokenOpenTag:
			if top == nil && token.Position > st.last {
				result.AddTextSegment(input[st.last:token.Position])
				st.last = token.Position
			}
			frame := &xmlStackFrame{
				node: &MacroOccurrence{
					Name:       token.MacroName,
					Parameters: make(map[string]string),
					MacroID:    token.MacroID,
					Offset:     token.Position,
				},
				tokenIndex: i,
				openEnd:    token.End,
			}
			if token.MacroName == "" {
				result.AddWarning("macro without a name at position %d", token.Position)
				frame.skip = true
			}
			st.stack = append(st.stack, frame)

		case XMLTokenParameter:
			// Parameters inside a body belong to nested macros, which have their own frame.
			if top != nil && !top.inBody {
				top.node.Parameters[token.ParamName] = token.Value
			}

		case XMLTokenBody:
			if top == nil || top.inBody {
				continue
			}
			kind := BodyKind(token.Value)
			// A plain-text body wins over a rich-text one.
			if top.node.BodyKind == BodyPlainText || (top.node.BodyKind == BodyRichText && kind == BodyRichText) {
				continue
			}
			top.inBody = true
			top.bodyKind = kind
			top.bodyStart = token.End
			top.plain.Reset()

		case XMLTokenBodyEnd:
			if top == nil || !top.inBody || top.bodyKind != BodyKind(token.Value) {
				continue
			}
			if top.bodyKind == BodyPlainText {
				top.node.Body = top.plain.String()
			} else {
				top.node.Body = input[top.bodyStart:token.Position]
				top.node.bodyOffset = top.bodyStart
			}
			top.node.BodyKind = top.bodyKind
			top.inBody = false

		case XMLTokenCloseTag:
			if top == nil {
				result.AddWarning("orphan close tag at position %d", token.Position)
				continue
			}
			st.stack = st.stack[:len(st.stack)-1]
			top.node.Span = input[top.node.Offset:token.End]

			if top.inBody {
				result.AddWarning("macro %q closed inside an open body at position %d", top.node.Name, token.Position)
			}

			if len(st.stack) > 0 {
				if !top.skip {
					parent := st.stack[len(st.stack)-1]
					parent.node.Children = append(parent.node.Children, top.node)
				}
				continue
			}

			if top.skip {
				result.AddTextSegment(top.node.Span)
			} else {
				result.AddMacroSegment(top.node)
			}
			st.last = token.End
		}
	}
}
