// parser_dom.go parses Confluence storage XML into macro trees with a
// streaming XML decoder, tracking byte offsets so spans stay exact.
package md

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

// DOMParser is the structural MacroParser strategy.
type DOMParser struct {
	Logger *log.Logger
}

// domFrame tracks one open macro element.
type domFrame struct {
	node  *MacroOccurrence
	depth int // element depth of the macro element itself
	skip  bool

	param     string
	inParam   bool
	paramText strings.Builder
	paramRes  string

	inBody    bool
	bodyKind  BodyKind
	bodyStart int
	plain     strings.Builder
}

// Parse implements MacroParser. Structured macros are looked for first;
// when the document has none, any ac: element with a macro name attribute
// is treated as a macro.
func (p *DOMParser) Parse(storage string) (*ParseResult, error) {
	legacy := !strings.Contains(storage, "<"+structuredMacroTag)
	result := newParseResult(p.Logger)

	dec := xml.NewDecoder(strings.NewReader(storage))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var stack []*domFrame
	depth := 0
	last := 0
	prevStart := 0

	for {
		start := int(dec.InputOffset())
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse storage format at offset %d: %w", start, err)
		}
		end := int(dec.InputOffset())
		// A token held back behind an invented end tag consumes no input;
		// its text began where the previous read started.
		if end == start {
			start = prevStart
		}
		prevStart = start

		var top *domFrame
		if len(stack) > 0 {
			top = stack[len(stack)-1]
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			qname := qualifiedName(t.Name)

			if isMacroElement(qname, t, legacy) && (top == nil || !top.inParam) {
				if top == nil && start > last {
					result.AddTextSegment(storage[last:start])
					last = start
				}
				frame := &domFrame{
					node: &MacroOccurrence{
						Name:       strings.ToLower(macroNameAttr(t)),
						Parameters: make(map[string]string),
						MacroID:    attr(t, "ac", "macro-id"),
						Offset:     start,
					},
					depth: depth,
				}
				if frame.node.Name == "" {
					result.AddWarning("macro without a name at position %d", start)
					frame.skip = true
				}
				stack = append(stack, frame)
				continue
			}

			if top == nil {
				continue
			}
			if top.inParam {
				if t.Name.Space == "ri" && top.paramRes == "" {
					top.paramRes = resourceValue(t)
				}
				continue
			}
			if depth != top.depth+1 {
				continue
			}
			switch qname {
			case "ac:parameter":
				top.inParam = true
				top.param = macroNameAttr(t)
				top.paramText.Reset()
				top.paramRes = ""
			case "ac:plain-text-body":
				if top.node.BodyKind != BodyPlainText {
					top.inBody = true
					top.bodyKind = BodyPlainText
					top.plain.Reset()
				}
			case "ac:rich-text-body":
				if top.node.BodyKind == BodyNone {
					top.inBody = true
					top.bodyKind = BodyRichText
					top.bodyStart = end
				}
			}

		case xml.EndElement:
			if top != nil && depth == top.depth {
				stack = stack[:len(stack)-1]
				top.node.Span = storage[top.node.Offset:end]

				switch {
				case len(stack) > 0:
					if !top.skip {
						parent := stack[len(stack)-1]
						parent.node.Children = append(parent.node.Children, top.node)
					}
				case top.skip:
					result.AddTextSegment(storage[last:end])
					last = end
				default:
					result.AddMacroSegment(top.node)
					last = end
				}
			} else if top != nil && depth == top.depth+1 {
				switch qualifiedName(t.Name) {
				case "ac:parameter":
					if top.inParam {
						value := strings.TrimSpace(top.paramText.String())
						if value == "" {
							value = top.paramRes
						}
						top.node.Parameters[top.param] = value
						top.inParam = false
					}
				case "ac:plain-text-body":
					if top.inBody && top.bodyKind == BodyPlainText {
						top.node.Body = top.plain.String()
						top.node.BodyKind = BodyPlainText
						top.inBody = false
					}
				case "ac:rich-text-body":
					if top.inBody && top.bodyKind == BodyRichText {
						top.node.Body = storage[top.bodyStart:start]
						top.node.BodyKind = BodyRichText
						top.node.bodyOffset = top.bodyStart
						top.inBody = false
					}
				}
			}
			depth--

		case xml.CharData:
			if top == nil {
				continue
			}
			if top.inParam {
				top.paramText.Write(t)
			} else if top.inBody && top.bodyKind == BodyPlainText && depth == top.depth+1 {
				top.plain.Write(t)
			}
		}
	}

	// The decoder invents end tags in non-strict mode, so frames left
	// open here mean truncated input.
	if len(stack) > 0 {
		return nil, fmt.Errorf("failed to parse storage format: unclosed macro %q at offset %d", stack[0].node.Name, stack[0].node.Offset)
	}
	if last < len(storage) {
		result.AddTextSegment(storage[last:])
	}

	return result.finalize(), nil
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// isMacroElement reports whether an element starts a macro. In legacy mode
// any ac: element carrying a name attribute qualifies.
func isMacroElement(qname string, t xml.StartElement, legacy bool) bool {
	if qname == structuredMacroTag {
		return true
	}
	if !legacy || t.Name.Space != "ac" || nonMacroElements[qname] {
		return false
	}
	return macroNameAttr(t) != ""
}

// macroNameAttr returns ac:name, falling back to name.
func macroNameAttr(t xml.StartElement) string {
	if v := attr(t, "ac", "name"); v != "" {
		return v
	}
	return attr(t, "", "name")
}

func attr(t xml.StartElement, space, local string) string {
	for _, a := range t.Attr {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// resourceValue returns the identifying attribute of an ri: element.
func resourceValue(t xml.StartElement) string {
	for _, local := range []string{"filename", "content-title", "value"} {
		if v := attr(t, "ri", local); v != "" {
			return v
		}
	}
	return ""
}
