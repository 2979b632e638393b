// tokenizer_xml.go implements tokenization for Confluence storage format XML.
package md

import (
	"html"
	"regexp"
	"sort"
	"strings"
)

// structuredMacroTag is the element Confluence uses for macros in storage format.
const structuredMacroTag = "ac:structured-macro"

var (
	// Matches name="..." or ac:name="..." at the start of an attribute.
	// The leftmost attribute wins on the pattern path.
	nameAttrPattern = regexp.MustCompile(`(?:^|\s)(?:ac:)?name="([^"]*)"`)
	// Matches ac:macro-id="..."
	macroIDPattern = regexp.MustCompile(`(?:^|\s)ac:macro-id="([^"]*)"`)
	// Matches the attribute part and content of a parameter element.
	paramPattern = regexp.MustCompile(`(?s)^<ac:parameter((?:\s[^>]*?)?)(?:/>|>(.*?)</ac:parameter\s*>)`)
	// Matches the value-bearing attribute of a resource identifier inside a parameter.
	resourceAttrPattern = regexp.MustCompile(`\sri:(?:filename|content-title|value)="([^"]*)"`)
	// Matches CDATA content: <![CDATA[...]]>
	cdataPattern = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	// Matches any element in the ac: namespace that carries a name attribute.
	legacyMacroTagPattern = regexp.MustCompile(`<(ac:[a-z][\w-]*)(?:\s[^>]*?)?\s(?:ac:)?name="`)
	// Matches any markup tag.
	tagPattern = regexp.MustCompile(`(?s)<[^>]*>`)
)

// nonMacroElements carry a name attribute but are never macros.
var nonMacroElements = map[string]bool{
	"ac:parameter":              true,
	"ac:emoticon":               true,
	"ac:link":                   true,
	"ac:image":                  true,
	"ac:plain-text-body":        true,
	"ac:rich-text-body":         true,
	"ac:placeholder":            true,
	"ac:inline-comment-marker":  true,
	"ac:task":                   true,
	"ac:task-list":              true,
	"ac:layout":                 true,
	"ac:layout-section":         true,
	"ac:layout-cell":            true,
	"ac:adf-extension":          true,
	"ac:adf-node":               true,
	"ac:adf-attribute":          true,
	"ac:plain-text-link-body":   true,
	"ac:link-body":              true,
	"ac:structured-macro-param": true,
}

// MacroTagNames returns the element names that mark macros in input.
// Structured macros are preferred; only when none exist does the scan fall
// back to other ac: elements that carry a macro name attribute.
func MacroTagNames(input string) []string {
	if strings.Contains(input, "<"+structuredMacroTag) {
		return []string{structuredMacroTag}
	}

	seen := make(map[string]bool)
	for _, m := range legacyMacroTagPattern.FindAllStringSubmatch(input, -1) {
		tag := m[1]
		if tag == structuredMacroTag || nonMacroElements[tag] {
			continue
		}
		seen[tag] = true
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// macroScanner builds the master pattern for the given macro element names.
func macroScanner(tags []string) *regexp.Regexp {
	quoted := make([]string, len(tags))
	for i, tag := range tags {
		quoted[i] = regexp.QuoteMeta(tag)
	}
	alt := strings.Join(quoted, "|")
	return regexp.MustCompile(`(?s)<!\[CDATA\[.*?\]\]>` +
		`|<ac:parameter(?:\s[^>]*?)?(?:/>|>.*?</ac:parameter\s*>)` +
		`|</?ac:(?:plain|rich)-text-body\s*>` +
		`|</(?:` + alt + `)\s*>` +
		`|<(?:` + alt + `)(?:\s[^>]*?)?/?>`)
}

// TokenizeConfluenceXML scans input for macro elements named by tags and
// returns a token stream. Text between recognised tags is emitted as text tokens.
func TokenizeConfluenceXML(input string, tags []string) []XMLToken {
	if len(tags) == 0 {
		if input == "" {
			return nil
		}
		return []XMLToken{{Type: XMLTokenText, Text: input, Position: 0, End: len(input)}}
	}

	var tokens []XMLToken
	pos := 0

	for _, loc := range macroScanner(tags).FindAllStringIndex(input, -1) {
		start, end := loc[0], loc[1]
		if start > pos {
			tokens = append(tokens, XMLToken{
				Type:     XMLTokenText,
				Text:     input[pos:start],
				Position: pos,
				End:      start,
			})
		}
		tokens = append(tokens, classifyTag(input[start:end], start, end)...)
		pos = end
	}

	if pos < len(input) {
		tokens = append(tokens, XMLToken{
			Type:     XMLTokenText,
			Text:     input[pos:],
			Position: pos,
			End:      len(input),
		})
	}

	return tokens
}

// classifyTag turns one scanner match into tokens. Self-closing macros
// produce an open and a close token.
func classifyTag(tag string, start, end int) []XMLToken {
	switch {
	case strings.HasPrefix(tag, "<![CDATA["):
		return []XMLToken{{Type: XMLTokenCDATA, Text: ExtractCDATAContent(tag), Position: start, End: end}}

	case strings.HasPrefix(tag, "<ac:parameter"):
		m := paramPattern.FindStringSubmatch(tag)
		if m == nil {
			return []XMLToken{{Type: XMLTokenText, Text: tag, Position: start, End: end}}
		}
		return []XMLToken{{
			Type:      XMLTokenParameter,
			ParamName: attrValue(nameAttrPattern, m[1]),
			Value:     parameterValue(m[2]),
			Position:  start,
			End:       end,
		}}

	case strings.HasPrefix(tag, "<ac:plain-text-body"):
		return []XMLToken{{Type: XMLTokenBody, Value: string(BodyPlainText), Position: start, End: end}}
	case strings.HasPrefix(tag, "<ac:rich-text-body"):
		return []XMLToken{{Type: XMLTokenBody, Value: string(BodyRichText), Position: start, End: end}}
	case strings.HasPrefix(tag, "</ac:plain-text-body"):
		return []XMLToken{{Type: XMLTokenBodyEnd, Value: string(BodyPlainText), Position: start, End: end}}
	case strings.HasPrefix(tag, "</ac:rich-text-body"):
		return []XMLToken{{Type: XMLTokenBodyEnd, Value: string(BodyRichText), Position: start, End: end}}

	case strings.HasPrefix(tag, "</"):
		return []XMLToken{{Type: XMLTokenCloseTag, Position: start, End: end}}
	}

	open := XMLToken{
		Type:      XMLTokenOpenTag,
		MacroName: strings.ToLower(attrValue(nameAttrPattern, tag)),
		MacroID:   attrValue(macroIDPattern, tag),
		Position:  start,
		End:       end,
	}
	if strings.HasSuffix(tag, "/>") {
		return []XMLToken{open, {Type: XMLTokenCloseTag, Position: end, End: end}}
	}
	return []XMLToken{open}
}

func attrValue(pattern *regexp.Regexp, attrs string) string {
	if m := pattern.FindStringSubmatch(attrs); m != nil {
		return html.UnescapeString(m[1])
	}
	return ""
}

// parameterValue returns the text of a parameter, or the value of the
// resource identifier it wraps (e.g. <ri:attachment ri:filename="..."/>).
func parameterValue(inner string) string {
	if inner == "" {
		return ""
	}
	text := strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(inner, "")))
	if text != "" {
		return text
	}
	return attrValue(resourceAttrPattern, inner)
}

// ExtractCDATAContent extracts content from a CDATA section.
// Input: "<![CDATA[content]]>" Output: "content"
func ExtractCDATAContent(s string) string {
	if match := cdataPattern.FindStringSubmatch(s); match != nil {
		return match[1]
	}
	return s
}
