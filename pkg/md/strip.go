// strip.go reduces rich-text macro bodies to plain text.
package md

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var (
	// Matches <br>, <br/>, <br />
	brPattern = regexp.MustCompile(`(?i)<br\s*/?>`)
	// Matches the closing tag of a block-level element.
	blockEndPattern = regexp.MustCompile(`(?i)</(?:p|div|li|h[1-6]|tr|pre|blockquote|table|ul|ol)\s*>`)
	// Matches an opening list item, rendered as a bullet.
	liStartPattern = regexp.MustCompile(`(?i)<li(?:\s[^>]*)?>`)
	// Matches three or more newlines.
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	// Matches trailing horizontal whitespace on a line.
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
)

// StripMarkup converts rich-text markup to plain text. Tags are removed,
// <br> and the ends of block elements become newlines, list items become
// "- " bullets, CDATA content is kept literally and entities are decoded.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}

	// Protect CDATA payloads from tag stripping and entity decoding.
	var cdata []string
	s = cdataPattern.ReplaceAllStringFunc(s, func(m string) string {
		cdata = append(cdata, ExtractCDATAContent(m))
		return fmt.Sprintf("\x00cdata%d\x00", len(cdata)-1)
	})

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = brPattern.ReplaceAllString(s, "\n")
	s = liStartPattern.ReplaceAllString(s, "- ")
	s = blockEndPattern.ReplaceAllString(s, "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")

	for i, c := range cdata {
		s = strings.Replace(s, fmt.Sprintf("\x00cdata%d\x00", i), c, 1)
	}

	s = trailingSpace.ReplaceAllString(s, "\n")
	s = excessNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// StripCodeMarkup is the rich-body fallback for code macros: tags are
// removed, <br> becomes a newline and the four standard entities are decoded.
// Block structure is not interpreted beyond that.
func StripCodeMarkup(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = brPattern.ReplaceAllString(s, "\n")
	s = blockEndPattern.ReplaceAllString(s, "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&nbsp;", " ",
		"&amp;", "&",
	).Replace(s)
	return strings.TrimSpace(s)
}
