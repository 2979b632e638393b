// resolve.go substitutes placeholder tokens in rendered Markdown.
package md

import (
	"fmt"
	"log"
	"regexp"
	"strings"
)

// ResolveReport describes a Resolve pass.
type ResolveReport struct {
	Resolved int
	Missing  []Token // tokens not found in the Markdown
	Warnings []string
}

// blockPrefixPattern matches a line prefix that block content can continue:
// indentation, blockquote markers and at most one list marker.
var blockPrefixPattern = regexp.MustCompile(`^[ \t>]*(?:(?:[-*+]|\d{1,9}[.)])[ \t]+)?$`)

// Resolver replaces tokens with their formatted content.
type Resolver struct {
	Logger *log.Logger
}

// Resolve runs a Resolver with the given logger.
func Resolve(markdown string, reg *Registry, logger *log.Logger) (string, ResolveReport) {
	return (&Resolver{Logger: logger}).Resolve(markdown, reg)
}

// Resolve substitutes every registered token in markdown. TOC tokens are
// resolved last, from the headings of the otherwise finished document.
// Tokens that cannot be found are reported and stay visible. The registry
// is cleared afterwards.
func (rs *Resolver) Resolve(markdown string, reg *Registry) (string, ResolveReport) {
	var report ResolveReport

	var tocs []Token
	for _, t := range reg.All() {
		r, _ := reg.Resolve(t)
		if r != nil && r.Kind == KindTOC {
			tocs = append(tocs, t)
			continue
		}
		markdown = rs.substitute(markdown, reg, t, r, FormatResolved(r), &report)
	}

	for _, t := range tocs {
		r, _ := reg.Resolve(t)
		toc := GenerateTOC(withoutToken(markdown, t), r.TOC)
		markdown = rs.substitute(markdown, reg, t, r, toc, &report)
	}

	reg.Clear()
	return markdown, report
}

func (rs *Resolver) substitute(markdown string, reg *Registry, t Token, r *ResolvedMacro, content string, report *ResolveReport) string {
	idx, length := findToken(markdown, t)
	if idx < 0 {
		report.Missing = append(report.Missing, t)
		rs.warn(report, "placeholder %s not found in rendered markdown", t)
		return markdown
	}
	reg.Consume(t)
	report.Resolved++

	lineStart := strings.LastIndex(markdown[:idx], "\n") + 1
	prefix := markdown[lineStart:idx]
	after := markdown[idx+length:]

	if content == "" {
		// Drop the whole line when the token was alone on it.
		if blockPrefixPattern.MatchString(prefix) && lineRest(after) == "" {
			return markdown[:lineStart] + strings.TrimPrefix(after[len(lineRestRaw(after)):], "\n")
		}
		return markdown[:idx] + after
	}

	// Table rows hold one line per row.
	if strings.HasPrefix(strings.TrimLeft(prefix, " \t>"), "|") {
		return markdown[:idx] + FormatCell(r, content) + after
	}

	if blockPrefixPattern.MatchString(prefix) {
		return markdown[:idx] + Indent(content, ContinuationPrefix(prefix)) + after
	}

	// Inline position: block content starts on its own line.
	return strings.TrimRight(markdown[:idx], " \t") + "\n\n" + content + "\n\n" + strings.TrimLeft(after, " \t")
}

// findToken returns the position and length of the first textual form of t
// present in markdown.
func findToken(markdown string, t Token) (int, int) {
	s := string(t)
	for _, form := range []string{
		"`{{" + s + "}}`",
		`\{\{` + s + `\}\}`,
		"{{" + s + "}}",
		s,
	} {
		if idx := strings.Index(markdown, form); idx >= 0 {
			return idx, len(form)
		}
	}
	return -1, 0
}

func withoutToken(markdown string, t Token) string {
	idx, length := findToken(markdown, t)
	if idx < 0 {
		return markdown
	}
	return markdown[:idx] + markdown[idx+length:]
}

// ContinuationPrefix turns the prefix of a token's line into the prefix of
// the following lines: blockquote markers and indentation are kept, list
// markers become spaces of the same width.
func ContinuationPrefix(prefix string) string {
	var sb strings.Builder
	for _, r := range prefix {
		switch r {
		case ' ', '\t', '>':
			sb.WriteRune(r)
		default:
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// Indent prefixes every line of content after the first with prefix.
// Blank lines get the prefix without trailing spaces.
func Indent(content, prefix string) string {
	if prefix == "" {
		return content
	}
	lines := strings.Split(content, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] == "" {
			lines[i] = strings.TrimRight(prefix, " \t")
			continue
		}
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}

func lineRestRaw(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func lineRest(s string) string {
	return strings.TrimSpace(lineRestRaw(s))
}

func (rs *Resolver) warn(report *ResolveReport, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	report.Warnings = append(report.Warnings, msg)
	if rs.Logger != nil {
		rs.Logger.Printf("WARN: %s", msg)
	}
}
