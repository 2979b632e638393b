// render.go formats resolved macros as Markdown.
package md

import (
	"html"
	"strings"
)

// FormatResolved returns the Markdown for r. TOCs render empty here; they
// are generated from the finished document by the resolver.
func FormatResolved(r *ResolvedMacro) string {
	if r == nil {
		return ""
	}
	switch r.Kind {
	case KindDiagram, KindCode:
		return Fence(r.Content, r.Language)
	case KindPanel:
		return formatPanel(r)
	case KindUnavailable:
		return formatNotice(r)
	default:
		return ""
	}
}

// Fence wraps content in a fenced code block. The fence is one backtick
// longer than the longest backtick run in content, and never shorter than three.
func Fence(content, language string) string {
	fence := strings.Repeat("`", max(3, longestRun(content, '`')+1))

	var sb strings.Builder
	sb.WriteString(fence)
	sb.WriteString(language)
	sb.WriteString("\n")
	sb.WriteString(strings.TrimRight(content, "\n"))
	sb.WriteString("\n")
	sb.WriteString(fence)
	return sb.String()
}

// formatPanel renders a blockquote with a bold marker line.
func formatPanel(r *ResolvedMacro) string {
	header := "> " + panelHeader(r)
	if r.Content == "" {
		return header
	}
	return header + "\n" + Blockquote(r.Content)
}

// panelHeader renders the marker with its leading symbol outside the bold span.
func panelHeader(r *ResolvedMacro) string {
	symbol, label, found := strings.Cut(r.Marker, " ")
	if !found {
		return "**" + r.Marker + "**"
	}
	return symbol + " **" + label + "**"
}

func formatNotice(r *ResolvedMacro) string {
	return "> " + noticeText(r)
}

func noticeText(r *ResolvedMacro) string {
	notice := r.Content
	if notice == "" {
		notice = "Content unavailable: " + r.Filename
	}
	return "_⚠️ " + strings.TrimSpace(notice) + "_"
}

// FormatCell returns r as single-line Markdown for a pipe table cell.
// block is the block rendering, flattened for kinds without a cell form.
func FormatCell(r *ResolvedMacro, block string) string {
	if r == nil {
		return flattenCell(block)
	}
	switch r.Kind {
	case KindDiagram, KindCode:
		return codeCell(r.Content)
	case KindPanel:
		if r.Content == "" {
			return panelHeader(r)
		}
		return panelHeader(r) + " " + flattenCell(r.Content)
	case KindUnavailable:
		return escapeCellPipes(noticeText(r))
	default:
		return flattenCell(block)
	}
}

// codeCell renders code as an inline code span, or as <code> with <br>
// line breaks when it spans several lines.
func codeCell(content string) string {
	content = strings.Trim(content, "\n")
	if !strings.Contains(content, "\n") {
		ticks := strings.Repeat("`", longestRun(content, '`')+1)
		if strings.HasPrefix(content, "`") || strings.HasSuffix(content, "`") {
			content = " " + content + " "
		}
		return ticks + escapeCellPipes(content) + ticks
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		line = strings.Repeat("&nbsp;", len(line)-len(trimmed)) + html.EscapeString(trimmed)
		lines[i] = strings.ReplaceAll(line, "|", "&#124;")
	}
	return "<code>" + strings.Join(lines, "<br>") + "</code>"
}

// flattenCell joins the non-blank lines of block with <br>. Fence lines
// are dropped and blockquote markers removed.
func flattenCell(block string) string {
	var parts []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "> "))
		if line == "" || strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			continue
		}
		parts = append(parts, line)
	}
	return escapeCellPipes(strings.Join(parts, "<br>"))
}

func escapeCellPipes(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\|`, "|"), "|", `\|`)
}

// Blockquote prefixes every line of s with "> ", or ">" for empty lines.
func Blockquote(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + line
		}
	}
	return strings.Join(lines, "\n")
}

func longestRun(s string, c byte) int {
	best, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}
