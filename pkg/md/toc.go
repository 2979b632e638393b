// toc.go generates tables of contents from rendered Markdown.
package md

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is a top-level Markdown heading.
type Heading struct {
	Level int
	Text  string // heading text with link and code markup removed
	Slug  string // anchor, unique within the document
}

var (
	imageMarkup   = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkMarkup    = regexp.MustCompile(`\[([^\]]*)\]\((?:<[^>]*>|[^)]*)\)`)
	codeMarkup    = regexp.MustCompile("`+([^`]*)`+")
	htmlComment   = regexp.MustCompile(`(?s)<!--.*?-->`)
	escapedChar   = regexp.MustCompile(`\\([[:punct:]])`)
	slugDisallow  = regexp.MustCompile(`[^\p{L}\p{N}_\s.-]`)
	slugSpace     = regexp.MustCompile(`\s+`)
	slugDashes    = regexp.MustCompile(`-{2,}`)
	markdownParse = goldmark.New()
)

// Slugify derives a heading anchor: lowercase, characters other than
// letters, digits, underscore, whitespace, dot and hyphen removed,
// whitespace replaced by hyphens, hyphen runs collapsed and trimmed.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugDisallow.ReplaceAllString(s, "")
	s = slugSpace.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// HeadingText removes link, image, code and comment markup from a heading.
func HeadingText(s string) string {
	s = htmlComment.ReplaceAllString(s, "")
	s = imageMarkup.ReplaceAllString(s, "$1")
	s = linkMarkup.ReplaceAllString(s, "$1")
	s = codeMarkup.ReplaceAllString(s, "$1")
	s = escapedChar.ReplaceAllString(s, "$1")
	return strings.Join(strings.Fields(s), " ")
}

// Headings returns the top-level headings of markdown in document order.
// Lines inside fenced code or HTML blocks are not headings. Duplicate
// slugs get -1, -2, ... suffixes.
func Headings(markdown string) []Heading {
	src := []byte(markdown)
	doc := markdownParse.Parser().Parse(text.NewReader(src))

	var out []Heading
	seen := make(map[string]int)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}

		var raw strings.Builder
		lines := h.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			if i > 0 {
				raw.WriteString(" ")
			}
			raw.Write(seg.Value(src))
		}

		heading := Heading{Level: h.Level, Text: HeadingText(raw.String())}
		if heading.Text == "" {
			continue
		}

		slug := Slugify(heading.Text)
		if count := seen[slug]; count > 0 {
			heading.Slug = fmt.Sprintf("%s-%d", slug, count)
		} else {
			heading.Slug = slug
		}
		seen[slug]++
		out = append(out, heading)
	}
	return out
}

// GenerateTOC renders the table of contents of markdown for spec. It
// returns "" when no heading falls in the level range.
func GenerateTOC(markdown string, spec *TOCSpec) string {
	if spec == nil {
		spec = &TOCSpec{MinLevel: 1, MaxLevel: 7, Printable: true}
	}

	var headings []Heading
	top := 0
	for _, h := range Headings(markdown) {
		if h.Level < spec.MinLevel || h.Level > spec.MaxLevel {
			continue
		}
		if top == 0 || h.Level < top {
			top = h.Level
		}
		headings = append(headings, h)
	}
	if len(headings) == 0 {
		return ""
	}

	if !spec.Printable {
		links := make([]string, len(headings))
		for i, h := range headings {
			links[i] = tocLink(h)
		}
		sep := spec.Separator
		if sep == "" {
			sep = " | "
		}
		return strings.Join(links, sep)
	}

	marker, width := "- ", 2
	if spec.Numbered {
		marker, width = "1. ", 3
	}

	lines := make([]string, len(headings))
	prev := top
	for i, h := range headings {
		// Never indent more than one level past the previous entry, so
		// skipped heading levels still produce a valid nested list.
		depth := h.Level - top
		if depth > prev-top+1 {
			depth = prev - top + 1
		}
		prev = top + depth
		lines[i] = strings.Repeat(" ", depth*width) + marker + tocLink(h)
	}
	return strings.Join(lines, "\n")
}

func tocLink(h Heading) string {
	label := strings.NewReplacer("[", `\[`, "]", `\]`).Replace(h.Text)
	return fmt.Sprintf("[%s](#%s)", label, h.Slug)
}
