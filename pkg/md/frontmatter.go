// frontmatter.go builds and reads the YAML metadata block of exported files.
package md

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PageMetadata describes the page a document came from.
type PageMetadata struct {
	ID        string
	Title     string
	SpaceKey  string
	URL       string
	Version   int
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
	Labels    []string
	ParentID  string
}

// MacroStats counts resolved macros by kind.
type MacroStats struct {
	Mermaid     int `yaml:"mermaid" json:"mermaid"`
	Code        int `yaml:"code" json:"code"`
	Diagrams    int `yaml:"diagrams" json:"diagrams"`
	Panels      int `yaml:"panels" json:"panels"`
	TOC         int `yaml:"-" json:"toc"`
	Unavailable int `yaml:"-" json:"unavailable"`
}

// Add counts r.
func (s *MacroStats) Add(r *ResolvedMacro) {
	switch r.Group {
	case GroupDiagram, GroupDiagramRef:
		s.Diagrams++
		if r.Language == "mermaid" || strings.HasPrefix(r.Name, "mermaid") {
			s.Mermaid++
		}
	case GroupCode:
		s.Code++
	case GroupPanel:
		s.Panels++
	case GroupTOC:
		s.TOC++
	}
	if r.Kind == KindUnavailable {
		s.Unavailable++
	}
}

// Frontmatter is the YAML block at the top of an exported file. Field
// order is the order written.
type Frontmatter struct {
	Title               string     `yaml:"title" json:"title"`
	ConfluenceID        string     `yaml:"confluenceId" json:"confluenceId"`
	ConfluenceSpaceKey  string     `yaml:"confluenceSpaceKey" json:"confluenceSpaceKey"`
	ConfluenceURL       string     `yaml:"confluenceUrl" json:"confluenceUrl"`
	ConfluenceVersion   int        `yaml:"confluenceVersion" json:"confluenceVersion"`
	ConfluenceCreatedBy string     `yaml:"confluenceCreatedBy" json:"confluenceCreatedBy"`
	ConfluenceCreatedAt string     `yaml:"confluenceCreatedAt" json:"confluenceCreatedAt"`
	ConfluenceUpdatedAt string     `yaml:"confluenceUpdatedAt" json:"confluenceUpdatedAt"`
	ConfluenceParentID  string     `yaml:"confluenceParentId,omitempty" json:"confluenceParentId,omitempty"`
	ConfluenceLabels    []string   `yaml:"confluenceLabels,omitempty" json:"confluenceLabels,omitempty"`
	Macros              MacroStats `yaml:"macros" json:"macros"`
	ExportedAt          string     `yaml:"exportedAt" json:"exportedAt"`
	ExportedBy          string     `yaml:"exportedBy" json:"exportedBy"`
}

// ErrNoFrontmatter is returned by ParseFrontmatter for documents without
// a leading YAML block.
var ErrNoFrontmatter = errors.New("no frontmatter")

// fenceLine matches a code fence line, allowing the blockquote markers,
// indentation and list marker the resolver puts in front of block content.
var fenceLine = regexp.MustCompile("^[ \t>]*(?:(?:[-*+]|\\d{1,9}[.)])[ \t]+)?(`{3,}|~{3,})(.*)$")

// NewFrontmatter builds the frontmatter for meta.
func NewFrontmatter(meta PageMetadata, stats MacroStats, exportedAt time.Time, exportedBy string) Frontmatter {
	return Frontmatter{
		Title:               meta.Title,
		ConfluenceID:        meta.ID,
		ConfluenceSpaceKey:  meta.SpaceKey,
		ConfluenceURL:       meta.URL,
		ConfluenceVersion:   meta.Version,
		ConfluenceCreatedBy: meta.Author,
		ConfluenceCreatedAt: formatTime(meta.CreatedAt),
		ConfluenceUpdatedAt: formatTime(meta.UpdatedAt),
		ConfluenceParentID:  meta.ParentID,
		ConfluenceLabels:    meta.Labels,
		Macros:              stats,
		ExportedAt:          formatTime(exportedAt),
		ExportedBy:          exportedBy,
	}
}

// Render returns the frontmatter block including its --- delimiters.
func (f Frontmatter) Render() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return "", fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	return "---\n" + buf.String() + "---\n", nil
}

// ParseFrontmatter splits a document into its frontmatter and body.
func ParseFrontmatter(markdown string) (*Frontmatter, string, error) {
	rest, ok := strings.CutPrefix(markdown, "---\n")
	if !ok {
		return nil, markdown, ErrNoFrontmatter
	}
	end := strings.Index(rest, "\n---\n")
	block, body := "", ""
	switch {
	case end >= 0:
		block, body = rest[:end+1], rest[end+len("\n---\n"):]
	case strings.HasSuffix(rest, "\n---"):
		block = strings.TrimSuffix(rest, "---")
	default:
		return nil, markdown, ErrNoFrontmatter
	}

	var f Frontmatter
	if err := yaml.Unmarshal([]byte(block), &f); err != nil {
		return nil, markdown, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	return &f, strings.TrimLeft(body, "\n"), nil
}

// CleanMarkdown collapses runs of blank lines to one, trims trailing
// spaces on every line and the document, and ends it with one newline.
// Lines inside fenced code blocks are left untouched.
func CleanMarkdown(md string) string {
	md = strings.ReplaceAll(md, "\r\n", "\n")

	var out []string
	fence := ""
	blank := false
	for _, line := range strings.Split(md, "\n") {
		if fence != "" {
			out = append(out, line)
			if closesFence(line, fence) {
				fence = ""
			}
			continue
		}

		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		if m := fenceLine.FindStringSubmatch(line); m != nil && !(m[1][0] == '`' && strings.Contains(m[2], "`")) {
			fence = m[1]
		}
		out = append(out, line)
	}

	md = strings.TrimSpace(strings.Join(out, "\n"))
	if md == "" {
		return ""
	}
	return md + "\n"
}

// closesFence reports whether line ends a block opened by fence: a run of
// the same character at least as long, with nothing else but whitespace.
func closesFence(line, fence string) bool {
	m := fenceLine.FindStringSubmatch(line)
	return m != nil && m[1][0] == fence[0] && len(m[1]) >= len(fence) && strings.TrimSpace(m[2]) == ""
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
