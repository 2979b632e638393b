// extract.go resolves macro occurrences into renderable content.
package md

import (
	"fmt"
	"log"
	"strconv"
	"strings"
)

// Kind is the variant of a resolved macro.
type Kind string

const (
	KindDiagram     Kind = "diagram"
	KindCode        Kind = "code"
	KindPanel       Kind = "panel"
	KindTOC         Kind = "toc"
	KindUnavailable Kind = "unavailable"
)

// TOCSpec is a deferred table of contents, generated from the rendered
// Markdown headings.
type TOCSpec struct {
	MinLevel  int
	MaxLevel  int
	Printable bool   // bulleted list; false renders one inline line of links
	Numbered  bool   // numbered list instead of bullets
	Separator string // between links when not Printable
}

// ResolvedMacro is the canonical content of one macro.
type ResolvedMacro struct {
	Kind     Kind
	Name     string // originating macro name
	Group    Group
	MacroID  string
	Content  string
	Language string
	Filename string // attachment or diagram named by an unavailable notice
	Marker   string // panel symbol and label
	TOC      *TOCSpec
}

// Valid reports whether r carries something to render.
func (r *ResolvedMacro) Valid() bool {
	if r == nil {
		return false
	}
	switch r.Kind {
	case KindTOC:
		return r.TOC != nil
	case KindPanel:
		return r.Marker != ""
	case KindUnavailable:
		return r.Content != "" || r.Filename != ""
	default:
		return r.Content != ""
	}
}

// AttachmentCache maps attachment filenames to downloaded text content.
// It is filled before conversion and only read during it.
type AttachmentCache map[string]string

// Lookup returns the cached text for name, trying an exact match first and
// then a case-insensitive one.
func (c AttachmentCache) Lookup(name string) (string, bool) {
	if c == nil || name == "" {
		return "", false
	}
	if v, ok := c[name]; ok {
		return v, true
	}
	for k, v := range c {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// diagramFileParams are checked in order for a diagram attachment name.
var diagramFileParams = []string{"filename", "attachment", "name", "file", "src"}

// diagramRefParams are checked in order for a diagram reference title.
var diagramRefParams = []string{"diagramDisplayName", "diagramName", "name", "filename", "title", "documentId"}

// Extractor resolves macro occurrences against an attachment cache.
type Extractor struct {
	Cache  AttachmentCache
	Logger *log.Logger

	warnings []string
}

// Extract resolves occ with a default Extractor.
func Extract(occ *MacroOccurrence, cache AttachmentCache) *ResolvedMacro {
	return (&Extractor{Cache: cache}).Extract(occ)
}

// Extract returns the resolved content of occ, or nil when the macro name
// is not registered. Unresolvable content becomes a KindUnavailable notice.
func (e *Extractor) Extract(occ *MacroOccurrence) *ResolvedMacro {
	if occ == nil {
		return nil
	}
	mt, ok := LookupMacro(occ.Name)
	if !ok {
		return nil
	}

	var r *ResolvedMacro
	switch mt.Group {
	case GroupDiagram:
		r = e.extractDiagram(occ, mt)
	case GroupDiagramRef:
		r = e.extractDiagramRef(occ, mt)
	case GroupCode:
		r = e.extractCode(occ, mt)
	case GroupPanel:
		r = e.extractPanel(occ, mt)
	case GroupTOC:
		r = extractTOC(occ)
	default:
		return nil
	}

	r.Name = mt.Name
	r.Group = mt.Group
	r.MacroID = occ.MacroID
	return r
}

func (e *Extractor) extractDiagram(occ *MacroOccurrence, mt MacroType) *ResolvedMacro {
	if occ.BodyKind == BodyPlainText {
		if src := strings.TrimSpace(occ.Body); src != "" {
			return &ResolvedMacro{Kind: KindDiagram, Content: src, Language: mt.Language}
		}
	}

	filename := occ.Param(diagramFileParams...)
	if filename == "" {
		e.warnf("%s macro has no source and no attachment", occ.Name)
		return &ResolvedMacro{
			Kind:    KindUnavailable,
			Content: fmt.Sprintf("%s diagram source unavailable", diagramLabel(mt)),
		}
	}

	if src, ok := e.Cache.Lookup(filename); ok && strings.TrimSpace(src) != "" {
		return &ResolvedMacro{Kind: KindDiagram, Content: strings.TrimSpace(src), Language: mt.Language, Filename: filename}
	}

	e.warnf("%s attachment %q not in attachment cache", occ.Name, filename)
	return &ResolvedMacro{
		Kind:     KindUnavailable,
		Filename: filename,
		Content:  fmt.Sprintf("%s diagram unavailable: attachment %q could not be loaded", diagramLabel(mt), filename),
	}
}

func (e *Extractor) extractDiagramRef(occ *MacroOccurrence, mt MacroType) *ResolvedMacro {
	name := occ.Param(diagramRefParams...)
	if name == "" {
		return &ResolvedMacro{
			Kind:    KindUnavailable,
			Content: fmt.Sprintf("%s diagram not exported; view it on the original page", mt.Label),
		}
	}
	return &ResolvedMacro{
		Kind:     KindUnavailable,
		Filename: name,
		Content:  fmt.Sprintf("%s diagram %q not exported; view it on the original page", mt.Label, name),
	}
}

func (e *Extractor) extractCode(occ *MacroOccurrence, mt MacroType) *ResolvedMacro {
	language := ""
	if !mt.NoHighlight {
		language = strings.ToLower(occ.Param("language", ""))
		if language == "" {
			language = mt.Language
		}
	}

	switch occ.BodyKind {
	case BodyPlainText:
		if strings.TrimSpace(occ.Body) != "" {
			return &ResolvedMacro{Kind: KindCode, Content: trimBlankLines(occ.Body), Language: language}
		}
	case BodyRichText:
		if text := StripCodeMarkup(occ.Body); text != "" {
			e.warnf("%s macro has a rich-text body, whitespace may be lost", occ.Name)
			return &ResolvedMacro{Kind: KindCode, Content: text, Language: language}
		}
	}

	e.warnf("%s macro has no content", occ.Name)
	notice := "Code block content unavailable"
	if title := occ.Param("title"); title != "" {
		notice = fmt.Sprintf("Code block %q content unavailable", title)
	}
	return &ResolvedMacro{Kind: KindUnavailable, Content: notice, Language: language}
}

func (e *Extractor) extractPanel(occ *MacroOccurrence, mt MacroType) *ResolvedMacro {
	marker := mt.Symbol + " " + mt.Label
	if title := occ.Param("title"); title != "" {
		marker += ": " + title
	}

	content := ""
	if occ.BodyKind == BodyRichText {
		content = e.panelText(occ)
	}
	return &ResolvedMacro{Kind: KindPanel, Content: content, Marker: marker}
}

// panelText strips the panel body after rendering the recognised macros
// nested in it. Rendered children are kept out of the stripping pass.
func (e *Extractor) panelText(occ *MacroOccurrence) string {
	nested := outermostRecognised(occ.Children)
	if len(nested) == 0 {
		return StripMarkup(occ.Body)
	}

	var sb strings.Builder
	var rendered []string
	cursor := 0
	for _, child := range nested {
		start := child.Offset - occ.bodyOffset
		if start < cursor || start+len(child.Span) > len(occ.Body) {
			continue
		}
		sb.WriteString(occ.Body[cursor:start])

		text := ""
		if r := e.Extract(child); r != nil {
			if r.Kind == KindTOC {
				e.warnf("toc macro inside %s panel is not rendered", occ.Name)
			}
			text = FormatResolved(r)
		}
		sb.WriteString(fmt.Sprintf("\n\n\x00nested%d\x00\n\n", len(rendered)))
		rendered = append(rendered, text)
		cursor = start + len(child.Span)
	}
	sb.WriteString(occ.Body[cursor:])

	text := StripMarkup(sb.String())
	for i, r := range rendered {
		text = strings.Replace(text, fmt.Sprintf("\x00nested%d\x00", i), r, 1)
	}
	return strings.TrimSpace(excessNewlines.ReplaceAllString(text, "\n\n"))
}

func extractTOC(occ *MacroOccurrence) *ResolvedMacro {
	spec := &TOCSpec{
		MinLevel:  paramInt(occ, "minLevel", 1),
		MaxLevel:  paramInt(occ, "maxLevel", 7),
		Printable: !strings.EqualFold(occ.Param("type"), "flat"),
		Numbered:  strings.EqualFold(occ.Param("outline"), "true"),
		Separator: tocSeparator(occ.Param("separator")),
	}
	if spec.MinLevel > spec.MaxLevel {
		spec.MinLevel, spec.MaxLevel = spec.MaxLevel, spec.MinLevel
	}
	spec.MinLevel = min(max(spec.MinLevel, 1), 7)
	spec.MaxLevel = min(max(spec.MaxLevel, 1), 7)
	return &ResolvedMacro{Kind: KindTOC, TOC: spec}
}

// tocSeparator maps the separator parameter of a flat TOC.
func tocSeparator(s string) string {
	switch strings.ToLower(s) {
	case "", "brackets", "pipe":
		return " | "
	case "braces":
		return " } { "
	case "parens":
		return " ) ( "
	default:
		return " " + s + " "
	}
}

func paramInt(occ *MacroOccurrence, name string, def int) int {
	v := occ.Param(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// outermostRecognised returns registered macros in list, descending only
// through unregistered wrappers.
func outermostRecognised(list []*MacroOccurrence) []*MacroOccurrence {
	var out []*MacroOccurrence
	for _, m := range list {
		if _, ok := LookupMacro(m.Name); ok {
			out = append(out, m)
			continue
		}
		out = append(out, outermostRecognised(m.Children)...)
	}
	return out
}

func diagramLabel(mt MacroType) string {
	switch mt.Language {
	case "mermaid":
		return "Mermaid"
	case "plantuml":
		return "PlantUML"
	default:
		return mt.Name
	}
}

// trimBlankLines removes leading and trailing blank lines but keeps the
// indentation of the first line.
func trimBlankLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// Warnings returns the warnings recorded by Extract calls.
func (e *Extractor) Warnings() []string {
	return e.warnings
}

func (e *Extractor) warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	e.warnings = append(e.warnings, msg)
	if e.Logger != nil {
		e.Logger.Printf("WARN: %s", msg)
	}
}
