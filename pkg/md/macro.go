// macro.go defines the core data structures for macro parsing.
package md

import "strings"

// BodyKind indicates how a macro's body content should be handled.
type BodyKind string

const (
	BodyNone      BodyKind = ""           // no body (e.g., TOC)
	BodyRichText  BodyKind = "rich-text"  // nested XHTML (e.g., panels)
	BodyPlainText BodyKind = "plain-text" // literal CDATA content (e.g., code)
)

// MacroOccurrence is one macro found in a storage-format document.
type MacroOccurrence struct {
	Name       string            // lowercase macro name: "mermaid", "code", "info", ...
	Parameters map[string]string // ac:parameter values keyed by name
	Body       string            // plain text (decoded) or raw inner XHTML
	BodyKind   BodyKind
	Span       string // exact original substring of the storage document
	Offset     int    // byte offset of Span in the storage document
	Index      int    // document-order ordinal among all occurrences
	MacroID    string // ac:macro-id, empty when absent
	Children   []*MacroOccurrence

	bodyOffset int // byte offset of a rich-text Body in the storage document
}

// Param returns the first non-empty parameter among names.
func (m *MacroOccurrence) Param(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(m.Parameters[name]); v != "" {
			return v
		}
	}
	return ""
}

// Group is the correlation group a macro belongs to. Storage and view
// documents are matched group by group.
type Group string

const (
	GroupDiagram    Group = "diagram"
	GroupDiagramRef Group = "diagram-ref"
	GroupCode       Group = "code"
	GroupPanel      Group = "panel"
	GroupTOC        Group = "toc"
)

// injectionOrder lists groups outermost-first: panels can wrap code and
// diagrams, so they are replaced before their contents are looked up.
var injectionOrder = []Group{GroupPanel, GroupTOC, GroupDiagram, GroupDiagramRef, GroupCode}

// MacroType defines the behavior for a specific macro.
type MacroType struct {
	Name     string // canonical lowercase name
	Group    Group
	BodyKind BodyKind

	Language    string // fence language for diagrams, default language for code
	NoHighlight bool   // language is always empty regardless of parameters

	Symbol string // panel marker symbol
	Label  string // panel marker label
}

// MacroRegistry maps macro names to their type definitions.
// Adding a new macro = adding one entry here.
var MacroRegistry = map[string]MacroType{
	// diagram source
	"mermaid":         {Name: "mermaid", Group: GroupDiagram, BodyKind: BodyPlainText, Language: "mermaid"},
	"mermaid-cloud":   {Name: "mermaid-cloud", Group: GroupDiagram, BodyKind: BodyPlainText, Language: "mermaid"},
	"mermaid-macro":   {Name: "mermaid-macro", Group: GroupDiagram, BodyKind: BodyPlainText, Language: "mermaid"},
	"mermaid-diagram": {Name: "mermaid-diagram", Group: GroupDiagram, BodyKind: BodyPlainText, Language: "mermaid"},
	"plantuml":        {Name: "plantuml", Group: GroupDiagram, BodyKind: BodyPlainText, Language: "plantuml"},

	// diagram references (binary or XML blobs, never embedded)
	"drawio":        {Name: "drawio", Group: GroupDiagramRef, Label: "draw.io"},
	"drawio-sketch": {Name: "drawio-sketch", Group: GroupDiagramRef, Label: "draw.io"},
	"inc-drawio":    {Name: "inc-drawio", Group: GroupDiagramRef, Label: "draw.io"},
	"gliffy":        {Name: "gliffy", Group: GroupDiagramRef, Label: "Gliffy"},
	"lucidchart":    {Name: "lucidchart", Group: GroupDiagramRef, Label: "Lucidchart"},

	// code and preformatted text
	"code":         {Name: "code", Group: GroupCode, BodyKind: BodyPlainText},
	"noformat":     {Name: "noformat", Group: GroupCode, BodyKind: BodyPlainText, NoHighlight: true},
	"preformatted": {Name: "preformatted", Group: GroupCode, BodyKind: BodyPlainText, NoHighlight: true},
	"html":         {Name: "html", Group: GroupCode, BodyKind: BodyPlainText, Language: "html"},
	"xml":          {Name: "xml", Group: GroupCode, BodyKind: BodyPlainText, Language: "xml"},
	"sql":          {Name: "sql", Group: GroupCode, BodyKind: BodyPlainText, Language: "sql"},

	// panels
	"info":    {Name: "info", Group: GroupPanel, BodyKind: BodyRichText, Symbol: "ℹ️", Label: "Info"},
	"warning": {Name: "warning", Group: GroupPanel, BodyKind: BodyRichText, Symbol: "⚠️", Label: "Warning"},
	"note":    {Name: "note", Group: GroupPanel, BodyKind: BodyRichText, Symbol: "📝", Label: "Note"},
	"tip":     {Name: "tip", Group: GroupPanel, BodyKind: BodyRichText, Symbol: "💡", Label: "Tip"},
	"expand":  {Name: "expand", Group: GroupPanel, BodyKind: BodyRichText, Symbol: "🔽", Label: "Details"},
	"panel":   {Name: "panel", Group: GroupPanel, BodyKind: BodyRichText, Symbol: "📋", Label: "Panel"},

	"toc": {Name: "toc", Group: GroupTOC},
}

// LookupMacro returns the MacroType for a given name, normalizing to lowercase.
// Returns ok=false if macro is not registered.
func LookupMacro(name string) (MacroType, bool) {
	mt, ok := MacroRegistry[strings.ToLower(strings.TrimSpace(name))]
	return mt, ok
}
