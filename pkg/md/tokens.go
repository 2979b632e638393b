// tokens.go defines token types for pattern-based storage parsing.
package md

// XMLTokenType represents token types for Confluence XML parsing.
type XMLTokenType int

const (
	XMLTokenText      XMLTokenType = iota // text/HTML between macros
	XMLTokenOpenTag                       // <ac:structured-macro ac:name="...">
	XMLTokenCloseTag                      // </ac:structured-macro>
	XMLTokenParameter                     // <ac:parameter ac:name="...">value</ac:parameter>
	XMLTokenBody                          // <ac:rich-text-body> or <ac:plain-text-body>
	XMLTokenBodyEnd                       // </ac:rich-text-body> or </ac:plain-text-body>
	XMLTokenCDATA                         // <![CDATA[...]]>
)

// XMLToken represents a single token from Confluence XML parsing.
type XMLToken struct {
	Type      XMLTokenType
	MacroName string // set for OpenTag
	MacroID   string // set for OpenTag when ac:macro-id is present
	ParamName string // set for Parameter
	Value     string // parameter value or body kind
	Text      string // set for Text and CDATA tokens
	Position  int    // byte offset of the token start in the original input
	End       int    // byte offset just past the token
}
