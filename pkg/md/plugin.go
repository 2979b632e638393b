// plugin.go holds the html-to-markdown rules for Confluence view HTML.
package md

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/dom"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"golang.org/x/net/html"
)

// DefaultAssetsDir is the directory, relative to the Markdown file, that
// attachment links and images point into.
const DefaultAssetsDir = "assets"

// ConfluencePlugin renders the elements annotated by the injector.
type ConfluencePlugin struct {
	AssetsDir string
}

// NewConfluencePlugin returns a plugin writing asset links into assetsDir.
func NewConfluencePlugin(assetsDir string) *ConfluencePlugin {
	if assetsDir == "" {
		assetsDir = DefaultAssetsDir
	}
	return &ConfluencePlugin{AssetsDir: assetsDir}
}

// Name implements converter.Plugin.
func (p *ConfluencePlugin) Name() string {
	return "confluence"
}

// Init implements converter.Plugin.
func (p *ConfluencePlugin) Init(conv *converter.Converter) error {
	conv.Register.RendererFor("code", converter.TagTypeInline, p.handlePlaceholder, converter.PriorityEarly)
	conv.Register.RendererFor("img", converter.TagTypeInline, p.handleImage, converter.PriorityEarly)
	conv.Register.RendererFor("a", converter.TagTypeInline, p.handleLink, converter.PriorityEarly)
	conv.Register.RendererFor("table", converter.TagTypeBlock, p.handleTable, converter.PriorityEarly)
	conv.Register.RendererFor("blockquote", converter.TagTypeBlock, p.handleBlockquote, converter.PriorityEarly)
	return nil
}

// handlePlaceholder writes placeholder tokens untouched.
func (p *ConfluencePlugin) handlePlaceholder(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	if !hasAttribute(n, attrPlaceholder) {
		return converter.RenderTryNext
	}
	_, _ = w.WriteString(strings.TrimSpace(nodeText(n)))
	return converter.RenderSuccess
}

func (p *ConfluencePlugin) handleImage(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	asset := dom.GetAttributeOr(n, attrAsset, "")
	if asset == "" {
		return converter.RenderTryNext
	}

	alt := dom.GetAttributeOr(n, "alt", "")
	if alt == "" {
		alt = asset
	}
	alt = strings.NewReplacer("[", `\[`, "]", `\]`, "\n", " ").Replace(alt)

	_, _ = fmt.Fprintf(w, "![%s](%s)", alt, p.assetPath(asset))
	return converter.RenderSuccess
}

func (p *ConfluencePlugin) handleLink(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	switch dom.GetAttributeOr(n, attrLink, "") {
	case LinkAttachment:
		asset := dom.GetAttributeOr(n, attrAsset, "")
		text := p.renderInline(ctx, n)
		if text == "" {
			text = asset
		}
		_, _ = fmt.Fprintf(w, "[%s](%s)", text, p.assetPath(asset))
		return converter.RenderSuccess

	case LinkInternal:
		href := dom.GetAttributeOr(n, "href", "")
		text := p.renderInline(ctx, n)
		if text == "" {
			text = href
		}
		_, _ = fmt.Fprintf(w, "[%s](%s)", text, linkDestination(href))
		if id := dom.GetAttributeOr(n, attrPageID, ""); id != "" {
			_, _ = fmt.Fprintf(w, " <!-- confluence-page-id: %s -->", id)
		}
		return converter.RenderSuccess
	}
	return converter.RenderTryNext
}

func (p *ConfluencePlugin) renderInline(ctx converter.Context, n *html.Node) string {
	var buf strings.Builder
	ctx.RenderChildNodes(ctx, &buf, n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

// handleTable emits a rectangular pipe table. The column count is the
// longest row (colspans expanded); short rows are padded with blank cells.
// The first row is the header.
func (p *ConfluencePlugin) handleTable(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	var rows [][]string
	for _, tr := range tableRows(n) {
		var row []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
				continue
			}
			var buf strings.Builder
			ctx.RenderChildNodes(ctx, &buf, c)
			row = append(row, tableCell(buf.String()))
			for i := 1; i < colspan(c); i++ {
				row = append(row, " ")
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return converter.RenderTryNext
	}

	_, _ = w.WriteString("\n\n")
	_, _ = w.WriteString(FormatTable(rows))
	_, _ = w.WriteString("\n\n")
	return converter.RenderSuccess
}

// FormatTable writes rows as a Markdown table, padding every row to the
// length of the longest one.
func FormatTable(rows [][]string) string {
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}

	var sb strings.Builder
	for i, row := range rows {
		for len(row) < cols {
			row = append(row, " ")
		}
		sb.WriteString("| ")
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteString(" |\n")

		if i == 0 {
			sb.WriteString("|")
			for j := 0; j < cols; j++ {
				sb.WriteString(" --- |")
			}
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (p *ConfluencePlugin) handleBlockquote(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	var buf strings.Builder
	ctx.RenderChildNodes(ctx, &buf, n)
	content := strings.TrimSpace(buf.String())
	if content == "" {
		return converter.RenderSuccess
	}

	_, _ = w.WriteString("\n\n")
	_, _ = w.WriteString(Blockquote(content))
	_, _ = w.WriteString("\n\n")
	return converter.RenderSuccess
}

// assetPath returns the relative link to an asset, wrapped in angle
// brackets when the name contains characters a bare destination cannot hold.
func (p *ConfluencePlugin) assetPath(name string) string {
	return linkDestination("./" + p.AssetsDir + "/" + name)
}

func linkDestination(dest string) string {
	if strings.ContainsAny(dest, " ()<>") {
		return "<" + strings.NewReplacer("<", `\<`, ">", `\>`).Replace(dest) + ">"
	}
	return dest
}

// tableCell flattens rendered cell content to one line and escapes pipes.
func tableCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(strings.ReplaceAll(s, `\|`, "|"), "|", `\|`)
	if s == "" {
		return " "
	}
	return s
}

// tableRows returns the tr elements of a table, looking through thead,
// tbody and tfoot but not into nested tables.
func tableRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	for c := table.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "tr":
			rows = append(rows, c)
		case "thead", "tbody", "tfoot":
			for tr := c.FirstChild; tr != nil; tr = tr.NextSibling {
				if tr.Type == html.ElementNode && tr.Data == "tr" {
					rows = append(rows, tr)
				}
			}
		}
	}
	return rows
}

func colspan(n *html.Node) int {
	var span int
	if _, err := fmt.Sscanf(dom.GetAttributeOr(n, "colspan", "1"), "%d", &span); err != nil || span < 1 {
		return 1
	}
	return span
}

func hasAttribute(n *html.Node, key string) bool {
	_, ok := dom.GetAttribute(n, key)
	return ok
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
