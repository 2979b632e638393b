package md

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// removeTags are dropped with their content during rendering.
var removeTags = []string{"script", "style", "noscript", "iframe", "button"}

// Renderer converts injected view HTML to Markdown.
type Renderer struct {
	conv *converter.Converter
}

// NewRenderer returns a Renderer whose asset links point into assetsDir.
func NewRenderer(assetsDir string) *Renderer {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			strikethrough.NewStrikethroughPlugin(),
			table.NewTablePlugin(),
			NewConfluencePlugin(assetsDir),
		),
	)
	for _, tag := range removeTags {
		conv.Register.TagType(tag, converter.TagTypeRemove, converter.PriorityStandard)
	}
	return &Renderer{conv: conv}
}

// Render converts html to Markdown.
func (r *Renderer) Render(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	markdown, err := r.conv.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}
