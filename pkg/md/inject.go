// inject.go places placeholder tokens into the view document.
package md

import (
	"fmt"
	"html"
	"log"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Data attributes read by the Markdown renderer.
const (
	attrPlaceholder = "data-cfmd-placeholder"
	attrTable       = "data-cfmd-table"
	attrLink        = "data-cfmd-link"
	attrPageID      = "data-cfmd-page-id"
	attrAsset       = "data-cfmd-asset"
)

// Link classes written to data-cfmd-link.
const (
	LinkInternal   = "internal"
	LinkAttachment = "attachment"
	LinkExternal   = "external"
	LinkAnchor     = "anchor"
)

// chromeSelectors are Confluence UI elements removed before rendering.
var chromeSelectors = []string{
	"script",
	"style",
	"noscript",
	".expand-control-icon",
	".expand-control-image",
	"span.confluence-anchor-link",
	".page-metadata",
	"#likes-and-labels-container",
	"#labels-section",
	".like-button-container",
	".aui-icon",
	"[hidden]",
	`[style*="display:none"]`,
	`[style*="display: none"]`,
}

// containerSelectors are the view-format elements each group renders as,
// beyond the data-macro-name attribute Confluence Cloud adds.
var containerSelectors = map[Group][]string{
	GroupPanel: {
		"div.confluence-information-macro",
		"div.expand-container",
		"div.panel:not(.code):not(.preformatted)",
	},
	GroupTOC: {
		"div.toc-macro",
		"div.client-side-toc-macro",
	},
	GroupDiagram: {
		"div.mermaid-macro",
		"div.mermaid",
		"div.plantuml-macro",
	},
	GroupDiagramRef: {
		"div.drawio-macro",
		"div.gliffy-container",
		"div.gliffy-macro",
		"div.lucidchart-macro",
	},
	GroupCode: {
		"div.code.panel",
		"div.preformatted.panel",
		"div.codeContent",
		"pre.syntaxhighlighter-pre",
	},
}

var (
	// /download/attachments/{pageId}/{file} and /download/thumbnails/{pageId}/{file}
	attachmentURLPattern = regexp.MustCompile(`/download/(?:attachments|thumbnails)/\d+/([^?#]+)`)
	// /wiki/spaces/{key}/pages/{id} or /spaces/{key}/pages/{id}/{title}
	pageURLPattern = regexp.MustCompile(`/spaces/[^/]+/pages/(\d+)`)
	// /pages/viewpage.action?pageId={id}
	viewPageURLPattern = regexp.MustCompile(`viewpage\.action\?(?:.*&)?pageId=(\d+)`)
)

// InjectReport describes how tokens were matched to view containers.
type InjectReport struct {
	ByID       int           // tokens matched through data-macro-id
	Positional int           // tokens matched by document order
	Containers map[Group]int // containers found per group
	Tokens     map[Group]int // tokens registered per group
	Unmatched  []Token       // tokens with no container
	Assets     []string      // attachment filenames referenced by links and images
	Warnings   []string
}

// Injector rewrites view HTML for rendering.
type Injector struct {
	Logger *log.Logger
}

// Inject runs an Injector with the given logger.
func Inject(view string, reg *Registry, logger *log.Logger) (string, InjectReport, error) {
	return (&Injector{Logger: logger}).Inject(view, reg)
}

// Inject removes chrome, annotates tables, links and images, and replaces
// each macro container with the placeholder of its token. Groups are
// processed outermost first; containers nested in an already replaced
// container disappear with it.
func (inj *Injector) Inject(view string, reg *Registry) (string, InjectReport, error) {
	report := InjectReport{
		Containers: make(map[Group]int),
		Tokens:     make(map[Group]int),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(view))
	if err != nil {
		return "", report, fmt.Errorf("failed to parse view HTML: %w", err)
	}
	body := doc.Find("body")

	body.Find(strings.Join(chromeSelectors, ", ")).Remove()

	for _, group := range injectionOrder {
		inj.injectGroup(body, reg, group, &report)
	}

	body.Find("table").SetAttr(attrTable, "true")
	assets := make(map[string]bool)
	body.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		annotateLink(a, assets)
	})
	body.Find("img").Each(func(_ int, img *goquery.Selection) {
		annotateImage(img, assets)
	})
	report.Assets = sortedKeys(assets)

	out, err := body.Html()
	if err != nil {
		return "", report, fmt.Errorf("failed to serialize view HTML: %w", err)
	}
	return out, report, nil
}

func (inj *Injector) injectGroup(body *goquery.Selection, reg *Registry, group Group, report *InjectReport) {
	tokens := reg.Tokens(group)
	report.Tokens[group] = len(tokens)

	containers := outermost(body.Find(groupSelector(group)))
	report.Containers[group] = len(containers)
	if len(tokens) == 0 {
		return
	}
	if len(tokens) != len(containers) {
		inj.warn(report, "%s: %d macros in storage, %d containers in view", group, len(tokens), len(containers))
	}

	used := make([]bool, len(containers))
	matched := make(map[Token]bool)

	// Macro ids first.
	for _, t := range tokens {
		r, _ := reg.Resolve(t)
		if r == nil || r.MacroID == "" {
			continue
		}
		for i, c := range containers {
			if used[i] {
				continue
			}
			if id, ok := c.Attr("data-macro-id"); ok && id == r.MacroID {
				replaceContainer(c, t)
				used[i] = true
				matched[t] = true
				report.ByID++
				break
			}
		}
	}

	// Remaining tokens pair with remaining containers in document order.
	next := 0
	for _, t := range tokens {
		if matched[t] {
			continue
		}
		for next < len(containers) && used[next] {
			next++
		}
		if next >= len(containers) {
			report.Unmatched = append(report.Unmatched, t)
			inj.warn(report, "no view container for %s macro (token %s)", group, t)
			continue
		}
		replaceContainer(containers[next], t)
		used[next] = true
		report.Positional++
	}
}

// groupSelector joins the data-macro-name selectors of every registered
// macro in group with the group's class selectors.
func groupSelector(group Group) string {
	var sels []string
	for _, name := range sortedKeys(MacroRegistry) {
		if MacroRegistry[name].Group == group {
			sels = append(sels, fmt.Sprintf(`[data-macro-name=%q]`, name))
		}
	}
	sels = append(sels, containerSelectors[group]...)
	return strings.Join(sels, ", ")
}

// outermost drops elements nested inside another element of sel.
func outermost(sel *goquery.Selection) []*goquery.Selection {
	var out []*goquery.Selection
	sel.Each(func(_ int, s *goquery.Selection) {
		nested := false
		for p := s.Parent(); p.Length() > 0; p = p.Parent() {
			if sel.IsSelection(p) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, s)
		}
	})
	return out
}

func replaceContainer(c *goquery.Selection, t Token) {
	c.ReplaceWithHtml(fmt.Sprintf(`<p><code %s="true">%s</code></p>`, attrPlaceholder, t.Placeholder()))
}

// ClassifyLink returns the link class of href and, for internal links, the
// page id or, for attachments, the decoded filename.
func ClassifyLink(href string) (class, ref string) {
	switch {
	case strings.HasPrefix(href, "#"):
		return LinkAnchor, strings.TrimPrefix(href, "#")
	case attachmentURLPattern.MatchString(href):
		return LinkAttachment, attachmentName(attachmentURLPattern.FindStringSubmatch(href)[1])
	case pageURLPattern.MatchString(href):
		return LinkInternal, pageURLPattern.FindStringSubmatch(href)[1]
	case viewPageURLPattern.MatchString(href):
		return LinkInternal, viewPageURLPattern.FindStringSubmatch(href)[1]
	default:
		return LinkExternal, ""
	}
}

func annotateLink(a *goquery.Selection, assets map[string]bool) {
	href, _ := a.Attr("href")
	class, ref := ClassifyLink(href)

	if class == LinkExternal {
		if kind, _ := a.Attr("data-linked-resource-type"); kind == "page" {
			if id, ok := a.Attr("data-linked-resource-id"); ok {
				class, ref = LinkInternal, id
			}
		}
	}

	a.SetAttr(attrLink, class)
	switch class {
	case LinkInternal:
		a.SetAttr(attrPageID, ref)
	case LinkAttachment:
		a.SetAttr(attrAsset, ref)
		assets[ref] = true
	}
}

func annotateImage(img *goquery.Selection, assets map[string]bool) {
	if img.HasClass("emoticon") {
		text, ok := img.Attr("data-emoji-fallback")
		if !ok || text == "" {
			text, _ = img.Attr("alt")
		}
		img.ReplaceWithHtml(html.EscapeString(text))
		return
	}

	name := ""
	if kind, _ := img.Attr("data-linked-resource-type"); kind == "attachment" {
		name, _ = img.Attr("data-linked-resource-default-alias")
	}
	if name == "" {
		src, _ := img.Attr("src")
		if m := attachmentURLPattern.FindStringSubmatch(src); m != nil {
			name = attachmentName(m[1])
		}
	}
	if name == "" {
		return
	}
	img.SetAttr(attrAsset, name)
	assets[name] = true
}

// attachmentName returns the percent-decoded base name of an attachment path.
func attachmentName(p string) string {
	name := path.Base(p)
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (inj *Injector) warn(report *InjectReport, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	report.Warnings = append(report.Warnings, msg)
	if inj.Logger != nil {
		inj.Logger.Printf("WARN: %s", msg)
	}
}
