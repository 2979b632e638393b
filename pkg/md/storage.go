// storage.go rewrites storage-format elements into plain HTML for rendering
// storage documents without a view.
package md

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var (
	acImagePattern    = regexp.MustCompile(`(?s)<ac:image([^>]*)>(.*?)</ac:image>`)
	acLinkPattern     = regexp.MustCompile(`(?s)<ac:link([^>]*)>(.*?)</ac:link>|<ac:link([^>]*)/>`)
	acEmoticonPattern = regexp.MustCompile(`<ac:emoticon([^>]*?)/?>(?:</ac:emoticon>)?`)
	acParamPattern    = regexp.MustCompile(`(?s)<ac:parameter[^>]*>.*?</ac:parameter>|<ac:parameter[^>]*/>`)
	acPlaceholder     = regexp.MustCompile(`(?s)<ac:placeholder[^>]*>.*?</ac:placeholder>`)
	acTaskIDPattern   = regexp.MustCompile(`(?s)<ac:task-id>.*?</ac:task-id>`)
	acTaskStatus      = regexp.MustCompile(`(?s)<ac:task-status>\s*(\w+)\s*</ac:task-status>`)
	linkBodyPattern   = regexp.MustCompile(`(?s)<ac:(?:plain-text-)?link-body>(.*?)</ac:(?:plain-text-)?link-body>`)
	altAttrPattern    = regexp.MustCompile(`\sac:alt="([^"]*)"`)
	anchorAttrPattern = regexp.MustCompile(`\sac:anchor="([^"]*)"`)
	riURLPattern      = regexp.MustCompile(`<ri:url\s[^>]*ri:value="([^"]*)"`)
	riAttachPattern   = regexp.MustCompile(`<ri:attachment\s[^>]*ri:filename="([^"]*)"`)
	riPagePattern     = regexp.MustCompile(`<ri:page\s[^>]*ri:content-title="([^"]*)"`)
	emojiFallback     = regexp.MustCompile(`\sac:emoji-fallback="([^"]*)"`)
	emoticonName      = regexp.MustCompile(`\sac:name="([^"]*)"`)

	storageTagReplacer = strings.NewReplacer(
		"<ac:task-list>", "<ul>",
		"</ac:task-list>", "</ul>",
		"<ac:task>", "<li>",
		"</ac:task>", "</li>",
		"<ac:task-body>", "",
		"</ac:task-body>", "",
		"<ac:layout>", "",
		"</ac:layout>", "",
		"<ac:layout-cell>", "<div>",
		"</ac:layout-cell>", "</div>",
	)
	layoutSectionPattern = regexp.MustCompile(`</?ac:layout-section[^>]*>`)
)

// SimplifyStorage rewrites images, links, emoticons and tasks in storage
// markup as HTML and drops leftover macro parameters.
func SimplifyStorage(s string) string {
	s = acImagePattern.ReplaceAllStringFunc(s, func(m string) string {
		parts := acImagePattern.FindStringSubmatch(m)
		alt := attrValue(altAttrPattern, parts[1])
		if f := riAttachPattern.FindStringSubmatch(parts[2]); f != nil {
			name := html.UnescapeString(f[1])
			if alt == "" {
				alt = name
			}
			return fmt.Sprintf(`<img %s="%s" alt="%s">`, attrAsset, html.EscapeString(name), html.EscapeString(alt))
		}
		if u := riURLPattern.FindStringSubmatch(parts[2]); u != nil {
			return fmt.Sprintf(`<img src="%s" alt="%s">`, u[1], html.EscapeString(alt))
		}
		return ""
	})

	s = acLinkPattern.ReplaceAllStringFunc(s, func(m string) string {
		parts := acLinkPattern.FindStringSubmatch(m)
		attrs, inner := parts[1]+parts[3], parts[2]

		text := ""
		if b := linkBodyPattern.FindStringSubmatch(inner); b != nil {
			text = b[1]
			if strings.HasPrefix(text, "<![CDATA[") {
				text = html.EscapeString(ExtractCDATAContent(text))
			}
		}

		if f := riAttachPattern.FindStringSubmatch(inner); f != nil {
			name := html.UnescapeString(f[1])
			if text == "" {
				text = html.EscapeString(name)
			}
			return fmt.Sprintf(`<a href="#" %s="%s" %s="%s">%s</a>`, attrLink, LinkAttachment, attrAsset, html.EscapeString(name), text)
		}
		if text == "" {
			if p := riPagePattern.FindStringSubmatch(inner); p != nil {
				text = p[1]
			}
		}
		if anchor := attrValue(anchorAttrPattern, attrs); anchor != "" {
			if text == "" {
				text = html.EscapeString(anchor)
			}
			return fmt.Sprintf(`<a href="#%s">%s</a>`, html.EscapeString(Slugify(anchor)), text)
		}
		return text
	})

	s = acEmoticonPattern.ReplaceAllStringFunc(s, func(m string) string {
		if v := attrValue(emojiFallback, m); v != "" {
			return html.EscapeString(v)
		}
		if v := attrValue(emoticonName, m); v != "" {
			return ":" + v + ":"
		}
		return ""
	})

	s = acTaskIDPattern.ReplaceAllString(s, "")
	s = acTaskStatus.ReplaceAllStringFunc(s, func(m string) string {
		if strings.Contains(m, "incomplete") {
			return "[ ] "
		}
		return "[x] "
	})
	s = storageTagReplacer.Replace(s)
	s = layoutSectionPattern.ReplaceAllString(s, "")
	s = acParamPattern.ReplaceAllString(s, "")
	s = acPlaceholder.ReplaceAllString(s, "")
	return s
}
