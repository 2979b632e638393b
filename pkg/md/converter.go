// Package md converts Confluence pages to Markdown.
//
// A page arrives as two documents: the storage format, which holds macro
// sources, and the rendered view, which holds everything else in its final
// form. Macros are parsed from storage and registered under placeholder
// tokens; the tokens are injected into the view at the macro containers,
// the view is rendered to Markdown, and the tokens are replaced with
// fenced or quoted content.
package md

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Document-fatal errors.
var (
	ErrMissingStorage = errors.New("page has no storage format body")
	ErrMissingView    = errors.New("page has no view format body")
)

// DefaultExportedBy is written to exportedBy when no other value is set.
const DefaultExportedBy = "cfmd"

// Document is one page to convert.
type Document struct {
	Storage  string
	View     string
	Metadata PageMetadata
}

// ConvertedDocument is the result of a conversion.
type ConvertedDocument struct {
	Markdown    string // frontmatter and body
	Body        string
	Frontmatter Frontmatter
	Stats       MacroStats
	Assets      []string // attachment filenames referenced by links and images
	Warnings    []string
}

// Converter runs the conversion pipeline. A Converter holds no per-page
// state and may be shared; every call creates its own registry.
type Converter struct {
	parser     MacroParser
	logger     *log.Logger
	assetsDir  string
	now        func() time.Time
	exportedBy string
}

// Option configures a Converter.
type Option func(*Converter)

// WithParser sets the storage-format parser.
func WithParser(p MacroParser) Option {
	return func(c *Converter) { c.parser = p }
}

// WithLogger sets the logger warnings are written to.
func WithLogger(l *log.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// WithAssetsDir sets the directory asset links point into.
func WithAssetsDir(dir string) Option {
	return func(c *Converter) { c.assetsDir = dir }
}

// WithClock sets the time source for exportedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) { c.now = now }
}

// WithExportedBy sets the exportedBy frontmatter value.
func WithExportedBy(name string) Option {
	return func(c *Converter) { c.exportedBy = name }
}

// NewConverter returns a Converter with the given options.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		assetsDir:  DefaultAssetsDir,
		now:        time.Now,
		exportedBy: DefaultExportedBy,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = loggerOrDiscard(c.logger)
	if c.parser == nil {
		c.parser = NewAutoParser(c.logger)
	}
	return c
}

// Convert converts doc, reading diagram attachments from cache.
func (c *Converter) Convert(doc *Document, cache AttachmentCache) (*ConvertedDocument, error) {
	if doc == nil || strings.TrimSpace(doc.Storage) == "" {
		return nil, ErrMissingStorage
	}
	if strings.TrimSpace(doc.View) == "" {
		return nil, ErrMissingView
	}

	out := &ConvertedDocument{}
	reg := NewRegistry()

	parsed, err := c.parser.Parse(doc.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to parse storage format: %w", err)
	}
	out.Warnings = append(out.Warnings, parsed.Warnings...)

	ext := &Extractor{Cache: cache, Logger: c.logger}
	for _, occ := range parsed.ResolvableMacros() {
		r := ext.Extract(occ)
		if r == nil {
			continue
		}
		if !r.Valid() {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s macro resolved to nothing", occ.Name))
			continue
		}
		out.Stats.Add(r)
		reg.Register(r)
	}
	out.Warnings = append(out.Warnings, ext.Warnings()...)

	injected, injectReport, err := Inject(doc.View, reg, c.logger)
	if err != nil {
		return nil, err
	}
	out.Warnings = append(out.Warnings, injectReport.Warnings...)
	out.Assets = injectReport.Assets

	rendered, err := NewRenderer(c.assetsDir).Render(injected)
	if err != nil {
		return nil, err
	}

	body, resolveReport := Resolve(rendered, reg, c.logger)
	out.Warnings = append(out.Warnings, resolveReport.Warnings...)
	out.Body = CleanMarkdown(body)

	out.Frontmatter = NewFrontmatter(doc.Metadata, out.Stats, c.now(), c.exportedBy)
	header, err := out.Frontmatter.Render()
	if err != nil {
		return nil, err
	}
	out.Markdown = CleanMarkdown(header + "\n" + out.Body)
	return out, nil
}

// FromConfluenceStorage converts a storage document without a view. Macros
// are replaced in the storage text, by position, with their placeholders;
// the rest of the storage markup is rendered directly.
func (c *Converter) FromConfluenceStorage(storage string, cache AttachmentCache) (string, error) {
	if strings.TrimSpace(storage) == "" {
		return "", nil
	}

	parsed, err := c.parser.Parse(storage)
	if err != nil {
		return "", fmt.Errorf("failed to parse storage format: %w", err)
	}

	reg := NewRegistry()
	ext := &Extractor{Cache: cache, Logger: c.logger}
	resolvable := make(map[*MacroOccurrence]bool)
	for _, occ := range parsed.ResolvableMacros() {
		resolvable[occ] = true
	}

	html := parsed.ReplaceMacros(func(m *MacroOccurrence) (string, bool) {
		if !resolvable[m] {
			return "", false
		}
		r := ext.Extract(m)
		if !r.Valid() {
			return "", true
		}
		t := reg.Register(r)
		return fmt.Sprintf(`<p><code %s="true">%s</code></p>`, attrPlaceholder, t.Placeholder()), true
	})

	rendered, err := NewRenderer(c.assetsDir).Render(SimplifyStorage(html))
	if err != nil {
		return "", err
	}
	body, _ := Resolve(rendered, reg, c.logger)
	return strings.TrimSpace(CleanMarkdown(body)), nil
}

// FromConfluenceStorage converts a storage document with default options.
func FromConfluenceStorage(storage string) (string, error) {
	return NewConverter().FromConfluenceStorage(storage, nil)
}
