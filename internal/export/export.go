// Package export fetches Confluence pages and writes them as Markdown files.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/open-cli-collective/confluence-md/api"
	"github.com/open-cli-collective/confluence-md/pkg/md"
)

// ErrNoPages is returned when a filtered space export matches nothing.
var ErrNoPages = errors.New("no pages matched the filter")

// Options configures an Exporter.
type Options struct {
	OutputDir     string
	AssetsDir     string
	Concurrency   int
	SkipUnchanged bool
	SkipAssets    bool
	ExportedBy    string
	Logger        *log.Logger
	Now           func() time.Time

	// OnPage is called after each page finishes. Calls are serialised.
	OnPage func(PageResult)
}

// Filter narrows a space export. Empty fields match every page.
type Filter struct {
	Label string
	Title string
	CQL   string
}

func (f Filter) empty() bool {
	return f.Label == "" && f.Title == "" && f.CQL == ""
}

// Exporter writes pages fetched through an api.Client.
type Exporter struct {
	client *api.Client
	conv   *md.Converter
	opts   Options
	logger *log.Logger

	// mu guards OnPage calls and path claims.
	mu sync.Mutex
}

// New returns an Exporter. Zero options take their defaults.
func New(client *api.Client, opts Options) *Exporter {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.AssetsDir == "" {
		opts.AssetsDir = md.DefaultAssetsDir
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.ExportedBy == "" {
		opts.ExportedBy = md.DefaultExportedBy
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Exporter{
		client: client,
		conv: md.NewConverter(
			md.WithLogger(logger),
			md.WithAssetsDir(filepath.ToSlash(opts.AssetsDir)),
			md.WithClock(opts.Now),
			md.WithExportedBy(opts.ExportedBy),
		),
		opts:   opts,
		logger: logger,
	}
}

// pageRef is a page queued for export.
type pageRef struct {
	ID       string
	Title    string
	Version  int
	SpaceKey string
	Path     string
}

// ExportPage exports a single page and writes a manifest for it.
func (e *Exporter) ExportPage(ctx context.Context, pageID string) (*Manifest, error) {
	return e.ExportPages(ctx, []string{pageID})
}

// ExportPages exports the given pages and writes a manifest for them.
// Titles are unknown until each page is fetched, so colliding slugs are
// resolved in completion order.
func (e *Exporter) ExportPages(ctx context.Context, pageIDs []string) (*Manifest, error) {
	refs := make([]pageRef, len(pageIDs))
	for i, id := range pageIDs {
		refs[i] = pageRef{ID: id}
	}
	return e.run(ctx, "", refs)
}

// ExportSpace exports every current page of a space, or the pages matching
// filter, with at most Concurrency pages in flight. A failed page is
// recorded in the manifest and the rest continue.
func (e *Exporter) ExportSpace(ctx context.Context, keyOrID string, filter Filter) (*Manifest, error) {
	space, err := e.client.ResolveSpace(ctx, keyOrID)
	if err != nil {
		return nil, fmt.Errorf("failed to find space %s: %w", keyOrID, err)
	}

	pages, err := e.client.ListAllPages(ctx, space.ID, "current")
	if err != nil {
		return nil, fmt.Errorf("failed to list pages in %s: %w", space.Key, err)
	}

	if !filter.empty() {
		ids, err := e.client.SearchPageIDs(ctx, api.SearchOptions{
			CQL:   filter.CQL,
			Space: space.Key,
			Label: filter.Label,
			Title: filter.Title,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search pages in %s: %w", space.Key, err)
		}
		pages = keepPages(pages, ids)
		if len(pages) == 0 {
			return nil, fmt.Errorf("%w in space %s", ErrNoPages, space.Key)
		}
	}

	return e.run(ctx, space.Key, planPaths(pages, space.Key))
}

// run exports refs with at most Concurrency pages in flight and writes
// the manifest.
func (e *Exporter) run(ctx context.Context, spaceKey string, refs []pageRef) (*Manifest, error) {
	manifest := e.newManifest(spaceKey)
	manifest.Pages = make([]PageResult, len(refs))
	used := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ref.Path != "" {
			used[strings.TrimSuffix(ref.Path, ".md")] = true
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			manifest.Pages[i] = e.exportRef(gctx, ref, used)
			e.report(manifest.Pages[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := WriteManifest(e.opts.OutputDir, manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (e *Exporter) newManifest(spaceKey string) *Manifest {
	return &Manifest{
		Space:      spaceKey,
		ExportedAt: e.opts.Now().UTC().Format(time.RFC3339),
		ExportedBy: e.opts.ExportedBy,
	}
}

func (e *Exporter) report(r PageResult) {
	if r.Failed() {
		e.logger.Printf("WARN: page %s: %s", r.ID, r.Error)
	}
	if e.opts.OnPage == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.OnPage(r)
}

// exportRef fetches, converts and writes one page. Errors are recorded on
// the result rather than returned.
func (e *Exporter) exportRef(ctx context.Context, ref pageRef, used map[string]bool) PageResult {
	result := PageResult{ID: ref.ID, Title: ref.Title, Version: ref.Version, Path: ref.Path}

	if skipped, ok := e.unchanged(ref); ok {
		return skipped
	}

	page, err := e.client.GetPageContent(ctx, ref.ID)
	if err != nil {
		result.Error = fmt.Sprintf("failed to fetch page: %v", err)
		return result
	}
	result.Title = page.Title
	result.Version = page.VersionNumber()

	if ref.SpaceKey == "" {
		ref.SpaceKey = e.spaceKey(ctx, page.SpaceID, &result)
	}
	if ref.Path == "" {
		e.mu.Lock()
		ref.Path = pagePath(page.Title, page.ID, used)
		e.mu.Unlock()
		result.Path = ref.Path
	}
	ref.Version = result.Version
	if skipped, ok := e.unchanged(ref); ok {
		return skipped
	}

	out, atts, err := e.convert(ctx, page, ref.SpaceKey, &result)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Macros = out.Stats
	result.Warnings = append(result.Warnings, out.Warnings...)

	dest := filepath.Join(e.opts.OutputDir, filepath.FromSlash(ref.Path))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		result.Error = fmt.Sprintf("failed to create output directory: %v", err)
		return result
	}
	if err := os.WriteFile(dest, []byte(out.Markdown), 0644); err != nil {
		result.Error = fmt.Sprintf("failed to write %s: %v", ref.Path, err)
		return result
	}

	if !e.opts.SkipAssets {
		written, warnings := e.downloadAssets(ctx, out.Assets, atts)
		result.Assets = written
		result.Warnings = append(result.Warnings, warnings...)
	}
	return result
}

// Convert fetches one page and converts it without writing anything.
// Attachment and label failures are returned as warnings on the document.
func (e *Exporter) Convert(ctx context.Context, pageID string) (*md.ConvertedDocument, error) {
	page, err := e.client.GetPageContent(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}

	var result PageResult
	spaceKey := e.spaceKey(ctx, page.SpaceID, &result)
	out, _, err := e.convert(ctx, page, spaceKey, &result)
	if err != nil {
		return nil, err
	}
	out.Warnings = append(result.Warnings, out.Warnings...)
	return out, nil
}

// convert gathers a page's labels and diagram sources and runs the
// converter. Non-fatal problems are appended to result.Warnings.
func (e *Exporter) convert(ctx context.Context, page *api.Page, spaceKey string, result *PageResult) (*md.ConvertedDocument, []api.Attachment, error) {
	var labels []string
	if ls, err := e.client.GetPageLabels(ctx, page.ID); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("failed to fetch labels: %v", err))
	} else {
		for _, l := range ls {
			labels = append(labels, l.Name)
		}
	}

	atts, err := e.client.ListAllAttachments(ctx, page.ID)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("failed to list attachments: %v", err))
	}
	cache, warnings := e.prefetchDiagrams(ctx, atts)
	result.Warnings = append(result.Warnings, warnings...)

	doc := &md.Document{
		Storage:  page.StorageBody(),
		View:     page.ViewBody(),
		Metadata: e.metadata(page, spaceKey, labels),
	}
	out, err := e.conv.Convert(doc, cache)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to convert page: %w", err)
	}
	return out, atts, nil
}

// unchanged reports whether the file at ref.Path already holds this
// version of the page. The returned result carries the stored macro counts.
func (e *Exporter) unchanged(ref pageRef) (PageResult, bool) {
	if !e.opts.SkipUnchanged || ref.Path == "" || ref.Version == 0 {
		return PageResult{}, false
	}

	data, err := os.ReadFile(filepath.Join(e.opts.OutputDir, filepath.FromSlash(ref.Path)))
	if err != nil {
		return PageResult{}, false
	}
	fm, _, err := md.ParseFrontmatter(string(data))
	if err != nil || fm.ConfluenceID != ref.ID || fm.ConfluenceVersion != ref.Version {
		return PageResult{}, false
	}

	return PageResult{
		ID:      ref.ID,
		Title:   fm.Title,
		Path:    ref.Path,
		Version: ref.Version,
		Macros:  fm.Macros,
		Skipped: true,
	}, true
}

func (e *Exporter) spaceKey(ctx context.Context, spaceID string, result *PageResult) string {
	if spaceID == "" {
		return ""
	}
	space, err := e.client.GetSpace(ctx, spaceID)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("failed to fetch space %s: %v", spaceID, err))
		return ""
	}
	return space.Key
}

func (e *Exporter) metadata(page *api.Page, spaceKey string, labels []string) md.PageMetadata {
	meta := md.PageMetadata{
		ID:        page.ID,
		Title:     page.Title,
		SpaceKey:  spaceKey,
		Version:   page.VersionNumber(),
		Author:    page.AuthorID,
		CreatedAt: page.CreatedAt.Time,
		Labels:    labels,
		ParentID:  page.ParentID,
	}
	if page.Version != nil {
		meta.UpdatedAt = page.Version.CreatedAt.Time
	}
	if page.Links.WebUI != "" {
		meta.URL = e.client.BaseURL() + page.Links.WebUI
	}
	return meta
}

// keepPages returns the pages whose IDs are in ids, in listing order.
func keepPages(pages []api.Page, ids []string) []api.Page {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var kept []api.Page
	for _, p := range pages {
		if want[p.ID] {
			kept = append(kept, p)
		}
	}
	return kept
}

// planPaths assigns every page a unique file name before any work starts.
func planPaths(pages []api.Page, spaceKey string) []pageRef {
	used := make(map[string]bool, len(pages))
	refs := make([]pageRef, 0, len(pages))
	for _, p := range pages {
		refs = append(refs, pageRef{
			ID:       p.ID,
			Title:    p.Title,
			Version:  p.VersionNumber(),
			SpaceKey: spaceKey,
			Path:     pagePath(p.Title, p.ID, used),
		})
	}
	return refs
}

// pagePath derives <slug>.md from a title. Titles that slug to nothing use
// the page ID; a slug already in used gets the page ID appended.
func pagePath(title, id string, used map[string]bool) string {
	slug := md.Slugify(title)
	if strings.Trim(slug, ".") == "" {
		slug = "page-" + id
	}
	if used != nil {
		if used[slug] {
			slug = slug + "-" + id
		}
		used[slug] = true
	}
	return slug + ".md"
}
