package export

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-cli-collective/confluence-md/api"
	"github.com/open-cli-collective/confluence-md/pkg/md"
)

type fakePage struct {
	ID      string
	Title   string
	Version int
	Storage string
	View    string
	Labels  []string
	Atts    []fakeAttachment
}

type fakeAttachment struct {
	ID        string
	Title     string
	MediaType string
	Data      string
}

// fakeConfluence serves the v2 endpoints the exporter reads.
type fakeConfluence struct {
	t          *testing.T
	mu         sync.Mutex
	pages      []fakePage
	searchIDs  []string
	failPages  map[string]bool
	contentGet atomic.Int32
	inFlight   atomic.Int32
	maxFlight  atomic.Int32
	delay      time.Duration
}

func (f *fakeConfluence) snapshot() []fakePage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakePage(nil), f.pages...)
}

func (f *fakeConfluence) setVersion(i, version int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[i].Version = version
}

func (f *fakeConfluence) page(id string) (fakePage, bool) {
	for _, p := range f.snapshot() {
		if p.ID == id {
			return p, true
		}
	}
	return fakePage{}, false
}

func (f *fakeConfluence) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(f.t, json.NewEncoder(w).Encode(v))
}

func (f *fakeConfluence) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v2/spaces", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("keys") != "ENG" {
			f.writeJSON(w, map[string]any{"results": []any{}})
			return
		}
		f.writeJSON(w, map[string]any{"results": []any{map[string]string{"id": "42", "key": "ENG", "name": "Engineering"}}})
	})

	mux.HandleFunc("GET /api/v2/spaces/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.writeJSON(w, map[string]string{"id": r.PathValue("id"), "key": "ENG"})
	})

	mux.HandleFunc("GET /api/v2/spaces/{id}/pages", func(w http.ResponseWriter, r *http.Request) {
		var results []map[string]any
		for _, p := range f.snapshot() {
			results = append(results, map[string]any{
				"id": p.ID, "title": p.Title, "spaceId": "42",
				"version": map[string]int{"number": p.Version},
			})
		}
		f.writeJSON(w, map[string]any{"results": results})
	})

	mux.HandleFunc("GET /api/v2/pages/{id}", func(w http.ResponseWriter, r *http.Request) {
		n := f.inFlight.Add(1)
		defer f.inFlight.Add(-1)
		for {
			cur := f.maxFlight.Load()
			if n <= cur || f.maxFlight.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(f.delay)

		f.contentGet.Add(1)
		p, ok := f.page(r.PathValue("id"))
		if !ok || f.failPages[p.ID] {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message": "Page not found"}`))
			return
		}

		body := map[string]any{}
		switch r.URL.Query().Get("body-format") {
		case "storage":
			body["storage"] = map[string]string{"representation": "storage", "value": p.Storage}
		case "view":
			body["view"] = map[string]string{"representation": "view", "value": p.View}
		}
		f.writeJSON(w, map[string]any{
			"id": p.ID, "title": p.Title, "spaceId": "42", "authorId": "u-1",
			"createdAt": "2024-01-15T10:30:00.000Z",
			"version":   map[string]any{"number": p.Version, "createdAt": "2024-03-02T08:00:00.000Z"},
			"body":      body,
			"_links":    map[string]string{"webui": "/spaces/ENG/pages/" + p.ID},
		})
	})

	mux.HandleFunc("GET /api/v2/pages/{id}/labels", func(w http.ResponseWriter, r *http.Request) {
		p, _ := f.page(r.PathValue("id"))
		var results []map[string]string
		for _, l := range p.Labels {
			results = append(results, map[string]string{"id": "l-" + l, "name": l})
		}
		f.writeJSON(w, map[string]any{"results": results})
	})

	mux.HandleFunc("GET /api/v2/pages/{id}/attachments", func(w http.ResponseWriter, r *http.Request) {
		p, _ := f.page(r.PathValue("id"))
		var results []map[string]any
		for _, a := range p.Atts {
			results = append(results, map[string]any{"id": a.ID, "title": a.Title, "mediaType": a.MediaType, "fileSize": len(a.Data)})
		}
		f.writeJSON(w, map[string]any{"results": results})
	})

	mux.HandleFunc("GET /api/v2/attachments/{id}/download", func(w http.ResponseWriter, r *http.Request) {
		for _, p := range f.snapshot() {
			for _, a := range p.Atts {
				if a.ID == r.PathValue("id") {
					_, _ = w.Write([]byte(a.Data))
					return
				}
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	mux.HandleFunc("GET /rest/api/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(f.t, r.URL.Query().Get("cql"), `label = "runbook"`)
		var results []map[string]any
		for _, id := range f.searchIDs {
			results = append(results, map[string]any{"content": map[string]string{"id": id, "type": "page"}})
		}
		f.writeJSON(w, map[string]any{"results": results, "start": 0, "size": len(results), "totalSize": len(results)})
	})

	return mux
}

const paymentsStorage = `<h1>Overview</h1>` +
	`<ac:structured-macro ac:name="mermaid-cloud" ac:macro-id="m1"><ac:parameter ac:name="filename">flow.mmd</ac:parameter></ac:structured-macro>` +
	`<p><ac:image><ri:attachment ri:filename="logo.png"/></ac:image></p>`

const paymentsView = `<h1 id="Payments-Overview">Overview</h1>` +
	`<div class="mermaid-macro" data-macro-name="mermaid-cloud" data-macro-id="m1"><img src="/render/m1.png"></div>` +
	`<p><img class="confluence-embedded-image" src="/wiki/download/attachments/100/logo.png?version=1&amp;api=v2"></p>`

func paymentsPage() fakePage {
	return fakePage{
		ID:      "100",
		Title:   "Payments",
		Version: 3,
		Storage: paymentsStorage,
		View:    paymentsView,
		Labels:  []string{"payments", "beta"},
		Atts: []fakeAttachment{
			{ID: "a1", Title: "flow.mmd", MediaType: "application/octet-stream", Data: "graph TD\n  A-->B\n"},
			{ID: "a2", Title: "logo.png", MediaType: "image/png", Data: "PNGDATA"},
		},
	}
}

func codePage(id, title, src string) fakePage {
	return fakePage{
		ID:      id,
		Title:   title,
		Version: 1,
		Storage: `<ac:structured-macro ac:name="code"><ac:parameter ac:name="language">go</ac:parameter><ac:plain-text-body><![CDATA[` + src + `]]></ac:plain-text-body></ac:structured-macro>`,
		View:    `<div class="code panel pdl"><pre>` + src + `</pre></div>`,
	}
}

func newTestExporter(t *testing.T, f *fakeConfluence, opts Options) (*Exporter, string) {
	t.Helper()
	f.t = t
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)

	dir := t.TempDir()
	opts.OutputDir = dir
	opts.Now = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }
	return New(api.NewClient(server.URL, "user@example.com", "token"), opts), dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestExportPage(t *testing.T) {
	f := &fakeConfluence{pages: []fakePage{paymentsPage()}}
	e, dir := newTestExporter(t, f, Options{})

	m, err := e.ExportPage(context.Background(), "100")
	require.NoError(t, err)
	require.Len(t, m.Pages, 1)

	res := m.Pages[0]
	assert.Empty(t, res.Error)
	assert.Equal(t, "payments.md", res.Path)
	assert.Equal(t, 3, res.Version)
	assert.Equal(t, 1, res.Macros.Mermaid)
	assert.Equal(t, []string{"logo.png"}, res.Assets)

	out := readFile(t, filepath.Join(dir, "payments.md"))
	assert.True(t, strings.HasPrefix(out, "---\ntitle: Payments\nconfluenceId: \"100\"\n"), out)
	assert.Contains(t, out, "confluenceSpaceKey: ENG")
	assert.Contains(t, out, "confluenceUrl: "+e.client.BaseURL()+"/spaces/ENG/pages/100")
	assert.Contains(t, out, "confluenceLabels:\n  - payments\n  - beta")
	assert.Contains(t, out, "```mermaid\ngraph TD\n  A-->B\n```")
	assert.Contains(t, out, "![logo.png](./assets/logo.png)")
	assert.NotContains(t, out, "render/m1.png")

	assert.Equal(t, "PNGDATA", readFile(t, filepath.Join(dir, "assets", "logo.png")))

	onDisk, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m.Pages, onDisk.Pages)
	assert.Equal(t, "2024-07-01T12:00:00Z", onDisk.ExportedAt)
	assert.Equal(t, md.DefaultExportedBy, onDisk.ExportedBy)
}

func TestExportPage_MissingDiagramSource(t *testing.T) {
	page := paymentsPage()
	page.Atts = page.Atts[1:]
	f := &fakeConfluence{pages: []fakePage{page}}
	e, dir := newTestExporter(t, f, Options{SkipAssets: true})

	m, err := e.ExportPage(context.Background(), "100")
	require.NoError(t, err)

	out := readFile(t, filepath.Join(dir, "payments.md"))
	assert.Contains(t, out, `attachment "flow.mmd" could not be loaded`)
	assert.Equal(t, 1, m.Pages[0].Macros.Unavailable)
	assert.NotEmpty(t, m.Pages[0].Warnings)
	assert.NoFileExists(t, filepath.Join(dir, "assets", "logo.png"))
}

func TestExportPage_NotFoundIsRecorded(t *testing.T) {
	f := &fakeConfluence{}
	e, _ := newTestExporter(t, f, Options{})

	m, err := e.ExportPage(context.Background(), "999")
	require.NoError(t, err)
	require.Len(t, m.Pages, 1)
	assert.True(t, m.Pages[0].Failed())
	assert.Contains(t, m.Pages[0].Error, "Page not found")
}

func TestExportPages_CollidingTitles(t *testing.T) {
	f := &fakeConfluence{pages: []fakePage{
		codePage("300", "Runbook", "a()"),
		codePage("301", "Runbook", "b()"),
	}}
	e, dir := newTestExporter(t, f, Options{})

	m, err := e.ExportPages(context.Background(), []string{"300", "301"})
	require.NoError(t, err)
	require.Len(t, m.Pages, 2)

	paths := []string{m.Pages[0].Path, m.Pages[1].Path}
	assert.NotEqual(t, paths[0], paths[1])
	for i, p := range m.Pages {
		assert.Contains(t, []string{"runbook.md", "runbook-" + p.ID + ".md"}, paths[i])
		assert.FileExists(t, filepath.Join(dir, paths[i]))
	}
}

func TestConvert(t *testing.T) {
	f := &fakeConfluence{pages: []fakePage{paymentsPage()}}
	e, dir := newTestExporter(t, f, Options{})

	out, err := e.Convert(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, "Payments", out.Frontmatter.Title)
	assert.Equal(t, "ENG", out.Frontmatter.ConfluenceSpaceKey)
	assert.Equal(t, 1, out.Stats.Mermaid)
	assert.Contains(t, out.Body, "```mermaid\ngraph TD")
	assert.Equal(t, []string{"logo.png"}, out.Assets)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConvert_NotFound(t *testing.T) {
	e, _ := newTestExporter(t, &fakeConfluence{}, Options{})

	_, err := e.Convert(context.Background(), "999")
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestExportSpace(t *testing.T) {
	f := &fakeConfluence{
		pages: []fakePage{
			paymentsPage(),
			codePage("200", "Runbook", "fmt.Println(1)"),
			codePage("201", "Runbook", "fmt.Println(2)"),
			codePage("202", "Broken", "x"),
		},
		failPages: map[string]bool{"202": true},
	}

	var mu sync.Mutex
	var seen []string
	e, dir := newTestExporter(t, f, Options{
		Concurrency: 2,
		OnPage: func(r PageResult) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, r.ID)
		},
	})

	m, err := e.ExportSpace(context.Background(), "ENG", Filter{})
	require.NoError(t, err)

	assert.Equal(t, "ENG", m.Space)
	require.Len(t, m.Pages, 4)
	assert.Equal(t, "payments.md", m.Pages[0].Path)
	assert.Equal(t, "runbook.md", m.Pages[1].Path)
	assert.Equal(t, "runbook-201.md", m.Pages[2].Path)
	assert.True(t, m.Pages[3].Failed())

	written, skipped, failed := m.Counts()
	assert.Equal(t, 3, written)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, 1, failed)

	assert.Contains(t, readFile(t, filepath.Join(dir, "runbook.md")), "```go\nfmt.Println(1)\n```")
	assert.Contains(t, readFile(t, filepath.Join(dir, "runbook-201.md")), "```go\nfmt.Println(2)\n```")
	assert.FileExists(t, filepath.Join(dir, ManifestFile))

	sort.Strings(seen)
	assert.Equal(t, []string{"100", "200", "201", "202"}, seen)
}

func TestExportSpace_BoundedConcurrency(t *testing.T) {
	var pages []fakePage
	for i := range 8 {
		pages = append(pages, codePage(fmt.Sprint(300+i), fmt.Sprintf("Page %d", i), "x"))
	}
	f := &fakeConfluence{pages: pages, delay: 20 * time.Millisecond}
	e, _ := newTestExporter(t, f, Options{Concurrency: 2})

	m, err := e.ExportSpace(context.Background(), "ENG", Filter{})
	require.NoError(t, err)
	assert.Len(t, m.Pages, 8)
	assert.LessOrEqual(t, f.maxFlight.Load(), int32(2))
}

func TestExportSpace_LabelFilter(t *testing.T) {
	f := &fakeConfluence{
		pages: []fakePage{
			paymentsPage(),
			codePage("200", "Runbook", "x"),
		},
		searchIDs: []string{"200"},
	}
	e, dir := newTestExporter(t, f, Options{})

	m, err := e.ExportSpace(context.Background(), "ENG", Filter{Label: "runbook"})
	require.NoError(t, err)
	require.Len(t, m.Pages, 1)
	assert.Equal(t, "200", m.Pages[0].ID)
	assert.NoFileExists(t, filepath.Join(dir, "payments.md"))
}

func TestExportSpace_FilterMatchesNothing(t *testing.T) {
	f := &fakeConfluence{pages: []fakePage{paymentsPage()}}
	e, _ := newTestExporter(t, f, Options{})

	_, err := e.ExportSpace(context.Background(), "ENG", Filter{Label: "runbook"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPages)
}

func TestExportSpace_UnknownSpace(t *testing.T) {
	f := &fakeConfluence{}
	e, _ := newTestExporter(t, f, Options{})

	_, err := e.ExportSpace(context.Background(), "NOPE", Filter{})
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestExportSpace_SkipUnchanged(t *testing.T) {
	f := &fakeConfluence{pages: []fakePage{paymentsPage()}}
	e, dir := newTestExporter(t, f, Options{SkipUnchanged: true})

	_, err := e.ExportSpace(context.Background(), "ENG", Filter{})
	require.NoError(t, err)
	fetches := f.contentGet.Load()

	m, err := e.ExportSpace(context.Background(), "ENG", Filter{})
	require.NoError(t, err)
	require.Len(t, m.Pages, 1)
	assert.True(t, m.Pages[0].Skipped)
	assert.Equal(t, 1, m.Pages[0].Macros.Mermaid)
	assert.Equal(t, fetches, f.contentGet.Load())

	f.setVersion(0, 4)
	m, err = e.ExportSpace(context.Background(), "ENG", Filter{})
	require.NoError(t, err)
	assert.False(t, m.Pages[0].Skipped)
	assert.Contains(t, readFile(t, filepath.Join(dir, "payments.md")), "confluenceVersion: 4")
}

func TestExportSpace_Cancelled(t *testing.T) {
	f := &fakeConfluence{pages: []fakePage{paymentsPage()}}
	e, _ := newTestExporter(t, f, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.ExportSpace(ctx, "ENG", Filter{})
	require.Error(t, err)
}

func TestPagePath(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "2.1-payment-beta.md", pagePath("2.1 Payment (Beta)!", "1", used))
	assert.Equal(t, "2.1-payment-beta-2.md", pagePath("2.1 Payment (Beta)", "2", used))
	assert.Equal(t, "page-3.md", pagePath("!!!", "3", used))
	assert.Equal(t, "page-4.md", pagePath("..", "4", used))
	assert.Equal(t, "solo.md", pagePath("Solo", "5", nil))
}

func TestKeepPages(t *testing.T) {
	pages := []api.Page{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	kept := keepPages(pages, []string{"3", "1", "9"})
	require.Len(t, kept, 2)
	assert.Equal(t, "1", kept[0].ID)
	assert.Equal(t, "3", kept[1].ID)
}
