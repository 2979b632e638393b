package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/open-cli-collective/confluence-md/api"
	"github.com/open-cli-collective/confluence-md/pkg/md"
)

// maxDiagramBytes bounds a diagram source held in memory.
const maxDiagramBytes = 1 << 20

// IsDiagramSource reports whether an attachment holds Mermaid text that
// diagram macros may reference: a .mmd or .mermaid file, or an
// extensionless file served as text/plain.
func IsDiagramSource(filename, mediaType string) bool {
	switch strings.ToLower(path.Ext(filename)) {
	case ".mmd", ".mermaid":
		return true
	case "":
		return strings.HasPrefix(strings.ToLower(mediaType), "text/plain")
	}
	return false
}

// prefetchDiagrams downloads every diagram source attachment into a cache.
// Failures become warnings; the macro that needed the file degrades to a
// notice during conversion.
func (e *Exporter) prefetchDiagrams(ctx context.Context, atts []api.Attachment) (md.AttachmentCache, []string) {
	cache := md.AttachmentCache{}
	var warnings []string
	for _, att := range atts {
		if !IsDiagramSource(att.Title, att.MediaType) {
			continue
		}
		data, err := e.client.DownloadAttachmentBytes(ctx, att.ID, maxDiagramBytes)
		if err != nil {
			msg := fmt.Sprintf("failed to download diagram source %q: %v", att.Title, err)
			e.logger.Printf("WARN: %s", msg)
			warnings = append(warnings, msg)
			continue
		}
		cache[att.Title] = string(data)
	}
	return cache, warnings
}

// downloadAssets writes the attachments a page links to into the assets
// directory. Files are written to a temporary name and renamed so
// concurrent pages sharing a filename never see a partial file.
func (e *Exporter) downloadAssets(ctx context.Context, names []string, atts []api.Attachment) ([]string, []string) {
	if len(names) == 0 {
		return nil, nil
	}

	byTitle := make(map[string]api.Attachment, len(atts))
	byFold := make(map[string]api.Attachment, len(atts))
	for _, att := range atts {
		byTitle[att.Title] = att
		byFold[strings.ToLower(att.Title)] = att
	}

	dir := filepath.Join(e.opts.OutputDir, e.opts.AssetsDir)
	var written, warnings []string
	for _, name := range names {
		att, ok := byTitle[name]
		if !ok {
			att, ok = byFold[strings.ToLower(name)]
		}
		if !ok {
			warnings = append(warnings, fmt.Sprintf("attachment %q is referenced but not attached to the page", name))
			continue
		}

		file, err := safeFilename(name)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		if err := e.writeAttachment(ctx, att.ID, filepath.Join(dir, file)); err != nil {
			msg := fmt.Sprintf("failed to download attachment %q: %v", name, err)
			e.logger.Printf("WARN: %s", msg)
			warnings = append(warnings, msg)
			continue
		}
		written = append(written, name)
	}
	return written, warnings
}

func (e *Exporter) writeAttachment(ctx context.Context, attachmentID, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create assets directory: %w", err)
	}

	rc, err := e.client.DownloadAttachment(ctx, attachmentID)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".cfmd-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, rc); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// safeFilename rejects names that would leave the assets directory.
func safeFilename(name string) (string, error) {
	base := filepath.Base(filepath.FromSlash(name))
	if base != filepath.FromSlash(name) || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("attachment name %q is not a plain filename", name)
	}
	return base, nil
}

// LoadAttachmentDir reads the diagram sources in dir into a cache, keyed by
// filename. It backs offline conversion of saved page bodies.
func LoadAttachmentDir(dir string) (md.AttachmentCache, error) {
	cache := md.AttachmentCache{}
	if dir == "" {
		return cache, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".mmd" && ext != ".mermaid" && ext != "" {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() > maxDiagramBytes {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %s: %w", name, err)
		}
		cache[name] = string(data)
	}
	return cache, nil
}
