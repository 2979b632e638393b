package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/open-cli-collective/confluence-md/pkg/md"
)

// ManifestFile is the name of the manifest written into the output directory.
const ManifestFile = "manifest.yaml"

// Manifest records what an export run produced.
type Manifest struct {
	Space      string       `yaml:"space,omitempty" json:"space,omitempty"`
	ExportedAt string       `yaml:"exportedAt" json:"exportedAt"`
	ExportedBy string       `yaml:"exportedBy" json:"exportedBy"`
	Pages      []PageResult `yaml:"pages" json:"pages"`
}

// PageResult is the outcome of exporting one page.
type PageResult struct {
	ID       string        `yaml:"id" json:"id"`
	Title    string        `yaml:"title" json:"title"`
	Path     string        `yaml:"path,omitempty" json:"path,omitempty"`
	Version  int           `yaml:"version" json:"version"`
	Macros   md.MacroStats `yaml:"macros" json:"macros"`
	Assets   []string      `yaml:"assets,omitempty" json:"assets,omitempty"`
	Warnings []string      `yaml:"warnings,omitempty" json:"warnings,omitempty"`
	Skipped  bool          `yaml:"skipped,omitempty" json:"skipped,omitempty"`
	Error    string        `yaml:"error,omitempty" json:"error,omitempty"`
}

// Failed reports whether the page could not be exported.
func (r *PageResult) Failed() bool {
	return r.Error != ""
}

// Counts returns how many pages were written, skipped and failed.
func (m *Manifest) Counts() (written, skipped, failed int) {
	for i := range m.Pages {
		switch {
		case m.Pages[i].Failed():
			failed++
		case m.Pages[i].Skipped:
			skipped++
		default:
			written++
		}
	}
	return written, skipped, failed
}

// WriteManifest writes m to dir/manifest.yaml.
func WriteManifest(dir string, m *Manifest) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest reads dir/manifest.yaml.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
