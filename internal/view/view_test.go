package view

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	spaceHeaders = []string{"KEY", "NAME"}
	spaceRows    = [][]string{{"ENG", "Engineering"}, {"HR", "People Ops"}}
)

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{"", "table", "json", "plain"} {
		assert.NoError(t, ValidateFormat(f), f)
	}

	err := ValidateFormat("yaml")
	require.Error(t, err)
	assert.Equal(t, `invalid output format "yaml" (valid: table, json, plain)`, err.Error())
}

func TestNewRenderer_DefaultFormat(t *testing.T) {
	assert.Equal(t, FormatTable, NewRenderer(nil, "", true).Format())
	assert.Equal(t, FormatPlain, NewRenderer(nil, FormatPlain, true).Format())
}

func TestRenderTable(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		rows   [][]string
		want   string
	}{
		{
			name:   "table pads all but the last column",
			format: FormatTable,
			rows:   spaceRows,
			want:   "KEY  NAME\nENG  Engineering\nHR   People Ops\n",
		},
		{
			name:   "table counts runes",
			format: FormatTable,
			rows:   [][]string{{"ÜX", "Ünïcode"}},
			want:   "KEY  NAME\nÜX   Ünïcode\n",
		},
		{
			name:   "plain drops headers",
			format: FormatPlain,
			rows:   spaceRows,
			want:   "ENG\tEngineering\nHR\tPeople Ops\n",
		},
		{
			name:   "table with no rows prints headers",
			format: FormatTable,
			want:   "KEY  NAME\n",
		},
		{
			name:   "json with no rows is an empty array",
			format: FormatJSON,
			want:   "[]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := NewRenderer(&buf, tt.format, true)

			require.NoError(t, r.RenderTable(spaceHeaders, tt.rows))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRenderTable_JSONKeys(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, FormatJSON, true)

	rows := [][]string{{"ENG", "Engineering"}, {"OPS"}}
	require.NoError(t, r.RenderTable(spaceHeaders, rows))

	var got []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []map[string]string{
		{"key": "ENG", "name": "Engineering"},
		{"key": "OPS"},
	}, got)
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, FormatJSON, true)

	require.NoError(t, r.RenderJSON(map[string]int{"pages": 3}))
	assert.Equal(t, "{\n  \"pages\": 3\n}\n", buf.String())

	assert.Error(t, r.RenderJSON(make(chan int)))
}

func TestNotice(t *testing.T) {
	for _, f := range []Format{FormatTable, FormatJSON, FormatPlain} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			NewRenderer(&buf, f, true).Notice("(showing first %d)", 25)

			if f == FormatTable {
				assert.Equal(t, "(showing first 25)\n", buf.String())
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestStatusLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, FormatTable, true)

	r.Success("docs/a.md")
	r.Warning("docs/b.md (1 warnings)")
	r.Error("42: not found")
	r.RenderText("done")

	assert.Equal(t, "✓ docs/a.md\n! docs/b.md (1 warnings)\n✗ 42: not found\ndone\n", buf.String())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"Release notes for 2024", 10, "Release..."},
		{"abcdef", 3, "abc"},
		{"Überblick über alles", 8, "Überb..."},
		{"", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.maxLen))
		})
	}
}
