package md

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Overview", "overview"},
		{"2.1 Payment (Beta)!", "2.1-payment-beta"},
		{"  Spaces   everywhere  ", "spaces-everywhere"},
		{"snake_case - dashes", "snake_case-dashes"},
		{"Ünïcödé Héadings", "ünïcödé-héadings"},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input))
		})
	}
}

func TestHeadingText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Plain", "Plain"},
		{"See [the docs](https://example.com)", "See the docs"},
		{"Run `make` now", "Run make now"},
		{"![logo](./assets/logo.png) Brand", "logo Brand"},
		{"[Other](/x) <!-- confluence-page-id: 1 -->", "Other"},
		{`Escaped \*stars\*`, "Escaped *stars*"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, HeadingText(tt.input))
		})
	}
}

func TestHeadings(t *testing.T) {
	markdown := "# Intro\n\ntext\n\n## Setup\n\n```\n# not a heading\n```\n\n## Setup\n\nSetext\n------\n"

	headings := Headings(markdown)
	require.Len(t, headings, 4)
	assert.Equal(t, Heading{Level: 1, Text: "Intro", Slug: "intro"}, headings[0])
	assert.Equal(t, Heading{Level: 2, Text: "Setup", Slug: "setup"}, headings[1])
	assert.Equal(t, Heading{Level: 2, Text: "Setup", Slug: "setup-1"}, headings[2])
	assert.Equal(t, Heading{Level: 2, Text: "Setext", Slug: "setext"}, headings[3])
}

func TestHeadings_IgnoresBlockquotes(t *testing.T) {
	headings := Headings("> # Quoted\n\n# Real\n")
	require.Len(t, headings, 1)
	assert.Equal(t, "Real", headings[0].Text)
}

func TestGenerateTOC(t *testing.T) {
	markdown := "# A\n\n## B\n\n#### D\n\n## B\n\n# E\n"

	tests := []struct {
		name string
		spec *TOCSpec
		want string
	}{
		{
			name: "default nested list",
			spec: &TOCSpec{MinLevel: 1, MaxLevel: 7, Printable: true},
			want: "- [A](#a)\n  - [B](#b)\n    - [D](#d)\n  - [B](#b-1)\n- [E](#e)",
		},
		{
			name: "nil spec",
			spec: nil,
			want: "- [A](#a)\n  - [B](#b)\n    - [D](#d)\n  - [B](#b-1)\n- [E](#e)",
		},
		{
			name: "level range",
			spec: &TOCSpec{MinLevel: 2, MaxLevel: 2, Printable: true},
			want: "- [B](#b)\n- [B](#b-1)",
		},
		{
			name: "numbered",
			spec: &TOCSpec{MinLevel: 1, MaxLevel: 2, Printable: true, Numbered: true},
			want: "1. [A](#a)\n   1. [B](#b)\n   1. [B](#b-1)\n1. [E](#e)",
		},
		{
			name: "flat",
			spec: &TOCSpec{MinLevel: 1, MaxLevel: 1, Separator: " | "},
			want: "[A](#a) | [E](#e)",
		},
		{
			name: "nothing in range",
			spec: &TOCSpec{MinLevel: 5, MaxLevel: 6, Printable: true},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateTOC(markdown, tt.spec))
		})
	}
}

func TestGenerateTOC_EscapesBrackets(t *testing.T) {
	assert.Equal(t, `- [Array\[0\]](#array0)`, GenerateTOC(`# Array\[0\]`, nil))
}
