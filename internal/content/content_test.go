// ABOUTME: Tests for post body processing
// ABOUTME: Validates HTML detection, Markdown conversion, and plain-text flattening

package content

import (
	"strings"
	"testing"
)

func TestIsHTML(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected bool
	}{
		{
			name:     "plain post text",
			content:  "shipping the new release today",
			expected: false,
		},
		{
			name:     "paragraph tag",
			content:  "<p>This is a paragraph.</p>",
			expected: true,
		},
		{
			name:     "mention link",
			content:  "thanks <a href=\"https://x.com/bob\">@bob</a>",
			expected: true,
		},
		{
			name:     "DOCTYPE",
			content:  "<!DOCTYPE html><html><body>Test</body></html>",
			expected: true,
		},
		{
			name:     "br tag",
			content:  "Line one<br>Line two",
			expected: true,
		},
		{
			name:     "empty string",
			content:  "",
			expected: false,
		},
		{
			name:     "angle brackets but not HTML",
			content:  "latency went 5 < 10 and 10 > 5",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsHTML(tt.content)
			if result != tt.expected {
				t.Errorf("IsHTML(%q) = %v, want %v", tt.content, result, tt.expected)
			}
		})
	}
}

func TestToMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "plain text unchanged",
			input:    "Just plain text here.",
			contains: []string{"Just plain text here."},
		},
		{
			name:     "link to markdown",
			input:    "<a href=\"https://example.com\">Example</a>",
			contains: []string{"[Example]", "(https://example.com)"},
			excludes: []string{"<a", "</a>"},
		},
		{
			name:     "heading and bold",
			input:    "<h2>Notes</h2><p><strong>Bold text</strong></p>",
			contains: []string{"## Notes", "**Bold text**"},
			excludes: []string{"<strong>", "<h2>"},
		},
		{
			name:     "list to markdown",
			input:    "<ul><li>Item 1</li><li>Item 2</li></ul>",
			contains: []string{"Item 1", "Item 2"},
			excludes: []string{"<ul>", "<li>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToMarkdown(tt.input)

			for _, s := range tt.contains {
				if !strings.Contains(result, s) {
					t.Errorf("ToMarkdown() result should contain %q, got %q", s, result)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(result, s) {
					t.Errorf("ToMarkdown() result should NOT contain %q, got %q", s, result)
				}
			}
		})
	}

	if ToMarkdown("") != "" {
		t.Error("empty input should stay empty")
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "paragraphs and link text",
			input: `<p>Hello <a href="https://x.com/bob">@bob</a></p><p>second</p>`,
			want:  "Hello @bob\nsecond",
		},
		{
			name:  "line breaks",
			input: "line one<br>line two",
			want:  "line one\nline two",
		},
		{
			name:  "entities in plain text",
			input: "Fish &amp; chips",
			want:  "Fish & chips",
		},
		{
			name:  "emoji image alt text",
			input: `<span>I love it <img alt="🔥" src="https://abs.twimg.com/e.svg"></span>`,
			want:  "I love it 🔥",
		},
		{
			name:  "scripts dropped",
			input: `<div><script>track()</script>visible</div>`,
			want:  "visible",
		},
		{
			name:  "whitespace tidied",
			input: "  spaced    out  ",
			want:  "spaced out",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
