package markdown

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInline(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Run
	}{
		{"empty", "", []Run{}},
		{"plain text", "plain text", []Run{TextRun{"plain text"}}},
		{"only bold", "**bold**", []Run{BoldRun{"bold"}}},
		{"bold in the middle", "a **b** c", []Run{TextRun{"a "}, BoldRun{"b"}, TextRun{" c"}}},
		{"two spans", "**x** and **y**", []Run{BoldRun{"x"}, TextRun{" and "}, BoldRun{"y"}}},
		{"unterminated marker", "a ** b", []Run{TextRun{"a ** b"}}},
		{"odd marker count", "**a** b **", []Run{BoldRun{"a"}, TextRun{" b **"}}},
		{"asterisk inside is not bold", "**a*b**", []Run{TextRun{"**a*b**"}}},
		{"empty span stays literal", "****", []Run{TextRun{"****"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseInline(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseInline(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Node
	}{
		{
			name:  "empty input",
			input: "",
			want:  []Node{},
		},
		{
			name:  "heading",
			input: "## Ипотека **кратко**",
			want:  []Node{Heading{Runs: []Run{TextRun{"Ипотека "}, BoldRun{"кратко"}}}},
		},
		{
			name:  "whole line bold is not inline parsed",
			input: "**Итог: **важно** тут**",
			want:  []Node{Paragraph{Runs: []Run{BoldRun{"Итог: **важно** тут"}}}},
		},
		{
			name:  "bullet list",
			input: "- item1\n- item2",
			want: []Node{ListBlock{Items: [][]Run{
				{TextRun{"item1"}},
				{TextRun{"item2"}},
			}}},
		},
		{
			name:  "all bullet markers",
			input: "• one\n* two\n- **three**",
			want: []Node{ListBlock{Items: [][]Run{
				{TextRun{"one"}},
				{TextRun{"two"}},
				{BoldRun{"three"}},
			}}},
		},
		{
			name:  "bullet needs a space",
			input: "-item",
			want:  []Node{Paragraph{Runs: []Run{TextRun{"-item"}}}},
		},
		{
			name:  "bold wrapped bullet resolves to bold line",
			input: "**- item**",
			want:  []Node{Paragraph{Runs: []Run{BoldRun{"- item"}}}},
		},
		{
			name:  "link",
			input: "[Read more](https://x.test/a)",
			want:  []Node{Paragraph{Runs: []Run{LinkRun{Label: "Read more", Href: "https://x.test/a"}}}},
		},
		{
			name:  "links with surrounding text",
			input: "См. [статью](https://t.test/1) и **[другую](https://t.test/2)** тоже",
			want: []Node{Paragraph{Runs: []Run{
				TextRun{"См. "},
				LinkRun{Label: "статью", Href: "https://t.test/1"},
				TextRun{" и **"},
				LinkRun{Label: "другую", Href: "https://t.test/2"},
				TextRun{"** тоже"},
			}}},
		},
		{
			name:  "unterminated bracket",
			input: "[unterminated",
			want:  []Node{Paragraph{Runs: []Run{TextRun{"[unterminated"}}}},
		},
		{
			name:  "bare brackets fall back to literal spans",
			input: "Источники [1] и **[2]**",
			want: []Node{Paragraph{Runs: []Run{
				TextRun{"Источники "},
				BracketRun{"1"},
				TextRun{" и **"},
				BracketRun{"2"},
				TextRun{"**"},
			}}},
		},
		{
			name:  "label without closing paren",
			input: "[label](https://x.test",
			want:  []Node{Paragraph{Runs: []Run{BracketRun{"label"}, TextRun{"(https://x.test"}}}},
		},
		{
			name:  "brackets in the wrong order",
			input: "a ] b [ c",
			want:  []Node{Paragraph{Runs: []Run{TextRun{"a ] b [ c"}}}},
		},
		{
			name:  "blank line closes the list",
			input: "- a\n\n- b",
			want: []Node{
				ListBlock{Items: [][]Run{{TextRun{"a"}}}},
				ListBlock{Items: [][]Run{{TextRun{"b"}}}},
			},
		},
		{
			name:  "paragraph closes the list before itself",
			input: "- a\nтекст\n- b",
			want: []Node{
				ListBlock{Items: [][]Run{{TextRun{"a"}}}},
				Paragraph{Runs: []Run{TextRun{"текст"}}},
				ListBlock{Items: [][]Run{{TextRun{"b"}}}},
			},
		},
		{
			name:  "lines are trimmed",
			input: "   ## Заголовок  \n\t- пункт\r",
			want: []Node{
				Heading{Runs: []Run{TextRun{"Заголовок"}}},
				ListBlock{Items: [][]Run{{TextRun{"пункт"}}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseIsRepeatable(t *testing.T) {
	input := "## Налоги\nСамозанятые платят **4%** или **6%**.\n- [НПД](https://t.test/npd)\n- лимит 2,4 млн"

	first := Parse(input)
	second := Parse(input)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second parse differs (-first +second):\n%s", diff)
	}
}

func TestPlainTextStripsTokensOnce(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"a **b** c", "a b c"},
		{"q **x****y**", "q xy"},
		{"[Read more](https://x.test/a) now", "Read more now"},
		{"see [1]", "see [1]"},
		{"a ** b", "a ** b"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			nodes := Parse(tt.line)
			require.Len(t, nodes, 1)
			p, ok := nodes[0].(Paragraph)
			require.True(t, ok, "expected a paragraph, got %T", nodes[0])
			assert.Equal(t, tt.want, PlainText(p.Runs))
		})
	}
}

func TestLinks(t *testing.T) {
	nodes := Parse("[A](https://a.test)\n- [B](https://b.test)\nи [C](https://c.test)")

	links := Links(nodes)

	require.Len(t, links, 2)
	assert.Equal(t, "https://a.test", links[0].Href)
	assert.Equal(t, "C", links[1].Label)

	// list items only get inline parsing, so their links stay literal
	list, ok := nodes[1].(ListBlock)
	require.True(t, ok)
	assert.Equal(t, []Run{TextRun{"[B](https://b.test)"}}, list.Items[0])
}

func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"", "\n", "**", "***", "[", "]", "[](", "[a]()", "## ", "- ", "•", "• x\n\n**",
		"[a](b)[c](d)", "**a**b**c", "\x00\x1b[31m", strings.Repeat("*", 9),
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, s string) {
		nodes := Parse(s)
		if nodes == nil {
			t.Fatalf("Parse(%q) returned nil", s)
		}
		if strings.TrimSpace(s) != "" && len(nodes) == 0 {
			t.Fatalf("Parse(%q) returned no nodes for non-blank input", s)
		}
	})
}
