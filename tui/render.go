package tui

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"

	"tjchat/chat"
	"tjchat/markdown"
)

// Sanitize makes server text safe to print: escape sequences are removed
// and control characters other than newline and tab are dropped.
func Sanitize(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// SafeLink reports whether href may be opened: only absolute http and
// https URLs without control characters are.
func SafeLink(href string) bool {
	if strings.ContainsFunc(href, unicode.IsControl) {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Renderer draws messages for the terminal.
type Renderer struct {
	Width      int
	Hyperlinks bool
}

// Message renders one bubble with its author line.
func (r Renderer) Message(m chat.Message) string {
	width := r.Width
	if width < 10 {
		width = 10
	}

	stamp := ""
	if !m.Timestamp.IsZero() {
		stamp = " " + timeStyle.Render(m.Timestamp.Local().Format("15:04"))
	}

	switch {
	case m.Role == chat.RoleUser:
		label := userLabelStyle.Render("Вы") + stamp
		body := userBubbleStyle.Width(width).Render(Sanitize(m.Text))
		return label + "\n" + body
	case m.IsError:
		label := assistantLabelStyle.Render("Ассистент") + stamp
		body := errorBubbleStyle.Width(width - 2).Render(Sanitize(m.Text))
		return label + "\n" + body
	default:
		label := assistantLabelStyle.Render("Ассистент") + stamp
		return label + "\n" + r.Nodes(markdown.Parse(m.Text))
	}
}

// Nodes renders a parsed reply.
func (r Renderer) Nodes(nodes []markdown.Node) string {
	width := r.Width
	if width < 10 {
		width = 10
	}

	blocks := make([]string, 0, len(nodes))
	for _, n := range nodes {
		switch n := n.(type) {
		case markdown.Heading:
			blocks = append(blocks, headingStyle.Width(width).Render(r.runs(n.Runs)))
		case markdown.Paragraph:
			blocks = append(blocks, lipgloss.NewStyle().Width(width).Render(r.runs(n.Runs)))
		case markdown.ListBlock:
			items := make([]string, 0, len(n.Items))
			for _, item := range n.Items {
				text := lipgloss.NewStyle().Width(width - 2).Render(r.runs(item))
				items = append(items, lipgloss.JoinHorizontal(lipgloss.Top, "• ", text))
			}
			blocks = append(blocks, strings.Join(items, "\n"))
		}
	}
	return strings.Join(blocks, "\n")
}

func (r Renderer) runs(runs []markdown.Run) string {
	var b strings.Builder
	for _, run := range runs {
		switch run := run.(type) {
		case markdown.BoldRun:
			b.WriteString(boldStyle.Render(Sanitize(run.Value)))
		case markdown.LinkRun:
			b.WriteString(r.link(run))
		default:
			b.WriteString(Sanitize(run.Text()))
		}
	}
	return b.String()
}

func (r Renderer) link(l markdown.LinkRun) string {
	label := linkStyle.Render(Sanitize(l.Label))
	if !SafeLink(l.Href) {
		return label
	}
	if r.Hyperlinks {
		return termenv.Hyperlink(l.Href, label)
	}
	return label + " (" + Sanitize(l.Href) + ")"
}

// RenderPlain renders a reply as uncolored text wrapped at width, for
// output that is not a terminal UI.
func RenderPlain(text string, width int) string {
	var lines []string
	for _, n := range markdown.Parse(text) {
		switch n := n.(type) {
		case markdown.Heading:
			lines = append(lines, plainRuns(n.Runs))
		case markdown.Paragraph:
			lines = append(lines, plainRuns(n.Runs))
		case markdown.ListBlock:
			for _, item := range n.Items {
				lines = append(lines, "• "+plainRuns(item))
			}
		}
	}

	out := Sanitize(strings.Join(lines, "\n"))
	if width > 0 {
		out = wordwrap.String(out, width)
	}
	return out
}

func plainRuns(runs []markdown.Run) string {
	var b strings.Builder
	for _, run := range runs {
		if l, ok := run.(markdown.LinkRun); ok && SafeLink(l.Href) {
			b.WriteString(l.Label + " <" + l.Href + ">")
			continue
		}
		b.WriteString(run.Text())
	}
	return b.String()
}
