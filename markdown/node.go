// Package markdown turns assistant replies into structured display nodes.
//
// Only a small subset is understood: "## " headings, whole-line bold, bullet
// lists, [label](href) links and inline **bold** spans. Anything else is a
// plain paragraph. The output is pure data; escaping and link handling are the
// job of the view that renders it.
package markdown

import "strings"

// Run is one inline fragment of a line.
type Run interface {
	// Text returns the visible text of the run.
	Text() string
	isRun()
}

// TextRun is plain text.
type TextRun struct {
	Value string
}

// BoldRun is text between a pair of ** markers.
type BoldRun struct {
	Value string
}

// LinkRun is a [label](href) link.
type LinkRun struct {
	Label string
	Href  string
}

// BracketRun is a bare [label] token kept literally, brackets included.
type BracketRun struct {
	Label string
}

func (r TextRun) Text() string    { return r.Value }
func (r BoldRun) Text() string    { return r.Value }
func (r LinkRun) Text() string    { return r.Label }
func (r BracketRun) Text() string { return "[" + r.Label + "]" }

func (TextRun) isRun()    {}
func (BoldRun) isRun()    {}
func (LinkRun) isRun()    {}
func (BracketRun) isRun() {}

// Node is one rendered block.
type Node interface {
	isNode()
}

// Heading is a "## " line.
type Heading struct {
	Runs []Run
}

// Paragraph is any other non-blank line.
type Paragraph struct {
	Runs []Run
}

// ListBlock groups consecutive bullet lines. Each item is a sequence of runs.
type ListBlock struct {
	Items [][]Run
}

func (Heading) isNode()   {}
func (Paragraph) isNode() {}
func (ListBlock) isNode() {}

// PlainText concatenates the visible text of runs.
func PlainText(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text())
	}
	return b.String()
}

// Links returns every link in nodes in reading order.
func Links(nodes []Node) []LinkRun {
	var links []LinkRun
	collect := func(runs []Run) {
		for _, r := range runs {
			if l, ok := r.(LinkRun); ok {
				links = append(links, l)
			}
		}
	}
	for _, n := range nodes {
		switch n := n.(type) {
		case Heading:
			collect(n.Runs)
		case Paragraph:
			collect(n.Runs)
		case ListBlock:
			for _, item := range n.Items {
				collect(item)
			}
		}
	}
	return links
}
