package markdown

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	boldPattern    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	linkPattern    = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	bracketPattern = regexp.MustCompile(`\[([^\]]+)\]`)
)

// builder folds lines into nodes. The open list is the only state carried
// from one line to the next.
type builder struct {
	nodes []Node
	list  *ListBlock
}

func (b *builder) flush() {
	if b.list != nil {
		b.nodes = append(b.nodes, *b.list)
		b.list = nil
	}
}

func (b *builder) emit(n Node) {
	b.flush()
	b.nodes = append(b.nodes, n)
}

func (b *builder) addItem(runs []Run) {
	if b.list == nil {
		b.list = &ListBlock{}
	}
	b.list.Items = append(b.list.Items, runs)
}

// Parse converts text into display nodes. It never fails: syntax it does not
// understand becomes a plain paragraph. Empty input yields no nodes.
func Parse(text string) []Node {
	b := &builder{nodes: []Node{}}
	if text == "" {
		return b.nodes
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			b.flush()
			continue
		}

		switch {
		case strings.HasPrefix(line, "## "):
			b.emit(Heading{Runs: ParseInline(line[len("## "):])})
		case isBoldLine(line):
			b.emit(Paragraph{Runs: []Run{BoldRun{Value: line[2 : len(line)-2]}}})
		case isBullet(line):
			b.addItem(ParseInline(dropRunes(line, 2)))
		case strings.Contains(line, "[") && strings.Contains(line, "]"):
			b.emit(Paragraph{Runs: parseLinkLine(line)})
		default:
			b.emit(Paragraph{Runs: ParseInline(line)})
		}
	}
	b.flush()

	return b.nodes
}

// ParseInline splits text into plain and **bold** runs. Spans are matched
// left to right, non-greedy and without nesting; a lone ** stays literal.
func ParseInline(text string) []Run {
	if text == "" {
		return []Run{}
	}

	matches := boldPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []Run{TextRun{Value: text}}
	}

	runs := make([]Run, 0, len(matches)*2+1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			runs = append(runs, TextRun{Value: text[last:m[0]]})
		}
		runs = append(runs, BoldRun{Value: text[m[2]:m[3]]})
		last = m[1]
	}
	if last < len(text) {
		runs = append(runs, TextRun{Value: text[last:]})
	}
	return runs
}

// parseLinkLine handles a line holding both brackets. Full [label](href)
// pairs become links; without any, bare [label] tokens are kept as literal
// bracket runs.
func parseLinkLine(line string) []Run {
	if matches := linkPattern.FindAllStringSubmatchIndex(line, -1); len(matches) > 0 {
		return splitMatches(line, matches, func(m []int) Run {
			return LinkRun{Label: line[m[2]:m[3]], Href: line[m[4]:m[5]]}
		})
	}
	if matches := bracketPattern.FindAllStringSubmatchIndex(line, -1); len(matches) > 0 {
		return splitMatches(line, matches, func(m []int) Run {
			return BracketRun{Label: line[m[2]:m[3]]}
		})
	}
	return ParseInline(line)
}

func splitMatches(line string, matches [][]int, token func(m []int) Run) []Run {
	var runs []Run
	last := 0
	for _, m := range matches {
		if m[0] > last {
			runs = append(runs, ParseInline(line[last:m[0]])...)
		}
		runs = append(runs, token(m))
		last = m[1]
	}
	if last < len(line) {
		runs = append(runs, ParseInline(line[last:])...)
	}
	return runs
}

func isBoldLine(line string) bool {
	return len(line) >= 4 && strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**")
}

func isBullet(line string) bool {
	marker, size := utf8.DecodeRuneInString(line)
	if marker != '•' && marker != '-' && marker != '*' {
		return false
	}
	next, _ := utf8.DecodeRuneInString(line[size:])
	return unicode.IsSpace(next)
}

// dropRunes removes the first n runes of s.
func dropRunes(s string, n int) string {
	for i := 0; i < n && s != ""; i++ {
		_, size := utf8.DecodeRuneInString(s)
		s = s[size:]
	}
	return s
}
