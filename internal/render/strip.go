package render

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

// ruleText replaces horizontal rules in plain-text output.
const ruleText = "----------"

var reAlignDirective = regexp.MustCompile(`(?m)^(?:<div data-alignment="(?:left|center|right)">|</div>)[ \t]*$\n?`)

// Strip reduces markdown to plain text for previews. The result is escaped so
// it is safe to place in a page as text.
func Strip(text string) string {
	text = normalize(text)
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return textEscaper.Replace(plain(text))
}

// Snippet returns Strip(text) folded onto one line and cut to at most n runes.
func Snippet(text string, n int) string {
	text = normalize(text)
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return textEscaper.Replace(truncate(plain(text), n))
}

// PlainSnippet is Snippet for content that is not markdown. The text is
// folded, cut and escaped but its markers are kept.
func PlainSnippet(text string, n int) string {
	return textEscaper.Replace(truncate(normalize(text), n))
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimRight(string(r[:n-1]), " ") + "…"
}

// plain walks the parsed document and returns its unescaped text. Leaf blocks
// are joined by a newline, or a blank line where the source had one.
func plain(text string) string {
	src := []byte(reAlignDirective.ReplaceAllString(text, ""))
	doc := md.Parser().Parse(gtext.NewReader(src))

	var b strings.Builder
	var walk func(parent ast.Node)
	walk = func(parent ast.Node) {
		for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
			switch n.Kind() {
			case ast.KindList, ast.KindListItem, ast.KindBlockquote:
				walk(n)
				continue
			}
			if b.Len() > 0 {
				if blankBefore(n) {
					b.WriteString("\n\n")
				} else {
					b.WriteString("\n")
				}
			}
			switch n.Kind() {
			case ast.KindThematicBreak:
				b.WriteString(ruleText)
			case ast.KindFencedCodeBlock, ast.KindCodeBlock:
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					if i > 0 {
						b.WriteByte('\n')
					}
					seg := lines.At(i)
					b.Write(bytes.TrimRight(seg.Value(src), "\r\n"))
				}
			default:
				writeInline(&b, n, src)
			}
		}
	}
	walk(doc)
	return strings.TrimSpace(b.String())
}

// blankBefore reports whether a blank line precedes n or the containers it
// opens.
func blankBefore(n ast.Node) bool {
	for ; n != nil && n.Kind() != ast.KindDocument; n = n.Parent() {
		if n.HasBlankPreviousLines() {
			return true
		}
		if n.PreviousSibling() != nil {
			return false
		}
	}
	return false
}

func writeInline(b *strings.Builder, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(src))
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.Image:
			b.WriteString("[Image: ")
			writeInline(b, c, src)
			b.WriteString("]")
		default:
			writeInline(b, c, src)
		}
	}
}
