package render

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gtext "github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// maxHeading is the deepest heading level the dialect knows.
const maxHeading = 4

// collapsibleLines is the line count above which a code block is marked collapsible.
const collapsibleLines = 5

var kindUnderline = ast.NewNodeKind("Underline")

// underline is the inline node for ++text++.
type underline struct {
	ast.BaseInline
}

func (n *underline) Kind() ast.NodeKind { return kindUnderline }

func (n *underline) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

type underlineDelimiter struct{}

func (underlineDelimiter) IsDelimiter(b byte) bool { return b == '+' }

func (underlineDelimiter) CanOpenCloser(opener, closer *parser.Delimiter) bool {
	return opener.Char == closer.Char
}

func (underlineDelimiter) OnMatch(consumes int) ast.Node { return &underline{} }

// underlineParser matches runs of exactly two '+'. Anything else, like the
// single plus in 1+1 or the three in a+++, stays text.
type underlineParser struct{}

func (underlineParser) Trigger() []byte { return []byte{'+'} }

func (underlineParser) Parse(parent ast.Node, block gtext.Reader, pc parser.Context) ast.Node {
	before := block.PrecendingCharacter()
	line, segment := block.PeekLine()
	node := parser.ScanDelimiter(line, before, 1, underlineDelimiter{})
	if node == nil || node.OriginalLength != 2 || before == '+' {
		return nil
	}
	node.Segment = segment.WithStop(segment.Start + node.OriginalLength)
	block.Advance(node.OriginalLength)
	pc.PushDelimiter(node)
	return node
}

var reSizedImage = regexp.MustCompile(`^!\[([^\]\n]*)\]\(([^)\s]+)\s+width=(\d+(?:%|px)?)\)`)

// sizedImageParser reads ![alt](src width=N), which the link parser would
// reject because of the trailing width.
type sizedImageParser struct{}

func (sizedImageParser) Trigger() []byte { return []byte{'!'} }

func (sizedImageParser) Parse(parent ast.Node, block gtext.Reader, pc parser.Context) ast.Node {
	line, segment := block.PeekLine()
	m := reSizedImage.FindSubmatchIndex(line)
	if m == nil {
		return nil
	}
	link := ast.NewLink()
	link.Destination = append([]byte(nil), line[m[4]:m[5]]...)
	img := ast.NewImage(link)
	if m[3] > m[2] {
		img.AppendChild(img, ast.NewTextSegment(gtext.NewSegment(segment.Start+m[2], segment.Start+m[3])))
	}
	img.SetAttributeString("width", string(line[m[6]:m[7]]))
	block.Advance(m[1])
	return img
}

// cappedHeadingParser turns headings deeper than maxHeading back into text.
type cappedHeadingParser struct {
	parser.BlockParser
}

func (p cappedHeadingParser) Open(parent ast.Node, reader gtext.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, _ := reader.PeekLine()
	if pos := pc.BlockOffset(); pos >= 0 {
		level := 0
		for i := pos; i < len(line) && line[i] == '#'; i++ {
			level++
		}
		if level > maxHeading {
			return nil, parser.NoChildren
		}
	}
	return p.BlockParser.Open(parent, reader, pc)
}

// closedFenceParser only opens a code block when a closing fence follows.
// An unterminated fence is an ordinary paragraph.
type closedFenceParser struct {
	parser.BlockParser
}

func (p closedFenceParser) Open(parent ast.Node, reader gtext.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !hasClosingFence(line[pos:], reader.Source()[segment.Stop:]) {
		return nil, parser.NoChildren
	}
	return p.BlockParser.Open(parent, reader, pc)
}

func hasClosingFence(open, rest []byte) bool {
	if len(open) == 0 || (open[0] != '`' && open[0] != '~') {
		return false
	}
	c := open[0]
	n := 0
	for n < len(open) && open[n] == c {
		n++
	}
	for _, line := range bytes.Split(rest, []byte("\n")) {
		line = bytes.TrimLeft(line, " ")
		m := 0
		for m < len(line) && line[m] == c {
			m++
		}
		if m >= n && len(bytes.TrimSpace(line[m:])) == 0 {
			return true
		}
	}
	return false
}

// forumRenderer overrides the HTML of the nodes whose output differs from
// CommonMark: code blocks, links, images and underline.
type forumRenderer struct{}

func (r forumRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderCodeBlock)
	reg.Register(ast.KindLink, r.renderLink)
	reg.Register(ast.KindImage, r.renderImage)
	reg.Register(kindUnderline, r.renderUnderline)
}

func (r forumRenderer) renderCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)
	lines := n.Lines()
	_, _ = w.WriteString(`<pre class="code-block`)
	if lines.Len() > collapsibleLines {
		_, _ = w.WriteString(` collapsible" data-lines="` + strconv.Itoa(lines.Len()))
	}
	_, _ = w.WriteString(`"><code`)
	if lang := n.Language(source); len(lang) > 0 {
		_, _ = w.WriteString(` class="language-`)
		_, _ = w.Write(util.EscapeHTML(lang))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
	for i := 0; i < lines.Len(); i++ {
		if i > 0 {
			_ = w.WriteByte('\n')
		}
		seg := lines.At(i)
		_, _ = w.WriteString(`<span class="code-line">`)
		_, _ = w.WriteString(textEscaper.Replace(strings.TrimRight(string(seg.Value(source)), "\r\n")))
		_, _ = w.WriteString("</span>")
	}
	_, _ = w.WriteString("</code></pre>\n")
	return ast.WalkSkipChildren, nil
}

func (r forumRenderer) renderLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Link)
	if !entering {
		_, _ = w.WriteString("</a>")
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString(`<a href="`)
	_, _ = w.Write(destination(n.Destination))
	_, _ = w.WriteString(`" target="_blank">`)
	return ast.WalkContinue, nil
}

func (r forumRenderer) renderImage(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.Image)
	_, _ = w.WriteString(`<img src="`)
	_, _ = w.Write(destination(n.Destination))
	_, _ = w.WriteString(`" alt="`)
	var alt strings.Builder
	writeInline(&alt, n, source)
	_, _ = w.Write(util.EscapeHTML([]byte(alt.String())))
	_ = w.WriteByte('"')
	if v, ok := n.AttributeString("width"); ok {
		if width, ok := v.(string); ok {
			if !strings.HasSuffix(width, "%") && !strings.HasSuffix(width, "px") {
				width += "px"
			}
			_, _ = w.WriteString(` style="width: ` + width + `"`)
		}
	}
	_ = w.WriteByte('>')
	return ast.WalkSkipChildren, nil
}

func (r forumRenderer) renderUnderline(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("<u>")
	} else {
		_, _ = w.WriteString("</u>")
	}
	return ast.WalkContinue, nil
}

func destination(dest []byte) []byte {
	u := safeURL(string(dest))
	if u == "#" {
		return []byte(u)
	}
	return util.EscapeHTML(util.URLEscape([]byte(u), true))
}

// safeURL neutralises schemes that execute script when followed.
func safeURL(u string) string {
	scheme := strings.ToLower(strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, u))
	for _, bad := range []string{"javascript:", "vbscript:", "data:"} {
		if strings.HasPrefix(scheme, bad) {
			return "#"
		}
	}
	return u
}
