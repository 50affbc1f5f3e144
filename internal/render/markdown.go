// Package render turns forum markdown into HTML and plain-text previews.
//
// The dialect is CommonMark without raw HTML, setext headings or indented
// code, plus underline (++x++), images with an optional width
// (![alt](src width=50%)) and alignment blocks written as
// <div data-alignment="left|center|right">. Headings stop at level 4, a
// single newline is a line break, and a fence without a closing fence is
// plain text.
package render

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// Private-use runes delimit alignment tokens. They are removed from input
// so user text can never forge a token.
const (
	alignOpen  = '\uE000'
	alignClose = '\uE001'
)

var (
	reAlignBlock = regexp.MustCompile(`(?s)<div data-alignment="(left|center|right)">\n(.*?)\n</div>`)
	reAlignToken = regexp.MustCompile(`(?:<p>)?\x{E000}(\d+)\x{E001}(?:</p>)?`)
)

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

var md = goldmark.New(
	goldmark.WithParser(parser.NewParser(
		parser.WithBlockParsers(
			util.Prioritized(parser.NewThematicBreakParser(), 200),
			util.Prioritized(parser.NewListParser(), 300),
			util.Prioritized(parser.NewListItemParser(), 400),
			util.Prioritized(cappedHeadingParser{parser.NewATXHeadingParser()}, 600),
			util.Prioritized(closedFenceParser{parser.NewFencedCodeBlockParser()}, 700),
			util.Prioritized(parser.NewBlockquoteParser(), 800),
			util.Prioritized(parser.NewParagraphParser(), 1000),
		),
		parser.WithInlineParsers(
			util.Prioritized(parser.NewCodeSpanParser(), 100),
			util.Prioritized(sizedImageParser{}, 150),
			util.Prioritized(parser.NewLinkParser(), 200),
			util.Prioritized(parser.NewEmphasisParser(), 500),
			util.Prioritized(underlineParser{}, 500),
		),
		parser.WithParagraphTransformers(parser.DefaultParagraphTransformers()...),
	)),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		renderer.WithNodeRenderers(util.Prioritized(forumRenderer{}, 100)),
	),
)

type alignment struct {
	align string
	html  string
}

// Markdown renders text to HTML. Raw HTML in the input is escaped, never
// passed through. Markers that do not pair up are left as literal text.
func Markdown(text string) string {
	text = normalize(text)
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var aligns []alignment
	text = reAlignBlock.ReplaceAllStringFunc(text, func(m string) string {
		sub := reAlignBlock.FindStringSubmatch(m)
		aligns = append(aligns, alignment{align: sub[1], html: Markdown(sub[2])})
		return "\n\n" + string(alignOpen) + strconv.Itoa(len(aligns)-1) + string(alignClose) + "\n\n"
	})

	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "<p>" + textEscaper.Replace(text) + "</p>"
	}
	out := reAlignToken.ReplaceAllStringFunc(buf.String(), func(m string) string {
		i, err := strconv.Atoi(reAlignToken.FindStringSubmatch(m)[1])
		if err != nil || i >= len(aligns) {
			return ""
		}
		a := aligns[i]
		return `<div style="text-align: ` + a.align + `">` + a.html + "</div>"
	})
	return strings.TrimRight(out, "\n")
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Map(func(r rune) rune {
		if r == alignOpen || r == alignClose {
			return -1
		}
		return r
	}, text)
}
