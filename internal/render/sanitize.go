package render

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = newPolicy()

// newPolicy extends the UGC policy with exactly the markup Markdown emits.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("u", "div", "span", "hr", "br")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^[A-Za-z0-9_+#. -]+$`)).OnElements("pre", "code", "span")
	p.AllowAttrs("data-lines").Matching(bluemonday.Integer).OnElements("pre")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AllowStyles("text-align").MatchingEnum("left", "center", "right").OnElements("div")
	p.AllowStyles("width").Matching(regexp.MustCompile(`^\d+(?:px|%)$`)).OnElements("img")
	p.RequireNoReferrerOnLinks(true)
	return p
}

// Sanitize filters rendered HTML through the forum policy. It is the last
// step before HTML leaves the process.
func Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return policy.Sanitize(html)
}

var rePlainBreak = regexp.MustCompile(`\r?\n`)

// Plain renders content of posts that opted out of markdown: escaped text
// with line breaks kept.
func Plain(text string) string {
	return rePlainBreak.ReplaceAllString(textEscaper.Replace(strings.TrimSpace(text)), "<br>")
}
