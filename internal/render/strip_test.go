package render

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"markers", "# Title\n**bold** and *it* ++u++", "Title\nbold and it u"},
		{"link keeps text", "[site](https://x.io)", "site"},
		{"image placeholder", "![cat](c.png)", "[Image: cat]"},
		{"rule", "---", ruleText},
		{"list and quote markers", "- a\n1. b\n> c", "a\nb\nc"},
		{"fenced code kept", "```go\nx := 1\n```", "x := 1"},
		{"inline code kept", "use `go test`", "use go test"},
		{"escapes html", "<b>&</b>", "&lt;b&gt;&amp;&lt;/b&gt;"},
		{"alignment directives removed", "<div data-alignment=\"left\">\nhello\n</div>", "hello"},
		{"blank line kept between blocks", "# Title\n\n*some* `code`", "Title\n\nsome code"},
		{"two bold spans", "**a** and **b**", "a and b"},
		{"two underscore bold spans", "__a__ and __b__", "a and b"},
		{"two underline spans", "++a++ and ++b++", "a and b"},
		{"two italic spans", "*a* and *b*", "a and b"},
		{"mixed spans", "**a** *b* __c__, _d_ and ++e++", "a b c, d and e"},
		{"bold italic", "***both*** and **x**", "both and x"},
		{"plus signs kept", "C++ and 1+1", "C++ and 1+1"},
		{"snake case kept", "snake_case_word", "snake_case_word"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Strip(tc.in))
		})
	}
}

func TestStrip_NeverEmitsMarkup(t *testing.T) {
	entity := regexp.MustCompile(`&(amp|lt|gt);`)
	for _, in := range []string{
		"<img src=x onerror=alert(1)>",
		"Tom & Jerry > Spike < Tyke",
		"**<b>**",
		"[<i>](<u>)",
		"<div data-alignment=\"center\">\n<script>\n</div>",
	} {
		got := Strip(in)
		assert.NotContains(t, got, "<", in)
		assert.NotContains(t, got, ">", in)
		bare := entity.ReplaceAllString(got, "")
		assert.False(t, strings.Contains(bare, "&"), "bare ampersand in %q", got)
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "Hello wo…", Snippet("# Hello\n\nworld of blocks", 9))
	assert.Equal(t, "short", Snippet("**short**", 20))
	assert.Equal(t, "a b", Snippet("a\n\n\nb", 0))
	assert.Equal(t, "a and b", Snippet("**a** and\n**b**", 20))
}

func TestPlainSnippet(t *testing.T) {
	assert.Equal(t, "**keep** #tag", PlainSnippet("**keep**\n\n#tag", 0))
	assert.Equal(t, "a_b &lt;c…", PlainSnippet("a_b <c> d e", 7))
	assert.Equal(t, "", PlainSnippet("  \n", 10))
}
