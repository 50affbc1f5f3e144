package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	t.Run("drops script and handlers", func(t *testing.T) {
		got := Sanitize(`<p onclick="x()">hi</p><script>alert(1)</script>`)
		assert.Contains(t, got, "hi")
		assert.NotContains(t, got, "script")
		assert.NotContains(t, got, "onclick")
	})

	t.Run("keeps rendered markup", func(t *testing.T) {
		got := Sanitize(Markdown("**b** ++u++\n\n```go\nx\n```"))
		assert.Contains(t, got, "<strong>b</strong>")
		assert.Contains(t, got, "<u>u</u>")
		assert.Contains(t, got, `class="code-line"`)
		assert.Contains(t, got, `class="language-go"`)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", Sanitize(""))
	})
}

func TestPlain(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt;<br>c", Plain("a <b>\nc\n"))
	assert.Equal(t, "**not markdown**", Plain("**not markdown**"))
}
