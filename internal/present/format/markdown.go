package format

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/mithrel/craftforum/internal/forum"
	"github.com/mithrel/craftforum/internal/render"
)

// ThreadMarkdown lays a thread out as one markdown document for terminal
// rendering. Replies are nested blockquotes.
func ThreadMarkdown(th forum.Thread) string {
	p := th.Post
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	fmt.Fprintf(&b, "> **%s** in *%s* | %s%s | %d comments\n\n", p.Author.Username, p.Board,
		p.CreatedAt.Local().Format(time.RFC3339), editedMark(p.Edited), p.CommentCount)
	b.WriteString("---\n\n")
	b.WriteString(displayText(p.Content, p.Markdown))
	b.WriteString("\n")

	if len(th.Comments) > 0 {
		b.WriteString("\n## Comments\n\n")
	}
	var walk func(cs []*forum.CommentView, depth int)
	walk = func(cs []*forum.CommentView, depth int) {
		prefix := strings.Repeat("> ", depth)
		for _, c := range cs {
			fmt.Fprintf(&b, "%s**%s** | %s%s\n%s\n", prefix, c.Author.Username,
				c.CreatedAt.Local().Format(time.RFC3339), editedMark(c.Edited), strings.TrimSpace(prefix))
			for _, line := range strings.Split(displayText(c.Content, p.Markdown), "\n") {
				b.WriteString(prefix + line + "\n")
			}
			b.WriteString("\n")
			walk(c.Replies, depth+1)
		}
	}
	walk(th.Comments, 0)
	return b.String()
}

// displayText keeps markdown as written; plain content is reduced so the
// terminal renderer does not interpret it.
func displayText(content string, markdown bool) string {
	content = strings.TrimSpace(content)
	if markdown {
		return content
	}
	return render.Strip(content)
}

func editedMark(edited bool) string {
	if edited {
		return " (edited)"
	}
	return ""
}

// WritePrettyThread renders a thread with markdown formatting using glamour.
func WritePrettyThread(w io.Writer, th forum.Thread) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dracula"),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	out, err := r.Render(ThreadMarkdown(th))
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}

	_, err = io.WriteString(w, out)
	return err
}
