package format

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mithrel/craftforum/internal/forum"
	"github.com/mithrel/craftforum/internal/render"
)

// TSV columns: id, board, title, author, created_unix_ms, comments, snippet
var postHeaderLine = "id\tboard\ttitle\tauthor\tcreated_unix_ms\tcomments\tsnippet\n"

// TSV columns: depth, id, author, created_unix_ms, edited, text
var commentHeaderLine = "depth\tid\tauthor\tcreated_unix_ms\tedited\ttext\n"

func esc(field string) string {
	field = strings.ReplaceAll(field, "\t", "\\t")
	field = strings.ReplaceAll(field, "\n", "\\n")
	return field
}

func unixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano() / int64(time.Millisecond)
}

func postLine(p forum.PostSummary) string {
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
		esc(p.ID.String()), esc(p.Board), esc(p.Title), esc(p.Author.Username),
		unixMs(p.CreatedAt), p.CommentCount, esc(p.Snippet))
}

func WritePlainPosts(w io.Writer, posts []forum.PostSummary, headers bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if headers {
		_, _ = io.WriteString(tw, postHeaderLine)
	}
	for _, p := range posts {
		_, _ = io.WriteString(tw, postLine(p))
	}
	return tw.Flush()
}

// WritePlainThread writes the post followed by one line per comment. Comment
// text is the stripped form of the content.
func WritePlainThread(w io.Writer, th forum.Thread, headers bool) error {
	p := th.Post
	if err := WritePlainPosts(w, []forum.PostSummary{{Post: p.Post, Edited: p.Edited}}, headers); err != nil {
		return err
	}
	if len(th.Comments) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if headers {
		_, _ = io.WriteString(tw, commentHeaderLine)
	}
	var walk func(cs []*forum.CommentView, depth int)
	walk = func(cs []*forum.CommentView, depth int) {
		for _, c := range cs {
			text := c.Content
			if p.Markdown {
				text = render.Strip(text)
			}
			_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%t\t%s\n",
				depth, esc(c.ID.String()), esc(c.Author.Username), unixMs(c.CreatedAt), c.Edited, esc(text))
			walk(c.Replies, depth+1)
		}
	}
	walk(th.Comments, 0)
	return tw.Flush()
}
