package format

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/mithrel/craftforum/internal/forum"
	"github.com/mithrel/craftforum/internal/render"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	authorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	metaStyle   = lipgloss.NewStyle().Faint(true)
	branchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).MarginRight(1)
)

const treeSnippetLength = 72

// WriteTreeThread draws the comment hierarchy of a thread as a tree, one
// line per comment.
func WriteTreeThread(w io.Writer, th forum.Thread) error {
	p := th.Post
	root := tree.Root(fmt.Sprintf("%s %s", titleStyle.Render(p.Title),
		metaStyle.Render(fmt.Sprintf("by %s, %d comments", p.Author.Username, p.CommentCount)))).
		EnumeratorStyle(branchStyle)
	addComments(root, th.Comments)
	_, err := fmt.Fprintln(w, root.String())
	return err
}

func addComments(parent *tree.Tree, cs []*forum.CommentView) {
	for _, c := range cs {
		label := authorStyle.Render(c.Author.Username) + " " + render.Snippet(c.Content, treeSnippetLength)
		if c.Edited {
			label += metaStyle.Render(" (edited)")
		}
		if len(c.Replies) == 0 {
			parent.Child(label)
			continue
		}
		sub := tree.Root(label).EnumeratorStyle(branchStyle)
		addComments(sub, c.Replies)
		parent.Child(sub)
	}
}
