package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mithrel/craftforum/internal/editor"
	"github.com/mithrel/craftforum/internal/forum"
	"github.com/mithrel/craftforum/internal/present"
	"github.com/mithrel/craftforum/internal/util"
	"github.com/mithrel/craftforum/pkg/api"
)

func newPostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Create, list and manage posts",
	}
	cmd.AddCommand(newPostAddCmd())
	cmd.AddCommand(newPostListCmd())
	cmd.AddCommand(newPostShowCmd())
	cmd.AddCommand(newPostEditCmd())
	cmd.AddCommand(newPostDeleteCmd())
	return cmd
}

func newPostAddCmd() *cobra.Command {
	var board, body string
	var plain bool
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a post (opens $EDITOR without --body)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := requireViewer(cmd)
			if err != nil {
				return err
			}
			in := forum.NewPost{Board: board, Title: strings.Join(args, " "), Content: body}
			if cmd.Flags().Changed("plain") {
				md := !plain
				in.Markdown = &md
			}
			if body == "" {
				d, err := compose(cmd, "post", api.NewID().String(), editor.ComposePost(in.Title, board, !plain, ""))
				if err != nil {
					return err
				}
				if d.Title != "" {
					in.Title = d.Title
				}
				if d.Board != "" {
					in.Board = d.Board
				}
				if d.Markdown != nil {
					in.Markdown = d.Markdown
				}
				in.Content = d.Body
			}
			if in.Title == "" {
				in.Title = editor.FirstLine(in.Content)
			}
			p, err := getApp(cmd).Forum.CreatePost(cmd.Context(), v, in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p.ID)
			return err
		},
	}
	cmd.Flags().StringVarP(&board, "board", "b", "", "board to post in")
	cmd.Flags().StringVar(&body, "body", "", "post body; skips the editor")
	cmd.Flags().BoolVar(&plain, "plain", false, "treat the body as plain text instead of markdown")
	registerBoardCompletion(cmd)
	return cmd
}

func newPostListCmd() *cobra.Command {
	var board, match, since, until, output string
	var limit int
	var reverse, noHeaders bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List posts, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			opts, err := outputOptions(cmd, output, noHeaders, present.ModePlain)
			if err != nil {
				return err
			}
			from, to, err := util.NormalizeTimeRange(since, until, time.Now())
			if err != nil {
				return err
			}
			pageSize := app.Cfg.GetInt("export.page_size")
			if limit > 0 && limit < pageSize {
				pageSize = limit
			}

			// next returns the following filtered page, or nil when done.
			q := api.PostQuery{Board: board, Limit: pageSize, Reverse: reverse}
			done := false
			next := func() ([]forum.PostSummary, error) {
				for !done {
					posts, page, err := app.Forum.ListPosts(cmd.Context(), q)
					if err != nil {
						return nil, err
					}
					cursor := page.Next
					if reverse {
						cursor = page.Prev
					}
					if cursor == "" || len(posts) == 0 {
						done = true
					}
					q.Cursor = cursor
					kept := posts[:0]
					for _, p := range posts {
						if util.InRange(p.CreatedAt, from, to) {
							kept = append(kept, p)
						}
					}
					if len(kept) > 0 {
						return kept, nil
					}
				}
				return nil, nil
			}

			return withPager(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), func(w io.Writer) error {
				sw := present.NewPostStreamWriter(w, opts)
				if match != "" {
					var all []forum.PostSummary
					for {
						batch, err := next()
						if err != nil {
							return err
						}
						if batch == nil {
							break
						}
						all = append(all, batch...)
					}
					titles := make([]string, len(all))
					for i, p := range all {
						titles[i] = p.Title
					}
					ranked := make([]forum.PostSummary, 0, len(all))
					for _, i := range util.RankMatches(match, titles, limit) {
						ranked = append(ranked, all[i])
					}
					if err := sw.WritePosts(ranked); err != nil {
						return err
					}
					return sw.Close()
				}
				written := 0
				for {
					batch, err := next()
					if err != nil {
						return err
					}
					if batch == nil {
						break
					}
					if limit > 0 && written+len(batch) > limit {
						batch = batch[:limit-written]
					}
					if err := sw.WritePosts(batch); err != nil {
						return err
					}
					written += len(batch)
					if limit > 0 && written >= limit {
						break
					}
				}
				return sw.Close()
			})
		},
	}
	cmd.Flags().StringVarP(&board, "board", "b", "", "only posts on this board")
	cmd.Flags().StringVar(&match, "match", "", "fuzzy match on titles, best first")
	cmd.Flags().StringVar(&since, "since", "", "only posts created after (RFC3339, date, or relative like 2h, 3d)")
	cmd.Flags().StringVar(&until, "until", "", "only posts created before")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of posts (0 for all)")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "oldest first")
	addOutputFlags(cmd, &output, &noHeaders)
	registerBoardCompletion(cmd)
	return cmd
}

func newPostShowCmd() *cobra.Command {
	var output string
	var noHeaders bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a post with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			opts, err := outputOptions(cmd, output, noHeaders, present.ModePretty)
			if err != nil {
				return err
			}
			th, err := app.Forum.GetThread(cmd.Context(), viewer(cmd), api.ID(args[0]))
			if err != nil {
				return err
			}
			return withPager(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), func(w io.Writer) error {
				return present.RenderThread(w, th, opts)
			})
		},
	}
	addOutputFlags(cmd, &output, &noHeaders)
	return cmd
}

func newPostEditCmd() *cobra.Command {
	var title, body string
	var plain bool
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit one of your posts (opens $EDITOR without flags)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			v, err := requireViewer(cmd)
			if err != nil {
				return err
			}
			id := api.ID(args[0])
			var edit forum.PostEdit
			if cmd.Flags().Changed("title") {
				edit.Title = &title
			}
			if cmd.Flags().Changed("body") {
				edit.Content = &body
			}
			if cmd.Flags().Changed("plain") {
				md := !plain
				edit.Markdown = &md
			}
			if edit == (forum.PostEdit{}) {
				p, err := app.Forum.GetPost(cmd.Context(), id)
				if err != nil {
					return err
				}
				d, err := compose(cmd, "post", id.String(), editor.ComposePost(p.Title, p.Board, p.Markdown, p.Content))
				if err != nil {
					return err
				}
				if d.Title != "" && d.Title != p.Title {
					edit.Title = &d.Title
				}
				if d.Body != p.Content {
					edit.Content = &d.Body
				}
				if d.Markdown != nil && *d.Markdown != p.Markdown {
					edit.Markdown = d.Markdown
				}
				if edit == (forum.PostEdit{}) {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), "no changes")
					return err
				}
			}
			p, err := app.Forum.UpdatePost(cmd.Context(), v, id, edit)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p.ID)
			return err
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&body, "body", "", "new body")
	cmd.Flags().BoolVar(&plain, "plain", false, "treat the body as plain text")
	return cmd
}

func newPostDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete one of your posts and its comments",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			v, err := requireViewer(cmd)
			if err != nil {
				return err
			}
			return app.Forum.DeletePost(cmd.Context(), v, api.ID(args[0]))
		},
	}
}
