package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mithrel/craftforum/internal/editor"
	"github.com/mithrel/craftforum/internal/forum"
	"github.com/mithrel/craftforum/pkg/api"
)

func newCommentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Reply to posts and manage your comments",
	}
	cmd.AddCommand(newCommentAddCmd())
	cmd.AddCommand(newCommentEditCmd())
	cmd.AddCommand(newCommentDeleteCmd())
	return cmd
}

func newCommentAddCmd() *cobra.Command {
	var replyTo, body string
	cmd := &cobra.Command{
		Use:   "add <post-id>",
		Short: "Comment on a post (opens $EDITOR without --body)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			v, err := requireViewer(cmd)
			if err != nil {
				return err
			}
			in := forum.NewComment{ParentID: api.ID(replyTo), Content: body}
			if body == "" {
				quoted := ""
				if replyTo != "" {
					parent, err := app.Forum.GetComment(cmd.Context(), in.ParentID)
					if err != nil {
						return err
					}
					quoted = app.Forum.StripContent(parent.Content)
				}
				d, err := compose(cmd, "comment", api.NewID().String(), editor.ComposeComment(quoted, ""))
				if err != nil {
					return err
				}
				in.Content = d.Body
			}
			c, err := app.Forum.CreateComment(cmd.Context(), v, api.ID(args[0]), in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), c.ID)
			return err
		},
	}
	cmd.Flags().StringVarP(&replyTo, "reply-to", "r", "", "id of the comment being answered")
	cmd.Flags().StringVar(&body, "body", "", "comment text; skips the editor")
	return cmd
}

func newCommentEditCmd() *cobra.Command {
	var body string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit one of your comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			v, err := requireViewer(cmd)
			if err != nil {
				return err
			}
			id := api.ID(args[0])
			if !cmd.Flags().Changed("body") {
				c, err := app.Forum.GetComment(cmd.Context(), id)
				if err != nil {
					return err
				}
				d, err := compose(cmd, "comment", id.String(), editor.ComposeComment("", c.Content))
				if err != nil {
					return err
				}
				if d.Body == c.Content {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), "no changes")
					return err
				}
				body = d.Body
			}
			c, err := app.Forum.EditComment(cmd.Context(), v, id, body)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), c.ID)
			return err
		},
	}
	cmd.Flags().StringVar(&body, "body", "", "new comment text")
	return cmd
}

func newCommentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete one of your comments; replies stay in the thread",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := requireViewer(cmd)
			if err != nil {
				return err
			}
			return getApp(cmd).Forum.DeleteComment(cmd.Context(), v, api.ID(args[0]))
		},
	}
}
