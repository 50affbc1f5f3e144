package forum

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mithrel/craftforum/internal/db"
	"github.com/mithrel/craftforum/internal/thread"
	"github.com/mithrel/craftforum/pkg/api"
)

type NewComment struct {
	ParentID api.ID `json:"parent_id,omitempty"`
	Content  string `json:"content"`
}

type CommentView struct {
	api.Comment
	HTML    string         `json:"html"`
	Edited  bool           `json:"edited"`
	CanEdit bool           `json:"can_edit"`
	Replies []*CommentView `json:"replies"`
}

// Thread is a post with its comments arranged for display.
type Thread struct {
	Post     PostView       `json:"post"`
	Comments []*CommentView `json:"comments"`
}

func (s *Service) CreateComment(ctx context.Context, v api.Viewer, postID api.ID, in NewComment) (api.Comment, error) {
	if strings.TrimSpace(in.Content) == "" {
		return api.Comment{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if _, err := s.GetPost(ctx, postID); err != nil {
		return api.Comment{}, err
	}
	if in.ParentID != "" {
		parent, err := s.store.Comments.GetComment(ctx, in.ParentID)
		if errors.Is(err, db.ErrNotFound) || (err == nil && parent.PostID != postID) {
			return api.Comment{}, fmt.Errorf("%w: parent comment %s is not on post %s", ErrInvalidInput, in.ParentID, postID)
		}
		if err != nil {
			return api.Comment{}, fmt.Errorf("get comment %s: %w", in.ParentID, err)
		}
	}
	author, err := s.author(ctx, v)
	if err != nil {
		return api.Comment{}, err
	}
	c := api.Comment{
		ID:        api.NewID(),
		PostID:    postID,
		ParentID:  in.ParentID,
		Content:   in.Content,
		Author:    author,
		CreatedAt: s.timestamp(),
	}
	created, err := s.store.Comments.CreateComment(ctx, c)
	if err != nil {
		return api.Comment{}, fmt.Errorf("create comment on %s: %w", postID, err)
	}
	s.log.Infow("comment created", "id", created.ID, "post", postID, "parent", in.ParentID)
	return created, nil
}

func (s *Service) GetComment(ctx context.Context, id api.ID) (api.Comment, error) {
	c, err := s.store.Comments.GetComment(ctx, id)
	if err != nil {
		return api.Comment{}, fmt.Errorf("get comment %s: %w", id, err)
	}
	return c, nil
}

func (s *Service) ownedComment(ctx context.Context, v api.Viewer, id api.ID) (api.Comment, error) {
	v, err := s.ResolveViewer(ctx, v)
	if err != nil {
		return api.Comment{}, err
	}
	if v.Anonymous() {
		return api.Comment{}, ErrUnauthenticated
	}
	c, err := s.GetComment(ctx, id)
	if err != nil {
		return api.Comment{}, err
	}
	if !thread.IsOwner(v, c) {
		return api.Comment{}, fmt.Errorf("%w: comment %s", ErrForbidden, id)
	}
	return c, nil
}

func (s *Service) EditComment(ctx context.Context, v api.Viewer, id api.ID, content string) (api.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return api.Comment{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	c, err := s.ownedComment(ctx, v, id)
	if err != nil {
		return api.Comment{}, err
	}
	now := s.timestamp()
	c.Content = content
	c.UpdatedAt = &now
	updated, err := s.store.Comments.UpdateComment(ctx, c)
	if err != nil {
		return api.Comment{}, fmt.Errorf("update comment %s: %w", id, err)
	}
	s.log.Infow("comment updated", "id", id)
	return updated, nil
}

// DeleteComment removes one comment. Its replies stay and are shown at the
// top level from then on.
func (s *Service) DeleteComment(ctx context.Context, v api.Viewer, id api.ID) error {
	if _, err := s.ownedComment(ctx, v, id); err != nil {
		return err
	}
	if err := s.store.Comments.DeleteComment(ctx, id); err != nil {
		return fmt.Errorf("delete comment %s: %w", id, err)
	}
	s.log.Infow("comment deleted", "id", id)
	return nil
}

// GetThread loads a post and its comment tree rendered for v.
func (s *Service) GetThread(ctx context.Context, v api.Viewer, postID api.ID) (Thread, error) {
	v, err := s.ResolveViewer(ctx, v)
	if err != nil {
		return Thread{}, err
	}
	p, err := s.GetPost(ctx, postID)
	if err != nil {
		return Thread{}, err
	}
	comments, err := s.store.Comments.ListComments(ctx, postID)
	if err != nil {
		return Thread{}, fmt.Errorf("list comments of %s: %w", postID, err)
	}
	nodes := thread.Collapse(thread.BuildTree(comments), s.opts.ThreadDepth)
	// The count comes from the same snapshot as the tree, not the post row.
	p.CommentCount = thread.Count(nodes)
	return Thread{
		Post: PostView{
			Post:    p,
			HTML:    s.RenderContent(ctx, p.Content, p.Markdown),
			Edited:  p.Edited(),
			CanEdit: thread.IsOwner(v, p),
		},
		Comments: s.commentViews(ctx, v, nodes, p.Markdown),
	}, nil
}

func (s *Service) commentViews(ctx context.Context, v api.Viewer, nodes []*api.CommentNode, markdown bool) []*CommentView {
	out := make([]*CommentView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &CommentView{
			Comment: n.Comment,
			HTML:    s.RenderContent(ctx, n.Content, markdown),
			Edited:  n.Edited(),
			CanEdit: thread.IsOwner(v, n),
			Replies: s.commentViews(ctx, v, n.Replies, markdown),
		})
	}
	return out
}
