package forum

import (
	"context"
	"fmt"
	"strings"

	"github.com/mithrel/craftforum/internal/render"
	"github.com/mithrel/craftforum/internal/thread"
	"github.com/mithrel/craftforum/pkg/api"
)

// NewPost is the input for CreatePost. A nil Markdown uses the board default.
type NewPost struct {
	Board    string `json:"board"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Markdown *bool  `json:"markdown,omitempty"`
}

// PostEdit carries the fields of a post that may change. Nil fields are kept.
type PostEdit struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	Markdown *bool   `json:"markdown,omitempty"`
}

// PostSummary is one row of a post listing.
type PostSummary struct {
	api.Post
	Snippet string `json:"snippet"`
	Edited  bool   `json:"edited"`
}

type PostView struct {
	api.Post
	HTML    string `json:"html"`
	Edited  bool   `json:"edited"`
	CanEdit bool   `json:"can_edit"`
}

func (s *Service) CreatePost(ctx context.Context, v api.Viewer, in NewPost) (api.Post, error) {
	b, err := s.board(in.Board)
	if err != nil {
		return api.Post{}, err
	}
	if b.Locked {
		return api.Post{}, fmt.Errorf("%w: board %s is locked", ErrForbidden, b.Name)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return api.Post{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Content) == "" {
		return api.Post{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	author, err := s.author(ctx, v)
	if err != nil {
		return api.Post{}, err
	}
	md := b.Markdown
	if in.Markdown != nil {
		md = *in.Markdown
	}
	p := api.Post{
		ID:        api.NewID(),
		Board:     b.Name,
		Title:     title,
		Content:   in.Content,
		Markdown:  md,
		Author:    author,
		CreatedAt: s.timestamp(),
	}
	created, err := s.store.Posts.CreatePost(ctx, p)
	if err != nil {
		return api.Post{}, fmt.Errorf("create post: %w", err)
	}
	s.log.Infow("post created", "id", created.ID, "board", created.Board, "author", author.Username)
	return created, nil
}

// GetPost loads a post without rendering it.
func (s *Service) GetPost(ctx context.Context, id api.ID) (api.Post, error) {
	p, err := s.store.Posts.GetPost(ctx, id)
	if err != nil {
		return api.Post{}, fmt.Errorf("get post %s: %w", id, err)
	}
	return p, nil
}

func (s *Service) UpdatePost(ctx context.Context, v api.Viewer, id api.ID, edit PostEdit) (api.Post, error) {
	v, err := s.ResolveViewer(ctx, v)
	if err != nil {
		return api.Post{}, err
	}
	if v.Anonymous() {
		return api.Post{}, ErrUnauthenticated
	}
	p, err := s.GetPost(ctx, id)
	if err != nil {
		return api.Post{}, err
	}
	if !thread.IsOwner(v, p) {
		return api.Post{}, fmt.Errorf("%w: post %s", ErrForbidden, id)
	}
	if edit.Title != nil {
		t := strings.TrimSpace(*edit.Title)
		if t == "" {
			return api.Post{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		p.Title = t
	}
	if edit.Content != nil {
		if strings.TrimSpace(*edit.Content) == "" {
			return api.Post{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
		}
		p.Content = *edit.Content
	}
	if edit.Markdown != nil {
		p.Markdown = *edit.Markdown
	}
	now := s.timestamp()
	p.UpdatedAt = &now
	updated, err := s.store.Posts.UpdatePost(ctx, p)
	if err != nil {
		return api.Post{}, fmt.Errorf("update post %s: %w", id, err)
	}
	s.log.Infow("post updated", "id", id)
	return updated, nil
}

func (s *Service) DeletePost(ctx context.Context, v api.Viewer, id api.ID) error {
	v, err := s.ResolveViewer(ctx, v)
	if err != nil {
		return err
	}
	if v.Anonymous() {
		return ErrUnauthenticated
	}
	p, err := s.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if !thread.IsOwner(v, p) {
		return fmt.Errorf("%w: post %s", ErrForbidden, id)
	}
	if err := s.store.Posts.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	s.log.Infow("post deleted", "id", id)
	return nil
}

func (s *Service) ListPosts(ctx context.Context, q api.PostQuery) ([]PostSummary, api.Page, error) {
	posts, page, err := s.store.Posts.ListPosts(ctx, q)
	if err != nil {
		return nil, api.Page{}, fmt.Errorf("list posts: %w", err)
	}
	out := make([]PostSummary, 0, len(posts))
	for _, p := range posts {
		snippet := render.PlainSnippet(p.Content, s.opts.SnippetLength)
		if p.Markdown {
			snippet = render.Snippet(p.Content, s.opts.SnippetLength)
		}
		out = append(out, PostSummary{
			Post:    p,
			Snippet: snippet,
			Edited:  p.Edited(),
		})
	}
	return out, page, nil
}
