package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mithrel/craftforum/pkg/api"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Posts persists forum posts. CommentCount is derived on read.
type Posts interface {
	CreatePost(ctx context.Context, p api.Post) (api.Post, error)
	GetPost(ctx context.Context, id api.ID) (api.Post, error)
	UpdatePost(ctx context.Context, p api.Post) (api.Post, error)
	DeletePost(ctx context.Context, id api.ID) error
	ListPosts(ctx context.Context, q api.PostQuery) ([]api.Post, api.Page, error)
}

// Comments persists comments. ListComments returns a post's comments oldest
// first; parent references are stored as given and never cascaded.
type Comments interface {
	CreateComment(ctx context.Context, c api.Comment) (api.Comment, error)
	GetComment(ctx context.Context, id api.ID) (api.Comment, error)
	UpdateComment(ctx context.Context, c api.Comment) (api.Comment, error)
	DeleteComment(ctx context.Context, id api.ID) error
	ListComments(ctx context.Context, postID api.ID) ([]api.Comment, error)
}

// Users persists forum identities keyed by unique username.
type Users interface {
	EnsureUser(ctx context.Context, u api.User) (api.User, error)
	GetUser(ctx context.Context, id api.ID) (api.User, error)
	FindUser(ctx context.Context, username string) (api.User, error)
}

// Store groups the repositories of one backend.
type Store struct {
	Posts    Posts
	Comments Comments
	Users    Users
	closer   io.Closer
}

func (s *Store) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Open returns a Store for url: sqlite://path, postgres://..., or mem://.
func Open(ctx context.Context, url string) (*Store, error) {
	var (
		st     *Store
		closer io.Closer
		err    error
	)
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		st, closer, err = openSQLite(ctx, url)
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		st, closer, err = openPostgres(ctx, url)
	case strings.HasPrefix(url, "mem://"):
		st, closer, err = openMem()
	default:
		return nil, fmt.Errorf("unsupported db url %q", url)
	}
	if err != nil {
		return nil, err
	}
	st.closer = closer
	return st, nil
}
