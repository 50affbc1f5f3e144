package db

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mithrel/craftforum/pkg/api"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type pgStore struct{ pool *pgxpool.Pool }

type poolCloser struct{ pool *pgxpool.Pool }

func (c poolCloser) Close() error {
	c.pool.Close()
	return nil
}

func openPostgres(ctx context.Context, url string) (*Store, io.Closer, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, nil, err
	}
	s := &pgStore{pool: pool}
	return &Store{Posts: s, Comments: s, Users: s}, poolCloser{pool: pool}, nil
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  avatar_url TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS posts (
  id TEXT PRIMARY KEY,
  board TEXT NOT NULL,
  title TEXT NOT NULL,
  content TEXT NOT NULL,
  markdown BOOLEAN NOT NULL DEFAULT TRUE,
  author_id TEXT NOT NULL DEFAULT '',
  author_name TEXT NOT NULL,
  author_avatar TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_posts_board_created_id ON posts(board, created_at DESC, id);
CREATE TABLE IF NOT EXISTS comments (
  id TEXT PRIMARY KEY,
  post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
  parent_id TEXT NOT NULL DEFAULT '',
  content TEXT NOT NULL,
  author_id TEXT NOT NULL DEFAULT '',
  author_name TEXT NOT NULL,
  author_avatar TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_comments_post_created ON comments(post_id, created_at, id);
`

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func pgScanPost(row pgx.Row) (api.Post, error) {
	var p api.Post
	err := row.Scan(&p.ID, &p.Board, &p.Title, &p.Content, &p.Markdown,
		&p.Author.UserID, &p.Author.Username, &p.Author.AvatarURL,
		&p.CreatedAt, &p.UpdatedAt, &p.CommentCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return api.Post{}, ErrNotFound
	}
	p.CreatedAt = p.CreatedAt.UTC()
	if p.UpdatedAt != nil {
		u := p.UpdatedAt.UTC()
		p.UpdatedAt = &u
	}
	return p, err
}

func pgScanComment(row pgx.Row) (api.Comment, error) {
	var c api.Comment
	err := row.Scan(&c.ID, &c.PostID, &c.ParentID, &c.Content,
		&c.Author.UserID, &c.Author.Username, &c.Author.AvatarURL,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return api.Comment{}, ErrNotFound
	}
	c.CreatedAt = c.CreatedAt.UTC()
	if c.UpdatedAt != nil {
		u := c.UpdatedAt.UTC()
		c.UpdatedAt = &u
	}
	return c, err
}

func (s *pgStore) CreatePost(ctx context.Context, p api.Post) (api.Post, error) {
	if p.ID == "" {
		return api.Post{}, ErrConflict
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO posts(id, board, title, content, markdown, author_id, author_name, author_avatar, created_at, updated_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.Board, p.Title, p.Content, p.Markdown, p.Author.UserID, p.Author.Username, p.Author.AvatarURL, p.CreatedAt.UTC(), p.UpdatedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			err = ErrConflict
		}
		return api.Post{}, err
	}
	return s.GetPost(ctx, p.ID)
}

func (s *pgStore) GetPost(ctx context.Context, id api.ID) (api.Post, error) {
	return pgScanPost(s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id=$1`, id))
}

func (s *pgStore) UpdatePost(ctx context.Context, p api.Post) (api.Post, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE posts SET title=$1, content=$2, markdown=$3, updated_at=$4 WHERE id=$5`,
		p.Title, p.Content, p.Markdown, p.UpdatedAt, p.ID)
	if err != nil {
		return api.Post{}, err
	}
	if tag.RowsAffected() == 0 {
		return api.Post{}, ErrNotFound
	}
	return s.GetPost(ctx, p.ID)
}

func (s *pgStore) DeletePost(ctx context.Context, id api.ID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) ListPosts(ctx context.Context, q api.PostQuery) ([]api.Post, api.Page, error) {
	limit := pageLimit(q.Limit)
	conds := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if q.Board != "" {
		conds = append(conds, "p.board = "+arg(q.Board))
	}
	cursor, hasCursor := parseCursorToken(q.Cursor)
	if hasCursor {
		op := "<"
		if q.Reverse {
			op = ">"
		}
		conds = append(conds, "(p.created_at, p.id) "+op+" ("+arg(cursor.ts.UTC())+", "+arg(cursor.id)+")")
	}
	sqlq := `SELECT ` + postColumns + ` FROM posts p`
	if len(conds) > 0 {
		sqlq += "\nWHERE " + strings.Join(conds, " AND ")
	}
	if q.Reverse {
		sqlq += "\nORDER BY p.created_at ASC, p.id ASC"
	} else {
		sqlq += "\nORDER BY p.created_at DESC, p.id DESC"
	}
	sqlq += "\nLIMIT " + arg(limit+1)

	rows, err := s.pool.Query(ctx, sqlq, args...)
	if err != nil {
		return nil, api.Page{}, err
	}
	defer rows.Close()
	var out []api.Post
	for rows.Next() {
		p, err := pgScanPost(rows)
		if err != nil {
			return nil, api.Page{}, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, api.Page{}, err
	}
	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	if q.Reverse {
		reversePosts(out)
	}
	return out, buildPage(out, hasMore, q.Reverse, hasCursor), nil
}

func (s *pgStore) CreateComment(ctx context.Context, c api.Comment) (api.Comment, error) {
	if c.ID == "" {
		return api.Comment{}, ErrConflict
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO comments(`+commentColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.PostID, c.ParentID, c.Content, c.Author.UserID, c.Author.Username, c.Author.AvatarURL, c.CreatedAt.UTC(), c.UpdatedAt)
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			err = ErrConflict
		case pgForeignKeyViolation:
			err = ErrNotFound
		}
		return api.Comment{}, err
	}
	return s.GetComment(ctx, c.ID)
}

func (s *pgStore) GetComment(ctx context.Context, id api.ID) (api.Comment, error) {
	return pgScanComment(s.pool.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id=$1`, id))
}

func (s *pgStore) UpdateComment(ctx context.Context, c api.Comment) (api.Comment, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE comments SET content=$1, updated_at=$2 WHERE id=$3`, c.Content, c.UpdatedAt, c.ID)
	if err != nil {
		return api.Comment{}, err
	}
	if tag.RowsAffected() == 0 {
		return api.Comment{}, ErrNotFound
	}
	return s.GetComment(ctx, c.ID)
}

func (s *pgStore) DeleteComment(ctx context.Context, id api.ID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) ListComments(ctx context.Context, postID api.ID) ([]api.Comment, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+commentColumns+` FROM comments WHERE post_id=$1 ORDER BY created_at ASC, id ASC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []api.Comment{}
	for rows.Next() {
		c, err := pgScanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *pgStore) EnsureUser(ctx context.Context, u api.User) (api.User, error) {
	if strings.TrimSpace(u.Username) == "" {
		return api.User{}, errors.New("username is required")
	}
	if u.ID == "" {
		u.ID = api.NewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	// a concurrent insert of the same username is absorbed by ON CONFLICT
	if _, err := s.pool.Exec(ctx, `INSERT INTO users(id, username, avatar_url, created_at) VALUES($1,$2,$3,$4) ON CONFLICT (username) DO NOTHING`,
		u.ID, u.Username, u.AvatarURL, u.CreatedAt.UTC()); err != nil {
		return api.User{}, err
	}
	return s.FindUser(ctx, u.Username)
}

func (s *pgStore) GetUser(ctx context.Context, id api.ID) (api.User, error) {
	return pgScanUser(s.pool.QueryRow(ctx, `SELECT id, username, avatar_url, created_at FROM users WHERE id=$1`, id))
}

func (s *pgStore) FindUser(ctx context.Context, username string) (api.User, error) {
	return pgScanUser(s.pool.QueryRow(ctx, `SELECT id, username, avatar_url, created_at FROM users WHERE username=$1`, username))
}

func pgScanUser(row pgx.Row) (api.User, error) {
	var u api.User
	if err := row.Scan(&u.ID, &u.Username, &u.AvatarURL, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return api.User{}, ErrNotFound
		}
		return api.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
