package db

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mithrel/craftforum/pkg/api"
)

type sqliteStore struct{ db *sql.DB }

const postColumns = `p.id, p.board, p.title, p.content, p.markdown, p.author_id, p.author_name, p.author_avatar, p.created_at, p.updated_at,
  (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id)`

const commentColumns = `id, post_id, parent_id, content, author_id, author_name, author_avatar, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (api.Post, error) {
	var (
		p       api.Post
		updated sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Board, &p.Title, &p.Content, &p.Markdown,
		&p.Author.UserID, &p.Author.Username, &p.Author.AvatarURL,
		&p.CreatedAt, &updated, &p.CommentCount)
	if err != nil {
		return api.Post{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = nullTime(updated)
	return p, nil
}

func scanComment(row rowScanner) (api.Comment, error) {
	var (
		c       api.Comment
		updated sql.NullTime
	)
	err := row.Scan(&c.ID, &c.PostID, &c.ParentID, &c.Content,
		&c.Author.UserID, &c.Author.Username, &c.Author.AvatarURL,
		&c.CreatedAt, &updated)
	if err != nil {
		return api.Comment{}, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = nullTime(updated)
	return c, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func isUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE")
}

// Posts

func (s *sqliteStore) CreatePost(ctx context.Context, p api.Post) (api.Post, error) {
	if p.ID == "" {
		return api.Post{}, ErrConflict
	}
	_, err := queryerFor(ctx, s.db).ExecContext(ctx, `INSERT INTO posts(id, board, title, content, markdown, author_id, author_name, author_avatar, created_at, updated_at) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Board, p.Title, p.Content, p.Markdown, p.Author.UserID, p.Author.Username, p.Author.AvatarURL, p.CreatedAt.UTC(), utcPtr(p.UpdatedAt))
	if err != nil {
		if isUnique(err) {
			err = ErrConflict
		}
		return api.Post{}, err
	}
	return s.GetPost(ctx, p.ID)
}

func (s *sqliteStore) GetPost(ctx context.Context, id api.ID) (api.Post, error) {
	row := queryerFor(ctx, s.db).QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id=?`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Post{}, ErrNotFound
	}
	return p, err
}

func (s *sqliteStore) UpdatePost(ctx context.Context, p api.Post) (api.Post, error) {
	res, err := queryerFor(ctx, s.db).ExecContext(ctx, `UPDATE posts SET title=?, content=?, markdown=?, updated_at=? WHERE id=?`,
		p.Title, p.Content, p.Markdown, utcPtr(p.UpdatedAt), p.ID)
	if err != nil {
		return api.Post{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return api.Post{}, ErrNotFound
	}
	return s.GetPost(ctx, p.ID)
}

func (s *sqliteStore) DeletePost(ctx context.Context, id api.ID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	ctx = WithTx(ctx, tx)

	// comments cascade through the foreign key
	res, err := queryerFor(ctx, s.db).ExecContext(ctx, `DELETE FROM posts WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ListPosts returns a page of posts, newest first. A Reverse query walks
// towards newer posts from the cursor and still returns newest first.
func (s *sqliteStore) ListPosts(ctx context.Context, q api.PostQuery) ([]api.Post, api.Page, error) {
	limit := pageLimit(q.Limit)
	conds := []string{}
	args := []any{}
	if q.Board != "" {
		conds = append(conds, "p.board = ?")
		args = append(args, q.Board)
	}
	cursor, hasCursor := parseCursorToken(q.Cursor)
	if hasCursor {
		op := "<"
		if q.Reverse {
			op = ">"
		}
		conds = append(conds, "(p.created_at "+op+" ? OR (p.created_at = ? AND p.id "+op+" ?))")
		args = append(args, cursor.ts.UTC(), cursor.ts.UTC(), cursor.id)
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
	sqlq += "\nLIMIT ?"
	args = append(args, limit+1)

	rows, err := queryerFor(ctx, s.db).QueryContext(ctx, sqlq, args...)
	if err != nil {
		return nil, api.Page{}, err
	}
	defer rows.Close()

	var out []api.Post
	for rows.Next() {
		p, err := scanPost(rows)
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

// Comments

func (s *sqliteStore) CreateComment(ctx context.Context, c api.Comment) (api.Comment, error) {
	if c.ID == "" {
		return api.Comment{}, ErrConflict
	}
	_, err := queryerFor(ctx, s.db).ExecContext(ctx, `INSERT INTO comments(`+commentColumns+`) VALUES(?,?,?,?,?,?,?,?,?)`,
		c.ID, c.PostID, c.ParentID, c.Content, c.Author.UserID, c.Author.Username, c.Author.AvatarURL, c.CreatedAt.UTC(), utcPtr(c.UpdatedAt))
	if err != nil {
		switch {
		case isUnique(err):
			err = ErrConflict
		case strings.Contains(err.Error(), "FOREIGN KEY"):
			err = ErrNotFound
		}
		return api.Comment{}, err
	}
	return s.GetComment(ctx, c.ID)
}

func (s *sqliteStore) GetComment(ctx context.Context, id api.ID) (api.Comment, error) {
	row := queryerFor(ctx, s.db).QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id=?`, id)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Comment{}, ErrNotFound
	}
	return c, err
}

func (s *sqliteStore) UpdateComment(ctx context.Context, c api.Comment) (api.Comment, error) {
	res, err := queryerFor(ctx, s.db).ExecContext(ctx, `UPDATE comments SET content=?, updated_at=? WHERE id=?`,
		c.Content, utcPtr(c.UpdatedAt), c.ID)
	if err != nil {
		return api.Comment{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return api.Comment{}, ErrNotFound
	}
	return s.GetComment(ctx, c.ID)
}

func (s *sqliteStore) DeleteComment(ctx context.Context, id api.ID) error {
	res, err := queryerFor(ctx, s.db).ExecContext(ctx, `DELETE FROM comments WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) ListComments(ctx context.Context, postID api.ID) ([]api.Comment, error) {
	rows, err := queryerFor(ctx, s.db).QueryContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE post_id=? ORDER BY created_at ASC, id ASC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []api.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Users

// EnsureUser returns the user with u.Username, creating it from u when absent.
func (s *sqliteStore) EnsureUser(ctx context.Context, u api.User) (api.User, error) {
	if strings.TrimSpace(u.Username) == "" {
		return api.User{}, errors.New("username is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return api.User{}, err
	}
	defer tx.Rollback()
	ctx = WithTx(ctx, tx)

	existing, err := s.FindUser(ctx, u.Username)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return api.User{}, err
	}
	if u.ID == "" {
		u.ID = api.NewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO users(id, username, avatar_url, created_at) VALUES(?,?,?,?)`,
		u.ID, u.Username, u.AvatarURL, u.CreatedAt.UTC()); err != nil {
		if isUnique(err) {
			err = ErrConflict
		}
		return api.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return api.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (s *sqliteStore) GetUser(ctx context.Context, id api.ID) (api.User, error) {
	return s.scanUser(queryerFor(ctx, s.db).QueryRowContext(ctx, `SELECT id, username, avatar_url, created_at FROM users WHERE id=?`, id))
}

func (s *sqliteStore) FindUser(ctx context.Context, username string) (api.User, error) {
	return s.scanUser(queryerFor(ctx, s.db).QueryRowContext(ctx, `SELECT id, username, avatar_url, created_at FROM users WHERE username=?`, username))
}

func (s *sqliteStore) scanUser(row rowScanner) (api.User, error) {
	var u api.User
	if err := row.Scan(&u.ID, &u.Username, &u.AvatarURL, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.User{}, ErrNotFound
		}
		return api.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// openSQLite opens the database file named by dsn and bootstraps its schema.
func openSQLite(ctx context.Context, dsn string) (*Store, io.Closer, error) {
	path := strings.TrimPrefix(dsn, "sqlite://")
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, err
	}
	dbh, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, err
	}
	// pragmas are per connection; one connection keeps them in force
	dbh.SetMaxOpenConns(1)
	// set WAL mode
	if _, err := dbh.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = dbh.Close()
		return nil, nil, err
	}
	// enforce foreign keys
	if _, err := dbh.ExecContext(ctx, `PRAGMA foreign_keys=ON;`); err != nil {
		_ = dbh.Close()
		return nil, nil, err
	}
	// the CLI and a running server may share the file
	if _, err := dbh.ExecContext(ctx, `PRAGMA busy_timeout=5000;`); err != nil {
		_ = dbh.Close()
		return nil, nil, err
	}
	if err := migrate(ctx, dbh); err != nil {
		_ = dbh.Close()
		return nil, nil, err
	}
	s := &sqliteStore{db: dbh}
	return &Store{Posts: s, Comments: s, Users: s}, dbh, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  avatar_url TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS posts (
  id TEXT PRIMARY KEY,
  board TEXT NOT NULL,
  title TEXT NOT NULL,
  content TEXT NOT NULL,
  markdown BOOLEAN NOT NULL DEFAULT 1,
  author_id TEXT NOT NULL DEFAULT '',
  author_name TEXT NOT NULL,
  author_avatar TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_posts_board_created_id ON posts(board, created_at DESC, id);
-- parent_id is not a foreign key; replies outlive a deleted parent
CREATE TABLE IF NOT EXISTS comments (
  id TEXT PRIMARY KEY,
  post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
  parent_id TEXT NOT NULL DEFAULT '',
  content TEXT NOT NULL,
  author_id TEXT NOT NULL DEFAULT '',
  author_name TEXT NOT NULL,
  author_avatar TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_comments_post_created ON comments(post_id, created_at, id);
`)
	return err
}
