package db

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mithrel/craftforum/pkg/api"
)

// memStore keeps everything in maps. It backs mem:// URLs for tests and
// throwaway servers.
type memStore struct {
	mu       sync.RWMutex
	posts    map[api.ID]api.Post
	comments map[api.ID]api.Comment
	users    map[api.ID]api.User
	seq      int64
	order    map[api.ID]int64
}

func newMemStore() *memStore {
	return &memStore{
		posts:    make(map[api.ID]api.Post),
		comments: make(map[api.ID]api.Comment),
		users:    make(map[api.ID]api.User),
		order:    make(map[api.ID]int64),
	}
}

func openMem() (*Store, io.Closer, error) {
	m := newMemStore()
	return &Store{Posts: m, Comments: m, Users: m}, io.NopCloser(strings.NewReader("")), nil
}

func (m *memStore) countComments(postID api.ID) int {
	n := 0
	for _, c := range m.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n
}

func (m *memStore) CreatePost(ctx context.Context, p api.Post) (api.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		return api.Post{}, ErrConflict
	}
	if _, ok := m.posts[p.ID]; ok {
		return api.Post{}, ErrConflict
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.CommentCount = 0
	m.posts[p.ID] = p
	return p, nil
}

func (m *memStore) GetPost(ctx context.Context, id api.ID) (api.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok {
		return api.Post{}, ErrNotFound
	}
	p.CommentCount = m.countComments(id)
	return p, nil
}

func (m *memStore) UpdatePost(ctx context.Context, p api.Post) (api.Post, error) {
	m.mu.Lock()
	cur, ok := m.posts[p.ID]
	if !ok {
		m.mu.Unlock()
		return api.Post{}, ErrNotFound
	}
	cur.Title, cur.Content, cur.Markdown, cur.UpdatedAt = p.Title, p.Content, p.Markdown, p.UpdatedAt
	m.posts[p.ID] = cur
	m.mu.Unlock()
	return m.GetPost(ctx, p.ID)
}

func (m *memStore) DeletePost(ctx context.Context, id api.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return ErrNotFound
	}
	delete(m.posts, id)
	for cid, c := range m.comments {
		if c.PostID == id {
			delete(m.comments, cid)
		}
	}
	return nil
}

func postBefore(a, b api.Post) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (m *memStore) ListPosts(ctx context.Context, q api.PostQuery) ([]api.Post, api.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit := pageLimit(q.Limit)
	cursor, hasCursor := parseCursorToken(q.Cursor)
	at := api.Post{ID: api.ID(cursor.id), CreatedAt: cursor.ts}

	var out []api.Post
	for _, p := range m.posts {
		if q.Board != "" && p.Board != q.Board {
			continue
		}
		if hasCursor {
			if q.Reverse && !postBefore(at, p) {
				continue
			}
			if !q.Reverse && !postBefore(p, at) {
				continue
			}
		}
		p.CommentCount = m.countComments(p.ID)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if q.Reverse {
			return postBefore(out[i], out[j])
		}
		return postBefore(out[j], out[i])
	})
	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	if q.Reverse {
		reversePosts(out)
	}
	return out, buildPage(out, hasMore, q.Reverse, hasCursor), nil
}

func (m *memStore) CreateComment(ctx context.Context, c api.Comment) (api.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		return api.Comment{}, ErrConflict
	}
	if _, ok := m.comments[c.ID]; ok {
		return api.Comment{}, ErrConflict
	}
	if _, ok := m.posts[c.PostID]; !ok {
		return api.Comment{}, ErrNotFound
	}
	c.CreatedAt = c.CreatedAt.UTC()
	m.seq++
	m.order[c.ID] = m.seq
	m.comments[c.ID] = c
	return c, nil
}

func (m *memStore) GetComment(ctx context.Context, id api.ID) (api.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.comments[id]
	if !ok {
		return api.Comment{}, ErrNotFound
	}
	return c, nil
}

func (m *memStore) UpdateComment(ctx context.Context, c api.Comment) (api.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.comments[c.ID]
	if !ok {
		return api.Comment{}, ErrNotFound
	}
	cur.Content, cur.UpdatedAt = c.Content, c.UpdatedAt
	m.comments[c.ID] = cur
	return cur, nil
}

func (m *memStore) DeleteComment(ctx context.Context, id api.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return ErrNotFound
	}
	delete(m.comments, id)
	delete(m.order, id)
	return nil
}

func (m *memStore) ListComments(ctx context.Context, postID api.ID) ([]api.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []api.Comment{}
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return m.order[out[i].ID] < m.order[out[j].ID]
	})
	return out, nil
}

func (m *memStore) EnsureUser(ctx context.Context, u api.User) (api.User, error) {
	if strings.TrimSpace(u.Username) == "" {
		return api.User{}, errors.New("username is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return existing, nil
		}
	}
	if u.ID == "" {
		u.ID = api.NewID()
	}
	if _, ok := m.users[u.ID]; ok {
		return api.User{}, ErrConflict
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	u.CreatedAt = u.CreatedAt.UTC()
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) GetUser(ctx context.Context, id api.ID) (api.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return api.User{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) FindUser(ctx context.Context, username string) (api.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return api.User{}, ErrNotFound
}
