// Package forum implements posts, comments and threads on top of the store,
// enforcing ownership and rendering content for display.
package forum

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mithrel/craftforum/internal/cache"
	"github.com/mithrel/craftforum/internal/db"
	"github.com/mithrel/craftforum/pkg/api"
)

var (
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// DefaultBoard receives posts that name no board when no boards are configured.
const DefaultBoard = "general"

// Board is a forum category.
type Board struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Markdown bool   `json:"markdown"`
	Locked   bool   `json:"locked"`
}

type Options struct {
	// Boards restricts posting to the named boards. Empty allows any board.
	Boards        map[string]Board
	SnippetLength int
	Sanitize      bool
	CacheTTL      time.Duration
	// ThreadDepth is the number of comment levels shown in a thread.
	ThreadDepth int
}

type Service struct {
	store *db.Store
	cache cache.Cache
	log   *zap.SugaredLogger
	opts  Options
	now   func() time.Time
}

func New(store *db.Store, c cache.Cache, logger *zap.Logger, opts Options) *Service {
	if c == nil {
		c = cache.NewMemory(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = 160
	}
	if opts.ThreadDepth <= 0 {
		opts.ThreadDepth = 2
	}
	return &Service{store: store, cache: c, log: logger.Sugar(), opts: opts, now: time.Now}
}

// Boards returns the configured boards sorted by name.
func (s *Service) Boards() []Board {
	out := make([]Board, 0, len(s.opts.Boards))
	for name, b := range s.opts.Boards {
		b.Name = name
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Service) board(name string) (Board, error) {
	name = strings.TrimSpace(name)
	if len(s.opts.Boards) == 0 {
		if name == "" {
			name = DefaultBoard
		}
		return Board{Name: name, Title: name, Markdown: true}, nil
	}
	if name == "" {
		return Board{}, fmt.Errorf("%w: board is required", ErrInvalidInput)
	}
	b, ok := s.opts.Boards[name]
	if !ok {
		return Board{}, fmt.Errorf("%w: unknown board %q", ErrInvalidInput, name)
	}
	b.Name = name
	return b, nil
}

// ResolveViewer fills in the forum user id of a viewer known only by name.
// Unknown usernames are returned unchanged.
func (s *Service) ResolveViewer(ctx context.Context, v api.Viewer) (api.Viewer, error) {
	if v.ForumUserID != "" || v.Username == "" {
		return v, nil
	}
	u, err := s.store.Users.FindUser(ctx, v.Username)
	if errors.Is(err, db.ErrNotFound) {
		return v, nil
	}
	if err != nil {
		return v, fmt.Errorf("resolve viewer %s: %w", v.Username, err)
	}
	v.ForumUserID = u.ID
	return v, nil
}

// author returns the forum identity writing as v, creating it on first use.
func (s *Service) author(ctx context.Context, v api.Viewer) (api.Author, error) {
	if v.Anonymous() {
		return api.Author{}, ErrUnauthenticated
	}
	if v.ForumUserID != "" {
		u, err := s.store.Users.GetUser(ctx, v.ForumUserID)
		if err == nil {
			return u.Author(), nil
		}
		if !errors.Is(err, db.ErrNotFound) || v.Username == "" {
			return api.Author{}, fmt.Errorf("load user %s: %w", v.ForumUserID, err)
		}
		// stale link: fall back to the username
	}
	u, err := s.store.Users.EnsureUser(ctx, api.User{Username: v.Username})
	if err != nil {
		return api.Author{}, fmt.Errorf("ensure user %s: %w", v.Username, err)
	}
	return u.Author(), nil
}

func (s *Service) timestamp() time.Time { return s.now().UTC() }
