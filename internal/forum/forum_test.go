package forum

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mithrel/craftforum/internal/cache"
	"github.com/mithrel/craftforum/internal/db"
	"github.com/mithrel/craftforum/pkg/api"
)

var (
	alice = api.Viewer{Username: "alice"}
	bob   = api.Viewer{Username: "bob"}
)

func newService(t *testing.T, opts Options) (*Service, context.Context) {
	t.Helper()
	ctx := context.Background()
	store, err := db.Open(ctx, "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	s := New(store, cache.NewMemory(0), zap.NewNop(), opts)
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s, ctx
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func TestCreatePost(t *testing.T) {
	s, ctx := newService(t, Options{})

	_, err := s.CreatePost(ctx, api.Viewer{}, NewPost{Title: "t", Content: "c"})
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = s.CreatePost(ctx, alice, NewPost{Title: "  ", Content: "c"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.CreatePost(ctx, alice, NewPost{Title: "t", Content: "\n"})
	require.ErrorIs(t, err, ErrInvalidInput)

	p, err := s.CreatePost(ctx, alice, NewPost{Title: " Hello ", Content: "**hi**"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBoard, p.Board)
	assert.Equal(t, "Hello", p.Title)
	assert.True(t, p.Markdown)
	assert.Equal(t, "alice", p.Author.Username)
	assert.NotEmpty(t, p.Author.UserID)

	u, err := s.store.Users.FindUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.Author.UserID)
}

func TestCreatePost_Boards(t *testing.T) {
	s, ctx := newService(t, Options{Boards: map[string]Board{
		"news":    {Title: "News", Markdown: true, Locked: true},
		"support": {Title: "Support", Markdown: false},
	}})

	_, err := s.CreatePost(ctx, alice, NewPost{Title: "t", Content: "c"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.CreatePost(ctx, alice, NewPost{Board: "offtopic", Title: "t", Content: "c"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.CreatePost(ctx, alice, NewPost{Board: "news", Title: "t", Content: "c"})
	require.ErrorIs(t, err, ErrForbidden)

	p, err := s.CreatePost(ctx, alice, NewPost{Board: "support", Title: "t", Content: "c"})
	require.NoError(t, err)
	assert.False(t, p.Markdown)

	p, err = s.CreatePost(ctx, alice, NewPost{Board: "support", Title: "t", Content: "c", Markdown: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, p.Markdown)

	boards := s.Boards()
	require.Len(t, boards, 2)
	assert.Equal(t, "news", boards[0].Name)
	assert.Equal(t, "support", boards[1].Name)
}

func TestUpdateAndDeletePost(t *testing.T) {
	s, ctx := newService(t, Options{})
	p, err := s.CreatePost(ctx, alice, NewPost{Title: "t", Content: "first"})
	require.NoError(t, err)
	require.False(t, p.Edited())

	_, err = s.UpdatePost(ctx, bob, p.ID, PostEdit{Content: strPtr("hijack")})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = s.UpdatePost(ctx, api.Viewer{}, p.ID, PostEdit{Content: strPtr("x")})
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = s.UpdatePost(ctx, alice, p.ID, PostEdit{Title: strPtr("")})
	require.ErrorIs(t, err, ErrInvalidInput)

	updated, err := s.UpdatePost(ctx, alice, p.ID, PostEdit{Content: strPtr("second"), Markdown: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, "second", updated.Content)
	assert.Equal(t, "t", updated.Title)
	assert.False(t, updated.Markdown)
	assert.True(t, updated.Edited())

	require.ErrorIs(t, s.DeletePost(ctx, bob, p.ID), ErrForbidden)
	require.NoError(t, s.DeletePost(ctx, alice, p.ID))
	_, err = s.GetPost(ctx, p.ID)
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestOwnershipByForumID(t *testing.T) {
	s, ctx := newService(t, Options{})
	p, err := s.CreatePost(ctx, alice, NewPost{Title: "t", Content: "c"})
	require.NoError(t, err)

	// a renamed account still owns its posts through the forum id
	renamed := api.Viewer{Username: "alice2", ForumUserID: p.Author.UserID}
	_, err = s.UpdatePost(ctx, renamed, p.ID, PostEdit{Content: strPtr("mine")})
	require.NoError(t, err)
}

func TestStaleForumIDFallsBackToUsername(t *testing.T) {
	s, ctx := newService(t, Options{})
	stale := api.Viewer{Username: "carol", ForumUserID: "gone"}
	p, err := s.CreatePost(ctx, stale, NewPost{Title: "t", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, "carol", p.Author.Username)
	assert.NotEqual(t, api.ID("gone"), p.Author.UserID)

	_, err = s.UpdatePost(ctx, stale, p.ID, PostEdit{Content: strPtr("still mine")})
	require.NoError(t, err)
}

func TestComments(t *testing.T) {
	s, ctx := newService(t, Options{})
	p, err := s.CreatePost(ctx, alice, NewPost{Title: "t", Content: "c"})
	require.NoError(t, err)
	other, err := s.CreatePost(ctx, alice, NewPost{Title: "o", Content: "c"})
	require.NoError(t, err)

	_, err = s.CreateComment(ctx, bob, p.ID, NewComment{Content: " "})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.CreateComment(ctx, bob, "missing", NewComment{Content: "x"})
	require.ErrorIs(t, err, db.ErrNotFound)

	_, err = s.CreateComment(ctx, api.Viewer{}, p.ID, NewComment{Content: "x"})
	require.ErrorIs(t, err, ErrUnauthenticated)

	root, err := s.CreateComment(ctx, bob, p.ID, NewComment{Content: "root"})
	require.NoError(t, err)

	_, err = s.CreateComment(ctx, alice, other.ID, NewComment{ParentID: root.ID, Content: "wrong post"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.CreateComment(ctx, alice, p.ID, NewComment{ParentID: "nope", Content: "dangling"})
	require.ErrorIs(t, err, ErrInvalidInput)

	reply, err := s.CreateComment(ctx, alice, p.ID, NewComment{ParentID: root.ID, Content: "reply"})
	require.NoError(t, err)
	assert.Equal(t, root.ID, reply.ParentID)

	_, err = s.EditComment(ctx, alice, root.ID, "mine now")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = s.EditComment(ctx, bob, root.ID, "")
	require.ErrorIs(t, err, ErrInvalidInput)

	edited, err := s.EditComment(ctx, bob, root.ID, "root, edited")
	require.NoError(t, err)
	assert.True(t, edited.Edited())

	require.ErrorIs(t, s.DeleteComment(ctx, alice, root.ID), ErrForbidden)
	require.NoError(t, s.DeleteComment(ctx, bob, root.ID))

	// the orphaned reply moves to the top level
	th, err := s.GetThread(ctx, alice, p.ID)
	require.NoError(t, err)
	require.Len(t, th.Comments, 1)
	assert.Equal(t, reply.ID, th.Comments[0].ID)
	assert.True(t, th.Comments[0].CanEdit)
}

func TestGetThread(t *testing.T) {
	s, ctx := newService(t, Options{})
	p, err := s.CreatePost(ctx, alice, NewPost{Title: "t", Content: "# Title\n\nSome text"})
	require.NoError(t, err)

	c1, err := s.CreateComment(ctx, bob, p.ID, NewComment{Content: "**one**"})
	require.NoError(t, err)
	c2, err := s.CreateComment(ctx, alice, p.ID, NewComment{ParentID: c1.ID, Content: "two"})
	require.NoError(t, err)
	c3, err := s.CreateComment(ctx, bob, p.ID, NewComment{ParentID: c2.ID, Content: "three"})
	require.NoError(t, err)
	c4, err := s.CreateComment(ctx, bob, p.ID, NewComment{Content: "four"})
	require.NoError(t, err)

	th, err := s.GetThread(ctx, bob, p.ID)
	require.NoError(t, err)

	assert.Equal(t, "<h1>Title</h1>\n<p>Some text</p>", th.Post.HTML)
	assert.False(t, th.Post.CanEdit)
	assert.Equal(t, 4, th.Post.CommentCount)

	require.Len(t, th.Comments, 2)
	first := th.Comments[0]
	assert.Equal(t, c1.ID, first.ID)
	assert.Equal(t, "<p><strong>one</strong></p>", first.HTML)
	assert.True(t, first.CanEdit)
	require.Len(t, first.Replies, 2)
	assert.Equal(t, c2.ID, first.Replies[0].ID)
	assert.False(t, first.Replies[0].CanEdit)
	assert.Equal(t, c3.ID, first.Replies[1].ID)
	assert.Empty(t, first.Replies[1].Replies)
	assert.Equal(t, c4.ID, th.Comments[1].ID)

	anon, err := s.GetThread(ctx, api.Viewer{}, p.ID)
	require.NoError(t, err)
	assert.False(t, anon.Post.CanEdit)
	assert.False(t, anon.Comments[0].CanEdit)

	_, err = s.GetThread(ctx, bob, "missing")
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestGetThread_PlainPost(t *testing.T) {
	s, ctx := newService(t, Options{})
	p, err := s.CreatePost(ctx, alice, NewPost{Title: "t", Content: "a <b>\n**c**", Markdown: boolPtr(false)})
	require.NoError(t, err)
	_, err = s.CreateComment(ctx, bob, p.ID, NewComment{Content: "*x*"})
	require.NoError(t, err)

	th, err := s.GetThread(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "a &lt;b&gt;<br>**c**", th.Post.HTML)
	assert.Equal(t, "*x*", th.Comments[0].HTML)
}

func TestListPosts(t *testing.T) {
	s, ctx := newService(t, Options{SnippetLength: 9})
	_, err := s.CreatePost(ctx, alice, NewPost{Board: "a", Title: "one", Content: "# Hello\n\nworld of blocks"})
	require.NoError(t, err)
	_, err = s.CreatePost(ctx, alice, NewPost{Board: "b", Title: "two", Content: "short"})
	require.NoError(t, err)

	list, _, err := s.ListPosts(ctx, api.PostQuery{Board: "a"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Hello wo…", list[0].Snippet)

	all, _, err := s.ListPosts(ctx, api.PostQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "two", all[0].Title)
}

func TestListPosts_PlainSnippetKeepsMarkers(t *testing.T) {
	s, ctx := newService(t, Options{SnippetLength: 40})
	_, err := s.CreatePost(ctx, alice, NewPost{
		Title:    "plain",
		Content:  "# not a heading\n\n**stars** and snake_case <b>",
		Markdown: boolPtr(false),
	})
	require.NoError(t, err)
	_, err = s.CreatePost(ctx, alice, NewPost{Title: "md", Content: "# heading\n\n**stars**"})
	require.NoError(t, err)

	list, _, err := s.ListPosts(ctx, api.PostQuery{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	snippets := map[string]string{}
	for _, p := range list {
		snippets[p.Title] = p.Snippet
	}
	assert.Equal(t, "# not a heading **stars** and snake_cas…", snippets["plain"])
	assert.Equal(t, "heading stars", snippets["md"])
}

func TestRenderContentCaches(t *testing.T) {
	s, ctx := newService(t, Options{Sanitize: true})
	mem := s.cache.(*cache.Memory)

	html := s.Preview(ctx, "[x](javascript:alert(1))")
	assert.NotContains(t, html, "javascript")
	assert.Equal(t, 1, mem.Len())

	again := s.Preview(ctx, "[x](javascript:alert(1))")
	assert.Equal(t, html, again)
	assert.Equal(t, 1, mem.Len())

	s.RenderContent(ctx, "[x](javascript:alert(1))", false)
	assert.Equal(t, 2, mem.Len())

	assert.Equal(t, "Title", s.StripContent("# Title"))
}

func TestRenderContent_SanitizeHasOwnCacheEntry(t *testing.T) {
	ctx := context.Background()
	store, err := db.Open(ctx, "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	mem := cache.NewMemory(0)

	raw := New(store, mem, zap.NewNop(), Options{})
	clean := New(store, mem, zap.NewNop(), Options{Sanitize: true})

	const src = "[site](https://example.com)"
	unsanitized := raw.Preview(ctx, src)
	assert.NotContains(t, unsanitized, "nofollow")

	sanitized := clean.Preview(ctx, src)
	assert.Contains(t, sanitized, "nofollow")
	assert.Equal(t, 2, mem.Len())

	assert.Equal(t, unsanitized, raw.Preview(ctx, src))
}

func TestGetThread_CommentCountMatchesTree(t *testing.T) {
	s, ctx := newService(t, Options{ThreadDepth: 1})
	p, err := s.CreatePost(ctx, alice, NewPost{Title: "t", Content: "body"})
	require.NoError(t, err)
	parent := api.ID("")
	for _, body := range []string{"a", "b", "c"} {
		c, err := s.CreateComment(ctx, bob, p.ID, NewComment{ParentID: parent, Content: body})
		require.NoError(t, err)
		parent = c.ID
	}

	th, err := s.GetThread(ctx, alice, p.ID)
	require.NoError(t, err)
	require.Len(t, th.Comments, 3)
	assert.Equal(t, 3, th.Post.CommentCount)
}
