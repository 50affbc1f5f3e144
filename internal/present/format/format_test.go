package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mithrel/craftforum/internal/forum"
	"github.com/mithrel/craftforum/pkg/api"
)

func sampleThread() forum.Thread {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	post := api.Post{ID: "p1", Board: "general", Title: "Server rules", Content: "# Rules\n\nBe **nice**", Markdown: true,
		Author: api.Author{Username: "alice"}, CreatedAt: at, CommentCount: 2}
	reply := &forum.CommentView{Comment: api.Comment{ID: "c2", PostID: "p1", ParentID: "c1", Content: "agreed",
		Author: api.Author{Username: "alice"}, CreatedAt: at.Add(2 * time.Minute)}, Replies: []*forum.CommentView{}}
	root := &forum.CommentView{Comment: api.Comment{ID: "c1", PostID: "p1", Content: "*first*\ttab",
		Author: api.Author{Username: "bob"}, CreatedAt: at.Add(time.Minute)}, Edited: true, Replies: []*forum.CommentView{reply}}
	return forum.Thread{Post: forum.PostView{Post: post}, Comments: []*forum.CommentView{root}}
}

func TestWritePlainPosts(t *testing.T) {
	th := sampleThread()
	var buf bytes.Buffer
	require.NoError(t, WritePlainPosts(&buf, []forum.PostSummary{{Post: th.Post.Post, Snippet: "Rules Be nice"}}, true))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id"))
	assert.Contains(t, lines[1], "Server rules")
	assert.Contains(t, lines[1], "1735787045000")
}

func TestWritePlainThread(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlainThread(&buf, sampleThread(), false))
	out := buf.String()
	assert.Contains(t, out, "first\\ttab")
	assert.NotContains(t, out, "*first*")
	assert.Regexp(t, `(?m)^1\s+c2\s+alice`, out)
}

func TestWriteNDJSONThread(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNDJSONThread(&buf, sampleThread()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &second))
	assert.Equal(t, "c2", second["id"])
	assert.EqualValues(t, 1, second["depth"])
	assert.NotContains(t, second, "replies")
}

func TestJSONStreamWriter(t *testing.T) {
	var buf bytes.Buffer
	jw := NewJSONStreamWriter(&buf, false)
	require.NoError(t, jw.WritePosts([]forum.PostSummary{{Post: api.Post{ID: "a"}}}))
	require.NoError(t, jw.WritePosts([]forum.PostSummary{{Post: api.Post{ID: "b"}}}))
	require.NoError(t, jw.Close())

	var out []forum.PostSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, api.ID("b"), out[1].ID)

	buf.Reset()
	empty := NewJSONStreamWriter(&buf, true)
	require.NoError(t, empty.Close())
	assert.Equal(t, "[]\n", buf.String())
}

func TestThreadMarkdown(t *testing.T) {
	md := ThreadMarkdown(sampleThread())
	assert.Contains(t, md, "# Server rules")
	assert.Contains(t, md, "**bob** |")
	assert.Contains(t, md, "(edited)")
	assert.Contains(t, md, "> agreed")
}

func TestWriteTreeThread(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTreeThread(&buf, sampleThread()))
	out := buf.String()
	assert.Contains(t, out, "Server rules")
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "agreed")
	assert.Less(t, strings.Index(out, "bob"), strings.Index(out, "agreed"))
}
