package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mithrel/craftforum/internal/server"
)

// isolate points every config search path at a fresh temp dir and writes a
// config file there. It returns the config path.
func isolate(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(dir, "run"))
	cfg := filepath.Join(dir, "config.toml")
	content := `data_dir = "` + filepath.ToSlash(filepath.Join(dir, "data")) + `"
user = "alice"

[auth]
jwt_secret = "test-secret"
` + extra
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o600))
	return cfg
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderAndStrip(t *testing.T) {
	cfg := isolate(t, "")

	out, err := run(t, "**hi** <script>x</script>", "--config", cfg, "render")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>hi</strong>")
	assert.NotContains(t, out, "<script>")

	out, err = run(t, "# Title\n\n*some* `code`", "--config", cfg, "strip")
	require.NoError(t, err)
	assert.Equal(t, "Title\n\nsome code\n", out)

	out, err = run(t, "hello world again", "--config", cfg, "strip", "--snippet", "9")
	require.NoError(t, err)
	assert.Equal(t, "hello wo…\n", out)
}

func TestPostAndCommentCommands(t *testing.T) {
	cfg := isolate(t, "")

	id, err := run(t, "", "--config", cfg, "post", "add", "First", "post", "--body", "Hello *there*")
	require.NoError(t, err)
	postID := strings.TrimSpace(id)
	require.NotEmpty(t, postID)

	out, err := run(t, "", "--config", cfg, "post", "list", "-o", "json")
	require.NoError(t, err)
	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "First post", list[0]["title"])
	assert.Equal(t, "general", list[0]["board"])

	cid, err := run(t, "", "--config", cfg, "comment", "add", postID, "--body", "top")
	require.NoError(t, err)
	commentID := strings.TrimSpace(cid)
	_, err = run(t, "", "--config", cfg, "--as", "bob", "comment", "add", postID, "--reply-to", commentID, "--body", "reply")
	require.NoError(t, err)

	out, err = run(t, "", "--config", cfg, "post", "show", postID, "-o", "json")
	require.NoError(t, err)
	var th struct {
		Post struct {
			Title   string `json:"title"`
			HTML    string `json:"html"`
			CanEdit bool   `json:"can_edit"`
		} `json:"post"`
		Comments []struct {
			Content string `json:"content"`
			Replies []struct {
				Content string `json:"content"`
			} `json:"replies"`
		} `json:"comments"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &th))
	assert.True(t, th.Post.CanEdit)
	assert.Contains(t, th.Post.HTML, "<em>there</em>")
	require.Len(t, th.Comments, 1)
	require.Len(t, th.Comments[0].Replies, 1)
	assert.Equal(t, "reply", th.Comments[0].Replies[0].Content)

	_, err = run(t, "", "--config", cfg, "--as", "bob", "post", "edit", postID, "--title", "Hijacked")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")

	_, err = run(t, "", "--config", cfg, "post", "edit", postID, "--title", "Renamed")
	require.NoError(t, err)
	out, err = run(t, "", "--config", cfg, "post", "list", "-o", "plain", "--noheaders")
	require.NoError(t, err)
	assert.Contains(t, out, "Renamed")

	_, err = run(t, "", "--config", cfg, "comment", "delete", commentID)
	require.NoError(t, err)
	_, err = run(t, "", "--config", cfg, "post", "delete", postID)
	require.NoError(t, err)
	out, err = run(t, "", "--config", cfg, "post", "list", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestPostListMatch(t *testing.T) {
	cfg := isolate(t, "")
	for _, title := range []string{"Redstone clocks", "Farming guide", "Redstone doors"} {
		_, err := run(t, "", "--config", cfg, "post", "add", title, "--body", "x")
		require.NoError(t, err)
	}
	out, err := run(t, "", "--config", cfg, "post", "list", "--match", "rdoor", "-o", "ndjson")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "Redstone doors")
	assert.NotContains(t, out, "Farming guide")
}

func TestLockedBoard(t *testing.T) {
	cfg := isolate(t, `
[boards.news]
title = "News"
locked = true

[boards.help]
markdown = false
`)
	_, err := run(t, "", "--config", cfg, "post", "add", "Hi", "--board", "news", "--body", "x")
	require.Error(t, err)

	_, err = run(t, "", "--config", cfg, "post", "add", "Hi", "--board", "nowhere", "--body", "x")
	require.Error(t, err)

	_, err = run(t, "", "--config", cfg, "post", "add", "Hi", "--board", "help", "--body", "*x*")
	require.NoError(t, err)
}

func TestWriteNeedsUser(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	cfg := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfg, []byte(`data_dir = "`+filepath.ToSlash(dir)+`"`+"\n"), 0o600))

	_, err := run(t, "", "--config", cfg, "post", "add", "Hi", "--body", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no forum user")
}

func TestTokenMint(t *testing.T) {
	cfg := isolate(t, "")
	out, err := run(t, "", "--config", cfg, "token", "mint", "carol", "--forum-id", "u-1")
	require.NoError(t, err)

	claims, err := server.NewTokens("test-secret", 0).Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "carol", claims.Username)
	assert.Equal(t, "u-1", claims.ForumUserID.String())
}

func TestConfigBoardCommands(t *testing.T) {
	cfg := isolate(t, "")

	_, err := run(t, "", "--config", cfg, "config", "board", "set", "builds", "--title", "Builds", "--locked")
	require.NoError(t, err)
	data, err := os.ReadFile(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[boards.builds]")
	assert.Contains(t, string(data), `title = "Builds"`)

	out, err := run(t, "", "--config", cfg, "config", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Config OK")

	_, err = run(t, "", "--config", cfg, "config", "board", "delete", "builds")
	require.NoError(t, err)
	data, err = os.ReadFile(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "[boards.builds]")
}

func TestConfigGenerate(t *testing.T) {
	cfg := isolate(t, "")
	out := filepath.Join(filepath.Dir(cfg), "gen", "config.toml")

	_, err := run(t, "", "--config", cfg, "config", "generate", "-o", out)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "http_addr")

	_, err = run(t, "", "--config", cfg, "config", "generate", "-o", out)
	require.Error(t, err)

	res, err := run(t, "", "--config", cfg, "config", "generate", "-o", out, "--update")
	require.NoError(t, err)
	assert.Contains(t, res, "up to date")
}

func TestCompletionScripts(t *testing.T) {
	cfg := isolate(t, "")
	out, err := run(t, "", "--config", cfg, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "craftforum")
}
