package wire

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/mithrel/craftforum/internal/cache"
	"github.com/mithrel/craftforum/internal/forum"
	"github.com/mithrel/craftforum/pkg/api"
)

func TestBuildApp(t *testing.T) {
	dir := t.TempDir()
	v := viper.New()
	v.Set("data_dir", filepath.Join(dir, "nested"))
	v.Set("log.level", "error")
	v.Set("cache.size", 16)
	v.Set("render.sanitize", true)
	v.Set("boards.news.title", "News")
	v.Set("boards.news.locked", true)

	app, err := BuildApp(context.Background(), v)
	require.NoError(t, err)
	defer app.Close()

	_, ok := app.Cache.(*cache.Memory)
	assert.True(t, ok)

	boards := app.Forum.Boards()
	require.Len(t, boards, 1)
	assert.True(t, boards[0].Locked)

	assert.FileExists(t, filepath.Join(dir, "nested", "craftforum.db"))

	_, err = app.Forum.CreatePost(context.Background(), api.Viewer{Username: "alice"}, forum.NewPost{Board: "news", Title: "t", Content: "c"})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("json", "warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	_, err = NewLogger("console", "shouty")
	assert.Error(t, err)
}
