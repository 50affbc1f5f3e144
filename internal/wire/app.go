package wire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mithrel/craftforum/internal/cache"
	"github.com/mithrel/craftforum/internal/config"
	"github.com/mithrel/craftforum/internal/db"
	"github.com/mithrel/craftforum/internal/forum"
)

// App aggregates the major services for easy injection.
type App struct {
	Cfg   *viper.Viper
	Log   *zap.Logger
	Store *db.Store
	Cache cache.Cache
	Forum *forum.Service
}

// BuildApp wires dependencies with the provided config.
func BuildApp(ctx context.Context, v *viper.Viper) (*App, error) {
	logger, err := NewLogger(v.GetString("log.format"), v.GetString("log.level"))
	if err != nil {
		return nil, err
	}

	url := config.ResolveDBURL(v)
	if strings.HasPrefix(url, "sqlite://") {
		if err := os.MkdirAll(filepath.Dir(strings.TrimPrefix(url, "sqlite://")), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	store, err := db.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	c, err := buildCache(ctx, v, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc := forum.New(store, c, logger, forum.Options{
		Boards:        boards(v),
		SnippetLength: v.GetInt("render.snippet_length"),
		Sanitize:      v.GetBool("render.sanitize"),
		CacheTTL:      v.GetDuration("cache.ttl"),
		ThreadDepth:   v.GetInt("render.thread_depth"),
	})
	return &App{Cfg: v, Log: logger, Store: store, Cache: c, Forum: svc}, nil
}

// Close releases the store and cache and flushes the logger.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	cerr := a.Cache.Close()
	serr := a.Store.Close()
	_ = a.Log.Sync()
	if serr != nil {
		return serr
	}
	return cerr
}

func buildCache(ctx context.Context, v *viper.Viper, logger *zap.Logger) (cache.Cache, error) {
	addr := strings.TrimSpace(v.GetString("cache.redis_addr"))
	if addr == "" {
		return cache.NewMemory(v.GetInt("cache.size")), nil
	}
	r, err := cache.NewRedis(ctx, addr, v.GetString("cache.redis_password"), v.GetInt("cache.redis_db"))
	if err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	logger.Debug("render cache on redis", zap.String("addr", addr))
	return r, nil
}

func boards(v *viper.Viper) map[string]forum.Board {
	cfg := config.Boards(v)
	out := make(map[string]forum.Board, len(cfg))
	for name, b := range cfg {
		out[name] = forum.Board{Name: name, Title: b.Title, Markdown: b.Markdown, Locked: b.Locked}
	}
	return out
}

// NewLogger builds a console (development) or json (production) logger.
func NewLogger(format, level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if strings.TrimSpace(level) != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("log.level: %w", err)
		}
	}
	var cfg zap.Config
	if strings.EqualFold(format, "json") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
