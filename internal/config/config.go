package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// applyDefaults seeds Viper with defaults defined in GetConfigOptions.
func applyDefaults(v *viper.Viper) {
	for _, o := range GetConfigOptions() {
		v.SetDefault(o.Key, o.Default)
	}
}

// Load resolves configuration with precedence: defaults < file < .env < env.
// The provided Viper instance is mutated with defaults, file contents, and env.
func Load(ctx context.Context, v *viper.Viper) error {
	// If SetConfigFile was provided upstream it takes precedence; these paths
	// are fallbacks.
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "craftforum"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "craftforum"))
		}
		v.AddConfigPath(".")
	}

	applyDefaults(v)

	// Read config file if present (overrides defaults)
	_ = v.ReadInConfig()

	// .env never overrides variables already set in the process environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}

	// CRAFTFORUM_* wins over everything else
	v.SetEnvPrefix("craftforum")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.GetString("data_dir") == "" {
		v.Set("data_dir", defaultDataDir())
	}

	// Allow comma-separated env override for tls.domains
	if s := strings.TrimSpace(os.Getenv("CRAFTFORUM_TLS_DOMAINS")); s != "" {
		v.Set("tls.domains", splitList(s))
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// defaultDataDir resolves default data dir: $XDG_DATA_HOME/craftforum or ~/.local/share/craftforum
func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "craftforum")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "craftforum")
}

// DefaultConfigPath resolves the standard config.toml location.
func DefaultConfigPath() string {
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		home, _ := os.UserHomeDir()
		xdg = filepath.Join(home, ".config")
	}
	return filepath.Join(xdg, "craftforum", "config.toml")
}

type ConfigOption struct {
	Key     string
	Default any
	Comment string
}

// GetConfigOptions returns the default configuration options and their meanings.
func GetConfigOptions() []ConfigOption {
	return []ConfigOption{
		{Key: "data_dir", Default: defaultDataDir(), Comment: "Directory for local state; the default DB is data_dir/craftforum.db"},
		{Key: "db_url", Default: "", Comment: "Store URL: sqlite://path, postgres://..., or mem://; empty uses data_dir"},
		{Key: "http_addr", Default: ":8080", Comment: "HTTP listen address for serve"},
		{Key: "user", Default: "", Comment: "Forum username the post and comment commands act as"},

		{Key: "auth.jwt_secret", Default: "", Comment: "HS256 secret for viewer tokens; required by serve and token mint"},
		{Key: "auth.token_ttl", Default: "24h", Comment: "Lifetime of minted viewer tokens"},

		{Key: "log.level", Default: "info", Comment: "Log level: debug, info, warn, error"},
		{Key: "log.format", Default: "console", Comment: "Log format: console or json"},

		{Key: "cache.redis_addr", Default: "", Comment: "Redis address for the render cache; empty keeps it in memory"},
		{Key: "cache.redis_password", Default: "", Comment: "Redis password"},
		{Key: "cache.redis_db", Default: 0, Comment: "Redis database number"},
		{Key: "cache.ttl", Default: "1h", Comment: "Lifetime of cached rendered HTML"},
		{Key: "cache.size", Default: 4096, Comment: "Entry bound of the in-memory render cache"},

		{Key: "render.snippet_length", Default: 160, Comment: "Preview length in post listings"},
		{Key: "render.sanitize", Default: true, Comment: "Pass rendered HTML through the sanitizer"},
		{Key: "render.thread_depth", Default: 2, Comment: "Comment levels shown in a thread"},

		{Key: "tls.domains", Default: []string{}, Comment: "Serve HTTPS with automatic certificates for these domains"},
		{Key: "tls.email", Default: "", Comment: "ACME account email"},

		{Key: "export.page_size", Default: 50, Comment: "Batch size for post list paging"},
		{Key: "editor.delete_empty", Default: true, Comment: "Abort when the editor exits with no content"},
		{Key: "boards", Default: map[string]any{}, Comment: "Forum boards: [boards.<name>] title/markdown/locked"},
	}
}

// ResolveDBURL returns db_url, or a sqlite URL inside data_dir when unset.
func ResolveDBURL(v *viper.Viper) string {
	if u := strings.TrimSpace(v.GetString("db_url")); u != "" {
		return u
	}
	return "sqlite://" + ResolveDBPath(v)
}

// ResolveDBPath returns the default sqlite DB file path.
func ResolveDBPath(v *viper.Viper) string {
	dir := v.GetString("data_dir")
	if dir == "" {
		dir = defaultDataDir()
	}
	// Expand ~ for convenience
	if len(dir) > 0 && dir[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, dir[1:])
		}
	}
	return filepath.Join(dir, "craftforum.db")
}
