package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func validConfig() *viper.Viper {
	v := viper.New()
	applyDefaults(v)
	v.Set("data_dir", "/tmp/craftforum")
	return v
}

func TestCheckConfigValidityValid(t *testing.T) {
	v := validConfig()
	v.Set("db_url", "postgres://forum@localhost/forum")
	v.Set("tls.domains", []string{"forum.example.com"})
	v.Set("tls.email", "ops@example.com")
	v.Set("auth.jwt_secret", "s3cret")
	v.Set("boards.general.title", "General")

	if err := CheckConfigValidity(v); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestCheckConfigValidityInvalid(t *testing.T) {
	v := viper.New()
	v.Set("data_dir", "")
	v.Set("db_url", "mysql://nope")
	v.Set("http_addr", "")
	v.Set("auth.token_ttl", "soon")
	v.Set("cache.ttl", "-1m")
	v.Set("log.level", "loud")
	v.Set("log.format", "xml")
	v.Set("render.snippet_length", 0)
	v.Set("render.thread_depth", 2)
	v.Set("export.page_size", 0)
	v.Set("cache.size", 10)
	v.Set("tls.domains", []string{"forum.example.com"})
	v.Set("tls.email", "not an email")
	v.Set("boards.bad/name.title", "x")

	err := CheckConfigValidity(v)
	if err == nil {
		t.Fatalf("expected error for invalid config")
	}

	msg := err.Error()
	expected := []string{
		"db_url has unsupported scheme",
		"http_addr is required",
		"auth.token_ttl must be a duration",
		"cache.ttl must be greater than 0",
		"log.level must be one of",
		"log.format must be console or json",
		"render.snippet_length must be greater than 0",
		"export.page_size must be greater than 0",
		"tls.email is not a valid address",
		"auth.jwt_secret is required when serving TLS",
		"has an invalid name",
	}
	for _, want := range expected {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected error to contain %q, got %q", want, msg)
		}
	}
	if strings.Contains(msg, "render.thread_depth") {
		t.Fatalf("thread_depth should be valid, got %q", msg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := "http_addr = \":9000\"\n\n[log]\nlevel = \"debug\"\n\n[boards.news]\ntitle = \"News\"\nlocked = true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CRAFTFORUM_LOG_LEVEL", "warn")
	t.Setenv("CRAFTFORUM_TLS_DOMAINS", "a.example.com, b.example.com")

	v := viper.New()
	v.SetConfigFile(path)
	if err := Load(context.Background(), v); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := v.GetString("http_addr"); got != ":9000" {
		t.Fatalf("http_addr from file: got %q", got)
	}
	if got := v.GetString("log.level"); got != "warn" {
		t.Fatalf("env should win over file: got %q", got)
	}
	if got := v.GetInt("render.snippet_length"); got != 160 {
		t.Fatalf("default snippet length: got %d", got)
	}
	if got := v.GetStringSlice("tls.domains"); len(got) != 2 || got[1] != "b.example.com" {
		t.Fatalf("tls.domains: got %v", got)
	}

	boards := Boards(v)
	news, ok := boards["news"]
	if !ok {
		t.Fatalf("missing news board: %v", boards)
	}
	if news.Title != "News" || !news.Locked || !news.Markdown {
		t.Fatalf("unexpected board: %+v", news)
	}
}

func TestResolveDBURL(t *testing.T) {
	v := viper.New()
	v.Set("data_dir", "/srv/forum")
	if got := ResolveDBURL(v); got != "sqlite:///srv/forum/craftforum.db" {
		t.Fatalf("got %q", got)
	}
	v.Set("db_url", "mem://")
	if got := ResolveDBURL(v); got != "mem://" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderDefaultTOML(t *testing.T) {
	out := RenderDefaultTOML()
	for _, want := range []string{
		"# craftforum configuration (TOML)",
		"http_addr = \":8080\"",
		"[auth]",
		"token_ttl = \"24h\"",
		"[render]",
		"sanitize = true",
		"boards = {}",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestUpdateTOML(t *testing.T) {
	input := strings.TrimSpace(`
http_addr = ":9000"
namespace = "old"

[boards.news]
title = "News"
`)
	got, changed := UpdateTOML(input)
	if !changed {
		t.Fatalf("expected change")
	}
	if !strings.Contains(got, "# namespace = \"old\"") {
		t.Fatalf("unknown key not commented out:\n%s", got)
	}
	if !strings.Contains(got, "title = \"News\"") || strings.Contains(got, "# title = \"News\"") {
		t.Fatalf("board key should be kept:\n%s", got)
	}
	if !strings.Contains(got, "[cache]") {
		t.Fatalf("missing section not added:\n%s", got)
	}
	if strings.Count(got, "http_addr =") != 1 {
		t.Fatalf("existing key duplicated:\n%s", got)
	}
}
