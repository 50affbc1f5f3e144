package config

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	logLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	logFormats = map[string]bool{"console": true, "json": true}
)

// CheckConfigValidity reports every problem in v as one joined error.
func CheckConfigValidity(v *viper.Viper) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(v.GetString("data_dir")) == "" && strings.TrimSpace(v.GetString("db_url")) == "" {
		add("data_dir is required when db_url is empty")
	}
	if u := strings.TrimSpace(v.GetString("db_url")); u != "" && !knownDBScheme(u) {
		add("db_url has unsupported scheme: %s", u)
	}
	if strings.TrimSpace(v.GetString("http_addr")) == "" {
		add("http_addr is required")
	}

	for _, key := range []string{"auth.token_ttl", "cache.ttl"} {
		raw := strings.TrimSpace(v.GetString(key))
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			add("%s must be a duration: %v", key, err)
		} else if d <= 0 {
			add("%s must be greater than 0", key)
		}
	}

	if lvl := strings.ToLower(v.GetString("log.level")); !logLevels[lvl] {
		add("log.level must be one of debug, info, warn, error")
	}
	if f := strings.ToLower(v.GetString("log.format")); !logFormats[f] {
		add("log.format must be console or json")
	}

	for _, key := range []string{"render.snippet_length", "render.thread_depth", "export.page_size", "cache.size"} {
		if v.GetInt(key) <= 0 {
			add("%s must be greater than 0", key)
		}
	}
	if v.GetInt("cache.redis_db") < 0 {
		add("cache.redis_db must not be negative")
	}

	if len(v.GetStringSlice("tls.domains")) > 0 {
		if email := strings.TrimSpace(v.GetString("tls.email")); email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				add("tls.email is not a valid address")
			}
		}
		if strings.TrimSpace(v.GetString("auth.jwt_secret")) == "" {
			add("auth.jwt_secret is required when serving TLS")
		}
	}

	for name := range v.GetStringMap("boards") {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, " ./") {
			add("board %q has an invalid name", name)
		}
	}

	return errors.Join(errs...)
}

func knownDBScheme(u string) bool {
	for _, p := range []string{"sqlite://", "postgres://", "postgresql://", "mem://"} {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	return false
}
