package api

import (
	"encoding/hex"
	"time"

	"github.com/zeebo/blake3"
)

// ContentHash returns a hex BLAKE3 digest over parts. Parts are NUL separated
// so ("ab","c") and ("a","bc") differ.
func ContentHash(parts ...string) string {
	h := blake3.New()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Hash identifies the rendered form of a post: anything that changes its HTML
// changes the hash.
func (p Post) Hash() string {
	mode := "plain"
	if p.Markdown {
		mode = "markdown"
	}
	return ContentHash(string(p.ID), p.Title, mode, p.Content, stamp(p.UpdatedAt))
}

func (c Comment) Hash() string {
	return ContentHash(string(c.ID), c.Content, stamp(c.UpdatedAt))
}

func stamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
