package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContentHash(t *testing.T) {
	t.Run("part boundaries matter", func(t *testing.T) {
		assert.NotEqual(t, ContentHash("ab", "c"), ContentHash("a", "bc"))
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, ContentHash("x", "y"), ContentHash("x", "y"))
		assert.Len(t, ContentHash("x"), 64)
	})
}

func TestPost_Hash(t *testing.T) {
	now := time.Now().UTC()
	base := Post{ID: "p1", Title: "Spawn rules", Content: "**no griefing**", Markdown: true, CreatedAt: now}

	t.Run("markdown flag changes hash", func(t *testing.T) {
		plain := base
		plain.Markdown = false
		assert.NotEqual(t, base.Hash(), plain.Hash())
	})

	t.Run("edit changes hash", func(t *testing.T) {
		later := now.Add(time.Minute)
		edited := base
		edited.UpdatedAt = &later
		assert.NotEqual(t, base.Hash(), edited.Hash())
	})

	t.Run("timezone independence", func(t *testing.T) {
		loc := time.FixedZone("EST", -5*3600)
		u1 := now.Add(time.Minute)
		u2 := u1.In(loc)
		a, b := base, base
		a.UpdatedAt = &u1
		b.UpdatedAt = &u2
		assert.Equal(t, a.Hash(), b.Hash())
	})

	t.Run("comment count is not content", func(t *testing.T) {
		counted := base
		counted.CommentCount = 12
		assert.Equal(t, base.Hash(), counted.Hash())
	})
}
