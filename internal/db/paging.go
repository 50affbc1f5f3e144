package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/mithrel/craftforum/pkg/api"
)

const defaultPageSize = 50

type cursorToken struct {
	ts time.Time
	id string
}

// parseCursorToken decodes "RFC3339Nano|id" tokens handed out in api.Page.
func parseCursorToken(s string) (cursorToken, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), "|", 2)
	if len(parts) != 2 {
		return cursorToken{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return cursorToken{}, false
	}
	id := strings.TrimSpace(parts[1])
	if id == "" {
		return cursorToken{}, false
	}
	return cursorToken{ts: ts, id: id}, true
}

func encodeCursorToken(p api.Post) string {
	return fmt.Sprintf("%s|%s", p.CreatedAt.UTC().Format(time.RFC3339Nano), p.ID)
}

func reversePosts(posts []api.Post) {
	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}
}

// buildPage derives neighbour cursors for a page already in display order
// (newest first). Reverse pages were fetched oldest first and flipped.
func buildPage(posts []api.Post, hasMore bool, reverse bool, hasCursor bool) api.Page {
	var page api.Page
	if len(posts) == 0 {
		return page
	}
	first := posts[0]
	last := posts[len(posts)-1]
	if reverse {
		page.Next = encodeCursorToken(last)
		if hasMore {
			page.Prev = encodeCursorToken(first)
		}
		return page
	}
	if hasMore {
		page.Next = encodeCursorToken(last)
	}
	if hasCursor {
		page.Prev = encodeCursorToken(first)
	}
	return page
}

func pageLimit(n int) int {
	if n <= 0 {
		return defaultPageSize
	}
	return n
}
