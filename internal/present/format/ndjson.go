package format

import (
	"encoding/json"
	"io"

	"github.com/mithrel/craftforum/internal/forum"
)

// WriteNDJSONThread writes the post, then every comment in display order,
// one JSON object per line. Comments carry their depth instead of replies.
func WriteNDJSONThread(w io.Writer, th forum.Thread) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(th.Post); err != nil {
		return err
	}
	type line struct {
		forum.CommentView
		Depth int `json:"depth"`
		// hides the nested replies; each line is one comment
		Replies []int `json:"replies,omitempty"`
	}
	var walk func(cs []*forum.CommentView, depth int) error
	walk = func(cs []*forum.CommentView, depth int) error {
		for _, c := range cs {
			if err := enc.Encode(line{CommentView: *c, Depth: depth}); err != nil {
				return err
			}
			if err := walk(c.Replies, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(th.Comments, 0)
}
