package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ID is an opaque record identifier. Stores and clients disagree on whether
// ids are numbers or strings, so ids always compare as strings.
type ID string

func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts a JSON string or number; null leaves the id empty.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Author describes who wrote a post or comment.
type Author struct {
	UserID    ID     `json:"user_id,omitempty"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// User is a forum identity.
type User struct {
	ID        ID        `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Author() Author {
	return Author{UserID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}

// Viewer is the identity looking at a page. ForumUserID may be empty when the
// auth identity has not been linked to a forum user yet.
type Viewer struct {
	Username    string `json:"username"`
	ForumUserID ID     `json:"forum_user_id,omitempty"`
}

func (v Viewer) Anonymous() bool { return v.Username == "" && v.ForumUserID == "" }

type Post struct {
	ID           ID         `json:"id"`
	Board        string     `json:"board"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Markdown     bool       `json:"markdown"`
	Author       Author     `json:"author"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	CommentCount int        `json:"comment_count"`
}

func (p Post) Owner() Author { return p.Author }

func (p Post) Edited() bool { return edited(p.CreatedAt, p.UpdatedAt) }

// Comment is a flat comment record. An empty ParentID marks a top-level comment.
type Comment struct {
	ID        ID         `json:"id"`
	PostID    ID         `json:"post_id"`
	ParentID  ID         `json:"parent_id,omitempty"`
	Content   string     `json:"content"`
	Author    Author     `json:"author"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (c Comment) Owner() Author { return c.Author }

func (c Comment) Edited() bool { return edited(c.CreatedAt, c.UpdatedAt) }

func edited(created time.Time, updated *time.Time) bool {
	return updated != nil && updated.After(created)
}

// CommentNode is a comment with its replies, built per render.
type CommentNode struct {
	Comment
	Replies []*CommentNode `json:"replies"`
}

// PostQuery selects a page of posts, newest first unless Reverse is set.
type PostQuery struct {
	Board   string
	Limit   int
	Cursor  string
	Reverse bool
}

// Page carries opaque cursors for the neighbouring pages.
type Page struct {
	Next string `json:"next,omitempty"`
	Prev string `json:"prev,omitempty"`
}
