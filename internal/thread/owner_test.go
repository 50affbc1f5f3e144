package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mithrel/craftforum/pkg/api"
)

func TestIsOwner(t *testing.T) {
	tests := []struct {
		name   string
		viewer api.Viewer
		author api.Author
		want   bool
	}{
		{"id match wins over username", api.Viewer{ForumUserID: "5", Username: "alice"}, api.Author{UserID: "5", Username: "bob"}, true},
		{"username fallback without viewer id", api.Viewer{Username: "alice"}, api.Author{UserID: "7", Username: "alice"}, true},
		{"username fallback on id mismatch", api.Viewer{ForumUserID: "8", Username: "alice"}, api.Author{UserID: "7", Username: "alice"}, true},
		{"username is case sensitive", api.Viewer{Username: "Alice"}, api.Author{Username: "alice"}, false},
		{"no match", api.Viewer{ForumUserID: "8", Username: "carol"}, api.Author{UserID: "7", Username: "alice"}, false},
		{"empty ids never match", api.Viewer{}, api.Author{}, false},
		{"empty viewer username", api.Viewer{ForumUserID: "1"}, api.Author{Username: ""}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsOwner(tc.viewer, api.Comment{Author: tc.author}))
			assert.Equal(t, tc.want, IsOwner(tc.viewer, api.Post{Author: tc.author}))
		})
	}
}

func TestIsOwner_Nil(t *testing.T) {
	assert.False(t, IsOwner(api.Viewer{Username: "alice"}, nil))
}
