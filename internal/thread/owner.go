package thread

import "github.com/mithrel/craftforum/pkg/api"

// Owned is anything with an author: comments and posts.
type Owned interface {
	Owner() api.Author
}

// IsOwner reports whether v may edit or delete o.
//
// The forum user id is checked first. When it does not match, or either side
// has no id, the usernames are compared exactly. The username fallback covers
// accounts whose forum link is stale or missing; usernames are not guaranteed
// unique across auth providers, so this is weaker than the id check.
func IsOwner(v api.Viewer, o Owned) bool {
	if o == nil {
		return false
	}
	a := o.Owner()
	if v.ForumUserID != "" && a.UserID != "" && v.ForumUserID.String() == a.UserID.String() {
		return true
	}
	return v.Username != "" && a.Username != "" && v.Username == a.Username
}
