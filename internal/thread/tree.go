// Package thread rebuilds reply hierarchies from flat comment lists and
// decides who may change a comment or post.
package thread

import (
	"sort"

	"github.com/mithrel/craftforum/pkg/api"
)

// BuildTree links each comment under the comment its ParentID names and
// returns the top-level nodes in input order. Replies keep input order, so a
// chronological list yields chronological replies.
//
// A comment whose parent is missing, is itself, or whose ancestry loops back
// to it is returned as top-level. Every input comment appears exactly once in
// the result. When ids repeat, the first occurrence owns the id.
func BuildTree(comments []api.Comment) []*api.CommentNode {
	nodes := make([]*api.CommentNode, len(comments))
	index := make(map[api.ID]int, len(comments))
	for i, c := range comments {
		nodes[i] = &api.CommentNode{Comment: c, Replies: []*api.CommentNode{}}
		if c.ID == "" {
			continue
		}
		if _, dup := index[c.ID]; !dup {
			index[c.ID] = i
		}
	}

	parent := func(i int) (int, bool) {
		pid := comments[i].ParentID
		if pid == "" {
			return 0, false
		}
		j, ok := index[pid]
		if !ok || j == i {
			return 0, false
		}
		return j, true
	}

	roots := make([]*api.CommentNode, 0, len(comments))
	for i := range comments {
		if j, ok := parent(i); ok && !loopsBack(i, len(comments), parent) {
			nodes[j].Replies = append(nodes[j].Replies, nodes[i])
			continue
		}
		roots = append(roots, nodes[i])
	}
	return roots
}

// loopsBack reports whether following parents from i returns to i. Chains
// that enter a loop not containing i stop after n steps.
func loopsBack(i, n int, parent func(int) (int, bool)) bool {
	steps := 0
	for j, ok := parent(i); ok; j, ok = parent(j) {
		if j == i {
			return true
		}
		steps++
		if steps > n {
			return false
		}
	}
	return false
}

// Collapse returns a copy of the forest at most maxDepth levels deep. Replies
// that would sit deeper are moved up under their ancestor on the last kept
// level, ordered by creation time. Collapse(nodes, 2) gives the forum's
// comment/reply layout.
func Collapse(nodes []*api.CommentNode, maxDepth int) []*api.CommentNode {
	if maxDepth <= 1 {
		flat := flatten(nodes, nil)
		sort.SliceStable(flat, func(a, b int) bool {
			return flat[a].CreatedAt.Before(flat[b].CreatedAt)
		})
		return flat
	}
	out := make([]*api.CommentNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &api.CommentNode{
			Comment: n.Comment,
			Replies: Collapse(n.Replies, maxDepth-1),
		})
	}
	return out
}

// flatten appends leaf copies of nodes and all their descendants in pre-order.
func flatten(nodes []*api.CommentNode, out []*api.CommentNode) []*api.CommentNode {
	if out == nil {
		out = []*api.CommentNode{}
	}
	for _, n := range nodes {
		out = append(out, &api.CommentNode{Comment: n.Comment, Replies: []*api.CommentNode{}})
		out = flatten(n.Replies, out)
	}
	return out
}

// Count returns the number of nodes in the forest.
func Count(nodes []*api.CommentNode) int {
	total := 0
	for _, n := range nodes {
		total += 1 + Count(n.Replies)
	}
	return total
}
