package util

import "github.com/sahilm/fuzzy"

// ScoreCompletions returns the top N matches for the input string from the candidates list.
func ScoreCompletions(input string, candidates []string, n int) []string {
	idx := RankMatches(input, candidates, n)
	if idx == nil {
		return nil
	}
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = candidates[j]
	}
	return out
}

// RankMatches returns indexes into candidates ordered by fuzzy score, best
// first. An empty input keeps every candidate in its original order.
func RankMatches(input string, candidates []string, n int) []int {
	if input == "" {
		out := make([]int, len(candidates))
		for i := range out {
			out[i] = i
		}
		return out
	}
	matches := fuzzy.Find(input, candidates)
	if len(matches) == 0 {
		return nil
	}
	limit := len(matches)
	if n > 0 && n < limit {
		limit = n
	}
	out := make([]int, limit)
	for i := 0; i < limit; i++ {
		out[i] = matches[i].Index
	}
	return out
}
