package config

import (
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// BoardConfig is one [boards.<name>] section.
type BoardConfig struct {
	Title    string
	Markdown bool
	Locked   bool
}

// Boards reads the configured boards. A board without an explicit markdown
// flag defaults to markdown on.
func Boards(v *viper.Viper) map[string]BoardConfig {
	out := make(map[string]BoardConfig)
	for name := range v.GetStringMap("boards") {
		prefix := "boards." + name + "."
		b := BoardConfig{
			Title:    v.GetString(prefix + "title"),
			Markdown: true,
			Locked:   v.GetBool(prefix + "locked"),
		}
		if v.IsSet(prefix + "markdown") {
			b.Markdown = v.GetBool(prefix + "markdown")
		}
		if b.Title == "" {
			b.Title = name
		}
		out[name] = b
	}
	return out
}

// UpsertBoardConfig inserts or replaces a [boards.<name>] section.
func UpsertBoardConfig(existing, name string, values map[string]any) (string, bool) {
	header := "[boards." + name + "]"
	lines := strings.Split(existing, "\n")
	out := make([]string, 0, len(lines)+8)
	replaced := false

	for i := 0; i < len(lines); {
		line := lines[i]
		if strings.TrimSpace(line) == header {
			out = append(out, line)
			appendBoardOptions(&out, values)
			replaced = true
			i = skipSection(lines, i+1)
			continue
		}
		out = append(out, line)
		i++
	}

	if !replaced {
		if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
			out = append(out, "")
		}
		out = append(out, "# Added by config board", header)
		appendBoardOptions(&out, values)
	}

	return strings.Join(out, "\n"), true
}

// DeleteBoardConfig removes a [boards.<name>] section if present.
func DeleteBoardConfig(existing, name string) (string, bool) {
	header := "[boards." + name + "]"
	lines := strings.Split(existing, "\n")
	out := make([]string, 0, len(lines))
	removed := false

	for i := 0; i < len(lines); {
		if strings.TrimSpace(lines[i]) == header {
			removed = true
			i = skipSection(lines, i+1)
			continue
		}
		out = append(out, lines[i])
		i++
	}

	return strings.Join(out, "\n"), removed
}

// skipSection returns the index of the next section header at or after i.
func skipSection(lines []string, i int) int {
	for i < len(lines) && !isSectionHeader(strings.TrimSpace(lines[i])) {
		i++
	}
	return i
}

func appendBoardOptions(out *[]string, values map[string]any) {
	for _, key := range boardOptionOrder(values) {
		writeTOMLOptionLines(out, key, values[key], "")
	}
}

func boardOptionOrder(values map[string]any) []string {
	pref := []string{"title", "markdown", "locked"}
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, k := range pref {
		if _, ok := values[k]; ok {
			out = append(out, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(values))
	for k := range values {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func isSectionHeader(trim string) bool {
	if trim == "" || strings.HasPrefix(trim, "#") || strings.HasPrefix(trim, ";") {
		return false
	}
	return strings.HasPrefix(trim, "[") && strings.HasSuffix(trim, "]")
}
