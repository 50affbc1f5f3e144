package editor

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	TitlePrefix    = "Title: "
	BoardPrefix    = "Board: "
	MarkdownPrefix = "Markdown: "
)

// Draft is what the user wrote in the editor. Markdown is nil when the header
// was removed or left blank.
type Draft struct {
	Title    string
	Board    string
	Markdown *bool
	Body     string
}

// ComposePost creates the text presented to the editor for a post.
func ComposePost(title, board string, markdown bool, body string) string {
	var b bytes.Buffer
	b.WriteString("# craftforum post\n")
	b.WriteString("# Lines starting with '#' are ignored.\n")
	b.WriteString("# Set Title, Board and Markdown (yes/no). After '---', write the body.\n")
	b.WriteString(TitlePrefix + title + "\n")
	b.WriteString(BoardPrefix + board + "\n")
	b.WriteString(MarkdownPrefix + yesNo(markdown) + "\n")
	b.WriteString("---\n")
	writeBody(&b, body)
	return b.String()
}

// ComposeComment creates the editor text for a comment. quoted, when set, is
// the comment being replied to and is shown as ignored context.
func ComposeComment(quoted, body string) string {
	var b bytes.Buffer
	b.WriteString("# craftforum comment\n")
	b.WriteString("# Lines starting with '#' above '---' are ignored.\n")
	if q := strings.TrimSpace(quoted); q != "" {
		b.WriteString("# Replying to:\n")
		for _, line := range strings.Split(q, "\n") {
			b.WriteString("#   " + line + "\n")
		}
	}
	b.WriteString("---\n")
	writeBody(&b, body)
	return b.String()
}

func writeBody(b *bytes.Buffer, body string) {
	if body == "" {
		return
	}
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	b.WriteString(body)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// PreferredEditor finds a suitable editor from env or common defaults.
func PreferredEditor() (string, error) {
	if v := os.Getenv("VISUAL"); v != "" {
		return v, nil
	}
	if e := os.Getenv("EDITOR"); e != "" {
		return e, nil
	}
	for _, cand := range []string{"nvim", "vim", "vi"} {
		if p, err := exec.LookPath(cand); err == nil {
			return p, nil
		}
	}
	return "", errors.New("no editor found; set $EDITOR or $VISUAL")
}

// PathForID returns a temp file path for editing the record kind/id.
func PathForID(kind, id string) (string, error) {
	name := sanitize(kind) + "." + sanitize(id) + ".craftforum.md"
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		return filepath.Join(xdg, "craftforum", name), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "craftforum", "edit", name), nil
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "new"
	}
	return b.String()
}

func ensureDirSecure(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	return nil
}

func writeFile0600(path string, data []byte) error {
	if err := ensureDirSecure(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, fs.FileMode(0o600))
}

// OpenAt opens the editor at path with initial content and returns final bytes and whether it changed.
func OpenAt(path string, initial []byte) (final []byte, changed bool, err error) {
	if err := writeFile0600(path, initial); err != nil {
		return nil, false, err
	}
	// Honor VISUAL/EDITOR including flags by running via a shell wrapper.
	ed := os.Getenv("VISUAL")
	if ed == "" {
		ed = os.Getenv("EDITOR")
	}
	var cmd *exec.Cmd
	if strings.TrimSpace(ed) != "" {
		cmd = exec.Command("sh", "-c", "$EDITORCMD \"$FILEPATH\"")
		cmd.Env = append(os.Environ(), "EDITORCMD="+ed, "FILEPATH="+path)
	} else {
		// Fallback to common terminal editors
		prog, err := PreferredEditor()
		if err != nil {
			return nil, false, err
		}
		cmd = exec.Command(prog, path)
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, false, err
	}
	out, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	return out, !bytes.Equal(out, initial), nil
}

// ParseEdited extracts the headers and body from the editor output. Text
// with no '---' separator is all body.
func ParseEdited(s string) Draft {
	var d Draft
	if !hasSeparator(s) {
		d.Body = strings.TrimSpace(s)
		return d
	}
	lines := strings.Split(s, "\n")
	inBody := false
	var bodyLines []string
	for _, line := range lines {
		if inBody {
			bodyLines = append(bodyLines, line)
			continue
		}
		trim := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trim, "#"):
		case trim == "---":
			inBody = true
		case strings.HasPrefix(trim, strings.TrimSpace(TitlePrefix)):
			d.Title = strings.TrimSpace(strings.TrimPrefix(trim, strings.TrimSpace(TitlePrefix)))
		case strings.HasPrefix(trim, strings.TrimSpace(BoardPrefix)):
			d.Board = strings.TrimSpace(strings.TrimPrefix(trim, strings.TrimSpace(BoardPrefix)))
		case strings.HasPrefix(trim, strings.TrimSpace(MarkdownPrefix)):
			raw := strings.TrimSpace(strings.TrimPrefix(trim, strings.TrimSpace(MarkdownPrefix)))
			if v, ok := parseYesNo(raw); ok {
				d.Markdown = &v
			}
		}
	}
	d.Body = strings.TrimSpace(strings.Join(bodyLines, "\n"))
	return d
}

func hasSeparator(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "---" {
			return true
		}
	}
	return false
}

func parseYesNo(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "yes", "y", "true", "on":
		return true, true
	case "no", "n", "false", "off":
		return false, true
	}
	return false, false
}

// FirstLine returns the first trimmed line, squashed and cut to 120 runes.
func FirstLine(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 120 {
		s = string(r[:120])
	}
	return s
}
