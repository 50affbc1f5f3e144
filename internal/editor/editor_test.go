package editor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseEditedPost(t *testing.T) {
	input := `# comment line
Title: My Title
Board: support
Markdown: no
---
Body line 1
# not a comment in the body
`
	d := ParseEdited(input)
	if d.Title != "My Title" {
		t.Fatalf("title=%q", d.Title)
	}
	if d.Board != "support" {
		t.Fatalf("board=%q", d.Board)
	}
	if d.Markdown == nil || *d.Markdown {
		t.Fatalf("markdown=%v", d.Markdown)
	}
	if d.Body != "Body line 1\n# not a comment in the body" {
		t.Fatalf("body=%q", d.Body)
	}
}

func TestParseEditedBlankMarkdown(t *testing.T) {
	d := ParseEdited("Title: x\nMarkdown: maybe\n---\nbody")
	if d.Markdown != nil {
		t.Fatalf("expected nil markdown, got %v", *d.Markdown)
	}
}

func TestParseEditedWithoutSeparator(t *testing.T) {
	d := ParseEdited("  # Heading\n\ntext\n")
	if d.Body != "# Heading\n\ntext" {
		t.Fatalf("body=%q", d.Body)
	}
}

func TestComposeRoundTrip(t *testing.T) {
	d := ParseEdited(ComposePost("Hello", "general", true, "**hi**"))
	if d.Title != "Hello" || d.Board != "general" || d.Markdown == nil || !*d.Markdown || d.Body != "**hi**" {
		t.Fatalf("unexpected draft: %+v", d)
	}

	c := ComposeComment("first line\nsecond line", "")
	if !strings.Contains(c, "#   second line\n") {
		t.Fatalf("quote missing: %q", c)
	}
	if got := ParseEdited(c + "reply").Body; got != "reply" {
		t.Fatalf("comment body=%q", got)
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("  hello\nworld\n"); got != "hello" {
		t.Fatalf("FirstLine=%q", got)
	}
	long := strings.Repeat("é", 130)
	if n := len([]rune(FirstLine(long))); n != 120 {
		t.Fatalf("FirstLine length=%d want 120", n)
	}
}

func TestPathForID(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	path, err := PathForID("post", "a/b c")
	if err != nil {
		t.Fatalf("PathForID error: %v", err)
	}
	if path != filepath.Join(dir, "craftforum", "post.a-b-c.craftforum.md") {
		t.Fatalf("PathForID=%q", path)
	}
}

func TestOpenAt(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "ed.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho 'appended' >> \"$1\"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", script)

	out, changed, err := OpenAt(filepath.Join(dir, "x.md"), []byte("---\n"))
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	if !changed || string(out) != "---\nappended\n" {
		t.Fatalf("changed=%v out=%q", changed, out)
	}
}
