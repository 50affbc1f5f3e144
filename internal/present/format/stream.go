package format

import (
	"encoding/json"
	"io"
	"text/tabwriter"

	"github.com/mithrel/craftforum/internal/forum"
)

// PostStreamWriter writes post listings page by page.
type PostStreamWriter interface {
	WritePosts([]forum.PostSummary) error
	Close() error
}

// PlainStreamWriter incrementally writes posts in the plain TSV format.
type PlainStreamWriter struct {
	tw          *tabwriter.Writer
	headers     bool
	wroteHeader bool
}

func NewPlainStreamWriter(w io.Writer, headers bool) *PlainStreamWriter {
	return &PlainStreamWriter{
		tw:      tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		headers: headers,
	}
}

// WritePosts writes a batch of posts and flushes.
func (pw *PlainStreamWriter) WritePosts(posts []forum.PostSummary) error {
	if pw.headers && !pw.wroteHeader {
		_, _ = io.WriteString(pw.tw, postHeaderLine)
		pw.wroteHeader = true
	}
	for _, p := range posts {
		_, _ = io.WriteString(pw.tw, postLine(p))
	}
	return pw.tw.Flush()
}

func (pw *PlainStreamWriter) Close() error { return pw.tw.Flush() }

// JSONStreamWriter incrementally writes posts as one JSON array.
type JSONStreamWriter struct {
	w        io.Writer
	indent   bool
	wroteAny bool
}

func NewJSONStreamWriter(w io.Writer, indent bool) *JSONStreamWriter {
	return &JSONStreamWriter{w: w, indent: indent}
}

func (jw *JSONStreamWriter) WritePosts(posts []forum.PostSummary) error {
	for _, p := range posts {
		var (
			b   []byte
			err error
		)
		if jw.indent {
			b, err = json.MarshalIndent(p, "  ", "  ")
		} else {
			b, err = json.Marshal(p)
		}
		if err != nil {
			return err
		}
		sep := ","
		if !jw.wroteAny {
			sep = "["
		}
		if jw.indent {
			sep += "\n  "
		}
		if _, err := io.WriteString(jw.w, sep); err != nil {
			return err
		}
		if _, err := jw.w.Write(b); err != nil {
			return err
		}
		jw.wroteAny = true
	}
	return nil
}

// Close finishes the JSON array.
func (jw *JSONStreamWriter) Close() error {
	switch {
	case !jw.wroteAny:
		_, err := io.WriteString(jw.w, "[]\n")
		return err
	case jw.indent:
		_, err := io.WriteString(jw.w, "\n]\n")
		return err
	default:
		_, err := io.WriteString(jw.w, "]\n")
		return err
	}
}

// NDJSONStreamWriter writes one post per line.
type NDJSONStreamWriter struct {
	enc *json.Encoder
}

func NewNDJSONStreamWriter(w io.Writer) *NDJSONStreamWriter {
	return &NDJSONStreamWriter{enc: json.NewEncoder(w)}
}

func (nw *NDJSONStreamWriter) WritePosts(posts []forum.PostSummary) error {
	for _, p := range posts {
		if err := nw.enc.Encode(p); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op for NDJSON output.
func (nw *NDJSONStreamWriter) Close() error { return nil }
