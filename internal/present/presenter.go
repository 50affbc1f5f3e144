package present

import (
	"io"

	"github.com/mithrel/craftforum/internal/forum"
	"github.com/mithrel/craftforum/internal/present/format"
)

type Mode int

const (
	ModePlain Mode = iota
	ModePretty
	ModeJSON
	ModeNDJSON
	ModeTree
)

type Options struct {
	Mode       Mode
	JSONIndent bool
	Headers    bool
}

// ModeNames lists the accepted --output values.
var ModeNames = []string{"plain", "pretty", "json", "ndjson", "tree"}

// ParseMode parses a string like "plain", "pretty", "json", "ndjson", "tree".
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "plain":
		return ModePlain, true
	case "pretty":
		return ModePretty, true
	case "json":
		return ModeJSON, true
	case "ndjson":
		return ModeNDJSON, true
	case "tree":
		return ModeTree, true
	default:
		return ModePlain, false
	}
}

// NewPostStreamWriter picks the listing writer for opts. Listings have no
// pretty or tree form and fall back to plain.
func NewPostStreamWriter(w io.Writer, opts Options) format.PostStreamWriter {
	switch opts.Mode {
	case ModeJSON:
		return format.NewJSONStreamWriter(w, opts.JSONIndent)
	case ModeNDJSON:
		return format.NewNDJSONStreamWriter(w)
	default:
		return format.NewPlainStreamWriter(w, opts.Headers)
	}
}

// RenderThread renders a post and its comments according to options.
func RenderThread(w io.Writer, th forum.Thread, opts Options) error {
	switch opts.Mode {
	case ModeJSON:
		return format.WriteJSON(w, th, opts.JSONIndent)
	case ModeNDJSON:
		return format.WriteNDJSONThread(w, th)
	case ModePretty:
		return format.WritePrettyThread(w, th)
	case ModeTree:
		return format.WriteTreeThread(w, th)
	default:
		return format.WritePlainThread(w, th, opts.Headers)
	}
}
