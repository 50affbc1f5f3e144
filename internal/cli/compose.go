package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/mithrel/craftforum/internal/editor"
)

var errEmptyDraft = errors.New("aborting: empty draft")

// compose opens the editor on initial text and returns what was written.
// The scratch file is removed afterwards unless editor.delete_empty is off
// and the draft came back empty.
func compose(cmd *cobra.Command, kind, id, initial string) (editor.Draft, error) {
	path, err := editor.PathForID(kind, id)
	if err != nil {
		return editor.Draft{}, err
	}
	final, _, err := editor.OpenAt(path, []byte(initial))
	if err != nil {
		return editor.Draft{}, err
	}
	d := editor.ParseEdited(string(final))
	if d.Body == "" {
		if getApp(cmd).Cfg.GetBool("editor.delete_empty") {
			_ = os.Remove(path)
		}
		return d, errEmptyDraft
	}
	_ = os.Remove(path)
	return d, nil
}
