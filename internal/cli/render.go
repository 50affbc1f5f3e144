package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mithrel/craftforum/internal/render"
)

// readInput reads the named file, or stdin for no argument or "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(args[0])
	return string(b), err
}

func newRenderCmd() *cobra.Command {
	var noSanitize bool
	cmd := &cobra.Command{
		Use:         "render [file]",
		Short:       "Render forum markdown to HTML",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipApp: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			html := render.Markdown(text)
			if !noSanitize && getApp(cmd).Cfg.GetBool("render.sanitize") {
				html = render.Sanitize(html)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
			return err
		},
	}
	cmd.Flags().BoolVar(&noSanitize, "no-sanitize", false, "print the renderer output without sanitizing")
	return cmd
}

func newStripCmd() *cobra.Command {
	var snippet int
	cmd := &cobra.Command{
		Use:         "strip [file]",
		Short:       "Reduce forum markdown to plain text",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipApp: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			out := render.Strip(text)
			if snippet > 0 {
				out = render.Snippet(text, snippet)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().IntVar(&snippet, "snippet", 0, "cut the stripped text to at most n characters")
	return cmd
}
