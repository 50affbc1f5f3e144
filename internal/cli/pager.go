package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mithrel/craftforum/internal/present"
)

const defaultPager = "less -FRSX"

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func withPager(ctx context.Context, out, errOut io.Writer, write func(io.Writer) error) error {
	if !isTerminal(out) {
		return write(out)
	}
	outFile := out.(*os.File)
	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = defaultPager
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", pager)
	cmd.Stdout = outFile
	if errFile, ok := errOut.(*os.File); ok {
		cmd.Stderr = errFile
	} else {
		cmd.Stderr = os.Stderr
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return write(out)
	}
	if err := cmd.Start(); err != nil {
		return write(out)
	}
	writeErr := write(stdin)
	_ = stdin.Close()
	waitErr := cmd.Wait()
	if writeErr != nil {
		return writeErr
	}
	return waitErr
}

// addOutputFlags registers --output and --noheaders. An empty --output picks
// fallback on a terminal and plain otherwise.
func addOutputFlags(cmd *cobra.Command, output *string, noHeaders *bool) {
	cmd.Flags().StringVarP(output, "output", "o", "", "output mode: "+strings.Join(present.ModeNames, "|"))
	cmd.Flags().BoolVar(noHeaders, "noheaders", false, "hide column headers (plain)")
	_ = cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return present.ModeNames, cobra.ShellCompDirectiveNoFileComp
	})
}

func outputOptions(cmd *cobra.Command, output string, noHeaders bool, fallback present.Mode) (present.Options, error) {
	mode := present.ModePlain
	if output == "" {
		if isTerminal(cmd.OutOrStdout()) {
			mode = fallback
		}
	} else {
		m, ok := present.ParseMode(strings.ToLower(output))
		if !ok {
			return present.Options{}, fmt.Errorf("invalid --output: %s", output)
		}
		mode = m
	}
	return present.Options{Mode: mode, Headers: !noHeaders}, nil
}
