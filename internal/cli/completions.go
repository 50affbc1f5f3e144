package cli

import (
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mithrel/craftforum/internal/config"
	"github.com/mithrel/craftforum/internal/util"
)

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "completion",
		Short:       "Generate shell completion scripts",
		Annotations: map[string]string{skipApp: "true"},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "bash",
		Short: "Generate Bash completions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "zsh",
		Short: "Generate Zsh completions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "fish",
		Short: "Generate Fish completions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		},
	})

	return cmd
}

// registerBoardCompletion completes --board from the configured boards,
// ranked by fuzzy score against what was typed.
func registerBoardCompletion(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("board", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		v := viper.New()
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			v.SetConfigFile(path)
		}
		if err := config.Load(cmd.Context(), v); err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		boards := config.Boards(v)
		names := make([]string, 0, len(boards))
		for name := range boards {
			names = append(names, name)
		}
		sort.Strings(names)
		return util.ScoreCompletions(toComplete, names, 20), cobra.ShellCompDirectiveNoFileComp
	})
}
