package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mithrel/craftforum/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Manage configuration",
		Annotations: map[string]string{skipApp: "true"},
	}
	cmd.AddCommand(newConfigGenerateCmd())
	cmd.AddCommand(newConfigCheckCmd())
	cmd.AddCommand(newConfigBoardCmd())
	return cmd
}

func newConfigGenerateCmd() *cobra.Command {
	var out string
	var overwrite bool
	var update bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a default config.toml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = config.DefaultConfigPath()
			}
			if overwrite && update {
				return fmt.Errorf("choose either --overwrite or --update")
			}
			return writeConfigFile(cmd, out, overwrite, update)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output path for config.toml")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite existing config (creates a backup)")
	cmd.Flags().BoolVar(&update, "update", false, "merge defaults into existing config (creates a backup)")
	return cmd
}

func writeConfigFile(cmd *cobra.Command, out string, overwrite, update bool) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o700); err != nil {
		return err
	}

	exists := fileExists(out)
	if exists && !overwrite && !update {
		return fmt.Errorf("config already exists at %s; use --overwrite to replace (this will delete your current config) or --update to merge defaults", out)
	}

	content := ""
	if update && exists {
		data, err := os.ReadFile(out)
		if err != nil {
			return err
		}
		updated, changed := config.UpdateTOML(string(data))
		if !changed {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Config already up to date: %s\n", out)
			return nil
		}
		content = updated
	} else {
		content = config.RenderDefaultTOML()
	}

	var backupPath string
	if exists && (overwrite || update) {
		var err error
		backupPath, err = backupConfig(out)
		if err != nil {
			return err
		}
	}

	if err := os.WriteFile(out, []byte(content), 0o600); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
	if backupPath != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Backup: %s\n", backupPath)
	}
	return nil
}

func backupConfig(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	backup := path + ".bak"
	if fileExists(backup) {
		backup = fmt.Sprintf("%s.bak-%s", path, time.Now().Format("20060102-150405"))
	}
	if err := os.WriteFile(backup, data, 0o600); err != nil {
		return "", err
	}
	return backup, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func newConfigCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the loaded configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getApp(cmd).Cfg
			if err := config.CheckConfigValidity(cfg); err != nil {
				return fmt.Errorf("invalid config:\n%w", err)
			}
			used := cfg.ConfigFileUsed()
			if used == "" {
				used = "defaults"
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Config OK (%s)\n", used)
			return err
		},
	}
}

func newConfigBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Manage [boards.<name>] sections in the config file",
	}
	cmd.AddCommand(newConfigBoardSetCmd())
	cmd.AddCommand(newConfigBoardDeleteCmd())
	return cmd
}

func newConfigBoardSetCmd() *cobra.Command {
	var title string
	var markdown, locked bool
	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Add or replace a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := map[string]any{"markdown": markdown, "locked": locked}
			if title != "" {
				values["title"] = title
			}
			return editConfigFile(cmd, func(existing string) (string, bool) {
				return config.UpsertBoardConfig(existing, args[0], values)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "display title")
	cmd.Flags().BoolVar(&markdown, "markdown", true, "render posts on this board as markdown")
	cmd.Flags().BoolVar(&locked, "locked", false, "refuse new posts")
	return cmd
}

func newConfigBoardDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editConfigFile(cmd, func(existing string) (string, bool) {
				return config.DeleteBoardConfig(existing, args[0])
			})
		},
	}
}

// editConfigFile rewrites the active config file through edit, creating it
// when missing.
func editConfigFile(cmd *cobra.Command, edit func(string) (string, bool)) error {
	path := getApp(cmd).Cfg.ConfigFileUsed()
	if path == "" {
		path = config.DefaultConfigPath()
	}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	updated, changed := edit(string(data))
	if !changed {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No changes: %s\n", path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
