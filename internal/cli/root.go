package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mithrel/craftforum/internal/config"
	"github.com/mithrel/craftforum/internal/wire"
	"github.com/mithrel/craftforum/pkg/api"
)

type ctxKey string

const appKey ctxKey = "app"

// skipApp marks commands that run without a store.
const skipApp = "skip_app"

// Execute is the entrypoint: it builds the root cobra.Command and runs it.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the Cobra root command and wires dependencies.
func NewRootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:           "craftforum",
		Short:         "craftforum: community forum server and admin CLI",
		SilenceUsage:  true, // don't show usage on runtime errors
		SilenceErrors: true, // let main print errors once
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if cfgPath != "" {
				v.SetConfigFile(cfgPath)
			}
			if err := config.Load(cmd.Context(), v); err != nil {
				return err
			}
			if !needsApp(cmd) {
				cmd.SetContext(context.WithValue(cmd.Context(), appKey, &wire.App{Cfg: v}))
				return nil
			}
			if err := config.CheckConfigValidity(v); err != nil {
				return fmt.Errorf("invalid config:\n%w", err)
			}
			// Wire up the app and stash it in context for subcommands.
			app, err := wire.BuildApp(cmd.Context(), v)
			if err != nil {
				return err
			}
			ctx := context.WithValue(cmd.Context(), appKey, app)
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app, ok := cmd.Context().Value(appKey).(*wire.App); ok && app.Store != nil {
				return app.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (yaml|toml)")
	cmd.PersistentFlags().String("as", "", "forum username to act as (defaults to config user)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newStripCmd())
	cmd.AddCommand(newPostCmd())
	cmd.AddCommand(newCommentCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newCompletionCmd())
	cmd.AddCommand(newConfigCmd())

	cmd.Run = func(cmd *cobra.Command, args []string) { _ = cmd.Help() }

	return cmd
}

func needsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipApp] == "true" {
			return false
		}
	}
	return true
}

func getApp(cmd *cobra.Command) *wire.App {
	v := cmd.Context().Value(appKey)
	if v == nil {
		fmt.Fprintln(os.Stderr, "internal error: app not initialized")
		os.Exit(1)
	}
	return v.(*wire.App)
}

// viewer returns the identity the CLI acts as: --as, else the config user.
func viewer(cmd *cobra.Command) api.Viewer {
	name, _ := cmd.Flags().GetString("as")
	if strings.TrimSpace(name) == "" {
		name = getApp(cmd).Cfg.GetString("user")
	}
	return api.Viewer{Username: strings.TrimSpace(name)}
}

// requireViewer is viewer for commands that write.
func requireViewer(cmd *cobra.Command) (api.Viewer, error) {
	v := viewer(cmd)
	if v.Username == "" {
		return v, fmt.Errorf("no forum user: pass --as or set user in config")
	}
	return v, nil
}
