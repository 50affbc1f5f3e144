package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mithrel/craftforum/internal/server"
	"github.com/mithrel/craftforum/pkg/api"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "token",
		Short:       "Issue API tokens",
		Annotations: map[string]string{skipApp: "true"},
	}
	cmd.AddCommand(newTokenMintCmd())
	return cmd
}

func newTokenMintCmd() *cobra.Command {
	var forumID string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "mint <username>",
		Short: "Mint a bearer token for the HTTP API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getApp(cmd).Cfg
			secret := cfg.GetString("auth.jwt_secret")
			if secret == "" {
				return fmt.Errorf("auth.jwt_secret is not set")
			}
			if ttl <= 0 {
				ttl = cfg.GetDuration("auth.token_ttl")
			}
			tok, err := server.NewTokens(secret, ttl).Mint(api.Viewer{
				Username:    strings.TrimSpace(args[0]),
				ForumUserID: api.ID(forumID),
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&forumID, "forum-id", "", "forum user id to embed in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	return cmd
}
