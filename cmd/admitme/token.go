package main

import (
	"fmt"
	"time"

	"github.com/admitme/admitme-server"
	"github.com/admitme/admitme-server/config"
	"github.com/spf13/cobra"
)

var (
	tokenName string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token [email]",
	Short: "Print a signed session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}

		token, expiresAt, err := issueToken(cfg, args[0], tokenName, tokenTTL)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		cmd.PrintErrf("expires at %s\n", expiresAt.Format(time.RFC3339))
		return nil
	},
}

func issueToken(cfg *config.Config, email, name string, ttl time.Duration) (string, time.Time, error) {
	return admitme.NewTokenServiceFromConfig(cfg).Issue(email, name, ttl)
}

func init() {
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default TOKEN_TTL)")
}
