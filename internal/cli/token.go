package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"quiz-session-engine/internal/auth"
	"quiz-session-engine/internal/config"
)

// NewTokenCmd mints an access token with the configured secret, for local testing.
func NewTokenCmd(configPath *string) *cobra.Command {
	var userID, username string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return fmt.Errorf("auth secret not configured")
			}
			ttl := config.TTLDuration(cfg.Auth.TokenTTL, 30*time.Minute)
			token, err := auth.NewVerifier(cfg.Auth.Secret).Issue(userID, username, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&username, "name", "", "display name")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
