package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/satriahrh/arunika-actor/internal/auth"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a monitor token for the status server",
	Long: `Mint a JWT that lets a monitor subscribe to the live event stream at /ws.

The token is signed with http.jwt_secret (or ACTOR_JWT_SECRET) and is only
valid for this actor.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl := tokenTTL
		if ttl == 0 {
			ttl = cfg.HTTP.TokenTTL()
		}

		issuer, err := auth.NewTokenIssuer(cfg.HTTP.JWTSecret, cfg.ActorName, ttl)
		if err != nil {
			return fmt.Errorf("%w (set http.jwt_secret or ACTOR_JWT_SECRET)", err)
		}

		token, err := issuer.GenerateMonitorToken(tokenSubject)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenSubject, "subject", "s", "monitor", "who the token is for")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default http.token_ttl_minutes)")
}
