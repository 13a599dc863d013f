package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chulminlee01/mrt-tech-test/internal/config"
	"github.com/chulminlee01/mrt-tech-test/internal/server"
)

func newTokenCommand() *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		Long:  `Signs a bearer token for the HTTP API with JWT_SECRET. JWT_EXPIRATION_HOURS and JWT_ISSUER are honored.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jwtCfg, err := config.JWTConfigFromEnv()
			if err != nil {
				return err
			}
			if jwtCfg == nil {
				return fmt.Errorf("JWT_SECRET environment variable is required")
			}

			token, err := server.NewJWTService(jwtCfg).GenerateToken(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Token subject, e.g. the recruiter's email (required)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
