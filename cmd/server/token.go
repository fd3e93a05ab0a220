package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/service/auth"
	"github.com/spf13/cobra"
)

var tokenSubject string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an operator access token",
	Long: `Sign an access token for an operator with the configured JWT secret and
print it to stdout. The token lifetime is auth.token_lifetime_minutes.

Examples:
  skillforge token --subject 9f0c2c3e-5a51-4a5e-9d4b-3f7e1f0f2c11`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "operator id (UUID) the token is issued to")
	_ = tokenCmd.MarkFlagRequired("subject")
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadAppConfig()
	if err != nil {
		return err
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	token, err := issueToken(ctx, jwtService, tokenSubject)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}

// issueToken signs an access token for the operator id in subject.
func issueToken(ctx context.Context, jwtService auth.JWTService, subject string) (string, error) {
	operatorID, err := uuid.Parse(subject)
	if err != nil || operatorID == uuid.Nil {
		return "", fmt.Errorf("invalid --subject %q: must be a non-nil UUID", subject)
	}

	token, err := jwtService.GenerateToken(ctx, operatorID)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}
