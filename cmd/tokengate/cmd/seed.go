package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"tokengate/internal/auth"
	"tokengate/internal/config"
	"tokengate/internal/identity/service"
	"tokengate/internal/security"
)

// Development account created by seed.
const (
	devEmail    = "dev@example.com"
	devPassword = "password123"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the development user (dev@example.com) and print a token for it",
	Long: `seed inserts a development user for local testing and prints a freshly issued token.
Idempotent: when the user already exists it logs in instead. Refused when APP_ENV=production.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		token, err := seed(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func seed(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.IsProduction() {
		return "", errors.New("seed: refusing to seed when APP_ENV=production")
	}
	st, err := openStores(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer st.close()
	signer, err := newSigner(cfg)
	if err != nil {
		return "", err
	}
	identity := service.NewAuthService(st.users, auth.NewService(signer, st.sessions), security.NewHasher(cfg.BcryptCost), cfg.TokenTTL())

	u, token, err := identity.Register(ctx, service.RegisterInput{
		Name:     "Dev",
		LastName: "User",
		Email:    devEmail,
		Password: devPassword,
	})
	if errors.Is(err, service.ErrEmailAlreadyRegistered) {
		log.Printf("seed: %s already exists, logging in", devEmail)
		u, token, err = identity.Login(ctx, devEmail, devPassword)
	}
	if err != nil {
		return "", fmt.Errorf("seed: %w", err)
	}
	log.Printf("seed: user %s (%s)", u.ID, u.Email)
	return token, nil
}
