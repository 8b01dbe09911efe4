package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"tokengate/internal/config"
	"tokengate/internal/db/migrate"
)

var direction string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the embedded Postgres migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := migrate.ParseDirection(direction)
		if err != nil {
			return err
		}
		dsn := config.DatabaseURL()
		if dsn == "" {
			return migrate.ErrEmptyDSN
		}
		if err := migrate.Run(dsn, dir); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				log.Printf("migrate: already at target version")
				return nil
			}
			return fmt.Errorf("migrate: %w", err)
		}
		log.Printf("migrate: %s complete", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringVar(&direction, "direction", "up", "Migration direction: up or down")
}
