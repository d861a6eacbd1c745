/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/weatherlogger/apiserver/internal/auth"
	"github.com/weatherlogger/apiserver/internal/db"
	"github.com/weatherlogger/apiserver/internal/services"
	"github.com/weatherlogger/apiserver/internal/store"
)

var seedDays int

// seedCmd loads the admin account and the example cities.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin user and example series",
	Long: `Creates the "admin" user from ADMIN_PASSWORD (skipped when unset) and the
example series with random daily readings. Existing rows are left untouched.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := setup()

		conn, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		users := services.NewUserService(store.NewUserRepository(conn), auth.NewHasher(cfg.Auth.BcryptCost))
		seeder := services.NewSeeder(
			users,
			store.NewSeriesRepository(conn),
			store.NewMeasurementRepository(conn),
			db.NewTransactor(conn),
		)

		result, err := seeder.Seed(cmd.Context(), cfg.SeedPassword, seedDays)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}

		if cfg.SeedPassword == "" {
			logger.Warn("ADMIN_PASSWORD is not set, admin user skipped")
		}
		logger.WithField("admin_created", result.AdminCreated).
			WithField("series", len(result.Series)).
			WithField("measurements", result.Measurements).
			Info("seed finished")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().IntVar(&seedDays, "days", 10, "days of readings per example series")
}
