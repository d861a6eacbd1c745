/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"database/sql"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/weatherlogger/apiserver/config"
	"github.com/weatherlogger/apiserver/internal/db"
	"github.com/weatherlogger/apiserver/internal/observability"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "weatherlogger",
	Short: "WeatherLogger API server and maintenance tools",
	Long: `WeatherLogger records and serves time-series weather measurements.

	weatherlogger migrate up
	weatherlogger seed
	weatherlogger server
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger shared by all commands.
func setup() (config.Config, *logrus.Logger) {
	cfg := config.LoadConfig()
	return cfg, observability.NewLogger(cfg.Log, os.Stderr)
}

// openDB is used by the maintenance commands that talk to postgres directly.
func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	return db.Open(ctx, cfg.Database)
}
