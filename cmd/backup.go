/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/weatherlogger/apiserver/internal/db"
	"github.com/weatherlogger/apiserver/internal/services"
	"github.com/weatherlogger/apiserver/internal/storage"
	"github.com/weatherlogger/apiserver/internal/store"
)

// backupCmd manages JSON snapshots kept in object storage.
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, restore and delete backups in object storage",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Upload a snapshot of all series and measurements",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackupService(cmd.Context(), func(svc *services.BackupService, logger *logrus.Logger) error {
			key, err := svc.Create(cmd.Context())
			if err != nil {
				return err
			}
			logger.WithField("key", key).Info("backup created")
			return nil
		})
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <key>",
	Short: "Load a snapshot into an empty database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackupService(cmd.Context(), func(svc *services.BackupService, logger *logrus.Logger) error {
			summary, err := svc.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			logger.WithField("key", args[0]).
				WithField("series", summary.Series).
				WithField("measurements", summary.Measurements).
				Info("backup restored")
			return nil
		})
	},
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a snapshot from object storage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackupService(cmd.Context(), func(svc *services.BackupService, logger *logrus.Logger) error {
			if err := svc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			logger.WithField("key", args[0]).Info("backup deleted")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd, backupRestoreCmd, backupDeleteCmd)
}

func withBackupService(ctx context.Context, fn func(*services.BackupService, *logrus.Logger) error) error {
	cfg, logger := setup()

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	conn, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	svc := services.NewBackupService(
		store.NewSeriesRepository(conn),
		store.NewMeasurementRepository(conn),
		objects,
		db.NewTransactor(conn),
	)
	return fn(svc, logger)
}
