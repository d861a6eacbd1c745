/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/weatherlogger/apiserver/internal/auth"
	"github.com/weatherlogger/apiserver/internal/services"
	"github.com/weatherlogger/apiserver/internal/store"
	"github.com/weatherlogger/apiserver/types"
)

var (
	userName     string
	userRole     string
	userPassword string
)

// userCmd groups account provisioning. Accounts are never created over HTTP.
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	Long: `Creates a user account. The password is read from the terminal
when --password is not given.

	weatherlogger user create --username alice --role admin
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := setup()

		password := userPassword
		if password == "" {
			var err error
			if password, err = promptPassword(cmd.ErrOrStderr()); err != nil {
				return err
			}
		}

		conn, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		users := services.NewUserService(store.NewUserRepository(conn), auth.NewHasher(cfg.Auth.BcryptCost))
		user, err := users.Create(cmd.Context(), userName, password, types.ParseRole(userRole))
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		logger.WithField("user_id", user.ID).WithField("username", user.Username).WithField("role", user.Role).Info("user created")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)

	userCreateCmd.Flags().StringVar(&userName, "username", "", "login name")
	userCreateCmd.Flags().StringVar(&userRole, "role", string(types.RoleViewer), "admin or viewer")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "password (prompted when empty)")
	_ = userCreateCmd.MarkFlagRequired("username")
}
