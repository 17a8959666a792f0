package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-health-ingest/internal/user/repo"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create an active user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := userService()
		if err != nil {
			return err
		}
		u, err := svc.Create(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintf(out, "✓ Created user %s\n", u.Email)
		fmt.Fprintf(out, "  id: %s\n", u.ID)
		return nil
	},
}

var userDeactivateCmd = &cobra.Command{
	Use:   "deactivate <user-id>",
	Short: "Deactivate a user; their keys stop authenticating",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("user", args[0])
		if err != nil {
			return err
		}
		svc, err := userService()
		if err != nil {
			return err
		}
		if err := svc.Deactivate(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to deactivate user: %w", err)
		}
		color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "✗ Deactivated user %s\n", id)
		return nil
	},
}

func userService() (*user.UserService, error) {
	conn, err := openDB()
	if err != nil {
		return nil, err
	}
	return user.NewUserService(conn, userrepo.NewUserRepo(conn)), nil
}

func parseID(what, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", what, s, err)
	}
	return id, nil
}

func init() {
	userCmd.AddCommand(userCreateCmd, userDeactivateCmd)
	rootCmd.AddCommand(userCmd)
}
