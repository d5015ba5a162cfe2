package main

import (
	"context"
	"fmt"
	"io"

	"github.com/admitme/admitme-server"
	"github.com/spf13/cobra"
)

var (
	userName  string
	userPhoto string
	userRole  string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user records",
}

var usersAddCmd = &cobra.Command{
	Use:   "add [email]",
	Short: "Insert a user record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := admitme.ParseRole(userRole)
		if err != nil {
			return err
		}

		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		return createUser(cmd.Context(), app, cmd.OutOrStdout(), admitme.CreateUserMessage{
			Email:    args[0],
			Name:     userName,
			PhotoURL: userPhoto,
			Role:     role,
		})
	},
}

var usersPromoteCmd = &cobra.Command{
	Use:   "promote [email]",
	Short: "Grant the admin role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetRole(cmd, args[0], admitme.RoleAdmin)
	},
}

var usersDemoteCmd = &cobra.Command{
	Use:   "demote [email]",
	Short: "Revoke the admin role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetRole(cmd, args[0], admitme.RoleUser)
	},
}

func runSetRole(cmd *cobra.Command, email string, role admitme.UserRole) error {
	app, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	return setRole(cmd.Context(), app, cmd.OutOrStdout(), admitme.SetRoleMessage{
		Email: email,
		Role:  role,
	})
}

func createUser(ctx context.Context, app *App, out io.Writer, msg admitme.CreateUserMessage) error {
	if err := admitme.NewCreateUserHandler(app.Repo).Execute(ctx, msg); err != nil {
		return err
	}

	user, err := app.Repo.Users().GetByEmail(ctx, msg.Email)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "user %s added with role %s\n", user.Email, user.Role)
	return nil
}

func setRole(ctx context.Context, app *App, out io.Writer, msg admitme.SetRoleMessage) error {
	if err := admitme.NewSetRoleHandler(app.Repo).Execute(ctx, msg); err != nil {
		return err
	}

	fmt.Fprintf(out, "user %s now has role %s\n", admitme.NormalizeEmail(msg.Email), msg.Role)
	return nil
}

func init() {
	usersAddCmd.Flags().StringVar(&userName, "name", "", "display name")
	usersAddCmd.Flags().StringVar(&userPhoto, "photo", "", "photo URL")
	usersAddCmd.Flags().StringVar(&userRole, "role", admitme.RoleUser, "role flag: user or admin")

	usersCmd.AddCommand(usersAddCmd, usersPromoteCmd, usersDemoteCmd)
}
