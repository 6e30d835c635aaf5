package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <email> <password>",
	Short: "Authenticate and start a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		user, err := a.sessions.Login(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("logged in as %s (%s)\n", user.Email, user.Role)
		fmt.Printf("session expires %s\n", a.sessions.ExpiresAt().Format(time.RFC3339))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		a.sessions.Logout(cmd.Context())
		fmt.Println("logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		user := a.sessions.User()
		if user == nil {
			fmt.Println("not logged in")
			return nil
		}

		remaining := time.Until(a.sessions.ExpiresAt()).Round(time.Minute)
		fmt.Printf("%s (%s), role %s\n", user.Name, user.Email, user.Role)
		fmt.Printf("session expires in %s\n", remaining)
		return nil
	},
}

var extendCmd = &cobra.Command{
	Use:   "extend",
	Short: "Extend the current session by the full TTL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.requireLogin(); err != nil {
			return err
		}
		if err := a.sessions.Extend(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("session extended until %s\n", a.sessions.ExpiresAt().Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, extendCmd)
}
