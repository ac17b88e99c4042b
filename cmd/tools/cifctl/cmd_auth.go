package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				email = c.cfg.Backend.Email
			}
			if password == "" {
				password = c.cfg.Backend.Password
			}
			if email == "" || password == "" {
				return fmt.Errorf("email and password are required (flags or backend.email / backend.password)")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			tokens, err := c.api.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if tokens.User != nil {
				return c.print(tokens.User)
			}
			fmt.Fprintln(c.out, "logged in as", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "advisor email")
	cmd.Flags().StringVar(&password, "password", "", "advisor password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pair, err := c.api.Tokens().Load(cmd.Context())
			if err != nil {
				return err
			}
			if pair.AccessToken == "" {
				fmt.Fprintln(c.out, "no stored session")
				return nil
			}
			if err := c.api.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "logged out")
			return nil
		},
	}
}

func (c *cli) meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the authenticated advisor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			user, err := c.api.Me(ctx)
			if err != nil {
				return err
			}
			return c.print(user)
		},
	}
}
