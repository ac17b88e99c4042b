package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cif-onboarding/internal/models"
)

func (c *cli) clientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Browse client records",
	}

	var params models.ClientListParams
	list := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			page, err := c.api.ListClients(ctx, params)
			if err != nil {
				return err
			}
			return c.print(page)
		},
	}
	list.Flags().IntVar(&params.Limit, "limit", 20, "page size")
	list.Flags().IntVar(&params.Page, "page", 1, "page number")
	list.Flags().StringVar(&params.Search, "search", "", "free text search")
	list.Flags().StringVar(&params.Statut, "statut", "", "filter by status (prospect, actif, inactif)")

	get := &cobra.Command{
		Use:   "get <clientId>",
		Short: "Show one client record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			record, err := c.api.GetClient(ctx, args[0])
			if err != nil {
				return err
			}
			return c.print(record)
		},
	}

	var clientID, statut string
	save := &cobra.Command{
		Use:   "save <form.json>",
		Short: "Create a client from an onboarding form, or replace the form of --id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var form map[string]interface{}
			if err := json.Unmarshal(raw, &form); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			ctx, cancel, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			record, err := c.api.SaveClientForm(ctx, clientID, form, statut)
			if err != nil {
				return err
			}
			return c.print(record)
		},
	}
	save.Flags().StringVar(&clientID, "id", "", "existing client id")
	save.Flags().StringVar(&statut, "statut", "", "client status (default actif)")

	var assignments []string
	update := &cobra.Command{
		Use:   "update <clientId>",
		Short: "Patch flat columns of a client record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(assignments)
			if err != nil {
				return err
			}

			ctx, cancel, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			record, err := c.api.UpdateClient(ctx, args[0], fields)
			if err != nil {
				return err
			}
			return c.print(record)
		},
	}
	update.Flags().StringArrayVar(&assignments, "set", nil, "key=value, repeatable (true/false and numbers are typed)")

	remove := &cobra.Command{
		Use:   "delete <clientId>",
		Short: "Delete a client record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			if err := c.api.DeleteClient(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "deleted", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, get, save, update, remove)
	return cmd
}

// parseAssignments turns key=value pairs into a JSON patch body.
func parseAssignments(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("at least one --set key=value is required")
	}
	fields := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, want key=value", pair)
		}
		switch {
		case value == "null":
			fields[key] = nil
		case value == "true" || value == "false":
			fields[key] = value == "true"
		default:
			if n, err := strconv.ParseFloat(value, 64); err == nil {
				fields[key] = n
			} else {
				fields[key] = value
			}
		}
	}
	return fields, nil
}
