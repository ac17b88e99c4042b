package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cif-onboarding/pkg/registry"
)

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			stats, err := c.api.DashboardStats(ctx)
			if err != nil {
				return err
			}
			return c.print(stats)
		},
	}
}

func (c *cli) registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the document field registry",
	}

	var format, file, version string
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the active document registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := c.calc.Registry().ToDocument(version)
			doc.LastUpdated = time.Now().UTC().Format(time.RFC3339)

			if file != "" {
				if format != "json" {
					return fmt.Errorf("--file writes the JSON registry format, got --format %s", format)
				}
				if err := registry.SaveRegistry(file, doc); err != nil {
					return err
				}
				fmt.Fprintln(c.out, "registry written to", file)
				return nil
			}
			return render(c.out, format, doc)
		},
	}
	export.Flags().StringVar(&format, "format", "yaml", "json or yaml")
	export.Flags().StringVar(&file, "file", "", "write a loadable JSON registry to this path")
	export.Flags().StringVar(&version, "version", "1.0.0", "registry version stamp")

	cmd.AddCommand(export)
	return cmd
}

