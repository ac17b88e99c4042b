package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cif-onboarding/internal/completion"
)

func (c *cli) documentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "List, generate, download and delete client documents",
	}

	list := &cobra.Command{
		Use:   "list <clientId>",
		Short: "Show the document board of a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			docs, err := c.api.ListClientDocuments(ctx, args[0])
			if err != nil {
				return err
			}
			return c.print(completion.DocumentBoard(docs, c.calc.Registry()))
		},
	}

	var force bool
	generate := &cobra.Command{
		Use:   "generate <clientId> <type>",
		Short: "Generate a document once the client file is complete",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docType, err := c.calc.Registry().Parse(args[1])
			if err != nil {
				return err
			}

			ctx, cancel, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			if !force {
				record, err := c.api.GetClient(ctx, args[0])
				if err != nil {
					return err
				}
				res, err := c.calc.Calculate(completion.ClientFlatData(record), docType)
				if err != nil {
					return err
				}
				if !res.IsReady {
					_ = c.print(res)
					return fmt.Errorf("%s is %d%% complete, %d field(s) missing (use --force to generate anyway)",
						res.Label, res.Percentage, len(res.MissingFields))
				}
			}

			resp, err := c.api.GenerateDocument(ctx, args[0], string(docType))
			if err != nil {
				return err
			}
			return c.print(resp)
		},
	}
	generate.Flags().BoolVar(&force, "force", false, "skip the completion check")

	var outPath string
	download := &cobra.Command{
		Use:   "download <documentId>",
		Short: "Download a generated document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			file, err := c.api.DownloadDocument(ctx, args[0])
			if err != nil {
				return err
			}

			path := outPath
			if path == "" {
				path = filepath.Base(file.Filename)
			} else if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, filepath.Base(file.Filename))
			}
			if err := os.WriteFile(path, file.Content, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "saved %s (%d bytes)\n", path, len(file.Content))
			return nil
		},
	}
	download.Flags().StringVar(&outPath, "out", "", "destination file or directory (default: backend filename)")

	var deleteFile bool
	remove := &cobra.Command{
		Use:     "delete <documentId>",
		Aliases: []string{"rm"},
		Short:   "Delete a document record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			if err := c.api.DeleteDocument(ctx, args[0], deleteFile); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "deleted", args[0])
			return nil
		},
	}
	remove.Flags().BoolVar(&deleteFile, "delete-file", false, "also remove the stored file")

	cmd.AddCommand(list, generate, download, remove)
	return cmd
}
