package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cif-onboarding/internal/completion"
	"cif-onboarding/internal/formdata"
	"cif-onboarding/internal/models"
)

type completionReport struct {
	ClientID         string                      `json:"clientId"`
	Summary          completion.Summary          `json:"summary"`
	Results          []completion.Result         `json:"results"`
	MissingBySection []completion.SectionMissing `json:"missingBySection"`
	Documents        []completion.BoardEntry     `json:"documents"`
	RiskSuggestion   *completion.RiskSuggestion  `json:"riskSuggestion,omitempty"`
}

func (c *cli) completionCmd() *cobra.Command {
	var types []string
	cmd := &cobra.Command{
		Use:   "completion <clientId>",
		Short: "Evaluate which regulatory documents a client file can produce",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := c.calc.Registry()
			docTypes := make([]completion.DocumentType, 0, len(types))
			for _, t := range types {
				dt, err := reg.Parse(t)
				if err != nil {
					return err
				}
				docTypes = append(docTypes, dt)
			}

			ctx, cancel, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			var (
				record models.ClientRecord
				docs   []models.Document
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				record, err = c.api.GetClient(gctx, args[0])
				return err
			})
			g.Go(func() error {
				var err error
				docs, err = c.api.ListClientDocuments(gctx, args[0])
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			data := completion.ClientFlatData(record)
			results, err := c.calc.CalculateTypes(data, docTypes...)
			if err != nil {
				return err
			}

			return c.print(completionReport{
				ClientID:         args[0],
				Summary:          c.calc.SummarizeResults(results),
				Results:          results,
				MissingBySection: completion.GroupMissing(results),
				Documents:        completion.DocumentBoard(docs, reg),
				RiskSuggestion:   completion.SuggestRiskProfile(data),
			})
		},
	}
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "document types to evaluate (default: all)")
	return cmd
}

func (c *cli) flattenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flatten <form.json>",
		Short: "Flatten a nested onboarding form into document field keys",
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
			return c.print(formdata.Flatten(form))
		},
	}
}
