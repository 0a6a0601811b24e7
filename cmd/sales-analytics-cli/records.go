package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/store"
)

// newShowCmd creates the show subcommand.
func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a saved analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer closeServices(svc)

			rec, err := svc.Store.Get(ctx, tenant, args[0])
			if err != nil {
				return recordError(args[0], err)
			}

			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), rec)
			}

			ui.Section("Analysis " + rec.ID)
			ui.KeyValue("File", rec.Filename)
			ui.KeyValue("Platform", rec.Platform)
			ui.KeyValue("Created", rec.CreatedAt.Format(time.RFC3339))
			ui.KeyValue("Fingerprint", rec.Fingerprint)
			ui.Section("Document")

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, rec.Document, "", "  "); err != nil {
				return fmt.Errorf("decode stored document: %w", err)
			}
			pretty.WriteByte('\n')
			_, err = pretty.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}

// newListCmd creates the list subcommand.
func newListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer closeServices(svc)

			records, err := svc.Store.List(ctx, tenant, limit)
			if err != nil {
				return fmt.Errorf("list analyses: %w", err)
			}
			if records == nil {
				records = []*store.Record{}
			}

			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			if len(records) == 0 {
				ui.Info("No saved analyses for tenant %s", tenant)
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{r.ID, r.Filename, r.Platform, r.CreatedAt.Format(time.RFC3339)})
			}
			ui.Table([]string{"ID", "File", "Platform", "Created"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "maximum number of analyses")
	return cmd
}

// newDeleteCmd creates the delete subcommand.
func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a saved analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer closeServices(svc)

			if err := svc.Store.Delete(ctx, tenant, args[0]); err != nil {
				return recordError(args[0], err)
			}
			if err := svc.Analyses.Purge(ctx, tenant); err != nil {
				logger.Warn().Err(err).Msg("Failed to purge analysis cache")
			}

			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"id": args[0], "deleted": true})
			}
			ui.Success("Deleted analysis %s", args[0])
			return nil
		},
	}
}

func recordError(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("analysis %s not found", id)
	}
	return fmt.Errorf("analysis %s: %w", id, err)
}
