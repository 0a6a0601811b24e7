package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/analyzer"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/app"
)

// newDetectCmd creates the detect subcommand.
func newDetectCmd() *cobra.Command {
	var (
		returnsPath string
		platform    string
		mappings    []string
	)

	cmd := &cobra.Command{
		Use:   "detect FILE",
		Short: "Show the detected layout, marketplace and column roles",
		Long: `Detect reads the file and reports how the analyzer sees it: file layout,
the marketplace and how it was decided, and the column chosen for every role.
No metrics are computed and nothing is saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			req, err := buildRequest(args[0], returnsPath, platform, mappings)
			if err != nil {
				return err
			}

			// Detection needs no store.
			got, err := app.NewAnalyzer(cfg, logger).Inspect(ctx, req)
			if err != nil {
				if outputJSON {
					_ = writeJSON(cmd.OutOrStdout(), analyzer.Failure(err))
				}
				return fmt.Errorf("detect %s: %w", req.Filename, err)
			}

			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), got)
			}
			printInspection(req.Filename, got)
			return nil
		},
	}

	cmd.Flags().StringVar(&returnsPath, "returns", "", "returns file paired with FILE")
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "marketplace of the export")
	cmd.Flags().StringArrayVarP(&mappings, "map", "m", nil, "role=column binding, repeatable")

	return cmd
}

func printInspection(name string, in *analyzer.Inspection) {
	ui.Section("Layout")
	ui.KeyValue("File", name)
	if l := in.Layout; l != nil {
		ui.KeyValue("Format", l.Format)
		if l.Delimiter != "" {
			ui.KeyValue("Delimiter", fmt.Sprintf("%q", l.Delimiter))
		}
		if l.Encoding != "" {
			ui.KeyValue("Encoding", l.Encoding)
		}
		if l.Sheet != "" {
			ui.KeyValue("Sheet", l.Sheet)
		}
		ui.KeyValue("Header row", l.HeaderRow)
	}
	ui.KeyValue("Rows", in.Rows)
	ui.KeyValue("Columns", len(in.AvailableColumns))

	ui.Section("Marketplace")
	ui.KeyValue("Platform", in.Platform)
	ui.KeyValue("Decided by", in.Detection)
	if len(in.Scores) > 0 {
		names := make([]string, 0, len(in.Scores))
		for p := range in.Scores {
			names = append(names, p)
		}
		sort.Strings(names)
		for _, p := range names {
			ui.KeyValue("Score "+p, in.Scores[p])
		}
	}

	ui.Section("Column Roles")
	rows := mappingRows(in.ColumnMapping)
	for i := range rows {
		rows[i] = append(rows[i], fmt.Sprintf("%.2f", in.Confidence[rows[i][0]]))
	}
	ui.Table([]string{"Role", "Column", "Confidence"}, rows)

	for _, issue := range in.ColumnMappingIssues {
		ui.Warning("%s", issue)
	}
}
