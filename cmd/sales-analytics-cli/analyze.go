package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/analyzer"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/metrics"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/sanitize"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/store"
)

// analysisOutput is the envelope printed in --json mode.
type analysisOutput struct {
	ID string `json:"id,omitempty"`
	*analyzer.Response
}

// newAnalyzeCmd creates the analyze subcommand.
func newAnalyzeCmd() *cobra.Command {
	var (
		returnsPath string
		platform    string
		mappings    []string
		outPath     string
		save        bool
	)

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze a sales export",
		Long: `Analyze reads a CSV or spreadsheet sales export and prints its key metrics.

With --returns the file is treated as a sales file and the second file as its
returns file. The returns file must have the sales columns plus exactly one
extra column holding the cancel or return date.

--map binds a role to a column explicitly and may be repeated, for example
--map sales_amount="Invoice Amount".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			req, err := buildRequest(args[0], returnsPath, platform, mappings)
			if err != nil {
				return err
			}

			svc, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer closeServices(svc)

			start := time.Now()
			stop := ui.Spin("analyzing " + req.Filename)
			resp, err := svc.Analyzer.Analyze(ctx, req)
			stop()
			if err != nil {
				if outputJSON {
					_ = writeJSON(cmd.OutOrStdout(), analyzer.Failure(err))
				}
				return fmt.Errorf("analyze %s: %w", req.Filename, err)
			}

			out := analysisOutput{Response: resp}
			if save {
				if out.ID, err = saveAnalysis(ctx, svc.Store, req, resp); err != nil {
					return err
				}
			}

			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				if err := writeJSON(f, out); err != nil {
					f.Close()
					return fmt.Errorf("write output file: %w", err)
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("write output file: %w", err)
				}
			}

			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			printAnalysis(resp)
			if out.ID != "" {
				ui.Success("Saved analysis %s", out.ID)
			}
			if outPath != "" {
				ui.Info("Wrote %s", outPath)
			}
			ui.Success("Analyzed %s in %s", req.Filename, FormatDuration(time.Since(start)))
			return nil
		},
	}

	cmd.Flags().StringVar(&returnsPath, "returns", "", "returns file paired with FILE")
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "marketplace of the export: amazon, flipkart, meesho or generic")
	cmd.Flags().StringArrayVarP(&mappings, "map", "m", nil, "role=column binding, repeatable")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the full JSON envelope to this path")
	cmd.Flags().BoolVar(&save, "save", false, "save the analysis to the record store")

	return cmd
}

// buildRequest reads the files named on the command line.
func buildRequest(path, returnsPath, platform string, mappings []string) (analyzer.Request, error) {
	overrides, err := parseMappings(mappings)
	if err != nil {
		return analyzer.Request{}, err
	}

	up, err := readUpload(ui, path)
	if err != nil {
		return analyzer.Request{}, err
	}
	req := analyzer.Request{Upload: up, Platform: platform, Overrides: overrides}

	if returnsPath != "" {
		returns, err := readUpload(ui, returnsPath)
		if err != nil {
			return analyzer.Request{}, err
		}
		req.Returns = &returns
	}
	return req, nil
}

// parseMappings turns role=column flags into overrides.
func parseMappings(mappings []string) (map[string]string, error) {
	if len(mappings) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(mappings))
	for _, m := range mappings {
		role, label, ok := strings.Cut(m, "=")
		role = strings.TrimSpace(role)
		if !ok || role == "" {
			return nil, fmt.Errorf("invalid mapping %q: want role=column", m)
		}
		out[role] = strings.TrimSpace(label)
	}
	return out, nil
}

func saveAnalysis(ctx context.Context, s store.Store, req analyzer.Request, resp *analyzer.Response) (string, error) {
	doc, err := sanitize.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("encode analysis: %w", err)
	}
	rec := &store.Record{
		TenantID:    tenant,
		Filename:    req.Filename,
		Platform:    resp.Platform,
		Fingerprint: resp.Fingerprint,
		Document:    doc,
	}
	if err := s.Save(ctx, rec); err != nil {
		return "", fmt.Errorf("save analysis: %w", err)
	}
	return rec.ID, nil
}

// keyMetricGroups is the display order of the key_metrics groups.
var keyMetricGroups = []struct{ key, title string }{
	{"order_metrics", "Orders"},
	{"issue_metrics", "Issues"},
	{"region_metrics", "Regions"},
	{"product_metrics", "Products"},
}

func printAnalysis(resp *analyzer.Response) {
	summary, _ := resp.Analysis[metrics.KeySummary].(map[string]any)

	ui.Section("Analysis")
	ui.KeyValue("Platform", fmt.Sprintf("%s (%s)", resp.Platform, resp.Detection))
	ui.KeyValue("Rows", formatValue(summary["row_count"], ""))
	ui.KeyValue("Columns", len(resp.AvailableColumns))
	ui.KeyValue("Reliability", formatValue(summary["reliability"], ""))
	if dr, ok := summary["date_range"].(map[string]any); ok {
		ui.KeyValue("Period", fmt.Sprintf("%v to %v", dr["start"], dr["end"]))
	}

	if km, ok := resp.Analysis[metrics.KeyKeyMetrics].(map[string]any); ok {
		ui.Section("Key Metrics")
		var rows [][]string
		for _, g := range keyMetricGroups {
			items, _ := km[g.key].([]any)
			for _, it := range items {
				m, ok := it.(map[string]any)
				if !ok {
					continue
				}
				format, _ := m["format"].(string)
				rows = append(rows, []string{g.title, fmt.Sprint(m["label"]), formatValue(m["value"], format)})
			}
		}
		ui.Table([]string{"Group", "Metric", "Value"}, rows)
	}

	if len(resp.ColumnMapping) > 0 {
		ui.Section("Column Mapping")
		ui.Table([]string{"Role", "Column"}, mappingRows(resp.ColumnMapping))
	}

	if ps, ok := resp.Analysis[metrics.KeyPlatformSpecific].(map[string]any); ok {
		if msg, ok := ps["error"]; ok {
			ui.Warning("Platform analysis failed: %v", msg)
		}
	}
	for _, issue := range resp.ColumnMappingIssues {
		ui.Warning("%s", issue)
	}
}

func mappingRows(mapping map[string]string) [][]string {
	roles := make([]string, 0, len(mapping))
	for r := range mapping {
		roles = append(roles, r)
	}
	sort.Strings(roles)

	rows := make([][]string, 0, len(roles))
	for _, r := range roles {
		rows = append(rows, []string{r, mapping[r]})
	}
	return rows
}

// formatValue renders a document value with its key-metric format.
func formatValue(v any, format string) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		switch format {
		case metrics.FormatCurrency:
			return fmt.Sprintf("%.2f", x)
		case metrics.FormatPercentage:
			return fmt.Sprintf("%.2f%%", x)
		}
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%.2f", x)
	default:
		return fmt.Sprint(x)
	}
}
